package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gigbridge/api/internal/model"
)

// webhookEventTTL bounds how long processed event ids are remembered.
// Gateways stop redelivering long before this.
const webhookEventTTL = 30 * 24 * time.Hour

// casRetries bounds optimistic retries when a watched key changes under us.
const casRetries = 5

// NewRedisStores returns Stores backed by Redis. Entities are stored as
// JSON blobs under typed keys with set-based secondary indexes.
func NewRedisStores(client *redis.Client) *Stores {
	return &Stores{
		Bids:          &redisBidStore{client},
		Jobs:          &redisJobStore{client},
		Contracts:     &redisContractStore{client},
		Notifications: &redisNotificationStore{client},
		Conversations: &redisConversationStore{client},
		Messages:      &redisMessageStore{client},
		Events:        &redisEventStore{client},
	}
}

func setJSON(ctx context.Context, rdb *redis.Client, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, data, 0).Err()
}

func getJSON(ctx context.Context, rdb *redis.Client, key string, v interface{}) error {
	data, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

// --- bids ---

type redisBidStore struct {
	rdb *redis.Client
}

func bidKey(id string) string { return fmt.Sprintf("bid:%s", id) }
func bidGuardKey(jobID, freelancerID string) string {
	return fmt.Sprintf("bid:job:%s:freelancer:%s", jobID, freelancerID)
}
func jobBidsKey(jobID string) string { return fmt.Sprintf("bids:job:%s", jobID) }
func freelancerBidsKey(freelancerID string) string {
	return fmt.Sprintf("bids:freelancer:%s", freelancerID)
}

func (s *redisBidStore) Create(ctx context.Context, bid *model.Bid) error {
	// The guard key makes (jobId, freelancerId) unique without a
	// multi-key transaction.
	ok, err := s.rdb.SetNX(ctx, bidGuardKey(bid.JobID, bid.FreelancerID), bid.ID, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicate
	}

	if err := setJSON(ctx, s.rdb, bidKey(bid.ID), bid); err != nil {
		return err
	}
	pipe := s.rdb.Pipeline()
	pipe.SAdd(ctx, jobBidsKey(bid.JobID), bid.ID)
	pipe.SAdd(ctx, freelancerBidsKey(bid.FreelancerID), bid.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *redisBidStore) Get(ctx context.Context, id string) (*model.Bid, error) {
	var bid model.Bid
	if err := getJSON(ctx, s.rdb, bidKey(id), &bid); err != nil {
		return nil, err
	}
	return &bid, nil
}

func (s *redisBidStore) Update(ctx context.Context, bid *model.Bid) error {
	return setJSON(ctx, s.rdb, bidKey(bid.ID), bid)
}

func (s *redisBidStore) ListByJob(ctx context.Context, jobID string) ([]*model.Bid, error) {
	return s.listFromSet(ctx, jobBidsKey(jobID))
}

func (s *redisBidStore) ListByFreelancer(ctx context.Context, freelancerID string) ([]*model.Bid, error) {
	return s.listFromSet(ctx, freelancerBidsKey(freelancerID))
}

func (s *redisBidStore) listFromSet(ctx context.Context, key string) ([]*model.Bid, error) {
	ids, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	bids := make([]*model.Bid, 0, len(ids))
	for _, id := range ids {
		bid, err := s.Get(ctx, id)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		bids = append(bids, bid)
	}
	sort.Slice(bids, func(i, j int) bool { return bids[i].CreatedAt.After(bids[j].CreatedAt) })
	return bids, nil
}

// --- jobs ---

type redisJobStore struct {
	rdb *redis.Client
}

func jobKey(id string) string { return fmt.Sprintf("job:%s", id) }

const openJobsKey = "jobs:open"

func (s *redisJobStore) Create(ctx context.Context, job *model.Job) error {
	if err := setJSON(ctx, s.rdb, jobKey(job.ID), job); err != nil {
		return err
	}
	if job.Status == model.JobStatusOpen {
		return s.rdb.SAdd(ctx, openJobsKey, job.ID).Err()
	}
	return nil
}

func (s *redisJobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	if err := getJSON(ctx, s.rdb, jobKey(id), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *redisJobStore) Update(ctx context.Context, job *model.Job) error {
	if err := setJSON(ctx, s.rdb, jobKey(job.ID), job); err != nil {
		return err
	}
	if job.Status != model.JobStatusOpen {
		return s.rdb.SRem(ctx, openJobsKey, job.ID).Err()
	}
	return nil
}

func (s *redisJobStore) ListOpen(ctx context.Context) ([]*model.Job, error) {
	ids, err := s.rdb.SMembers(ctx, openJobsKey).Result()
	if err != nil {
		return nil, err
	}
	jobs := make([]*model.Job, 0, len(ids))
	for _, id := range ids {
		job, err := s.Get(ctx, id)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		if job.Status == model.JobStatusOpen {
			jobs = append(jobs, job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	return jobs, nil
}

func (s *redisJobStore) CompareAndSetStatus(ctx context.Context, jobID string, from, to model.JobStatus, selectedBid string) error {
	key := jobKey(jobID)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return ErrNotFound
			}
			return err
		}
		var job model.Job
		if err := json.Unmarshal(data, &job); err != nil {
			return err
		}
		if job.Status != from {
			return ErrStateConflict
		}
		job.Status = to
		if selectedBid != "" {
			job.SelectedBid = selectedBid
		}
		job.UpdatedAt = time.Now()
		updated, err := json.Marshal(&job)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			if to != model.JobStatusOpen {
				pipe.SRem(ctx, openJobsKey, jobID)
			}
			return nil
		})
		return err
	}

	for i := 0; i < casRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err != redis.TxFailedErr {
			return err
		}
	}
	return ErrStateConflict
}

func (s *redisJobStore) IncrementProposals(ctx context.Context, jobID string) error {
	key := jobKey(jobID)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return ErrNotFound
			}
			return err
		}
		var job model.Job
		if err := json.Unmarshal(data, &job); err != nil {
			return err
		}
		job.Proposals++
		job.UpdatedAt = time.Now()
		updated, err := json.Marshal(&job)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}

	for i := 0; i < casRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err != redis.TxFailedErr {
			return err
		}
	}
	return ErrStateConflict
}

// --- contracts ---

type redisContractStore struct {
	rdb *redis.Client
}

func contractKey(id string) string { return fmt.Sprintf("contract:%s", id) }
func contractGuardKey(jobID, bidID string) string {
	return fmt.Sprintf("contract:job:%s:bid:%s", jobID, bidID)
}
func jobContractKey(jobID string) string { return fmt.Sprintf("contract:job:%s", jobID) }
func userContractsKey(userID string) string {
	return fmt.Sprintf("contracts:user:%s", userID)
}

func (s *redisContractStore) Create(ctx context.Context, contract *model.Contract) error {
	ok, err := s.rdb.SetNX(ctx, contractGuardKey(contract.JobID, contract.BidID), contract.ID, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicate
	}

	if err := setJSON(ctx, s.rdb, contractKey(contract.ID), contract); err != nil {
		return err
	}
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, jobContractKey(contract.JobID), contract.ID, 0)
	pipe.SAdd(ctx, userContractsKey(contract.ClientID), contract.ID)
	pipe.SAdd(ctx, userContractsKey(contract.FreelancerID), contract.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *redisContractStore) Get(ctx context.Context, id string) (*model.Contract, error) {
	var contract model.Contract
	if err := getJSON(ctx, s.rdb, contractKey(id), &contract); err != nil {
		return nil, err
	}
	return &contract, nil
}

func (s *redisContractStore) Update(ctx context.Context, contract *model.Contract) error {
	return setJSON(ctx, s.rdb, contractKey(contract.ID), contract)
}

func (s *redisContractStore) GetByJobBid(ctx context.Context, jobID, bidID string) (*model.Contract, error) {
	id, err := s.rdb.Get(ctx, contractGuardKey(jobID, bidID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *redisContractStore) GetByJob(ctx context.Context, jobID string) (*model.Contract, error) {
	id, err := s.rdb.Get(ctx, jobContractKey(jobID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *redisContractStore) ListByUser(ctx context.Context, userID string) ([]*model.Contract, error) {
	ids, err := s.rdb.SMembers(ctx, userContractsKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	contracts := make([]*model.Contract, 0, len(ids))
	for _, id := range ids {
		contract, err := s.Get(ctx, id)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		contracts = append(contracts, contract)
	}
	sort.Slice(contracts, func(i, j int) bool {
		return contracts[i].CreatedAt.After(contracts[j].CreatedAt)
	})
	return contracts, nil
}

// --- notifications ---

type redisNotificationStore struct {
	rdb *redis.Client
}

func notificationKey(id string) string { return fmt.Sprintf("notification:%s", id) }
func userNotificationsKey(userID string) string {
	return fmt.Sprintf("notifications:user:%s", userID)
}

func (s *redisNotificationStore) Create(ctx context.Context, n *model.Notification) error {
	if err := setJSON(ctx, s.rdb, notificationKey(n.ID), n); err != nil {
		return err
	}
	return s.rdb.LPush(ctx, userNotificationsKey(n.UserID), n.ID).Err()
}

func (s *redisNotificationStore) Get(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	if err := getJSON(ctx, s.rdb, notificationKey(id), &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *redisNotificationStore) Update(ctx context.Context, n *model.Notification) error {
	return setJSON(ctx, s.rdb, notificationKey(n.ID), n)
}

func (s *redisNotificationStore) ListByUser(ctx context.Context, userID string) ([]*model.Notification, error) {
	ids, err := s.rdb.LRange(ctx, userNotificationsKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	notifications := make([]*model.Notification, 0, len(ids))
	for _, id := range ids {
		n, err := s.Get(ctx, id)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}

// --- conversations ---

type redisConversationStore struct {
	rdb *redis.Client
}

func conversationKey(id string) string { return fmt.Sprintf("conversation:%s", id) }
func conversationGuardKey(jobID, bidID string) string {
	return fmt.Sprintf("conversation:job:%s:bid:%s", jobID, bidID)
}
func userConversationsKey(userID string) string {
	return fmt.Sprintf("conversations:user:%s", userID)
}
func conversationUnreadKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:unread", conversationID)
}

func (s *redisConversationStore) Create(ctx context.Context, c *model.Conversation) error {
	if err := setJSON(ctx, s.rdb, conversationKey(c.ID), c); err != nil {
		return err
	}
	for _, p := range c.Participants {
		if err := s.rdb.SAdd(ctx, userConversationsKey(p), c.ID).Err(); err != nil {
			return err
		}
	}
	if c.JobID != "" && c.BidID != "" {
		return s.rdb.Set(ctx, conversationGuardKey(c.JobID, c.BidID), c.ID, 0).Err()
	}
	return nil
}

func (s *redisConversationStore) Get(ctx context.Context, id string) (*model.Conversation, error) {
	var c model.Conversation
	if err := getJSON(ctx, s.rdb, conversationKey(id), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *redisConversationStore) Update(ctx context.Context, c *model.Conversation) error {
	return setJSON(ctx, s.rdb, conversationKey(c.ID), c)
}

func (s *redisConversationStore) GetByJobBid(ctx context.Context, jobID, bidID string) (*model.Conversation, error) {
	id, err := s.rdb.Get(ctx, conversationGuardKey(jobID, bidID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *redisConversationStore) ListByUser(ctx context.Context, userID string) ([]*model.Conversation, error) {
	ids, err := s.rdb.SMembers(ctx, userConversationsKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	conversations := make([]*model.Conversation, 0, len(ids))
	for _, id := range ids {
		c, err := s.Get(ctx, id)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		conversations = append(conversations, c)
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
	return conversations, nil
}

func (s *redisConversationStore) IncrementUnread(ctx context.Context, conversationID, userID string) error {
	return s.rdb.HIncrBy(ctx, conversationUnreadKey(conversationID), userID, 1).Err()
}

func (s *redisConversationStore) ResetUnread(ctx context.Context, conversationID, userID string) error {
	return s.rdb.HDel(ctx, conversationUnreadKey(conversationID), userID).Err()
}

func (s *redisConversationStore) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	n, err := s.rdb.HGet(ctx, conversationUnreadKey(conversationID), userID).Int()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// --- messages ---

type redisMessageStore struct {
	rdb *redis.Client
}

func messageKey(id string) string { return fmt.Sprintf("message:%s", id) }
func conversationMessagesKey(conversationID string) string {
	return fmt.Sprintf("messages:conversation:%s", conversationID)
}

func (s *redisMessageStore) Create(ctx context.Context, m *model.Message) error {
	if err := setJSON(ctx, s.rdb, messageKey(m.ID), m); err != nil {
		return err
	}
	return s.rdb.LPush(ctx, conversationMessagesKey(m.ConversationID), m.ID).Err()
}

func (s *redisMessageStore) Get(ctx context.Context, id string) (*model.Message, error) {
	var m model.Message
	if err := getJSON(ctx, s.rdb, messageKey(id), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *redisMessageStore) Update(ctx context.Context, m *model.Message) error {
	return setJSON(ctx, s.rdb, messageKey(m.ID), m)
}

func (s *redisMessageStore) ListByConversation(ctx context.Context, conversationID string) ([]*model.Message, error) {
	ids, err := s.rdb.LRange(ctx, conversationMessagesKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	messages := make([]*model.Message, 0, len(ids))
	for _, id := range ids {
		m, err := s.Get(ctx, id)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// --- webhook events ---

type redisEventStore struct {
	rdb *redis.Client
}

func webhookEventKey(eventID string) string {
	return fmt.Sprintf("webhook:event:%s", eventID)
}

func (s *redisEventStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, webhookEventKey(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisEventStore) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	return s.rdb.SetNX(ctx, webhookEventKey(eventID), 1, webhookEventTTL).Result()
}
