package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gigbridge/api/internal/model"
)

// memoryStores is a mutex-guarded in-memory implementation of every store.
// It backs unit tests and local development without Redis.
type memoryStores struct {
	mu sync.Mutex

	bids          map[string]*model.Bid
	bidGuards     map[string]string // jobID+"/"+freelancerID -> bidID
	jobs          map[string]*model.Job
	contracts     map[string]*model.Contract
	contractGuard map[string]string // jobID+"/"+bidID -> contractID
	notifications map[string]*model.Notification
	notifOrder    map[string][]string // userID -> notification ids, newest first
	conversations map[string]*model.Conversation
	convGuards    map[string]string // jobID+"/"+bidID -> conversationID
	convUnread    map[string]map[string]int
	messages      map[string]*model.Message
	msgOrder      map[string][]string // conversationID -> message ids, newest first
	events        map[string]bool
}

// NewMemoryStores returns Stores backed by process memory.
func NewMemoryStores() *Stores {
	m := &memoryStores{
		bids:          make(map[string]*model.Bid),
		bidGuards:     make(map[string]string),
		jobs:          make(map[string]*model.Job),
		contracts:     make(map[string]*model.Contract),
		contractGuard: make(map[string]string),
		notifications: make(map[string]*model.Notification),
		notifOrder:    make(map[string][]string),
		conversations: make(map[string]*model.Conversation),
		convGuards:    make(map[string]string),
		convUnread:    make(map[string]map[string]int),
		messages:      make(map[string]*model.Message),
		msgOrder:      make(map[string][]string),
		events:        make(map[string]bool),
	}
	return &Stores{
		Bids:          (*memoryBidStore)(m),
		Jobs:          (*memoryJobStore)(m),
		Contracts:     (*memoryContractStore)(m),
		Notifications: (*memoryNotificationStore)(m),
		Conversations: (*memoryConversationStore)(m),
		Messages:      (*memoryMessageStore)(m),
		Events:        (*memoryEventStore)(m),
	}
}

func pairKey(a, b string) string { return a + "/" + b }

type memoryBidStore memoryStores

func (s *memoryBidStore) Create(_ context.Context, bid *model.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	guard := pairKey(bid.JobID, bid.FreelancerID)
	if _, exists := s.bidGuards[guard]; exists {
		return ErrDuplicate
	}
	s.bidGuards[guard] = bid.ID
	copied := *bid
	s.bids[bid.ID] = &copied
	return nil
}

func (s *memoryBidStore) Get(_ context.Context, id string) (*model.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bid, ok := s.bids[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *bid
	return &copied, nil
}

func (s *memoryBidStore) Update(_ context.Context, bid *model.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bids[bid.ID]; !ok {
		return ErrNotFound
	}
	copied := *bid
	s.bids[bid.ID] = &copied
	return nil
}

func (s *memoryBidStore) ListByJob(_ context.Context, jobID string) ([]*model.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var bids []*model.Bid
	for _, b := range s.bids {
		if b.JobID == jobID {
			copied := *b
			bids = append(bids, &copied)
		}
	}
	sort.Slice(bids, func(i, j int) bool { return bids[i].CreatedAt.After(bids[j].CreatedAt) })
	return bids, nil
}

func (s *memoryBidStore) ListByFreelancer(_ context.Context, freelancerID string) ([]*model.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var bids []*model.Bid
	for _, b := range s.bids {
		if b.FreelancerID == freelancerID {
			copied := *b
			bids = append(bids, &copied)
		}
	}
	sort.Slice(bids, func(i, j int) bool { return bids[i].CreatedAt.After(bids[j].CreatedAt) })
	return bids, nil
}

type memoryJobStore memoryStores

func (s *memoryJobStore) Create(_ context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *memoryJobStore) Get(_ context.Context, id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *memoryJobStore) Update(_ context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return ErrNotFound
	}
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *memoryJobStore) ListOpen(_ context.Context) ([]*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var jobs []*model.Job
	for _, j := range s.jobs {
		if j.Status == model.JobStatusOpen {
			copied := *j
			jobs = append(jobs, &copied)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	return jobs, nil
}

func (s *memoryJobStore) CompareAndSetStatus(_ context.Context, jobID string, from, to model.JobStatus, selectedBid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Status != from {
		return ErrStateConflict
	}
	job.Status = to
	if selectedBid != "" {
		job.SelectedBid = selectedBid
	}
	job.UpdatedAt = time.Now()
	return nil
}

func (s *memoryJobStore) IncrementProposals(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	job.Proposals++
	job.UpdatedAt = time.Now()
	return nil
}

type memoryContractStore memoryStores

func (s *memoryContractStore) Create(_ context.Context, contract *model.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	guard := pairKey(contract.JobID, contract.BidID)
	if _, exists := s.contractGuard[guard]; exists {
		return ErrDuplicate
	}
	s.contractGuard[guard] = contract.ID
	copied := cloneContract(contract)
	s.contracts[contract.ID] = copied
	return nil
}

func (s *memoryContractStore) Get(_ context.Context, id string) (*model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contract, ok := s.contracts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneContract(contract), nil
}

func (s *memoryContractStore) Update(_ context.Context, contract *model.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contracts[contract.ID]; !ok {
		return ErrNotFound
	}
	s.contracts[contract.ID] = cloneContract(contract)
	return nil
}

func (s *memoryContractStore) GetByJobBid(_ context.Context, jobID, bidID string) (*model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.contractGuard[pairKey(jobID, bidID)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneContract(s.contracts[id]), nil
}

func (s *memoryContractStore) GetByJob(_ context.Context, jobID string) (*model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.contracts {
		if c.JobID == jobID {
			return cloneContract(c), nil
		}
	}
	return nil, ErrNotFound
}

func (s *memoryContractStore) ListByUser(_ context.Context, userID string) ([]*model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var contracts []*model.Contract
	for _, c := range s.contracts {
		if c.ClientID == userID || c.FreelancerID == userID {
			contracts = append(contracts, cloneContract(c))
		}
	}
	sort.Slice(contracts, func(i, j int) bool {
		return contracts[i].CreatedAt.After(contracts[j].CreatedAt)
	})
	return contracts, nil
}

func cloneContract(c *model.Contract) *model.Contract {
	copied := *c
	copied.Tasks = append([]model.Task(nil), c.Tasks...)
	copied.Milestones = append([]model.Milestone(nil), c.Milestones...)
	return &copied
}

type memoryNotificationStore memoryStores

func (s *memoryNotificationStore) Create(_ context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *n
	s.notifications[n.ID] = &copied
	s.notifOrder[n.UserID] = append([]string{n.ID}, s.notifOrder[n.UserID]...)
	return nil
}

func (s *memoryNotificationStore) Get(_ context.Context, id string) (*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *n
	return &copied, nil
}

func (s *memoryNotificationStore) Update(_ context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[n.ID]; !ok {
		return ErrNotFound
	}
	copied := *n
	s.notifications[n.ID] = &copied
	return nil
}

func (s *memoryNotificationStore) ListByUser(_ context.Context, userID string) ([]*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.notifOrder[userID]
	notifications := make([]*model.Notification, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.notifications[id]; ok {
			copied := *n
			notifications = append(notifications, &copied)
		}
	}
	return notifications, nil
}

type memoryConversationStore memoryStores

func (s *memoryConversationStore) Create(_ context.Context, c *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *c
	copied.Participants = append([]string(nil), c.Participants...)
	s.conversations[c.ID] = &copied
	if c.JobID != "" && c.BidID != "" {
		s.convGuards[pairKey(c.JobID, c.BidID)] = c.ID
	}
	return nil
}

func (s *memoryConversationStore) Get(_ context.Context, id string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *c
	copied.Participants = append([]string(nil), c.Participants...)
	return &copied, nil
}

func (s *memoryConversationStore) Update(_ context.Context, c *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[c.ID]; !ok {
		return ErrNotFound
	}
	copied := *c
	copied.Participants = append([]string(nil), c.Participants...)
	s.conversations[c.ID] = &copied
	return nil
}

func (s *memoryConversationStore) GetByJobBid(_ context.Context, jobID, bidID string) (*model.Conversation, error) {
	s.mu.Lock()
	id, ok := s.convGuards[pairKey(jobID, bidID)]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.Get(context.Background(), id)
}

func (s *memoryConversationStore) ListByUser(_ context.Context, userID string) ([]*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var conversations []*model.Conversation
	for _, c := range s.conversations {
		if !c.HasParticipant(userID) {
			continue
		}
		copied := *c
		copied.Participants = append([]string(nil), c.Participants...)
		conversations = append(conversations, &copied)
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
	return conversations, nil
}

func (s *memoryConversationStore) IncrementUnread(_ context.Context, conversationID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts, ok := s.convUnread[conversationID]
	if !ok {
		counts = make(map[string]int)
		s.convUnread[conversationID] = counts
	}
	counts[userID]++
	return nil
}

func (s *memoryConversationStore) ResetUnread(_ context.Context, conversationID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if counts, ok := s.convUnread[conversationID]; ok {
		delete(counts, userID)
	}
	return nil
}

func (s *memoryConversationStore) UnreadCount(_ context.Context, conversationID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.convUnread[conversationID][userID], nil
}

type memoryMessageStore memoryStores

func (s *memoryMessageStore) Create(_ context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *m
	s.messages[m.ID] = &copied
	s.msgOrder[m.ConversationID] = append([]string{m.ID}, s.msgOrder[m.ConversationID]...)
	return nil
}

func (s *memoryMessageStore) Get(_ context.Context, id string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (s *memoryMessageStore) Update(_ context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[m.ID]; !ok {
		return ErrNotFound
	}
	copied := *m
	s.messages[m.ID] = &copied
	return nil
}

func (s *memoryMessageStore) ListByConversation(_ context.Context, conversationID string) ([]*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.msgOrder[conversationID]
	messages := make([]*model.Message, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.messages[id]; ok {
			copied := *m
			messages = append(messages, &copied)
		}
	}
	return messages, nil
}

type memoryEventStore memoryStores

func (s *memoryEventStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[eventID], nil
}

func (s *memoryEventStore) MarkProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events[eventID] {
		return false, nil
	}
	s.events[eventID] = true
	return true, nil
}
