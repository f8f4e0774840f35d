package store

import (
	"context"
	"errors"

	"github.com/gigbridge/api/internal/model"
)

// Sentinel errors shared by all store implementations. Services translate
// these into their own error vocabulary.
var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicate     = errors.New("record already exists")
	ErrStateConflict = errors.New("concurrent state change")
)

// BidStore persists bids and enforces the one-bid-per-(job,freelancer) rule.
type BidStore interface {
	// Create stores a new bid. Returns ErrDuplicate if the freelancer
	// already has a bid on the job.
	Create(ctx context.Context, bid *model.Bid) error
	Get(ctx context.Context, id string) (*model.Bid, error)
	Update(ctx context.Context, bid *model.Bid) error
	ListByJob(ctx context.Context, jobID string) ([]*model.Bid, error)
	ListByFreelancer(ctx context.Context, freelancerID string) ([]*model.Bid, error)
}

// JobStore gives the lifecycle core its view of jobs. Job ownership lives
// with the client-facing API; this core reads jobs and coordinates status.
type JobStore interface {
	Create(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, id string) (*model.Job, error)
	Update(ctx context.Context, job *model.Job) error
	ListOpen(ctx context.Context) ([]*model.Job, error)

	// CompareAndSetStatus transitions the job from one status to another
	// at write time, optionally recording the selected bid. Returns
	// ErrStateConflict when the job is not in the expected status or a
	// concurrent writer got there first.
	CompareAndSetStatus(ctx context.Context, jobID string, from, to model.JobStatus, selectedBid string) error
	IncrementProposals(ctx context.Context, jobID string) error
}

// ContractStore persists contracts and enforces the one-contract-per-(job,bid) rule.
type ContractStore interface {
	// Create stores a new contract. Returns ErrDuplicate if a contract
	// for the same (jobId, bidId) pair already exists.
	Create(ctx context.Context, contract *model.Contract) error
	Get(ctx context.Context, id string) (*model.Contract, error)
	Update(ctx context.Context, contract *model.Contract) error
	GetByJobBid(ctx context.Context, jobID, bidID string) (*model.Contract, error)
	GetByJob(ctx context.Context, jobID string) (*model.Contract, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Contract, error)
}

// NotificationStore persists notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	Get(ctx context.Context, id string) (*model.Notification, error)
	Update(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID string) ([]*model.Notification, error)
}

// ConversationStore persists conversations.
type ConversationStore interface {
	Create(ctx context.Context, c *model.Conversation) error
	Get(ctx context.Context, id string) (*model.Conversation, error)
	Update(ctx context.Context, c *model.Conversation) error

	// GetByJobBid finds the conversation created for a (jobId, bidId)
	// pair, linked to a contract or not. The contract factory uses this
	// to resume after a partial failure instead of orphaning records.
	GetByJobBid(ctx context.Context, jobID, bidID string) (*model.Conversation, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Conversation, error)

	// Per-participant unread counters. Incremented on every message a
	// participant did not send, reset when they read the history.
	IncrementUnread(ctx context.Context, conversationID, userID string) error
	ResetUnread(ctx context.Context, conversationID, userID string) error
	UnreadCount(ctx context.Context, conversationID, userID string) (int, error)
}

// MessageStore persists conversation messages.
type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error
	Get(ctx context.Context, id string) (*model.Message, error)
	Update(ctx context.Context, m *model.Message) error
	// ListByConversation returns the conversation's messages newest first.
	ListByConversation(ctx context.Context, conversationID string) ([]*model.Message, error)
}

// EventStore tracks processed webhook event ids so gateway redelivery is a
// no-op after the first successful processing.
type EventStore interface {
	// IsProcessed reports whether the event id has been recorded.
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	// MarkProcessed records the event id. Returns true if this is the
	// first time the id has been seen.
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
}

// Stores bundles every store the services need, mirroring how repositories
// are grouped for injection.
type Stores struct {
	Bids          BidStore
	Jobs          JobStore
	Contracts     ContractStore
	Notifications NotificationStore
	Conversations ConversationStore
	Messages      MessageStore
	Events        EventStore
}
