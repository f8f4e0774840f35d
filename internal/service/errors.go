package service

import "errors"

// Service-level sentinel errors. Handlers map these onto the HTTP error
// envelope; the grouping mirrors the failure taxonomy of the lifecycle
// core: not-found, authorization, conflict, invalid-state, external.
var (
	ErrJobNotFound          = errors.New("job not found")
	ErrBidNotFound          = errors.New("bid not found")
	ErrContractNotFound     = errors.New("contract not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrMilestoneNotFound    = errors.New("milestone not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")

	ErrAccessDenied = errors.New("access denied")

	ErrDuplicateBid   = errors.New("a bid for this job already exists")
	ErrContractExists = errors.New("contract already exists")

	ErrJobNotOpen          = errors.New("job is no longer accepting bids")
	ErrBidNotPending       = errors.New("bid is no longer pending")
	ErrMilestoneNotPending = errors.New("milestone is no longer pending")
	ErrAlreadyPaid         = errors.New("contract already paid")
	ErrContractNotActive   = errors.New("contract is not active")

	ErrEmptyMessage = errors.New("message content is required")

	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrInvalidSignature   = errors.New("webhook signature verification failed")
)
