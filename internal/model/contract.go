package model

import "time"

// Contract is the agreement instantiated when a bid is accepted. It owns
// its tasks, milestones and payment state. Exactly one contract exists per
// (jobId, bidId) pair.
type Contract struct {
	ID                string         `json:"id"`
	JobID             string         `json:"jobId"`
	BidID             string         `json:"bidId"`
	ClientID          string         `json:"clientId"`
	FreelancerID      string         `json:"freelancerId"`
	Amount            float64        `json:"amount"`
	Status            ContractStatus `json:"status"`
	PaymentStatus     PaymentStatus  `json:"paymentStatus"`
	PaymentIntentID   string         `json:"paymentIntentId,omitempty"`
	CheckoutSessionID string         `json:"checkoutSessionId,omitempty"`
	Tasks             []Task         `json:"tasks"`
	Milestones        []Milestone    `json:"milestones"`
	ConversationID    string         `json:"conversationId"`
	StartDate         time.Time      `json:"startDate"`
	EndDate           *time.Time     `json:"endDate,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// Task is a unit of work tracked within a contract, independent of payment.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	AssignedTo  string     `json:"assignedTo"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Milestone is a client-approved, payable checkpoint within a contract.
type Milestone struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Amount      float64         `json:"amount"`
	Status      MilestoneStatus `json:"status"`
	DueDate     *time.Time      `json:"dueDate,omitempty"`
	ApprovedAt  *time.Time      `json:"approvedAt,omitempty"`
	PaidAt      *time.Time      `json:"paidAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// TaskByID returns the task with the given id, or nil
func (c *Contract) TaskByID(taskID string) *Task {
	for i := range c.Tasks {
		if c.Tasks[i].ID == taskID {
			return &c.Tasks[i]
		}
	}
	return nil
}

// MilestoneByID returns the milestone with the given id, or nil
func (c *Contract) MilestoneByID(milestoneID string) *Milestone {
	for i := range c.Milestones {
		if c.Milestones[i].ID == milestoneID {
			return &c.Milestones[i]
		}
	}
	return nil
}

// IsParty reports whether the given user is the client or the freelancer
func (c *Contract) IsParty(userID string) bool {
	return c.ClientID == userID || c.FreelancerID == userID
}

// OtherParty returns the counterpart of the given contract party
func (c *Contract) OtherParty(userID string) string {
	if c.ClientID == userID {
		return c.FreelancerID
	}
	return c.ClientID
}

// CreateContractRequest is the payload for POST /api/contracts
type CreateContractRequest struct {
	JobID string `json:"jobId" validate:"required"`
	BidID string `json:"bidId" validate:"required"`
}

// AddTaskRequest is the payload for POST /api/contracts/:contractId/tasks
type AddTaskRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	AssignedTo  string     `json:"assignedTo"`
	DueDate     *time.Time `json:"dueDate"`
}

// UpdateTaskStatusRequest is the payload for PUT .../tasks/:taskId
type UpdateTaskStatusRequest struct {
	Status TaskStatus `json:"status" validate:"required,oneof=todo in_progress completed"`
}

// AddMilestoneRequest is the payload for POST .../milestones
type AddMilestoneRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Amount      float64    `json:"amount" validate:"required,gte=0"`
	DueDate     *time.Time `json:"dueDate"`
}

// ContractListResponse wraps a paginated contract listing
type ContractListResponse struct {
	Contracts  []*Contract `json:"contracts"`
	Pagination Pagination  `json:"pagination"`
}

// PaymentIntentResponse is returned after a successful gateway intent call
type PaymentIntentResponse struct {
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
}

// PaymentStats summarizes a user's payment totals by role
type PaymentStats struct {
	Role            string  `json:"role"`
	TotalPaid       float64 `json:"totalPaid,omitempty"`
	PendingPayments int     `json:"pendingPayments,omitempty"`
	TotalEarned     float64 `json:"totalEarned,omitempty"`
	PendingEarnings float64 `json:"pendingEarnings,omitempty"`
}
