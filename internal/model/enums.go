package model

// Bid status
type BidStatus string

const (
	BidStatusPending   BidStatus = "pending"
	BidStatusAccepted  BidStatus = "accepted"
	BidStatusRejected  BidStatus = "rejected"
	BidStatusWithdrawn BidStatus = "withdrawn"
)

// Job status
type JobStatus string

const (
	JobStatusOpen       JobStatus = "open"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Contract status
type ContractStatus string

const (
	ContractStatusActive    ContractStatus = "active"
	ContractStatusCompleted ContractStatus = "completed"
	ContractStatusCancelled ContractStatus = "cancelled"
	ContractStatusDisputed  ContractStatus = "disputed"
)

// Payment status lives on the contract. Legal transitions:
// pending -> paid, pending -> failed, paid -> refunded.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Task status
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Milestone status
type MilestoneStatus string

const (
	MilestoneStatusPending  MilestoneStatus = "pending"
	MilestoneStatusApproved MilestoneStatus = "approved"
	MilestoneStatusPaid     MilestoneStatus = "paid"
)

// Message types
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeSystem MessageType = "system"
)

// Notification types
type NotificationType string

const (
	NotificationBidReceived       NotificationType = "bid_received"
	NotificationBidAccepted       NotificationType = "bid_accepted"
	NotificationBidRejected       NotificationType = "bid_rejected"
	NotificationMessage           NotificationType = "message"
	NotificationPayment           NotificationType = "payment"
	NotificationTaskUpdate        NotificationType = "task_update"
	NotificationMilestoneApproved NotificationType = "milestone_approved"
	NotificationContractCompleted NotificationType = "contract_completed"
	NotificationSystem            NotificationType = "system"
)

// User roles carried by the authenticated principal
const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
)
