package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/gigbridge/api/internal/model"
	"github.com/gigbridge/api/internal/store"
)

// ContractService materializes contracts from accepted bids and tracks the
// work recorded against them.
type ContractService struct {
	contracts     store.ContractStore
	conversations store.ConversationStore
	bids          store.BidStore
	jobs          store.JobStore
	notifications *NotificationService
}

func NewContractService(stores *store.Stores, notifications *NotificationService) *ContractService {
	return &ContractService{
		contracts:     stores.Contracts,
		conversations: stores.Conversations,
		bids:          stores.Bids,
		jobs:          stores.Jobs,
		notifications: notifications,
	}
}

// CreateContract is the API entry point. Unlike EnsureContract it treats an
// existing contract for the pair as a conflict, and it requires the bid to
// be accepted already.
func (s *ContractService) CreateContract(ctx context.Context, actorID string, req *model.CreateContractRequest) (*model.Contract, error) {
	bid, err := s.bids.Get(ctx, req.BidID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrBidNotFound
		}
		return nil, err
	}
	if bid.JobID != req.JobID {
		return nil, ErrBidNotFound
	}
	if bid.Status != model.BidStatusAccepted {
		return nil, ErrBidNotPending
	}

	job, err := s.jobs.Get(ctx, req.JobID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	if job.ClientID != actorID {
		return nil, ErrAccessDenied
	}

	if _, err := s.contracts.GetByJobBid(ctx, job.ID, bid.ID); err == nil {
		return nil, ErrContractExists
	} else if err != store.ErrNotFound {
		return nil, err
	}

	return s.materialize(ctx, job, bid)
}

// EnsureContract is the idempotent factory used by the acceptance sequence.
// If a contract for the (job, bid) pair already exists it is returned as is.
func (s *ContractService) EnsureContract(ctx context.Context, job *model.Job, bid *model.Bid) (*model.Contract, error) {
	existing, err := s.contracts.GetByJobBid(ctx, job.ID, bid.ID)
	if err == nil {
		return existing, nil
	}
	if err != store.ErrNotFound {
		return nil, err
	}
	return s.materialize(ctx, job, bid)
}

// materialize creates the conversation and contract for the pair. The
// conversation is created (or found) first, then the contract, then the
// back-link; every step can be re-entered after a partial failure.
func (s *ContractService) materialize(ctx context.Context, job *model.Job, bid *model.Bid) (*model.Contract, error) {
	conv, err := s.conversations.GetByJobBid(ctx, job.ID, bid.ID)
	if err == store.ErrNotFound {
		now := time.Now()
		conv = &model.Conversation{
			ID:           uuid.New().String(),
			Participants: []string{job.ClientID, bid.FreelancerID},
			JobID:        job.ID,
			BidID:        bid.ID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.conversations.Create(ctx, conv); err != nil {
			return nil, fmt.Errorf("failed to create conversation: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	now := time.Now()
	contract := &model.Contract{
		ID:             uuid.New().String(),
		JobID:          job.ID,
		BidID:          bid.ID,
		ClientID:       job.ClientID,
		FreelancerID:   bid.FreelancerID,
		Amount:         bid.Amount,
		Status:         model.ContractStatusActive,
		PaymentStatus:  model.PaymentStatusPending,
		Tasks:          []model.Task{},
		Milestones:     []model.Milestone{},
		ConversationID: conv.ID,
		StartDate:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.contracts.Create(ctx, contract); err != nil {
		if err == store.ErrDuplicate {
			// Lost a race with another materialization for the pair.
			return s.contracts.GetByJobBid(ctx, job.ID, bid.ID)
		}
		return nil, fmt.Errorf("failed to create contract: %w", err)
	}

	if conv.ContractID != contract.ID {
		conv.ContractID = contract.ID
		if err := s.conversations.Update(ctx, conv); err != nil {
			log.Printf("Failed to link conversation %s to contract %s: %v", conv.ID, contract.ID, err)
		}
	}

	return contract, nil
}

// GetContract returns a contract visible only to its parties
func (s *ContractService) GetContract(ctx context.Context, contractID, actorID string) (*model.Contract, error) {
	return s.getPartyContract(ctx, contractID, actorID)
}

// GetContractByJob finds the job's contract. Party access only.
func (s *ContractService) GetContractByJob(ctx context.Context, jobID, actorID string) (*model.Contract, error) {
	contract, err := s.contracts.GetByJob(ctx, jobID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	if !contract.IsParty(actorID) {
		return nil, ErrAccessDenied
	}
	return contract, nil
}

// ListUserContracts returns a page of contracts where the user is a party
func (s *ContractService) ListUserContracts(ctx context.Context, userID string, status model.ContractStatus, page, limit int) (*model.ContractListResponse, error) {
	all, err := s.contracts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	filtered := all
	if status != "" {
		filtered = filtered[:0:0]
		for _, c := range all {
			if c.Status == status {
				filtered = append(filtered, c)
			}
		}
	}

	paged, pagination := paginate(filtered, page, limit)
	return &model.ContractListResponse{Contracts: paged, Pagination: pagination}, nil
}

// CompleteContract closes out an active contract and its job. Client only.
func (s *ContractService) CompleteContract(ctx context.Context, contractID, actorID string) (*model.Contract, error) {
	contract, err := s.getPartyContract(ctx, contractID, actorID)
	if err != nil {
		return nil, err
	}

	if contract.ClientID != actorID {
		return nil, ErrAccessDenied
	}
	if contract.Status != model.ContractStatusActive {
		return nil, ErrContractNotActive
	}

	now := time.Now()
	contract.Status = model.ContractStatusCompleted
	contract.EndDate = &now
	contract.UpdatedAt = now
	if err := s.contracts.Update(ctx, contract); err != nil {
		return nil, err
	}

	err = s.jobs.CompareAndSetStatus(ctx, contract.JobID, model.JobStatusInProgress, model.JobStatusCompleted, "")
	if err != nil && err != store.ErrStateConflict {
		log.Printf("Failed to complete job %s for contract %s: %v", contract.JobID, contract.ID, err)
	}

	s.notify(ctx, contract.FreelancerID, model.NotificationContractCompleted,
		"Contract Completed",
		"Your contract has been marked as completed",
		map[string]interface{}{
			"contractId": contract.ID,
			"jobId":      contract.JobID,
		},
		fmt.Sprintf("/contract/%s", contract.JobID),
	)

	return contract, nil
}

// AddTask appends a task to an active contract. Either party may add.
func (s *ContractService) AddTask(ctx context.Context, contractID, actorID string, req *model.AddTaskRequest) (*model.Contract, error) {
	contract, err := s.getPartyContract(ctx, contractID, actorID)
	if err != nil {
		return nil, err
	}
	if contract.Status != model.ContractStatusActive {
		return nil, ErrContractNotActive
	}

	assignee := req.AssignedTo
	if assignee == "" {
		assignee = contract.FreelancerID
	}

	task := model.Task{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Status:      model.TaskStatusTodo,
		AssignedTo:  assignee,
		DueDate:     req.DueDate,
		CreatedAt:   time.Now(),
	}
	contract.Tasks = append(contract.Tasks, task)
	contract.UpdatedAt = time.Now()

	if err := s.contracts.Update(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

// UpdateTaskStatus moves a task through todo / in_progress / completed and
// tells the other party about the change.
func (s *ContractService) UpdateTaskStatus(ctx context.Context, contractID, taskID, actorID string, status model.TaskStatus) (*model.Contract, error) {
	contract, err := s.getPartyContract(ctx, contractID, actorID)
	if err != nil {
		return nil, err
	}
	if contract.Status != model.ContractStatusActive {
		return nil, ErrContractNotActive
	}

	task := contract.TaskByID(taskID)
	if task == nil {
		return nil, ErrTaskNotFound
	}

	task.Status = status
	if status == model.TaskStatusCompleted {
		now := time.Now()
		task.CompletedAt = &now
	} else {
		task.CompletedAt = nil
	}
	contract.UpdatedAt = time.Now()

	if err := s.contracts.Update(ctx, contract); err != nil {
		return nil, err
	}

	s.notify(ctx, contract.OtherParty(actorID), model.NotificationTaskUpdate,
		"Task Updated",
		fmt.Sprintf("Task %q is now %s", task.Title, status),
		map[string]interface{}{
			"contractId": contract.ID,
			"taskId":     task.ID,
			"status":     string(status),
		},
		fmt.Sprintf("/contract/%s", contract.JobID),
	)

	return contract, nil
}

// AddMilestone appends a pending milestone to an active contract
func (s *ContractService) AddMilestone(ctx context.Context, contractID, actorID string, req *model.AddMilestoneRequest) (*model.Contract, error) {
	contract, err := s.getPartyContract(ctx, contractID, actorID)
	if err != nil {
		return nil, err
	}
	if contract.Status != model.ContractStatusActive {
		return nil, ErrContractNotActive
	}

	milestone := model.Milestone{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.Amount,
		Status:      model.MilestoneStatusPending,
		DueDate:     req.DueDate,
		CreatedAt:   time.Now(),
	}
	contract.Milestones = append(contract.Milestones, milestone)
	contract.UpdatedAt = time.Now()

	if err := s.contracts.Update(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

// ApproveMilestone moves a pending milestone to approved. Client only;
// approval is a work sign-off and does not touch the contract's payment
// status.
func (s *ContractService) ApproveMilestone(ctx context.Context, contractID, milestoneID, actorID string) (*model.Contract, error) {
	contract, err := s.getPartyContract(ctx, contractID, actorID)
	if err != nil {
		return nil, err
	}

	if contract.ClientID != actorID {
		return nil, ErrAccessDenied
	}
	if contract.Status != model.ContractStatusActive {
		return nil, ErrContractNotActive
	}

	milestone := contract.MilestoneByID(milestoneID)
	if milestone == nil {
		return nil, ErrMilestoneNotFound
	}
	if milestone.Status != model.MilestoneStatusPending {
		return nil, ErrMilestoneNotPending
	}

	now := time.Now()
	milestone.Status = model.MilestoneStatusApproved
	milestone.ApprovedAt = &now
	contract.UpdatedAt = now

	if err := s.contracts.Update(ctx, contract); err != nil {
		return nil, err
	}

	s.notify(ctx, contract.FreelancerID, model.NotificationMilestoneApproved,
		"Milestone Approved",
		fmt.Sprintf("Milestone %q has been approved", milestone.Title),
		map[string]interface{}{
			"contractId":  contract.ID,
			"milestoneId": milestone.ID,
		},
		fmt.Sprintf("/contract/%s", contract.JobID),
	)

	return contract, nil
}

func (s *ContractService) getPartyContract(ctx context.Context, contractID, actorID string) (*model.Contract, error) {
	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	if !contract.IsParty(actorID) {
		return nil, ErrAccessDenied
	}
	return contract, nil
}

func (s *ContractService) notify(ctx context.Context, userID string, typ model.NotificationType, title, message string, data map[string]interface{}, actionURL string) {
	if _, err := s.notifications.Notify(ctx, userID, typ, title, message, data, actionURL); err != nil {
		log.Printf("Failed to create %s notification for user %s: %v", typ, userID, err)
	}
}
