package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gigbridge/api/internal/client"
	"github.com/gigbridge/api/internal/model"
	"github.com/gigbridge/api/internal/store"
)

// proposalFallback is returned when the AI collaborator is unreachable or
// misconfigured. Callers get usable text, never a technical error.
const proposalFallback = "Couldn't connect to the AI service. Please try again later or write your proposal manually."

const proposalSystemPrompt = `You are an expert freelancer proposal writer with years of experience helping freelancers win projects. Your goal is to create compelling, professional proposals that stand out and win jobs.

Guidelines for writing winning proposals:
- Be professional but personable and approachable
- Highlight relevant skills and experience that match the job requirements
- Address the client's specific needs and pain points
- Keep it concise but comprehensive (150-300 words)
- Show understanding of the project scope
- Include a clear call to action

The proposal should demonstrate expertise, reliability, and enthusiasm for the project.`

// BidService owns bid creation and state transitions. It also coordinates
// the job status changes that follow a bid acceptance, since the two must
// stay consistent without a shared storage transaction.
type BidService struct {
	bids          store.BidStore
	jobs          store.JobStore
	contracts     *ContractService
	notifications *NotificationService
	ai            *client.OpenAIClient
	storage       client.StorageClient
}

func NewBidService(stores *store.Stores, contracts *ContractService, notifications *NotificationService, ai *client.OpenAIClient, storage client.StorageClient) *BidService {
	return &BidService{
		bids:          stores.Bids,
		jobs:          stores.Jobs,
		contracts:     contracts,
		notifications: notifications,
		ai:            ai,
		storage:       storage,
	}
}

// SubmitBid creates a pending bid for an open job. A freelancer gets one
// bid per job.
func (s *BidService) SubmitBid(ctx context.Context, freelancerID string, req *model.SubmitBidRequest) (*model.Bid, error) {
	job, err := s.jobs.Get(ctx, req.JobID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	if job.Status != model.JobStatusOpen {
		return nil, ErrJobNotOpen
	}

	now := time.Now()
	bid := &model.Bid{
		ID:               uuid.New().String(),
		JobID:            req.JobID,
		FreelancerID:     freelancerID,
		Amount:           req.Amount,
		Proposal:         req.Proposal,
		TimelineDays:     req.TimelineDays,
		Status:           model.BidStatusPending,
		AIGenerated:      req.AIGenerated,
		OriginalProposal: req.OriginalProposal,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.bids.Create(ctx, bid); err != nil {
		if err == store.ErrDuplicate {
			return nil, ErrDuplicateBid
		}
		return nil, err
	}

	if err := s.jobs.IncrementProposals(ctx, job.ID); err != nil {
		log.Printf("Failed to increment proposal count for job %s: %v", job.ID, err)
	}

	s.notify(ctx, job.ClientID, model.NotificationBidReceived,
		"New Bid Received",
		fmt.Sprintf("A new bid of $%.2f was submitted for %q", bid.Amount, job.Title),
		map[string]interface{}{
			"jobId":        job.ID,
			"bidId":        bid.ID,
			"freelancerId": freelancerID,
		},
		fmt.Sprintf("/job/%s/bids", job.ID),
	)

	return bid, nil
}

// AcceptBid runs the acceptance sequence: bid to accepted, job to
// in_progress via compare-and-set, sibling bids to rejected, contract and
// conversation materialized, parties notified. Each step checks whether it
// already happened, so a retry after partial failure converges instead of
// duplicating records.
func (s *BidService) AcceptBid(ctx context.Context, bidID, actorID string) (*model.Bid, error) {
	bid, err := s.bids.Get(ctx, bidID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrBidNotFound
		}
		return nil, err
	}

	job, err := s.jobs.Get(ctx, bid.JobID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	if job.ClientID != actorID {
		return nil, ErrAccessDenied
	}

	switch bid.Status {
	case model.BidStatusPending:
	case model.BidStatusAccepted:
		// A retried acceptance; allowed only when the job records this
		// bid as the winner.
		if job.SelectedBid != bid.ID {
			return nil, ErrBidNotPending
		}
	default:
		return nil, ErrBidNotPending
	}

	// The CAS on job status is the serialization point: of two
	// concurrent acceptances only one can move the job out of open.
	err = s.jobs.CompareAndSetStatus(ctx, job.ID, model.JobStatusOpen, model.JobStatusInProgress, bid.ID)
	switch err {
	case nil:
	case store.ErrStateConflict:
		fresh, ferr := s.jobs.Get(ctx, job.ID)
		if ferr != nil || fresh.SelectedBid != bid.ID || fresh.Status != model.JobStatusInProgress {
			return nil, ErrJobNotOpen
		}
		// Resuming a partially applied acceptance for this same bid.
	case store.ErrNotFound:
		return nil, ErrJobNotFound
	default:
		return nil, err
	}

	if bid.Status != model.BidStatusAccepted {
		bid.Status = model.BidStatusAccepted
		bid.UpdatedAt = time.Now()
		if err := s.bids.Update(ctx, bid); err != nil {
			return nil, err
		}
	}

	if err := s.rejectSiblings(ctx, job, bid.ID); err != nil {
		return nil, err
	}

	if _, err := s.contracts.EnsureContract(ctx, job, bid); err != nil {
		return nil, err
	}

	s.notifications.NotifyOnce(ctx, bid.FreelancerID, model.NotificationBidAccepted,
		"Bid Accepted!",
		fmt.Sprintf("Your bid for %q has been accepted", job.Title),
		map[string]interface{}{
			"jobId":    job.ID,
			"bidId":    bid.ID,
			"clientId": actorID,
		},
		fmt.Sprintf("/contract/%s", job.ID),
	)

	return bid, nil
}

// rejectSiblings transitions every other pending bid on the job to
// rejected and notifies its freelancer. Already-rejected bids are skipped
// so a retried acceptance does not notify twice.
func (s *BidService) rejectSiblings(ctx context.Context, job *model.Job, acceptedBidID string) error {
	siblings, err := s.bids.ListByJob(ctx, job.ID)
	if err != nil {
		return err
	}

	for _, sibling := range siblings {
		if sibling.ID == acceptedBidID || sibling.Status != model.BidStatusPending {
			continue
		}
		sibling.Status = model.BidStatusRejected
		sibling.UpdatedAt = time.Now()
		if err := s.bids.Update(ctx, sibling); err != nil {
			return err
		}
		s.notify(ctx, sibling.FreelancerID, model.NotificationBidRejected,
			"Bid Not Selected",
			fmt.Sprintf("Your bid for %q was not selected", job.Title),
			map[string]interface{}{
				"jobId": job.ID,
				"bidId": sibling.ID,
			},
			"",
		)
	}
	return nil
}

// RejectBid rejects a pending bid. Only the job owner may reject.
func (s *BidService) RejectBid(ctx context.Context, bidID, actorID string) (*model.Bid, error) {
	bid, job, err := s.getBidWithJob(ctx, bidID)
	if err != nil {
		return nil, err
	}

	if job.ClientID != actorID {
		return nil, ErrAccessDenied
	}
	if bid.Status != model.BidStatusPending {
		return nil, ErrBidNotPending
	}

	bid.Status = model.BidStatusRejected
	bid.UpdatedAt = time.Now()
	if err := s.bids.Update(ctx, bid); err != nil {
		return nil, err
	}

	s.notify(ctx, bid.FreelancerID, model.NotificationBidRejected,
		"Bid Not Selected",
		fmt.Sprintf("Your bid for %q was not selected", job.Title),
		map[string]interface{}{
			"jobId":    job.ID,
			"bidId":    bid.ID,
			"clientId": actorID,
		},
		"",
	)

	return bid, nil
}

// WithdrawBid withdraws a pending bid. Only the bid owner may withdraw.
func (s *BidService) WithdrawBid(ctx context.Context, bidID, actorID string) (*model.Bid, error) {
	bid, err := s.bids.Get(ctx, bidID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrBidNotFound
		}
		return nil, err
	}

	if bid.FreelancerID != actorID {
		return nil, ErrAccessDenied
	}
	if bid.Status != model.BidStatusPending {
		return nil, ErrBidNotPending
	}

	bid.Status = model.BidStatusWithdrawn
	bid.UpdatedAt = time.Now()
	if err := s.bids.Update(ctx, bid); err != nil {
		return nil, err
	}

	return bid, nil
}

// ListJobBids returns all bids on a job, newest first. Job owner only.
func (s *BidService) ListJobBids(ctx context.Context, jobID, actorID string) ([]*model.Bid, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	if job.ClientID != actorID {
		return nil, ErrAccessDenied
	}

	return s.bids.ListByJob(ctx, jobID)
}

// ListFreelancerBids returns a page of the freelancer's own bids
func (s *BidService) ListFreelancerBids(ctx context.Context, freelancerID string, status model.BidStatus, page, limit int) (*model.BidListResponse, error) {
	all, err := s.bids.ListByFreelancer(ctx, freelancerID)
	if err != nil {
		return nil, err
	}

	filtered := all
	if status != "" {
		filtered = filtered[:0:0]
		for _, b := range all {
			if b.Status == status {
				filtered = append(filtered, b)
			}
		}
	}

	paged, pagination := paginate(filtered, page, limit)
	return &model.BidListResponse{Bids: paged, Pagination: pagination}, nil
}

// GenerateProposal asks the AI collaborator for proposal text. Any failure
// degrades to a fallback string; this endpoint never surfaces an AI error.
func (s *BidService) GenerateProposal(ctx context.Context, req *model.GenerateProposalRequest) *model.GenerateProposalResponse {
	resp := &model.GenerateProposalResponse{OriginalProposal: req.CurrentProposal}

	if s.ai == nil || !s.ai.IsConfigured() {
		resp.Proposal = proposalFallback
		return resp
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Job Title: %s\nJob Description: %s\n", req.JobTitle, req.JobDescription)
	if len(req.Skills) > 0 {
		fmt.Fprintf(&b, "Freelancer Skills: %s\n", strings.Join(req.Skills, ", "))
	}
	action := "write"
	if req.CurrentProposal != "" {
		fmt.Fprintf(&b, "Current Proposal Draft: %s\n", req.CurrentProposal)
		action = "improve and rewrite"
	}
	fmt.Fprintf(&b, "\nPlease %s a winning proposal for this job. Make it compelling, professional, and tailored to the specific requirements.", action)

	text, err := s.ai.ChatCompletion(ctx, proposalSystemPrompt, b.String())
	if err != nil {
		log.Printf("Proposal generation failed: %v", err)
		resp.Proposal = proposalFallback
		return resp
	}

	resp.Proposal = strings.TrimSpace(text)
	return resp
}

// AttachFile uploads a file and links it to the bid. Bid owner only.
func (s *BidService) AttachFile(ctx context.Context, bidID, actorID, originalName, contentType string, size int64, body io.Reader) (*model.Bid, error) {
	bid, err := s.bids.Get(ctx, bidID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrBidNotFound
		}
		return nil, err
	}

	if bid.FreelancerID != actorID {
		return nil, ErrAccessDenied
	}

	key := fmt.Sprintf("bids/%s/%s%s", bid.ID, uuid.New().String(), path.Ext(originalName))

	var url string
	if s.storage != nil && s.storage.IsConfigured() {
		url, err = s.storage.Upload(ctx, key, body, contentType)
		if err != nil {
			return nil, fmt.Errorf("failed to upload attachment: %w", err)
		}
	} else {
		// Mock storage for local development
		url = fmt.Sprintf("https://storage.gigbridge.dev/mock/%s", key)
	}

	bid.Attachments = append(bid.Attachments, model.Attachment{
		Filename:     key,
		OriginalName: originalName,
		ContentType:  contentType,
		Size:         size,
		URL:          url,
	})
	bid.UpdatedAt = time.Now()
	if err := s.bids.Update(ctx, bid); err != nil {
		return nil, err
	}

	return bid, nil
}

func (s *BidService) getBidWithJob(ctx context.Context, bidID string) (*model.Bid, *model.Job, error) {
	bid, err := s.bids.Get(ctx, bidID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, nil, ErrBidNotFound
		}
		return nil, nil, err
	}

	job, err := s.jobs.Get(ctx, bid.JobID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, nil, ErrJobNotFound
		}
		return nil, nil, err
	}

	return bid, job, nil
}

func (s *BidService) notify(ctx context.Context, userID string, typ model.NotificationType, title, message string, data map[string]interface{}, actionURL string) {
	if _, err := s.notifications.Notify(ctx, userID, typ, title, message, data, actionURL); err != nil {
		log.Printf("Failed to create %s notification for user %s: %v", typ, userID, err)
	}
}
