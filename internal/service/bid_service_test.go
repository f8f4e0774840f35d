package service

import (
	"context"
	"errors"
	"testing"

	"github.com/gigbridge/api/internal/model"
)

func TestSubmitBid_NotifiesClient(t *testing.T) {
	env := newTestEnv(t)
	job := env.seedJob(t, "client-1")

	bid := env.seedBid(t, job.ID, "freelancer-1")

	if bid.Status != model.BidStatusPending {
		t.Errorf("expected pending bid, got %s", bid.Status)
	}

	got, err := env.stores.Jobs.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("failed to reload job: %v", err)
	}
	if got.Proposals != 1 {
		t.Errorf("expected proposal count 1, got %d", got.Proposals)
	}

	received := env.notificationsOf(t, "client-1", model.NotificationBidReceived)
	if len(received) != 1 {
		t.Fatalf("expected 1 bid_received notification, got %d", len(received))
	}
	if len(env.enqueuer.pushes) != 1 {
		t.Errorf("expected 1 push enqueued, got %d", len(env.enqueuer.pushes))
	}
}

func TestSubmitBid_DuplicatePerJob(t *testing.T) {
	env := newTestEnv(t)
	job := env.seedJob(t, "client-1")
	env.seedBid(t, job.ID, "freelancer-1")

	_, err := env.bids.SubmitBid(context.Background(), "freelancer-1", &model.SubmitBidRequest{
		JobID:        job.ID,
		Amount:       600,
		Proposal:     "second try",
		TimelineDays: 5,
	})
	if !errors.Is(err, ErrDuplicateBid) {
		t.Errorf("expected ErrDuplicateBid, got %v", err)
	}
}

func TestSubmitBid_ClosedJob(t *testing.T) {
	env := newTestEnv(t)
	job := env.seedJob(t, "client-1")
	bid := env.seedBid(t, job.ID, "freelancer-1")

	if _, err := env.bids.AcceptBid(context.Background(), bid.ID, "client-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	_, err := env.bids.SubmitBid(context.Background(), "freelancer-2", &model.SubmitBidRequest{
		JobID:        job.ID,
		Amount:       700,
		Proposal:     "too late",
		TimelineDays: 3,
	})
	if !errors.Is(err, ErrJobNotOpen) {
		t.Errorf("expected ErrJobNotOpen, got %v", err)
	}
}

func TestAcceptBid_FullSequence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.seedJob(t, "client-1")
	winner := env.seedBid(t, job.ID, "freelancer-1")
	loser := env.seedBid(t, job.ID, "freelancer-2")

	accepted, err := env.bids.AcceptBid(ctx, winner.ID, "client-1")
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if accepted.Status != model.BidStatusAccepted {
		t.Errorf("expected accepted bid, got %s", accepted.Status)
	}

	gotJob, _ := env.stores.Jobs.Get(ctx, job.ID)
	if gotJob.Status != model.JobStatusInProgress {
		t.Errorf("expected job in_progress, got %s", gotJob.Status)
	}
	if gotJob.SelectedBid != winner.ID {
		t.Errorf("expected selected bid %s, got %s", winner.ID, gotJob.SelectedBid)
	}

	gotLoser, _ := env.stores.Bids.Get(ctx, loser.ID)
	if gotLoser.Status != model.BidStatusRejected {
		t.Errorf("expected rejected sibling, got %s", gotLoser.Status)
	}

	contract, err := env.stores.Contracts.GetByJobBid(ctx, job.ID, winner.ID)
	if err != nil {
		t.Fatalf("expected contract for accepted bid: %v", err)
	}
	if contract.Status != model.ContractStatusActive {
		t.Errorf("expected active contract, got %s", contract.Status)
	}
	if contract.PaymentStatus != model.PaymentStatusPending {
		t.Errorf("expected pending payment, got %s", contract.PaymentStatus)
	}
	if contract.ConversationID == "" {
		t.Error("expected contract linked to a conversation")
	}

	conv, err := env.stores.Conversations.Get(ctx, contract.ConversationID)
	if err != nil {
		t.Fatalf("expected conversation: %v", err)
	}
	if conv.ContractID != contract.ID {
		t.Errorf("expected conversation back-linked to contract, got %q", conv.ContractID)
	}
	if !conv.HasParticipant("client-1") || !conv.HasParticipant("freelancer-1") {
		t.Error("expected both parties in conversation")
	}

	if n := env.notificationsOf(t, "freelancer-1", model.NotificationBidAccepted); len(n) != 1 {
		t.Errorf("expected 1 bid_accepted notification, got %d", len(n))
	}
	if n := env.notificationsOf(t, "freelancer-2", model.NotificationBidRejected); len(n) != 1 {
		t.Errorf("expected 1 bid_rejected notification, got %d", len(n))
	}
}

func TestAcceptBid_OnlyJobOwner(t *testing.T) {
	env := newTestEnv(t)
	job := env.seedJob(t, "client-1")
	bid := env.seedBid(t, job.ID, "freelancer-1")

	_, err := env.bids.AcceptBid(context.Background(), bid.ID, "someone-else")
	if !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}
}

func TestAcceptBid_SecondAcceptanceLoses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.seedJob(t, "client-1")
	first := env.seedBid(t, job.ID, "freelancer-1")
	second := env.seedBid(t, job.ID, "freelancer-2")

	if _, err := env.bids.AcceptBid(ctx, first.ID, "client-1"); err != nil {
		t.Fatalf("first accept failed: %v", err)
	}

	// The second bid was rejected by the first acceptance, so the guard
	// fires before the job status check does.
	_, err := env.bids.AcceptBid(ctx, second.ID, "client-1")
	if !errors.Is(err, ErrBidNotPending) {
		t.Errorf("expected ErrBidNotPending, got %v", err)
	}

	// A pending bid on a job that already left open loses on job status.
	gotSecond, _ := env.stores.Bids.Get(ctx, second.ID)
	gotSecond.Status = model.BidStatusPending
	if err := env.stores.Bids.Update(ctx, gotSecond); err != nil {
		t.Fatalf("failed to reset bid: %v", err)
	}
	_, err = env.bids.AcceptBid(ctx, second.ID, "client-1")
	if !errors.Is(err, ErrJobNotOpen) {
		t.Errorf("expected ErrJobNotOpen, got %v", err)
	}
}

func TestAcceptBid_RetryConverges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.seedJob(t, "client-1")
	winner := env.seedBid(t, job.ID, "freelancer-1")
	env.seedBid(t, job.ID, "freelancer-2")

	if _, err := env.bids.AcceptBid(ctx, winner.ID, "client-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if _, err := env.bids.AcceptBid(ctx, winner.ID, "client-1"); err != nil {
		t.Fatalf("retried accept failed: %v", err)
	}

	contracts, err := env.stores.Contracts.ListByUser(ctx, "client-1")
	if err != nil {
		t.Fatalf("failed to list contracts: %v", err)
	}
	if len(contracts) != 1 {
		t.Errorf("expected exactly 1 contract after retry, got %d", len(contracts))
	}

	if n := env.notificationsOf(t, "freelancer-1", model.NotificationBidAccepted); len(n) != 1 {
		t.Errorf("expected 1 bid_accepted notification after retry, got %d", len(n))
	}
	if n := env.notificationsOf(t, "freelancer-2", model.NotificationBidRejected); len(n) != 1 {
		t.Errorf("expected 1 bid_rejected notification after retry, got %d", len(n))
	}
}

func TestRejectBid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.seedJob(t, "client-1")
	bid := env.seedBid(t, job.ID, "freelancer-1")

	rejected, err := env.bids.RejectBid(ctx, bid.ID, "client-1")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != model.BidStatusRejected {
		t.Errorf("expected rejected bid, got %s", rejected.Status)
	}

	// Rejection does not close the job.
	gotJob, _ := env.stores.Jobs.Get(ctx, job.ID)
	if gotJob.Status != model.JobStatusOpen {
		t.Errorf("expected job still open, got %s", gotJob.Status)
	}

	// A rejected bid cannot be accepted later.
	_, err = env.bids.AcceptBid(ctx, bid.ID, "client-1")
	if !errors.Is(err, ErrBidNotPending) {
		t.Errorf("expected ErrBidNotPending, got %v", err)
	}
}

func TestWithdrawBid_OwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.seedJob(t, "client-1")
	bid := env.seedBid(t, job.ID, "freelancer-1")

	if _, err := env.bids.WithdrawBid(ctx, bid.ID, "client-1"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied for non-owner, got %v", err)
	}

	withdrawn, err := env.bids.WithdrawBid(ctx, bid.ID, "freelancer-1")
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if withdrawn.Status != model.BidStatusWithdrawn {
		t.Errorf("expected withdrawn bid, got %s", withdrawn.Status)
	}
}

func TestListJobBids_OwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.seedJob(t, "client-1")
	env.seedBid(t, job.ID, "freelancer-1")
	env.seedBid(t, job.ID, "freelancer-2")

	if _, err := env.bids.ListJobBids(ctx, job.ID, "freelancer-1"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}

	bids, err := env.bids.ListJobBids(ctx, job.ID, "client-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(bids) != 2 {
		t.Errorf("expected 2 bids, got %d", len(bids))
	}
}

func TestListFreelancerBids_StatusFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	jobA := env.seedJob(t, "client-1")
	jobB := env.seedJob(t, "client-2")
	env.seedBid(t, jobA.ID, "freelancer-1")
	withdrawable := env.seedBid(t, jobB.ID, "freelancer-1")

	if _, err := env.bids.WithdrawBid(ctx, withdrawable.ID, "freelancer-1"); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}

	result, err := env.bids.ListFreelancerBids(ctx, "freelancer-1", model.BidStatusPending, 1, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(result.Bids) != 1 {
		t.Fatalf("expected 1 pending bid, got %d", len(result.Bids))
	}
	if result.Bids[0].Status != model.BidStatusPending {
		t.Errorf("expected pending bid, got %s", result.Bids[0].Status)
	}
}

func TestGenerateProposal_FallbackWithoutAI(t *testing.T) {
	env := newTestEnv(t)

	resp := env.bids.GenerateProposal(context.Background(), &model.GenerateProposalRequest{
		JobTitle:        "Logo design",
		JobDescription:  "Design a logo for a bakery",
		CurrentProposal: "draft text",
	})

	if resp.Proposal != proposalFallback {
		t.Errorf("expected fallback proposal, got %q", resp.Proposal)
	}
	if resp.OriginalProposal != "draft text" {
		t.Errorf("expected original draft preserved, got %q", resp.OriginalProposal)
	}
}

func TestAttachFile_MockStorage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.seedJob(t, "client-1")
	bid := env.seedBid(t, job.ID, "freelancer-1")

	updated, err := env.bids.AttachFile(ctx, bid.ID, "freelancer-1", "portfolio.pdf", "application/pdf", 1234, nil)
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if len(updated.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(updated.Attachments))
	}
	att := updated.Attachments[0]
	if att.OriginalName != "portfolio.pdf" || att.Size != 1234 {
		t.Errorf("unexpected attachment metadata: %+v", att)
	}
	if att.URL == "" {
		t.Error("expected mock storage URL")
	}

	if _, err := env.bids.AttachFile(ctx, bid.ID, "client-1", "x.pdf", "application/pdf", 1, nil); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied for non-owner, got %v", err)
	}
}
