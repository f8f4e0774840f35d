package model

import "time"

// Bid is a freelancer's priced, timed offer against a job. Once a bid
// leaves pending it never returns to pending.
type Bid struct {
	ID               string       `json:"id"`
	JobID            string       `json:"jobId"`
	FreelancerID     string       `json:"freelancerId"`
	Amount           float64      `json:"amount"`
	Proposal         string       `json:"proposal"`
	TimelineDays     int          `json:"timelineDays"`
	Status           BidStatus    `json:"status"`
	AIGenerated      bool         `json:"aiGenerated"`
	OriginalProposal string       `json:"originalProposal,omitempty"`
	Attachments      []Attachment `json:"attachments,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// Attachment is a stored file linked to a bid
type Attachment struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	ContentType  string `json:"contentType"`
	Size         int64  `json:"size"`
	URL          string `json:"url"`
}

// SubmitBidRequest is the payload for POST /api/bids
type SubmitBidRequest struct {
	JobID            string  `json:"jobId" validate:"required"`
	Amount           float64 `json:"amount" validate:"required,gte=0"`
	Proposal         string  `json:"proposal" validate:"required,max=2000"`
	TimelineDays     int     `json:"timelineDays" validate:"required,gte=1"`
	AIGenerated      bool    `json:"aiGenerated"`
	OriginalProposal string  `json:"originalProposal"`
}

// GenerateProposalRequest is the payload for POST /api/bids/generate-proposal
type GenerateProposalRequest struct {
	JobTitle        string   `json:"jobTitle" validate:"required"`
	JobDescription  string   `json:"jobDescription" validate:"required"`
	Skills          []string `json:"skills"`
	CurrentProposal string   `json:"currentProposal"`
}

// GenerateProposalResponse carries the generated text plus the draft it replaced
type GenerateProposalResponse struct {
	Proposal         string `json:"proposal"`
	OriginalProposal string `json:"originalProposal"`
}

// BidListResponse wraps a paginated bid listing
type BidListResponse struct {
	Bids       []*Bid     `json:"bids"`
	Pagination Pagination `json:"pagination"`
}

// Pagination describes a page of a listing
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
}
