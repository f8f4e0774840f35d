package model

import "time"

// Job is a client's posted work item that bids compete for. The lifecycle
// core consumes jobs; full job management lives with the client-facing API.
type Job struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"clientId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Budget      float64   `json:"budget,omitempty"`
	Skills      []string  `json:"skills,omitempty"`
	Status      JobStatus `json:"status"`
	SelectedBid string    `json:"selectedBid,omitempty"`
	Proposals   int       `json:"proposals"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateJobRequest is the payload for POST /api/jobs
type CreateJobRequest struct {
	Title       string   `json:"title" validate:"required,max=120"`
	Description string   `json:"description" validate:"required,max=5000"`
	Budget      float64  `json:"budget" validate:"gte=0"`
	Skills      []string `json:"skills"`
}
