package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gigbridge/api/internal/model"
	"github.com/gigbridge/api/internal/store"
)

// JobService covers the minimal job surface the lifecycle core needs:
// creating jobs for bids to target and reading them back. Full job
// management (search, editing, categories) lives with the client-facing API.
type JobService struct {
	jobs store.JobStore
}

func NewJobService(stores *store.Stores) *JobService {
	return &JobService{jobs: stores.Jobs}
}

// CreateJob posts a new open job owned by the client
func (s *JobService) CreateJob(ctx context.Context, clientID string, req *model.CreateJobRequest) (*model.Job, error) {
	now := time.Now()
	job := &model.Job{
		ID:          uuid.New().String(),
		ClientID:    clientID,
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
		Skills:      req.Skills,
		Status:      model.JobStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// GetJob returns a job by id
func (s *JobService) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListOpenJobs returns every job still accepting bids
func (s *JobService) ListOpenJobs(ctx context.Context) ([]*model.Job, error) {
	return s.jobs.ListOpen(ctx)
}
