package domain

import (
	"context"
	"time"
)

// SchedulePostRequest creates a new scheduled post.
type SchedulePostRequest struct {
	TargetID     string    `json:"target_id"`
	TargetName   string    `json:"target_name,omitempty"`
	Content      string    `json:"content"`
	Kind         PostKind  `json:"post_kind,omitempty"`
	CallToAction string    `json:"call_to_action,omitempty"`
	MediaPath    string    `json:"media_path,omitempty"`
	ScheduledAt  time.Time `json:"scheduled_at"`
}

// EditPostRequest replaces the editable fields of a scheduled post.
// Only posts still in the scheduled state accept edits.
type EditPostRequest struct {
	ID           string    `json:"-"`
	Content      string    `json:"content"`
	Kind         PostKind  `json:"post_kind,omitempty"`
	CallToAction string    `json:"call_to_action,omitempty"`
	MediaPath    string    `json:"media_path,omitempty"`
	ScheduledAt  time.Time `json:"scheduled_at"`
}

// CreateJobRequest creates a recurring job. New jobs start as drafts and
// must be activated explicitly.
type CreateJobRequest struct {
	Name      string             `json:"name"`
	TargetIDs []string           `json:"target_ids"`
	Schedule  Schedule           `json:"-"`
	Settings  GenerationSettings `json:"settings"`
}

// UpdateJobRequest replaces a job's configuration. A nil Schedule keeps
// the stored one.
type UpdateJobRequest struct {
	ID        string             `json:"-"`
	Name      string             `json:"name"`
	TargetIDs []string           `json:"target_ids"`
	Schedule  Schedule           `json:"-"`
	Settings  GenerationSettings `json:"settings"`
}

// ISchedulerUsecase is the application boundary the REST layer calls.
type ISchedulerUsecase interface {
	// Posts
	SchedulePost(ctx context.Context, request SchedulePostRequest) (ScheduledPost, error)
	GetPost(ctx context.Context, id string) (ScheduledPost, error)
	ListPosts(ctx context.Context) ([]ScheduledPost, error)
	ListPostsByTarget(ctx context.Context, targetID string) ([]ScheduledPost, error)
	EditPost(ctx context.Context, request EditPostRequest) (ScheduledPost, error)
	DeletePost(ctx context.Context, id string) error
	CountPendingPosts(ctx context.Context) (int64, error)

	// Jobs
	CreateJob(ctx context.Context, request CreateJobRequest) (RecurringJob, error)
	GetJob(ctx context.Context, id string) (RecurringJob, error)
	ListJobs(ctx context.Context) ([]RecurringJob, error)
	UpdateJob(ctx context.Context, request UpdateJobRequest) (RecurringJob, error)
	ActivateJob(ctx context.Context, id string) (RecurringJob, error)
	PauseJob(ctx context.Context, id string) (RecurringJob, error)
	DeleteJob(ctx context.Context, id string) error

	// Sync (remote authority role)
	IngestSnapshot(ctx context.Context, posts []ScheduledPost) error
}
