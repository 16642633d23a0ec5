package domain

import (
	"context"
	"time"
)

// ISchedulerRepository is the durable store for scheduled posts and
// recurring jobs. All writes are whole-record replaces keyed by id.
type ISchedulerRepository interface {
	Init(ctx context.Context) error

	// Scheduled Posts
	CreatePost(ctx context.Context, post ScheduledPost) error
	GetPost(ctx context.Context, id string) (ScheduledPost, error)
	ListPosts(ctx context.Context) ([]ScheduledPost, error)
	ListPostsByTarget(ctx context.Context, targetID string) ([]ScheduledPost, error)
	// ListDuePosts returns posts with status=scheduled and scheduled_at<=now,
	// earliest first with a deterministic id tie-break.
	ListDuePosts(ctx context.Context, now time.Time) ([]ScheduledPost, error)
	UpdatePost(ctx context.Context, post ScheduledPost) error
	// UpdatePostIfScheduled writes the record only while the stored status
	// is still scheduled, so an edit cannot overwrite a concurrent claim.
	// The bool reports whether a row was written.
	UpdatePostIfScheduled(ctx context.Context, post ScheduledPost) (bool, error)
	DeletePost(ctx context.Context, id string) error
	// DeletePostIfNotPublishing removes the record unless a publish is in
	// flight. The bool reports whether a row was deleted.
	DeletePostIfNotPublishing(ctx context.Context, id string) (bool, error)
	// ClaimPost flips status scheduled->publishing only if the stored status
	// is still scheduled. The second return reports whether this caller won.
	ClaimPost(ctx context.Context, id string, now time.Time) (ScheduledPost, bool, error)
	// ReplaceAllPosts swaps the whole working set; used when this instance
	// acts as the remote authority ingesting a snapshot.
	ReplaceAllPosts(ctx context.Context, posts []ScheduledPost) error
	CountPendingPosts(ctx context.Context) (int64, error)

	// Recurring Jobs
	CreateJob(ctx context.Context, job RecurringJob) error
	GetJob(ctx context.Context, id string) (RecurringJob, error)
	ListJobs(ctx context.Context) ([]RecurringJob, error)
	ListDueJobs(ctx context.Context, now time.Time) ([]RecurringJob, error)
	UpdateJob(ctx context.Context, job RecurringJob) error
	DeleteJob(ctx context.Context, id string) error
}
