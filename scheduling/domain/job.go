package domain

import "time"

type JobStatus string

const (
	JobStatusDraft  JobStatus = "draft"
	JobStatusActive JobStatus = "active"
	JobStatusPaused JobStatus = "paused"
)

// GenerationSettings configures the content pipeline for a job run.
// IncludeImage attaches ImagePath to every generated post; a job with
// IncludeImage and no ImagePath publishes text-only. MaxPostsPerTarget
// caps how many posts a target receives per UTC day, zero means no cap.
type GenerationSettings struct {
	Tone              string   `json:"tone,omitempty"`
	Category          string   `json:"category,omitempty"`
	PostKind          PostKind `json:"post_kind,omitempty"`
	IncludeImage      bool     `json:"include_image,omitempty"`
	ImagePath         string   `json:"image_path,omitempty"`
	MaxPostsPerTarget int      `json:"max_posts_per_target,omitempty"`
}

// JobStats accumulates run outcomes. NextRun is the only field the
// scheduler loop reads to decide eligibility; it is nil exactly when the
// job is not active.
type JobStats struct {
	TotalRuns      int        `json:"total_runs"`
	SuccessfulRuns int        `json:"successful_runs"`
	FailedRuns     int        `json:"failed_runs"`
	LastRun        *time.Time `json:"last_run,omitempty"`
	NextRun        *time.Time `json:"next_run,omitempty"`
}

// RecurringJob is a longer-lived automation that generates and publishes
// one post per target whenever its schedule fires.
type RecurringJob struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	TargetIDs []string           `json:"target_ids"`
	Schedule  Schedule           `json:"-"`
	Status    JobStatus          `json:"status"`
	Settings  GenerationSettings `json:"settings"`
	Stats     JobStats           `json:"stats"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// IsDue reports whether the job should fire at now.
func (j RecurringJob) IsDue(now time.Time) bool {
	return j.Status == JobStatusActive && j.Stats.NextRun != nil && !j.Stats.NextRun.After(now)
}
