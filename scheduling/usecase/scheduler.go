// Package usecase implements the scheduling application service.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nivaro/postpilot/scheduling/clock"
	"github.com/nivaro/postpilot/scheduling/domain"
	"github.com/nivaro/postpilot/validations"
	"github.com/sirupsen/logrus"
)

// ChangeNotifier is told after every successful mutation so the sync
// layer can mirror the new state. Notifications must not block.
type ChangeNotifier interface {
	NotifyChange()
}

type serviceScheduler struct {
	repo     domain.ISchedulerRepository
	notifier ChangeNotifier
	now      func() time.Time
}

func NewSchedulerService(repo domain.ISchedulerRepository, notifier ChangeNotifier) domain.ISchedulerUsecase {
	return &serviceScheduler{
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
	}
}

func (service *serviceScheduler) notify() {
	if service.notifier != nil {
		service.notifier.NotifyChange()
	}
}

// --- Posts ---

func (service *serviceScheduler) SchedulePost(ctx context.Context, request domain.SchedulePostRequest) (domain.ScheduledPost, error) {
	if err := validations.ValidateSchedulePost(ctx, request); err != nil {
		return domain.ScheduledPost{}, err
	}

	kind := request.Kind
	if kind == "" {
		kind = domain.PostKindUpdate
	}

	now := service.now().UTC()
	post := domain.ScheduledPost{
		ID:           uuid.NewString(),
		TargetID:     request.TargetID,
		TargetName:   request.TargetName,
		Content:      request.Content,
		Kind:         kind,
		CallToAction: request.CallToAction,
		MediaPath:    request.MediaPath,
		ScheduledAt:  request.ScheduledAt.UTC(), // Always UTC
		Status:       domain.PostStatusScheduled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := service.repo.CreatePost(ctx, post); err != nil {
		return domain.ScheduledPost{}, err
	}

	logrus.Infof("[SCHEDULER] Post %s scheduled for %s (target %s)",
		post.ID, post.ScheduledAt.Format(time.RFC3339), post.TargetID)
	service.notify()

	return post, nil
}

func (service *serviceScheduler) GetPost(ctx context.Context, id string) (domain.ScheduledPost, error) {
	return service.repo.GetPost(ctx, id)
}

func (service *serviceScheduler) ListPosts(ctx context.Context) ([]domain.ScheduledPost, error) {
	return service.repo.ListPosts(ctx)
}

func (service *serviceScheduler) ListPostsByTarget(ctx context.Context, targetID string) ([]domain.ScheduledPost, error) {
	return service.repo.ListPostsByTarget(ctx, targetID)
}

func (service *serviceScheduler) EditPost(ctx context.Context, request domain.EditPostRequest) (domain.ScheduledPost, error) {
	if err := validations.ValidateEditPost(ctx, request); err != nil {
		return domain.ScheduledPost{}, err
	}

	post, err := service.repo.GetPost(ctx, request.ID)
	if err != nil {
		return domain.ScheduledPost{}, err
	}
	if !post.Editable() {
		return domain.ScheduledPost{}, domain.ErrPostNotEditable
	}

	post.Content = request.Content
	if request.Kind != "" {
		post.Kind = request.Kind
	}
	post.CallToAction = request.CallToAction
	post.MediaPath = request.MediaPath
	post.ScheduledAt = request.ScheduledAt.UTC()
	post.UpdatedAt = service.now().UTC()

	// Conditional write: a sweeper claiming the post between the read
	// above and this save must not be overwritten back to scheduled.
	ok, err := service.repo.UpdatePostIfScheduled(ctx, post)
	if err != nil {
		return domain.ScheduledPost{}, err
	}
	if !ok {
		return domain.ScheduledPost{}, domain.ErrPostNotEditable
	}

	service.notify()
	return post, nil
}

func (service *serviceScheduler) DeletePost(ctx context.Context, id string) error {
	if _, err := service.repo.GetPost(ctx, id); err != nil {
		return err
	}

	// Terminal posts can always be cleaned up; a publishing post cannot
	// be deleted because the publish is already in flight. The status
	// check happens inside the delete so a claim landing after the read
	// above still blocks it.
	ok, err := service.repo.DeletePostIfNotPublishing(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrPostNotEditable
	}

	service.notify()
	return nil
}

func (service *serviceScheduler) CountPendingPosts(ctx context.Context) (int64, error) {
	return service.repo.CountPendingPosts(ctx)
}

// --- Jobs ---

func (service *serviceScheduler) CreateJob(ctx context.Context, request domain.CreateJobRequest) (domain.RecurringJob, error) {
	if err := validations.ValidateCreateJob(ctx, request); err != nil {
		return domain.RecurringJob{}, err
	}

	now := service.now().UTC()
	job := domain.RecurringJob{
		ID:        uuid.NewString(),
		Name:      request.Name,
		TargetIDs: request.TargetIDs,
		Schedule:  request.Schedule,
		Status:    domain.JobStatusDraft,
		Settings:  request.Settings,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := service.repo.CreateJob(ctx, job); err != nil {
		return domain.RecurringJob{}, err
	}

	logrus.Infof("[SCHEDULER] Job %s (%s) created as draft", job.ID, job.Name)
	return job, nil
}

func (service *serviceScheduler) GetJob(ctx context.Context, id string) (domain.RecurringJob, error) {
	return service.repo.GetJob(ctx, id)
}

func (service *serviceScheduler) ListJobs(ctx context.Context) ([]domain.RecurringJob, error) {
	return service.repo.ListJobs(ctx)
}

func (service *serviceScheduler) UpdateJob(ctx context.Context, request domain.UpdateJobRequest) (domain.RecurringJob, error) {
	if err := validations.ValidateUpdateJob(ctx, request); err != nil {
		return domain.RecurringJob{}, err
	}

	job, err := service.repo.GetJob(ctx, request.ID)
	if err != nil {
		return domain.RecurringJob{}, err
	}

	job.Name = request.Name
	job.TargetIDs = request.TargetIDs
	job.Settings = request.Settings
	if request.Schedule != nil {
		job.Schedule = request.Schedule
		// Active jobs re-anchor their next run on the new schedule.
		if job.Status == domain.JobStatusActive {
			next := clock.NextRun(job.Schedule, service.now())
			job.Stats.NextRun = &next
		}
	}
	job.UpdatedAt = service.now().UTC()

	if err := service.repo.UpdateJob(ctx, job); err != nil {
		return domain.RecurringJob{}, err
	}
	return job, nil
}

func (service *serviceScheduler) ActivateJob(ctx context.Context, id string) (domain.RecurringJob, error) {
	job, err := service.repo.GetJob(ctx, id)
	if err != nil {
		return domain.RecurringJob{}, err
	}
	if job.Status == domain.JobStatusActive {
		return job, nil
	}

	next := clock.NextRun(job.Schedule, service.now())
	job.Status = domain.JobStatusActive
	job.Stats.NextRun = &next
	job.UpdatedAt = service.now().UTC()

	if err := service.repo.UpdateJob(ctx, job); err != nil {
		return domain.RecurringJob{}, err
	}

	logrus.Infof("[SCHEDULER] Job %s activated, first run %s", job.ID, next.Format(time.RFC3339))
	return job, nil
}

func (service *serviceScheduler) PauseJob(ctx context.Context, id string) (domain.RecurringJob, error) {
	job, err := service.repo.GetJob(ctx, id)
	if err != nil {
		return domain.RecurringJob{}, err
	}
	if job.Status != domain.JobStatusActive {
		return job, nil
	}

	job.Status = domain.JobStatusPaused
	job.Stats.NextRun = nil
	job.UpdatedAt = service.now().UTC()

	if err := service.repo.UpdateJob(ctx, job); err != nil {
		return domain.RecurringJob{}, err
	}

	logrus.Infof("[SCHEDULER] Job %s paused", job.ID)
	return job, nil
}

func (service *serviceScheduler) DeleteJob(ctx context.Context, id string) error {
	if _, err := service.repo.GetJob(ctx, id); err != nil {
		return err
	}
	return service.repo.DeleteJob(ctx, id)
}

// --- Sync ---

// IngestSnapshot applies a snapshot pushed by a dashboard instance. This
// server then acts as the remote authority for that working set.
func (service *serviceScheduler) IngestSnapshot(ctx context.Context, posts []domain.ScheduledPost) error {
	if err := service.repo.ReplaceAllPosts(ctx, posts); err != nil {
		return err
	}
	logrus.Infof("[SYNC] Snapshot ingested, %d post(s)", len(posts))
	return nil
}
