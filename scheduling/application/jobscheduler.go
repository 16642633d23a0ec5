package application

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nivaro/postpilot/contentgen"
	"github.com/nivaro/postpilot/pkg/postworker"
	"github.com/nivaro/postpilot/publisher"
	"github.com/nivaro/postpilot/scheduling/clock"
	"github.com/nivaro/postpilot/scheduling/domain"
	"github.com/nivaro/postpilot/ui/websocket"
	"github.com/sirupsen/logrus"
)

// GenerationDefaults supplies operator-tunable fallbacks applied when a
// job leaves a generation setting blank.
type GenerationDefaults interface {
	DefaultTone(ctx context.Context) string
	// MaxContentChars is the draft length cap, zero for no cap.
	MaxContentChars(ctx context.Context) int
}

// JobScheduler fires recurring jobs: for every due job it drafts one post
// per target through the content provider and publishes it via the worker
// pool, so targets proceed in parallel while each single target stays
// serialized.
type JobScheduler struct {
	repo            domain.ISchedulerRepository
	content         contentgen.IContentProvider
	pub             publisher.IPublisher
	pool            *postworker.PublishWorkerPool
	defaults        GenerationDefaults
	notifier        ChangeNotifier
	tickInterval    time.Duration
	publishTimeout  time.Duration
	generateTimeout time.Duration
	running         int32
	now             func() time.Time
}

type JobSchedulerOptions struct {
	TickInterval    time.Duration
	PublishTimeout  time.Duration
	GenerateTimeout time.Duration
	Defaults        GenerationDefaults
	Notifier        ChangeNotifier
	Now             func() time.Time
}

func NewJobScheduler(
	repo domain.ISchedulerRepository,
	content contentgen.IContentProvider,
	pub publisher.IPublisher,
	pool *postworker.PublishWorkerPool,
	opts JobSchedulerOptions,
) *JobScheduler {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Minute
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 30 * time.Second
	}
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = 60 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &JobScheduler{
		repo:            repo,
		content:         content,
		pub:             pub,
		pool:            pool,
		defaults:        opts.Defaults,
		notifier:        opts.Notifier,
		tickInterval:    opts.TickInterval,
		publishTimeout:  opts.PublishTimeout,
		generateTimeout: opts.GenerateTimeout,
		now:             opts.Now,
	}
}

func (s *JobScheduler) notifyChange() {
	if s.notifier != nil {
		s.notifier.NotifyChange()
	}
}

// StartLoop runs the job ticker until the context is cancelled.
func (s *JobScheduler) StartLoop(ctx context.Context) {
	logrus.Infof("[JOBS] Recurring job scheduler started, tick every %s", s.tickInterval)

	go func() {
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logrus.Info("[JOBS] Recurring job scheduler stopped")
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Tick runs every due job once. Like the post sweep, overlapping ticks
// are skipped instead of queued.
func (s *JobScheduler) Tick(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		logrus.Debug("[JOBS] Previous tick still running, skipping")
		return
	}
	defer atomic.StoreInt32(&s.running, 0)

	now := s.now()
	due, err := s.repo.ListDueJobs(ctx, now)
	if err != nil {
		logrus.WithError(err).Error("[JOBS] Failed to list due jobs")
		return
	}

	for _, job := range due {
		if ctx.Err() != nil {
			return
		}
		s.RunJob(ctx, job)
	}
}

// RunJob executes one job occurrence. The run counts as successful when
// at least one target publish went through. The next run is recomputed
// from the schedule regardless of outcome, so one bad occurrence never
// stalls the job.
func (s *JobScheduler) RunJob(ctx context.Context, job domain.RecurringJob) {
	now := s.now()
	logrus.Infof("[JOBS] Running job %s (%s) for %d target(s)", job.ID, job.Name, len(job.TargetIDs))

	var successes int64
	var wg sync.WaitGroup

	for _, targetID := range job.TargetIDs {
		targetID := targetID
		wg.Add(1)
		dispatched := s.pool.TryDispatch(postworker.PublishJob{
			TargetID: targetID,
			PostID:   job.ID,
			Handler: func(workerCtx context.Context) error {
				defer wg.Done()
				if err := s.publishForTarget(workerCtx, job, targetID); err != nil {
					return err
				}
				atomic.AddInt64(&successes, 1)
				return nil
			},
		})
		if !dispatched {
			wg.Done()
			logrus.Warnf("[JOBS] Pool rejected job %s target %s", job.ID, targetID)
		}
	}

	wg.Wait()

	job.Stats.TotalRuns++
	job.Stats.LastRun = &now
	if successes > 0 {
		job.Stats.SuccessfulRuns++
	} else {
		job.Stats.FailedRuns++
	}
	next := clock.NextRun(job.Schedule, now)
	job.Stats.NextRun = &next

	if err := s.repo.UpdateJob(ctx, job); err != nil {
		logrus.WithError(err).Errorf("[JOBS] Failed to persist stats for job %s", job.ID)
		return
	}
	s.notifyChange()

	logrus.Infof("[JOBS] Job %s done: %d/%d target(s) published, next run %s",
		job.ID, successes, len(job.TargetIDs), next.Format(time.RFC3339))
	websocket.Notify("JOB_RUN", "Recurring job executed", job)
}

// publishForTarget drafts and publishes one post, recording the outcome
// as a post row so job output shows up in the same dashboard list.
func (s *JobScheduler) publishForTarget(ctx context.Context, job domain.RecurringJob, targetID string) error {
	existing, err := s.repo.ListPostsByTarget(ctx, targetID)
	if err != nil {
		return fmt.Errorf("failed to load posts for target %s: %w", targetID, err)
	}

	now := s.now().UTC()
	if limit := job.Settings.MaxPostsPerTarget; limit > 0 {
		dayStart := now.Truncate(24 * time.Hour)
		var today int
		for _, p := range existing {
			if !p.CreatedAt.Before(dayStart) {
				today++
			}
		}
		if today >= limit {
			logrus.Infof("[JOBS] Target %s already has %d post(s) today (cap %d), skipping", targetID, today, limit)
			return nil
		}
	}

	// Job targets carry no display name of their own; reuse the most
	// recent one the dashboard supplied on a manual post.
	var targetName string
	for _, p := range existing {
		if p.TargetName != "" {
			targetName = p.TargetName
		}
	}

	kind := job.Settings.PostKind
	if kind == "" {
		kind = domain.PostKindUpdate
	}

	genCtx, cancel := context.WithTimeout(ctx, s.generateTimeout)
	defer cancel()

	tone := job.Settings.Tone
	var maxChars int
	if s.defaults != nil {
		if tone == "" {
			tone = s.defaults.DefaultTone(genCtx)
		}
		maxChars = s.defaults.MaxContentChars(genCtx)
	}

	text, err := s.content.Generate(genCtx, contentgen.GenerationRequest{
		TargetID:   targetID,
		TargetName: targetName,
		Kind:       kind,
		Tone:       tone,
		Category:   job.Settings.Category,
		MaxChars:   maxChars,
	})
	if err != nil {
		return fmt.Errorf("content generation failed for target %s: %w", targetID, err)
	}

	var mediaPath string
	if job.Settings.IncludeImage {
		mediaPath = job.Settings.ImagePath
	}

	post := domain.ScheduledPost{
		ID:          uuid.NewString(),
		TargetID:    targetID,
		TargetName:  targetName,
		Content:     text,
		Kind:        kind,
		MediaPath:   mediaPath,
		ScheduledAt: now,
		Status:      domain.PostStatusPublishing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreatePost(ctx, post); err != nil {
		return fmt.Errorf("failed to record job post: %w", err)
	}
	s.notifyChange()

	pubCtx, cancel2 := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel2()

	result, err := s.pub.Publish(pubCtx, publisher.PublishRequest{
		TargetID:  targetID,
		Content:   text,
		Kind:      kind,
		MediaPath: mediaPath,
	})
	if err != nil {
		post.Status = domain.PostStatusFailed
		post.Error = err.Error()
		if uerr := s.repo.UpdatePost(ctx, post); uerr == nil {
			s.notifyChange()
		}
		return err
	}

	publishedAt := result.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = s.now().UTC()
	}
	post.Status = domain.PostStatusPublished
	post.PublishedAt = &publishedAt
	if err := s.repo.UpdatePost(ctx, post); err != nil {
		return err
	}
	s.notifyChange()
	return nil
}
