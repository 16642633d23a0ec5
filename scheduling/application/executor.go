package application

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nivaro/postpilot/infrastructure/valkey"
	"github.com/nivaro/postpilot/publisher"
	"github.com/nivaro/postpilot/scheduling/domain"
	"github.com/nivaro/postpilot/ui/websocket"
	"github.com/sirupsen/logrus"
)

// LocalExecutor sweeps the store for due posts and publishes them. It is
// the safety net that keeps posts flowing when the remote authority is
// unreachable; the store-level claim keeps the two sides from publishing
// the same post twice.
type LocalExecutor struct {
	repo           domain.ISchedulerRepository
	pub            publisher.IPublisher
	valkeyClient   *valkey.Client
	notifier       ChangeNotifier
	tickInterval   time.Duration
	publishTimeout time.Duration
	running        int32
	now            func() time.Time
}

// ExecutorOptions tunes the sweep loop. Zero values fall back to the
// defaults used in production.
type ExecutorOptions struct {
	TickInterval   time.Duration
	PublishTimeout time.Duration
	ValkeyClient   *valkey.Client
	Notifier       ChangeNotifier
	Now            func() time.Time
}

// SweepResult records the outcome for one post a sweep processed. Posts
// whose claim was lost to another sweeper do not produce a result.
type SweepResult struct {
	PostID string            `json:"post_id"`
	Status domain.PostStatus `json:"status"`
	Error  string            `json:"error,omitempty"`
}

func NewLocalExecutor(repo domain.ISchedulerRepository, pub publisher.IPublisher, opts ExecutorOptions) *LocalExecutor {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Minute
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LocalExecutor{
		repo:           repo,
		pub:            pub,
		valkeyClient:   opts.ValkeyClient,
		notifier:       opts.Notifier,
		tickInterval:   opts.TickInterval,
		publishTimeout: opts.PublishTimeout,
		now:            opts.Now,
	}
}

func (e *LocalExecutor) notifyChange() {
	if e.notifier != nil {
		e.notifier.NotifyChange()
	}
}

// StartLoop runs the sweep ticker until the context is cancelled. One
// sweep runs immediately so restarts do not wait a full tick to catch up
// on overdue posts.
func (e *LocalExecutor) StartLoop(ctx context.Context) {
	logrus.Infof("[EXECUTOR] Local sweep started, tick every %s", e.tickInterval)

	go func() {
		e.Sweep(ctx)

		ticker := time.NewTicker(e.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logrus.Info("[EXECUTOR] Local sweep stopped")
				return
			case <-ticker.C:
				e.Sweep(ctx)
			}
		}
	}()
}

// Sweep processes every due post once and reports per-post outcomes.
// Overlapping ticks are skipped via an in-flight flag so a slow publish
// run never stacks sweeps.
func (e *LocalExecutor) Sweep(ctx context.Context) []SweepResult {
	if !atomic.CompareAndSwapInt32(&e.running, 0, 1) {
		logrus.Debug("[EXECUTOR] Previous sweep still running, skipping tick")
		return nil
	}
	defer atomic.StoreInt32(&e.running, 0)

	now := e.now()
	due, err := e.repo.ListDuePosts(ctx, now)
	if err != nil {
		logrus.WithError(err).Error("[EXECUTOR] Failed to list due posts")
		return nil
	}
	if len(due) == 0 {
		return nil
	}

	logrus.Infof("[EXECUTOR] %s due for publishing", humanize.Comma(int64(len(due)))+" post(s)")

	results := make([]SweepResult, 0, len(due))
	for _, post := range due {
		if ctx.Err() != nil {
			return results
		}
		if res, processed := e.executePost(ctx, post.ID); processed {
			results = append(results, res)
		}
	}
	return results
}

// executePost claims and publishes one post. A lost claim means another
// sweeper got there first and is not an error; the second return is false
// in that case.
func (e *LocalExecutor) executePost(ctx context.Context, id string) (SweepResult, bool) {
	if e.valkeyClient != nil {
		lockKey := "lock:exec:" + id
		if !e.valkeyClient.AcquireLock(ctx, lockKey, e.publishTimeout+10*time.Second) {
			logrus.Debugf("[EXECUTOR] Post %s locked by another instance", id)
			return SweepResult{}, false
		}
		defer e.valkeyClient.ReleaseLock(context.WithoutCancel(ctx), lockKey)
	}

	post, won, err := e.repo.ClaimPost(ctx, id, e.now())
	if err != nil {
		logrus.WithError(err).Errorf("[EXECUTOR] Failed to claim post %s", id)
		return SweepResult{}, false
	}
	if !won {
		logrus.Debugf("[EXECUTOR] Post %s already claimed, skipping", id)
		return SweepResult{}, false
	}
	e.notifyChange()

	logrus.Infof("[EXECUTOR] Publishing post %s -> target %s", post.ID, post.TargetID)

	pubCtx, cancel := context.WithTimeout(ctx, e.publishTimeout)
	defer cancel()

	result, err := e.pub.Publish(pubCtx, publisher.PublishRequest{
		TargetID:     post.TargetID,
		Content:      post.Content,
		Kind:         post.Kind,
		CallToAction: post.CallToAction,
		MediaPath:    post.MediaPath,
	})
	if err != nil {
		e.markFailed(ctx, post, err)
		return SweepResult{PostID: post.ID, Status: domain.PostStatusFailed, Error: err.Error()}, true
	}

	publishedAt := result.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = e.now().UTC()
	}
	post.Status = domain.PostStatusPublished
	post.PublishedAt = &publishedAt
	post.Error = ""
	if err := e.repo.UpdatePost(ctx, post); err != nil {
		logrus.WithError(err).Errorf("[EXECUTOR] Published post %s but failed to persist state", post.ID)
		return SweepResult{PostID: post.ID, Status: domain.PostStatusPublished}, true
	}
	e.notifyChange()

	logrus.Infof("[EXECUTOR] Post %s published (scheduled %s)", post.ID, humanize.Time(post.ScheduledAt))
	websocket.Notify("POST_PUBLISHED", "Post published", post)
	return SweepResult{PostID: post.ID, Status: domain.PostStatusPublished}, true
}

// markFailed records a terminal failure. There is no automatic retry;
// the dashboard surfaces the error and the user reschedules explicitly.
func (e *LocalExecutor) markFailed(ctx context.Context, post domain.ScheduledPost, cause error) {
	logrus.WithError(cause).Errorf("[EXECUTOR] Post %s failed", post.ID)

	post.Status = domain.PostStatusFailed
	post.Error = cause.Error()
	if err := e.repo.UpdatePost(ctx, post); err != nil {
		logrus.WithError(err).Errorf("[EXECUTOR] Failed to persist failure for post %s", post.ID)
		return
	}
	e.notifyChange()
	websocket.Notify("POST_FAILED", "Post failed to publish", post)
}
