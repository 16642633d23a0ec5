package application

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nivaro/postpilot/scheduling/domain"
	"github.com/sirupsen/logrus"
)

// SweepOutcome is what the remote authority reports after sweeping.
type SweepOutcome struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Results []string `json:"results,omitempty"`
}

// ChangeNotifier receives a ping after a loop persists a post or job
// transition, so the mirror pushes without waiting for the heartbeat.
// *SyncAgent satisfies it.
type ChangeNotifier interface {
	NotifyChange()
}

// RemoteClient is the narrow slice of the remote authority the agent
// talks to.
type RemoteClient interface {
	PushSnapshot(ctx context.Context, posts []domain.ScheduledPost) error
	RequestSweep(ctx context.Context) (SweepOutcome, error)
}

// SyncAgent mirrors the local working set to the remote authority. Every
// mutation schedules a push, and a heartbeat re-pushes periodically so a
// missed notification heals itself. Pushes run in the background; callers
// of NotifyChange never wait on the network.
type SyncAgent struct {
	repo      domain.ISchedulerRepository
	remote    RemoteClient
	heartbeat time.Duration
	timeout   time.Duration
	pending   int32
	pushCh    chan struct{}
}

type SyncAgentOptions struct {
	HeartbeatInterval time.Duration
	RequestTimeout    time.Duration
}

func NewSyncAgent(repo domain.ISchedulerRepository, remote RemoteClient, opts SyncAgentOptions) *SyncAgent {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 5 * time.Minute
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	return &SyncAgent{
		repo:      repo,
		remote:    remote,
		heartbeat: opts.HeartbeatInterval,
		timeout:   opts.RequestTimeout,
		pushCh:    make(chan struct{}, 1),
	}
}

// StartLoop runs the push worker and the heartbeat until ctx is done.
func (a *SyncAgent) StartLoop(ctx context.Context) {
	logrus.Infof("[SYNC] Agent started, heartbeat every %s", a.heartbeat)

	go func() {
		ticker := time.NewTicker(a.heartbeat)
		defer ticker.Stop()

		// First push straight away so the remote sees this instance's
		// state without waiting a full heartbeat.
		a.pushSnapshot(ctx)

		for {
			select {
			case <-ctx.Done():
				logrus.Info("[SYNC] Agent stopped")
				return
			case <-a.pushCh:
				atomic.StoreInt32(&a.pending, 0)
				a.pushSnapshot(ctx)
			case <-ticker.C:
				a.pushSnapshot(ctx)
				a.requestSweep(ctx)
			}
		}
	}()
}

// NotifyChange marks the working set dirty. Consecutive notifications
// while a push is queued coalesce into one.
func (a *SyncAgent) NotifyChange() {
	if !atomic.CompareAndSwapInt32(&a.pending, 0, 1) {
		return
	}
	select {
	case a.pushCh <- struct{}{}:
	default:
		atomic.StoreInt32(&a.pending, 0)
	}
}

// pushSnapshot uploads the current post list. Failures are logged only;
// the heartbeat retries and the local executor keeps publishing meanwhile.
func (a *SyncAgent) pushSnapshot(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	posts, err := a.repo.ListPosts(reqCtx)
	if err != nil {
		logrus.WithError(err).Error("[SYNC] Failed to load posts for snapshot")
		return
	}

	if err := a.remote.PushSnapshot(reqCtx, posts); err != nil {
		logrus.WithError(err).Warn("[SYNC] Snapshot push failed, will retry on next heartbeat")
		return
	}

	logrus.Debugf("[SYNC] Snapshot pushed, %d post(s)", len(posts))
}

func (a *SyncAgent) requestSweep(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	outcome, err := a.remote.RequestSweep(reqCtx)
	if err != nil {
		logrus.WithError(err).Warn("[SYNC] Remote sweep request failed")
		return
	}
	if len(outcome.Results) > 0 {
		logrus.Infof("[SYNC] Remote sweep: %s (%d result(s))", outcome.Message, len(outcome.Results))
	}
}
