package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nivaro/postpilot/publisher"
	"github.com/nivaro/postpilot/scheduling/domain"
	"github.com/nivaro/postpilot/scheduling/repository"
)

type fakeNotifier struct {
	n int32
}

func (f *fakeNotifier) NotifyChange() {
	atomic.AddInt32(&f.n, 1)
}

func (f *fakeNotifier) count() int32 {
	return atomic.LoadInt32(&f.n)
}

type fakePublisher struct {
	mu       sync.Mutex
	requests []publisher.PublishRequest
	failFor  map[string]error
}

func (f *fakePublisher) Publish(ctx context.Context, request publisher.PublishRequest) (publisher.PublishResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, request)
	if err, ok := f.failFor[request.TargetID]; ok {
		return publisher.PublishResult{}, err
	}
	return publisher.PublishResult{RemoteID: "remote-1", PublishedAt: time.Now().UTC()}, nil
}

func (f *fakePublisher) published() []publisher.PublishRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publisher.PublishRequest(nil), f.requests...)
}

func seedPost(t *testing.T, repo domain.ISchedulerRepository, id, targetID string, at time.Time) {
	t.Helper()
	now := time.Now().UTC()
	err := repo.CreatePost(context.Background(), domain.ScheduledPost{
		ID:          id,
		TargetID:    targetID,
		Content:     "content for " + id,
		Kind:        domain.PostKindUpdate,
		ScheduledAt: at,
		Status:      domain.PostStatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestSweepPublishesDuePosts(t *testing.T) {
	repo := repository.NewSchedulerMemoryRepository()
	pub := &fakePublisher{}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	seedPost(t, repo, "due-1", "loc-1", now.Add(-time.Minute))
	seedPost(t, repo, "due-2", "loc-2", now.Add(-time.Hour))
	seedPost(t, repo, "future", "loc-1", now.Add(time.Hour))

	exec := NewLocalExecutor(repo, pub, ExecutorOptions{Now: func() time.Time { return now }})
	exec.Sweep(context.Background())

	if got := len(pub.published()); got != 2 {
		t.Fatalf("expected 2 publishes, got %d", got)
	}

	for _, id := range []string{"due-1", "due-2"} {
		post, err := repo.GetPost(context.Background(), id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if post.Status != domain.PostStatusPublished {
			t.Errorf("%s: expected published, got %s", id, post.Status)
		}
		if post.PublishedAt == nil {
			t.Errorf("%s: published_at not set", id)
		}
	}

	future, _ := repo.GetPost(context.Background(), "future")
	if future.Status != domain.PostStatusScheduled {
		t.Errorf("future post must stay scheduled, got %s", future.Status)
	}
}

func TestSweepMarksFailuresAndContinues(t *testing.T) {
	repo := repository.NewSchedulerMemoryRepository()
	pub := &fakePublisher{failFor: map[string]error{"loc-bad": errors.New("listing API rejected the post")}}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	seedPost(t, repo, "bad", "loc-bad", now.Add(-2*time.Hour))
	seedPost(t, repo, "good", "loc-ok", now.Add(-time.Hour))

	exec := NewLocalExecutor(repo, pub, ExecutorOptions{Now: func() time.Time { return now }})
	exec.Sweep(context.Background())

	bad, _ := repo.GetPost(context.Background(), "bad")
	if bad.Status != domain.PostStatusFailed {
		t.Errorf("expected failed, got %s", bad.Status)
	}
	if bad.Error == "" {
		t.Error("failure must record a non-empty error")
	}
	if bad.PublishedAt != nil {
		t.Error("failed post must not carry published_at")
	}

	// One target failing never blocks the rest of the sweep.
	good, _ := repo.GetPost(context.Background(), "good")
	if good.Status != domain.PostStatusPublished {
		t.Errorf("expected published, got %s", good.Status)
	}
}

func TestSweepSkipsAlreadyClaimedPosts(t *testing.T) {
	repo := repository.NewSchedulerMemoryRepository()
	pub := &fakePublisher{}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	seedPost(t, repo, "p1", "loc-1", now.Add(-time.Minute))

	// A competing sweeper claims the post between listing and execution.
	if _, won, err := repo.ClaimPost(context.Background(), "p1", now); err != nil || !won {
		t.Fatalf("setup claim failed: won=%v err=%v", won, err)
	}

	exec := NewLocalExecutor(repo, pub, ExecutorOptions{Now: func() time.Time { return now }})
	exec.executePost(context.Background(), "p1")

	if len(pub.published()) != 0 {
		t.Error("lost claim must not publish")
	}
}

func TestSweepReportsPerPostOutcomes(t *testing.T) {
	repo := repository.NewSchedulerMemoryRepository()
	pub := &fakePublisher{failFor: map[string]error{"loc-bad": errors.New("rejected")}}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	seedPost(t, repo, "good", "loc-ok", now.Add(-2*time.Hour))
	seedPost(t, repo, "bad", "loc-bad", now.Add(-time.Hour))

	exec := NewLocalExecutor(repo, pub, ExecutorOptions{Now: func() time.Time { return now }})
	results := exec.Sweep(context.Background())

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	byID := make(map[string]SweepResult, len(results))
	for _, r := range results {
		byID[r.PostID] = r
	}
	if r := byID["good"]; r.Status != domain.PostStatusPublished || r.Error != "" {
		t.Errorf("unexpected result for good: %+v", r)
	}
	if r := byID["bad"]; r.Status != domain.PostStatusFailed || r.Error == "" {
		t.Errorf("failed result must carry the cause: %+v", r)
	}
}

func TestSweepNotifiesSyncMirror(t *testing.T) {
	repo := repository.NewSchedulerMemoryRepository()
	pub := &fakePublisher{failFor: map[string]error{"loc-bad": errors.New("rejected")}}
	notifier := &fakeNotifier{}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	seedPost(t, repo, "good", "loc-ok", now.Add(-time.Hour))
	seedPost(t, repo, "bad", "loc-bad", now.Add(-time.Minute))

	exec := NewLocalExecutor(repo, pub, ExecutorOptions{
		Notifier: notifier,
		Now:      func() time.Time { return now },
	})
	exec.Sweep(context.Background())

	// Both the published and the failed transition must ping the mirror;
	// without it the remote only catches up on the heartbeat.
	if got := notifier.count(); got < 2 {
		t.Errorf("expected at least 2 change notifications, got %d", got)
	}
}

func TestSweepGuardsAgainstOverlap(t *testing.T) {
	repo := repository.NewSchedulerMemoryRepository()
	pub := &fakePublisher{}
	now := time.Now()

	exec := NewLocalExecutor(repo, pub, ExecutorOptions{Now: func() time.Time { return now }})
	exec.running = 1 // a sweep is in flight

	seedPost(t, repo, "p1", "loc-1", now.Add(-time.Minute))
	exec.Sweep(context.Background())

	if len(pub.published()) != 0 {
		t.Error("overlapping sweep must be skipped")
	}
}

func TestFailedPostsAreNotRetried(t *testing.T) {
	repo := repository.NewSchedulerMemoryRepository()
	pub := &fakePublisher{failFor: map[string]error{"loc-1": errors.New("boom")}}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	seedPost(t, repo, "p1", "loc-1", now.Add(-time.Minute))

	exec := NewLocalExecutor(repo, pub, ExecutorOptions{Now: func() time.Time { return now }})
	exec.Sweep(context.Background())
	exec.Sweep(context.Background())

	if got := len(pub.published()); got != 1 {
		t.Errorf("failed post must not be retried, got %d publish attempts", got)
	}
}
