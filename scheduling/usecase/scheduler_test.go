package usecase_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nivaro/postpilot/scheduling/domain"
	"github.com/nivaro/postpilot/scheduling/repository"
	"github.com/nivaro/postpilot/scheduling/usecase"
)

type countingNotifier struct {
	calls int32
}

func (n *countingNotifier) NotifyChange() { atomic.AddInt32(&n.calls, 1) }

func (n *countingNotifier) count() int32 { return atomic.LoadInt32(&n.calls) }

func setup(t *testing.T) (domain.ISchedulerUsecase, *repository.SchedulerMemoryRepository, *countingNotifier) {
	t.Helper()
	repo := repository.NewSchedulerMemoryRepository()
	notifier := &countingNotifier{}
	return usecase.NewSchedulerService(repo, notifier), repo, notifier
}

func TestSchedulePost(t *testing.T) {
	uc, repo, notifier := setup(t)
	ctx := context.Background()

	scheduledAt := time.Date(2026, 4, 1, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	post, err := uc.SchedulePost(ctx, domain.SchedulePostRequest{
		TargetID:    "loc-1",
		Content:     "Opening early this Saturday",
		ScheduledAt: scheduledAt,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if post.Status != domain.PostStatusScheduled {
		t.Errorf("expected scheduled, got %s", post.Status)
	}
	if post.Kind != domain.PostKindUpdate {
		t.Errorf("expected default kind update, got %s", post.Kind)
	}
	if post.ScheduledAt.Location() != time.UTC {
		t.Error("scheduled_at must be stored in UTC")
	}
	if !post.ScheduledAt.Equal(scheduledAt) {
		t.Errorf("instant changed during UTC conversion: %v vs %v", post.ScheduledAt, scheduledAt)
	}

	// Verify persistence
	stored, err := repo.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("failed to get post: %v", err)
	}
	if stored.Content != "Opening early this Saturday" {
		t.Errorf("content lost: %s", stored.Content)
	}

	if notifier.count() != 1 {
		t.Errorf("expected 1 sync notification, got %d", notifier.count())
	}
}

func TestSchedulePostValidation(t *testing.T) {
	uc, _, notifier := setup(t)
	ctx := context.Background()

	cases := []domain.SchedulePostRequest{
		{Content: "no target", ScheduledAt: time.Now()},
		{TargetID: "loc-1", ScheduledAt: time.Now()},
		{TargetID: "loc-1", Content: "x", ScheduledAt: time.Now(), Kind: "story"},
	}
	for i, req := range cases {
		if _, err := uc.SchedulePost(ctx, req); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
	if notifier.count() != 0 {
		t.Error("rejected requests must not trigger sync")
	}
}

func TestEditPostOnlyWhileScheduled(t *testing.T) {
	uc, repo, _ := setup(t)
	ctx := context.Background()

	post, err := uc.SchedulePost(ctx, domain.SchedulePostRequest{
		TargetID:    "loc-1",
		Content:     "original",
		ScheduledAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	edited, err := uc.EditPost(ctx, domain.EditPostRequest{
		ID:          post.ID,
		Content:     "updated copy",
		ScheduledAt: time.Now().Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.Content != "updated copy" {
		t.Errorf("edit not applied: %s", edited.Content)
	}

	// Simulate the executor winning the claim.
	post, _ = repo.GetPost(ctx, post.ID)
	post.Status = domain.PostStatusPublishing
	if err := repo.UpdatePost(ctx, post); err != nil {
		t.Fatalf("update: %v", err)
	}

	_, err = uc.EditPost(ctx, domain.EditPostRequest{
		ID:          post.ID,
		Content:     "too late",
		ScheduledAt: time.Now().Add(time.Hour),
	})
	if err != domain.ErrPostNotEditable {
		t.Errorf("expected ErrPostNotEditable, got %v", err)
	}
}

// claimOnReadRepo claims the post right after it is read, standing in
// for a sweeper that wins between the service's read and its write.
type claimOnReadRepo struct {
	domain.ISchedulerRepository
	claimID string
}

func (r *claimOnReadRepo) GetPost(ctx context.Context, id string) (domain.ScheduledPost, error) {
	post, err := r.ISchedulerRepository.GetPost(ctx, id)
	if err == nil && id == r.claimID {
		_, _, _ = r.ISchedulerRepository.ClaimPost(ctx, id, time.Now())
	}
	return post, err
}

func TestEditPostLosesRaceToClaim(t *testing.T) {
	base := repository.NewSchedulerMemoryRepository()
	repo := &claimOnReadRepo{ISchedulerRepository: base}
	uc := usecase.NewSchedulerService(repo, nil)
	ctx := context.Background()

	post, err := uc.SchedulePost(ctx, domain.SchedulePostRequest{
		TargetID:    "loc-1",
		Content:     "original",
		ScheduledAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	repo.claimID = post.ID

	_, err = uc.EditPost(ctx, domain.EditPostRequest{
		ID:          post.ID,
		Content:     "too late",
		ScheduledAt: time.Now().Add(2 * time.Hour),
	})
	if err != domain.ErrPostNotEditable {
		t.Fatalf("expected ErrPostNotEditable, got %v", err)
	}

	stored, _ := base.GetPost(ctx, post.ID)
	if stored.Status != domain.PostStatusPublishing {
		t.Errorf("edit must not overwrite the claim, got %s", stored.Status)
	}
	if stored.Content != "original" {
		t.Errorf("edit must not land after a lost race, got %q", stored.Content)
	}
}

func TestDeletePostLosesRaceToClaim(t *testing.T) {
	base := repository.NewSchedulerMemoryRepository()
	repo := &claimOnReadRepo{ISchedulerRepository: base}
	uc := usecase.NewSchedulerService(repo, nil)
	ctx := context.Background()

	post, err := uc.SchedulePost(ctx, domain.SchedulePostRequest{
		TargetID:    "loc-1",
		Content:     "keep me",
		ScheduledAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	repo.claimID = post.ID

	if err := uc.DeletePost(ctx, post.ID); err != domain.ErrPostNotEditable {
		t.Fatalf("expected ErrPostNotEditable, got %v", err)
	}
	if _, err := base.GetPost(ctx, post.ID); err != nil {
		t.Errorf("post must survive a delete that lost the race: %v", err)
	}
}

func TestDeletePostRules(t *testing.T) {
	uc, repo, _ := setup(t)
	ctx := context.Background()

	post, _ := uc.SchedulePost(ctx, domain.SchedulePostRequest{
		TargetID:    "loc-1",
		Content:     "hello",
		ScheduledAt: time.Now().Add(time.Hour),
	})

	// Publishing posts cannot be deleted.
	stored, _ := repo.GetPost(ctx, post.ID)
	stored.Status = domain.PostStatusPublishing
	_ = repo.UpdatePost(ctx, stored)

	if err := uc.DeletePost(ctx, post.ID); err != domain.ErrPostNotEditable {
		t.Errorf("expected ErrPostNotEditable, got %v", err)
	}

	// Terminal posts can.
	stored.Status = domain.PostStatusFailed
	_ = repo.UpdatePost(ctx, stored)
	if err := uc.DeletePost(ctx, post.ID); err != nil {
		t.Errorf("delete of failed post should work: %v", err)
	}
}

func TestJobLifecycle(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()

	job, err := uc.CreateJob(ctx, domain.CreateJobRequest{
		Name:      "Morning specials",
		TargetIDs: []string{"loc-1"},
		Schedule:  domain.DailySchedule{At: domain.HourMinute{Hour: 9}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.Status != domain.JobStatusDraft {
		t.Errorf("new jobs start as draft, got %s", job.Status)
	}
	if job.Stats.NextRun != nil {
		t.Error("draft jobs must not have a next run")
	}

	active, err := uc.ActivateJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if active.Status != domain.JobStatusActive {
		t.Errorf("expected active, got %s", active.Status)
	}
	if active.Stats.NextRun == nil || !active.Stats.NextRun.After(time.Now()) {
		t.Errorf("activation must compute a future next run, got %v", active.Stats.NextRun)
	}

	paused, err := uc.PauseJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if paused.Status != domain.JobStatusPaused {
		t.Errorf("expected paused, got %s", paused.Status)
	}
	if paused.Stats.NextRun != nil {
		t.Error("paused jobs must not keep a next run")
	}

	if err := uc.DeleteJob(ctx, job.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := uc.GetJob(ctx, job.ID); err != domain.ErrJobNotFound {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestCreateJobValidation(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()

	_, err := uc.CreateJob(ctx, domain.CreateJobRequest{Name: "no targets"})
	if err == nil {
		t.Error("expected validation error for missing targets")
	}

	_, err = uc.CreateJob(ctx, domain.CreateJobRequest{
		Name:      "no schedule",
		TargetIDs: []string{"loc-1"},
	})
	if err == nil {
		t.Error("expected validation error for missing schedule")
	}
}

func TestIngestSnapshot(t *testing.T) {
	uc, repo, _ := setup(t)
	ctx := context.Background()

	now := time.Now().UTC()
	posts := []domain.ScheduledPost{
		{ID: "a", TargetID: "loc-1", Content: "one", ScheduledAt: now.Add(time.Hour), Status: domain.PostStatusScheduled, CreatedAt: now, UpdatedAt: now},
		{ID: "b", TargetID: "loc-2", Content: "two", ScheduledAt: now.Add(2 * time.Hour), Status: domain.PostStatusScheduled, CreatedAt: now, UpdatedAt: now},
	}
	if err := uc.IngestSnapshot(ctx, posts); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	stored, _ := repo.ListPosts(ctx)
	if len(stored) != 2 {
		t.Fatalf("expected 2 posts after ingest, got %d", len(stored))
	}

	// Pushing again with the same content must be idempotent.
	if err := uc.IngestSnapshot(ctx, posts); err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	stored, _ = repo.ListPosts(ctx)
	if len(stored) != 2 {
		t.Fatalf("expected 2 posts after repeat ingest, got %d", len(stored))
	}
}
