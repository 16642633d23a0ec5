package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/nivaro/postpilot/scheduling/domain"
	"github.com/nivaro/postpilot/scheduling/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupGormRepo(t *testing.T) *repository.SchedulerGormRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	repo := repository.NewSchedulerGormRepository(db)
	if err := repo.Init(context.Background()); err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	return repo
}

func testPost(id, targetID string, scheduledAt time.Time) domain.ScheduledPost {
	now := time.Now().UTC()
	return domain.ScheduledPost{
		ID:          id,
		TargetID:    targetID,
		Content:     "Fresh pastries every morning",
		Kind:        domain.PostKindUpdate,
		ScheduledAt: scheduledAt,
		Status:      domain.PostStatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// repos returns both implementations so the contract tests cover each.
func repos(t *testing.T) map[string]domain.ISchedulerRepository {
	return map[string]domain.ISchedulerRepository{
		"gorm":   setupGormRepo(t),
		"memory": repository.NewSchedulerMemoryRepository(),
	}
}

func TestListDuePostsOrdering(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			// Inserted out of order on purpose.
			for _, p := range []domain.ScheduledPost{
				testPost("p3", "loc-1", now.Add(-time.Minute)),
				testPost("p1", "loc-1", now.Add(-time.Hour)),
				testPost("p2", "loc-2", now.Add(-time.Hour)),
				testPost("future", "loc-1", now.Add(time.Hour)),
			} {
				if err := repo.CreatePost(ctx, p); err != nil {
					t.Fatalf("create: %v", err)
				}
			}

			due, err := repo.ListDuePosts(ctx, now)
			if err != nil {
				t.Fatalf("list due: %v", err)
			}
			if len(due) != 3 {
				t.Fatalf("expected 3 due posts, got %d", len(due))
			}
			for i, want := range []string{"p1", "p2", "p3"} {
				if due[i].ID != want {
					t.Errorf("position %d: expected %s, got %s", i, want, due[i].ID)
				}
			}
		})
	}
}

func TestClaimPostSingleWinner(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := repo.CreatePost(ctx, testPost("p1", "loc-1", now.Add(-time.Minute))); err != nil {
				t.Fatalf("create: %v", err)
			}

			post, won, err := repo.ClaimPost(ctx, "p1", now)
			if err != nil {
				t.Fatalf("first claim: %v", err)
			}
			if !won {
				t.Fatal("first claim should win")
			}
			if post.Status != domain.PostStatusPublishing {
				t.Errorf("expected publishing, got %s", post.Status)
			}

			// A second sweeper arriving late must lose.
			_, won, err = repo.ClaimPost(ctx, "p1", now)
			if err != nil {
				t.Fatalf("second claim: %v", err)
			}
			if won {
				t.Error("second claim must not win")
			}
		})
	}
}

func TestUpdatePostIfScheduledLosesToClaim(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := repo.CreatePost(ctx, testPost("p1", "loc-1", now.Add(time.Hour))); err != nil {
				t.Fatalf("create: %v", err)
			}

			// An edit started from a stale read must land while still scheduled.
			edited := testPost("p1", "loc-1", now.Add(2*time.Hour))
			edited.Content = "updated copy"
			ok, err := repo.UpdatePostIfScheduled(ctx, edited)
			if err != nil {
				t.Fatalf("conditional update: %v", err)
			}
			if !ok {
				t.Fatal("update on a scheduled post must succeed")
			}

			// A sweeper claims the post; the same edit must now bounce.
			if _, won, err := repo.ClaimPost(ctx, "p1", now); err != nil || !won {
				t.Fatalf("claim failed: won=%v err=%v", won, err)
			}
			ok, err = repo.UpdatePostIfScheduled(ctx, edited)
			if err != nil {
				t.Fatalf("conditional update after claim: %v", err)
			}
			if ok {
				t.Error("update must not overwrite a claimed post")
			}

			got, err := repo.GetPost(ctx, "p1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Status != domain.PostStatusPublishing {
				t.Errorf("claim must survive the lost edit, got %s", got.Status)
			}
		})
	}
}

func TestDeletePostIfNotPublishing(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := repo.CreatePost(ctx, testPost("busy", "loc-1", now)); err != nil {
				t.Fatalf("create: %v", err)
			}
			if _, won, err := repo.ClaimPost(ctx, "busy", now); err != nil || !won {
				t.Fatalf("claim failed: won=%v err=%v", won, err)
			}

			ok, err := repo.DeletePostIfNotPublishing(ctx, "busy")
			if err != nil {
				t.Fatalf("conditional delete: %v", err)
			}
			if ok {
				t.Error("a publishing post must not be deleted")
			}
			if _, err := repo.GetPost(ctx, "busy"); err != nil {
				t.Errorf("post must survive the blocked delete: %v", err)
			}

			done := testPost("done", "loc-1", now)
			done.Status = domain.PostStatusPublished
			if err := repo.CreatePost(ctx, done); err != nil {
				t.Fatalf("create: %v", err)
			}
			ok, err = repo.DeletePostIfNotPublishing(ctx, "done")
			if err != nil {
				t.Fatalf("conditional delete: %v", err)
			}
			if !ok {
				t.Error("a terminal post must be deletable")
			}
			if _, err := repo.GetPost(ctx, "done"); err != domain.ErrPostNotFound {
				t.Errorf("deleted post should be gone, got %v", err)
			}
		})
	}
}

func TestClaimPostNotFound(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := repo.ClaimPost(context.Background(), "missing", time.Now())
			if err == nil {
				t.Error("expected error for missing post")
			}
		})
	}
}

func TestReplaceAllPostsKeepsNonScheduled(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			publishing := testPost("busy", "loc-1", now.Add(-time.Minute))
			publishing.Status = domain.PostStatusPublishing
			if err := repo.CreatePost(ctx, publishing); err != nil {
				t.Fatalf("create: %v", err)
			}
			if err := repo.CreatePost(ctx, testPost("stale", "loc-1", now)); err != nil {
				t.Fatalf("create: %v", err)
			}

			// Snapshot claims "busy" is still scheduled and omits "stale".
			rearmed := testPost("busy", "loc-1", now.Add(-time.Minute))
			incoming := []domain.ScheduledPost{rearmed, testPost("new", "loc-2", now.Add(time.Hour))}
			if err := repo.ReplaceAllPosts(ctx, incoming); err != nil {
				t.Fatalf("replace: %v", err)
			}

			got, err := repo.GetPost(ctx, "busy")
			if err != nil {
				t.Fatalf("get busy: %v", err)
			}
			if got.Status != domain.PostStatusPublishing {
				t.Errorf("in-flight post must not be re-armed, got %s", got.Status)
			}

			if _, err := repo.GetPost(ctx, "stale"); err != domain.ErrPostNotFound {
				t.Errorf("stale scheduled post should be gone, got %v", err)
			}

			if _, err := repo.GetPost(ctx, "new"); err != nil {
				t.Errorf("new post should exist: %v", err)
			}
		})
	}
}

func TestPostRoundTripOptionalFields(t *testing.T) {
	repo := setupGormRepo(t)
	ctx := context.Background()

	publishedAt := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	post := testPost("p1", "loc-1", publishedAt)
	post.TargetName = "Corner Bakery"
	post.CallToAction = "https://example.com/order"
	post.MediaPath = "/media/loc-1/croissant.jpg"
	post.Status = domain.PostStatusPublished
	post.PublishedAt = &publishedAt

	if err := repo.CreatePost(ctx, post); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.GetPost(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TargetName != post.TargetName || got.CallToAction != post.CallToAction || got.MediaPath != post.MediaPath {
		t.Errorf("optional fields lost in round trip: %+v", got)
	}
	if got.PublishedAt == nil || !got.PublishedAt.Equal(publishedAt) {
		t.Errorf("published_at lost: %v", got.PublishedAt)
	}
}

func TestJobScheduleRoundTrip(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			nextRun := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
			job := domain.RecurringJob{
				ID:        "job-1",
				Name:      "Weekly specials",
				TargetIDs: []string{"loc-1", "loc-2"},
				Schedule: domain.WeeklySchedule{
					Days: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
					At:   domain.HourMinute{Hour: 9},
				},
				Status:    domain.JobStatusActive,
				Settings:  domain.GenerationSettings{Tone: "friendly", IncludeImage: true},
				Stats:     domain.JobStats{NextRun: &nextRun},
				CreatedAt: time.Now().UTC(),
				UpdatedAt: time.Now().UTC(),
			}
			if err := repo.CreateJob(ctx, job); err != nil {
				t.Fatalf("create job: %v", err)
			}

			got, err := repo.GetJob(ctx, "job-1")
			if err != nil {
				t.Fatalf("get job: %v", err)
			}
			weekly, ok := got.Schedule.(domain.WeeklySchedule)
			if !ok {
				t.Fatalf("expected weekly schedule, got %T", got.Schedule)
			}
			if len(weekly.Days) != 3 || weekly.At.Hour != 9 {
				t.Errorf("schedule config lost: %+v", weekly)
			}
			if len(got.TargetIDs) != 2 {
				t.Errorf("target ids lost: %v", got.TargetIDs)
			}
			if got.Settings.Tone != "friendly" || !got.Settings.IncludeImage {
				t.Errorf("settings lost: %+v", got.Settings)
			}
		})
	}
}

func TestListDueJobs(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			mk := func(id string, status domain.JobStatus, next *time.Time) domain.RecurringJob {
				return domain.RecurringJob{
					ID:        id,
					Name:      id,
					Schedule:  domain.DailySchedule{At: domain.HourMinute{Hour: 9}},
					Status:    status,
					Stats:     domain.JobStats{NextRun: next},
					CreatedAt: now,
					UpdatedAt: now,
				}
			}
			for _, j := range []domain.RecurringJob{
				mk("due", domain.JobStatusActive, &past),
				mk("later", domain.JobStatusActive, &future),
				mk("paused", domain.JobStatusPaused, &past),
				mk("draft", domain.JobStatusDraft, nil),
			} {
				if err := repo.CreateJob(ctx, j); err != nil {
					t.Fatalf("create job: %v", err)
				}
			}

			due, err := repo.ListDueJobs(ctx, now)
			if err != nil {
				t.Fatalf("list due jobs: %v", err)
			}
			if len(due) != 1 || due[0].ID != "due" {
				t.Fatalf("expected only the active past-due job, got %+v", due)
			}
		})
	}
}

func TestCountPendingPosts(t *testing.T) {
	now := time.Now().UTC()
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			done := testPost("done", "loc-1", now)
			done.Status = domain.PostStatusPublished
			for _, p := range []domain.ScheduledPost{
				testPost("a", "loc-1", now),
				testPost("b", "loc-1", now),
				done,
			} {
				if err := repo.CreatePost(ctx, p); err != nil {
					t.Fatalf("create: %v", err)
				}
			}
			count, err := repo.CountPendingPosts(ctx)
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if count != 2 {
				t.Errorf("expected 2 pending, got %d", count)
			}
		})
	}
}
