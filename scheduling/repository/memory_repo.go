package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nivaro/postpilot/scheduling/domain"
)

// SchedulerMemoryRepository is a mutex-guarded in-memory implementation.
// It backs tests and the ephemeral mode where no database path is set.
type SchedulerMemoryRepository struct {
	mu    sync.RWMutex
	posts map[string]domain.ScheduledPost
	jobs  map[string]domain.RecurringJob
}

func NewSchedulerMemoryRepository() *SchedulerMemoryRepository {
	return &SchedulerMemoryRepository{
		posts: make(map[string]domain.ScheduledPost),
		jobs:  make(map[string]domain.RecurringJob),
	}
}

func (r *SchedulerMemoryRepository) Init(ctx context.Context) error { return nil }

// Scheduled Posts

func (r *SchedulerMemoryRepository) CreatePost(ctx context.Context, post domain.ScheduledPost) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[post.ID] = post
	return nil
}

func (r *SchedulerMemoryRepository) GetPost(ctx context.Context, id string) (domain.ScheduledPost, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	post, ok := r.posts[id]
	if !ok {
		return domain.ScheduledPost{}, domain.ErrPostNotFound
	}
	return post, nil
}

func (r *SchedulerMemoryRepository) ListPosts(ctx context.Context) ([]domain.ScheduledPost, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collectPosts(func(domain.ScheduledPost) bool { return true }), nil
}

func (r *SchedulerMemoryRepository) ListPostsByTarget(ctx context.Context, targetID string) ([]domain.ScheduledPost, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collectPosts(func(p domain.ScheduledPost) bool { return p.TargetID == targetID }), nil
}

func (r *SchedulerMemoryRepository) ListDuePosts(ctx context.Context, now time.Time) ([]domain.ScheduledPost, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collectPosts(func(p domain.ScheduledPost) bool {
		return p.Status == domain.PostStatusScheduled && !p.ScheduledAt.After(now)
	}), nil
}

func (r *SchedulerMemoryRepository) UpdatePost(ctx context.Context, post domain.ScheduledPost) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[post.ID]; !ok {
		return domain.ErrPostNotFound
	}
	post.UpdatedAt = time.Now().UTC()
	r.posts[post.ID] = post
	return nil
}

func (r *SchedulerMemoryRepository) UpdatePostIfScheduled(ctx context.Context, post domain.ScheduledPost) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.posts[post.ID]
	if !ok || existing.Status != domain.PostStatusScheduled {
		return false, nil
	}
	post.UpdatedAt = time.Now().UTC()
	r.posts[post.ID] = post
	return true, nil
}

func (r *SchedulerMemoryRepository) DeletePost(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	return nil
}

func (r *SchedulerMemoryRepository) DeletePostIfNotPublishing(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.posts[id]
	if !ok || existing.Status == domain.PostStatusPublishing {
		return false, nil
	}
	delete(r.posts, id)
	return true, nil
}

func (r *SchedulerMemoryRepository) ClaimPost(ctx context.Context, id string, now time.Time) (domain.ScheduledPost, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok {
		return domain.ScheduledPost{}, false, domain.ErrPostNotFound
	}
	if post.Status != domain.PostStatusScheduled {
		return post, false, nil
	}
	post.Status = domain.PostStatusPublishing
	post.UpdatedAt = now.UTC()
	r.posts[id] = post
	return post, true, nil
}

func (r *SchedulerMemoryRepository) ReplaceAllPosts(ctx context.Context, posts []domain.ScheduledPost) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	incoming := make(map[string]bool, len(posts))
	for _, p := range posts {
		incoming[p.ID] = true
		existing, ok := r.posts[p.ID]
		if !ok || existing.Status == domain.PostStatusScheduled {
			r.posts[p.ID] = p
		}
	}
	for id, p := range r.posts {
		if p.Status == domain.PostStatusScheduled && !incoming[id] {
			delete(r.posts, id)
		}
	}
	return nil
}

func (r *SchedulerMemoryRepository) CountPendingPosts(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, p := range r.posts {
		if p.Status == domain.PostStatusScheduled || p.Status == domain.PostStatusPublishing {
			count++
		}
	}
	return count, nil
}

// Recurring Jobs

func (r *SchedulerMemoryRepository) CreateJob(ctx context.Context, job domain.RecurringJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return nil
}

func (r *SchedulerMemoryRepository) GetJob(ctx context.Context, id string) (domain.RecurringJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.RecurringJob{}, domain.ErrJobNotFound
	}
	return job, nil
}

func (r *SchedulerMemoryRepository) ListJobs(ctx context.Context) ([]domain.RecurringJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	jobs := make([]domain.RecurringJob, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].CreatedAt.Before(jobs[k].CreatedAt) })
	return jobs, nil
}

func (r *SchedulerMemoryRepository) ListDueJobs(ctx context.Context, now time.Time) ([]domain.RecurringJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	jobs := make([]domain.RecurringJob, 0)
	for _, j := range r.jobs {
		if j.IsDue(now) {
			jobs = append(jobs, j)
		}
	}
	sort.Slice(jobs, func(i, k int) bool {
		a, b := jobs[i].Stats.NextRun, jobs[k].Stats.NextRun
		if a.Equal(*b) {
			return jobs[i].ID < jobs[k].ID
		}
		return a.Before(*b)
	})
	return jobs, nil
}

func (r *SchedulerMemoryRepository) UpdateJob(ctx context.Context, job domain.RecurringJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return domain.ErrJobNotFound
	}
	job.UpdatedAt = time.Now().UTC()
	r.jobs[job.ID] = job
	return nil
}

func (r *SchedulerMemoryRepository) DeleteJob(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	return nil
}

// collectPosts snapshots matching posts ordered by scheduled_at with an id
// tie-break, mirroring the SQL implementation. Caller holds the lock.
func (r *SchedulerMemoryRepository) collectPosts(match func(domain.ScheduledPost) bool) []domain.ScheduledPost {
	res := make([]domain.ScheduledPost, 0)
	for _, p := range r.posts {
		if match(p) {
			res = append(res, p)
		}
	}
	sort.Slice(res, func(i, k int) bool {
		if res[i].ScheduledAt.Equal(res[k].ScheduledAt) {
			return res[i].ID < res[k].ID
		}
		return res[i].ScheduledAt.Before(res[k].ScheduledAt)
	})
	return res
}
