package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/nivaro/postpilot/scheduling/domain"
	"gorm.io/gorm"
)

// --- Persistence Models ---

type scheduledPostModel struct {
	ID           string         `gorm:"primaryKey"`
	TargetID     string         `gorm:"column:target_id;not null;index"`
	TargetName   sql.NullString `gorm:"column:target_name"`
	Content      sql.NullString
	Kind         string         `gorm:"column:post_kind;default:'update'"`
	CallToAction sql.NullString `gorm:"column:call_to_action"`
	MediaPath    sql.NullString `gorm:"column:media_path"`
	ScheduledAt  time.Time      `gorm:"column:scheduled_at;not null;index"`
	Status       string         `gorm:"default:'scheduled';index"`
	Error        sql.NullString
	PublishedAt  *time.Time `gorm:"column:published_at"`
	CreatedAt    time.Time  `gorm:"not null"`
	UpdatedAt    time.Time  `gorm:"not null"`
}

func (scheduledPostModel) TableName() string { return "scheduled_posts" }

type recurringJobModel struct {
	ID             string `gorm:"primaryKey"`
	Name           string `gorm:"not null"`
	TargetIDs      sql.NullString `gorm:"column:target_ids"` // JSON
	ScheduleKind   string         `gorm:"column:schedule_kind;not null"`
	ScheduleConfig sql.NullString `gorm:"column:schedule_config"` // JSON
	Status         string         `gorm:"default:'draft';index"`
	Settings       sql.NullString `gorm:"column:settings"` // JSON
	TotalRuns      int            `gorm:"column:total_runs;default:0"`
	SuccessfulRuns int            `gorm:"column:successful_runs;default:0"`
	FailedRuns     int            `gorm:"column:failed_runs;default:0"`
	LastRun        *time.Time     `gorm:"column:last_run"`
	NextRun        *time.Time     `gorm:"column:next_run;index"`
	CreatedAt      time.Time      `gorm:"not null"`
	UpdatedAt      time.Time      `gorm:"not null"`
}

func (recurringJobModel) TableName() string { return "recurring_jobs" }

// --- Repository Implementation ---

type SchedulerGormRepository struct {
	db *gorm.DB
}

func NewSchedulerGormRepository(db *gorm.DB) *SchedulerGormRepository {
	return &SchedulerGormRepository{db: db}
}

func (r *SchedulerGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&scheduledPostModel{},
		&recurringJobModel{},
	)
}

// Scheduled Posts

func (r *SchedulerGormRepository) CreatePost(ctx context.Context, post domain.ScheduledPost) error {
	model := toPostModel(post)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *SchedulerGormRepository) GetPost(ctx context.Context, id string) (domain.ScheduledPost, error) {
	var m scheduledPostModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ScheduledPost{}, domain.ErrPostNotFound
		}
		return domain.ScheduledPost{}, err
	}
	return fromPostModel(m), nil
}

func (r *SchedulerGormRepository) ListPosts(ctx context.Context) ([]domain.ScheduledPost, error) {
	var models []scheduledPostModel
	if err := r.db.WithContext(ctx).Order("scheduled_at ASC, id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return fromPostModels(models), nil
}

func (r *SchedulerGormRepository) ListPostsByTarget(ctx context.Context, targetID string) ([]domain.ScheduledPost, error) {
	var models []scheduledPostModel
	if err := r.db.WithContext(ctx).Where("target_id = ?", targetID).Order("scheduled_at ASC, id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return fromPostModels(models), nil
}

func (r *SchedulerGormRepository) ListDuePosts(ctx context.Context, now time.Time) ([]domain.ScheduledPost, error) {
	var models []scheduledPostModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", string(domain.PostStatusScheduled), now).
		Order("scheduled_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return fromPostModels(models), nil
}

func (r *SchedulerGormRepository) UpdatePost(ctx context.Context, post domain.ScheduledPost) error {
	post.UpdatedAt = time.Now().UTC()
	model := toPostModel(post)
	return r.db.WithContext(ctx).Save(&model).Error
}

// UpdatePostIfScheduled is the edit-side counterpart of ClaimPost: the
// write lands only while the stored status is still scheduled, so an edit
// racing a sweeper cannot re-arm a claimed post.
func (r *SchedulerGormRepository) UpdatePostIfScheduled(ctx context.Context, post domain.ScheduledPost) (bool, error) {
	post.UpdatedAt = time.Now().UTC()
	model := toPostModel(post)
	res := r.db.WithContext(ctx).Model(&scheduledPostModel{}).
		Where("id = ? AND status = ?", post.ID, string(domain.PostStatusScheduled)).
		Select("*").Updates(&model)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *SchedulerGormRepository) DeletePost(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&scheduledPostModel{}, "id = ?", id).Error
}

func (r *SchedulerGormRepository) DeletePostIfNotPublishing(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status <> ?", id, string(domain.PostStatusPublishing)).
		Delete(&scheduledPostModel{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ClaimPost performs the scheduled->publishing transition as a conditional
// update so concurrent local and remote sweeps cannot both win.
func (r *SchedulerGormRepository) ClaimPost(ctx context.Context, id string, now time.Time) (domain.ScheduledPost, bool, error) {
	res := r.db.WithContext(ctx).Model(&scheduledPostModel{}).
		Where("id = ? AND status = ?", id, string(domain.PostStatusScheduled)).
		Updates(map[string]interface{}{
			"status":     string(domain.PostStatusPublishing),
			"updated_at": now.UTC(),
		})
	if res.Error != nil {
		return domain.ScheduledPost{}, false, res.Error
	}
	post, err := r.GetPost(ctx, id)
	if err != nil {
		return domain.ScheduledPost{}, false, err
	}
	return post, res.RowsAffected == 1, nil
}

// ReplaceAllPosts ingests a pushed snapshot as the new working set.
// Records that already left the scheduled state locally keep their stored
// status; overwriting them could re-arm a post another sweeper is publishing.
func (r *SchedulerGormRepository) ReplaceAllPosts(ctx context.Context, posts []domain.ScheduledPost) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		incoming := make(map[string]bool, len(posts))
		for _, p := range posts {
			incoming[p.ID] = true

			var existing scheduledPostModel
			err := tx.First(&existing, "id = ?", p.ID).Error
			switch {
			case err == gorm.ErrRecordNotFound:
				model := toPostModel(p)
				if err := tx.Create(&model).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			case existing.Status == string(domain.PostStatusScheduled):
				model := toPostModel(p)
				if err := tx.Save(&model).Error; err != nil {
					return err
				}
			}
		}

		// Scheduled posts absent from the snapshot were deleted at the source.
		var stored []scheduledPostModel
		if err := tx.Where("status = ?", string(domain.PostStatusScheduled)).Find(&stored).Error; err != nil {
			return err
		}
		for _, m := range stored {
			if !incoming[m.ID] {
				if err := tx.Delete(&scheduledPostModel{}, "id = ?", m.ID).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (r *SchedulerGormRepository) CountPendingPosts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&scheduledPostModel{}).
		Where("status IN ?", []string{string(domain.PostStatusScheduled), string(domain.PostStatusPublishing)}).
		Count(&count).Error
	return count, err
}

// Recurring Jobs

func (r *SchedulerGormRepository) CreateJob(ctx context.Context, job domain.RecurringJob) error {
	model, err := toJobModel(job)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *SchedulerGormRepository) GetJob(ctx context.Context, id string) (domain.RecurringJob, error) {
	var m recurringJobModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.RecurringJob{}, domain.ErrJobNotFound
		}
		return domain.RecurringJob{}, err
	}
	return fromJobModel(m)
}

func (r *SchedulerGormRepository) ListJobs(ctx context.Context) ([]domain.RecurringJob, error) {
	var models []recurringJobModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	jobs := make([]domain.RecurringJob, 0, len(models))
	for _, m := range models {
		job, err := fromJobModel(m)
		if err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (r *SchedulerGormRepository) ListDueJobs(ctx context.Context, now time.Time) ([]domain.RecurringJob, error) {
	var models []recurringJobModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_run IS NOT NULL AND next_run <= ?", string(domain.JobStatusActive), now).
		Order("next_run ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	jobs := make([]domain.RecurringJob, 0, len(models))
	for _, m := range models {
		job, err := fromJobModel(m)
		if err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (r *SchedulerGormRepository) UpdateJob(ctx context.Context, job domain.RecurringJob) error {
	job.UpdatedAt = time.Now().UTC()
	model, err := toJobModel(job)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(&model).Error
}

func (r *SchedulerGormRepository) DeleteJob(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&recurringJobModel{}, "id = ?", id).Error
}

// --- Mappers ---

func toPostModel(p domain.ScheduledPost) scheduledPostModel {
	return scheduledPostModel{
		ID:           p.ID,
		TargetID:     p.TargetID,
		TargetName:   sql.NullString{String: p.TargetName, Valid: p.TargetName != ""},
		Content:      sql.NullString{String: p.Content, Valid: p.Content != ""},
		Kind:         string(p.Kind),
		CallToAction: sql.NullString{String: p.CallToAction, Valid: p.CallToAction != ""},
		MediaPath:    sql.NullString{String: p.MediaPath, Valid: p.MediaPath != ""},
		ScheduledAt:  p.ScheduledAt,
		Status:       string(p.Status),
		Error:        sql.NullString{String: p.Error, Valid: p.Error != ""},
		PublishedAt:  p.PublishedAt,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func fromPostModel(m scheduledPostModel) domain.ScheduledPost {
	return domain.ScheduledPost{
		ID:           m.ID,
		TargetID:     m.TargetID,
		TargetName:   nullStringValue(m.TargetName),
		Content:      nullStringValue(m.Content),
		Kind:         domain.PostKind(m.Kind),
		CallToAction: nullStringValue(m.CallToAction),
		MediaPath:    nullStringValue(m.MediaPath),
		ScheduledAt:  m.ScheduledAt,
		Status:       domain.PostStatus(m.Status),
		Error:        nullStringValue(m.Error),
		PublishedAt:  m.PublishedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func fromPostModels(models []scheduledPostModel) []domain.ScheduledPost {
	res := make([]domain.ScheduledPost, len(models))
	for i, m := range models {
		res[i] = fromPostModel(m)
	}
	return res
}

func toJobModel(j domain.RecurringJob) (recurringJobModel, error) {
	kind, scheduleJSON, err := domain.EncodeSchedule(j.Schedule)
	if err != nil {
		return recurringJobModel{}, err
	}
	targets, _ := json.Marshal(j.TargetIDs)
	settings, _ := json.Marshal(j.Settings)
	return recurringJobModel{
		ID:             j.ID,
		Name:           j.Name,
		TargetIDs:      sql.NullString{String: string(targets), Valid: true},
		ScheduleKind:   string(kind),
		ScheduleConfig: sql.NullString{String: scheduleJSON, Valid: true},
		Status:         string(j.Status),
		Settings:       sql.NullString{String: string(settings), Valid: true},
		TotalRuns:      j.Stats.TotalRuns,
		SuccessfulRuns: j.Stats.SuccessfulRuns,
		FailedRuns:     j.Stats.FailedRuns,
		LastRun:        j.Stats.LastRun,
		NextRun:        j.Stats.NextRun,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
	}, nil
}

func fromJobModel(m recurringJobModel) (domain.RecurringJob, error) {
	schedule, err := domain.DecodeSchedule(domain.ScheduleKind(m.ScheduleKind), nullStringValue(m.ScheduleConfig))
	if err != nil {
		return domain.RecurringJob{}, err
	}
	var targets []string
	if s := nullStringValue(m.TargetIDs); s != "" {
		_ = json.Unmarshal([]byte(s), &targets)
	}
	var settings domain.GenerationSettings
	if s := nullStringValue(m.Settings); s != "" {
		_ = json.Unmarshal([]byte(s), &settings)
	}
	return domain.RecurringJob{
		ID:        m.ID,
		Name:      m.Name,
		TargetIDs: targets,
		Schedule:  schedule,
		Status:    domain.JobStatus(m.Status),
		Settings:  settings,
		Stats: domain.JobStats{
			TotalRuns:      m.TotalRuns,
			SuccessfulRuns: m.SuccessfulRuns,
			FailedRuns:     m.FailedRuns,
			LastRun:        m.LastRun,
			NextRun:        m.NextRun,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

// nullStringValue returns a trimmed string or empty if null to prevent legacy data panics.
func nullStringValue(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return strings.TrimSpace(ns.String)
}
