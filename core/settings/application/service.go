package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nivaro/postpilot/core/settings/domain"
	"github.com/nivaro/postpilot/core/settings/infrastructure"
	"gorm.io/gorm"
)

type SettingsService struct {
	repo domain.ISettingsRepository
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{
		repo: infrastructure.NewGlobalSettingsGormRepository(db),
	}
}

// DynamicSettings are the operator-tunable values. Zero fields mean
// "not set, use the environment default".
type DynamicSettings struct {
	DefaultTone     string
	ContentProvider string
	ContentModel    string
	MaxContentChars int
}

func (s *SettingsService) GetDynamicSettings(ctx context.Context) (*DynamicSettings, error) {
	if err := s.repo.InitSchema(ctx); err != nil {
		return nil, err
	}

	ds := &DynamicSettings{}

	if val, _ := s.repo.Get(ctx, domain.KeyDefaultTone); val != "" {
		ds.DefaultTone = val
	}
	if val, _ := s.repo.Get(ctx, domain.KeyContentProvider); val != "" {
		ds.ContentProvider = strings.ToLower(val)
	}
	if val, _ := s.repo.Get(ctx, domain.KeyContentModel); val != "" {
		ds.ContentModel = val
	}
	if val, _ := s.repo.Get(ctx, domain.KeyMaxContentChars); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			ds.MaxContentChars = n
		}
	}
	return ds, nil
}

// DefaultTone returns the stored tone fallback, empty when the operator
// has not set one.
func (s *SettingsService) DefaultTone(ctx context.Context) string {
	v, _ := s.repo.Get(ctx, domain.KeyDefaultTone)
	return v
}

// MaxContentChars returns the stored draft length cap, zero when the
// operator has not set one.
func (s *SettingsService) MaxContentChars(ctx context.Context) int {
	v, _ := s.repo.Get(ctx, domain.KeyMaxContentChars)
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (s *SettingsService) SetDefaultTone(ctx context.Context, v string) error {
	return s.repo.Set(ctx, domain.KeyDefaultTone, strings.TrimSpace(v))
}

func (s *SettingsService) SetContentProvider(ctx context.Context, v string) error {
	return s.repo.Set(ctx, domain.KeyContentProvider, strings.ToLower(strings.TrimSpace(v)))
}

func (s *SettingsService) SetContentModel(ctx context.Context, v string) error {
	return s.repo.Set(ctx, domain.KeyContentModel, strings.TrimSpace(v))
}

func (s *SettingsService) SetMaxContentChars(ctx context.Context, v int) error {
	if v < 0 {
		v = 0
	}
	return s.repo.Set(ctx, domain.KeyMaxContentChars, fmt.Sprintf("%d", v))
}
