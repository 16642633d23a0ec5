package application

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *SettingsService {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	svc := NewSettingsService(db)
	if _, err := svc.GetDynamicSettings(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return svc
}

func TestGenerationFallbackGetters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if got := svc.DefaultTone(ctx); got != "" {
		t.Errorf("unset tone must be empty, got %q", got)
	}
	if got := svc.MaxContentChars(ctx); got != 0 {
		t.Errorf("unset cap must be zero, got %d", got)
	}

	if err := svc.SetDefaultTone(ctx, "  playful "); err != nil {
		t.Fatalf("set tone: %v", err)
	}
	if err := svc.SetMaxContentChars(ctx, 280); err != nil {
		t.Fatalf("set cap: %v", err)
	}

	if got := svc.DefaultTone(ctx); got != "playful" {
		t.Errorf("expected trimmed tone, got %q", got)
	}
	if got := svc.MaxContentChars(ctx); got != 280 {
		t.Errorf("expected 280, got %d", got)
	}
}

func TestDynamicSettingsRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.SetContentProvider(ctx, "Gemini"); err != nil {
		t.Fatalf("set provider: %v", err)
	}
	if err := svc.SetContentModel(ctx, "gemini-2.5-flash"); err != nil {
		t.Fatalf("set model: %v", err)
	}

	ds, err := svc.GetDynamicSettings(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if ds.ContentProvider != "gemini" {
		t.Errorf("provider must be lowercased, got %q", ds.ContentProvider)
	}
	if ds.ContentModel != "gemini-2.5-flash" {
		t.Errorf("model lost: %q", ds.ContentModel)
	}
}
