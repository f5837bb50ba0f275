package db

import (
	"path/filepath"
	"testing"

	"github.com/yungbote/carousel-backend/internal/domain/carousel"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

func TestSQLiteServiceMigratesCarouselTables(t *testing.T) {
	svc, err := NewSQLiteService(logger.Nop(), filepath.Join(t.TempDir(), "nested", "c.db"))
	if err != nil {
		t.Fatalf("NewSQLiteService: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	if err := svc.AutoMigrateAll(); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	m := svc.DB().Migrator()
	for _, model := range []any{&carousel.Article{}, &carousel.CarouselIntent{}, &carousel.CarouselSlideVersion{}} {
		if !m.HasTable(model) {
			t.Fatalf("missing table for %T", model)
		}
	}
	if !m.HasIndex(&carousel.CarouselIntent{}, "idx_carousel_intent_article") {
		t.Fatalf("missing unique article index")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(logger.Nop(), "mysql", "", ""); err == nil {
		t.Fatalf("want error for unknown driver")
	}
}
