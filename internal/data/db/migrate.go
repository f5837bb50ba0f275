package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/carousel-backend/internal/domain/carousel"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&carousel.Article{},
		&carousel.CarouselIntent{},
		&carousel.CarouselSlideVersion{},
	)
}

// EnsureCarouselIndexes adds postgres-only indexes gorm tags cannot express.
func EnsureCarouselIndexes(db *gorm.DB) error {
	// At most one active version per slide.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_slide_version_one_active
		ON carousel_slide_version (carousel_intent_id, slide_number)
		WHERE is_active;
	`).Error; err != nil {
		return fmt.Errorf("create idx_slide_version_one_active: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_slide_version_history
		ON carousel_slide_version (carousel_intent_id, slide_number, version_number DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_slide_version_history: %w", err)
	}
	return nil
}
