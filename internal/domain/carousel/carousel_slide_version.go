package carousel

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CarouselSlideVersion is one generation attempt for one slide. Rows are
// append-only; exactly one row per (intent, slide) is active.
type CarouselSlideVersion struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CarouselIntentID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_slide_version_number,priority:1;index:idx_slide_version_active,priority:1" json:"carousel_intent_id"`
	SlideNumber        int       `gorm:"column:slide_number;not null;uniqueIndex:idx_slide_version_number,priority:2;index:idx_slide_version_active,priority:2" json:"slide_number"`
	VersionNumber      int       `gorm:"column:version_number;not null;uniqueIndex:idx_slide_version_number,priority:3" json:"version_number"`
	SlideType          SlideType `gorm:"column:slide_type;not null" json:"slide_type"`
	Prompt             string    `gorm:"column:prompt;type:text" json:"prompt"`
	HeadlineText       string    `gorm:"column:headline_text" json:"headline_text"`
	Caption            *string   `gorm:"column:caption" json:"caption,omitempty"`
	ImageURL           *string   `gorm:"column:image_url;type:text" json:"image_url,omitempty"`
	UsedFallback       bool      `gorm:"column:used_fallback;not null;default:false" json:"used_fallback"`
	IsActive           bool      `gorm:"column:is_active;not null;default:false;index:idx_slide_version_active,priority:3" json:"is_active"`
	GeneratedAt        time.Time `gorm:"column:generated_at;not null" json:"generated_at"`
	GenerationProvider string    `gorm:"column:generation_provider" json:"generation_provider,omitempty"`
	GenerationError    *string   `gorm:"column:generation_error;type:text" json:"generation_error,omitempty"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (CarouselSlideVersion) TableName() string { return "carousel_slide_version" }

func (v *CarouselSlideVersion) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// MaterializePage rebuilds the page snapshot for a slide from its active
// version. Pages are never edited independently of versions.
func MaterializePage(active *CarouselSlideVersion, versionCount int) CarouselPage {
	generatedAt := active.GeneratedAt
	id := active.ID
	return CarouselPage{
		PageNumber:      active.SlideNumber,
		SlideType:       active.SlideType,
		Prompt:          active.Prompt,
		HeadlineText:    active.HeadlineText,
		Caption:         active.Caption,
		ImageURL:        active.ImageURL,
		UsedFallback:    active.UsedFallback,
		GeneratedAt:     &generatedAt,
		GenerationError: active.GenerationError,
		ActiveVersionID: &id,
		VersionCount:    versionCount,
	}
}
