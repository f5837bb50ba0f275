package carousel

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SlideType string

const (
	SlideTypeTitle   SlideType = "title"
	SlideTypeContent SlideType = "content"
	SlideTypeCTA     SlideType = "cta"
)

// CarouselPage is one slide of the intent's page snapshot. It mirrors the
// slide's active CarouselSlideVersion; see MaterializePage.
type CarouselPage struct {
	PageNumber      int        `json:"page_number"`
	SlideType       SlideType  `json:"slide_type"`
	Prompt          string     `json:"prompt"`
	HeadlineText    string     `json:"headline_text"`
	Caption         *string    `json:"caption,omitempty"`
	ImageURL        *string    `json:"image_url"`
	UsedFallback    bool       `json:"used_fallback"`
	GeneratedAt     *time.Time `json:"generated_at,omitempty"`
	GenerationError *string    `json:"generation_error,omitempty"`
	ActiveVersionID *uuid.UUID `json:"active_version_id,omitempty"`
	VersionCount    int        `json:"version_count"`
}

func (p CarouselPage) HasImage() bool { return p.ImageURL != nil && *p.ImageURL != "" }

// CarouselIntent is the single carousel record for an article.
type CarouselIntent struct {
	ID                 uuid.UUID                         `gorm:"type:uuid;primaryKey" json:"id"`
	ArticleID          uuid.UUID                         `gorm:"type:uuid;not null;uniqueIndex:idx_carousel_intent_article" json:"article_id"`
	PageCount          int                               `gorm:"column:page_count;not null;default:0" json:"page_count"`
	Pages              datatypes.JSONSlice[CarouselPage] `gorm:"column:pages" json:"pages"`
	StylePreset        string                            `gorm:"column:style_preset" json:"style_preset,omitempty"`
	GeneratedPDFURL    *string                           `gorm:"column:generated_pdf_url;type:text" json:"generated_pdf_url,omitempty"`
	GenerationProvider string                            `gorm:"column:generation_provider" json:"generation_provider,omitempty"`
	GenerationError    *string                           `gorm:"column:generation_error;type:text" json:"generation_error,omitempty"`
	GeneratedAt        *time.Time                        `gorm:"column:generated_at" json:"generated_at,omitempty"`
	CreatedAt          time.Time                         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time                         `gorm:"autoUpdateTime;index" json:"updated_at"`
}

func (CarouselIntent) TableName() string { return "carousel_intent" }

func (c *CarouselIntent) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// IsCached reports whether a finished document is already stored.
func (c *CarouselIntent) IsCached() bool {
	return c.GeneratedPDFURL != nil && *c.GeneratedPDFURL != ""
}

// Page returns a pointer into Pages for 1-based pageNumber, or nil.
func (c *CarouselIntent) Page(pageNumber int) *CarouselPage {
	for i := range c.Pages {
		if c.Pages[i].PageNumber == pageNumber {
			return &c.Pages[i]
		}
	}
	return nil
}

// ImageURLs returns image URLs of pages that have one, in page order.
func (c *CarouselIntent) ImageURLs() []string {
	out := make([]string, 0, len(c.Pages))
	for _, p := range c.Pages {
		if p.HasImage() {
			out = append(out, *p.ImageURL)
		}
	}
	return out
}
