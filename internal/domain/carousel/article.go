package carousel

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ArticleTypeDeepDive = "deep_dive"
	ArticleTypeHowTo    = "how_to"
)

// Article is written by the upstream authoring pipeline; the carousel
// pipeline only reads it.
type Article struct {
	ID           uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	Title        string                      `gorm:"column:title;not null" json:"title"`
	Subtitle     string                      `gorm:"column:subtitle" json:"subtitle,omitempty"`
	Introduction string                      `gorm:"column:introduction;type:text" json:"introduction"`
	Sections     datatypes.JSONSlice[string] `gorm:"column:sections" json:"sections"`
	Conclusion   string                      `gorm:"column:conclusion;type:text" json:"conclusion"`
	ArticleType  string                      `gorm:"column:article_type;index" json:"article_type"`
	CreatedAt    time.Time                   `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Article) TableName() string { return "article" }

func (a *Article) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
