package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/carousel-backend/internal/domain/carousel"
)

func SeedArticle(tb testing.TB, ctx context.Context, tx *gorm.DB, articleType string, sections ...string) *types.Article {
	tb.Helper()
	a := &types.Article{
		ID:           uuid.New(),
		Title:        "Seeded article",
		Introduction: "intro",
		Sections:     sections,
		Conclusion:   "done",
		ArticleType:  articleType,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed article: %v", err)
	}
	return a
}

// SeedIntent stores a planned carousel: title first, CTA last, content
// slides between, no images yet.
func SeedIntent(tb testing.TB, ctx context.Context, tx *gorm.DB, articleID uuid.UUID, pageCount int) *types.CarouselIntent {
	tb.Helper()
	pages := make([]types.CarouselPage, pageCount)
	for i := range pages {
		typ := types.SlideTypeContent
		switch i {
		case 0:
			typ = types.SlideTypeTitle
		case pageCount - 1:
			typ = types.SlideTypeCTA
		}
		pages[i] = types.CarouselPage{PageNumber: i + 1, SlideType: typ, HeadlineText: "h", Prompt: "p"}
	}
	intent := &types.CarouselIntent{
		ID:        uuid.New(),
		ArticleID: articleID,
		PageCount: pageCount,
		Pages:     pages,
	}
	if err := tx.WithContext(ctx).Create(intent).Error; err != nil {
		tb.Fatalf("seed carousel intent: %v", err)
	}
	return intent
}

func SeedVersion(tb testing.TB, ctx context.Context, tx *gorm.DB, intentID uuid.UUID, slide, version int, active bool) *types.CarouselSlideVersion {
	tb.Helper()
	url := "https://cdn.example/" + uuid.NewString() + ".png"
	v := &types.CarouselSlideVersion{
		ID:               uuid.New(),
		CarouselIntentID: intentID,
		SlideNumber:      slide,
		VersionNumber:    version,
		SlideType:        types.SlideTypeContent,
		Prompt:           "p",
		HeadlineText:     "h",
		ImageURL:         &url,
		IsActive:         active,
		GeneratedAt:      time.Now().UTC().Add(time.Duration(version) * time.Second),
	}
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed slide version: %v", err)
	}
	return v
}
