package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/carousel-backend/internal/domain/carousel"
	"github.com/yungbote/carousel-backend/internal/pkg/dbctx"
)

type CarouselStatusInput struct {
	ArticleID uuid.UUID `json:"article_id"`
}

type CarouselStatusOutput struct {
	Exists             bool                    `json:"exists"`
	CarouselID         *uuid.UUID              `json:"carousel_id,omitempty"`
	PageCount          int                     `json:"page_count,omitempty"`
	Pages              []carousel.CarouselPage `json:"pages,omitempty"`
	PDFURL             *string                 `json:"pdf_url,omitempty"`
	GenerationError    *string                 `json:"generation_error,omitempty"`
	GenerationProvider string                  `json:"generation_provider,omitempty"`
	GeneratedAt        *time.Time              `json:"generated_at,omitempty"`
	StylePreset        string                  `json:"style_preset,omitempty"`
}

// GetCarouselStatus reports the stored carousel for an article. Version counts
// are recounted from the version table.
func GetCarouselStatus(ctx context.Context, deps CarouselDeps, in CarouselStatusInput) (CarouselStatusOutput, error) {
	dbc := dbctx.Background(ctx)
	intent, err := deps.Intents.GetByArticleID(dbc, in.ArticleID)
	if err != nil {
		return CarouselStatusOutput{}, fmt.Errorf("load carousel intent: %w", err)
	}
	if intent == nil {
		return CarouselStatusOutput{Exists: false}, nil
	}
	pages := make([]carousel.CarouselPage, len(intent.Pages))
	copy(pages, intent.Pages)
	for i := range pages {
		n, err := deps.Versions.CountBySlide(dbc, intent.ID, pages[i].PageNumber)
		if err != nil {
			return CarouselStatusOutput{}, fmt.Errorf("count slide versions: %w", err)
		}
		pages[i].VersionCount = n
	}
	id := intent.ID
	return CarouselStatusOutput{
		Exists:             true,
		CarouselID:         &id,
		PageCount:          intent.PageCount,
		Pages:              pages,
		PDFURL:             intent.GeneratedPDFURL,
		GenerationError:    intent.GenerationError,
		GenerationProvider: intent.GenerationProvider,
		GeneratedAt:        intent.GeneratedAt,
		StylePreset:        intent.StylePreset,
	}, nil
}

type CarouselDeleteInput struct {
	ArticleID uuid.UUID `json:"article_id"`
}

type CarouselDeleteOutput struct {
	CarouselID      uuid.UUID `json:"carousel_id"`
	DeletedVersions int64     `json:"deleted_versions"`
}

// DeleteCarousel removes the intent and all its versions in one transaction,
// then best-effort deletes the stored objects.
func DeleteCarousel(ctx context.Context, deps CarouselDeps, in CarouselDeleteInput) (CarouselDeleteOutput, error) {
	dbc := dbctx.Background(ctx)
	intent, err := deps.Intents.GetByArticleID(dbc, in.ArticleID)
	if err != nil {
		return CarouselDeleteOutput{}, fmt.Errorf("load carousel intent: %w", err)
	}
	if intent == nil {
		return CarouselDeleteOutput{}, ErrNotFound
	}

	unlock, err := deps.lockArticle(ctx, in.ArticleID.String())
	if err != nil {
		return CarouselDeleteOutput{}, err
	}
	defer unlock()

	res, err := deps.Carousels.DeleteCarousel(ctx, intent.ID)
	if err != nil {
		return CarouselDeleteOutput{}, fmt.Errorf("delete carousel: %w", err)
	}
	if err := deps.uploader().DeleteCarousel(ctx, intent.ID); err != nil {
		deps.log().Warn("Failed to delete carousel objects", "carousel_id", intent.ID, "error", err)
	}
	return CarouselDeleteOutput{CarouselID: res.IntentID, DeletedVersions: res.DeletedVersions}, nil
}

type SlideVersionsInput struct {
	CarouselID  uuid.UUID `json:"carousel_id"`
	SlideNumber int       `json:"slide_number"`
}

type SlideVersionsOutput struct {
	Versions []*carousel.CarouselSlideVersion `json:"versions"`
}

// GetSlideVersions lists a slide's versions newest first. A missing carousel
// yields an empty list.
func GetSlideVersions(ctx context.Context, deps CarouselDeps, in SlideVersionsInput) (SlideVersionsOutput, error) {
	dbc := dbctx.Background(ctx)
	intent, err := deps.Intents.GetByID(dbc, in.CarouselID)
	if err != nil {
		return SlideVersionsOutput{}, fmt.Errorf("load carousel intent: %w", err)
	}
	if intent == nil {
		return SlideVersionsOutput{Versions: []*carousel.CarouselSlideVersion{}}, nil
	}
	if in.SlideNumber < 1 || in.SlideNumber > intent.PageCount {
		return SlideVersionsOutput{}, ErrInvalidSlideNumber
	}
	versions, err := deps.Versions.ListBySlide(dbc, intent.ID, in.SlideNumber)
	if err != nil {
		return SlideVersionsOutput{}, fmt.Errorf("list slide versions: %w", err)
	}
	return SlideVersionsOutput{Versions: versions}, nil
}
