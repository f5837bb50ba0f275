package steps

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/carousel-backend/internal/domain/aggregates"
	"github.com/yungbote/carousel-backend/internal/pkg/dbctx"
)

type VersionActivateInput struct {
	CarouselID  uuid.UUID `json:"carousel_id"`
	SlideNumber int       `json:"slide_number"`
	VersionID   uuid.UUID `json:"version_id"`
}

// ActivateVersion makes a stored version the slide's active one and copies it
// into the page. It never calls a provider.
func ActivateVersion(ctx context.Context, deps CarouselDeps, in VersionActivateInput) (SlideVersionOutput, error) {
	var out SlideVersionOutput
	dbc := dbctx.Background(ctx)

	intent, err := deps.Intents.GetByID(dbc, in.CarouselID)
	if err != nil {
		return out, fmt.Errorf("load carousel intent: %w", err)
	}
	if intent == nil {
		return out, ErrNotFound
	}
	if in.SlideNumber < 1 || in.SlideNumber > intent.PageCount {
		return out, ErrInvalidSlideNumber
	}

	unlock, err := deps.lockArticle(ctx, intent.ArticleID.String())
	if err != nil {
		return out, err
	}
	defer unlock()

	res, err := deps.Carousels.ActivateSlideVersion(ctx, domainagg.ActivateSlideVersionInput{
		IntentID:    intent.ID,
		SlideNumber: in.SlideNumber,
		VersionID:   in.VersionID,
	})
	if err != nil {
		if domainagg.IsCode(err, domainagg.CodeNotFound) {
			return out, ErrVersionNotFound
		}
		return out, fmt.Errorf("activate slide version: %w", err)
	}

	article, err := deps.Articles.GetByID(dbc, intent.ArticleID)
	if err != nil {
		deps.log().Warn("Article lookup failed; document title left empty", "article_id", intent.ArticleID, "error", err)
		article = nil
	}
	out = SlideVersionOutput{
		CarouselID:  res.Intent.ID,
		SlideNumber: in.SlideNumber,
		Page:        *res.Intent.Page(in.SlideNumber),
		Version:     res.Version,
		PDFURL:      res.Intent.GeneratedPDFURL,
	}
	if pdf := refreshDocument(ctx, deps, res.Intent, article); pdf != nil {
		out.PDFURL = pdf
	}
	return out, nil
}
