package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	domainagg "github.com/yungbote/carousel-backend/internal/domain/aggregates"
	"github.com/yungbote/carousel-backend/internal/domain/carousel"
	"github.com/yungbote/carousel-backend/internal/observability"
	"github.com/yungbote/carousel-backend/internal/pkg/dbctx"
)

type SlideRegenerateInput struct {
	ArticleID        uuid.UUID `json:"article_id"`
	SlideNumber      int       `json:"slide_number"`
	Provider         string    `json:"provider,omitempty"`
	Model            string    `json:"model,omitempty"`
	CustomPrompt     string    `json:"custom_prompt,omitempty"`
	RegeneratePrompt bool      `json:"regenerate_prompt,omitempty"`
}

type SlideVersionOutput struct {
	CarouselID  uuid.UUID                      `json:"carousel_id"`
	SlideNumber int                            `json:"slide_number"`
	Page        carousel.CarouselPage          `json:"page"`
	Version     *carousel.CarouselSlideVersion `json:"version"`
	PDFURL      *string                        `json:"pdf_url,omitempty"`
}

// RegenerateSlide produces one new version of a slide and makes it active.
// Prompt precedence: CustomPrompt, then an LLM rewrite when RegeneratePrompt is
// set, then the slide's current prompt. Other slides are not touched.
func RegenerateSlide(ctx context.Context, deps CarouselDeps, in SlideRegenerateInput) (out SlideVersionOutput, err error) {
	ctx, span := observability.StartSpan(ctx, "carousel.regenerate_slide",
		attribute.String("article_id", in.ArticleID.String()),
		attribute.Int("slide", in.SlideNumber),
	)
	defer func() { observability.EndSpan(span, err) }()
	log := deps.log().With("step", "slide_regenerate", "article_id", in.ArticleID, "page", in.SlideNumber)
	dbc := dbctx.Background(ctx)

	intent, err := deps.Intents.GetByArticleID(dbc, in.ArticleID)
	if err != nil {
		return out, fmt.Errorf("load carousel intent: %w", err)
	}
	if intent == nil {
		return out, ErrNotFound
	}
	if in.SlideNumber < 1 || in.SlideNumber > intent.PageCount {
		return out, ErrInvalidSlideNumber
	}

	unlock, err := deps.lockArticle(ctx, in.ArticleID.String())
	if err != nil {
		return out, err
	}
	defer unlock()

	// Re-read under the lock.
	intent, err = deps.Intents.GetByID(dbc, intent.ID)
	if err != nil {
		return out, fmt.Errorf("load carousel intent: %w", err)
	}
	if intent == nil {
		return out, ErrNotFound
	}
	page := intent.Page(in.SlideNumber)
	if page == nil {
		return out, ErrInvalidSlideNumber
	}
	article, err := deps.Articles.GetByID(dbc, intent.ArticleID)
	if err != nil {
		return out, fmt.Errorf("load article: %w", err)
	}

	text := slideTextFor(*page, intent.PageCount)
	prompt := page.Prompt
	switch {
	case strings.TrimSpace(in.CustomPrompt) != "":
		prompt = truncateRunes(in.CustomPrompt, maxImagePromptRune)
	case in.RegeneratePrompt && article != nil:
		if c, ok := regeneratedCaption(ctx, deps, article, intent.PageCount, in.SlideNumber, in.Model); ok {
			prompt = c.ImagePrompt
			text.Headline = c.Headline
			text.Caption = c.Caption
		}
	}

	bg := GenerateBackgrounds(ctx, deps.backgroundDeps(), BackgroundGenerateInput{
		Prompts:     []string{prompt},
		StylePreset: intent.StylePreset,
		Provider:    in.Provider,
		Model:       in.Model,
	})
	result := bg.Results[0]
	outcome := produceSlide(ctx, deps.slideDeps(), slideJob{CarouselID: intent.ID, Text: text, Background: result})
	if outcome.ImageURL == nil {
		log.Error("Slide regeneration produced no image", "error", derefString(outcome.errorText()))
		return out, ErrAllSlidesFailed
	}

	provider := result.Provider
	if provider == "" {
		provider = in.Provider
	}
	res, err := deps.Carousels.AppendSlideVersion(ctx, domainagg.AppendSlideVersionInput{
		IntentID: intent.ID,
		Version: &carousel.CarouselSlideVersion{
			SlideNumber:        in.SlideNumber,
			SlideType:          page.SlideType,
			Prompt:             prompt,
			HeadlineText:       text.Headline,
			Caption:            text.Caption,
			ImageURL:           outcome.ImageURL,
			UsedFallback:       outcome.UsedFallback,
			GeneratedAt:        deps.now(),
			GenerationProvider: provider,
			GenerationError:    outcome.errorText(),
		},
	})
	if err != nil {
		return out, fmt.Errorf("append slide version: %w", err)
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
	log.Info("Slide regenerated", "version", res.Version.VersionNumber, "used_fallback", outcome.UsedFallback)
	return out, nil
}

// regeneratedCaption reruns caption generation for the whole article and
// returns the entry for one slide. A deterministic fallback does not count.
func regeneratedCaption(ctx context.Context, deps CarouselDeps, article *carousel.Article, pageCount, slide int, model string) (SlideCaption, bool) {
	format := AnalyzeFormat(article, deps.presets())
	if format.PageCount != pageCount {
		return SlideCaption{}, false
	}
	res := GenerateCaptions(ctx, deps.captionDeps(), CaptionGenerateInput{Article: article, Format: format, Model: model})
	if res.UsedFallback || slide > len(res.Captions) {
		return SlideCaption{}, false
	}
	return res.Captions[slide-1], true
}

// refreshDocument reassembles and stores the document URL. It returns nil
// when assembly failed, leaving the stored URL as it was.
func refreshDocument(ctx context.Context, deps CarouselDeps, intent *carousel.CarouselIntent, article *carousel.Article) *string {
	title := ""
	if article != nil {
		title = article.Title
	}
	pdf := reassemble(ctx, deps, intent, title)
	if pdf == nil {
		return nil
	}
	if err := deps.Intents.UpdateFields(dbctx.Background(ctx), intent.ID, map[string]interface{}{"generated_pdf_url": *pdf}); err != nil {
		deps.log().Warn("Failed to store reassembled document", "carousel_id", intent.ID, "error", err)
		return nil
	}
	intent.GeneratedPDFURL = pdf
	return pdf
}
