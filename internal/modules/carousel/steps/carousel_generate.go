package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	domainagg "github.com/yungbote/carousel-backend/internal/domain/aggregates"
	"github.com/yungbote/carousel-backend/internal/domain/carousel"
	"github.com/yungbote/carousel-backend/internal/observability"
	"github.com/yungbote/carousel-backend/internal/pkg/dbctx"
)

const allSlidesFailedMessage = "All image generations failed"

type CarouselGenerateInput struct {
	ArticleID       uuid.UUID `json:"article_id"`
	Provider        string    `json:"provider,omitempty"`
	Model           string    `json:"model,omitempty"`
	StylePreset     string    `json:"style_preset,omitempty"`
	SkipPDF         bool      `json:"skip_pdf,omitempty"`
	ForceRegenerate bool      `json:"force_regenerate,omitempty"`
}

type CarouselGenerateOutput struct {
	Success         bool                    `json:"success"`
	Cached          bool                    `json:"cached"`
	CarouselID      uuid.UUID               `json:"carousel_id"`
	PageCount       int                     `json:"page_count"`
	Pages           []carousel.CarouselPage `json:"pages"`
	PDFURL          *string                 `json:"pdf_url,omitempty"`
	Provider        string                  `json:"generation_provider,omitempty"`
	GenerationError *string                 `json:"generation_error,omitempty"`
	FailedSlides    int                     `json:"failed_slides"`
}

func outputFromIntent(intent *carousel.CarouselIntent) CarouselGenerateOutput {
	return CarouselGenerateOutput{
		Success:         true,
		CarouselID:      intent.ID,
		PageCount:       intent.PageCount,
		Pages:           []carousel.CarouselPage(intent.Pages),
		PDFURL:          intent.GeneratedPDFURL,
		Provider:        intent.GenerationProvider,
		GenerationError: intent.GenerationError,
	}
}

// GenerateCarousel runs the full pipeline for an article. A stored document
// is returned as-is unless ForceRegenerate is set. Per-slide failures are
// absorbed; only a run where no slide has an image returns ErrAllSlidesFailed,
// together with the pages that were produced.
func GenerateCarousel(ctx context.Context, deps CarouselDeps, in CarouselGenerateInput) (out CarouselGenerateOutput, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "carousel.generate",
		attribute.String("article_id", in.ArticleID.String()),
		attribute.Bool("force_regenerate", in.ForceRegenerate),
	)
	defer func() { observability.EndSpan(span, err) }()
	log := deps.log().With("step", "carousel_generate", "article_id", in.ArticleID)
	dbc := dbctx.Background(ctx)

	article, err := deps.Articles.GetByID(dbc, in.ArticleID)
	if err != nil {
		return out, fmt.Errorf("load article: %w", err)
	}
	if article == nil {
		return out, ErrNotFound
	}

	intent, err := deps.Intents.GetByArticleID(dbc, article.ID)
	if err != nil {
		return out, fmt.Errorf("load carousel intent: %w", err)
	}
	if intent != nil && intent.IsCached() && !in.ForceRegenerate {
		deps.Metrics.IncGeneration("cached")
		out = outputFromIntent(intent)
		out.Cached = true
		return out, nil
	}

	unlock, err := deps.lockArticle(ctx, article.ID.String())
	if err != nil {
		return out, err
	}
	defer unlock()

	// A concurrent run may have finished between the cache check and the lock.
	intent, err = deps.Intents.GetByArticleID(dbc, article.ID)
	if err != nil {
		return out, fmt.Errorf("load carousel intent: %w", err)
	}
	if intent != nil && intent.IsCached() && !in.ForceRegenerate {
		deps.Metrics.IncGeneration("cached")
		out = outputFromIntent(intent)
		out.Cached = true
		return out, nil
	}

	presets := deps.presets()
	style, _ := presets.ResolveStyle(in.StylePreset)
	format := AnalyzeFormat(article, presets)

	capCtx, capSpan := observability.StartSpan(ctx, "carousel.captions")
	captions := GenerateCaptions(capCtx, deps.captionDeps(), CaptionGenerateInput{Article: article, Format: format, Model: in.Model})
	capSpan.SetAttributes(attribute.Bool("used_fallback", captions.UsedFallback))
	observability.EndSpan(capSpan, nil)

	pages := make([]carousel.CarouselPage, format.PageCount)
	for i, c := range captions.Captions {
		pages[i] = carousel.CarouselPage{
			PageNumber:   i + 1,
			SlideType:    format.Structure[i],
			Prompt:       c.ImagePrompt,
			HeadlineText: c.Headline,
			Caption:      c.Caption,
		}
	}

	// Persist the plan before the expensive work so a crash leaves a record.
	if intent == nil {
		intent, _, err = deps.Intents.CreateIfAbsent(dbc, &carousel.CarouselIntent{
			ArticleID:          article.ID,
			PageCount:          format.PageCount,
			Pages:              pages,
			StylePreset:        style,
			GenerationProvider: in.Provider,
		})
		if err != nil {
			return out, fmt.Errorf("create carousel intent: %w", err)
		}
	} else if err := deps.Intents.UpdateFields(dbc, intent.ID, map[string]interface{}{"style_preset": style}); err != nil {
		return out, fmt.Errorf("update carousel intent: %w", err)
	}
	log = log.With("carousel_id", intent.ID)

	prompts := make([]string, len(pages))
	for i, p := range pages {
		prompts[i] = p.Prompt
	}
	bg := GenerateBackgrounds(ctx, deps.backgroundDeps(), BackgroundGenerateInput{
		Prompts:     prompts,
		StylePreset: style,
		Provider:    in.Provider,
		Model:       in.Model,
	})
	provider := in.Provider
	for _, r := range bg.Results {
		if r.Provider != "" {
			provider = r.Provider
			break
		}
	}

	outcomes := make([]slideOutcome, len(pages))
	sd := deps.slideDeps()
	g, gctx := errgroup.WithContext(ctx)
	for i := range pages {
		i := i
		g.Go(func() error {
			outcomes[i] = produceSlide(gctx, sd, slideJob{
				CarouselID: intent.ID,
				Text:       slideTextFor(pages[i], len(pages)),
				Background: bg.Results[i],
			})
			return nil
		})
	}
	_ = g.Wait()

	now := deps.now()
	failed, withImage := 0, 0
	for i, o := range outcomes {
		pages[i].ImageURL = o.ImageURL
		pages[i].UsedFallback = o.UsedFallback
		pages[i].GenerationError = o.errorText()
		at := now
		pages[i].GeneratedAt = &at
		if len(o.Errors) > 0 {
			failed++
		}
		if o.ImageURL != nil {
			withImage++
		}
	}
	out = CarouselGenerateOutput{
		CarouselID:   intent.ID,
		PageCount:    len(pages),
		Pages:        pages,
		Provider:     provider,
		FailedSlides: failed,
	}

	if withImage == 0 {
		msg := allSlidesFailedMessage
		out.GenerationError = &msg
		// A stored document stays the cached result; the failure is only
		// reported to this caller.
		if intent.IsCached() {
			log.Warn("Forced regeneration produced no images; keeping cached carousel")
		} else if uerr := deps.Intents.UpdateFields(dbc, intent.ID, map[string]interface{}{
			"generation_error":    msg,
			"generation_provider": provider,
		}); uerr != nil {
			log.Error("Failed to record failed generation", "error", uerr)
		}
		deps.Metrics.IncGeneration("failed")
		log.Error("Carousel generation failed for every slide", "slides", len(pages))
		return out, ErrAllSlidesFailed
	}

	var summary *string
	if failed > 0 {
		summary = strPtr(fmt.Sprintf("%d images failed", failed))
	}

	res, err := deps.Carousels.CommitGeneration(ctx, domainagg.CommitGenerationInput{
		IntentID:        intent.ID,
		Pages:           pages,
		Provider:        provider,
		GenerationError: summary,
		GeneratedAt:     now,
	})
	if err != nil {
		return out, fmt.Errorf("commit generation: %w", err)
	}
	// Assembled from the committed pages so slides without a new image fall
	// back to their active version.
	var pdfURL *string
	if !in.SkipPDF {
		pdfURL = refreshDocument(ctx, deps, res.Intent, article)
	}

	outcome := "success"
	if failed > 0 {
		outcome = "partial"
	}
	deps.Metrics.IncGeneration(outcome)
	deps.Metrics.ObserveStage("generate", time.Since(start))
	log.Info("Carousel generated", "slides", len(pages), "failed", failed, "provider", provider, "pdf", pdfURL != nil)

	out = outputFromIntent(res.Intent)
	out.FailedSlides = failed
	return out, nil
}

func slideTextFor(p carousel.CarouselPage, pageCount int) SlideText {
	return SlideText{
		PageNumber: p.PageNumber,
		PageCount:  pageCount,
		SlideType:  p.SlideType,
		Headline:   p.HeadlineText,
		Caption:    p.Caption,
	}
}
