package aggregates

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/carousel-backend/internal/data/repos"
	domainagg "github.com/yungbote/carousel-backend/internal/domain/aggregates"
	"github.com/yungbote/carousel-backend/internal/domain/carousel"
	"github.com/yungbote/carousel-backend/internal/pkg/dbctx"
)

type CarouselAggregateDeps struct {
	Base     BaseDeps
	Intents  repos.CarouselIntentRepo
	Versions repos.CarouselSlideVersionRepo
}

type carouselAggregate struct {
	deps CarouselAggregateDeps
}

func NewCarouselAggregate(deps CarouselAggregateDeps) domainagg.CarouselAggregate {
	deps.Base = deps.Base.withDefaults()
	return &carouselAggregate{deps: deps}
}

func (a *carouselAggregate) CommitGeneration(ctx context.Context, in domainagg.CommitGenerationInput) (domainagg.CommitGenerationResult, error) {
	const op = "Carousel.CommitGeneration"
	var out domainagg.CommitGenerationResult
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		intent, err := a.lockIntent(dbc, op, in.IntentID)
		if err != nil {
			return err
		}
		generatedAt := in.GeneratedAt
		if generatedAt.IsZero() {
			generatedAt = time.Now().UTC()
		}

		pages := make([]carousel.CarouselPage, len(in.Pages))
		versions := make([]*carousel.CarouselSlideVersion, 0, len(in.Pages))
		for i, p := range in.Pages {
			if p.PageNumber != i+1 {
				return InvariantError(fmt.Sprintf("page %d stored at position %d", p.PageNumber, i+1))
			}
			if !p.HasImage() {
				// No new version. A slide with history keeps mirroring its
				// active version and only carries this run's error text.
				prior, err := a.deps.Versions.GetActive(dbc, intent.ID, p.PageNumber)
				if err != nil {
					return err
				}
				if prior == nil {
					p.ActiveVersionID = nil
					p.VersionCount = 0
					pages[i] = p
					continue
				}
				count, err := a.deps.Versions.CountBySlide(dbc, intent.ID, p.PageNumber)
				if err != nil {
					return err
				}
				page := carousel.MaterializePage(prior, count)
				page.GenerationError = p.GenerationError
				pages[i] = page
				continue
			}

			v := versionFromPage(intent.ID, p, in.Provider, generatedAt)
			count, err := a.appendActive(dbc, v)
			if err != nil {
				return err
			}
			pages[i] = carousel.MaterializePage(v, count)
			versions = append(versions, v)
		}

		intent.Pages = pages
		intent.PageCount = len(pages)
		intent.GeneratedPDFURL = in.PDFURL
		intent.GenerationProvider = in.Provider
		intent.GenerationError = in.GenerationError
		intent.GeneratedAt = &generatedAt
		if err := a.deps.Intents.Update(dbc, intent); err != nil {
			return err
		}
		out = domainagg.CommitGenerationResult{Intent: intent, Versions: versions}
		return nil
	})
	return out, err
}

func (a *carouselAggregate) AppendSlideVersion(ctx context.Context, in domainagg.AppendSlideVersionInput) (domainagg.SlideVersionResult, error) {
	const op = "Carousel.AppendSlideVersion"
	var out domainagg.SlideVersionResult
	if in.Version == nil {
		return out, MapError(op, ValidationError("version is required"))
	}
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		intent, err := a.lockIntent(dbc, op, in.IntentID)
		if err != nil {
			return err
		}
		page := intent.Page(in.Version.SlideNumber)
		if page == nil {
			return ValidationError(fmt.Sprintf("slide %d is outside 1..%d", in.Version.SlideNumber, intent.PageCount))
		}
		v := in.Version
		v.ID = uuid.Nil
		v.CarouselIntentID = intent.ID
		if v.SlideType == "" {
			v.SlideType = page.SlideType
		}
		count, err := a.appendActive(dbc, v)
		if err != nil {
			return err
		}
		*page = carousel.MaterializePage(v, count)
		if err := a.deps.Intents.Update(dbc, intent); err != nil {
			return err
		}
		out = domainagg.SlideVersionResult{Intent: intent, Version: v}
		return nil
	})
	return out, err
}

func (a *carouselAggregate) ActivateSlideVersion(ctx context.Context, in domainagg.ActivateSlideVersionInput) (domainagg.SlideVersionResult, error) {
	const op = "Carousel.ActivateSlideVersion"
	var out domainagg.SlideVersionResult
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		intent, err := a.lockIntent(dbc, op, in.IntentID)
		if err != nil {
			return err
		}
		v, err := a.deps.Versions.GetByID(dbc, in.VersionID)
		if err != nil {
			return err
		}
		if v == nil || v.CarouselIntentID != intent.ID || v.SlideNumber != in.SlideNumber {
			return domainagg.NewError(domainagg.CodeNotFound, op, "slide version not found", nil)
		}
		page := intent.Page(in.SlideNumber)
		if page == nil {
			return ValidationError(fmt.Sprintf("slide %d is outside 1..%d", in.SlideNumber, intent.PageCount))
		}
		if _, err := a.deps.Versions.DeactivateSlide(dbc, intent.ID, in.SlideNumber); err != nil {
			return err
		}
		if err := a.deps.Versions.SetActive(dbc, v.ID); err != nil {
			return err
		}
		v.IsActive = true
		count, err := a.deps.Versions.CountBySlide(dbc, intent.ID, in.SlideNumber)
		if err != nil {
			return err
		}
		*page = carousel.MaterializePage(v, count)
		if err := a.deps.Intents.Update(dbc, intent); err != nil {
			return err
		}
		out = domainagg.SlideVersionResult{Intent: intent, Version: v}
		return nil
	})
	return out, err
}

func (a *carouselAggregate) DeleteCarousel(ctx context.Context, intentID uuid.UUID) (domainagg.DeleteCarouselResult, error) {
	const op = "Carousel.DeleteCarousel"
	var out domainagg.DeleteCarouselResult
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		intent, err := a.lockIntent(dbc, op, intentID)
		if err != nil {
			return err
		}
		n, err := a.deps.Versions.DeleteByIntentID(dbc, intent.ID)
		if err != nil {
			return err
		}
		if _, err := a.deps.Intents.DeleteByID(dbc, intent.ID); err != nil {
			return err
		}
		out = domainagg.DeleteCarouselResult{IntentID: intent.ID, DeletedVersions: n}
		return nil
	})
	return out, err
}

func (a *carouselAggregate) lockIntent(dbc dbctx.Context, op string, id uuid.UUID) (*carousel.CarouselIntent, error) {
	if id == uuid.Nil {
		return nil, ValidationError("carousel intent id is required")
	}
	intent, err := a.deps.Intents.GetByIDForUpdate(dbc, id)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "carousel intent not found", nil)
	}
	return intent, nil
}

// appendActive numbers v after the slide's latest version, makes it the only
// active one and returns the slide's new version count.
func (a *carouselAggregate) appendActive(dbc dbctx.Context, v *carousel.CarouselSlideVersion) (int, error) {
	if v.SlideNumber < 1 {
		return 0, ValidationError("slide number must be >= 1")
	}
	latest, err := a.deps.Versions.LatestVersionNumber(dbc, v.CarouselIntentID, v.SlideNumber)
	if err != nil {
		return 0, err
	}
	if _, err := a.deps.Versions.DeactivateSlide(dbc, v.CarouselIntentID, v.SlideNumber); err != nil {
		return 0, err
	}
	v.VersionNumber = latest + 1
	v.IsActive = true
	if v.GeneratedAt.IsZero() {
		v.GeneratedAt = time.Now().UTC()
	}
	if err := a.deps.Versions.Create(dbc, v); err != nil {
		return 0, err
	}
	return a.deps.Versions.CountBySlide(dbc, v.CarouselIntentID, v.SlideNumber)
}

func versionFromPage(intentID uuid.UUID, p carousel.CarouselPage, provider string, fallbackAt time.Time) *carousel.CarouselSlideVersion {
	at := fallbackAt
	if p.GeneratedAt != nil && !p.GeneratedAt.IsZero() {
		at = *p.GeneratedAt
	}
	return &carousel.CarouselSlideVersion{
		CarouselIntentID:   intentID,
		SlideNumber:        p.PageNumber,
		SlideType:          p.SlideType,
		Prompt:             p.Prompt,
		HeadlineText:       p.HeadlineText,
		Caption:            p.Caption,
		ImageURL:           p.ImageURL,
		UsedFallback:       p.UsedFallback,
		GeneratedAt:        at,
		GenerationProvider: provider,
		GenerationError:    p.GenerationError,
	}
}
