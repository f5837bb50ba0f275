package steps

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/carousel-backend/internal/observability"
	"github.com/yungbote/carousel-backend/internal/platform/imagegen"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

type slideProduceDeps struct {
	Log      *logger.Logger
	Overlay  OverlayDeps
	Fallback FallbackSlideDeps
	Uploader Uploader
	Metrics  *observability.Metrics
}

type slideJob struct {
	CarouselID uuid.UUID
	Text       SlideText
	Background imagegen.Result
}

type slideOutcome struct {
	ImageURL     *string
	UsedFallback bool
	// Errors holds every failure met on the way, including ones a fallback
	// recovered from.
	Errors []*SlideError
}

func (o slideOutcome) errorText() *string {
	if len(o.Errors) == 0 {
		return nil
	}
	parts := make([]string, len(o.Errors))
	for i, e := range o.Errors {
		parts[i] = e.Error()
	}
	return strPtr(strings.Join(parts, "; "))
}

// produceSlide overlays and uploads one slide. A provider or overlay failure
// switches to the fallback slide; if that fails too the slide has no image.
func produceSlide(ctx context.Context, deps slideProduceDeps, job slideJob) (out slideOutcome) {
	page := job.Text.PageNumber
	ctx, span := observability.StartSpan(ctx, "carousel.slide", attribute.Int("page", page))
	defer func() {
		source := "generated"
		switch {
		case out.ImageURL == nil:
			source = "failed"
		case out.UsedFallback:
			source = "fallback"
		}
		deps.Metrics.IncSlide(source)
		span.SetAttributes(attribute.String("source", source))
		observability.EndSpan(span, nil)
	}()

	if job.Background.Success {
		raw, url := backgroundBytes(job.Background)
		png, err := RenderOverlay(ctx, deps.Overlay, OverlayInput{Text: job.Text, Background: raw, BackgroundURL: url})
		if err == nil {
			imageURL, upErr := deps.Uploader.UploadSlide(ctx, job.CarouselID, page, false, png)
			if upErr != nil {
				out.Errors = append(out.Errors, slideErr(UploadFailure, page, upErr))
				deps.warn("Slide upload failed", job, upErr)
				return out
			}
			out.ImageURL = &imageURL
			return out
		}
		out.Errors = append(out.Errors, asSlideError(OverlayFailure, page, err))
		deps.warn("Overlay failed; using fallback slide", job, err)
	} else {
		msg := strings.TrimSpace(job.Background.Error)
		if msg == "" {
			msg = "image generation failed"
		}
		perr := slideErr(ProviderFailure, page, errors.New(msg))
		out.Errors = append(out.Errors, perr)
		deps.warn("Background generation failed; using fallback slide", job, perr)
	}

	png, err := RenderFallbackSlide(ctx, deps.Fallback, job.Text)
	if err != nil {
		out.Errors = append(out.Errors, asSlideError(FallbackFailure, page, err))
		deps.warn("Fallback slide failed", job, err)
		return out
	}
	imageURL, err := deps.Uploader.UploadSlide(ctx, job.CarouselID, page, true, png)
	if err != nil {
		out.Errors = append(out.Errors, slideErr(UploadFailure, page, err))
		deps.warn("Fallback slide upload failed", job, err)
		return out
	}
	out.ImageURL = &imageURL
	out.UsedFallback = true
	return out
}

func (d slideProduceDeps) warn(msg string, job slideJob, err error) {
	if d.Log == nil {
		return
	}
	d.Log.Warn(msg, "carousel_id", job.CarouselID, "page", job.Text.PageNumber, "error", err)
}

func asSlideError(kind SlideErrorKind, page int, err error) *SlideError {
	var se *SlideError
	if errors.As(err, &se) {
		return se
	}
	return slideErr(kind, page, err)
}
