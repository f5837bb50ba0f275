package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/carousel-backend/internal/domain/carousel"
)

// CommitGenerationInput carries the outcome of a full pipeline run. Pages
// with an image get a new active version; pages without one keep their
// history untouched and are stored as produced.
type CommitGenerationInput struct {
	IntentID        uuid.UUID
	Pages           []carousel.CarouselPage
	Provider        string
	PDFURL          *string
	GenerationError *string
	GeneratedAt     time.Time
}

type CommitGenerationResult struct {
	Intent   *carousel.CarouselIntent
	Versions []*carousel.CarouselSlideVersion
}

type AppendSlideVersionInput struct {
	IntentID uuid.UUID
	// Version's number and active flag are assigned by the aggregate.
	Version *carousel.CarouselSlideVersion
}

type SlideVersionResult struct {
	Intent  *carousel.CarouselIntent
	Version *carousel.CarouselSlideVersion
}

type ActivateSlideVersionInput struct {
	IntentID    uuid.UUID
	SlideNumber int
	VersionID   uuid.UUID
}

type DeleteCarouselResult struct {
	IntentID        uuid.UUID
	DeletedVersions int64
}

// CarouselAggregate owns every write that touches slide versions. After each
// call the affected pages equal MaterializePage of their active version, and
// each (intent, slide) pair has at most one active version.
type CarouselAggregate interface {
	CommitGeneration(ctx context.Context, in CommitGenerationInput) (CommitGenerationResult, error)
	AppendSlideVersion(ctx context.Context, in AppendSlideVersionInput) (SlideVersionResult, error)
	ActivateSlideVersion(ctx context.Context, in ActivateSlideVersionInput) (SlideVersionResult, error)
	DeleteCarousel(ctx context.Context, intentID uuid.UUID) (DeleteCarouselResult, error)
}
