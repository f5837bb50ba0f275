package carousel

import (
	"context"
	"net/http"
	"time"

	"github.com/yungbote/carousel-backend/internal/data/repos"
	domainagg "github.com/yungbote/carousel-backend/internal/domain/aggregates"
	"github.com/yungbote/carousel-backend/internal/modules/carousel/steps"
	"github.com/yungbote/carousel-backend/internal/observability"
	"github.com/yungbote/carousel-backend/internal/platform/locks"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
	"github.com/yungbote/carousel-backend/internal/platform/openai"
)

type UsecasesDeps struct {
	Log *logger.Logger

	Articles  repos.ArticleRepo
	Intents   repos.CarouselIntentRepo
	Versions  repos.CarouselSlideVersionRepo
	Carousels domainagg.CarouselAggregate

	AI        openai.Client
	Images    steps.ImageGenerator
	Raster    steps.Rasterizer
	Documents steps.DocumentAssembler
	Store     steps.ObjectStore
	// Optional: without a locker concurrent runs for one article are not guarded.
	Locks locks.Locker
	HTTP  *http.Client

	Presets *steps.Presets
	Metrics *observability.Metrics

	LockTTL   time.Duration
	UploadPDF bool
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases { return Usecases{deps: deps} }

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

type (
	GenerateInput  = steps.CarouselGenerateInput
	GenerateOutput = steps.CarouselGenerateOutput

	StatusInput  = steps.CarouselStatusInput
	StatusOutput = steps.CarouselStatusOutput
	DeleteInput  = steps.CarouselDeleteInput
	DeleteOutput = steps.CarouselDeleteOutput

	RegenerateSlideInput = steps.SlideRegenerateInput
	ActivateVersionInput = steps.VersionActivateInput
	SlideVersionOutput   = steps.SlideVersionOutput

	SlideVersionsInput  = steps.SlideVersionsInput
	SlideVersionsOutput = steps.SlideVersionsOutput
)

var (
	ErrNotFound             = steps.ErrNotFound
	ErrInvalidSlideNumber   = steps.ErrInvalidSlideNumber
	ErrVersionNotFound      = steps.ErrVersionNotFound
	ErrAllSlidesFailed      = steps.ErrAllSlidesFailed
	ErrGenerationInProgress = steps.ErrGenerationInProgress
)

func (u Usecases) stepDeps() steps.CarouselDeps {
	log := u.deps.Log
	if log != nil {
		log = log.With("service", "CarouselUsecases")
	}
	return steps.CarouselDeps{
		Log:       log,
		Articles:  u.deps.Articles,
		Intents:   u.deps.Intents,
		Versions:  u.deps.Versions,
		Carousels: u.deps.Carousels,
		AI:        u.deps.AI,
		Images:    u.deps.Images,
		Raster:    u.deps.Raster,
		Documents: u.deps.Documents,
		Store:     u.deps.Store,
		Locks:     u.deps.Locks,
		HTTP:      u.deps.HTTP,
		Presets:   u.deps.Presets,
		Metrics:   u.deps.Metrics,
		LockTTL:   u.deps.LockTTL,
		UploadPDF: u.deps.UploadPDF,
	}
}

func (u Usecases) Generate(ctx context.Context, in GenerateInput) (GenerateOutput, error) {
	return steps.GenerateCarousel(ctx, u.stepDeps(), in)
}

func (u Usecases) Status(ctx context.Context, in StatusInput) (StatusOutput, error) {
	return steps.GetCarouselStatus(ctx, u.stepDeps(), in)
}

func (u Usecases) Delete(ctx context.Context, in DeleteInput) (DeleteOutput, error) {
	return steps.DeleteCarousel(ctx, u.stepDeps(), in)
}

func (u Usecases) RegenerateSlide(ctx context.Context, in RegenerateSlideInput) (SlideVersionOutput, error) {
	return steps.RegenerateSlide(ctx, u.stepDeps(), in)
}

func (u Usecases) SlideVersions(ctx context.Context, in SlideVersionsInput) (SlideVersionsOutput, error) {
	return steps.GetSlideVersions(ctx, u.stepDeps(), in)
}

func (u Usecases) ActivateVersion(ctx context.Context, in ActivateVersionInput) (SlideVersionOutput, error) {
	return steps.ActivateVersion(ctx, u.stepDeps(), in)
}
