package steps

import (
	"context"
	"net/http"
	"time"

	"github.com/yungbote/carousel-backend/internal/data/repos"
	domainagg "github.com/yungbote/carousel-backend/internal/domain/aggregates"
	"github.com/yungbote/carousel-backend/internal/observability"
	"github.com/yungbote/carousel-backend/internal/platform/locks"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
	"github.com/yungbote/carousel-backend/internal/platform/openai"
	"github.com/yungbote/carousel-backend/internal/platform/pdfdoc"
)

// DocumentAssembler builds one multi-page document from ordered image refs.
type DocumentAssembler interface {
	Assemble(ctx context.Context, title string, refs []string) (pdfdoc.Result, error)
}

const defaultLockTTL = 10 * time.Minute

// CarouselDeps is shared by every carousel operation that reads or writes an
// intent.
type CarouselDeps struct {
	Log *logger.Logger

	Articles  repos.ArticleRepo
	Intents   repos.CarouselIntentRepo
	Versions  repos.CarouselSlideVersionRepo
	Carousels domainagg.CarouselAggregate

	AI        openai.Client
	Images    ImageGenerator
	Raster    Rasterizer
	Documents DocumentAssembler
	Store     ObjectStore
	Locks     locks.Locker
	HTTP      *http.Client

	Presets *Presets
	Metrics *observability.Metrics

	LockTTL time.Duration
	// UploadPDF stores documents in the object store instead of returning a
	// data URI.
	UploadPDF bool
	Now       func() time.Time
	// Rand picks fallback palette entries; nil uses math/rand.
	Rand func(n int) int
}

func (d CarouselDeps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d CarouselDeps) presets() *Presets {
	if d.Presets != nil {
		return d.Presets
	}
	return DefaultPresets()
}

func (d CarouselDeps) log() *logger.Logger {
	if d.Log != nil {
		return d.Log
	}
	return logger.Nop()
}

func (d CarouselDeps) uploader() Uploader {
	return Uploader{Store: d.Store, Now: d.Now}
}

func (d CarouselDeps) captionDeps() CaptionGenerateDeps {
	return CaptionGenerateDeps{Log: d.log(), AI: d.AI, Presets: d.presets(), Metrics: d.Metrics}
}

func (d CarouselDeps) backgroundDeps() BackgroundGenerateDeps {
	return BackgroundGenerateDeps{Log: d.log(), Images: d.Images, Presets: d.presets(), Metrics: d.Metrics}
}

func (d CarouselDeps) slideDeps() slideProduceDeps {
	return slideProduceDeps{
		Log:      d.log(),
		Overlay:  OverlayDeps{Raster: d.Raster, HTTP: d.HTTP, Metrics: d.Metrics},
		Fallback: FallbackSlideDeps{Raster: d.Raster, Presets: d.presets(), Rand: d.Rand},
		Uploader: d.uploader(),
		Metrics:  d.Metrics,
	}
}

func (d CarouselDeps) documentDeps() DocumentAssembleDeps {
	return DocumentAssembleDeps{
		Log:       d.log(),
		Assembler: d.Documents,
		Uploader:  d.uploader(),
		UploadPDF: d.UploadPDF,
		Metrics:   d.Metrics,
	}
}

// lockArticle takes the per-article generation lock. A held lock is
// ErrGenerationInProgress. Without a Locker it is a no-op.
func (d CarouselDeps) lockArticle(ctx context.Context, articleKey string) (func(), error) {
	if d.Locks == nil {
		return func() {}, nil
	}
	ttl := d.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	key := "carousel:" + articleKey
	l, ok, err := d.Locks.TryLock(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrGenerationInProgress
	}
	return func() {
		if err := l.Unlock(context.WithoutCancel(ctx)); err != nil {
			d.log().Warn("Failed to release carousel lock", "key", key, "error", err)
		}
	}, nil
}
