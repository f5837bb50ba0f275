package app

import (
	"github.com/yungbote/carousel-backend/internal/modules/carousel"
	"github.com/yungbote/carousel-backend/internal/observability"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

type Services struct {
	Carousels carousel.Usecases
}

func wireServices(log *logger.Logger, cfg Config, r Repos, c Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")
	return Services{
		Carousels: carousel.New(carousel.UsecasesDeps{
			Log:       log,
			Articles:  r.Article,
			Intents:   r.CarouselIntent,
			Versions:  r.CarouselSlideVersion,
			Carousels: r.Carousels,
			AI:        c.OpenAI,
			Images:    c.Images,
			Raster:    c.Render,
			Documents: c.Documents,
			Store:     c.Store,
			Locks:     c.Locks,
			Presets:   c.Presets,
			Metrics:   metrics,
			LockTTL:   cfg.LockTTL,
			UploadPDF: cfg.UploadPDF,
		}),
	}
}
