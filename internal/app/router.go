package app

import (
	"gorm.io/gorm"

	apphttp "github.com/yungbote/carousel-backend/internal/http"
	httpH "github.com/yungbote/carousel-backend/internal/http/handlers"
	"github.com/yungbote/carousel-backend/internal/observability"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

type Handlers struct {
	Carousel *httpH.CarouselHandler
	Health   *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, s Services, db *gorm.DB, c Clients) Handlers {
	log.Info("Wiring handlers...")
	var ping httpH.Pinger
	if sqlDB, err := db.DB(); err != nil {
		log.Warn("Readiness check has no database handle", "error", err)
	} else {
		ping = sqlDB
	}
	var warm httpH.RenderWarmer
	if c.Render != nil {
		warm = c.Render
	}
	return Handlers{
		Carousel: httpH.NewCarouselHandler(log, s.Carousels),
		Health:   httpH.NewHealthHandler(ping, warm),
	}
}

func wireServer(log *logger.Logger, cfg Config, h Handlers, metrics *observability.Metrics) *apphttp.Server {
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:             log,
		ServiceName:     cfg.ServiceName,
		CORSOrigins:     cfg.CORSOrigins,
		Metrics:         metrics,
		CarouselHandler: h.Carousel,
		HealthHandler:   h.Health,
	})
}
