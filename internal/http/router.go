package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/carousel-backend/internal/http/handlers"
	httpMW "github.com/yungbote/carousel-backend/internal/http/middleware"
	"github.com/yungbote/carousel-backend/internal/observability"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics

	CarouselHandler *httpH.CarouselHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Carousels
		if cfg.CarouselHandler != nil {
			api.POST("/articles/:articleId/carousel", cfg.CarouselHandler.Generate)
			api.GET("/articles/:articleId/carousel", cfg.CarouselHandler.Status)
			api.DELETE("/articles/:articleId/carousel", cfg.CarouselHandler.Delete)
			api.POST("/articles/:articleId/carousel/slides/:slide/regenerate", cfg.CarouselHandler.RegenerateSlide)
			api.GET("/carousels/:carouselId/slides/:slide/versions", cfg.CarouselHandler.SlideVersions)
			api.POST("/carousels/:carouselId/slides/:slide/versions/:versionId/activate", cfg.CarouselHandler.ActivateVersion)
		}
	}

	return r
}
