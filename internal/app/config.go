package app

import (
	"strings"
	"time"

	"github.com/yungbote/carousel-backend/internal/platform/envutil"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

type Config struct {
	Port        string
	ServiceName string
	Environment string
	Version     string
	CORSOrigins []string

	DBDriver   string
	SQLitePath string

	RedisAddr   string
	LockTTL     time.Duration
	LockPrefix  string
	Concurrency int
	// SlideTimeout bounds each slide's background request.
	SlideTimeout  time.Duration
	UploadPDF     bool
	ImageProvider string

	FontPath     string
	BoldFontPath string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:          envutil.String("PORT", "8080"),
		ServiceName:   envutil.String("OTEL_SERVICE_NAME", "carousel-backend"),
		Environment:   envutil.String("APP_ENV", "development"),
		Version:       envutil.String("APP_VERSION", ""),
		CORSOrigins:   splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),
		DBDriver:      envutil.String("DB_DRIVER", "postgres"),
		SQLitePath:    envutil.String("SQLITE_PATH", "carousel.db"),
		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		LockTTL:       envutil.Seconds("CAROUSEL_LOCK_TTL_SECONDS", 10*time.Minute),
		LockPrefix:    envutil.String("CAROUSEL_LOCK_PREFIX", "lock:"),
		Concurrency:   envutil.Int("CAROUSEL_IMAGE_CONCURRENCY", 5),
		SlideTimeout:  envutil.Seconds("CAROUSEL_SLIDE_TIMEOUT_SECONDS", 120*time.Second),
		UploadPDF:     envutil.Bool("CAROUSEL_UPLOAD_PDF", false),
		ImageProvider: envutil.String("CAROUSEL_IMAGE_PROVIDER", "openai"),
		FontPath:      envutil.String("CAROUSEL_FONT_PATH", ""),
		BoldFontPath:  envutil.String("CAROUSEL_BOLD_FONT_PATH", ""),
	}
	if cfg.Concurrency < 1 {
		log.Warn("CAROUSEL_IMAGE_CONCURRENCY below 1, using 1", "value", cfg.Concurrency)
		cfg.Concurrency = 1
	}
	log.Info("Config loaded",
		"db_driver", cfg.DBDriver,
		"redis", cfg.RedisAddr != "",
		"image_concurrency", cfg.Concurrency,
		"slide_timeout", cfg.SlideTimeout,
		"upload_pdf", cfg.UploadPDF,
	)
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
