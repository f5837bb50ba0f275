package app

import (
	"fmt"

	"github.com/yungbote/carousel-backend/internal/modules/carousel/steps"
	"github.com/yungbote/carousel-backend/internal/platform/imagegen"
	"github.com/yungbote/carousel-backend/internal/platform/locks"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
	"github.com/yungbote/carousel-backend/internal/platform/openai"
	"github.com/yungbote/carousel-backend/internal/platform/pdfdoc"
	"github.com/yungbote/carousel-backend/internal/platform/render"
)

type Clients struct {
	OpenAI    openai.Client
	Images    *imagegen.Service
	Render    *render.Engine
	Documents *pdfdoc.Assembler
	Store     steps.ObjectStore
	Locks     locks.Locker
	Presets   *steps.Presets

	closers []func() error
}

func (c Clients) Close() {
	for _, fn := range c.closers {
		_ = fn()
	}
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	// Openai
	ai, err := openai.NewClient(log, openai.ConfigFromEnv())
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}
	c.OpenAI = ai

	// Text-to-image
	images, err := imagegen.NewService(log, imagegen.Config{
		DefaultProvider: cfg.ImageProvider,
		Concurrency:     cfg.Concurrency,
		RequestTimeout:  cfg.SlideTimeout,
	}, imagegen.NewOpenAIProvider(ai))
	if err != nil {
		return Clients{}, fmt.Errorf("init image generation: %w", err)
	}
	c.Images = images

	// Rendering
	c.Render = render.NewEngine(log, render.Options{
		RegularFontPath: cfg.FontPath,
		BoldFontPath:    cfg.BoldFontPath,
	})
	c.Documents = pdfdoc.NewAssembler(log, pdfdoc.Config{})

	// Storage
	store, err := resolveObjectStore(log)
	if err != nil {
		return Clients{}, err
	}
	c.Store = store

	// Locks
	if cfg.RedisAddr != "" {
		rl, err := locks.NewRedisLocker(log, cfg.RedisAddr, cfg.LockPrefix)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis locker: %w", err)
		}
		c.Locks = rl
		c.closers = append(c.closers, rl.Close)
	} else {
		log.Warn("REDIS_ADDR not set, generation locks are process-local")
		c.Locks = locks.NewMemoryLocker()
	}

	presets, err := steps.LoadPresetsFromEnv()
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("load presets: %w", err)
	}
	c.Presets = presets
	return c, nil
}
