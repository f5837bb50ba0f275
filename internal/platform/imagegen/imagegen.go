package imagegen

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

const (
	AspectSquare    = "1:1"
	AspectPortrait  = "4:5"
	AspectLandscape = "16:9"
)

type Request struct {
	Prompt         string
	NegativePrompt string
	StylePreset    string
	AspectRatio    string
	HighQuality    bool
}

type Image struct {
	Bytes    []byte
	MimeType string
	// URL is set when the provider hosts the image itself.
	URL string
}

// Result mirrors one Request. Success=false results carry Error and no image.
type Result struct {
	Success  bool
	Image    *Image
	ImageURL string
	Provider string
	Error    string
}

type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request, model string) (Image, error)
}

type Config struct {
	DefaultProvider string
	// Concurrency caps in-flight provider calls per GenerateImages call; <= 0 means unbounded.
	Concurrency int
	// RequestTimeout bounds each provider call; <= 0 means only the caller's deadline applies.
	RequestTimeout time.Duration
}

type Service struct {
	log       *logger.Logger
	cfg       Config
	providers map[string]Provider
}

func NewService(log *logger.Logger, cfg Config, providers ...Provider) (*Service, error) {
	if len(providers) == 0 {
		return nil, errors.New("imagegen: at least one provider required")
	}
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[strings.ToLower(p.Name())] = p
	}
	cfg.DefaultProvider = strings.ToLower(strings.TrimSpace(cfg.DefaultProvider))
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = strings.ToLower(providers[0].Name())
	}
	if _, ok := byName[cfg.DefaultProvider]; !ok {
		return nil, fmt.Errorf("imagegen: default provider %q not registered", cfg.DefaultProvider)
	}
	return &Service{log: log.With("service", "ImageGenService"), cfg: cfg, providers: byName}, nil
}

func (s *Service) DefaultProvider() string { return s.cfg.DefaultProvider }

func (s *Service) Providers() []string {
	out := make([]string, 0, len(s.providers))
	for name := range s.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// GenerateImages issues one provider call per request concurrently. The result
// slice has the same length and order as reqs; a failed request never affects
// its siblings. There are no retries here.
func (s *Service) GenerateImages(ctx context.Context, reqs []Request, provider, model string) []Result {
	results := make([]Result, len(reqs))
	name := strings.ToLower(strings.TrimSpace(provider))
	if name == "" {
		name = s.cfg.DefaultProvider
	}
	p, ok := s.providers[name]
	if !ok {
		for i := range results {
			results[i] = Result{Provider: name, Error: fmt.Sprintf("unknown image provider %q", name)}
		}
		return results
	}

	var failed int32
	// The group context is never cancelled by a failure because workers always return nil.
	g, gctx := errgroup.WithContext(ctx)
	if s.cfg.Concurrency > 0 {
		g.SetLimit(s.cfg.Concurrency)
	}
	for i := range reqs {
		i := i
		g.Go(func() error {
			results[i] = s.generateOne(gctx, p, reqs[i], model)
			if !results[i].Success {
				atomic.AddInt32(&failed, 1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if n := atomic.LoadInt32(&failed); n > 0 {
		s.log.Warn("Image generation finished with failures", "provider", p.Name(), "requested", len(reqs), "failed", n)
	}
	return results
}

func (s *Service) generateOne(ctx context.Context, p Provider, req Request, model string) (res Result) {
	res.Provider = p.Name()
	defer func() {
		if r := recover(); r != nil {
			res = Result{Provider: p.Name(), Error: fmt.Sprintf("provider panicked: %v", r)}
		}
	}()
	if strings.TrimSpace(req.Prompt) == "" {
		res.Error = "empty prompt"
		return res
	}
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}
	img, err := p.Generate(ctx, req, model)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if len(img.Bytes) == 0 && strings.TrimSpace(img.URL) == "" {
		res.Error = "provider returned no image"
		return res
	}
	res.Success = true
	res.Image = &img
	res.ImageURL = img.URL
	return res
}
