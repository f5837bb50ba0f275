package steps

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/carousel-backend/internal/observability"
	"github.com/yungbote/carousel-backend/internal/platform/imagegen"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

// ImageGenerator is the text-to-image contract: one result per request, same
// order, and a failed request never affects its siblings.
type ImageGenerator interface {
	GenerateImages(ctx context.Context, reqs []imagegen.Request, provider, model string) []imagegen.Result
}

type BackgroundGenerateDeps struct {
	Log     *logger.Logger
	Images  ImageGenerator
	Presets *Presets
	Metrics *observability.Metrics
}

type BackgroundGenerateInput struct {
	Prompts     []string
	StylePreset string
	Provider    string
	Model       string
}

type BackgroundGenerateOutput struct {
	Results []imagegen.Result
	// Style is the resolved preset name.
	Style string
}

// GenerateBackgrounds issues one T2I request per prompt. It does not retry;
// callers route failed entries to the fallback slide.
func GenerateBackgrounds(ctx context.Context, deps BackgroundGenerateDeps, in BackgroundGenerateInput) BackgroundGenerateOutput {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "carousel.backgrounds",
		attribute.Int("slides", len(in.Prompts)),
		attribute.String("provider", in.Provider),
	)
	defer func() { deps.Metrics.ObserveStage("backgrounds", time.Since(start)) }()

	presets := deps.Presets
	if presets == nil {
		presets = DefaultPresets()
	}
	style, _ := presets.ResolveStyle(in.StylePreset)

	reqs := make([]imagegen.Request, len(in.Prompts))
	for i, p := range in.Prompts {
		reqs[i] = BuildImageRequest(presets, p, style)
	}

	var results []imagegen.Result
	if deps.Images == nil {
		results = make([]imagegen.Result, len(reqs))
		for i := range results {
			results[i] = imagegen.Result{Provider: in.Provider, Error: "image generator not configured"}
		}
	} else {
		results = deps.Images.GenerateImages(ctx, reqs, in.Provider, in.Model)
	}
	if len(results) > len(reqs) {
		results = results[:len(reqs)]
	}
	for len(results) < len(reqs) {
		results = append(results, imagegen.Result{Provider: in.Provider, Error: "no result from image provider"})
	}

	failed := 0
	for _, r := range results {
		deps.Metrics.IncT2I(r.Provider, r.Success)
		if !r.Success {
			failed++
		}
	}
	if failed > 0 && deps.Log != nil {
		deps.Log.Warn("Background generation had failures", "requested", len(reqs), "failed", failed)
	}
	span.SetAttributes(attribute.Int("failed", failed))
	observability.EndSpan(span, nil)
	return BackgroundGenerateOutput{Results: results, Style: style}
}

// BuildImageRequest appends the style suffix to the slide prompt.
func BuildImageRequest(presets *Presets, prompt, style string) imagegen.Request {
	name, sp := presets.ResolveStyle(style)
	full := strings.TrimSpace(prompt)
	if suffix := strings.TrimSpace(sp.PromptSuffix); suffix != "" {
		if full != "" {
			full += ", "
		}
		full += suffix
	}
	return imagegen.Request{
		Prompt:         full,
		NegativePrompt: strings.TrimSpace(presets.NegativePrompt),
		StylePreset:    name,
		AspectRatio:    imagegen.AspectSquare,
		HighQuality:    true,
	}
}

// backgroundBytes returns the image payload of a successful result, or the
// URL to fetch it from.
func backgroundBytes(r imagegen.Result) ([]byte, string) {
	if r.Image != nil && len(r.Image.Bytes) > 0 {
		return r.Image.Bytes, ""
	}
	if r.Image != nil && r.Image.URL != "" {
		return nil, r.Image.URL
	}
	return nil, r.ImageURL
}
