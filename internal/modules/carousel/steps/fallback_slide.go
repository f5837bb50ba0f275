package steps

import (
	"context"
	"errors"
	"image/color"
	"math/rand"

	"github.com/yungbote/carousel-backend/internal/domain/carousel"
	"github.com/yungbote/carousel-backend/internal/platform/render"
)

type FallbackSlideDeps struct {
	Raster  Rasterizer
	Presets *Presets
	// Rand picks the palette entry; nil uses the global source.
	Rand func(n int) int
}

// RenderFallbackSlide draws the slide text over a locally synthesized
// gradient. It has no network dependency.
func RenderFallbackSlide(ctx context.Context, deps FallbackSlideDeps, t SlideText) ([]byte, error) {
	if deps.Raster == nil {
		return nil, slideErr(FallbackFailure, t.PageNumber, errors.New("rasterizer not configured"))
	}
	presets := deps.Presets
	if presets == nil {
		presets = DefaultPresets()
	}
	pick := deps.Rand
	if pick == nil {
		pick = rand.Intn
	}
	palette := presets.Gradients()
	out, err := deps.Raster.Rasterize(ctx, BuildFallbackLayout(palette[pick(len(palette))], t))
	if err != nil {
		return nil, slideErr(FallbackFailure, t.PageNumber, err)
	}
	return out, nil
}

// BuildFallbackLayout is a diagonal two-stop gradient, with two soft circles
// on the title slide.
func BuildFallbackLayout(pair [2]color.NRGBA, t SlideText) render.Layout {
	side := float64(slideSize)
	l := render.Layout{
		Width:  slideSize,
		Height: slideSize,
		Fill:   pair[0],
		BackgroundGradient: &render.LinearGradient{
			X0: 0, Y0: 0, X1: side, Y1: side,
			Stops: []render.GradientStop{{Offset: 0, Color: pair[0]}, {Offset: 1, Color: pair[1]}},
		},
	}
	if t.SlideType == carousel.SlideTypeTitle {
		l.Circles = []render.Circle{
			{X: side * 0.82, Y: side * 0.18, R: side * 0.22, Color: color.NRGBA{R: 255, G: 255, B: 255, A: 28}},
			{X: side * 0.12, Y: side * 0.7, R: side * 0.14, Color: color.NRGBA{R: 255, G: 255, B: 255, A: 20}},
		}
	}
	l.Scrims, l.Texts = textLayers(t)
	return l
}
