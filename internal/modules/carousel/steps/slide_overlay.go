package steps

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/carousel-backend/internal/domain/carousel"
	"github.com/yungbote/carousel-backend/internal/observability"
	"github.com/yungbote/carousel-backend/internal/pkg/httpx"
	"github.com/yungbote/carousel-backend/internal/platform/pdfdoc"
	"github.com/yungbote/carousel-backend/internal/platform/render"
)

// Rasterizer turns a layout into PNG bytes. Implementations may serialize
// calls; layouts themselves are built concurrently.
type Rasterizer interface {
	Rasterize(ctx context.Context, l render.Layout) ([]byte, error)
}

const maxBackgroundBytes = 24 << 20

// SlideText is everything drawn on top of a background.
type SlideText struct {
	PageNumber int
	PageCount  int
	SlideType  SlideType
	Headline   string
	Caption    *string
}

type OverlayDeps struct {
	Raster  Rasterizer
	HTTP    *http.Client
	Metrics *observability.Metrics
}

type OverlayInput struct {
	Text SlideText
	// Background holds image bytes; BackgroundURL is fetched when it is empty.
	Background    []byte
	BackgroundURL string
}

var (
	white     = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	softWhite = color.NRGBA{R: 240, G: 240, B: 240, A: 235}
	scrimDark = color.NRGBA{A: 205}
	scrimNone = color.NRGBA{}
)

// RenderOverlay composites headline and caption onto a generated background.
// Every failure is an OverlayFailure so the caller can fall back.
func RenderOverlay(ctx context.Context, deps OverlayDeps, in OverlayInput) ([]byte, error) {
	page := in.Text.PageNumber
	if deps.Raster == nil {
		return nil, slideErr(OverlayFailure, page, errors.New("rasterizer not configured"))
	}
	raw := in.Background
	if len(raw) == 0 {
		var err error
		raw, err = loadBackground(ctx, deps.HTTP, in.BackgroundURL)
		if err != nil {
			return nil, slideErr(OverlayFailure, page, err)
		}
	}
	bg, err := render.DecodeImage(raw)
	if err != nil {
		return nil, slideErr(OverlayFailure, page, err)
	}
	layout := BuildOverlayLayout(bg, in.Text)

	start := time.Now()
	out, err := deps.Raster.Rasterize(ctx, layout)
	deps.Metrics.ObserveRenderWait(time.Since(start))
	if err != nil {
		return nil, slideErr(OverlayFailure, page, err)
	}
	return out, nil
}

func loadBackground(ctx context.Context, client *http.Client, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return nil, errors.New("background has neither bytes nor url")
	case strings.HasPrefix(ref, "data:"):
		_, b, err := pdfdoc.ParseDataURI(ref)
		return b, err
	}
	b, _, err := httpx.Fetch(ctx, client, ref, maxBackgroundBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch background: %w", err)
	}
	return b, nil
}

// BuildOverlayLayout places text over a cover-scaled background. Slides 2 and
// 4 (when interior) split the headline to the top and the caption to the
// bottom; all others stack text over a bottom scrim.
func BuildOverlayLayout(bg image.Image, t SlideText) render.Layout {
	l := render.Layout{
		Width:  slideSize,
		Height: slideSize,
		Fill:   color.NRGBA{R: 17, G: 17, B: 17, A: 255},
	}
	if bg != nil {
		l.Background = render.Cover(bg, slideSize, slideSize)
	}
	l.Scrims, l.Texts = textLayers(t)
	return l
}

// textLayers is shared by generated and fallback slides.
func textLayers(t SlideText) ([]render.LinearGradient, []render.TextBlock) {
	const (
		side   = float64(slideSize)
		margin = 80.0
	)
	size := headlineSize(t.SlideType)
	headline := render.TextBlock{
		Text:        t.Headline,
		Bold:        true,
		Size:        size,
		X:           margin,
		MaxWidth:    side - 2*margin,
		MaxLines:    4,
		LineSpacing: 1.15,
		Color:       white,
		Shadow:      true,
	}

	if isSplitLayout(t.PageNumber, t.PageCount) {
		scrims := []render.LinearGradient{
			verticalScrim(0, side*0.45, scrimDark, scrimNone),
			verticalScrim(side*0.6, side, scrimNone, scrimDark),
		}
		headline.Y = margin
		headline.AnchorY = 0
		texts := []render.TextBlock{headline}
		if c := strings.TrimSpace(derefString(t.Caption)); c != "" {
			texts = append(texts, render.TextBlock{
				Text:     c,
				Size:     38,
				X:        margin,
				Y:        side - margin,
				AnchorY:  1,
				MaxWidth: side - 2*margin,
				MaxLines: 3,
				Color:    softWhite,
				Shadow:   true,
			})
		}
		return scrims, texts
	}

	scrims := []render.LinearGradient{verticalScrim(side*0.35, side, scrimNone, scrimDark)}
	switch t.SlideType {
	case carousel.SlideTypeTitle, carousel.SlideTypeCTA:
		headline.Align = render.AlignCenter
		headline.X = side / 2
	}
	headline.Y = side - 1.5*margin
	headline.AnchorY = 1
	return scrims, []render.TextBlock{headline}
}

func headlineSize(t SlideType) float64 {
	switch t {
	case carousel.SlideTypeTitle:
		return 84
	case carousel.SlideTypeCTA:
		return 72
	default:
		return 60
	}
}

func verticalScrim(y0, y1 float64, from, to color.NRGBA) render.LinearGradient {
	return render.LinearGradient{
		X0: 0, Y0: y0, X1: 0, Y1: y1,
		Stops: []render.GradientStop{{Offset: 0, Color: from}, {Offset: 1, Color: to}},
	}
}
