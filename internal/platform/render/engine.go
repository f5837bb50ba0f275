package render

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

type Options struct {
	// Empty paths fall back to the embedded Go fonts.
	RegularFontPath string
	BoldFontPath    string
}

type fontSet struct {
	regular *truetype.Font
	bold    *truetype.Font
}

type faceKey struct {
	bold bool
	size float64
}

// Engine rasterizes layouts. Fonts are loaded lazily on first use; concurrent
// first callers share a single load. Glyph caches inside truetype faces are not
// safe for concurrent use, so every raster pass runs alone behind a one-slot
// queue shared by all callers of the engine.
type Engine struct {
	log       *logger.Logger
	loadFonts func() (*fontSet, error)

	initGroup singleflight.Group
	mu        sync.Mutex
	fonts     *fontSet

	queue *semaphore.Weighted
	// faces is only touched while holding queue.
	faces map[faceKey]font.Face

	// beforeRaster runs inside the queue; tests use it to observe exclusivity.
	beforeRaster func()
}

func NewEngine(log *logger.Logger, opts Options) *Engine {
	return &Engine{
		log:       log.With("service", "RenderEngine"),
		loadFonts: func() (*fontSet, error) { return loadFontSet(opts) },
		queue:     semaphore.NewWeighted(1),
		faces:     map[faceKey]font.Face{},
	}
}

func loadFontSet(opts Options) (*fontSet, error) {
	regular, err := parseFont(opts.RegularFontPath, goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("regular font: %w", err)
	}
	bold, err := parseFont(opts.BoldFontPath, gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("bold font: %w", err)
	}
	return &fontSet{regular: regular, bold: bold}, nil
}

func parseFont(path string, fallback []byte) (*truetype.Font, error) {
	raw := fallback
	if p := strings.TrimSpace(path); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read font file: %w", err)
		}
		raw = b
	}
	f, err := truetype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	return f, nil
}

// Init loads fonts once. A failed load is not cached; the next caller retries.
func (e *Engine) Init(ctx context.Context) error {
	e.mu.Lock()
	ready := e.fonts != nil
	e.mu.Unlock()
	if ready {
		return nil
	}

	ch := e.initGroup.DoChan("fonts", func() (interface{}, error) {
		e.mu.Lock()
		if e.fonts != nil {
			e.mu.Unlock()
			return nil, nil
		}
		e.mu.Unlock()

		fs, err := e.loadFonts()
		if err != nil {
			e.log.Error("Render engine init failed", "error", err)
			return nil, err
		}
		e.mu.Lock()
		e.fonts = fs
		e.mu.Unlock()
		e.log.Info("Render engine initialized")
		return nil, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

// Rasterize renders l to PNG bytes.
func (e *Engine) Rasterize(ctx context.Context, l Layout) (out []byte, err error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	if err := e.Init(ctx); err != nil {
		return nil, fmt.Errorf("render engine init: %w", err)
	}
	if err := e.queue.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.queue.Release(1)

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("raster pass panicked: %v", r)
		}
	}()
	if e.beforeRaster != nil {
		e.beforeRaster()
	}
	return e.rasterLocked(l)
}

func (e *Engine) face(bold bool, size float64) font.Face {
	key := faceKey{bold: bold, size: math.Round(size*10) / 10}
	if f, ok := e.faces[key]; ok {
		return f
	}
	e.mu.Lock()
	fs := e.fonts
	e.mu.Unlock()
	src := fs.regular
	if bold {
		src = fs.bold
	}
	f := truetype.NewFace(src, &truetype.Options{
		Size:    key.size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	e.faces[key] = f
	return f
}

func (e *Engine) rasterLocked(l Layout) ([]byte, error) {
	dc := gg.NewContext(l.Width, l.Height)
	w, h := float64(l.Width), float64(l.Height)

	dc.SetColor(l.Fill)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	if l.Background != nil {
		dc.DrawImage(l.Background, 0, 0)
	}
	if l.BackgroundGradient != nil {
		fillGradient(dc, *l.BackgroundGradient, w, h)
	}
	for _, c := range l.Circles {
		dc.SetColor(c.Color)
		dc.DrawCircle(c.X, c.Y, c.R)
		dc.Fill()
	}
	for _, s := range l.Scrims {
		fillGradient(dc, s, w, h)
	}
	for _, t := range l.Texts {
		e.drawText(dc, t)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func fillGradient(dc *gg.Context, g LinearGradient, w, h float64) {
	grad := gg.NewLinearGradient(g.X0, g.Y0, g.X1, g.Y1)
	for _, s := range g.Stops {
		grad.AddColorStop(s.Offset, s.Color)
	}
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()
}

func (e *Engine) drawText(dc *gg.Context, t TextBlock) {
	text := strings.TrimSpace(t.Text)
	if text == "" {
		return
	}
	dc.SetFontFace(e.face(t.Bold, t.Size))

	maxWidth := t.MaxWidth
	if maxWidth <= 0 {
		maxWidth = float64(dc.Width())
	}
	lines := dc.WordWrap(text, maxWidth)
	if t.MaxLines > 0 && len(lines) > t.MaxLines {
		lines = lines[:t.MaxLines]
		last := strings.TrimRight(lines[t.MaxLines-1], " .,;:")
		lines[t.MaxLines-1] = last + "…"
	}
	spacing := t.LineSpacing
	if spacing <= 0 {
		spacing = 1.2
	}
	lineHeight := t.Size * spacing
	blockHeight := lineHeight * float64(len(lines))
	top := t.Y - blockHeight*t.AnchorY

	ax := 0.0
	if t.Align == AlignCenter {
		ax = 0.5
	}
	for i, line := range lines {
		baseline := top + lineHeight*float64(i) + t.Size
		if t.Shadow {
			dc.SetRGBA(0, 0, 0, 0.45)
			dc.DrawStringAnchored(line, t.X+2, baseline+3, ax, 0)
		}
		dc.SetColor(t.Color)
		dc.DrawStringAnchored(line, t.X, baseline, ax, 0)
	}
}
