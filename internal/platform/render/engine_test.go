package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

func testLayout() Layout {
	return Layout{
		Width:  120,
		Height: 120,
		Fill:   color.NRGBA{R: 20, G: 40, B: 200, A: 255},
		Scrims: []LinearGradient{{
			X0: 0, Y0: 0, X1: 0, Y1: 120,
			Stops: []GradientStop{
				{Offset: 0, Color: color.NRGBA{A: 0}},
				{Offset: 1, Color: color.NRGBA{A: 180}},
			},
		}},
		Texts: []TextBlock{{
			Text: "Ship smaller changes", Bold: true, Size: 14,
			X: 60, Y: 110, AnchorY: 1, MaxWidth: 100, Align: AlignCenter,
			Color: color.NRGBA{R: 255, G: 255, B: 255, A: 255}, Shadow: true,
		}},
	}
}

func TestRasterizeProducesPNG(t *testing.T) {
	e := NewEngine(logger.Nop(), Options{})
	out, err := e.Rasterize(context.Background(), testLayout())
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 120 {
		t.Fatalf("size: want=120x120 got=%dx%d", b.Dx(), b.Dy())
	}
	// Top-left sits on the scrim's transparent stop.
	r, g, bl, _ := img.At(1, 1).RGBA()
	if !near(r>>8, 20) || !near(g>>8, 40) || !near(bl>>8, 200) {
		t.Fatalf("fill pixel: got=(%d,%d,%d)", r>>8, g>>8, bl>>8)
	}
}

func TestRasterizeRejectsEmptyCanvas(t *testing.T) {
	e := NewEngine(logger.Nop(), Options{})
	if _, err := e.Rasterize(context.Background(), Layout{}); err == nil {
		t.Fatalf("expected error for zero canvas")
	}
}

func TestInitIsSingleFlight(t *testing.T) {
	e := NewEngine(logger.Nop(), Options{})
	var loads int32
	release := make(chan struct{})
	e.loadFonts = func() (*fontSet, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return loadFontSet(Options{})
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- e.Init(context.Background())
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Init: %v", err)
		}
	}
	if got := atomic.LoadInt32(&loads); got != 1 {
		t.Fatalf("font loads: want=1 got=%d", got)
	}
}

func TestInitRetriesAfterFailure(t *testing.T) {
	e := NewEngine(logger.Nop(), Options{})
	calls := 0
	e.loadFonts = func() (*fontSet, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("disk unavailable")
		}
		return loadFontSet(Options{})
	}
	if err := e.Init(context.Background()); err == nil {
		t.Fatalf("first init: expected error")
	}
	if err := e.Init(context.Background()); err != nil {
		t.Fatalf("second init: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls: want=2 got=%d", calls)
	}
}

func TestRasterizeIsSerialized(t *testing.T) {
	e := NewEngine(logger.Nop(), Options{})
	var inFlight, maxSeen int32
	e.beforeRaster = func() {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxSeen)
			if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
	}

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Rasterize(context.Background(), testLayout()); err != nil {
				t.Errorf("Rasterize: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := atomic.LoadInt32(&maxSeen); got != 1 {
		t.Fatalf("max concurrent raster passes: want=1 got=%d", got)
	}
}

func TestRasterizeRecoversPanic(t *testing.T) {
	e := NewEngine(logger.Nop(), Options{})
	e.beforeRaster = func() { panic("boom") }
	if _, err := e.Rasterize(context.Background(), testLayout()); err == nil {
		t.Fatalf("expected error from panicking raster pass")
	}
	// The queue slot must have been released.
	e.beforeRaster = nil
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := e.Rasterize(ctx, testLayout()); err != nil {
		t.Fatalf("Rasterize after panic: %v", err)
	}
}

func TestCoverCropsToTarget(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for x := 0; x < 200; x++ {
		for y := 0; y < 100; y++ {
			c := color.RGBA{R: 255, A: 255}
			if x < 50 || x >= 150 {
				c = color.RGBA{B: 255, A: 255}
			}
			src.Set(x, y, c)
		}
	}
	out := Cover(src, 40, 40)
	if b := out.Bounds(); b.Dx() != 40 || b.Dy() != 40 {
		t.Fatalf("size: got=%v", b)
	}
	// The blue side bands are cropped away.
	r, _, bl, _ := out.At(20, 20).RGBA()
	if r>>8 < 200 || bl>>8 > 50 {
		t.Fatalf("center should be red got r=%d b=%d", r>>8, bl>>8)
	}
}

func near(got uint32, want uint32) bool {
	d := int(got) - int(want)
	return d >= -4 && d <= 4
}
