package steps

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"

	"github.com/yungbote/carousel-backend/internal/platform/imagegen"
	"github.com/yungbote/carousel-backend/internal/platform/openai"
	"github.com/yungbote/carousel-backend/internal/platform/pdfdoc"
	"github.com/yungbote/carousel-backend/internal/platform/render"
)

type stubAI struct {
	mu    sync.Mutex
	calls int
	data  map[string]any
	err   error
}

func (s *stubAI) GenerateJSON(context.Context, openai.JSONRequest) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.data, s.err
}

func (s *stubAI) GenerateImage(context.Context, openai.ImageRequest) (openai.ImageGeneration, error) {
	return openai.ImageGeneration{}, errors.New("not used")
}

func (s *stubAI) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// stubImages answers GenerateImages with solid PNGs, failing the listed
// 1-based positions. A positive limit truncates the answer.
type stubImages struct {
	mu       sync.Mutex
	calls    int
	requests []imagegen.Request
	fail     map[int]bool
	limit    int
}

func (s *stubImages) GenerateImages(_ context.Context, reqs []imagegen.Request, provider, _ string) []imagegen.Result {
	s.mu.Lock()
	s.calls++
	s.requests = append(s.requests, reqs...)
	s.mu.Unlock()
	if provider == "" {
		provider = "stub"
	}
	out := make([]imagegen.Result, len(reqs))
	for i := range reqs {
		if s.fail[i+1] {
			out[i] = imagegen.Result{Provider: provider, Error: "stub t2i failure"}
			continue
		}
		out[i] = imagegen.Result{Success: true, Provider: provider, Image: &imagegen.Image{Bytes: solidPNG(64, 64, color.NRGBA{R: 30, G: 120, B: 200, A: 255}), MimeType: "image/png"}}
	}
	if s.limit > 0 && s.limit < len(out) {
		out = out[:s.limit]
	}
	return out
}

func (s *stubImages) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// stubRaster records layouts and returns a tiny PNG, or err when set.
// failGradient rejects only layouts drawn on the fallback gradient.
type stubRaster struct {
	mu           sync.Mutex
	layouts      []render.Layout
	err          error
	failGradient bool
}

func (s *stubRaster) Rasterize(_ context.Context, l render.Layout) ([]byte, error) {
	s.mu.Lock()
	s.layouts = append(s.layouts, l)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.failGradient && l.BackgroundGradient != nil {
		return nil, errors.New("stub gradient failure")
	}
	return solidPNG(8, 8, color.NRGBA{A: 255}), nil
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	failPut bool
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (m *memStore) UploadFile(_ context.Context, key string, r io.Reader, _ string) error {
	if m.failPut {
		return errors.New("stub upload failure")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return nil
}

func (m *memStore) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			delete(m.objects, k)
		}
	}
	m.deleted = append(m.deleted, prefix)
	return nil
}

// GetPublicURL inlines the stored bytes so the document assembler can read
// them back without a network.
func (m *memStore) GetPublicURL(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return pdfdoc.DataURI(contentTypeFor(key), m.objects[key])
}

func contentTypeFor(key string) string {
	if strings.HasSuffix(key, ".pdf") {
		return "application/pdf"
	}
	return "image/png"
}

func (m *memStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}

func solidPNG(w, h int, c color.NRGBA) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
