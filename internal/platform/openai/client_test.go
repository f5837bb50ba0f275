package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, srv *httptest.Server) *client {
	t.Helper()
	c, err := NewClient(logger.Nop(), Config{
		APIKey:      "sk-test",
		BaseURL:     srv.URL,
		Model:       "gpt-test",
		ImageModel:  "gpt-image-1",
		ImageSize:   "1024x1024",
		Timeout:     5 * time.Second,
		MaxRetries:  1,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c.(*client)
}

func TestGenerateJSONRetriesWithoutTemperature(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(body, &req)
		if _, hasTemp := req["temperature"]; hasTemp {
			if n != 1 {
				t.Errorf("temperature sent on call %d", n)
			}
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Unsupported parameter: 'temperature'"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"{\"slides\":[]}"}]}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	obj, err := c.GenerateJSON(context.Background(), JSONRequest{
		System: "sys", User: "user", SchemaName: "s", Schema: map[string]any{"type": "object"},
	})
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if _, ok := obj["slides"]; !ok {
		t.Fatalf("want slides key got=%v", obj)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls: want=2 got=%d", got)
	}
	if !c.modelRejectsTemperature("gpt-test") {
		t.Fatalf("model should be remembered as no-temperature")
	}
}

func TestGenerateJSONRequiresSchema(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	c := newTestClient(t, srv)
	if _, err := c.GenerateJSON(context.Background(), JSONRequest{SchemaName: "x"}); err == nil {
		t.Fatalf("expected error for missing schema")
	}
}

func TestGenerateImageDecodesBase64(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req imagesGenerationRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ResponseFormat != "" {
			t.Errorf("gpt-image should not send response_format, got %q", req.ResponseFormat)
		}
		if req.Quality != "high" {
			t.Errorf("quality: want=high got=%q", req.Quality)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"b64_json": base64.StdEncoding.EncodeToString(png)}},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	img, err := c.GenerateImage(context.Background(), ImageRequest{Prompt: "soft gradient", Quality: "high"})
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if string(img.Bytes) != string(png) || img.MimeType != "image/png" {
		t.Fatalf("image: got bytes=%v mime=%q", img.Bytes, img.MimeType)
	}
}

func TestDoRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	if err := c.do(context.Background(), "POST", "/v1/anything", map[string]any{}, nil); err != nil {
		t.Fatalf("do: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls: want=2 got=%d", got)
	}
}
