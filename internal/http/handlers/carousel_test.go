package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/carousel-backend/internal/http/response"
	"github.com/yungbote/carousel-backend/internal/modules/carousel"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

type stubCarousels struct {
	genIn   carousel.GenerateInput
	regenIn carousel.RegenerateSlideInput
	actIn   carousel.ActivateVersionInput
	genOut  carousel.GenerateOutput
	err     error
}

func (s *stubCarousels) Generate(_ context.Context, in carousel.GenerateInput) (carousel.GenerateOutput, error) {
	s.genIn = in
	return s.genOut, s.err
}

func (s *stubCarousels) Status(_ context.Context, in carousel.StatusInput) (carousel.StatusOutput, error) {
	return carousel.StatusOutput{Exists: false}, s.err
}

func (s *stubCarousels) Delete(_ context.Context, in carousel.DeleteInput) (carousel.DeleteOutput, error) {
	return carousel.DeleteOutput{DeletedVersions: 3}, s.err
}

func (s *stubCarousels) RegenerateSlide(_ context.Context, in carousel.RegenerateSlideInput) (carousel.SlideVersionOutput, error) {
	s.regenIn = in
	return carousel.SlideVersionOutput{SlideNumber: in.SlideNumber}, s.err
}

func (s *stubCarousels) SlideVersions(_ context.Context, in carousel.SlideVersionsInput) (carousel.SlideVersionsOutput, error) {
	return carousel.SlideVersionsOutput{}, s.err
}

func (s *stubCarousels) ActivateVersion(_ context.Context, in carousel.ActivateVersionInput) (carousel.SlideVersionOutput, error) {
	s.actIn = in
	return carousel.SlideVersionOutput{SlideNumber: in.SlideNumber}, s.err
}

func newTestRouter(svc CarouselService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewCarouselHandler(logger.Nop(), svc)
	r := gin.New()
	r.POST("/api/articles/:articleId/carousel", h.Generate)
	r.GET("/api/articles/:articleId/carousel", h.Status)
	r.DELETE("/api/articles/:articleId/carousel", h.Delete)
	r.POST("/api/articles/:articleId/carousel/slides/:slide/regenerate", h.RegenerateSlide)
	r.GET("/api/carousels/:carouselId/slides/:slide/versions", h.SlideVersions)
	r.POST("/api/carousels/:carouselId/slides/:slide/versions/:versionId/activate", h.ActivateVersion)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) response.ErrorEnvelope {
	t.Helper()
	var env response.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestGenerateBindsOptions(t *testing.T) {
	svc := &stubCarousels{}
	r := newTestRouter(svc)
	id := uuid.New()
	rec := do(r, http.MethodPost, "/api/articles/"+id.String()+"/carousel",
		`{"provider":"openai","style_preset":"vibrant","skip_pdf":true,"force_regenerate":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	in := svc.genIn
	if in.ArticleID != id || in.Provider != "openai" || in.StylePreset != "vibrant" || !in.SkipPDF || !in.ForceRegenerate {
		t.Fatalf("bound input: %+v", in)
	}
}

func TestGenerateAcceptsEmptyBody(t *testing.T) {
	svc := &stubCarousels{}
	rec := do(newTestRouter(svc), http.MethodPost, "/api/articles/"+uuid.NewString()+"/carousel", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", rec.Code)
	}
}

func TestGenerateAllSlidesFailedReturnsResult(t *testing.T) {
	msg := "All image generations failed"
	svc := &stubCarousels{err: carousel.ErrAllSlidesFailed, genOut: carousel.GenerateOutput{PageCount: 5, GenerationError: &msg}}
	rec := do(newTestRouter(svc), http.MethodPost, "/api/articles/"+uuid.NewString()+"/carousel", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: want=502 got=%d", rec.Code)
	}
	env := decodeError(t, rec)
	if env.Error.Code != "all_slides_failed" || env.Result == nil {
		t.Fatalf("envelope: %+v", env)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{carousel.ErrNotFound, http.StatusNotFound, "not_found"},
		{fmt.Errorf("wrapped: %w", carousel.ErrVersionNotFound), http.StatusNotFound, "version_not_found"},
		{carousel.ErrInvalidSlideNumber, http.StatusBadRequest, "invalid_slide_number"},
		{carousel.ErrGenerationInProgress, http.StatusConflict, "generation_in_progress"},
		{errors.New("db down"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		r := newTestRouter(&stubCarousels{err: tc.err})
		rec := do(r, http.MethodGet, "/api/articles/"+uuid.NewString()+"/carousel", "")
		if rec.Code != tc.status {
			t.Fatalf("%v: status want=%d got=%d", tc.err, tc.status, rec.Code)
		}
		if env := decodeError(t, rec); env.Error.Code != tc.code || env.Error.Message == "" {
			t.Fatalf("%v: envelope %+v", tc.err, env)
		}
	}
}

func TestRejectsMalformedParams(t *testing.T) {
	r := newTestRouter(&stubCarousels{})
	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/articles/not-a-uuid/carousel"},
		{http.MethodPost, "/api/articles/" + uuid.NewString() + "/carousel/slides/two/regenerate"},
		{http.MethodPost, "/api/carousels/" + uuid.NewString() + "/slides/2/versions/nope/activate"},
	}
	for _, p := range paths {
		if rec := do(r, p.method, p.path, ""); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s %s: want=400 got=%d", p.method, p.path, rec.Code)
		}
	}
	if rec := do(r, http.MethodPost, "/api/articles/"+uuid.NewString()+"/carousel", "{bad"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: want=400 got=%d", rec.Code)
	}
}

func TestRegenerateAndActivateBindInputs(t *testing.T) {
	svc := &stubCarousels{}
	r := newTestRouter(svc)
	article := uuid.New()
	rec := do(r, http.MethodPost, "/api/articles/"+article.String()+"/carousel/slides/3/regenerate",
		`{"custom_prompt":"amber haze","regenerate_prompt":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("regenerate status: %d", rec.Code)
	}
	if svc.regenIn.ArticleID != article || svc.regenIn.SlideNumber != 3 || svc.regenIn.CustomPrompt != "amber haze" || !svc.regenIn.RegeneratePrompt {
		t.Fatalf("regenerate input: %+v", svc.regenIn)
	}

	carouselID, versionID := uuid.New(), uuid.New()
	rec = do(r, http.MethodPost, "/api/carousels/"+carouselID.String()+"/slides/2/versions/"+versionID.String()+"/activate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("activate status: %d", rec.Code)
	}
	if svc.actIn.CarouselID != carouselID || svc.actIn.SlideNumber != 2 || svc.actIn.VersionID != versionID {
		t.Fatalf("activate input: %+v", svc.actIn)
	}
}
