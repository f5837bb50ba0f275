package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/carousel-backend/internal/platform/ctxutil"
)

func TestAttachTraceContextKeepsIncomingRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var seen *ctxutil.TraceData
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen == nil || seen.RequestID != "req-123" || seen.TraceID == "" {
		t.Fatalf("trace data: %+v", seen)
	}
	if got := rec.Header().Get("X-Request-Id"); got != "req-123" {
		t.Fatalf("response header: want=req-123 got=%q", got)
	}
}

func TestAttachTraceContextCarriesRouteIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var seen *ctxutil.TraceData
	var fields []interface{}
	handler := func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		fields = ctxutil.LogFields(c.Request.Context())
		c.Status(http.StatusOK)
	}
	r.GET("/api/articles/:articleId/carousel", handler)
	r.GET("/api/carousels/:carouselId/slides/:slide/versions", handler)

	articleID := uuid.New()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/articles/"+articleID.String()+"/carousel", nil))
	if seen == nil || seen.ArticleID != articleID.String() || seen.CarouselID != "" {
		t.Fatalf("article route: %+v", seen)
	}
	if !hasField(fields, "article_id", articleID.String()) {
		t.Fatalf("log fields missing article_id: %v", fields)
	}

	carouselID := uuid.New()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/carousels/"+carouselID.String()+"/slides/2/versions", nil))
	if seen.CarouselID != carouselID.String() || seen.ArticleID != "" {
		t.Fatalf("carousel route: %+v", seen)
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/articles/not-a-uuid/carousel", nil))
	if seen.ArticleID != "" || hasField(fields, "article_id", "not-a-uuid") {
		t.Fatalf("invalid id should not be attached: %+v", seen)
	}
}

func hasField(fields []interface{}, key, value string) bool {
	for i := 0; i+1 < len(fields); i += 2 {
		if fields[i] == key && fields[i+1] == value {
			return true
		}
	}
	return false
}
