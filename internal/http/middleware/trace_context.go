package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/carousel-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachTraceContext stamps every request with trace and request ids, and
// with the article or carousel id named by the matched route.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.New().String()
		}
		span := trace.SpanFromContext(c.Request.Context())
		traceID := strings.TrimSpace(c.GetHeader(headerTraceID))
		if traceID == "" && span.SpanContext().HasTraceID() {
			traceID = span.SpanContext().TraceID().String()
		}
		if traceID == "" {
			traceID = uuid.New().String()
		}
		td := &ctxutil.TraceData{
			TraceID:    traceID,
			RequestID:  reqID,
			ArticleID:  routeID(c, "articleId"),
			CarouselID: routeID(c, "carouselId"),
		}
		if td.ArticleID != "" {
			span.SetAttributes(attribute.String("article_id", td.ArticleID))
			c.Set("article_id", td.ArticleID)
		}
		if td.CarouselID != "" {
			span.SetAttributes(attribute.String("carousel_id", td.CarouselID))
			c.Set("carousel_id", td.CarouselID)
		}
		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Set("trace_id", traceID)
		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}

// routeID returns the named path parameter only when it is a UUID; handlers
// reject anything else, and free text should not reach logs or span attributes.
func routeID(c *gin.Context, name string) string {
	raw := strings.TrimSpace(c.Param(name))
	if raw == "" {
		return ""
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return ""
	}
	return id.String()
}
