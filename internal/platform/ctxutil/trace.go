package ctxutil

import "context"

type traceDataKey struct{}

// TraceData carries the identifiers the HTTP layer attaches to each request.
// ArticleID and CarouselID come from the route and are empty elsewhere.
type TraceData struct {
	TraceID    string
	RequestID  string
	ArticleID  string
	CarouselID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(Default(ctx), traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// LogFields returns the non-empty identifiers as structured logging pairs.
func LogFields(ctx context.Context) []interface{} {
	td := GetTraceData(ctx)
	if td == nil {
		return nil
	}
	out := make([]interface{}, 0, 8)
	if td.RequestID != "" {
		out = append(out, "request_id", td.RequestID)
	}
	if td.TraceID != "" {
		out = append(out, "trace_id", td.TraceID)
	}
	if td.ArticleID != "" {
		out = append(out, "article_id", td.ArticleID)
	}
	if td.CarouselID != "" {
		out = append(out, "carousel_id", td.CarouselID)
	}
	return out
}
