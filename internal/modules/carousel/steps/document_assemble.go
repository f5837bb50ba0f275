package steps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/carousel-backend/internal/domain/carousel"
	"github.com/yungbote/carousel-backend/internal/observability"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
	"github.com/yungbote/carousel-backend/internal/platform/pdfdoc"
)

type DocumentAssembleDeps struct {
	Log       *logger.Logger
	Assembler DocumentAssembler
	Uploader  Uploader
	UploadPDF bool
	Metrics   *observability.Metrics
}

type DocumentAssembleInput struct {
	CarouselID uuid.UUID
	Title      string
	Pages      []carousel.CarouselPage
}

type DocumentAssembleOutput struct {
	URL          string `json:"url"`
	Pages        int    `json:"pages"`
	Placeholders []int  `json:"placeholders,omitempty"`
}

// AssembleDocument builds the document from pages that have an image. The
// result is a data URI unless UploadPDF is set. Callers treat errors as
// non-fatal.
func AssembleDocument(ctx context.Context, deps DocumentAssembleDeps, in DocumentAssembleInput) (out DocumentAssembleOutput, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "carousel.document", attribute.String("carousel_id", in.CarouselID.String()))
	defer func() {
		deps.Metrics.ObserveStage("document", time.Since(start))
		observability.EndSpan(span, err)
	}()

	if deps.Assembler == nil {
		return out, errors.New("document assembler not configured")
	}
	refs := make([]string, 0, len(in.Pages))
	for _, p := range in.Pages {
		if p.HasImage() {
			refs = append(refs, *p.ImageURL)
		}
	}
	if len(refs) == 0 {
		return out, errors.New("no slide images to assemble")
	}

	res, err := deps.Assembler.Assemble(ctx, in.Title, refs)
	if err != nil {
		return out, fmt.Errorf("assemble document: %w", err)
	}
	if len(res.Placeholders) > 0 && deps.Log != nil {
		deps.Log.Warn("Document assembled with placeholders", "carousel_id", in.CarouselID, "placeholders", res.Placeholders)
	}
	out = DocumentAssembleOutput{Pages: res.Pages, Placeholders: res.Placeholders}

	if !deps.UploadPDF {
		out.URL = pdfdoc.DataURI("application/pdf", res.PDF)
		return out, nil
	}
	name := fmt.Sprintf("carousel-%s-v%d.pdf", in.CarouselID, deps.Uploader.now().UnixMilli())
	url, err := deps.Uploader.UploadImage(ctx, in.CarouselID, name, res.PDF, "application/pdf")
	if err != nil {
		return DocumentAssembleOutput{}, err
	}
	out.URL = url
	return out, nil
}

// reassemble rebuilds the document for an intent; failures are logged and
// yield nil.
func reassemble(ctx context.Context, deps CarouselDeps, intent *carousel.CarouselIntent, title string) *string {
	doc, err := AssembleDocument(ctx, deps.documentDeps(), DocumentAssembleInput{
		CarouselID: intent.ID,
		Title:      title,
		Pages:      intent.Pages,
	})
	if err != nil {
		deps.log().Warn("Document assembly failed; images remain available", "carousel_id", intent.ID, "error", err)
		return nil
	}
	return &doc.URL
}
