// Package pdfdoc assembles slide images into a multi-page PDF.
package pdfdoc

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/yungbote/carousel-backend/internal/pkg/httpx"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
	"github.com/yungbote/carousel-backend/internal/platform/render"
)

const maxRemoteImageBytes = 32 << 20

type Config struct {
	// PageSize is the side of each square page in points.
	PageSize     float64
	FetchTimeout time.Duration
}

type Result struct {
	PDF          []byte
	Pages        int
	Placeholders []int
}

type Assembler struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

func NewAssembler(log *logger.Logger, cfg Config) *Assembler {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1080
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	return &Assembler{
		log:        log.With("service", "PDFAssembler"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
	}
}

// Assemble builds one page per image reference, in order. A reference may be a
// base64 data URI, a local filesystem path (optionally file://), or an http(s)
// URL. Pages whose image cannot be loaded get a neutral placeholder.
func (a *Assembler) Assemble(ctx context.Context, title string, refs []string) (Result, error) {
	if len(refs) == 0 {
		return Result{}, errors.New("no images to assemble")
	}
	side := a.cfg.PageSize
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: side, Ht: side},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(title, true)
	pdf.SetCreator("carousel-backend", true)

	res := Result{}
	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		pdf.AddPage()
		pngBytes, err := a.loadAsPNG(ctx, ref)
		if err == nil {
			name := fmt.Sprintf("slide-%d", i+1)
			opts := fpdf.ImageOptions{ImageType: "PNG"}
			pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(pngBytes))
			if pdf.Ok() {
				pdf.ImageOptions(name, 0, 0, side, side, false, opts, 0, "")
			}
			if !pdf.Ok() {
				err = pdf.Error()
				pdf.ClearError()
			}
		}
		if err != nil {
			a.log.Warn("Slide image could not be embedded; using placeholder", "page", i+1, "error", err)
			drawPlaceholder(pdf, side)
			res.Placeholders = append(res.Placeholders, i+1)
		}
		res.Pages++
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Result{}, fmt.Errorf("write pdf: %w", err)
	}
	res.PDF = buf.Bytes()
	return res, nil
}

func drawPlaceholder(pdf *fpdf.Fpdf, side float64) {
	pdf.SetFillColor(229, 231, 235)
	pdf.Rect(0, 0, side, side, "F")
	pdf.SetDrawColor(156, 163, 175)
	pdf.SetLineWidth(4)
	inset := side * 0.08
	pdf.Rect(inset, inset, side-2*inset, side-2*inset, "D")
}

// loadAsPNG resolves ref and normalises the image to PNG so corrupt or exotic
// inputs fail here instead of inside the PDF writer.
func (a *Assembler) loadAsPNG(ctx context.Context, ref string) ([]byte, error) {
	raw, err := a.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	img, err := render.DecodeImage(raw)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("re-encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (a *Assembler) load(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return nil, errors.New("empty image reference")
	case strings.HasPrefix(ref, "data:"):
		_, data, err := ParseDataURI(ref)
		return data, err
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		b, _, err := httpx.Fetch(ctx, a.httpClient, ref, maxRemoteImageBytes)
		return b, err
	case strings.HasPrefix(ref, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return nil, err
		}
		return os.ReadFile(u.Path)
	default:
		return os.ReadFile(ref)
	}
}

// DataURI encodes b as a base64 data URI.
func DataURI(mime string, b []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b)
}

// ParseDataURI decodes a base64 data URI.
func ParseDataURI(uri string) (mime string, data []byte, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, errors.New("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("malformed data URI")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, errors.New("data URI is not base64 encoded")
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URI: %w", err)
	}
	return strings.TrimSuffix(meta, ";base64"), data, nil
}
