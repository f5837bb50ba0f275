package steps

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectStore is the storage surface the pipeline writes through. Both the GCS
// bucket service and the local filesystem store satisfy it.
type ObjectStore interface {
	UploadFile(ctx context.Context, key string, r io.Reader, contentType string) error
	DeletePrefix(ctx context.Context, prefix string) error
	GetPublicURL(key string) string
}

// Uploader persists finished slide images and documents under a carousel's
// prefix and returns their public URLs.
type Uploader struct {
	Store ObjectStore
	// Now stamps filenames; nil uses time.Now.
	Now func() time.Time
}

// CarouselPrefix is the key prefix holding every object of one carousel.
func CarouselPrefix(carouselID uuid.UUID) string {
	return "carousels/" + carouselID.String() + "/"
}

// SlideFilename follows carousel-{id}-page-{n}[-fallback][-v{ts}].png. A zero
// timestamp omits the version suffix.
func SlideFilename(carouselID uuid.UUID, page int, fallback bool, ts int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "carousel-%s-page-%d", carouselID, page)
	if fallback {
		b.WriteString("-fallback")
	}
	if ts > 0 {
		fmt.Fprintf(&b, "-v%d", ts)
	}
	b.WriteString(".png")
	return b.String()
}

func (u Uploader) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

// UploadImage stores data as carousels/{id}/{filename}.
func (u Uploader) UploadImage(ctx context.Context, carouselID uuid.UUID, filename string, data []byte, mimeType string) (string, error) {
	if u.Store == nil {
		return "", fmt.Errorf("object store not configured")
	}
	key := path.Join(strings.TrimSuffix(CarouselPrefix(carouselID), "/"), filename)
	if err := u.Store.UploadFile(ctx, key, bytes.NewReader(data), mimeType); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return u.Store.GetPublicURL(key), nil
}

// UploadSlide names and stores one slide PNG.
func (u Uploader) UploadSlide(ctx context.Context, carouselID uuid.UUID, page int, fallback bool, png []byte) (string, error) {
	name := SlideFilename(carouselID, page, fallback, u.now().UnixMilli())
	return u.UploadImage(ctx, carouselID, name, png, "image/png")
}

// DeleteCarousel removes every stored object of the carousel.
func (u Uploader) DeleteCarousel(ctx context.Context, carouselID uuid.UUID) error {
	if u.Store == nil {
		return nil
	}
	return u.Store.DeletePrefix(ctx, CarouselPrefix(carouselID))
}
