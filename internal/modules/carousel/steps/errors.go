package steps

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("carousel: not found")
	ErrInvalidSlideNumber   = errors.New("carousel: invalid slide number")
	ErrVersionNotFound      = errors.New("carousel: slide version not found")
	ErrAllSlidesFailed      = errors.New("carousel: all image generations failed")
	ErrGenerationInProgress = errors.New("carousel: generation already in progress")
)

type SlideErrorKind string

const (
	ProviderFailure SlideErrorKind = "provider"
	OverlayFailure  SlideErrorKind = "overlay"
	FallbackFailure SlideErrorKind = "fallback"
	UploadFailure   SlideErrorKind = "upload"
)

// SlideError is a per-slide failure. It is absorbed by the pipeline and only
// surfaces as the page's generation_error text.
type SlideError struct {
	Kind SlideErrorKind
	Page int
	Err  error
}

func (e *SlideError) Error() string {
	return fmt.Sprintf("slide %d %s failure: %v", e.Page, e.Kind, e.Err)
}

func (e *SlideError) Unwrap() error { return e.Err }

func slideErr(kind SlideErrorKind, page int, err error) *SlideError {
	return &SlideError{Kind: kind, Page: page, Err: err}
}
