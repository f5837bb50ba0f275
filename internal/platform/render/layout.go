package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
)

// TextBlock is a run of wrapped text anchored at (X, Y). AnchorY selects which
// edge of the wrapped block sits on Y: 0 is the top, 1 the bottom.
type TextBlock struct {
	Text        string
	Bold        bool
	Size        float64
	X, Y        float64
	AnchorY     float64
	MaxWidth    float64
	MaxLines    int
	LineSpacing float64
	Align       Align
	Color       color.NRGBA
	Shadow      bool
}

type GradientStop struct {
	Offset float64
	Color  color.NRGBA
}

type LinearGradient struct {
	X0, Y0, X1, Y1 float64
	Stops          []GradientStop
}

type Circle struct {
	X, Y, R float64
	Color   color.NRGBA
}

// Layout is a complete description of one slide. Building a Layout touches no
// engine state, so layouts can be prepared concurrently and handed to
// Engine.Rasterize.
type Layout struct {
	Width, Height int
	Fill          color.NRGBA
	// Background is drawn at the origin and should already match the canvas size.
	Background         image.Image
	BackgroundGradient *LinearGradient
	Scrims             []LinearGradient
	Circles            []Circle
	Texts              []TextBlock
}

func (l Layout) validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("invalid canvas %dx%d", l.Width, l.Height)
	}
	for i, t := range l.Texts {
		if t.Size <= 0 {
			return fmt.Errorf("text block %d: font size must be positive", i)
		}
	}
	return nil
}

// DecodeImage decodes PNG, JPEG or WebP bytes.
func DecodeImage(raw []byte) (image.Image, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("decode image: empty input")
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Cover scales src to fill w x h, center-cropping the overflow.
func Cover(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw == 0 || sh == 0 {
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}
	crop := b
	// Compare aspect ratios without floats: sw/sh vs w/h.
	if sw*h > sh*w {
		cw := sh * w / h
		x0 := b.Min.X + (sw-cw)/2
		crop = image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	} else if sw*h < sh*w {
		ch := sw * h / w
		y0 := b.Min.Y + (sh-ch)/2
		crop = image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	return dst
}
