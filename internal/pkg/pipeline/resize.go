package pipeline

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

type ResizeMode string

const (
	ResizePixel   ResizeMode = "pixel"
	ResizePercent ResizeMode = "percent"
)

// ResizeSpec describes a dimension transform. Pixel mode sets both axes
// independently, so aspect ratio is the caller's responsibility. Percent
// mode scales both axes by the same factor.
type ResizeSpec struct {
	Mode   ResizeMode `json:"mode"`
	Width  int        `json:"width,omitempty"`
	Height int        `json:"height,omitempty"`
	Scale  float64    `json:"scale,omitempty"`
}

// resolveSize computes the target dimensions for spec against a source of
// srcW x srcH pixels.
func resolveSize(spec ResizeSpec, srcW, srcH int) (int, int, error) {
	var w, h int

	switch spec.Mode {
	case ResizePixel:
		w, h = spec.Width, spec.Height
	case ResizePercent:
		if spec.Scale <= 0 {
			return 0, 0, newError(KindResizeOutOfRange, fmt.Sprintf("scale must be positive, got %g", spec.Scale), nil)
		}
		w = int(math.Round(float64(srcW) * spec.Scale / 100))
		h = int(math.Round(float64(srcH) * spec.Scale / 100))
	default:
		return 0, 0, newError(KindInvalidInput, "unknown resize mode: "+string(spec.Mode), nil)
	}

	if w < 1 || h < 1 {
		return 0, 0, newError(KindResizeOutOfRange, fmt.Sprintf("target size %dx%d is below 1 pixel", w, h), nil)
	}
	return w, h, nil
}

// resizeImage resamples img to the size resolved from spec. Shrinking uses
// box (area average) filtering to avoid aliasing, enlarging uses Catmull-Rom
// (bicubic) to avoid blockiness.
func resizeImage(img image.Image, spec ResizeSpec) (*image.NRGBA, error) {
	srcW := img.Bounds().Dx()
	srcH := img.Bounds().Dy()

	w, h, err := resolveSize(spec, srcW, srcH)
	if err != nil {
		return nil, err
	}

	filter := imaging.CatmullRom
	if w*h < srcW*srcH {
		filter = imaging.Box
	}

	return imaging.Resize(img, w, h, filter), nil
}
