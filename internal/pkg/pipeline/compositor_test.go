package pipeline

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// maskWithRect builds a binary mask of the given size with a filled
// foreground rectangle.
func maskWithRect(w, h int, fg image.Rectangle) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, w, h))
	for y := fg.Min.Y; y < fg.Max.Y; y++ {
		for x := fg.Min.X; x < fg.Max.X; x++ {
			mask.Pix[y*mask.Stride+x] = 255
		}
	}
	return mask
}

func TestCompositeNoDetectionsIsFullyTransparent(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 40, 30))
	fillImage(src, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	out := compositeMasks(src, nil, 0.25, 1)

	require.NotNil(t, out)
	assert.Equal(t, 40, out.Bounds().Dx())
	assert.Equal(t, 30, out.Bounds().Dy())

	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			px := out.NRGBAAt(x, y)
			assert.Equal(t, uint8(0), px.A, "pixel (%d,%d) should be transparent", x, y)
			// Color survives even under zero alpha.
			assert.Equal(t, uint8(200), px.R)
		}
	}
}

func TestCompositeBelowThresholdDetectionsAreDropped(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 20, 20))
	fillImage(src, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	dets := []Detection{
		{Confidence: 0.1, Mask: maskWithRect(20, 20, image.Rect(0, 0, 20, 20))},
	}

	out := compositeMasks(src, dets, 0.25, 0)

	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			assert.Equal(t, uint8(0), out.NRGBAAt(x, y).A)
		}
	}
}

func TestCompositeSingleDetection(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 60, 60))
	fillImage(src, color.RGBA{R: 9, G: 8, B: 7, A: 255})

	dets := []Detection{
		{Confidence: 0.8, Mask: maskWithRect(60, 60, image.Rect(20, 20, 40, 40))},
	}

	out := compositeMasks(src, dets, 0.25, 1)

	// Strictly inside the detection.
	assert.Greater(t, out.NRGBAAt(30, 30).A, uint8(0))
	assert.Equal(t, uint8(255), out.NRGBAAt(30, 30).A)

	// Far outside the detection and its feather band.
	assert.Equal(t, uint8(0), out.NRGBAAt(5, 5).A)
	assert.Equal(t, uint8(0), out.NRGBAAt(55, 55).A)

	// Color channels copied unchanged everywhere.
	assert.Equal(t, uint8(9), out.NRGBAAt(30, 30).R)
	assert.Equal(t, uint8(9), out.NRGBAAt(5, 5).R)
}

func TestCompositeUnionOfOverlappingMasks(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 50, 50))
	fillImage(src, color.RGBA{A: 255})

	dets := []Detection{
		{Confidence: 0.9, Mask: maskWithRect(50, 50, image.Rect(0, 0, 30, 30))},
		{Confidence: 0.5, Mask: maskWithRect(50, 50, image.Rect(20, 20, 50, 50))},
	}

	out := compositeMasks(src, dets, 0.25, 0)

	// Overlap stays foreground: union, not intersection.
	assert.Equal(t, uint8(255), out.NRGBAAt(25, 25).A)
	// Either mask alone is enough.
	assert.Equal(t, uint8(255), out.NRGBAAt(5, 5).A)
	assert.Equal(t, uint8(255), out.NRGBAAt(45, 45).A)
}

func TestCompositeOrderIndependent(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 30, 30))
	fillImage(src, color.RGBA{A: 255})

	a := Detection{Confidence: 0.9, Mask: maskWithRect(30, 30, image.Rect(0, 0, 15, 30))}
	b := Detection{Confidence: 0.6, Mask: maskWithRect(30, 30, image.Rect(10, 0, 30, 30))}

	ab := compositeMasks(src, []Detection{a, b}, 0.25, 1)
	ba := compositeMasks(src, []Detection{b, a}, 0.25, 1)

	assert.Equal(t, ab.Pix, ba.Pix)
}

func TestFeatherSoftensBoundary(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 40, 40))
	fillImage(src, color.RGBA{A: 255})

	dets := []Detection{
		{Confidence: 0.9, Mask: maskWithRect(40, 40, image.Rect(10, 10, 30, 30))},
	}

	hard := compositeMasks(src, dets, 0.25, 0)
	soft := compositeMasks(src, dets, 0.25, 2)

	// Without feathering the boundary is a step.
	assert.Equal(t, uint8(255), hard.NRGBAAt(10, 20).A)
	assert.Equal(t, uint8(0), hard.NRGBAAt(9, 20).A)

	// With feathering the pixel just outside picks up partial alpha and
	// the pixel just inside gives some up.
	assert.Greater(t, soft.NRGBAAt(9, 20).A, uint8(0))
	assert.Less(t, soft.NRGBAAt(9, 20).A, uint8(255))
	assert.Less(t, soft.NRGBAAt(10, 20).A, uint8(255))

	// Deep inside stays fully opaque.
	assert.Equal(t, uint8(255), soft.NRGBAAt(20, 20).A)
}

func TestFeatherAlphaAveragesWindow(t *testing.T) {
	alpha := image.NewGray(image.Rect(0, 0, 3, 3))
	alpha.Pix[4] = 90 // center pixel only

	out := featherAlpha(alpha, 1)

	// Center of a 3x3 window containing a single 90: 90/9 = 10.
	assert.Equal(t, uint8(10), out.Pix[4])
	// Corner window has 4 pixels, one of them 90: 90/4 = 22.
	assert.Equal(t, uint8(22), out.Pix[0])
}
