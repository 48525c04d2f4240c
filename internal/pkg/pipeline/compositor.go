package pipeline

import (
	"image"
	"image/draw"
)

// defaultFeatherRadius is the boundary smoothing radius applied to the
// combined alpha plane.
const defaultFeatherRadius = 1

// compositeMasks merges detections above threshold into a single cutout.
// The alpha of a pixel is the maximum over all surviving masks, so
// overlapping instances union rather than cancel. Color channels are copied
// from the source untouched (no premultiplication), which keeps the cutout
// lossless wherever alpha is full. No surviving detections is a valid
// outcome: the result is fully transparent.
func compositeMasks(img image.Image, detections []Detection, threshold float32, featherRadius int) *image.NRGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)

	alpha := image.NewGray(image.Rect(0, 0, w, h))
	for _, det := range detections {
		if det.Confidence < threshold || det.Mask == nil {
			continue
		}
		unionMax(alpha, det.Mask)
	}

	if featherRadius > 0 {
		alpha = featherAlpha(alpha, featherRadius)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x*4+3] = alpha.Pix[y*alpha.Stride+x]
		}
	}
	return out
}

// unionMax folds src into dst taking the per-pixel maximum. Commutative, so
// detection order never changes the result.
func unionMax(dst, src *image.Gray) {
	w := dst.Bounds().Dx()
	h := dst.Bounds().Dy()
	if src.Bounds().Dx() < w {
		w = src.Bounds().Dx()
	}
	if src.Bounds().Dy() < h {
		h = src.Bounds().Dy()
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := src.Pix[y*src.Stride+x]
			if s > dst.Pix[y*dst.Stride+x] {
				dst.Pix[y*dst.Stride+x] = s
			}
		}
	}
}

// featherAlpha box-blurs the alpha plane over a (2r+1)^2 window. The
// smoothed values are kept as-is rather than re-thresholded, which is what
// softens the cutout boundary.
func featherAlpha(alpha *image.Gray, radius int) *image.Gray {
	w := alpha.Bounds().Dx()
	h := alpha.Bounds().Dy()
	out := image.NewGray(alpha.Bounds())

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, count int
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					sum += int(alpha.Pix[ny*alpha.Stride+nx])
					count++
				}
			}
			out.Pix[y*out.Stride+x] = uint8(sum / count)
		}
	}
	return out
}
