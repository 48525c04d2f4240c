package pipeline

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	// bmp and tiff are registered so their uploads are recognized and
	// rejected as unsupported rather than mistaken for corrupt data.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 90

var supportedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webp": true,
}

// decodeImage decodes raw upload bytes. A byte stream that is not a
// decodable image at all is invalid_input; a stream that decodes to a
// format outside the accepted set is unsupported_format.
func decodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", newError(KindInvalidInput, "empty image data", nil)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", newError(KindInvalidInput, "bytes are not a decodable image", err)
		}
		return nil, "", newError(KindInvalidInput, "corrupt image data", err)
	}

	if !supportedFormats[format] {
		return nil, "", newError(KindUnsupportedFormat, "format not accepted: "+format, nil)
	}

	b := img.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		return nil, "", newError(KindInvalidInput, "image has no pixels", nil)
	}

	return img, format, nil
}

// outputFormat picks the encoding for a resize result. GIF and WebP results
// are written as PNG since resampling produces a single true-color frame;
// PNG also keeps any alpha the input carried.
func outputFormat(inputFormat string) string {
	if inputFormat == "jpeg" {
		return "jpeg"
	}
	return "png"
}

func encodeImage(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
