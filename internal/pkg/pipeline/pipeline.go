// Core image transform pipeline: background removal and resizing.
package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// DefaultConfidence is the detection threshold used when the caller does
// not supply one.
const DefaultConfidence float32 = 0.25

// Outcome is the result of one pipeline invocation. Nothing is persisted
// here; storing bytes somewhere addressable is the caller's job.
type Outcome struct {
	Data   []byte `json:"-"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Pipeline dispatches decoded images to the background removal or resize
// transform and encodes the result. It is stateless across invocations
// apart from the lazily loaded model inside the segmenter, so concurrent
// calls are safe.
type Pipeline struct {
	segmenter     *Segmenter
	featherRadius int
}

func New(segmenter *Segmenter, featherRadius int) *Pipeline {
	if featherRadius < 0 {
		featherRadius = defaultFeatherRadius
	}
	return &Pipeline{segmenter: segmenter, featherRadius: featherRadius}
}

// effectiveConfidence resolves the detection threshold. Negative means
// unset; zero is a valid threshold that accepts every detection.
func effectiveConfidence(v float32) float32 {
	if v < 0 {
		return DefaultConfidence
	}
	return v
}

// RemoveBackground cuts the detected foreground out of the image in data.
// A negative confidence selects the default threshold. The result is always
// PNG: it is the only output encoding here that can carry the alpha channel
// the cutout depends on.
func (p *Pipeline) RemoveBackground(data []byte, confidence float32) (*Outcome, error) {
	confidence = effectiveConfidence(confidence)

	img, _, err := decodeImage(data)
	if err != nil {
		return nil, err
	}

	detections, err := p.segmenter.Detect(img, confidence)
	if err != nil {
		return nil, err
	}
	if len(detections) == 0 {
		logrus.Debugf("no instances above confidence %.2f, producing fully transparent cutout", confidence)
	}

	cutout := compositeMasks(img, detections, confidence, p.featherRadius)

	encoded, err := encodeImage(cutout, "png")
	if err != nil {
		return nil, fmt.Errorf("encode cutout: %w", err)
	}

	return &Outcome{
		Data:   encoded,
		Format: "png",
		Width:  cutout.Bounds().Dx(),
		Height: cutout.Bounds().Dy(),
	}, nil
}

// Resize resamples the image in data according to spec. The output keeps
// the capability of the input encoding: JPEG stays JPEG (flattened), alpha
// capable inputs come back as PNG.
func (p *Pipeline) Resize(data []byte, spec ResizeSpec) (*Outcome, error) {
	img, format, err := decodeImage(data)
	if err != nil {
		return nil, err
	}

	resized, err := resizeImage(img, spec)
	if err != nil {
		return nil, err
	}

	outFormat := outputFormat(format)
	encoded, err := encodeImage(resized, outFormat)
	if err != nil {
		return nil, fmt.Errorf("encode resized image: %w", err)
	}

	return &Outcome{
		Data:   encoded,
		Format: outFormat,
		Width:  resized.Bounds().Dx(),
		Height: resized.Bounds().Dy(),
	}, nil
}
