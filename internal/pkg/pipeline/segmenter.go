package pipeline

import (
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	xdraw "golang.org/x/image/draw"
)

const (
	modelInputSize = 640
	protoSize      = 160
	protoChannels  = 32
	nmsThreshold   = 0.45
)

// ModelVariant is one entry of the segmentation model fallback list.
type ModelVariant struct {
	Name string `mapstructure:"name"`
	Path string `mapstructure:"path"`
}

// Segmenter wraps a YOLO instance-segmentation network. Variants are tried
// in priority order on first use; the first one that loads stays active for
// the process lifetime. A load failure across the whole list is memoized as
// model_unavailable and never re-attempted, and a later inference failure
// on the active variant never triggers re-selection, so result quality
// stays deterministic within a process.
type Segmenter struct {
	variants []ModelVariant
	classes  map[int]bool

	once    sync.Once
	net     gocv.Net
	active  string
	loadErr error

	// gocv nets are not reentrant; forward passes are serialized.
	mu sync.Mutex
}

// NewSegmenter builds a segmenter over the given fallback list. classes
// restricts detections to the given COCO class IDs; empty means class 0
// (person), matching the service default.
func NewSegmenter(variants []ModelVariant, classes []int) *Segmenter {
	if len(classes) == 0 {
		classes = []int{0}
	}
	allowed := make(map[int]bool, len(classes))
	for _, c := range classes {
		allowed[c] = true
	}
	return &Segmenter{variants: variants, classes: allowed}
}

// ensureLoaded walks the fallback list once, most capable variant first.
func (s *Segmenter) ensureLoaded() error {
	s.once.Do(func() {
		for _, v := range s.variants {
			net, ok := loadVariant(v)
			if !ok {
				logrus.Warnf("segmentation model %s not loadable from %s, trying next variant", v.Name, v.Path)
				continue
			}
			s.net = net
			s.active = v.Name
			logrus.Infof("segmentation model %s loaded from %s", v.Name, v.Path)
			return
		}
		s.loadErr = newError(KindModelUnavailable,
			fmt.Sprintf("no segmentation model could be loaded (%d variants tried)", len(s.variants)), nil)
	})
	return s.loadErr
}

// loadVariant reads one ONNX file, fencing the OpenCV exceptions gocv
// surfaces as panics on unreadable files.
func loadVariant(v ModelVariant) (net gocv.Net, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	if _, err := os.Stat(v.Path); err != nil {
		return net, false
	}
	net = gocv.ReadNetFromONNX(v.Path)
	return net, !net.Empty()
}

// Active reports the name of the loaded model variant, or "" before the
// first inference.
func (s *Segmenter) Active() string {
	return s.active
}

// Detect runs segmentation inference and returns one Detection per instance
// scoring at or above threshold, with masks sized to img.
func (s *Segmenter) Detect(img image.Image, threshold float32) ([]Detection, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out0, out1, err := s.forward(img)
	if err != nil {
		return nil, err
	}
	defer out0.Close()
	defer out1.Close()

	dets, err := decodeOutputs(out0, out1, img.Bounds().Dx(), img.Bounds().Dy(), threshold, s.classes)
	if err != nil {
		return nil, err
	}
	return dets, nil
}

// forward runs the network. gocv surfaces OpenCV errors as panics, so the
// pass is fenced and reported as inference_failure.
func (s *Segmenter) forward(img image.Image) (out0, out1 gocv.Mat, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newError(KindInferenceFailure, fmt.Sprintf("model %s inference panicked", s.active), fmt.Errorf("%v", r))
		}
	}()

	mat, cvtErr := gocv.ImageToMatRGB(img)
	if cvtErr != nil {
		return out0, out1, newError(KindInferenceFailure, "image to mat conversion failed", cvtErr)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0,
		image.Pt(modelInputSize, modelInputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	outs := s.net.ForwardLayers([]string{"output0", "output1"})
	if len(outs) < 2 {
		for i := range outs {
			outs[i].Close()
		}
		return out0, out1, newError(KindInferenceFailure,
			fmt.Sprintf("model %s returned %d outputs, want 2", s.active, len(outs)), nil)
	}
	return outs[0], outs[1], nil
}

// decodeOutputs turns the raw YOLO segmentation head tensors into
// detections. out0 is [1, 4+classes+32, anchors] with box, class scores and
// mask coefficients per anchor; out1 is the [1, 32, 160, 160] mask
// prototype tensor.
func decodeOutputs(out0, out1 gocv.Mat, imgW, imgH int, threshold float32, allowed map[int]bool) ([]Detection, error) {
	dims := out0.Size()
	if len(dims) != 3 {
		return nil, newError(KindInferenceFailure, "unexpected detection tensor shape", nil)
	}
	rows := dims[1]
	anchors := dims[2]
	numClasses := rows - 4 - protoChannels
	if numClasses < 1 {
		return nil, newError(KindInferenceFailure, "detection tensor too small for segmentation head", nil)
	}

	if !protoShapeValid(out1.Size()) {
		return nil, newError(KindInferenceFailure, "unexpected prototype tensor shape", nil)
	}

	data, err := out0.DataPtrFloat32()
	if err != nil {
		return nil, newError(KindInferenceFailure, "detection tensor not readable", err)
	}
	proto, err := out1.DataPtrFloat32()
	if err != nil {
		return nil, newError(KindInferenceFailure, "prototype tensor not readable", err)
	}
	if len(proto) < protoChannels*protoSize*protoSize {
		return nil, newError(KindInferenceFailure, "prototype tensor shorter than its declared shape", nil)
	}

	at := func(row, col int) float32 { return data[row*anchors+col] }

	var boxes []image.Rectangle
	var scores []float32
	var classes []int
	var coeffs [][]float32

	for i := 0; i < anchors; i++ {
		best := -1
		var bestScore float32
		for c := 0; c < numClasses; c++ {
			if sc := at(4+c, i); sc > bestScore {
				bestScore = sc
				best = c
			}
		}
		if bestScore < threshold || !allowed[best] {
			continue
		}

		cx, cy := at(0, i), at(1, i)
		bw, bh := at(2, i), at(3, i)
		boxes = append(boxes, image.Rect(
			int(cx-bw/2), int(cy-bh/2), int(cx+bw/2), int(cy+bh/2)))
		scores = append(scores, bestScore)
		classes = append(classes, best)

		mc := make([]float32, protoChannels)
		for k := 0; k < protoChannels; k++ {
			mc[k] = at(4+numClasses+k, i)
		}
		coeffs = append(coeffs, mc)
	}

	if len(boxes) == 0 {
		return nil, nil
	}

	keep := gocv.NMSBoxes(boxes, scores, threshold, nmsThreshold)

	dets := make([]Detection, 0, len(keep))
	for _, idx := range keep {
		mask := instanceMask(proto, coeffs[idx], boxes[idx], imgW, imgH)
		dets = append(dets, Detection{
			Class:      classes[idx],
			Label:      labelFor(classes[idx]),
			Confidence: scores[idx],
			Box:        scaleRect(boxes[idx], imgW, imgH),
			Mask:       mask,
		})
	}
	return dets, nil
}

// protoShapeValid reports whether the mask prototype tensor has the
// [1, 32, 160, 160] layout instanceMask indexes into.
func protoShapeValid(dims []int) bool {
	return len(dims) == 4 &&
		dims[1] == protoChannels &&
		dims[2] == protoSize &&
		dims[3] == protoSize
}

// instanceMask builds the mask of one instance: linear combination of the
// prototype planes with the instance coefficients, binarized at 0.5,
// restricted to the detection box, scaled up to image size with
// nearest-neighbor so mask pixels stay aligned with the detection grid.
func instanceMask(proto []float32, coeff []float32, box640 image.Rectangle, imgW, imgH int) *image.Gray {
	// Box in prototype space; the prototype grid covers the model input
	// at a quarter of its resolution.
	pb := image.Rect(
		box640.Min.X*protoSize/modelInputSize,
		box640.Min.Y*protoSize/modelInputSize,
		box640.Max.X*protoSize/modelInputSize,
		box640.Max.Y*protoSize/modelInputSize,
	).Intersect(image.Rect(0, 0, protoSize, protoSize))

	small := image.NewGray(image.Rect(0, 0, protoSize, protoSize))
	for y := pb.Min.Y; y < pb.Max.Y; y++ {
		for x := pb.Min.X; x < pb.Max.X; x++ {
			var v float32
			for k := 0; k < protoChannels; k++ {
				v += coeff[k] * proto[k*protoSize*protoSize+y*protoSize+x]
			}
			if sigmoid(v) > 0.5 {
				small.Pix[y*small.Stride+x] = 255
			}
		}
	}

	full := image.NewGray(image.Rect(0, 0, imgW, imgH))
	xdraw.NearestNeighbor.Scale(full, full.Bounds(), small, small.Bounds(), xdraw.Src, nil)
	return full
}

// scaleRect maps a box from model input space back onto the original image.
func scaleRect(r image.Rectangle, imgW, imgH int) image.Rectangle {
	return image.Rect(
		r.Min.X*imgW/modelInputSize,
		r.Min.Y*imgH/modelInputSize,
		r.Max.X*imgW/modelInputSize,
		r.Max.Y*imgH/modelInputSize,
	).Intersect(image.Rect(0, 0, imgW, imgH))
}

func sigmoid(v float32) float64 {
	return 1.0 / (1.0 + math.Exp(-float64(v)))
}
