package pipeline

import "image"

// Detection is one segmented instance found by the model. Mask is a binary
// per-pixel map (0 background, 255 foreground) sized exactly to the
// dimensions of the inferred image.
type Detection struct {
	Class      int
	Label      string
	Confidence float32
	Box        image.Rectangle
	Mask       *image.Gray
}

// cocoLabels are the class names of the COCO dataset the segmentation
// models are trained on. Index 0 (person) is the default detection target.
var cocoLabels = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train",
	"truck", "boat", "traffic light", "fire hydrant", "stop sign",
	"parking meter", "bench", "bird", "cat", "dog", "horse", "sheep", "cow",
	"elephant", "bear", "zebra", "giraffe", "backpack", "umbrella",
	"handbag", "tie", "suitcase", "frisbee", "skis", "snowboard",
	"sports ball", "kite", "baseball bat", "baseball glove", "skateboard",
	"surfboard", "tennis racket", "bottle", "wine glass", "cup", "fork",
	"knife", "spoon", "bowl", "banana", "apple", "sandwich", "orange",
	"broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv",
	"laptop", "mouse", "remote", "keyboard", "cell phone", "microwave",
	"oven", "toaster", "sink", "refrigerator", "book", "clock", "vase",
	"scissors", "teddy bear", "hair drier", "toothbrush",
}

func labelFor(class int) string {
	if class >= 0 && class < len(cocoLabels) {
		return cocoLabels[class]
	}
	return "unknown"
}
