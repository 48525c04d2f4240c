// Command clearframe runs a single pipeline operation against a local file,
// the CLI equivalent of the HTTP endpoints.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/clearframe/clearframe/internal/entity"
	"github.com/clearframe/clearframe/internal/pkg/pipeline"
)

func main() {
	var (
		op         = flag.String("op", entity.OperationRemoveBackground, "operation: remove-background or resize")
		confidence = flag.Float64("conf", float64(pipeline.DefaultConfidence), "detection confidence threshold (0-1)")
		width      = flag.Int("width", 0, "target width in pixels (resize)")
		height     = flag.Int("height", 0, "target height in pixels (resize)")
		scale      = flag.Float64("scale", 0, "percent scale applied to both axes (resize)")
		output     = flag.String("o", "", "output path (default: operation-prefixed input name)")
		models     = flag.String("models", "./models/yolo11n-seg.onnx,./models/yolov8n-seg.onnx", "comma-separated segmentation model fallback list")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: clearframe [flags] <input-image>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	inputPath := flag.Arg(0)

	if *confidence < 0 || *confidence > 1 {
		fatal("confidence threshold must be between 0.0 and 1.0")
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		fatal("cannot read input: %v", err)
	}

	pipe := pipeline.New(newSegmenter(*models), -1)

	var outcome *pipeline.Outcome
	switch *op {
	case entity.OperationRemoveBackground:
		outcome, err = pipe.RemoveBackground(data, float32(*confidence))
	case entity.OperationResize:
		spec, specErr := resizeSpec(*width, *height, *scale)
		if specErr != nil {
			fatal("%v", specErr)
		}
		outcome, err = pipe.Resize(data, spec)
	default:
		fatal("unknown operation: %s", *op)
	}
	if err != nil {
		fatal("processing failed: %v", err)
	}

	outPath := *output
	if outPath == "" {
		outPath = defaultOutputPath(inputPath, *op, outcome.Format)
	}
	if err := os.WriteFile(outPath, outcome.Data, 0644); err != nil {
		fatal("cannot write output: %v", err)
	}

	fmt.Printf("Saved %dx%d %s to %s\n", outcome.Width, outcome.Height, outcome.Format, outPath)
}

func newSegmenter(modelList string) *pipeline.Segmenter {
	var variants []pipeline.ModelVariant
	for _, path := range strings.Split(modelList, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		variants = append(variants, pipeline.ModelVariant{Name: name, Path: path})
	}
	return pipeline.NewSegmenter(variants, nil)
}

func resizeSpec(width, height int, scale float64) (pipeline.ResizeSpec, error) {
	if scale > 0 {
		return pipeline.ResizeSpec{Mode: pipeline.ResizePercent, Scale: scale}, nil
	}
	if width > 0 || height > 0 {
		return pipeline.ResizeSpec{Mode: pipeline.ResizePixel, Width: width, Height: height}, nil
	}
	return pipeline.ResizeSpec{}, fmt.Errorf("resize needs -scale or -width and -height")
}

// defaultOutputPath prefixes the operation to the input filename stem and
// swaps the extension for the output encoding.
func defaultOutputPath(inputPath, op, format string) string {
	dir := filepath.Dir(inputPath)
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	ext := "." + format
	if format == "jpeg" {
		ext = ".jpg"
	}
	return filepath.Join(dir, op+"_"+stem+ext)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
