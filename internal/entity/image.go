package entity

import "github.com/clearframe/clearframe/internal/pkg/pipeline"

const (
	OperationRemoveBackground = "remove-background"
	OperationResize           = "resize"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

type Image struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Operation string `json:"operation"`
	Filename  string `json:"filename,omitempty"`
	Format    string `json:"format,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ProcessingTask is the queued form of one pipeline invocation, consumed
// by the background worker.
type ProcessingTask struct {
	ImageID    string               `json:"image_id"`
	Operation  string               `json:"operation"`
	Confidence float32              `json:"confidence"`
	Resize     *pipeline.ResizeSpec `json:"resize,omitempty"`
}

type ProcessResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message,omitempty"`
	ProcessedImageURL string `json:"processed_image_url,omitempty"`
	Error             string `json:"error,omitempty"`
}

type UploadResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ImageResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Operation string `json:"operation"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Error     string `json:"error,omitempty"`
}
