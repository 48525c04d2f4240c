package transport

import (
	"net/http"

	"github.com/clearframe/clearframe/internal/pkg/pipeline"
	"github.com/clearframe/clearframe/internal/service"
)

type ImageHandler struct {
	service   service.ImageService
	baseURL   string
	maxScale  float64
	maxSizeMB int64
}

func NewImageHandler(service service.ImageService, baseURL string, maxScale float64, maxSizeMB int64) *ImageHandler {
	return &ImageHandler{
		service:   service,
		baseURL:   baseURL,
		maxScale:  maxScale,
		maxSizeMB: maxSizeMB,
	}
}

// statusForError maps pipeline error kinds onto HTTP statuses. The error
// kind itself is surfaced unchanged in the response body.
func statusForError(err error) int {
	switch pipeline.KindOf(err) {
	case pipeline.KindInvalidInput, pipeline.KindUnsupportedFormat, pipeline.KindResizeOutOfRange:
		return http.StatusBadRequest
	case pipeline.KindModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
