package transport

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clearframe/clearframe/internal/entity"
	"github.com/clearframe/clearframe/internal/pkg/pipeline"
)

// RemoveBackground handles synchronous background removal: multipart
// "image" plus an optional "confidence" form field.
func (h *ImageHandler) RemoveBackground(c *gin.Context) {
	file, ok := h.uploadedFile(c)
	if !ok {
		return
	}

	confidence := float32(pipeline.DefaultConfidence)
	if raw := c.PostForm("confidence"); raw != "" {
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "confidence must be a number"})
			return
		}
		// Clamp into the valid detection score range.
		confidence = float32(min(max(v, 0), 1))
	}

	id := shortID()
	image, err := h.service.RemoveBackground(id, file, confidence)
	if err != nil {
		c.JSON(statusForError(err), entity.ProcessResponse{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, entity.ProcessResponse{
		Success:           true,
		Message:           "Background removed successfully",
		ProcessedImageURL: h.processedURL(image),
	})
}

// ResizeImage handles synchronous resizing: multipart "image" plus either
// "width" and "height" (pixel mode) or "scale" (percent mode).
func (h *ImageHandler) ResizeImage(c *gin.Context) {
	file, ok := h.uploadedFile(c)
	if !ok {
		return
	}

	spec, err := h.resizeSpec(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := shortID()
	image, err := h.service.Resize(id, file, spec)
	if err != nil {
		c.JSON(statusForError(err), entity.ProcessResponse{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, entity.ProcessResponse{
		Success:           true,
		Message:           "Image resized successfully",
		ProcessedImageURL: h.processedURL(image),
	})
}

// UploadAsync accepts the same parameters but queues the work instead of
// blocking on it.
func (h *ImageHandler) UploadAsync(c *gin.Context) {
	file, ok := h.uploadedFile(c)
	if !ok {
		return
	}

	task := entity.ProcessingTask{Operation: c.PostForm("operation")}
	switch task.Operation {
	case entity.OperationRemoveBackground:
		task.Confidence = pipeline.DefaultConfidence
		if raw := c.PostForm("confidence"); raw != "" {
			v, err := strconv.ParseFloat(raw, 32)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "confidence must be a number"})
				return
			}
			task.Confidence = float32(min(max(v, 0), 1))
		}
	case entity.OperationResize:
		spec, err := h.resizeSpec(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		task.Resize = &spec
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "operation must be remove-background or resize"})
		return
	}

	id := shortID()
	if err := h.service.EnqueueTask(id, file, task); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, entity.UploadResponse{ID: id, Status: entity.StatusProcessing})
}

func (h *ImageHandler) GetImage(c *gin.Context) {
	id := c.Param("id")

	image, err := h.service.GetImage(id)
	if err != nil || image == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}

	c.JSON(http.StatusOK, entity.ImageResponse{
		ID:        image.ID,
		Status:    image.Status,
		Operation: image.Operation,
		Width:     image.Width,
		Height:    image.Height,
		Error:     image.Error,
	})
}

func (h *ImageHandler) GetImageFile(c *gin.Context) {
	id := c.Param("id")

	image, err := h.service.GetImage(id)
	if err != nil || image == nil || image.Status != entity.StatusCompleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Processed image not found"})
		return
	}

	c.File(h.service.ProcessedPath(id, image.Format))
}

func (h *ImageHandler) DeleteImage(c *gin.Context) {
	id := c.Param("id")

	if err := h.service.DeleteImage(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Image deleted successfully"})
}

func (h *ImageHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "clearframe",
	})
}

// uploadedFile extracts and validates the multipart image field, writing
// the error response itself when validation fails.
func (h *ImageHandler) uploadedFile(c *gin.Context) (*multipart.FileHeader, bool) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided"})
		return nil, false
	}

	if h.maxSizeMB > 0 && file.Size > h.maxSizeMB<<20 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("File exceeds %d MB limit", h.maxSizeMB)})
		return nil, false
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !isValidImageType(ext) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image type. Supported: jpg, jpeg, png, gif, webp"})
		return nil, false
	}

	return file, true
}

// resizeSpec parses the form fields into a ResizeSpec. Scale takes
// precedence when both styles are present, matching the original API.
func (h *ImageHandler) resizeSpec(c *gin.Context) (pipeline.ResizeSpec, error) {
	if raw := c.PostForm("scale"); raw != "" {
		scale, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return pipeline.ResizeSpec{}, fmt.Errorf("scale must be a number")
		}
		if scale <= 0 || scale > h.maxScale {
			return pipeline.ResizeSpec{}, fmt.Errorf("scale must be in (0, %g]", h.maxScale)
		}
		return pipeline.ResizeSpec{Mode: pipeline.ResizePercent, Scale: scale}, nil
	}

	rawW, rawH := c.PostForm("width"), c.PostForm("height")
	if rawW == "" || rawH == "" {
		return pipeline.ResizeSpec{}, fmt.Errorf("provide either scale or both width and height")
	}
	width, err := strconv.Atoi(rawW)
	if err != nil {
		return pipeline.ResizeSpec{}, fmt.Errorf("width must be an integer")
	}
	height, err := strconv.Atoi(rawH)
	if err != nil {
		return pipeline.ResizeSpec{}, fmt.Errorf("height must be an integer")
	}
	return pipeline.ResizeSpec{Mode: pipeline.ResizePixel, Width: width, Height: height}, nil
}

func (h *ImageHandler) processedURL(image *entity.Image) string {
	return fmt.Sprintf("%s/image/%s/file", h.baseURL, image.ID)
}

// shortID returns the first 8 characters of a fresh UUID as an upload ID.
func shortID() string {
	return uuid.New().String()[:8]
}

func isValidImageType(ext string) bool {
	validTypes := map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
		".webp": true,
	}
	return validTypes[ext]
}
