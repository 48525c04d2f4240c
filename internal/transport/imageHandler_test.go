package transport

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearframe/clearframe/internal/database"
	"github.com/clearframe/clearframe/internal/entity"
	"github.com/clearframe/clearframe/internal/pkg/pipeline"
	"github.com/clearframe/clearframe/internal/pkg/storage"
	"github.com/clearframe/clearframe/internal/service"
)

// stubProducer records queued tasks instead of talking to a broker.
type stubProducer struct {
	messages []interface{}
}

func (p *stubProducer) SendMessage(topic string, message interface{}) error {
	p.messages = append(p.messages, message)
	return nil
}

func (p *stubProducer) Close() error { return nil }

func newTestRouter(t *testing.T) (*gin.Engine, *stubProducer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := database.NewImageRepository(storage.NewFileStorage(t.TempDir()))
	producer := &stubProducer{}
	segmenter := pipeline.NewSegmenter(nil, nil)
	pipe := pipeline.New(segmenter, 1)
	svc := service.NewImageService(repo, producer, pipe, "image-processing")
	handler := NewImageHandler(svc, "http://localhost:8080", 200, 20)

	return InitRoutes(handler), producer
}

// multipartImage builds a multipart body with a PNG in the "image" field
// plus extra form fields.
func multipartImage(t *testing.T, filename string, w, h int, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 100, G: 110, B: 120, A: 255})
		}
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	require.NoError(t, png.Encode(part, img))

	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func doRequest(router *gin.Engine, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestResizeImageEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name       string
		fields     map[string]string
		wantStatus int
		wantOK     bool
	}{
		{
			name:       "percent scale",
			fields:     map[string]string{"scale": "50"},
			wantStatus: http.StatusOK,
			wantOK:     true,
		},
		{
			name:       "pixel dimensions",
			fields:     map[string]string{"width": "300", "height": "300"},
			wantStatus: http.StatusOK,
			wantOK:     true,
		},
		{
			name:       "zero width rejected",
			fields:     map[string]string{"width": "0", "height": "300"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "scale above cap rejected",
			fields:     map[string]string{"scale": "250"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing parameters rejected",
			fields:     map[string]string{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "non-numeric width rejected",
			fields:     map[string]string{"width": "abc", "height": "300"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartImage(t, "photo.png", 600, 400, tt.fields)
			rec := doRequest(router, http.MethodPost, "/api/resize-image", body, contentType)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.wantOK {
				var resp entity.ProcessResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.True(t, resp.Success)
				assert.Contains(t, resp.ProcessedImageURL, "http://localhost:8080/image/")
			}
		})
	}
}

func TestResizeImageEndpointNoFile(t *testing.T) {
	router, _ := newTestRouter(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("scale", "50"))
	require.NoError(t, writer.Close())

	rec := doRequest(router, http.MethodPost, "/api/resize-image", body, writer.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResizeImageEndpointRejectsExtension(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartImage(t, "notes.txt", 10, 10, map[string]string{"scale": "50"})
	rec := doRequest(router, http.MethodPost, "/api/resize-image", body, contentType)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveBackgroundEndpointModelUnavailable(t *testing.T) {
	// Empty fallback list: background removal must fail with 503 while
	// resize on the same service keeps working.
	router, _ := newTestRouter(t)

	body, contentType := multipartImage(t, "person.png", 40, 40, nil)
	rec := doRequest(router, http.MethodPost, "/api/remove-background", body, contentType)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp entity.ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "model_unavailable")

	body, contentType = multipartImage(t, "person.png", 40, 40, map[string]string{"scale": "50"})
	rec = doRequest(router, http.MethodPost, "/api/resize-image", body, contentType)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadAsyncEnqueuesTask(t *testing.T) {
	router, producer := newTestRouter(t)

	body, contentType := multipartImage(t, "photo.png", 30, 30,
		map[string]string{"operation": "resize", "scale": "75"})
	rec := doRequest(router, http.MethodPost, "/api/upload", body, contentType)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp entity.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.ID, 8)
	assert.Equal(t, entity.StatusProcessing, resp.Status)

	require.Len(t, producer.messages, 1)
	task := producer.messages[0].(entity.ProcessingTask)
	assert.Equal(t, resp.ID, task.ImageID)
	assert.Equal(t, entity.OperationResize, task.Operation)
	require.NotNil(t, task.Resize)
	assert.Equal(t, 75.0, task.Resize.Scale)
}

func TestUploadAsyncUnknownOperation(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartImage(t, "photo.png", 30, 30,
		map[string]string{"operation": "rotate"})
	rec := doRequest(router, http.MethodPost, "/api/upload", body, contentType)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetImageLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartImage(t, "photo.png", 100, 80, map[string]string{"scale": "50"})
	rec := doRequest(router, http.MethodPost, "/api/resize-image", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp entity.ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// The URL ends with /image/<id>/file.
	parts := strings.Split(resp.ProcessedImageURL, "/")
	require.GreaterOrEqual(t, len(parts), 2)
	id := parts[len(parts)-2]

	rec = doRequest(router, http.MethodGet, "/image/"+id, &bytes.Buffer{}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var meta entity.ImageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.Equal(t, entity.StatusCompleted, meta.Status)
	assert.Equal(t, 50, meta.Width)
	assert.Equal(t, 40, meta.Height)

	rec = doRequest(router, http.MethodGet, "/image/"+id+"/file", &bytes.Buffer{}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodDelete, "/image/"+id, &bytes.Buffer{}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodGet, "/image/"+id, &bytes.Buffer{}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteUnknownImageIsNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(router, http.MethodDelete, "/image/no-such-id", &bytes.Buffer{}, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(router, http.MethodGet, "/api/health", &bytes.Buffer{}, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
