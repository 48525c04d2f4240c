package service

import (
	"mime/multipart"

	"github.com/clearframe/clearframe/internal/database"
	"github.com/clearframe/clearframe/internal/entity"
	"github.com/clearframe/clearframe/internal/pkg/kafka"
	"github.com/clearframe/clearframe/internal/pkg/pipeline"
)

type ImageService interface {
	RemoveBackground(id string, file *multipart.FileHeader, confidence float32) (*entity.Image, error)
	Resize(id string, file *multipart.FileHeader, spec pipeline.ResizeSpec) (*entity.Image, error)
	EnqueueTask(id string, file *multipart.FileHeader, task entity.ProcessingTask) error
	GetImage(id string) (*entity.Image, error)
	ProcessedPath(id string, format string) string
	DeleteImage(id string) error
}

type imageService struct {
	repo     database.ImageRepository
	producer kafka.Producer
	pipe     *pipeline.Pipeline
	topic    string
}

func NewImageService(repo database.ImageRepository, producer kafka.Producer, pipe *pipeline.Pipeline, topic string) ImageService {
	return &imageService{
		repo:     repo,
		producer: producer,
		pipe:     pipe,
		topic:    topic,
	}
}
