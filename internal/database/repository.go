package database

import (
	"io"

	"github.com/clearframe/clearframe/internal/entity"
	"github.com/clearframe/clearframe/internal/pkg/storage"
)

type ImageRepository interface {
	Save(image *entity.Image) error
	FindByID(id string) (*entity.Image, error)
	Delete(id string) error
	SaveOriginal(id string, file io.Reader) error
	OpenOriginal(id string) (io.ReadCloser, error)
	SaveProcessed(id string, format string, data io.Reader) error
	ProcessedPath(id string, format string) string
}

type fileImageRepository struct {
	storage storage.FileStorage
}
