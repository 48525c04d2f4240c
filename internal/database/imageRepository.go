package database

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/clearframe/clearframe/internal/entity"
	"github.com/clearframe/clearframe/internal/pkg/storage"
)

func NewImageRepository(storage storage.FileStorage) ImageRepository {
	return &fileImageRepository{storage: storage}
}

func (r *fileImageRepository) Save(image *entity.Image) error {
	imagePath := r.getImageMetadataPath(image.ID)

	data, err := json.Marshal(image)
	if err != nil {
		return err
	}

	return r.storage.Save(imagePath, bytes.NewReader(data))
}

func (r *fileImageRepository) FindByID(id string) (*entity.Image, error) {
	imagePath := r.getImageMetadataPath(id)

	reader, err := r.storage.Get(imagePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer reader.Close()

	var image entity.Image
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(&image); err != nil {
		return nil, err
	}

	return &image, nil
}

func (r *fileImageRepository) Delete(id string) error {
	// The processed filename carries the output format, so look it up
	// before the metadata goes away.
	if img, err := r.FindByID(id); err == nil && img != nil && img.Format != "" {
		if err := r.storage.Delete(r.processedRel(id, img.Format)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	metadataPath := r.getImageMetadataPath(id)
	if err := r.storage.Delete(metadataPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	originalPath := filepath.Join("original", id)
	if err := r.storage.Delete(originalPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

func (r *fileImageRepository) SaveOriginal(id string, file io.Reader) error {
	return r.storage.Save(filepath.Join("original", id), file)
}

func (r *fileImageRepository) OpenOriginal(id string) (io.ReadCloser, error) {
	return r.storage.Get(filepath.Join("original", id))
}

func (r *fileImageRepository) SaveProcessed(id string, format string, data io.Reader) error {
	return r.storage.Save(r.processedRel(id, format), data)
}

func (r *fileImageRepository) ProcessedPath(id string, format string) string {
	return r.storage.Resolve(r.processedRel(id, format))
}

func (r *fileImageRepository) processedRel(id string, format string) string {
	return filepath.Join("processed", id+"."+format)
}

func (r *fileImageRepository) getImageMetadataPath(id string) string {
	return filepath.Join("metadata", id+".json")
}
