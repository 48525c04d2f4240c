package service

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/clearframe/clearframe/internal/entity"
	"github.com/clearframe/clearframe/internal/pkg/pipeline"
)

func (s *imageService) RemoveBackground(id string, file *multipart.FileHeader, confidence float32) (*entity.Image, error) {
	data, err := s.stashOriginal(id, file, entity.OperationRemoveBackground)
	if err != nil {
		return nil, err
	}

	outcome, err := s.pipe.RemoveBackground(data, confidence)
	return s.finish(id, file.Filename, entity.OperationRemoveBackground, outcome, err)
}

func (s *imageService) Resize(id string, file *multipart.FileHeader, spec pipeline.ResizeSpec) (*entity.Image, error) {
	data, err := s.stashOriginal(id, file, entity.OperationResize)
	if err != nil {
		return nil, err
	}

	outcome, err := s.pipe.Resize(data, spec)
	return s.finish(id, file.Filename, entity.OperationResize, outcome, err)
}

// EnqueueTask persists the original and hands the invocation to the worker
// via kafka instead of processing inline.
func (s *imageService) EnqueueTask(id string, file *multipart.FileHeader, task entity.ProcessingTask) error {
	if _, err := s.stashOriginal(id, file, task.Operation); err != nil {
		return err
	}
	task.ImageID = id
	return s.producer.SendMessage(s.topic, task)
}

func (s *imageService) GetImage(id string) (*entity.Image, error) {
	return s.repo.FindByID(id)
}

func (s *imageService) ProcessedPath(id string, format string) string {
	return s.repo.ProcessedPath(id, format)
}

func (s *imageService) DeleteImage(id string) error {
	image, err := s.repo.FindByID(id)
	if err != nil {
		return err
	}
	if image == nil {
		return fmt.Errorf("image %s not found", id)
	}
	return s.repo.Delete(id)
}

// stashOriginal records the processing entry and stores the uploaded bytes
// before any transform runs, so failures stay inspectable.
func (s *imageService) stashOriginal(id string, file *multipart.FileHeader, operation string) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, &pipeline.Error{Kind: pipeline.KindInvalidInput, Msg: "cannot open upload", Err: err}
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, &pipeline.Error{Kind: pipeline.KindInvalidInput, Msg: "cannot read upload", Err: err}
	}

	image := &entity.Image{
		ID:        id,
		Status:    entity.StatusProcessing,
		Operation: operation,
		Filename:  file.Filename,
	}
	if err := s.repo.Save(image); err != nil {
		return nil, &pipeline.Error{Kind: pipeline.KindStorageFailure, Msg: "cannot save metadata", Err: err}
	}

	if err := s.repo.SaveOriginal(id, bytes.NewReader(data)); err != nil {
		return nil, &pipeline.Error{Kind: pipeline.KindStorageFailure, Msg: "cannot save original", Err: err}
	}

	return data, nil
}

// finish persists the outcome (or the failure) and returns the final
// metadata record.
func (s *imageService) finish(id, filename, operation string, outcome *pipeline.Outcome, procErr error) (*entity.Image, error) {
	image := &entity.Image{
		ID:        id,
		Operation: operation,
		Filename:  filename,
	}

	if procErr != nil {
		image.Status = entity.StatusFailed
		image.Error = string(pipeline.KindOf(procErr))
		if image.Error == "" {
			image.Error = procErr.Error()
		}
		_ = s.repo.Save(image)
		return nil, procErr
	}

	if err := s.repo.SaveProcessed(id, outcome.Format, bytes.NewReader(outcome.Data)); err != nil {
		image.Status = entity.StatusFailed
		image.Error = string(pipeline.KindStorageFailure)
		_ = s.repo.Save(image)
		return nil, &pipeline.Error{Kind: pipeline.KindStorageFailure, Msg: "cannot save processed image", Err: err}
	}

	image.Status = entity.StatusCompleted
	image.Format = outcome.Format
	image.Width = outcome.Width
	image.Height = outcome.Height
	if err := s.repo.Save(image); err != nil {
		return nil, &pipeline.Error{Kind: pipeline.KindStorageFailure, Msg: "cannot save metadata", Err: err}
	}

	return image, nil
}
