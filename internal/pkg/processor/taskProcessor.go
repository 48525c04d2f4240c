package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/clearframe/clearframe/internal/database"
	"github.com/clearframe/clearframe/internal/entity"
	"github.com/clearframe/clearframe/internal/pkg/pipeline"
)

// TaskProcessor executes queued pipeline invocations against stored
// originals.
type TaskProcessor interface {
	Process(task entity.ProcessingTask) error
}

type taskProcessor struct {
	repo database.ImageRepository
	pipe *pipeline.Pipeline
}

func NewTaskProcessor(repo database.ImageRepository, pipe *pipeline.Pipeline) TaskProcessor {
	return &taskProcessor{repo: repo, pipe: pipe}
}

func (p *taskProcessor) Process(task entity.ProcessingTask) error {
	log.Printf("Processing image: %s (%s)", task.ImageID, task.Operation)

	reader, err := p.repo.OpenOriginal(task.ImageID)
	if err != nil {
		return fmt.Errorf("failed to load original: %w", err)
	}
	data, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		return fmt.Errorf("failed to read original: %w", err)
	}

	var outcome *pipeline.Outcome
	switch task.Operation {
	case entity.OperationRemoveBackground:
		outcome, err = p.pipe.RemoveBackground(data, task.Confidence)
	case entity.OperationResize:
		if task.Resize == nil {
			err = fmt.Errorf("resize task without spec")
		} else {
			outcome, err = p.pipe.Resize(data, *task.Resize)
		}
	default:
		err = fmt.Errorf("unknown operation: %s", task.Operation)
	}

	if err != nil {
		p.markFailed(task, err)
		return err
	}

	if err := p.repo.SaveProcessed(task.ImageID, outcome.Format, bytes.NewReader(outcome.Data)); err != nil {
		p.markFailed(task, err)
		return fmt.Errorf("failed to save processed image: %w", err)
	}

	if err := p.updateStatus(task, outcome); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	log.Printf("Completed processing image: %s", task.ImageID)
	return nil
}

func (p *taskProcessor) updateStatus(task entity.ProcessingTask, outcome *pipeline.Outcome) error {
	img, err := p.repo.FindByID(task.ImageID)
	if err != nil || img == nil {
		img = &entity.Image{ID: task.ImageID, Operation: task.Operation}
	}
	img.Status = entity.StatusCompleted
	img.Format = outcome.Format
	img.Width = outcome.Width
	img.Height = outcome.Height
	img.Error = ""
	return p.repo.Save(img)
}

func (p *taskProcessor) markFailed(task entity.ProcessingTask, cause error) {
	img, err := p.repo.FindByID(task.ImageID)
	if err != nil || img == nil {
		img = &entity.Image{ID: task.ImageID, Operation: task.Operation}
	}
	img.Status = entity.StatusFailed
	img.Error = string(pipeline.KindOf(cause))
	if img.Error == "" {
		img.Error = cause.Error()
	}
	if saveErr := p.repo.Save(img); saveErr != nil {
		log.Printf("Failed to record failure for %s: %v", task.ImageID, saveErr)
	}
}

// StartConsumer reads processing tasks from kafka and runs them through
// proc, one goroutine per message.
func StartConsumer(brokers []string, topic, groupID string, proc TaskProcessor) {

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})

	defer reader.Close()

	log.Println("Image processing consumer started...")
	log.Printf("Connected to Kafka brokers: %s", brokers)

	for {
		ctx := context.Background()
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			log.Printf("Error reading message from Kafka: %v", err)
			continue
		}

		var task entity.ProcessingTask
		if err := json.Unmarshal(msg.Value, &task); err != nil {
			log.Printf("Failed to parse task: %v\n", err)
			continue
		}

		go func(t entity.ProcessingTask) {
			if err := proc.Process(t); err != nil {
				log.Printf("Processing failed for %s: %v\n", t.ImageID, err)
			}
		}(task)
	}
}
