package main

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/clearframe/clearframe/config"
	"github.com/clearframe/clearframe/internal/database"
	"github.com/clearframe/clearframe/internal/pkg/pipeline"
	"github.com/clearframe/clearframe/internal/pkg/processor"
	"github.com/clearframe/clearframe/internal/pkg/storage"
)

func main() {
	v, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("failed to load config: %s", err.Error())
	}

	cfg, err := config.ParseConfig(v)
	if err != nil {
		logrus.Fatalf("failed to parse config: %s", err.Error())
	}

	logrus.SetFormatter(new(logrus.JSONFormatter))

	fileStorage := storage.NewFileStorage(cfg.Storage.Path)
	imgRepo := database.NewImageRepository(fileStorage)
	segmenter := pipeline.NewSegmenter(cfg.Model.Variants, cfg.Model.Classes)
	pipe := pipeline.New(segmenter, cfg.Model.FeatherRadius)
	proc := processor.NewTaskProcessor(imgRepo, pipe)

	brokers := strings.Split(
		config.GetEnv("KAFKA_BROKERS", strings.Join(cfg.Kafka.Brokers, ",")), ",")

	processor.StartConsumer(
		brokers,
		config.GetEnv("KAFKA_TOPIC", cfg.Kafka.Topic),
		config.GetEnv("KAFKA_GROUP_ID", cfg.Kafka.GroupID),
		proc,
	)
}
