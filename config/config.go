// Initializing common application configuration
package config

import (
	"log"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/clearframe/clearframe/internal/pkg/pipeline"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Model   ModelConfig   `mapstructure:"model"`
	Upload  UploadConfig  `mapstructure:"upload"`
}

type ServerConfig struct {
	AppVersion   string `json:"appVersion"`
	Host         string `json:"host" validate:"required"`
	Port         string `json:"port" validate:"required"`
	Timeout      time.Duration
	Idle_timeout time.Duration
	Env          string `json:"environment"`
	Mode         string `mapstructure:"mode"`
}

type StorageConfig struct {
	Path    string `mapstructure:"path"`
	BaseURL string `mapstructure:"base_url"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type ModelConfig struct {
	// Variants is the segmentation model fallback list, most capable
	// variant first.
	Variants      []pipeline.ModelVariant `mapstructure:"variants"`
	Classes       []int                   `mapstructure:"classes"`
	Confidence    float32                 `mapstructure:"confidence"`
	FeatherRadius int                     `mapstructure:"feather_radius"`
}

type UploadConfig struct {
	MaxSizeMB int64   `mapstructure:"max_size_mb"`
	MaxScale  float64 `mapstructure:"max_scale"`
}

func LoadConfig() (*viper.Viper, error) {

	viperInstance := viper.New()

	viperInstance.AddConfigPath("./config")
	viperInstance.SetConfigName("config")
	viperInstance.SetConfigType("yaml")

	setDefaults(viperInstance)

	err := viperInstance.ReadInConfig()

	if err != nil {
		return nil, err
	}
	return viperInstance, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {

	var c Config

	err := v.Unmarshal(&c)
	if err != nil {
		log.Fatalf("unable to decode config into struct, %v", err)
		return nil, err
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("storage.path", "./storage")
	v.SetDefault("storage.base_url", "http://localhost:8080")
	v.SetDefault("kafka.topic", "image-processing")
	v.SetDefault("kafka.group_id", "clearframe-worker")
	v.SetDefault("model.confidence", pipeline.DefaultConfidence)
	v.SetDefault("model.feather_radius", 1)
	v.SetDefault("model.classes", []int{0})
	v.SetDefault("upload.max_size_mb", 20)
	v.SetDefault("upload.max_scale", 200)
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
