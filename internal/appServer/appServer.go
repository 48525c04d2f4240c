// Launching the HTTP server and wiring storage, kafka and the pipeline.
package appServer

import (
	"context"
	"crypto/tls"
	"log"

	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/clearframe/clearframe/config"
	"github.com/clearframe/clearframe/internal/database"
	"github.com/clearframe/clearframe/internal/pkg/kafka"
	"github.com/clearframe/clearframe/internal/pkg/pipeline"
	"github.com/clearframe/clearframe/internal/pkg/storage"
	"github.com/clearframe/clearframe/internal/service"
	"github.com/clearframe/clearframe/internal/transport"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {

	logrus.SetFormatter(new(logrus.JSONFormatter))

	fileStorage := storage.NewFileStorage(cfg.Storage.Path)
	imgRepo := database.NewImageRepository(fileStorage)
	kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	segmenter := pipeline.NewSegmenter(cfg.Model.Variants, cfg.Model.Classes)
	pipe := pipeline.New(segmenter, cfg.Model.FeatherRadius)
	imgService := service.NewImageService(imgRepo, kafkaProducer, pipe, cfg.Kafka.Topic)
	imgHandler := transport.NewImageHandler(imgService, cfg.Storage.BaseURL, cfg.Upload.MaxScale, cfg.Upload.MaxSizeMB)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(imgHandler)); err != nil {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	if err := srv.Shutdown(context.Background()); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}

}
