package main

import (
	"github.com/sirupsen/logrus"

	"github.com/clearframe/clearframe/config"
	"github.com/clearframe/clearframe/internal/appServer"
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

	appServer.NewServer(cfg)
}
