package main

import (
	"flag"

	"github.com/soocke/headtrack-go/app"
	"github.com/soocke/headtrack-go/config"
	"github.com/soocke/headtrack-go/logging"
)

func main() {
	cfgPath := flag.String("config", "headtrack.json", "config file (.json, .yaml or .yml)")
	debugFlag := flag.Bool("debug", false, "verbose logging and runtime stats")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	cfg.Debug = cfg.Debug || *debugFlag

	// Set up logger
	logger := logging.NewLogger(logging.Level(cfg.Debug))
	if err != nil {
		logger.Warn("config load failed, using defaults", "path", *cfgPath, "error", err)
	}

	application := app.NewApp("Head Tracker", 760, 820, cfg, *cfgPath, logger)
	application.Start()
}
