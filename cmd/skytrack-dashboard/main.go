// Command skytrack-dashboard is a full-screen terminal dashboard showing
// where the planets and the brightest catalog objects are, what the mount
// is doing and the frames exchanged with its controller.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/unklstewy/skytrack/pkg/catalog"
	"github.com/unklstewy/skytrack/pkg/config"
	"github.com/unklstewy/skytrack/pkg/serial"
	"github.com/unklstewy/skytrack/pkg/tracking"
)

var (
	// Version information (set by build flags)
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	simulate := flag.Bool("simulate", false, "Use the built-in controller simulator")
	port := flag.String("port", "", "Serial port of the mount controller (overrides serial.port)")
	objects := flag.Int("objects", 25, "Number of catalog objects to list, brightest first")
	logPath := flag.String("log", "skytrack-dashboard.log", "Log file (the terminal belongs to the UI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("skytrack-dashboard version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != "" {
		cfg.Serial.Port = *port
	}
	if *simulate {
		cfg.Serial.Port = serial.SimulatorPortName
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	cat, err := catalog.Load(cfg.Catalog.NGCPath, cfg.Catalog.NamesPath, cfg.Catalog.PlanetsPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer logFile.Close()
	log.SetOutput(logFile)

	var link serial.Port = serial.NewDevice()
	if cfg.Serial.Port == serial.SimulatorPortName {
		link = serial.NewSimulator(serial.SimulatorOptions{})
	}
	tracker := tracking.NewService(link, cfg.TrackingConfig(), nil)
	defer tracker.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = tracker.ConnectWithRetry(ctx, cfg.Serial.Port, cfg.Serial.BaudRate, tracking.DefaultRetryConfig())
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	app := NewApp(cfg, tracker, cat, *objects)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
	tracker.Abort()
}
