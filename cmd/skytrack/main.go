// Command skytrack drives an alt-azimuth mount from the command line: slew
// to a position, follow a planet or catalog object, or send the stepper
// driver configuration.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/unklstewy/skytrack/pkg/bodies"
	"github.com/unklstewy/skytrack/pkg/catalog"
	"github.com/unklstewy/skytrack/pkg/config"
	"github.com/unklstewy/skytrack/pkg/coordinates"
	"github.com/unklstewy/skytrack/pkg/serial"
	"github.com/unklstewy/skytrack/pkg/tracking"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	port := flag.String("port", "", "Serial port of the mount controller (overrides serial.port)")
	baud := flag.Int("baud", 0, "Baud rate (overrides serial.baud_rate)")
	simulate := flag.Bool("simulate", false, "Use the built-in controller simulator")
	listPorts := flag.Bool("list-ports", false, "List serial ports and exit")
	planet := flag.String("planet", "", "Planet to track (e.g., Mars)")
	object := flag.String("object", "", "Catalog object to track (e.g., \"NGC 224\" or \"Andromeda Galaxy\")")
	alt := flag.Float64("alt", 0, "Altitude to slew to in degrees (use with -az)")
	az := flag.Float64("az", 0, "Azimuth to slew to in degrees (use with -alt)")
	duration := flag.Duration("duration", 0, "Tracking duration (default: tracker.default_duration_seconds)")
	configure := flag.Bool("configure", false, "Send the driver configuration before any other job")
	ngcPath := flag.String("catalog", "", "NGC2000 catalog file (overrides catalog.ngc_path)")
	namesPath := flag.String("names", "", "Common names file (overrides catalog.names_path)")
	planetsPath := flag.String("planets", "", "Planet elements file (overrides catalog.planets_path)")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if *listPorts {
		ports, err := serial.PortNames()
		if err != nil {
			log.Fatalf("Failed to list serial ports: %v", err)
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found")
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	log.Println("===========================================")
	log.Println("  Skytrack Mount Control")
	log.Println("===========================================")

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
	if *baud > 0 {
		cfg.Serial.BaudRate = *baud
	}
	if *ngcPath != "" {
		cfg.Catalog.NGCPath = *ngcPath
	}
	if *namesPath != "" {
		cfg.Catalog.NamesPath = *namesPath
	}
	if *planetsPath != "" {
		cfg.Catalog.PlanetsPath = *planetsPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.Serial.Port == "" {
		log.Fatal("No serial port configured (use -port, -simulate or serial.port)")
	}

	log.Printf("Observer: %s (%.4f°, %.4f°)", cfg.Observer.Name, cfg.Observer.Latitude, cfg.Observer.Longitude)
	log.Printf("Limits: %.0f° - %.0f° altitude", cfg.Limits.MinAltitude, cfg.Limits.MaxAltitude)

	if *duration == 0 {
		*duration = cfg.Tracker.DefaultDuration()
	}

	var body bodies.Body
	switch {
	case *planet != "" || *object != "":
		cat, err := catalog.Load(cfg.Catalog.NGCPath, cfg.Catalog.NamesPath, cfg.Catalog.PlanetsPath)
		if err != nil {
			log.Fatalf("Failed to load catalog: %v", err)
		}
		body, err = findBody(cat, *planet, *object)
		if err != nil {
			log.Fatal(err)
		}
	case set["alt"] != set["az"]:
		log.Fatal("-alt and -az must be given together")
	case !set["alt"] && !*configure:
		flag.Usage()
		os.Exit(2)
	}

	var link serial.Port
	if cfg.Serial.Port == serial.SimulatorPortName {
		link = serial.NewSimulator(serial.SimulatorOptions{})
		log.Println("Using the simulated mount controller")
	} else {
		link = serial.NewDevice()
	}

	tracker := tracking.NewService(link, cfg.TrackingConfig(), nil)
	defer tracker.Close()

	ctx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	err = tracker.ConnectWithRetry(ctx, cfg.Serial.Port, cfg.Serial.BaudRate, tracking.DefaultRetryConfig())
	stop()
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	log.Printf("✓ Connected to %s at %d baud", cfg.Serial.Port, cfg.Serial.BaudRate)

	if *configure {
		if err := tracker.UpdateConfig(context.Background()); err != nil {
			log.Fatalf("Failed to configure driver: %v", err)
		}
		log.Printf("✓ Driver configured (%.0f mA, gear %.0f, %.0f microsteps)",
			cfg.Driver.RMSCurrentMA, cfg.Driver.GearRatio, cfg.Driver.Microsteps)
	}

	var h *tracking.Handle
	switch {
	case body != nil:
		obs := tracker.Observe(body)
		log.Printf("🎯 %s: RA %.3fh Dec %+.2f° -> Alt %.2f° Az %.2f°",
			obs.Name,
			coordinates.RightAscensionHours(obs.Equatorial.RightAscension),
			obs.Equatorial.Declination,
			obs.Horizontal.Altitude, obs.Horizontal.Azimuth)
		if !obs.Visible() {
			log.Printf("Warning: %s", obs.Advice)
		} else if obs.SecondsToLimit > 0 && obs.SecondsToLimit < duration.Seconds() {
			log.Printf("Warning: %s leaves the limits in %.0f s", obs.Name, obs.SecondsToLimit)
		}
		h, err = tracker.SubmitBody(body, *duration)
	case set["alt"]:
		h, err = tracker.Submit(coordinates.Horizontal{Altitude: *alt, Azimuth: coordinates.NormalizeAzimuth(*az)})
	default:
		return
	}
	if err != nil {
		log.Fatalf("Failed to start job: %v", err)
	}

	status := follow(tracker, h)
	if status == tracking.StatusFailure {
		log.Printf("❌ Job failed: %v", h.Err())
		os.Exit(1)
	}
	log.Printf("✅ Job finished: %s", status)
}

// findBody resolves a planet name or catalog object.
func findBody(cat *catalog.Catalog, planet, object string) (bodies.Body, error) {
	if planet != "" {
		if strings.EqualFold(planet, "sun") {
			return nil, fmt.Errorf("refusing to point the mount at the Sun")
		}
		p, ok := cat.Planet(planet)
		if !ok {
			names := make([]string, 0, len(cat.Planets()))
			for _, p := range cat.Planets() {
				names = append(names, p.Name)
			}
			return nil, fmt.Errorf("unknown planet %q (known: %s)", planet, strings.Join(names, ", "))
		}
		return p, nil
	}

	obj, ok := cat.Lookup(object)
	if !ok {
		if len(cat.Objects()) == 0 {
			return nil, fmt.Errorf("unknown object %q: no catalog loaded (use -catalog)", object)
		}
		return nil, fmt.Errorf("unknown object %q", object)
	}
	return obj, nil
}

// follow prints the job state once per second until it finishes. SIGINT
// aborts a tracking job.
func follow(tracker *tracking.Service, h *tracking.Handle) tracking.Status {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.Done():
			return h.Status()
		case <-interrupt:
			if tracker.Abort() {
				log.Println("Aborting...")
			} else {
				log.Println("Slew in progress, it cannot be aborted; waiting for it to finish")
			}
		case <-ticker.C:
			snap := tracker.Snapshot()
			log.Printf("[%s] %s %5.1f%%  Alt %6.2f° Az %6.2f°  frames %d  (%s)",
				snap.Status, snap.Target, snap.Progress*100,
				snap.Altitude, snap.Azimuth, snap.Frames, snap.LimitEvent)
		}
	}
}
