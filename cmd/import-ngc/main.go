package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/unklstewy/skytrack/internal/db"
	"github.com/unklstewy/skytrack/pkg/bodies"
	"github.com/unklstewy/skytrack/pkg/catalog"
	"github.com/unklstewy/skytrack/pkg/config"
)

// NGC Catalog Importer
// Loads the NGC2000.0 catalog, its common-names table and the planet
// elements into the database used by skytrack-server.
//
// The catalog files are published by CDS as VII/118:
// https://cdsarc.cds.unistra.fr/viz-bin/cat/VII/118
//
// Files:
// - ngc2000.dat (fixed-width object records)
// - names.dat (common names, optional)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	ngcPath := flag.String("ngc", "", "NGC2000 catalog file (overrides catalog.ngc_path)")
	namesPath := flag.String("names", "", "Common names file (overrides catalog.names_path)")
	planetsPath := flag.String("planets", "", "Planet elements file (overrides catalog.planets_path; built-in elements when empty)")
	prune := flag.Duration("prune-history", 0, "Also delete archived exchanges older than this (e.g. 720h)")
	flag.Parse()

	log.Println("===========================================")
	log.Println("  NGC Catalog Importer")
	log.Println("===========================================")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
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
	if cfg.Catalog.NGCPath == "" {
		log.Fatal("No NGC catalog given (use -ngc or catalog.ngc_path)")
	}

	src, err := readSources(cfg.Catalog)
	if err != nil {
		log.Fatalf("Failed to read catalog: %v", err)
	}
	log.Printf("✓ Parsed %d objects (%d named) and %d planets", len(src.objects), src.named, len(src.planets))
	for _, line := range src.summary() {
		log.Printf("  %s", line)
	}

	ctx := context.Background()
	log.Println("Connecting to database...")
	database, err := db.ReconnectWithRetry(ctx, cfg.Database, 5, 2*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("✓ Database connected")

	if err := database.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	log.Println("✓ Schema initialized")

	repo := db.NewCatalogRepository(database)

	// Each import is one transaction, so a dropped connection can rerun it
	var n int
	err = db.WithRetry(ctx, func() error {
		var err error
		n, err = repo.ImportFixedBodies(ctx, src.objects)
		return err
	}, 3)
	if err != nil {
		log.Fatalf("Failed to import objects: %v", err)
	}
	log.Printf("✓ Imported %d objects", n)

	err = db.WithRetry(ctx, func() error {
		return repo.ImportPlanets(ctx, src.planets)
	}, 3)
	if err != nil {
		log.Fatalf("Failed to import planets: %v", err)
	}
	log.Printf("✓ Imported %d planets", len(src.planets))

	if *prune > 0 {
		removed, err := database.PruneHistory(ctx, *prune)
		if err != nil {
			log.Printf("Warning: Failed to prune history: %v", err)
		} else {
			log.Printf("✓ Pruned %d archived exchanges older than %s", removed, *prune)
		}
	}

	stats, err := database.GetStats(ctx)
	if err != nil {
		log.Printf("Warning: Failed to read table stats: %v", err)
		return
	}

	log.Println("\n===========================================")
	log.Println("Import Complete")
	log.Println("===========================================")
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		log.Printf("%-20s %d", k, stats[k])
	}
}

// sources is the parsed content of the catalog files.
type sources struct {
	objects []bodies.FixedBody
	planets []bodies.Planet
	named   int
}

func readSources(cfg config.CatalogConfig) (*sources, error) {
	f, err := os.Open(cfg.NGCPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open NGC catalog: %w", err)
	}
	defer f.Close()

	src := &sources{planets: catalog.DefaultPlanets()}
	src.objects, err = catalog.ReadNGC(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", cfg.NGCPath, err)
	}

	if cfg.NamesPath != "" {
		nf, err := os.Open(cfg.NamesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open names table: %w", err)
		}
		defer nf.Close()

		names, err := catalog.ReadNames(nf)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", cfg.NamesPath, err)
		}
		src.named = catalog.ApplyNames(src.objects, names)
	}

	if cfg.PlanetsPath != "" {
		pf, err := os.Open(cfg.PlanetsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open planets file: %w", err)
		}
		defer pf.Close()

		src.planets, err = catalog.ReadPlanets(pf)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", cfg.PlanetsPath, err)
		}
	}

	return src, nil
}

// summary counts the objects per classification, most common first.
func (s *sources) summary() []string {
	counts := map[bodies.Classification]int{}
	for _, obj := range s.objects {
		counts[obj.Classification]++
	}

	classes := make([]bodies.Classification, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool {
		if counts[classes[i]] != counts[classes[j]] {
			return counts[classes[i]] > counts[classes[j]]
		}
		return classes[i] < classes[j]
	})

	lines := make([]string, 0, len(classes))
	for _, c := range classes {
		lines = append(lines, fmt.Sprintf("%-28s %d", c, counts[c]))
	}
	return lines
}
