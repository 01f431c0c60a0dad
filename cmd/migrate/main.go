// Package main provides a database migration runner for the save repository.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cory-johannsen/dreamrealm/internal/config"
	"github.com/cory-johannsen/dreamrealm/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	dir := flag.String("migrations", "migrations", "path to migrations directory")
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	switch *direction {
	case "up":
	case "down":
		if *steps == 0 {
			if err := postgres.Rollback(cfg.Database, *dir); err != nil {
				log.Fatalf("migration failed: %v", err)
			}
			fmt.Fprintf(os.Stdout, "rolled back all migrations [%s]\n", time.Since(start))
			return
		}
		*steps = -*steps
	default:
		log.Fatalf("invalid direction %q: must be 'up' or 'down'", *direction)
	}

	version, dirty, err := postgres.Migrate(cfg.Database, *dir, *steps)
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	fmt.Fprintf(os.Stdout, "migrated %s to version=%d dirty=%v [%s]\n", *direction, version, dirty, time.Since(start))
}
