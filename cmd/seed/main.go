package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/foodinspector/internal/adapters/descriptors"
	"github.com/zatekoja/foodinspector/internal/adapters/store"
	"github.com/zatekoja/foodinspector/internal/application/services"
	"github.com/zatekoja/foodinspector/internal/infrastructure/observability"
	"github.com/zatekoja/foodinspector/pkg/config"
)

func main() {
	var file string
	var backendName string
	var dryRun bool

	flag.StringVar(&file, "file", "", "Descriptor file (json, csv or yaml); defaults to ESTABLISHMENTS_FILE")
	flag.StringVar(&backendName, "store", "", "Establishment store (redis, postgres); defaults to ESTABLISHMENTS_STORE")
	flag.BoolVar(&dryRun, "dry-run", false, "Parse the descriptor file and print it without writing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("food-inspector-seed", cfg.Server.Env)

	if file != "" {
		cfg.Establishments.DescriptorPath = file
	}
	if backendName != "" {
		cfg.Establishments.Store = strings.ToLower(backendName)
	}
	if cfg.Establishments.Store == "memory" && !dryRun {
		log.Fatal().Msg("Seeding the in-memory store has no effect; choose redis or postgres")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	source := descriptors.NewFileSource(cfg.Establishments.DescriptorPath)

	if dryRun {
		establishments, err := source.Load(ctx)
		if err != nil {
			log.Fatal().Err(err).Str("file", source.Path()).Msg("Failed to read descriptors")
		}
		for _, e := range establishments {
			fmt.Printf("%-40s %-20s %s\n", e.ProgramIdentifier, e.City, e.Name)
		}
		log.Info().Int("count", len(establishments)).Msg("Dry run complete")
		return
	}

	backend, err := store.Open(cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Establishments.Store).Msg("Failed to open establishment store")
	}
	defer backend.Close()

	start := time.Now()
	written, err := services.NewEstablishmentService(source, backend.Store).Refresh(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}

	log.Info().
		Str("store", backend.Name).
		Str("file", source.Path()).
		Int("written", written).
		Dur("duration", time.Since(start)).
		Msg("Establishments seeded")
}
