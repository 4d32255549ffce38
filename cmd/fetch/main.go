package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/foodinspector/internal/adapters/store"
	"github.com/zatekoja/foodinspector/internal/application/services"
	"github.com/zatekoja/foodinspector/internal/domain/entities"
	"github.com/zatekoja/foodinspector/internal/infrastructure/clients/inspectionapi"
	"github.com/zatekoja/foodinspector/internal/infrastructure/observability"
	"github.com/zatekoja/foodinspector/pkg/config"
)

func main() {
	var view string
	var identifier string
	var city string
	var startDate string
	var output string
	var workers int

	flag.StringVar(&view, "view", string(services.ViewAggregatedLatest), "raw, raw-latest, aggregated or aggregated-latest")
	flag.StringVar(&identifier, "program", "", "Fetch a single program identifier instead of every stored establishment")
	flag.StringVar(&city, "city", "", "City for -program")
	flag.StringVar(&startDate, "start-date", "", "Inspection date lower bound (YYYY-MM-DD)")
	flag.StringVar(&output, "o", "", "Write JSON to this file instead of stdout")
	flag.IntVar(&workers, "workers", 0, "Concurrent requests; defaults to INSPECTION_API_MAX_CONCURRENCY")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("food-inspector-fetch", cfg.Server.Env)

	if startDate != "" {
		if _, err := time.Parse("2006-01-02", startDate); err != nil {
			log.Fatal().Str("start_date", startDate).Msg("start-date must be formatted as YYYY-MM-DD")
		}
		cfg.InspectionAPI.StartDate = startDate
	}
	if workers > 0 {
		cfg.InspectionAPI.MaxConcurrency = workers
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	backend, err := store.Open(cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Establishments.Store).Msg("Failed to open establishment store")
	}
	defer backend.Close()

	fetcher := services.NewRecordFetcher(
		services.NewQueryBuilder(cfg.InspectionAPI.BaseURI, cfg.InspectionAPI.RelativeURI),
		inspectionapi.NewClient(&cfg.InspectionAPI),
		backend.Store,
		services.RecordFetcherConfig{
			StartDate:      cfg.InspectionAPI.StartDate,
			Timeout:        cfg.InspectionAPI.Timeout,
			MaxConcurrency: cfg.InspectionAPI.MaxConcurrency,
			RetryAttempts:  cfg.InspectionAPI.RetryAttempts,
			IsRetryable:    inspectionapi.IsRetryable,
		},
		nil,
	)

	start := time.Now()
	var rows []entities.InspectionRow
	failures := 0
	if identifier != "" {
		var failure *services.FetchFailure
		rows, failure = fetcher.FetchIdentity(ctx, identifier, city, cfg.InspectionAPI.StartDate)
		if failure != nil {
			failures = 1
		}
	} else {
		report, err := fetcher.FetchAll(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Bulk fetch failed")
		}
		rows = report.Rows
		failures = len(report.Failures)
	}

	payload, err := services.RenderView(services.InspectionView(view), rows)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid view")
	}

	var out io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			log.Fatal().Err(err).Str("file", output).Msg("Failed to create output file")
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		log.Fatal().Err(err).Msg("Failed to write output")
	}

	log.Info().
		Int("rows", len(rows)).
		Int("failures", failures).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")
}
