package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/ai"
	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/chunker"
	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/config"
	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/fetch"
	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/indexer"
	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/store"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("tutor-ingest", pflag.ExitOnError)

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	zlog.Logger = logger

	if cfg.Sources == "" {
		logger.Fatal().Msg("no sources configured (--sources or TUTOR_SOURCES)")
	}
	urls, err := indexer.LoadSources(cfg.Sources)
	if err != nil {
		logger.Fatal().Err(err).Str("sources", cfg.Sources).Msg("failed to load sources")
	}
	if len(urls) == 0 {
		logger.Fatal().Str("sources", cfg.Sources).Msg("sources list is empty")
	}

	provider, err := ai.ParseProvider(cfg.Provider)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid provider")
	}
	logger.Info().Str("provider", string(provider)).Int("sources", len(urls)).Msg("starting ingestion")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := ai.NewClient(ctx, &ai.ClientConfig{
		APIKey:     cfg.APIKey,
		EmbedModel: cfg.EmbedModel,
		ChatModel:  cfg.ChatModel,
		Dim:        cfg.Dim,
		ProjectID:  cfg.ProjectID,
		Location:   cfg.Location,
		Provider:   provider,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create AI client")
	}

	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer st.Close()

	if err := st.Migrate(ctx, c.Dim()); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	ix := indexer.New(st, c, fetch.New(cfg.Ingest.FetchTimeout), indexer.Options{
		Chunking: chunker.Config{
			MaxLength: cfg.Ingest.ChunkSize,
			Overlap:   cfg.Ingest.ChunkOverlap,
			MinLength: chunker.MinLength,
		},
		MinContentLength: cfg.Ingest.MinContentLength,
		EmbedInterval:    cfg.Ingest.EmbedInterval,
	})

	start := time.Now()
	report := ix.Run(ctx, urls)
	logger.Info().
		Int("ingested", report.Ingested).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int("chunks", report.Chunks).
		Dur("dur", time.Since(start)).
		Msg("ingestion finished")

	if report.Failed == len(urls) {
		stop()
		st.Close()
		os.Exit(1)
	}
}
