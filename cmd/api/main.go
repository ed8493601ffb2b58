package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/ai"
	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/answer"
	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/api"
	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/auth"
	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/config"
	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/store"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	// Create flagset for configuration
	fs := pflag.NewFlagSet("tutor-api", pflag.ExitOnError)
	issueToken := fs.String("issue-token", "", "Print a signed bearer token for the given subject and exit")

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	authn, err := auth.New(cfg.Auth.JwtSecret, cfg.Auth.Enabled)
	if err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}
	if *issueToken != "" {
		token, err := authn.GenerateJWT(*issueToken, "ask")
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	// Set up logging
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	zlog.Logger = logger
	logger.Info().Str("provider", cfg.Provider).Str("log_level", cfg.LogLevel).Bool("auth_enabled", authn.Enabled()).Msg("starting tutor api")

	provider, err := ai.ParseProvider(cfg.Provider)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid provider")
	}

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

	// Use the AI client's dimension for database migration
	dim := c.Dim()
	logger.Info().Int("embedding_dim", dim).Str("embed_model", cfg.EmbedModel).Str("chat_model", cfg.ChatModel).Msg("AI client initialized")
	if err := st.Migrate(ctx, dim); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	svc := answer.NewService(c, st, answer.Options{
		MatchThreshold:  cfg.Retrieval.MatchThreshold,
		MatchCount:      cfg.Retrieval.MatchCount,
		MaxCitations:    cfg.Retrieval.MaxCitations,
		MaxContextChars: cfg.Retrieval.MaxContextChars,
	})

	handler := api.NewServer(svc, st, st, api.Options{
		QueryTimeout: cfg.QueryTimeout,
		Auth:         authn,
		Logger:       logger,
	})

	s := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
		}
	}()

	logger.Info().Str("addr", s.Addr).Msg("api server listening")
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server failed")
	}
	logger.Info().Msg("api server stopped")
}
