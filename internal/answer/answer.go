// Package answer turns a question into a grounded, cited educational answer.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/ai"
	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/guardrail"
	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/metrics"
	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/store"
	"github.com/Anushka-shukla/phonepe-ai-tutor/pkg/models"
	"github.com/rs/zerolog/log"
)

var (
	// ErrInvalidQuery is returned for blank questions.
	ErrInvalidQuery = errors.New("query must be a non-empty string")
	// ErrUpstream wraps every failure of the embedding, store or generation calls.
	ErrUpstream = errors.New("upstream service error")
)

const (
	RefusalMessage = "I can't help with buy, sell or allocation decisions, or predict prices. " +
		"I can explain the underlying investment concepts so you can evaluate options yourself. " +
		"For personal advice, please consult a registered investment adviser."
	NotFoundMessage = "I don't have enough verified information to answer that yet. " +
		"Try rephrasing, or ask about a core concept such as ETFs, mutual funds or diversification."
)

const (
	DefaultMatchThreshold  = 0.05
	DefaultMatchCount      = 5
	DefaultMaxCitations    = 3
	DefaultMaxContextChars = 12000
)

// Options tunes retrieval and context assembly.
type Options struct {
	MatchThreshold  float64
	MatchCount      int
	MaxCitations    int
	MaxContextChars int
}

func DefaultOptions() Options {
	return Options{
		MatchThreshold:  DefaultMatchThreshold,
		MatchCount:      DefaultMatchCount,
		MaxCitations:    DefaultMaxCitations,
		MaxContextChars: DefaultMaxContextChars,
	}
}

type Service struct {
	Client     ai.Client
	Store      store.Retriever
	Classifier guardrail.Classifier
	Options    Options
	Metrics    *metrics.Metrics
}

// NewService creates an answer service with the default advice classifier.
// Non-positive options fall back to their defaults.
func NewService(client ai.Client, retriever store.Retriever, opts Options) *Service {
	def := DefaultOptions()
	if opts.MatchCount <= 0 {
		opts.MatchCount = def.MatchCount
	}
	if opts.MaxCitations <= 0 {
		opts.MaxCitations = def.MaxCitations
	}
	if opts.MaxContextChars <= 0 {
		opts.MaxContextChars = def.MaxContextChars
	}
	return &Service{
		Client:     client,
		Store:      retriever,
		Classifier: guardrail.NewPatternClassifier(),
		Options:    opts,
		Metrics:    metrics.Default(),
	}
}

// Ask answers one question. Advice-seeking questions are refused without
// calling any external service; questions with no matching sources get
// NotFoundMessage. Both are successful outcomes.
func (s *Service) Ask(ctx context.Context, query string) (models.Answer, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		s.Metrics.Query("invalid")
		return models.Answer{}, ErrInvalidQuery
	}
	followUps := guardrail.SuggestFollowUps(q)

	if s.Classifier.IsAdvice(q) {
		s.Metrics.Query("refused")
		log.Info().Str("query", q).Msg("refused advice-seeking query")
		return models.Answer{
			Answer:    RefusalMessage,
			Safe:      false,
			Citations: []models.Citation{},
			FollowUps: followUps,
		}, nil
	}

	start := time.Now()
	vec, err := s.Client.Embed(ctx, q)
	s.Metrics.Since("embed", start)
	if err == nil {
		vec, err = ai.CheckVector(vec, s.Client.Dim())
	}
	if err != nil {
		return models.Answer{}, s.upstream("embed", err)
	}

	start = time.Now()
	matches, err := s.Store.MatchChunks(ctx, vec, s.Options.MatchThreshold, s.Options.MatchCount)
	s.Metrics.Since("retrieve", start)
	if err != nil {
		return models.Answer{}, s.upstream("retrieve", err)
	}
	if len(matches) == 0 {
		s.Metrics.Query("unanswerable")
		return models.Answer{
			Answer:    NotFoundMessage,
			Safe:      true,
			Citations: []models.Citation{},
			FollowUps: followUps,
		}, nil
	}

	docs, err := s.Store.GetDocuments(ctx, documentIDs(matches))
	if err != nil {
		return models.Answer{}, s.upstream("lookup", err)
	}

	block := AssembleContext(matches, docs, s.Options.MaxContextChars)

	start = time.Now()
	text, err := s.Client.Generate(ctx, SystemPrompt, UserPrompt(q, block))
	s.Metrics.Since("generate", start)
	if err != nil {
		return models.Answer{}, s.upstream("generate", err)
	}

	s.Metrics.Query("answered")
	log.Debug().Str("query", q).Int("matches", len(matches)).Msg("answered query")
	return models.Answer{
		Answer:    text,
		Safe:      true,
		Citations: Cite(matches, docs, s.Options.MaxCitations),
		FollowUps: followUps,
	}, nil
}

func (s *Service) upstream(stage string, err error) error {
	s.Metrics.Upstream(stage)
	s.Metrics.Query("error")
	return fmt.Errorf("%w: %s: %w", ErrUpstream, stage, err)
}

// documentIDs returns the distinct document ids of matches in rank order.
func documentIDs(matches []models.RetrievalMatch) []string {
	seen := make(map[string]bool, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m.DocumentID] {
			seen[m.DocumentID] = true
			ids = append(ids, m.DocumentID)
		}
	}
	return ids
}
