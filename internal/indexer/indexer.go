package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/ai"
	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/chunker"
	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/extract"
	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/fetch"
	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/metrics"
	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/store"
	"github.com/Anushka-shukla/phonepe-ai-tutor/pkg/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultMinContentLength is the shortest extracted text worth indexing.
	DefaultMinContentLength = 200
	DefaultEmbedInterval    = 300 * time.Millisecond
)

// ErrContentTooShort marks sources whose extracted text is below the minimum.
var ErrContentTooShort = errors.New("content too short")

// Limiter paces embedding calls. *rate.Limiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// NewLimiter allows one call per interval. A non-positive interval disables pacing.
func NewLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Indexer ingests sources into the document store.
type Indexer struct {
	Store            store.DocumentStore
	Client           ai.Client
	Fetcher          fetch.Fetcher
	Limiter          Limiter
	Chunking         chunker.Config
	MinContentLength int
	Metrics          *metrics.Metrics
}

// Options tunes a new Indexer. Zero values select the defaults.
type Options struct {
	Chunking         chunker.Config
	MinContentLength int
	EmbedInterval    time.Duration
}

// New creates an Indexer with a rate limiter and the default metrics.
func New(s store.DocumentStore, client ai.Client, fetcher fetch.Fetcher, opts Options) *Indexer {
	if opts.Chunking.MaxLength == 0 {
		opts.Chunking = chunker.DefaultConfig()
	}
	if opts.Chunking.MinLength == 0 {
		opts.Chunking.MinLength = chunker.MinLength
	}
	if opts.MinContentLength <= 0 {
		opts.MinContentLength = DefaultMinContentLength
	}
	if opts.EmbedInterval == 0 {
		opts.EmbedInterval = DefaultEmbedInterval
	}
	return &Indexer{
		Store:            s,
		Client:           client,
		Fetcher:          fetcher,
		Limiter:          NewLimiter(opts.EmbedInterval),
		Chunking:         opts.Chunking,
		MinContentLength: opts.MinContentLength,
		Metrics:          metrics.Default(),
	}
}

// Report summarizes one ingestion run.
type Report struct {
	Ingested int `json:"ingested"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
	Chunks   int `json:"chunks"`
}

// Run ingests urls one after another. A failing source is logged and
// counted; it never stops the run. Cancelling ctx stops before the next source.
func (ix *Indexer) Run(ctx context.Context, urls []string) Report {
	var rep Report
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Int("remaining", len(urls)-i).Msg("ingestion cancelled")
			rep.Failed += len(urls) - i
			break
		}

		n, err := ix.IngestURL(ctx, u)
		switch {
		case errors.Is(err, ErrContentTooShort):
			rep.Skipped++
			ix.Metrics.Source("skipped")
			log.Warn().Err(err).Str("url", u).Msg("skipping source")
		case err != nil:
			rep.Failed++
			ix.Metrics.Source("failed")
			log.Error().Err(err).Str("url", u).Msg("ingestion failed")
		default:
			rep.Ingested++
			rep.Chunks += n
			ix.Metrics.Source("ingested")
		}
	}
	return rep
}

// IngestURL fetches, extracts, chunks and embeds one source, then swaps its
// chunk set. Every embedding finishes before the store is touched, so a
// failure keeps the previous chunk set. It returns the number of chunks stored.
func (ix *Indexer) IngestURL(ctx context.Context, url string) (int, error) {
	page, err := ix.Fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}

	res, err := extract.Document(page.ContentType, url, page.Body)
	if err != nil {
		return 0, fmt.Errorf("extract: %w", err)
	}
	if n := utf8.RuneCountInString(res.Text); n < ix.MinContentLength {
		return 0, fmt.Errorf("%d characters, need %d: %w", n, ix.MinContentLength, ErrContentTooShort)
	}

	texts := ix.Chunking.Split(res.Text)
	if len(texts) == 0 {
		return 0, fmt.Errorf("no chunk reached %d characters: %w", ix.Chunking.MinLength, ErrContentTooShort)
	}

	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		vec, err := ix.embed(ctx, text)
		if err != nil {
			return 0, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		chunks[i] = models.Chunk{Content: text, Embedding: vec, Index: i}
	}

	doc, err := ix.Store.UpsertDocument(ctx, url, res.Title)
	if err != nil {
		return 0, fmt.Errorf("store: %w", err)
	}
	for i := range chunks {
		chunks[i].DocumentID = doc.ID
	}
	if err := ix.Store.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return 0, fmt.Errorf("store: %w", err)
	}

	ix.Metrics.Chunks(len(chunks))
	log.Info().
		Str("url", url).
		Str("document_id", doc.ID).
		Str("title", res.Title).
		Int("chunks", len(chunks)).
		Msg("ingested source")
	return len(chunks), nil
}

func (ix *Indexer) embed(ctx context.Context, text string) ([]float32, error) {
	if ix.Limiter != nil {
		if err := ix.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	start := time.Now()
	vec, err := ix.Client.Embed(ctx, text)
	ix.Metrics.Since("embed", start)
	if err != nil {
		return nil, err
	}
	return ai.CheckVector(vec, ix.Client.Dim())
}
