package answer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/ai"
	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/guardrail"
	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/store"
	"github.com/Anushka-shukla/phonepe-ai-tutor/pkg/models"
	"github.com/rs/zerolog"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

// MockAIClient implements the ai.Client interface for testing
type MockAIClient struct {
	EmbedFunc    func(ctx context.Context, text string) ([]float32, error)
	GenerateFunc func(ctx context.Context, system, prompt string) (string, error)
	DimFunc      func() int

	EmbedCalls    int
	GenerateCalls int
}

func (m *MockAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	m.EmbedCalls++
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *MockAIClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	m.GenerateCalls++
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, system, prompt)
	}
	return "An ETF is a fund traded on an exchange. " + Disclaimer, nil
}

func (m *MockAIClient) Dim() int {
	if m.DimFunc != nil {
		return m.DimFunc()
	}
	return 3
}

// MockRetriever implements store.Retriever for testing
type MockRetriever struct {
	MatchChunksFunc  func(ctx context.Context, vec []float32, threshold float64, count int) ([]models.RetrievalMatch, error)
	GetDocumentsFunc func(ctx context.Context, ids []string) (map[string]models.Document, error)

	MatchCalls  int
	LookupCalls int
	LookupIDs   [][]string
}

func (m *MockRetriever) MatchChunks(ctx context.Context, vec []float32, threshold float64, count int) ([]models.RetrievalMatch, error) {
	m.MatchCalls++
	if m.MatchChunksFunc != nil {
		return m.MatchChunksFunc(ctx, vec, threshold, count)
	}
	return []models.RetrievalMatch{}, nil
}

func (m *MockRetriever) GetDocuments(ctx context.Context, ids []string) (map[string]models.Document, error) {
	m.LookupCalls++
	m.LookupIDs = append(m.LookupIDs, ids)
	if m.GetDocumentsFunc != nil {
		return m.GetDocumentsFunc(ctx, ids)
	}
	return map[string]models.Document{}, nil
}

// fiveMatchesFourDocs ranks d1 twice.
func fiveMatchesFourDocs() ([]models.RetrievalMatch, map[string]models.Document) {
	matches := []models.RetrievalMatch{
		{DocumentID: "d1", Content: "ETFs trade on exchanges like stocks.", Score: 0.91},
		{DocumentID: "d2", Content: "An expense ratio is the annual fee.", Score: 0.84},
		{DocumentID: "d1", Content: "ETFs usually track an index.", Score: 0.77},
		{DocumentID: "d3", Content: "Mutual funds price once a day at NAV.", Score: 0.61},
		{DocumentID: "d4", Content: "Diversification spreads risk.", Score: 0.42},
	}
	docs := map[string]models.Document{
		"d1": {ID: "d1", URL: "https://example.com/etf", Title: "ETF basics"},
		"d2": {ID: "d2", URL: "https://example.com/expense-ratio"},
		"d3": {ID: "d3", URL: "https://example.com/nav", Title: "NAV"},
		"d4": {ID: "d4", URL: "https://example.com/diversification", Title: "Diversification"},
	}
	return matches, docs
}

func newTestService(client *MockAIClient, retriever *MockRetriever) *Service {
	return &Service{
		Client:     client,
		Store:      retriever,
		Classifier: guardrail.NewPatternClassifier(),
		Options:    DefaultOptions(),
	}
}

func TestService_AskRefusesAdviceWithoutExternalCalls(t *testing.T) {
	client := &MockAIClient{}
	retriever := &MockRetriever{}
	svc := newTestService(client, retriever)

	got, err := svc.Ask(context.Background(), "Should I invest in gold now?")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.Safe {
		t.Error("Expected safe=false for an advice-seeking query")
	}
	if got.Answer != RefusalMessage {
		t.Errorf("Expected refusal message, got %q", got.Answer)
	}
	if got.Citations == nil || len(got.Citations) != 0 {
		t.Errorf("Expected empty non-nil citations, got %#v", got.Citations)
	}
	if len(got.FollowUps) == 0 {
		t.Error("Expected follow-up suggestions")
	}
	if client.EmbedCalls != 0 || client.GenerateCalls != 0 || retriever.MatchCalls != 0 || retriever.LookupCalls != 0 {
		t.Errorf("Expected no external calls, got embed=%d generate=%d match=%d lookup=%d",
			client.EmbedCalls, client.GenerateCalls, retriever.MatchCalls, retriever.LookupCalls)
	}
}

func TestService_AskWithoutMatches(t *testing.T) {
	client := &MockAIClient{}
	svc := newTestService(client, &MockRetriever{})

	got, err := svc.Ask(context.Background(), "What is a zero-coupon bond?")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.Answer != NotFoundMessage || !got.Safe {
		t.Errorf("Expected safe not-found answer, got %+v", got)
	}
	if !strings.Contains(got.Answer, "enough verified information") {
		t.Errorf("Expected not-enough-information wording, got %q", got.Answer)
	}
	if len(got.Citations) != 0 || got.Citations == nil {
		t.Errorf("Expected empty citations, got %#v", got.Citations)
	}
	if client.GenerateCalls != 0 {
		t.Error("Expected no generation without context")
	}
}

func TestService_AskAnswersWithTopThreeCitations(t *testing.T) {
	matches, docs := fiveMatchesFourDocs()
	var gotThreshold float64
	var gotCount int
	var gotSystem, gotPrompt string

	client := &MockAIClient{
		GenerateFunc: func(ctx context.Context, system, prompt string) (string, error) {
			gotSystem, gotPrompt = system, prompt
			return "ETFs are funds.\n- one\n- two\n- three\n" + Disclaimer, nil
		},
	}
	retriever := &MockRetriever{
		MatchChunksFunc: func(ctx context.Context, vec []float32, threshold float64, count int) ([]models.RetrievalMatch, error) {
			gotThreshold, gotCount = threshold, count
			return matches, nil
		},
		GetDocumentsFunc: func(ctx context.Context, ids []string) (map[string]models.Document, error) {
			return docs, nil
		},
	}
	svc := newTestService(client, retriever)

	got, err := svc.Ask(context.Background(), "  Tell me about ETFs  ")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if gotThreshold != 0.05 || gotCount != 5 {
		t.Errorf("Expected retrieval with threshold 0.05 and count 5, got %v and %d", gotThreshold, gotCount)
	}
	if !got.Safe || !strings.HasSuffix(got.Answer, Disclaimer) {
		t.Errorf("Unexpected answer %+v", got)
	}

	wantCitations := []models.Citation{
		{Label: "Source 1", URL: "https://example.com/etf"},
		{Label: "Source 2", URL: "https://example.com/expense-ratio"},
		{Label: "Source 3", URL: "https://example.com/etf"},
	}
	if !reflect.DeepEqual(got.Citations, wantCitations) {
		t.Errorf("Citations = %+v, want %+v", got.Citations, wantCitations)
	}
	if !reflect.DeepEqual(got.FollowUps, guardrail.ETFFollowUps) {
		t.Errorf("Expected ETF follow-ups, got %q", got.FollowUps)
	}

	if retriever.LookupCalls != 1 {
		t.Fatalf("Expected one batched document lookup, got %d", retriever.LookupCalls)
	}
	if ids := retriever.LookupIDs[0]; !reflect.DeepEqual(ids, []string{"d1", "d2", "d3", "d4"}) {
		t.Errorf("Expected distinct ids in rank order, got %v", ids)
	}

	if gotSystem != SystemPrompt {
		t.Error("Expected the fixed system prompt")
	}
	for i := 1; i <= 5; i++ {
		if !strings.Contains(gotPrompt, fmt.Sprintf("[Source %d]", i)) {
			t.Errorf("Expected prompt to contain [Source %d]", i)
		}
	}
	if !strings.Contains(gotPrompt, "Question: Tell me about ETFs") {
		t.Errorf("Expected trimmed question in prompt, got %q", gotPrompt)
	}
}

func TestService_AskErrors(t *testing.T) {
	matches, docs := fiveMatchesFourDocs()
	failing := errors.New("boom")

	tests := []struct {
		name      string
		query     string
		client    *MockAIClient
		retriever *MockRetriever
		target    error
	}{
		{
			name:      "blank query",
			query:     "   ",
			client:    &MockAIClient{},
			retriever: &MockRetriever{},
			target:    ErrInvalidQuery,
		},
		{
			name:  "embedding failure",
			query: "What is an ETF?",
			client: &MockAIClient{EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
				return nil, failing
			}},
			retriever: &MockRetriever{},
			target:    ErrUpstream,
		},
		{
			name:  "empty embedding",
			query: "What is an ETF?",
			client: &MockAIClient{EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
				return []float32{}, nil
			}},
			retriever: &MockRetriever{},
			target:    ai.ErrEmptyEmbedding,
		},
		{
			name:  "dimension mismatch",
			query: "What is an ETF?",
			client: &MockAIClient{EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
				return []float32{1, 2}, nil
			}},
			retriever: &MockRetriever{},
			target:    ai.ErrDimensionMismatch,
		},
		{
			name:   "retrieval failure",
			query:  "What is an ETF?",
			client: &MockAIClient{},
			retriever: &MockRetriever{MatchChunksFunc: func(ctx context.Context, vec []float32, threshold float64, count int) ([]models.RetrievalMatch, error) {
				return nil, fmt.Errorf("bad row: %w", store.ErrMalformed)
			}},
			target: store.ErrMalformed,
		},
		{
			name:   "document lookup failure",
			query:  "What is an ETF?",
			client: &MockAIClient{},
			retriever: &MockRetriever{
				MatchChunksFunc: func(ctx context.Context, vec []float32, threshold float64, count int) ([]models.RetrievalMatch, error) {
					return matches, nil
				},
				GetDocumentsFunc: func(ctx context.Context, ids []string) (map[string]models.Document, error) {
					return nil, failing
				},
			},
			target: ErrUpstream,
		},
		{
			name:  "generation failure",
			query: "What is an ETF?",
			client: &MockAIClient{GenerateFunc: func(ctx context.Context, system, prompt string) (string, error) {
				return "", context.DeadlineExceeded
			}},
			retriever: &MockRetriever{
				MatchChunksFunc: func(ctx context.Context, vec []float32, threshold float64, count int) ([]models.RetrievalMatch, error) {
					return matches, nil
				},
				GetDocumentsFunc: func(ctx context.Context, ids []string) (map[string]models.Document, error) {
					return docs, nil
				},
			},
			target: context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(tt.client, tt.retriever)
			got, err := svc.Ask(context.Background(), tt.query)
			if !errors.Is(err, tt.target) {
				t.Fatalf("Expected %v, got %v", tt.target, err)
			}
			if tt.target != ErrInvalidQuery && !errors.Is(err, ErrUpstream) {
				t.Errorf("Expected external failure to wrap ErrUpstream, got %v", err)
			}
			if !reflect.DeepEqual(got, models.Answer{}) {
				t.Errorf("Expected no partial answer, got %+v", got)
			}
		})
	}
}

func TestNewService(t *testing.T) {
	svc := NewService(&MockAIClient{}, &MockRetriever{}, Options{MatchThreshold: 0.2})
	want := Options{MatchThreshold: 0.2, MatchCount: 5, MaxCitations: 3, MaxContextChars: 12000}
	if svc.Options != want {
		t.Errorf("Options = %+v, want %+v", svc.Options, want)
	}
	if svc.Classifier == nil || svc.Metrics == nil {
		t.Error("Expected classifier and metrics to be set")
	}
	if _, err := svc.Ask(context.Background(), "best stock to buy"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestSystemPrompt(t *testing.T) {
	for _, want := range []string{
		FallbackPhrase,
		Disclaimer,
		"3 bullet points",
		"Never recommend buying, selling",
		"Answer only from",
	} {
		if !strings.Contains(SystemPrompt, want) {
			t.Errorf("Expected system prompt to contain %q", want)
		}
	}
}

func TestUserPrompt(t *testing.T) {
	got := UserPrompt("What is NAV?", "[Source 1] NAV\nNet asset value.")
	want := "Context:\n[Source 1] NAV\nNet asset value.\n\nQuestion: What is NAV?"
	if got != want {
		t.Errorf("UserPrompt() = %q, want %q", got, want)
	}
}
