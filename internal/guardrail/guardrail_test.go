package guardrail

import (
	"reflect"
	"sync"
	"testing"
)

func TestIsAdviceQuery(t *testing.T) {
	tests := []struct {
		query    string
		expected bool
	}{
		{"Should I buy this stock?", true},
		{"best ETF for 2024", true},
		{"guaranteed return schemes", true},
		{"SHOULD I SELL my gold?", true},
		{"What is the target price for XYZ?", true},
		{"Which stock will be a multibagger", true},
		{"How much should I invest every month?", true},
		{"What is an ETF?", false},
		{"How does SIP work?", false},
		{"Explain price discovery", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := IsAdviceQuery(tt.query); got != tt.expected {
				t.Errorf("IsAdviceQuery(%q) = %v, expected %v", tt.query, got, tt.expected)
			}
		})
	}
}

func TestNewPatternClassifier(t *testing.T) {
	c := NewPatternClassifier("  Hot Tip ", "")
	if !c.IsAdvice("any hot tip today?") {
		t.Error("Expected custom pattern to match case-insensitively")
	}
	if c.IsAdvice("should i buy") {
		t.Error("Expected custom classifier to ignore default patterns")
	}
	if len(c.patterns) != 1 {
		t.Errorf("Expected blank pattern to be dropped, got %q", c.patterns)
	}

	var _ Classifier = NewPatternClassifier()
}

func TestSuggestFollowUps(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{"etf", "Tell me about ETFs", ETFFollowUps},
		{"mutual fund", "how are Mutual Fund returns taxed", MutualFundFollowUps},
		{"stock", "what moves a stock", StockFollowUps},
		{"share", "what is a share buyback", StockFollowUps},
		{"generic", "random topic", GenericFollowUps},
		{"etf wins over mutual fund", "etf vs mutual fund", ETFFollowUps},
		{"mutual fund wins over stock", "mutual fund or stock", MutualFundFollowUps},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuggestFollowUps(tt.query)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("SuggestFollowUps(%q) = %q, expected %q", tt.query, got, tt.expected)
			}
			if len(got) == 0 || len(got) > 3 {
				t.Errorf("Expected 1 to 3 follow-ups, got %d", len(got))
			}
		})
	}
}

func TestSuggestFollowUpsReturnsCopy(t *testing.T) {
	got := SuggestFollowUps("random topic")
	got[0] = "mutated"
	if GenericFollowUps[0] == "mutated" {
		t.Fatal("Expected caller changes not to leak into the shared set")
	}
}

func TestClassifierConcurrentUse(t *testing.T) {
	c := NewPatternClassifier()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !c.IsAdvice("best stock to buy") {
				t.Error("Expected advice")
			}
		}()
	}
	wg.Wait()
}
