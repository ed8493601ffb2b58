// Package guardrail flags questions that ask for personal investment advice
// and suggests educational follow-up questions.
package guardrail

import "strings"

// Classifier decides whether a query seeks personalized advice.
type Classifier interface {
	IsAdvice(query string) bool
}

// AdvicePatterns are matched as lowercase substrings of the query.
var AdvicePatterns = []string{
	"should i buy",
	"should i sell",
	"should i invest",
	"best stock",
	"best etf",
	"best mutual fund",
	"multibagger",
	"target price",
	"price target",
	"guaranteed return",
	"will this go up",
	"which stock",
	"tell me what to buy",
	"how much should i invest",
}

// PatternClassifier matches queries against a fixed phrase list.
type PatternClassifier struct {
	patterns []string
}

// NewPatternClassifier lowercases patterns once. With no patterns it uses AdvicePatterns.
func NewPatternClassifier(patterns ...string) *PatternClassifier {
	if len(patterns) == 0 {
		patterns = AdvicePatterns
	}
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	return &PatternClassifier{patterns: lowered}
}

func (c *PatternClassifier) IsAdvice(query string) bool {
	q := strings.ToLower(query)
	for _, p := range c.patterns {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

var defaultClassifier = NewPatternClassifier()

// IsAdviceQuery reports whether query matches one of AdvicePatterns.
func IsAdviceQuery(query string) bool {
	return defaultClassifier.IsAdvice(query)
}

var (
	ETFFollowUps = []string{
		"What is an ETF and how does it trade?",
		"How is an ETF different from a mutual fund?",
		"What is an expense ratio?",
	}
	MutualFundFollowUps = []string{
		"What is NAV in a mutual fund?",
		"How does a SIP work?",
		"What is the difference between direct and regular plans?",
	}
	StockFollowUps = []string{
		"What does owning a share of a company mean?",
		"What is a P/E ratio?",
		"How do dividends work?",
	}
	GenericFollowUps = []string{
		"What is diversification?",
		"What is an ETF?",
		"How do risk and return relate?",
	}
)

// SuggestFollowUps returns the follow-up set for the first topic found in
// query, checked in the order etf, mutual fund, stock or share. The result is
// a fresh slice.
func SuggestFollowUps(query string) []string {
	q := strings.ToLower(query)
	var set []string
	switch {
	case strings.Contains(q, "etf"):
		set = ETFFollowUps
	case strings.Contains(q, "mutual fund"):
		set = MutualFundFollowUps
	case strings.Contains(q, "stock"), strings.Contains(q, "share"):
		set = StockFollowUps
	default:
		set = GenericFollowUps
	}
	return append([]string(nil), set...)
}
