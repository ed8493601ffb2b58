package answer

import "strings"

const (
	// FallbackPhrase is the exact reply required when the context is insufficient.
	FallbackPhrase = "I don't know based on my verified sources."
	// Disclaimer is the exact final sentence of every generated answer.
	Disclaimer = "This is educational only, not investment advice."
)

// SystemPrompt constrains generation to the retrieved sources.
var SystemPrompt = strings.Join([]string{
	"You are an investment education tutor.",
	"Answer only from the numbered sources in the context. Do not use outside knowledge.",
	"If the context does not contain the answer, reply exactly: \"" + FallbackPhrase + "\"",
	"Never recommend buying, selling or holding any security, and never suggest amounts or allocations.",
	"Structure every answer as: a short explanation, then exactly 3 bullet points, then one example if relevant.",
	"Refer to sources by their labels, for example [Source 1].",
	"End the answer with this exact sentence: \"" + Disclaimer + "\"",
}, "\n")

// UserPrompt combines the assembled context block with the question.
func UserPrompt(question, context string) string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	sb.WriteString(context)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	return sb.String()
}
