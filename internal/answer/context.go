package answer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Anushka-shukla/phonepe-ai-tutor/pkg/models"
)

const sourceSeparator = "\n\n"

// AssembleContext labels matches "[Source N]" in rank order and joins them
// with blank lines. Entries are added while the block stays within maxChars;
// the first entry is always present, truncated if necessary.
func AssembleContext(matches []models.RetrievalMatch, docs map[string]models.Document, maxChars int) string {
	var sb strings.Builder
	used := 0
	for i, m := range matches {
		entry := sourceEntry(i+1, m, docs)
		n := utf8.RuneCountInString(entry)

		if i == 0 {
			if maxChars > 0 && n > maxChars {
				entry = truncate(entry, maxChars)
				n = maxChars
			}
			sb.WriteString(entry)
			used = n
			continue
		}

		sep := utf8.RuneCountInString(sourceSeparator)
		if maxChars > 0 && used+sep+n > maxChars {
			break
		}
		sb.WriteString(sourceSeparator)
		sb.WriteString(entry)
		used += sep + n
	}
	return sb.String()
}

func sourceEntry(rank int, m models.RetrievalMatch, docs map[string]models.Document) string {
	header := fmt.Sprintf("[Source %d]", rank)
	if d, ok := docs[m.DocumentID]; ok {
		header += " " + d.Label()
	}
	return header + "\n" + strings.TrimSpace(m.Content)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Cite maps the top limit matches to their document URLs. Labels keep the
// match rank, so a match whose document no longer exists leaves a gap.
func Cite(matches []models.RetrievalMatch, docs map[string]models.Document, limit int) []models.Citation {
	citations := []models.Citation{}
	for i, m := range matches {
		if i >= limit {
			break
		}
		d, ok := docs[m.DocumentID]
		if !ok {
			continue
		}
		citations = append(citations, models.Citation{
			Label: fmt.Sprintf("Source %d", i+1),
			URL:   d.URL,
		})
	}
	return citations
}
