package extract

import (
	"bufio"
	"bytes"
	"strings"
)

// Text normalizes a plain-text body. The first non-blank line is the title.
func Text(body []byte) Result {
	var title string
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			title = collapse(line)
			break
		}
	}
	return Result{Title: title, Text: collapse(string(body))}
}
