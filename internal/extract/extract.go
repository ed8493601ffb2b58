// Package extract turns fetched source bodies into a title and normalized text.
package extract

import (
	"errors"
	"mime"
	"net/url"
	"path"
	"strings"
)

// ErrUnsupported is returned for bodies that cannot carry readable text.
var ErrUnsupported = errors.New("unsupported content type")

// Result is the readable part of a source.
type Result struct {
	Title string
	Text  string
}

// Format identifies how a body is decoded.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
	FormatText     Format = "text"
)

// Document extracts a body according to its content type, falling back to
// the URL extension and finally to HTML.
func Document(contentType, rawURL string, body []byte) (Result, error) {
	switch Detect(contentType, rawURL) {
	case FormatMarkdown:
		return Markdown(body), nil
	case FormatPDF:
		return PDF(body)
	case FormatText:
		return Text(body), nil
	default:
		return HTML(string(body)), nil
	}
}

// Detect picks the format for a body.
func Detect(contentType, rawURL string) Format {
	ext := extension(rawURL)

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		switch mediaType {
		case "text/html", "application/xhtml+xml":
			return FormatHTML
		case "text/markdown", "text/x-markdown":
			return FormatMarkdown
		case "application/pdf":
			return FormatPDF
		case "text/plain":
			// raw file hosts serve markdown as text/plain
			if ext == ".md" || ext == ".markdown" {
				return FormatMarkdown
			}
			return FormatText
		}
	}

	switch ext {
	case ".md", ".markdown":
		return FormatMarkdown
	case ".pdf":
		return FormatPDF
	case ".txt":
		return FormatText
	}
	return FormatHTML
}

func extension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(u.Path))
}

// collapse folds every whitespace run into one space and trims the ends.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
