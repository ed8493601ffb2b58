package extract

import (
	"bytes"
	"fmt"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDF extracts the plain text of every page. The title comes from the
// document info dictionary when present.
func PDF(body []byte) (res Result, err error) {
	// the pdf library panics on some malformed object streams
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract pdf: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return Result{}, fmt.Errorf("open pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteByte(' ')
	}

	title := collapse(reader.Trailer().Key("Info").Key("Title").Text())
	return Result{Title: title, Text: collapse(sb.String())}, nil
}
