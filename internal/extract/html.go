package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// skipped elements never contribute text.
var skipped = map[string]bool{
	"script":   true,
	"style":    true,
	"nav":      true,
	"footer":   true,
	"noscript": true,
	"header":   true,
	"aside":    true,
	"form":     true,
	"iframe":   true,
	"svg":      true,
	"template": true,
}

// block elements are separated from their neighbours by a space.
var block = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"li": true, "ul": true, "ol": true, "br": true, "td": true, "th": true,
	"tr": true, "table": true, "blockquote": true, "pre": true, "dd": true, "dt": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// HTML returns the page title and the text of its main content region.
// The region is the first <main>, else <article>, else role="main", else
// <body>, else the whole document.
func HTML(raw string) Result {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		// html.Parse only fails on reader errors
		return Result{}
	}

	root := find(doc, func(n *html.Node) bool { return n.Data == "main" })
	if root == nil {
		root = find(doc, func(n *html.Node) bool { return n.Data == "article" })
	}
	if root == nil {
		root = find(doc, func(n *html.Node) bool { return attr(n, "role") == "main" })
	}
	if root == nil {
		root = find(doc, func(n *html.Node) bool { return n.Data == "body" })
	}
	if root == nil {
		root = doc
	}

	var title string
	if t := find(doc, func(n *html.Node) bool { return n.Data == "title" }); t != nil {
		title = collapse(rawText(t))
	}

	var sb strings.Builder
	writeText(&sb, root)
	return Result{Title: title, Text: collapse(sb.String())}
}

// find returns the first element in document order outside skipped subtrees
// that satisfies match.
func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode {
		if skipped[n.Data] {
			return nil
		}
		if match(n) {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func writeText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if skipped[n.Data] {
			return
		}
		if block[n.Data] {
			sb.WriteByte(' ')
			defer sb.WriteByte(' ')
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c)
	}
}

func rawText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
