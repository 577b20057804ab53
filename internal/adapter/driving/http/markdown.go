package httphandler

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// summaryLength is the rune limit of template summaries in list responses.
const summaryLength = 160

var (
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)

	descriptionPolicy = newDescriptionPolicy()
	plainText         = bluemonday.StrictPolicy()
)

// newDescriptionPolicy allows the text formatting and links a badge
// description needs. Images, embeds and forms are dropped; links never pass
// on page rank and open outside the badge page.
func newDescriptionPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "hr", "blockquote", "pre", "code",
		"strong", "em", "del",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li",
		"table", "thead", "tbody", "tr", "th", "td",
	)
	p.AllowAttrs("start").Matching(bluemonday.Integer).OnElements("ol")
	p.AllowAttrs("align").Matching(regexp.MustCompile(`^(left|center|right)$`)).OnElements("th", "td")

	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	return p
}

func renderHTML(src string) string {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return src
	}
	return buf.String()
}

// RenderDescription converts a template description from markdown to
// sanitized HTML. Returns empty string for empty input.
func RenderDescription(src string) string {
	if src == "" {
		return ""
	}
	return descriptionPolicy.Sanitize(renderHTML(src))
}

// SummarizeDescription reduces a template description to at most limit runes
// of plain text on one line. A cut summary ends with an ellipsis.
func SummarizeDescription(src string, limit int) string {
	if src == "" {
		return ""
	}

	text := html.UnescapeString(plainText.Sanitize(renderHTML(src)))
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
