// Package reader turns stored raw sources into the plain text files the extractor
// reads. HTML goes through readability; PDF conversion happens upstream.
package reader

import (
	"bytes"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf8"

	readability "codeberg.org/readeck/go-readability/v2"
)

// Kind classifies a raw source by its bytes and file name.
type Kind string

const (
	KindHTML Kind = "html"
	KindText Kind = "text"
	KindPDF  Kind = "pdf"
)

// DetectKind sniffs the PDF magic first, then falls back to the extension.
func DetectKind(path string, raw []byte) Kind {
	if bytes.HasPrefix(bytes.TrimLeft(raw, " \t\r\n"), []byte("%PDF-")) {
		return KindPDF
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return KindPDF
	case ".txt", ".text":
		return KindText
	}
	return KindHTML
}

// ExtractHTML renders the readable body of an HTML page as text. pageURL resolves
// relative links inside the document and may be empty.
func ExtractHTML(raw []byte, pageURL string) (string, error) {
	var base *url.URL
	if trimmed := strings.TrimSpace(pageURL); trimmed != "" {
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return "", fmt.Errorf("parse page url: %w", err)
		}
		base = parsed
	}

	if !utf8.Valid(raw) {
		raw = bytes.ToValidUTF8(raw, []byte("�"))
	}

	article, err := readability.FromReader(bytes.NewReader(raw), base)
	if err != nil {
		return "", fmt.Errorf("readability parse: %w", err)
	}

	var rendered bytes.Buffer
	if err := article.RenderText(&rendered); err != nil {
		return "", fmt.Errorf("render readability text: %w", err)
	}

	text := CleanText(rendered.String())
	if text == "" {
		text = CleanText(article.Excerpt())
	}
	return text, nil
}

// CleanText normalizes line endings and collapses extra in-line whitespace.
// Paragraphs stay separated by a blank line.
func CleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(strings.TrimSpace(line)), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}
