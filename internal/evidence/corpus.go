// Package evidence loads the fetched-document corpus produced by the fetch/extract
// collaborator and reads each document's extracted text.
package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"horse.fit/stallednews/internal/store"
	payloadschema "horse.fit/stallednews/schema"
)

// ErrUnsupportedShape is returned when a corpus decodes but has no document list.
var ErrUnsupportedShape = errors.New("unsupported evidence corpus shape")

const docIDHexLength = 16

// Document is one fetched, text-extracted source.
type Document struct {
	DocID     string `json:"doc_id"`
	URL       string `json:"url"`
	FinalURL  string `json:"final_url"`
	Domain    string `json:"domain"`
	TextPath  string `json:"text_path"`
	Snippet   string `json:"snippet"`
	TextChars int    `json:"text_chars"`
	Title     string `json:"title,omitempty"`
	RawPath   string `json:"raw_path,omitempty"`
	RawHash   string `json:"raw_hash,omitempty"`
	NeedsOCR  bool   `json:"needs_ocr,omitempty"`
}

// Corpus is the normalized on-disk form written back by textify.
type Corpus struct {
	Docs []Document `json:"docs"`
}

// LoadCorpus reads and validates an evidence corpus file. Any read, decode or schema
// failure is returned; the caller must not proceed with extraction.
func LoadCorpus(path string) ([]Document, error) {
	raw, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("read evidence corpus %q: %w", path, err)
	}
	docs, err := parseCorpus(raw, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("parse evidence corpus %q: %w", path, err)
	}
	return docs, nil
}

// ParseCorpus validates and normalizes a raw corpus payload. Relative paths are kept
// as given.
func ParseCorpus(raw []byte) ([]Document, error) {
	return parseCorpus(raw, "")
}

func parseCorpus(raw []byte, baseDir string) ([]Document, error) {
	value, err := payloadschema.ValidateEvidenceCorpus(raw)
	if err != nil {
		return nil, err
	}

	var items []any
	switch v := value.(type) {
	case []any:
		items = v
	case map[string]any:
		if docs, ok := v["docs"].([]any); ok {
			items = docs
		} else if legacy, ok := v["evidence"].([]any); ok {
			items = legacy
		} else {
			return nil, ErrUnsupportedShape
		}
	default:
		return nil, ErrUnsupportedShape
	}

	docs := make([]Document, 0, len(items))
	for i, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("document %d: %w", i, ErrUnsupportedShape)
		}
		docs = append(docs, normalizeDocument(fields, baseDir))
	}
	return docs, nil
}

// WriteCorpus writes docs in the normalized {"docs":[...]} format. Text and raw paths
// under the corpus directory are stored relative to it so LoadCorpus resolves them back
// to the same files from any working directory.
func WriteCorpus(path string, docs []Document) error {
	baseDir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("resolve evidence corpus dir %q: %w", path, err)
	}
	out := make([]Document, len(docs))
	for i, doc := range docs {
		doc.TextPath = relativePath(baseDir, doc.TextPath)
		doc.RawPath = relativePath(baseDir, doc.RawPath)
		out[i] = doc
	}
	if err := store.WriteJSON(path, Corpus{Docs: out}); err != nil {
		return fmt.Errorf("write evidence corpus %q: %w", path, err)
	}
	return nil
}

// normalizeDocument fills every alias and derived field. Relative text and raw paths
// resolve against baseDir when it is set.
func normalizeDocument(fields map[string]any, baseDir string) Document {
	doc := Document{
		DocID:    firstString(fields, "doc_id", "id"),
		URL:      firstString(fields, "url"),
		FinalURL: firstString(fields, "final_url", "finalUrl"),
		Domain:   strings.ToLower(firstString(fields, "domain")),
		TextPath: firstString(fields, "text_path", "textPath"),
		Snippet:  firstString(fields, "snippet"),
		Title:    firstString(fields, "title"),
		RawPath:  firstString(fields, "raw_path", "rawPath"),
		RawHash:  firstString(fields, "raw_hash"),
		NeedsOCR: firstBool(fields, "needs_ocr", "needsOcr"),
	}

	doc.TextPath = resolvePath(baseDir, doc.TextPath)
	doc.RawPath = resolvePath(baseDir, doc.RawPath)

	if doc.Snippet == "" {
		if snippets, ok := fields["snippets"].([]any); ok {
			for _, s := range snippets {
				if text, ok := s.(string); ok && strings.TrimSpace(text) != "" {
					doc.Snippet = strings.TrimSpace(text)
					break
				}
			}
		}
	}
	if doc.FinalURL == "" {
		doc.FinalURL = doc.URL
	}
	if doc.URL == "" {
		doc.URL = doc.FinalURL
	}
	if doc.Domain == "" {
		doc.Domain = HostFromURL(doc.FinalURL)
	}
	if doc.DocID == "" {
		doc.DocID = DocIDFor(doc.FinalURL)
	}

	if chars, ok := firstInt(fields, "text_chars", "textChars"); ok {
		doc.TextChars = chars
	} else {
		doc.TextChars = countTextChars(doc.TextPath)
	}
	return doc
}

// DocIDFor derives a stable document id from its resolved URL.
func DocIDFor(finalURL string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(finalURL)))
	return hex.EncodeToString(sum[:])[:docIDHexLength]
}

// HostFromURL returns the lowercased host of rawURL without a leading "www.".
func HostFromURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ""
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}

func resolvePath(baseDir, path string) string {
	if path == "" || baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// relativePath is the inverse of resolvePath. Paths outside baseDir become absolute.
func relativePath(baseDir, path string) string {
	if path == "" {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(baseDir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return abs
	}
	return filepath.ToSlash(rel)
}

func countTextChars(path string) int {
	if strings.TrimSpace(path) == "" {
		return 0
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	return utf8.RuneCount(raw)
}

func firstString(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := fields[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func firstBool(fields map[string]any, keys ...string) bool {
	for _, key := range keys {
		if value, ok := fields[key].(bool); ok {
			return value
		}
	}
	return false
}

func firstInt(fields map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		number, ok := fields[key].(json.Number)
		if !ok {
			continue
		}
		value, err := number.Int64()
		if err != nil {
			continue
		}
		return int(value), true
	}
	return 0, false
}
