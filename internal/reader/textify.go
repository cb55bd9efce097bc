package reader

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"

	"horse.fit/stallednews/internal/evidence"
	"horse.fit/stallednews/internal/store"
)

// Outcome of textifying one document.
const (
	OutcomeWritten   = "written"
	OutcomeUnchanged = "unchanged"
	OutcomeNoRaw     = "no_raw"
	OutcomePDF       = "pdf"
	OutcomeEmpty     = "empty"
	OutcomeFailed    = "failed"
)

// Options control where text files are written and whether unchanged sources are
// rendered again.
type Options struct {
	TextDir string
	Force   bool
}

// Stats counts documents per outcome.
type Stats map[string]int

// HashRaw is the blake2b-256 digest of a raw source, hex encoded.
func HashRaw(raw []byte) string {
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Textify renders each document's raw_path into TextDir/<doc_id>.txt and returns the
// updated documents in input order. A document whose raw_hash still matches and whose
// text file exists is left alone unless Force is set. Failures on one document are
// logged and leave that document unchanged; only ctx cancellation aborts the run.
func Textify(ctx context.Context, docs []evidence.Document, opts Options, logger zerolog.Logger) ([]evidence.Document, Stats, error) {
	if strings.TrimSpace(opts.TextDir) == "" {
		return nil, nil, fmt.Errorf("text directory is required")
	}
	if err := os.MkdirAll(opts.TextDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create text directory %q: %w", opts.TextDir, err)
	}

	out := make([]evidence.Document, len(docs))
	stats := Stats{}
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		updated, outcome, err := textifyDocument(doc, opts)
		if err != nil {
			logger.Warn().Err(err).Str("doc_id", doc.DocID).Str("raw_path", doc.RawPath).Msg("textify failed")
		} else {
			logger.Debug().Str("doc_id", doc.DocID).Str("outcome", outcome).Int("text_chars", updated.TextChars).Msg("textify document")
		}
		stats[outcome]++
		out[i] = updated
	}
	return out, stats, nil
}

func textifyDocument(doc evidence.Document, opts Options) (evidence.Document, string, error) {
	if strings.TrimSpace(doc.RawPath) == "" {
		return doc, OutcomeNoRaw, nil
	}

	raw, err := os.ReadFile(doc.RawPath)
	if err != nil {
		return doc, OutcomeFailed, fmt.Errorf("read raw source: %w", err)
	}
	hash := HashRaw(raw)
	if !opts.Force && hash == doc.RawHash && textFileExists(doc.TextPath) {
		return doc, OutcomeUnchanged, nil
	}

	var text string
	switch DetectKind(doc.RawPath, raw) {
	case KindPDF:
		// PDF conversion is external. A PDF that arrives without text needs OCR.
		if !textFileExists(doc.TextPath) {
			doc.NeedsOCR = true
			doc.TextChars = 0
		}
		doc.RawHash = hash
		return doc, OutcomePDF, nil
	case KindText:
		text = CleanText(string(raw))
	default:
		text, err = ExtractHTML(raw, doc.FinalURL)
		if err != nil {
			return doc, OutcomeFailed, err
		}
	}

	target := filepath.Join(opts.TextDir, textFileName(doc))
	if err := store.WriteFileAtomic(target, []byte(text)); err != nil {
		return doc, OutcomeFailed, fmt.Errorf("write text: %w", err)
	}

	doc.TextPath = target
	doc.TextChars = utf8.RuneCountInString(text)
	doc.RawHash = hash
	doc.NeedsOCR = false
	if doc.TextChars == 0 {
		return doc, OutcomeEmpty, nil
	}
	return doc, OutcomeWritten, nil
}

func textFileName(doc evidence.Document) string {
	id := strings.TrimSpace(doc.DocID)
	if id == "" {
		id = evidence.DocIDFor(doc.FinalURL)
	}
	id = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, id)
	return id + ".txt"
}

func textFileExists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
