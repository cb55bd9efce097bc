package evidence

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// ErrEmptyText means the text file exists but holds no usable characters.
var ErrEmptyText = errors.New("extracted text is empty")

// ReadText loads a document's extracted plain text. Invalid UTF-8 sequences are
// replaced rather than rejected, matching a lenient decoder.
func ReadText(doc Document) (string, error) {
	path := strings.TrimSpace(doc.TextPath)
	if path == "" {
		return "", fmt.Errorf("document %s has no text_path", doc.DocID)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text for %s: %w", doc.DocID, err)
	}

	text := string(raw)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	return text, nil
}
