// Package identity resolves a project's name, city and regulator registration
// identifier into a reusable relevance predicate over arbitrary text.
package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Reason names the rule that made a text blob relevant. The empty Reason means
// the blob is not relevant.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonRegistrationID Reason = "registration_id"
	ReasonFullName       Reason = "full_name"
	ReasonNameTokens     Reason = "name_tokens"
	ReasonTokenAndCity   Reason = "token_and_city"
)

const (
	minTokenLength           = 3
	minRegistrationIDLength  = 4
	requiredTokenMatchesBase = 2
)

var stopwords = map[string]struct{}{
	"the":     {},
	"and":     {},
	"of":      {},
	"phase":   {},
	"tower":   {},
	"towers":  {},
	"block":   {},
	"wing":    {},
	"project": {},
	"sector":  {},
	"new":     {},
}

// Input is the project description supplied by the caller.
type Input struct {
	ProjectName    string `json:"project_name"`
	City           string `json:"city"`
	RegistrationID string `json:"rera_id,omitempty"`
}

// Validate checks the caller-supplied fields.
func (in Input) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ProjectName, validation.Required, validation.Length(2, 200)),
		validation.Field(&in.City, validation.Length(0, 100)),
		validation.Field(&in.RegistrationID, validation.By(func(value any) error {
			raw, _ := value.(string)
			if strings.TrimSpace(raw) == "" {
				return nil
			}
			if len(compact(raw)) < minRegistrationIDLength {
				return fmt.Errorf("must contain at least %d alphanumeric characters", minRegistrationIDLength)
			}
			return nil
		})),
	)
}

// LoadInput reads a project JSON file of the form {"project_name","city","rera_id"}.
func LoadInput(path string) (Input, error) {
	raw, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return Input{}, fmt.Errorf("read project file %q: %w", path, err)
	}
	var in Input
	if err := json.Unmarshal(raw, &in); err != nil {
		return Input{}, fmt.Errorf("decode project file %q: %w", path, err)
	}
	return in, nil
}

// Identity is immutable once built; all derived forms are computed in New.
type Identity struct {
	name           string
	city           string
	registrationID string

	normalizedName string
	normalizedCity string
	compactRegID   string
	tokens         []string
}

// New builds an Identity from validated input.
func New(in Input) (*Identity, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("invalid project identity: %w", err)
	}

	name := strings.TrimSpace(in.ProjectName)
	id := &Identity{
		name:           name,
		city:           strings.TrimSpace(in.City),
		registrationID: strings.TrimSpace(in.RegistrationID),
		normalizedName: normalizePhrase(name),
		normalizedCity: normalizePhrase(in.City),
		compactRegID:   compact(in.RegistrationID),
	}

	seen := make(map[string]struct{})
	for _, token := range tokenize(name) {
		if len(token) < minTokenLength {
			continue
		}
		if _, skip := stopwords[token]; skip {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		id.tokens = append(id.tokens, token)
	}
	return id, nil
}

func (id *Identity) Name() string           { return id.name }
func (id *Identity) City() string           { return id.city }
func (id *Identity) RegistrationID() string { return id.registrationID }

// Tokens returns a copy of the distinctive name tokens.
func (id *Identity) Tokens() []string {
	out := make([]string, len(id.tokens))
	copy(out, id.tokens)
	return out
}

// Matches reports whether text concerns the project.
func (id *Identity) Matches(text string) bool {
	return id.Match(text) != ReasonNone
}

// Match evaluates the relevance rules in priority order and returns the first
// rule that fires.
func (id *Identity) Match(text string) Reason {
	if id == nil || strings.TrimSpace(text) == "" {
		return ReasonNone
	}

	if id.compactRegID != "" && strings.Contains(compact(text), id.compactRegID) {
		return ReasonRegistrationID
	}

	blob := normalizePhrase(text)
	if id.normalizedName != "" && containsPhrase(blob, id.normalizedName) {
		return ReasonFullName
	}

	if len(id.tokens) == 0 {
		return ReasonNone
	}

	present := make(map[string]struct{})
	for _, token := range strings.Fields(blob) {
		present[token] = struct{}{}
	}
	hits := 0
	for _, token := range id.tokens {
		if _, ok := present[token]; ok {
			hits++
		}
	}

	if hits >= min(requiredTokenMatchesBase, len(id.tokens)) {
		return ReasonNameTokens
	}
	if hits >= 1 && id.normalizedCity != "" && containsPhrase(blob, id.normalizedCity) {
		return ReasonTokenAndCity
	}
	return ReasonNone
}

// normalizePhrase lowercases, turns every non-alphanumeric rune into a space and
// collapses the result.
func normalizePhrase(s string) string {
	return strings.Join(tokenize(s), " ")
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func containsPhrase(blob, phrase string) bool {
	return strings.Contains(" "+blob+" ", " "+phrase+" ")
}

// compact strips slashes, hyphens and whitespace and lowercases, so registration
// numbers compare regardless of punctuation.
func compact(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if r == '/' || r == '-' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
