// Package scoring assigns a deterministic confidence and semantic tags to a candidate
// event snippet from an inspectable keyword table.
package scoring

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"horse.fit/stallednews/internal/dates"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// LengthBonus is added once when a snippet has at least MinChars runes. Only the
// largest satisfied bonus applies.
type LengthBonus struct {
	MinChars int     `yaml:"min_chars" json:"min_chars"`
	Bonus    float64 `yaml:"bonus" json:"bonus"`
}

// Category maps a tag to the keywords that assign it.
type Category struct {
	Tag      string   `yaml:"tag" json:"tag"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Rules is the full scoring configuration.
type Rules struct {
	Base                  float64            `yaml:"base" json:"base"`
	Ceiling               float64            `yaml:"ceiling" json:"ceiling"`
	MonthPrecisionPenalty float64            `yaml:"month_precision_penalty" json:"month_precision_penalty"`
	KeywordWeights        map[string]float64 `yaml:"keyword_weights" json:"keyword_weights"`
	HedgingWeights        map[string]float64 `yaml:"hedging_weights" json:"hedging_weights"`
	LengthBonuses         []LengthBonus      `yaml:"length_bonuses" json:"length_bonuses"`
	Categories            []Category         `yaml:"categories" json:"categories"`
	FallbackTag           string             `yaml:"fallback_tag" json:"fallback_tag"`
}

func (r Rules) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Base, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&r.Ceiling, validation.Required, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&r.MonthPrecisionPenalty, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&r.KeywordWeights, validation.Required, validation.By(func(value any) error {
			for keyword, weight := range r.KeywordWeights {
				if strings.TrimSpace(keyword) == "" {
					return fmt.Errorf("keyword must not be blank")
				}
				if weight < 0 {
					return fmt.Errorf("keyword %q must have a non-negative weight", keyword)
				}
			}
			return checkShadowedKeywords(r.KeywordWeights)
		})),
		validation.Field(&r.HedgingWeights, validation.By(func(value any) error {
			for keyword, weight := range r.HedgingWeights {
				if weight > 0 {
					return fmt.Errorf("hedging keyword %q must have a non-positive weight", keyword)
				}
			}
			return checkShadowedKeywords(r.HedgingWeights)
		})),
		validation.Field(&r.Categories, validation.Required, validation.By(func(value any) error {
			for i, category := range r.Categories {
				if strings.TrimSpace(category.Tag) == "" || len(category.Keywords) == 0 {
					return fmt.Errorf("category %d needs a tag and keywords", i)
				}
			}
			return nil
		})),
		validation.Field(&r.FallbackTag, validation.Required),
	)
}

// checkShadowedKeywords rejects a table where one keyword starts another. Keywords
// match at word starts, so both would fire on the longer word and count twice.
func checkShadowedKeywords(weights map[string]float64) error {
	keywords := make([]string, 0, len(weights))
	for keyword := range weights {
		keywords = append(keywords, normalizeKeyword(keyword))
	}
	sort.Strings(keywords)
	for i := 1; i < len(keywords); i++ {
		if strings.HasPrefix(keywords[i], keywords[i-1]) {
			return fmt.Errorf("keyword %q already matches %q", keywords[i-1], keywords[i])
		}
	}
	return nil
}

// DefaultRules returns the embedded rule table.
func DefaultRules() (Rules, error) {
	return ParseRules(defaultRulesYAML)
}

// LoadRules reads a YAML rule table from disk.
func LoadRules(path string) (Rules, error) {
	raw, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return Rules{}, fmt.Errorf("read scoring rules %q: %w", path, err)
	}
	rules, err := ParseRules(raw)
	if err != nil {
		return Rules{}, fmt.Errorf("scoring rules %q: %w", path, err)
	}
	return rules, nil
}

func ParseRules(raw []byte) (Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return Rules{}, fmt.Errorf("decode scoring rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, fmt.Errorf("invalid scoring rules: %w", err)
	}
	return rules, nil
}

// Result is the outcome of scoring one snippet.
type Result struct {
	Confidence float64  `json:"confidence"`
	Tags       []string `json:"tags"`
	Hits       []string `json:"hits"`
}

type weightedTerm struct {
	keyword string
	weight  float64
	re      *regexp.Regexp
}

type compiledCategory struct {
	tag   string
	terms []*regexp.Regexp
}

// Scorer applies a compiled Rules table. It is safe for concurrent use.
type Scorer struct {
	rules      Rules
	terms      []weightedTerm
	categories []compiledCategory
	bonuses    []LengthBonus
}

func NewScorer(rules Rules) (*Scorer, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring rules: %w", err)
	}

	weights := make(map[string]float64, len(rules.KeywordWeights)+len(rules.HedgingWeights))
	for keyword, weight := range rules.KeywordWeights {
		weights[normalizeKeyword(keyword)] += weight
	}
	for keyword, weight := range rules.HedgingWeights {
		weights[normalizeKeyword(keyword)] += weight
	}

	keywords := make([]string, 0, len(weights))
	for keyword := range weights {
		if keyword != "" {
			keywords = append(keywords, keyword)
		}
	}
	sort.Strings(keywords)

	s := &Scorer{rules: rules}
	for _, keyword := range keywords {
		s.terms = append(s.terms, weightedTerm{keyword: keyword, weight: weights[keyword], re: keywordPattern(keyword)})
	}
	for _, category := range rules.Categories {
		compiled := compiledCategory{tag: strings.TrimSpace(category.Tag)}
		for _, keyword := range category.Keywords {
			if normalized := normalizeKeyword(keyword); normalized != "" {
				compiled.terms = append(compiled.terms, keywordPattern(normalized))
			}
		}
		s.categories = append(s.categories, compiled)
	}

	s.bonuses = append([]LengthBonus(nil), rules.LengthBonuses...)
	sort.Slice(s.bonuses, func(i, j int) bool { return s.bonuses[i].MinChars < s.bonuses[j].MinChars })
	return s, nil
}

// NewDefaultScorer compiles the embedded rule table.
func NewDefaultScorer() (*Scorer, error) {
	rules, err := DefaultRules()
	if err != nil {
		return nil, err
	}
	return NewScorer(rules)
}

func (s *Scorer) Rules() Rules {
	return s.rules
}

// Score rates a snippet whose date was stated to the day.
func (s *Scorer) Score(snippet string) Result {
	return s.ScoreMatch(snippet, dates.PrecisionDay)
}

// ScoreMatch rates a snippet and applies the month-precision penalty when the date
// was only stated as a month.
func (s *Scorer) ScoreMatch(snippet string, precision dates.Precision) Result {
	total := s.rules.Base
	hits := make([]string, 0, 4)
	for _, term := range s.terms {
		if term.re.MatchString(snippet) {
			total += term.weight
			hits = append(hits, term.keyword)
		}
	}

	length := utf8.RuneCountInString(strings.TrimSpace(snippet))
	bonus := 0.0
	for _, lb := range s.bonuses {
		if length >= lb.MinChars {
			bonus = lb.Bonus
		}
	}
	total += bonus

	if precision == dates.PrecisionMonth {
		total -= s.rules.MonthPrecisionPenalty
	}

	total = math.Max(0, math.Min(total, s.rules.Ceiling))
	return Result{
		Confidence: math.Round(total*100) / 100,
		Tags:       s.Tags(snippet),
		Hits:       hits,
	}
}

// Tags lists every category whose keywords appear in the snippet, in category order.
// A snippet with no category hit gets the fallback tag alone.
func (s *Scorer) Tags(snippet string) []string {
	tags := make([]string, 0, 2)
	for _, category := range s.categories {
		for _, re := range category.terms {
			if re.MatchString(snippet) {
				tags = append(tags, category.tag)
				break
			}
		}
	}
	if len(tags) == 0 {
		tags = append(tags, s.rules.FallbackTag)
	}
	return tags
}

func normalizeKeyword(keyword string) string {
	return strings.Join(strings.Fields(strings.ToLower(keyword)), " ")
}

// keywordPattern matches keyword at a word start. Inner spaces match any whitespace run.
func keywordPattern(keyword string) *regexp.Regexp {
	parts := strings.Fields(keyword)
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return regexp.MustCompile(`(?i)\b` + strings.Join(parts, `\s+`))
}
