// Package classify decides what a candidate reply signals: its knowledge
// intent and whether it relates to the question asked.
package classify

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var defaultPatterns []byte

// PatternTables is the on-disk shape of the phrase tables.
type PatternTables struct {
	Stopwords []string `yaml:"stopwords"`
	Refuse    []string `yaml:"refuse"`
	Partial   []string `yaml:"partial"`
	Greeting  []string `yaml:"greeting"`
}

// Patterns holds the compiled phrase tables.
type Patterns struct {
	stopwords map[string]struct{}
	refuse    []*regexp.Regexp
	partial   []*regexp.Regexp
	greeting  []*regexp.Regexp
}

// DefaultPatterns returns the built-in tables. It panics if the embedded
// tables are invalid.
func DefaultPatterns() *Patterns {
	p, err := ParsePatterns(defaultPatterns)
	if err != nil {
		panic(fmt.Sprintf("embedded patterns: %v", err))
	}
	return p
}

// LoadPatterns reads tables from a YAML file. Tables missing from the file
// keep their built-in values.
func LoadPatterns(path string) (*Patterns, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading patterns file: %w", err)
	}
	return ParsePatterns(data)
}

// ParsePatterns compiles YAML tables layered over the built-in ones.
func ParsePatterns(data []byte) (*Patterns, error) {
	var base PatternTables
	if err := yaml.Unmarshal(defaultPatterns, &base); err != nil {
		return nil, fmt.Errorf("parsing default patterns: %w", err)
	}

	var override PatternTables
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parsing patterns: %w", err)
	}

	if len(override.Stopwords) > 0 {
		base.Stopwords = override.Stopwords
	}
	if len(override.Refuse) > 0 {
		base.Refuse = override.Refuse
	}
	if len(override.Partial) > 0 {
		base.Partial = override.Partial
	}
	if len(override.Greeting) > 0 {
		base.Greeting = override.Greeting
	}

	return Compile(base)
}

// Compile turns tables into matchers.
func Compile(tables PatternTables) (*Patterns, error) {
	p := &Patterns{stopwords: make(map[string]struct{}, len(tables.Stopwords))}
	for _, w := range tables.Stopwords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			p.stopwords[w] = struct{}{}
		}
	}

	var err error
	if p.refuse, err = compileAll("refuse", tables.Refuse); err != nil {
		return nil, err
	}
	if p.partial, err = compileAll("partial", tables.Partial); err != nil {
		return nil, err
	}
	if p.greeting, err = compileAll("greeting", tables.Greeting); err != nil {
		return nil, err
	}

	return p, nil
}

func compileAll(table string, patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, raw := range patterns {
		re, err := regexp.Compile("(?i)" + raw)
		if err != nil {
			return nil, fmt.Errorf("%s pattern %q: %w", table, raw, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// IsRefusal reports whether text contains a refusal phrase.
func (p *Patterns) IsRefusal(text string) bool { return matchAny(p.refuse, normalize(text)) }

// IsPartial reports whether text signals partial knowledge or asks for a hint.
func (p *Patterns) IsPartial(text string) bool { return matchAny(p.partial, normalize(text)) }

// IsGreeting reports whether text is only greeting or filler.
func (p *Patterns) IsGreeting(text string) bool { return matchAny(p.greeting, normalize(text)) }

// ContentTokens lowercases text, splits it on non-word characters and drops
// stopwords. Order and duplicates are kept.
func (p *Patterns) ContentTokens(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(normalize(text)), isSeparator)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := p.stopwords[w]; stop {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

func matchAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "ʼ", "'")

func normalize(text string) string {
	return apostrophes.Replace(strings.TrimSpace(text))
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}
