package question

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultMinWords = 4

//go:embed rules.yaml
var defaultRulesYAML []byte

// Rules is the adjustable part of question extraction.
type Rules struct {
	MinWords  int      `yaml:"min_words"`
	Banners   []string `yaml:"banners"`
	Greetings []string `yaml:"greetings"`
}

// ParseRules decodes a YAML rules document.
func ParseRules(data []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("question: decode rules: %w", err)
	}
	if r.MinWords <= 0 {
		r.MinWords = defaultMinWords
	}
	return r, nil
}

// DefaultRules returns the rules embedded in the binary.
func DefaultRules() Rules {
	r, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(err)
	}
	return r
}

// LoadRules reads rules from path, or returns the embedded defaults when
// path is empty.
func LoadRules(path string) (Rules, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("question: read rules file: %w", err)
	}
	return ParseRules(data)
}

// Compile turns rules into an Extractor.
func Compile(r Rules) (*Extractor, error) {
	if len(r.Greetings) == 0 {
		return nil, errors.New("question: at least one greeting pattern is required")
	}
	minWords := r.MinWords
	if minWords <= 0 {
		minWords = defaultMinWords
	}

	e := &Extractor{minWords: minWords}
	for _, p := range r.Banners {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("question: compile banner %q: %w", p, err)
		}
		e.banners = append(e.banners, re)
	}
	for _, p := range r.Greetings {
		re, err := regexp.Compile(`(?i)^(?:` + p + `)[\s[:punct:]]*$`)
		if err != nil {
			return nil, fmt.Errorf("question: compile greeting %q: %w", p, err)
		}
		e.greetings = append(e.greetings, re)
	}
	return e, nil
}

// Default returns an Extractor built from the embedded rules.
func Default() *Extractor {
	e, err := Compile(DefaultRules())
	if err != nil {
		panic(err)
	}
	return e
}
