package profanity

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

//go:embed denylist.txt
var defaultDenylist string

var ErrUnavailable = errors.New("profanity filter unavailable")

const DefaultReplacement = '*'

// Filter detects and redacts denylisted terms. Matching runs word by word over
// normalised runes (lower case, leet folding, punctuation dropped) so "B.4.d"
// style obfuscation still matches while "this hit" does not.
type Filter struct {
	matcher     *goahocorasick.Machine
	replacement rune
	available   bool
	terms       int
}

type textMapping struct {
	normalized []rune
	origIdx    []int
}

// New builds a filter from an explicit term list.
func New(terms []string, replacement rune) (*Filter, error) {
	patterns := make([][]rune, 0, len(terms))
	for _, term := range terms {
		p := normalizeRunes([]rune(term))
		if len(p) == 0 {
			continue
		}
		patterns = append(patterns, p)
	}

	f := &Filter{replacement: replacement, available: true, terms: len(patterns)}
	if len(patterns) == 0 {
		return f, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, fmt.Errorf("build denylist automaton: %w", err)
	}
	f.matcher = m
	return f, nil
}

// Default builds the filter from the embedded denylist.
func Default() (*Filter, error) {
	terms, err := readTerms(strings.NewReader(defaultDenylist))
	if err != nil {
		return nil, err
	}
	return New(terms, DefaultReplacement)
}

// Load builds the filter from a newline separated file; '#' starts a comment.
func Load(path string) (*Filter, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer file.Close()

	terms, err := readTerms(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: denylist %s is empty", ErrUnavailable, path)
	}
	return New(terms, DefaultReplacement)
}

// Disabled returns a filter that reports itself unavailable and matches nothing.
func Disabled() *Filter {
	return &Filter{replacement: DefaultReplacement}
}

// WithReplacement sets the rune Clean writes over matched terms.
func (f *Filter) WithReplacement(r rune) *Filter {
	f.replacement = r
	return f
}

func (f *Filter) Available() bool { return f.available }

func (f *Filter) Terms() int { return f.terms }

// Check reports whether any word of text contains a denylisted term.
func (f *Filter) Check(text string) bool {
	if f.matcher == nil {
		return false
	}
	for _, word := range tokenize(text) {
		if len(f.matcher.MultiPatternSearch(word.normalized, true)) > 0 {
			return true
		}
	}
	return false
}

// Clean replaces every matched term in the original text, keeping spacing.
func (f *Filter) Clean(text string) string {
	if f.matcher == nil {
		return text
	}

	origRunes := []rune(text)
	changed := false
	for _, word := range tokenize(text) {
		for _, span := range f.matcher.MultiPatternSearch(word.normalized, false) {
			normStart := span.Pos
			normEnd := normStart + len(span.Word)
			if normStart < 0 || normEnd > len(word.origIdx) {
				continue
			}

			origStart := word.origIdx[normStart]
			origEnd := word.origIdx[normEnd-1] + 1
			for i := origStart; i < origEnd; i++ {
				origRunes[i] = f.replacement
			}
			changed = true
		}
	}
	if !changed {
		return text
	}
	return string(origRunes)
}

func readTerms(r io.Reader) ([]string, error) {
	var terms []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read denylist: %w", err)
	}
	return terms, nil
}

// tokenize splits input on whitespace and normalises each word on its own, so
// a term never matches across a word boundary. origIdx points back into the
// rune slice of the whole input.
func tokenize(input string) []textMapping {
	var words []textMapping
	var cur textMapping
	flush := func() {
		if len(cur.normalized) > 0 {
			words = append(words, cur)
		}
		cur = textMapping{}
	}

	for i, r := range []rune(input) {
		if unicode.IsSpace(r) {
			flush()
			continue
		}
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		cur.normalized = append(cur.normalized, unicode.ToLower(clean))
		cur.origIdx = append(cur.origIdx, i)
	}
	flush()
	return words
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune folds common leet substitutions back to letters.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
