package mailmerge

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Syntax holds the literal markers that delimit a placeholder name.
type Syntax struct {
	Open  string `json:"open" yaml:"open" toml:"open"`
	Close string `json:"close" yaml:"close" toml:"close"`
}

// DefaultSyntax is the [---NAME---] placeholder form.
var DefaultSyntax = Syntax{Open: "[---", Close: "---]"}

// Placeholder returns the literal placeholder text for name.
func (s Syntax) Placeholder(name string) string {
	return s.Open + name + s.Close
}

// Scanner locates placeholders in template text. The matcher is compiled
// once by [NewScanner]; a Scanner is safe for concurrent use.
type Scanner struct {
	syntax Syntax
	re     *regexp.Regexp
}

var defaultScanner = mustScanner(DefaultSyntax)

// NewScanner returns a Scanner for the given markers. Both markers must be
// non-empty.
func NewScanner(s Syntax) (*Scanner, error) {
	if s.Open == "" || s.Close == "" {
		return nil, fmt.Errorf("%w: open and close markers must be non-empty", ErrInvalidSyntax)
	}
	re, err := regexp.Compile(regexp.QuoteMeta(s.Open) + `(.*?)` + regexp.QuoteMeta(s.Close))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSyntax, err)
	}
	return &Scanner{syntax: s, re: re}, nil
}

func mustScanner(s Syntax) *Scanner {
	sc, err := NewScanner(s)
	if err != nil {
		panic(err)
	}
	return sc
}

// Syntax returns the markers the scanner matches.
func (s *Scanner) Syntax() Syntax { return s.syntax }

// Parse splits text into literal segments and placeholder occurrences.
// Matches are non-overlapping and non-greedy, taken left to right. Names are
// kept verbatim. An open marker without a matching close marker is left in
// the literal text.
func (s *Scanner) Parse(text string) *Template {
	matches := s.re.FindAllStringSubmatchIndex(text, -1)
	t := &Template{
		scanner:  s,
		text:     text,
		segments: make([]string, 0, len(matches)+1),
		names:    make([]string, 0, len(matches)),
	}
	last := 0
	for _, m := range matches {
		t.segments = append(t.segments, text[last:m[0]])
		t.names = append(t.names, text[m[2]:m[3]])
		last = m[1]
	}
	t.segments = append(t.segments, text[last:])
	for _, seg := range t.segments {
		t.literal += len(seg)
	}
	return t
}

// ParseFile reads and parses the template at path.
func (s *Scanner) ParseFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return s.Parse(string(data)), nil
}

// Parse parses text with [DefaultSyntax].
func Parse(text string) *Template {
	return defaultScanner.Parse(text)
}

// ParseFile reads and parses the template at path with [DefaultSyntax].
func ParseFile(path string) (*Template, error) {
	return defaultScanner.ParseFile(path)
}

// Template is a parsed template: len(Names()) placeholder occurrences
// interleaved with len(Names())+1 literal segments. It is never modified
// after parsing and may be shared between goroutines.
type Template struct {
	scanner  *Scanner
	text     string
	segments []string
	names    []string
	literal  int
}

// Source returns the text the template was parsed from.
func (t *Template) Source() string { return t.text }

// Syntax returns the markers used to parse the template.
func (t *Template) Syntax() Syntax { return t.scanner.syntax }

// Len returns the number of placeholder occurrences.
func (t *Template) Len() int { return len(t.names) }

// Segments returns a copy of the literal segments.
func (t *Template) Segments() []string {
	out := make([]string, len(t.segments))
	copy(out, t.segments)
	return out
}

// Names returns a copy of the placeholder names in template order, repeats
// included.
func (t *Template) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Fields returns the distinct placeholder names in order of first
// appearance.
func (t *Template) Fields() []string {
	seen := make(map[string]struct{}, len(t.names))
	var out []string
	for _, n := range t.names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// String rebuilds the template text from its segments and placeholders.
// The result always equals [Template.Source].
func (t *Template) String() string {
	var sb strings.Builder
	sb.Grow(len(t.text))
	for i, n := range t.names {
		sb.WriteString(t.segments[i])
		sb.WriteString(t.scanner.syntax.Placeholder(n))
	}
	sb.WriteString(t.segments[len(t.names)])
	return sb.String()
}
