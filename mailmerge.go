package mailmerge

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
var (
	ErrUnsupportedStrategy = errors.New("unsupported strategy")
	ErrUnsupportedPolicy   = errors.New("unsupported error policy")
	ErrUnsupportedFormat   = errors.New("unsupported format")
	ErrInvalidSyntax       = errors.New("invalid placeholder syntax")
	ErrInvalidConfig       = errors.New("invalid config")
	ErrMissingFields       = errors.New("missing fields")
	ErrValueCount          = errors.New("value count mismatch")
	ErrHeader              = errors.New("invalid header")
	ErrEmptySource         = errors.New("empty source")
	ErrSinkState           = errors.New("sink not open")
)

// Strategy selects how a template is filled from a row.
type Strategy string

const (
	// ScanSubstitute rescans the template text on every call and replaces
	// each placeholder whose name is in the row. Unknown names are left as
	// written.
	ScanSubstitute Strategy = "scan"

	// LiteralReplace substitutes the literal placeholder text of every row
	// entry in the original template text. Unknown names are left as
	// written.
	LiteralReplace Strategy = "replace"

	// Segmented writes the pre-split segments and values in order. A row
	// missing a placeholder name is an error.
	Segmented Strategy = "segment"
)

var strategies = []Strategy{ScanSubstitute, LiteralReplace, Segmented}

// String returns the strategy name.
func (s Strategy) String() string { return string(s) }

// Strategies returns all supported strategies.
func Strategies() []Strategy {
	out := make([]Strategy, len(strategies))
	copy(out, strategies)
	return out
}

// ParseStrategy parses a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	for _, st := range strategies {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedStrategy, s)
}

// ErrorPolicy decides what a [Merger] does with a row that fails to render.
type ErrorPolicy string

const (
	// Abort stops the merge at the first failing row.
	Abort ErrorPolicy = "abort"
	// Skip logs the failing row, records it in the report and continues.
	Skip ErrorPolicy = "skip"
)

// String returns the policy name.
func (p ErrorPolicy) String() string { return string(p) }

// ParseErrorPolicy parses an error policy name.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(s) {
	case Abort, Skip:
		return ErrorPolicy(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPolicy, s)
	}
}

// Renderer fills a template from a name-keyed row.
type Renderer interface {
	Render(row map[string]string) (string, error)
}

// RendererFunc adapts a function to [Renderer].
type RendererFunc func(row map[string]string) (string, error)

// Render calls f(row).
func (f RendererFunc) Render(row map[string]string) (string, error) { return f(row) }

// Renderer returns the renderer for strategy s. All strategies produce the
// same output for a row that has every placeholder name; they differ in how
// absent names are handled.
func (t *Template) Renderer(s Strategy) (Renderer, error) {
	switch s {
	case ScanSubstitute:
		return RendererFunc(t.scan), nil
	case LiteralReplace:
		return RendererFunc(t.replace), nil
	case Segmented:
		return RendererFunc(t.segment), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedStrategy, s)
	}
}

// Render fills the template from row using strategy s.
func (t *Template) Render(s Strategy, row map[string]string) (string, error) {
	r, err := t.Renderer(s)
	if err != nil {
		return "", err
	}
	return r.Render(row)
}
