package mailmerge

import (
	"maps"
	"slices"
	"strings"
)

func (t *Template) scan(row map[string]string) (string, error) {
	var sb strings.Builder
	sb.Grow(len(t.text))
	last := 0
	for _, m := range t.scanner.re.FindAllStringSubmatchIndex(t.text, -1) {
		sb.WriteString(t.text[last:m[0]])
		if v, ok := row[t.text[m[2]:m[3]]]; ok {
			sb.WriteString(v)
		} else {
			sb.WriteString(t.text[m[0]:m[1]])
		}
		last = m[1]
	}
	sb.WriteString(t.text[last:])
	return sb.String(), nil
}

// replace makes one pass over the original text. Keys are applied in sorted
// order so the result does not depend on map iteration, and replaced values
// are never matched again.
func (t *Template) replace(row map[string]string) (string, error) {
	if len(row) == 0 {
		return t.text, nil
	}
	keys := slices.Sorted(maps.Keys(row))
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, t.scanner.syntax.Placeholder(k), row[k])
	}
	return strings.NewReplacer(pairs...).Replace(t.text), nil
}

func (t *Template) segment(row map[string]string) (string, error) {
	size := t.literal
	var missing []string
	for _, n := range t.names {
		v, ok := row[n]
		if !ok {
			missing = append(missing, n)
			continue
		}
		size += len(v)
	}
	if len(missing) > 0 {
		return "", newMissingFieldsError(missing)
	}
	var sb strings.Builder
	sb.Grow(size)
	for i, n := range t.names {
		sb.WriteString(t.segments[i])
		sb.WriteString(row[n])
	}
	sb.WriteString(t.segments[len(t.names)])
	return sb.String(), nil
}

// Bound is a template bound to a declared field ordering. It renders rows
// given as ordered values, dereferencing each occurrence by position.
type Bound struct {
	tmpl   *Template
	fields *FieldBinding
}

// Bind resolves the template's placeholders against declared. It fails with
// a *MissingFieldsError when a placeholder has no declared field.
func (t *Template) Bind(declared []string) (*Bound, error) {
	fb, err := Resolve(t.names, declared)
	if err != nil {
		return nil, err
	}
	return &Bound{tmpl: t, fields: fb}, nil
}

// Template returns the bound template.
func (b *Bound) Template() *Template { return b.tmpl }

// Binding returns the occurrence-to-position mapping.
func (b *Bound) Binding() *FieldBinding { return b.fields }

// Render fills the template from values. Values beyond the referenced
// positions are ignored.
func (b *Bound) Render(values []string) (string, error) {
	if err := b.fields.check(values); err != nil {
		return "", err
	}
	size := b.tmpl.literal
	for _, p := range b.fields.positions {
		size += len(values[p])
	}
	var sb strings.Builder
	sb.Grow(size)
	for i, p := range b.fields.positions {
		sb.WriteString(b.tmpl.segments[i])
		sb.WriteString(values[p])
	}
	sb.WriteString(b.tmpl.segments[len(b.fields.positions)])
	return sb.String(), nil
}

// Append appends the filled template to dst and returns the extended
// buffer. Callers that render many rows can reuse dst between calls.
func (b *Bound) Append(dst []byte, values []string) ([]byte, error) {
	if err := b.fields.check(values); err != nil {
		return dst, err
	}
	for i, p := range b.fields.positions {
		dst = append(dst, b.tmpl.segments[i]...)
		dst = append(dst, values[p]...)
	}
	return append(dst, b.tmpl.segments[len(b.fields.positions)]...), nil
}
