package mailmerge

import (
	"fmt"
	"html"
	"io"
)

// HTMLSink writes all documents into a single HTML5 page on w. Documents are
// written as is; only the title and lang attribute are escaped.
type HTMLSink struct {
	w     io.Writer
	opts  documentOptions
	open  bool
	count int
}

// NewHTMLSink returns a sink writing to w.
func NewHTMLSink(w io.Writer, opts ...DocumentOption) *HTMLSink {
	return &HTMLSink{w: w, opts: newDocumentOptions(opts)}
}

// Open writes the document head.
func (s *HTMLSink) Open() error {
	if _, err := fmt.Fprintln(s.w, "<!DOCTYPE html>"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "<html lang=\"%s\">\n", html.EscapeString(s.opts.lang)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(s.w, "<head>"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(s.w, `    <meta charset="UTF-8">`); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "    <title>%s</title>\n", html.EscapeString(s.opts.title)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(s.w, "</head>"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(s.w, "<body>"); err != nil {
		return err
	}
	s.open = true
	return nil
}

// Append writes doc followed by the separator.
func (s *HTMLSink) Append(doc string) error {
	if !s.open {
		return ErrSinkState
	}
	if _, err := io.WriteString(s.w, doc); err != nil {
		return err
	}
	if _, err := io.WriteString(s.w, s.opts.separator); err != nil {
		return err
	}
	s.count++
	return nil
}

// Close writes the closing tags. Closing a sink that is not open is an
// error.
func (s *HTMLSink) Close() error {
	if !s.open {
		return ErrSinkState
	}
	s.open = false
	if _, err := fmt.Fprintln(s.w, "</body>"); err != nil {
		return err
	}
	_, err := fmt.Fprintln(s.w, "</html>")
	return err
}

// Count returns the number of documents appended.
func (s *HTMLSink) Count() int { return s.count }
