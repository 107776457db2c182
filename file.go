package mailmerge

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// FileSink writes the HTML page to a temporary file next to path and moves
// it into place on Close. Abort removes the temporary file and leaves any
// existing file at path untouched.
type FileSink struct {
	path string
	opts []DocumentOption
	tmp  *os.File
	buf  *bufio.Writer
	html *HTMLSink
}

// NewFileSink returns a sink for the output file at path.
func NewFileSink(path string, opts ...DocumentOption) *FileSink {
	return &FileSink{path: path, opts: opts}
}

// Path returns the destination path.
func (s *FileSink) Path() string { return s.path }

// Open creates the temporary file and writes the document head.
func (s *FileSink) Open() error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	s.tmp = tmp
	s.buf = bufio.NewWriter(tmp)
	s.html = NewHTMLSink(s.buf, s.opts...)
	if err := s.html.Open(); err != nil {
		return errors.Join(fmt.Errorf("write output: %w", err), s.discard())
	}
	return nil
}

// Append implements [Sink].
func (s *FileSink) Append(doc string) error {
	if s.html == nil {
		return ErrSinkState
	}
	if err := s.html.Append(doc); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// Close writes the closing tags, flushes, and replaces the file at path.
func (s *FileSink) Close() error {
	if s.tmp == nil {
		return ErrSinkState
	}
	if err := s.html.Close(); err != nil {
		return errors.Join(fmt.Errorf("write output: %w", err), s.discard())
	}
	if err := s.buf.Flush(); err != nil {
		return errors.Join(fmt.Errorf("flush output: %w", err), s.discard())
	}
	if err := s.tmp.Chmod(0o644); err != nil {
		return errors.Join(fmt.Errorf("chmod output: %w", err), s.discard())
	}
	name := s.tmp.Name()
	if err := s.tmp.Close(); err != nil {
		return errors.Join(fmt.Errorf("close output: %w", err), s.discard())
	}
	s.tmp = nil
	if err := atomic.ReplaceFile(name, s.path); err != nil {
		return errors.Join(fmt.Errorf("replace %s: %w", s.path, err), os.Remove(name))
	}
	return nil
}

// Abort implements [Aborter].
func (s *FileSink) Abort() error {
	if s.tmp == nil {
		return nil
	}
	return s.discard()
}

func (s *FileSink) discard() error {
	if s.tmp == nil {
		return nil
	}
	name := s.tmp.Name()
	closeErr := s.tmp.Close()
	s.tmp = nil
	if errors.Is(closeErr, os.ErrClosed) {
		closeErr = nil
	}
	return errors.Join(closeErr, os.Remove(name))
}
