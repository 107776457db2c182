package mailmerge_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bjaus/mailmerge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageHead = "<!DOCTYPE html>\n" +
	"<html lang=\"fr\">\n" +
	"<head>\n" +
	"    <meta charset=\"UTF-8\">\n" +
	"    <title>Mailing</title>\n" +
	"</head>\n" +
	"<body>\n"

const pageTail = "</body>\n</html>\n"

// --- HTML ---

func TestHTMLSink(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	sink := mailmerge.NewHTMLSink(&buf)
	require.NoError(t, sink.Open())
	require.NoError(t, sink.Append("<p>one</p>"))
	require.NoError(t, sink.Append("<p>two</p>"))
	require.NoError(t, sink.Close())

	assert.Equal(t, pageHead+"<p>one</p><hr>\n<p>two</p><hr>\n"+pageTail, buf.String())
	assert.Equal(t, 2, sink.Count())
}

func TestHTMLSinkEmpty(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	sink := mailmerge.NewHTMLSink(&buf)
	require.NoError(t, sink.Open())
	require.NoError(t, sink.Close())
	assert.Equal(t, pageHead+pageTail, buf.String())
}

func TestHTMLSinkOptions(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	sink := mailmerge.NewHTMLSink(&buf,
		mailmerge.WithTitle("Q&A <2024>"),
		mailmerge.WithLang("en"),
		mailmerge.WithSeparator("\n"))
	require.NoError(t, sink.Open())
	require.NoError(t, sink.Append("<b>x</b>"))
	require.NoError(t, sink.Close())

	out := buf.String()
	assert.Contains(t, out, `<html lang="en">`)
	assert.Contains(t, out, "<title>Q&amp;A &lt;2024&gt;</title>")
	assert.Contains(t, out, "<body>\n<b>x</b>\n</body>")
}

func TestHTMLSinkState(t *testing.T) {
	t.Parallel()
	sink := mailmerge.NewHTMLSink(&bytes.Buffer{})
	require.ErrorIs(t, sink.Append("x"), mailmerge.ErrSinkState)
	require.ErrorIs(t, sink.Close(), mailmerge.ErrSinkState)

	require.NoError(t, sink.Open())
	require.NoError(t, sink.Close())
	require.ErrorIs(t, sink.Close(), mailmerge.ErrSinkState)
}

func TestHTMLSinkWriteError(t *testing.T) {
	t.Parallel()
	sink := mailmerge.NewHTMLSink(errWriter{})
	require.ErrorIs(t, sink.Open(), errWrite)
}

// --- File ---

func TestFileSink(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "mailing.html")
	sink := mailmerge.NewFileSink(path)
	assert.Equal(t, path, sink.Path())

	require.NoError(t, sink.Open())
	require.NoError(t, sink.Append("<p>a</p>"))
	_, err := os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist, "output must not appear before Close")
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pageHead+"<p>a</p><hr>\n"+pageTail, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestFileSinkAbortKeepsExisting(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "mailing.html")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o600))

	sink := mailmerge.NewFileSink(path)
	require.NoError(t, sink.Open())
	require.NoError(t, sink.Append("<p>partial</p>"))
	require.NoError(t, sink.Abort())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileSinkState(t *testing.T) {
	t.Parallel()
	sink := mailmerge.NewFileSink(filepath.Join(t.TempDir(), "out.html"))
	require.ErrorIs(t, sink.Append("x"), mailmerge.ErrSinkState)
	require.ErrorIs(t, sink.Close(), mailmerge.ErrSinkState)
	require.NoError(t, sink.Abort())
}

func TestFileSinkOpenError(t *testing.T) {
	t.Parallel()
	sink := mailmerge.NewFileSink(filepath.Join(t.TempDir(), "missing", "out.html"))
	require.Error(t, sink.Open())
}

func TestMergeIntoFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "mailing.html")
	tmpl := mailmerge.Parse("<p>Bonjour [---NOM---]</p>")
	src := mailmerge.NewSliceSource([]string{"NOM"}, []string{"Dupont"}, []string{"Martin"})

	_, err := mailmerge.Merge(context.Background(), tmpl, src, mailmerge.NewFileSink(path), mailmerge.WithWorkers(2))
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pageHead+"<p>Bonjour Dupont</p><hr>\n<p>Bonjour Martin</p><hr>\n"+pageTail, string(data))

	// A failing merge leaves the previous output in place.
	bad := mailmerge.NewSliceSource([]string{"NOM", "X"}, []string{"Durand"})
	_, err = mailmerge.Merge(context.Background(), mailmerge.Parse("[---X---]"), bad, mailmerge.NewFileSink(path))
	require.Error(t, err)
	again, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}
