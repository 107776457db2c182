package mailmerge

// Sink persists rendered documents. A [Merger] calls Open once, Append once
// per rendered row in row order, and Close once, including when the merge
// fails.
type Sink interface {
	Open() error
	Append(doc string) error
	Close() error
}

// Aborter is implemented by sinks that can discard their output. When a
// merge fails, a [Merger] calls Abort instead of Close.
type Aborter interface {
	Abort() error
}

// DocumentOption configures the HTML document shell written by
// [HTMLSink] and [FileSink].
type DocumentOption func(*documentOptions)

type documentOptions struct {
	title     string
	lang      string
	separator string
}

const (
	defaultTitle     = "Mailing"
	defaultLang      = "fr"
	defaultSeparator = "<hr>\n"
)

func newDocumentOptions(opts []DocumentOption) documentOptions {
	o := documentOptions{title: defaultTitle, lang: defaultLang, separator: defaultSeparator}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithTitle sets the document title. Default: "Mailing".
func WithTitle(title string) DocumentOption {
	return func(o *documentOptions) { o.title = title }
}

// WithLang sets the html lang attribute. Default: "fr".
func WithLang(lang string) DocumentOption {
	return func(o *documentOptions) { o.lang = lang }
}

// WithSeparator sets the text written after each document. Default: "<hr>\n".
func WithSeparator(sep string) DocumentOption {
	return func(o *documentOptions) { o.separator = sep }
}
