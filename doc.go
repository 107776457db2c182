// Package mailmerge fills an HTML template once per data row and writes all
// filled documents into a single HTML page.
//
// A template is plain text with named placeholders written [---NAME---].
// There are no conditionals, loops or escaping: a placeholder is replaced by
// its row value verbatim and replaced values are never scanned again.
//
// # Parsing
//
// [Parse] splits a template into literal segments and placeholder
// occurrences once. The resulting [Template] is immutable and can be shared
// between goroutines:
//
//	tmpl := mailmerge.Parse("Hello [---NAME---], today is [---DAY---].")
//	tmpl.Names() // ["NAME", "DAY"]
//
// Use [NewScanner] for other markers.
//
// # Strategies
//
// A [Strategy] selects how a template is filled from a name-keyed row:
//
//   - [ScanSubstitute]: rescans the text per call; unknown names stay as written
//   - [LiteralReplace]: one literal substitution pass; unknown names stay as written
//   - [Segmented]: joins the pre-split segments; unknown names are an error
//
// All three produce the same document for a row that has every name:
//
//	doc, err := tmpl.Render(mailmerge.Segmented, map[string]string{"NAME": "Alice", "DAY": "Monday"})
//
// For rows given as ordered values, [Template.Bind] resolves each
// placeholder to a column position once, and [Bound.Render] indexes the
// values directly.
//
// # Merging
//
// A [Merger] reads rows from a [Source], renders them and appends the
// documents to a [Sink] in source order, optionally rendering on several
// goroutines:
//
//	src, err := mailmerge.OpenExcel("data.xlsx", mailmerge.WithReserved(mailmerge.DefaultReserved...))
//	sink := mailmerge.NewFileSink("mailing.html")
//	rep, err := mailmerge.Merge(ctx, tmpl, src, sink, mailmerge.WithWorkers(4))
//
// Built-in sources read xlsx workbooks ([ExcelSource]), delimited text
// ([CSVSource]), SQL query results ([SQLSource]) and in-memory rows
// ([SliceSource], [ChanSource]). [HTMLSink] writes the page to any
// io.Writer; [FileSink] replaces the output file atomically on success.
//
// # Errors
//
// The package exports sentinel errors for programmatic handling:
//
//   - [ErrMissingFields]: a placeholder has no field or row value ([MissingFieldsError])
//   - [ErrValueCount]: an ordered row is too short ([ValueCountMismatchError])
//   - [ErrUnsupportedStrategy], [ErrUnsupportedPolicy], [ErrUnsupportedFormat]: unknown names
//   - [ErrHeader], [ErrEmptySource]: unusable source data
//
// A row that fails to render is wrapped in a [RowError]. The [ErrorPolicy]
// of the merger decides whether it aborts the merge or is skipped.
package mailmerge
