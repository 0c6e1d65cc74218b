// Package output provides consistent CLI output formatting with color
// detection for terminals, pipes, and NO_COLOR.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/substratelabs/memcore/internal/memory"
	"github.com/substratelabs/memcore/internal/search"
)

// Writer provides formatted output for the CLI.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates a Writer, choosing colored or plain styles based on the
// destination and NO_COLOR.
func New(out io.Writer) *Writer {
	return &Writer{out: out, styles: stylesFor(out)}
}

// NewPlain creates a Writer that never emits color.
func NewPlain(out io.Writer) *Writer {
	return &Writer{out: out, styles: PlainStyles()}
}

// Success prints a success message.
// Write errors are intentionally ignored for console output.
func (w *Writer) Success(msg string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Success.Render("ok")+" "+msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Warning.Render("warning:")+" "+msg)
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Error.Render("error:")+" "+msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Info prints a plain informational line.
func (w *Writer) Info(msg string) {
	_, _ = fmt.Fprintln(w.out, msg)
}

// Infof prints a formatted informational line.
func (w *Writer) Infof(format string, args ...any) {
	w.Info(fmt.Sprintf(format, args...))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// SearchResults renders a search response for the terminal.
func (w *Writer) SearchResults(query string, resp *search.Response) {
	if len(resp.Results) == 0 {
		w.Infof("no memories found for %q", query)
		return
	}

	header := fmt.Sprintf("%d result", len(resp.Results))
	if len(resp.Results) != 1 {
		header += "s"
	}
	header += fmt.Sprintf(" for %q", query)
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(header))
	_, _ = fmt.Fprintln(w.out, w.styles.Dim.Render(
		fmt.Sprintf("strategy %s, %dms", resp.Strategy, resp.QueryTimeMs)))
	w.Newline()

	for i, r := range resp.Results {
		if r == nil || r.Record == nil {
			continue
		}
		_, _ = fmt.Fprintf(w.out, "%2d. %s %s\n", i+1,
			w.styles.Score.Render(fmt.Sprintf("%.3f", r.Score)),
			firstLine(r.Record.Content))
		_, _ = fmt.Fprintln(w.out, "    "+w.styles.Label.Render(
			fmt.Sprintf("%s  type=%s  importance=%.2f", r.Record.ID, r.Record.Type, r.Record.ImportanceScore)))
	}
}

// Stats renders store statistics as aligned label/value lines.
func (w *Writer) Stats(stats *memory.Stats) {
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render("memory store"))
	w.statLine("records", stats.Records)
	w.statLine("word entries", stats.WordEntries)
	w.statLine("trigram rows", stats.TrigramRows)
	w.statLine("vectors", stats.Vectors)
	if stats.Cache != nil {
		w.Newline()
		_, _ = fmt.Fprintln(w.out, w.styles.Header.Render("query cache"))
		w.statLine("entries", stats.Cache.Size)
		w.statLine("capacity", stats.Cache.Capacity)
		w.statLine("hits", int(stats.Cache.Hits))
		w.statLine("misses", int(stats.Cache.Misses))
		w.statLine("evictions", int(stats.Cache.Evictions))
	}
}

func (w *Writer) statLine(label string, value int) {
	_, _ = fmt.Fprintf(w.out, "  %s %d\n",
		w.styles.Label.Render(fmt.Sprintf("%-14s", label)), value)
}

// firstLine returns content up to the first newline, truncated.
func firstLine(content string) string {
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		content = content[:idx]
	}
	const max = 80
	if len(content) > max {
		content = content[:max-3] + "..."
	}
	return content
}
