// Package output formats CLI output: status lines and search results.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/routenav/internal/search"
	"github.com/Aman-CERP/routenav/internal/ui"
)

// Writer writes formatted output. Write errors are ignored; this is
// console output.
type Writer struct {
	out    io.Writer
	styles ui.Styles
}

// New creates a Writer. Color is enabled only for terminals without
// NO_COLOR.
func New(out io.Writer) *Writer {
	return NewWithColor(out, colorable(out))
}

// NewWithColor creates a Writer with color forced on or off.
func NewWithColor(out io.Writer, color bool) *Writer {
	return &Writer{out: out, styles: ui.GetStyles(!color)}
}

func colorable(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || ui.DetectNoColor() {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}

// Status prints msg behind icon, or indented when icon is empty.
func (w *Writer) Status(icon, msg string) {
	if icon == "" {
		_, _ = fmt.Fprintf(w.out, "  %s\n", msg)
		return
	}
	_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
}

// Statusf is Status with formatting.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success line.
func (w *Writer) Success(msg string) {
	w.Status(w.styles.Success.Render("✓"), msg)
}

// Successf is Success with formatting.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning line.
func (w *Writer) Warning(msg string) {
	w.Status(w.styles.Warning.Render("!"), msg)
}

// Warningf is Warning with formatting.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error line.
func (w *Writer) Error(msg string) {
	w.Status(w.styles.Error.Render("✗"), msg)
}

// Errorf is Error with formatting.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Results prints one entry per result: the label and description on the
// first line, the detail indented below.
func (w *Writer) Results(query string, results []search.Result) {
	if len(results) == 0 {
		_, _ = fmt.Fprintf(w.out, "No matches for %q\n", query)
		return
	}
	for _, r := range results {
		_, _ = fmt.Fprintf(w.out, "%s %s  %s\n",
			w.styles.Dim.Render(kindTag(r.Kind)),
			w.styles.Active.Render(r.Label),
			w.styles.Label.Render(r.Description))
		if r.Detail != "" {
			_, _ = fmt.Fprintf(w.out, "       %s\n", w.styles.Dim.Render(r.Detail))
		}
	}
}

// JSON writes v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func kindTag(k search.Kind) string {
	if k == search.KindRoute {
		return "route"
	}
	return "file "
}
