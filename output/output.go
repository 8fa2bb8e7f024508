// Package output renders query results in the shape the editor plugin
// reads, and writes diagnostics.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/yuchenkan/gcc-jump/gcj"
)

// Writer handles structured output.
type Writer struct {
	encoder *json.Encoder
	compact bool
}

// Config holds output configuration.
type Config struct {
	Compact bool
	Output  io.Writer
}

// New creates a new output Writer.
func New(cfg Config) *Writer {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	enc := json.NewEncoder(cfg.Output)
	enc.SetEscapeHTML(false)
	if !cfg.Compact {
		enc.SetIndent("", "  ")
	}

	return &Writer{
		encoder: enc,
		compact: cfg.Compact,
	}
}

// Write outputs a value as JSON.
func (w *Writer) Write(v any) error {
	return w.encoder.Encode(v)
}

// WriteError writes {"error": msg} to w.
func WriteError(w io.Writer, err error) {
	enc := json.NewEncoder(w)
	_ = enc.Encode(map[string]string{"error": err.Error()})
}

type expandedPosition struct {
	Line  int32 `json:"line"`
	Col   int32 `json:"col"`
	ExpID int32 `json:"expid"`
}

// List renders [linkSetId, [[name, id], ...]].
func List(r *gcj.ListResult) any {
	units := make([][]any, 0, len(r.Units))
	for _, u := range r.Units {
		units = append(units, []any{u.Name, u.ID})
	}
	return []any{r.LinkSet, units}
}

// Select renders [file, {unit, include, point}].
func Select(r *gcj.SelectResult) any {
	return []any{r.File, r.Context}
}

// Expand renders [{line, col}, [[text, id], ...]].
func Expand(r *gcj.ExpandResult) any {
	tokens := make([][]any, 0, len(r.Tokens))
	for _, t := range r.Tokens {
		tokens = append(tokens, []any{t.Text, t.ID})
	}
	return []any{r.Begin, tokens}
}

// Jump renders [file, {unit, include, point}, {line, col, expid}].
func Jump(r gcj.JumpResult) any {
	t := r.Target
	return []any{
		r.File,
		gcj.Address{Unit: t.Unit, Include: t.Include, Point: t.Point},
		expandedPosition{Line: t.Loc.Line, Col: t.Loc.Col, ExpID: t.ExpID},
	}
}

// Refer renders a list of Jump values.
func Refer(rs []gcj.JumpResult) any {
	out := make([]any, 0, len(rs))
	for _, r := range rs {
		out = append(out, Jump(r))
	}
	return out
}

// Diagnostics writes the human-readable side channel. Write errors are
// ignored.
type Diagnostics struct {
	w io.Writer
}

// NewDiagnostics returns a diagnostics channel on w, or on stderr when w
// is nil.
func NewDiagnostics(w io.Writer) *Diagnostics {
	if w == nil {
		w = os.Stderr
	}
	return &Diagnostics{w: w}
}

// None reports a query without result.
func (d *Diagnostics) None() {
	fmt.Fprintln(d.w, "none")
}

// Selected reports the result of select_unit.
func (d *Diagnostics) Selected(r *gcj.SelectResult) {
	fmt.Fprintf(d.w, "selected: %d %s\n", r.Context.Include, r.File)
}

// Tokens reports the tokens of an expansion.
func (d *Diagnostics) Tokens(tokens []gcj.Token) {
	for _, t := range tokens {
		fmt.Fprintf(d.w, "token: %d %s\n", t.ID, t.Text)
	}
}

// JumpTo reports the result of jump.
func (d *Diagnostics) JumpTo(r gcj.JumpResult) {
	fmt.Fprintf(d.w, "jump to: %s\n", formatTarget(r))
}

// ReferredBy reports the results of refer.
func (d *Diagnostics) ReferredBy(rs []gcj.JumpResult) {
	for _, r := range rs {
		fmt.Fprintf(d.w, "referred by: %s\n", formatTarget(r))
	}
}

func formatTarget(r gcj.JumpResult) string {
	t := r.Target
	return fmt.Sprintf("%d %d %d %d %d %s", t.Include, t.Point, t.Loc.Line, t.Loc.Col, t.ExpID, r.File)
}
