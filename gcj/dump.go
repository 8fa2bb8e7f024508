package gcj

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yuchenkan/gcc-jump/types"
)

// dumper writes the indented text form of a unit and keeps the first
// write error.
type dumper struct {
	w    io.Writer
	unit *Unit
	err  error
}

func (d *dumper) line(indent int, format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, "%s%s\n", strings.Repeat("  ", indent), fmt.Sprintf(format, args...))
}

// Dump writes an indented human-readable form of u to w.
func (u *Unit) Dump(w io.Writer, indent int) error {
	d := &dumper{w: w, unit: u}

	for id := int32(1); id <= u.Includes.Size(); id++ {
		stack, _ := u.Includes.At(id)
		d.line(indent, "include %d:", id)
		for _, l := range stack {
			d.line(indent+1, "from %s:%d,%d", u.FileName(l.File), l.Loc.Line, l.Loc.Col)
		}
	}

	for _, id := range u.IncludeIDs() {
		d.line(indent, "context %d:", id)
		d.context(indent+1, u.contexts[id])
	}

	for _, fid := range sortedKeys(u.FileIncludes) {
		ids := sortedIDs(u.FileIncludes[fid])
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.Itoa(int(id))
		}
		d.line(indent, "file %s %d: %s", u.FileName(fid), fid, strings.Join(parts, " "))
	}

	if len(u.PubDecls) > 0 {
		d.line(indent, "public declarations:")
		for _, name := range sortedNames(u.PubDecls) {
			d.line(indent+1, "name: %s", name)
			for _, decl := range u.PubDecls[name] {
				d.line(indent+2, "include: %d, %s", decl.Include, formatKey(decl.Key))
			}
		}
	}
	if len(u.PubDefs) > 0 {
		d.line(indent, "public definitions:")
		for _, name := range sortedNames(u.PubDefs) {
			def := u.PubDefs[name]
			d.line(indent+1, "name: %s, %s, weak: %t, init: %t", name, formatTarget(def.Target), def.Weak, def.Init)
		}
	}
	return d.err
}

func (d *dumper) context(indent int, ctx *Context) {
	d.line(indent, "jumps:")
	ctx.Jumps(func(key types.JumpKey, target types.JumpTarget) bool {
		d.line(indent+1, "%s => %s", formatKey(key), formatTarget(target))
		if x := d.unit.Expansion(target.Exp); x != nil {
			var b strings.Builder
			for _, t := range x.Tokens() {
				fmt.Fprintf(&b, " %d %s", t.ID, strconv.Quote(t.Text))
			}
			d.line(indent+2, "expanded tokens:%s", b.String())
		}
		return d.err == nil
	})

	d.line(indent, "backs:")
	ctx.Backs(func(key types.JumpKey, targets []types.JumpTarget) bool {
		d.line(indent+1, "%s", formatKey(key))
		for _, t := range targets {
			d.line(indent+2, "<= %s", formatTarget(t))
		}
		return d.err == nil
	})

	for _, point := range ctx.ExpansionPoints() {
		d.line(indent, "expansion context %d:", point)
		d.context(indent+1, ctx.Expansion(point))
	}
}

func formatKey(k types.JumpKey) string {
	if k.ExpID != 0 {
		return fmt.Sprintf("line,col: %d,%d exp:%d", k.Loc.Line, k.Loc.Col, k.ExpID)
	}
	return fmt.Sprintf("line,col: %d,%d len:%d", k.Loc.Line, k.Loc.Col, k.Len)
}

func formatTarget(t types.JumpTarget) string {
	var b strings.Builder
	fmt.Fprintf(&b, "unit: %d ", t.Unit)
	if t.Point != 0 {
		fmt.Fprintf(&b, "expansion context: %d.%d", t.Include, t.Point)
	} else {
		fmt.Fprintf(&b, "context: %d", t.Include)
	}
	fmt.Fprintf(&b, " line,col: %d,%d", t.Loc.Line, t.Loc.Col)
	if t.ExpID != 0 {
		fmt.Fprintf(&b, " exp: %d", t.ExpID)
	}
	if t.Exp != 0 {
		fmt.Fprintf(&b, " expansion: %d", t.Exp)
	}
	return b.String()
}
