// Package types defines the value types shared by the index and its readers.
package types

import (
	"cmp"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// FileLocation is a 1-based (line, column) position inside one file.
type FileLocation struct {
	Line int32 `json:"line"`
	Col  int32 `json:"col"`
}

// Compare orders locations by line, then column.
func (l FileLocation) Compare(o FileLocation) int {
	if c := cmp.Compare(l.Line, o.Line); c != 0 {
		return c
	}
	return cmp.Compare(l.Col, o.Col)
}

// SourceLocation is a FileLocation inside an interned file.
type SourceLocation struct {
	File int32        `json:"file"`
	Loc  FileLocation `json:"loc"`
}

// Compare orders by file id, then location.
func (l SourceLocation) Compare(o SourceLocation) int {
	if c := cmp.Compare(l.File, o.File); c != 0 {
		return c
	}
	return l.Loc.Compare(o.Loc)
}

// SourceStack is an include chain, innermost file first. The innermost
// entry has location (0,0); every enclosing entry points at the line of
// the #include directive with column 0.
type SourceStack []SourceLocation

// Innermost returns the file id of the file the chain describes.
func (s SourceStack) Innermost() int32 {
	if len(s) == 0 {
		return 0
	}
	return s[0].File
}

// ExpansionPoint is the place, within one include chain, where a macro
// invocation begins.
type ExpansionPoint struct {
	Include int32          `json:"include"`
	Loc     SourceLocation `json:"loc"`
}

// MacroStack is the nesting of macro expansions at a use site, innermost
// macro first.
type MacroStack []ExpansionPoint

// Fingerprint hashes the stack into the key used by expansion records.
// Two tokens produced by the same nesting share a fingerprint.
func (m MacroStack) Fingerprint() int32 {
	h := xxhash.New()
	var buf [16]byte
	for _, p := range m {
		binary.LittleEndian.PutUint32(buf[0:], uint32(p.Include))
		binary.LittleEndian.PutUint32(buf[4:], uint32(p.Loc.File))
		binary.LittleEndian.PutUint32(buf[8:], uint32(p.Loc.Loc.Line))
		binary.LittleEndian.PutUint32(buf[12:], uint32(p.Loc.Loc.Col))
		_, _ = h.Write(buf[:])
	}
	fp := int32(h.Sum64() & 0x7fffffff)
	if fp == 0 {
		fp = 1
	}
	return fp
}

// JumpKey is a lookup key inside a context. A literal token span has
// ExpID 0 and Len set to the token length; a macro-expanded token instance
// has Len 0 and a nonzero ExpID.
type JumpKey struct {
	Loc   FileLocation
	Len   int32
	ExpID int32
}

// Span returns the key of a literal token span.
func Span(loc FileLocation, length int32) JumpKey {
	return JumpKey{Loc: loc, Len: length}
}

// Expanded returns the key of a macro-expanded token instance.
func Expanded(loc FileLocation, expID int32) JumpKey {
	return JumpKey{Loc: loc, ExpID: expID}
}

// Compare orders keys by location, then expansion id. Len is not part of
// a key's identity.
func (k JumpKey) Compare(o JumpKey) int {
	if c := k.Loc.Compare(o.Loc); c != 0 {
		return c
	}
	return cmp.Compare(k.ExpID, o.ExpID)
}

// JumpTarget is what a key resolves to. Point 0 addresses the include-level
// context itself. A nonzero Exp marks the origin of a macro expansion and
// names its expansion record.
type JumpTarget struct {
	Unit    int32
	Include int32
	Point   int32
	Loc     FileLocation
	ExpID   int32
	Exp     int32
}

// Ref is the address of the context the target lives in.
func (t JumpTarget) Ref() ContextRef {
	return ContextRef{Include: t.Include, Point: t.Point}
}

// Compare orders targets field by field.
func (t JumpTarget) Compare(o JumpTarget) int {
	if c := cmp.Compare(t.Unit, o.Unit); c != 0 {
		return c
	}
	if c := cmp.Compare(t.Include, o.Include); c != 0 {
		return c
	}
	if c := cmp.Compare(t.Point, o.Point); c != 0 {
		return c
	}
	if c := t.Loc.Compare(o.Loc); c != 0 {
		return c
	}
	if c := cmp.Compare(t.ExpID, o.ExpID); c != 0 {
		return c
	}
	return cmp.Compare(t.Exp, o.Exp)
}

// ContextRef addresses a context inside one unit: the include-level
// context when Point is 0, otherwise the expansion child for Point.
type ContextRef struct {
	Include int32
	Point   int32
}
