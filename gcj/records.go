package gcj

import (
	"encoding/binary"
	"strconv"

	"github.com/yuchenkan/gcc-jump/codec"
	"github.com/yuchenkan/gcc-jump/types"
)

func encodeFileLocation(e *codec.Encoder, l types.FileLocation) {
	e.Int32(l.Line)
	e.Int32(l.Col)
}

func decodeFileLocation(d *codec.Decoder) types.FileLocation {
	line := d.Int32()
	col := d.Int32()
	return types.FileLocation{Line: line, Col: col}
}

func encodeSourceLocation(e *codec.Encoder, l types.SourceLocation) {
	e.Int32(l.File)
	encodeFileLocation(e, l.Loc)
}

func decodeSourceLocation(d *codec.Decoder) types.SourceLocation {
	file := d.Int32()
	return types.SourceLocation{File: file, Loc: decodeFileLocation(d)}
}

func encodeJumpKey(e *codec.Encoder, k types.JumpKey) {
	encodeFileLocation(e, k.Loc)
	e.Int32(k.Len)
	e.Int32(k.ExpID)
}

func decodeJumpKey(d *codec.Decoder) types.JumpKey {
	loc := decodeFileLocation(d)
	length := d.Int32()
	return types.JumpKey{Loc: loc, Len: length, ExpID: d.Int32()}
}

func encodeJumpTarget(e *codec.Encoder, t types.JumpTarget) {
	e.Int32(t.Unit)
	e.Int32(t.Include)
	e.Int32(t.Point)
	encodeFileLocation(e, t.Loc)
	e.Int32(t.ExpID)
	e.Int32(t.Exp)
}

func decodeJumpTarget(d *codec.Decoder) types.JumpTarget {
	var t types.JumpTarget
	t.Unit = d.Int32()
	t.Include = d.Int32()
	t.Point = d.Int32()
	t.Loc = decodeFileLocation(d)
	t.ExpID = d.Int32()
	t.Exp = d.Int32()
	return t
}

func appendInt32(b []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(b, uint32(v))
}

var stringKeys = KeyCodec[string]{
	Key:    func(s string) string { return s },
	Encode: func(e *codec.Encoder, s string) { e.String(s) },
	Decode: func(d *codec.Decoder) string { return d.String() },
}

var int32Keys = KeyCodec[int32]{
	Key:    func(v int32) string { return strconv.FormatInt(int64(v), 10) },
	Encode: func(e *codec.Encoder, v int32) { e.Int32(v) },
	Decode: func(d *codec.Decoder) int32 { return d.Int32() },
}

var stackKeys = KeyCodec[types.SourceStack]{
	Key: func(s types.SourceStack) string {
		b := make([]byte, 0, len(s)*12)
		for _, l := range s {
			b = appendInt32(b, l.File)
			b = appendInt32(b, l.Loc.Line)
			b = appendInt32(b, l.Loc.Col)
		}
		return string(b)
	},
	Encode: func(e *codec.Encoder, s types.SourceStack) {
		e.Len(len(s))
		for _, l := range s {
			encodeSourceLocation(e, l)
		}
	},
	Decode: func(d *codec.Decoder) types.SourceStack {
		n := d.Len()
		s := make(types.SourceStack, 0, min(n, 64))
		for i := 0; i < n && d.Err() == nil; i++ {
			s = append(s, decodeSourceLocation(d))
		}
		return s
	},
}

var pointKeys = KeyCodec[types.ExpansionPoint]{
	Key: func(p types.ExpansionPoint) string {
		b := make([]byte, 0, 16)
		b = appendInt32(b, p.Include)
		b = appendInt32(b, p.Loc.File)
		b = appendInt32(b, p.Loc.Loc.Line)
		b = appendInt32(b, p.Loc.Loc.Col)
		return string(b)
	},
	Encode: func(e *codec.Encoder, p types.ExpansionPoint) {
		e.Int32(p.Include)
		encodeSourceLocation(e, p.Loc)
	},
	Decode: func(d *codec.Decoder) types.ExpansionPoint {
		include := d.Int32()
		return types.ExpansionPoint{Include: include, Loc: decodeSourceLocation(d)}
	},
}

// encodeIDSet writes a count followed by ids in ascending order.
func encodeIDSet(e *codec.Encoder, ids map[int32]struct{}) {
	sorted := sortedIDs(ids)
	e.Len(len(sorted))
	for _, id := range sorted {
		e.Int32(id)
	}
}

func decodeIDSet(d *codec.Decoder) map[int32]struct{} {
	n := d.Len()
	ids := make(map[int32]struct{}, min(n, 1024))
	for i := 0; i < n && d.Err() == nil; i++ {
		ids[d.Int32()] = struct{}{}
	}
	return ids
}
