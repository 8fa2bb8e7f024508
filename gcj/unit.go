package gcj

import (
	"path/filepath"
	"slices"

	"github.com/yuchenkan/gcc-jump/codec"
	"github.com/yuchenkan/gcc-jump/types"
)

// Declaration is an externally visible declaration: the key that should
// jump to the symbol's definition once the unit is linked.
type Declaration struct {
	Include int32
	Key     types.JumpKey
}

// Definition is an externally visible definition.
type Definition struct {
	Target types.JumpTarget
	Weak   bool
	// Init marks a definition with an initializer. An initialized
	// definition is never displaced by a later strong one at link time.
	Init bool
}

// Unit is the index of one translation unit.
type Unit struct {
	// ID is the unit-name id in the repository. It is not persisted in the
	// unit file; readers set it from the file's name.
	ID int32

	Input        string
	InputInclude int32

	contexts   map[int32]*Context
	expansions []*Expansion

	Files    *Interner[string]
	Includes *Interner[types.SourceStack]
	Points   *Interner[types.ExpansionPoint]

	// FileIncludes maps a file id to every include id whose innermost
	// file it is.
	FileIncludes map[int32]map[int32]struct{}

	PubDecls map[string][]Declaration
	PubDefs  map[string]Definition
}

// NewUnit returns an empty unit.
func NewUnit(id int32, input string) *Unit {
	return &Unit{
		ID:           id,
		Input:        input,
		contexts:     make(map[int32]*Context),
		Files:        NewInterner(stringKeys),
		Includes:     NewInterner(stackKeys),
		Points:       NewInterner(pointKeys),
		FileIncludes: make(map[int32]map[int32]struct{}),
		PubDecls:     make(map[string][]Declaration),
		PubDefs:      make(map[string]Definition),
	}
}

// CanonicalPath returns the absolute, symlink-free form of path, and
// whether the file could be resolved.
func CanonicalPath(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, false
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return path, false
	}
	return resolved, true
}

// FileID interns the canonical form of path. A file that cannot be
// resolved is interned under the path as given.
func (u *Unit) FileID(path string) int32 {
	canonical, _ := CanonicalPath(path)
	return u.Files.Get(canonical)
}

// FileName returns the path interned under fid, or "".
func (u *Unit) FileName(fid int32) string {
	name, err := u.Files.At(fid)
	if err != nil {
		return ""
	}
	return name
}

// InternInclude interns an include chain. The first single-file chain
// naming the unit's input becomes InputInclude.
func (u *Unit) InternInclude(stack types.SourceStack) int32 {
	if len(stack) == 0 {
		return 0
	}
	id := u.Includes.Get(stack)

	fid := stack.Innermost()
	includes, ok := u.FileIncludes[fid]
	if !ok {
		includes = make(map[int32]struct{})
		u.FileIncludes[fid] = includes
	}
	includes[id] = struct{}{}

	if u.InputInclude == 0 && len(stack) == 1 && fid == u.FileID(u.Input) {
		u.InputInclude = id
	}
	return id
}

// InternPoint interns a macro invocation point.
func (u *Unit) InternPoint(point types.ExpansionPoint) int32 {
	return u.Points.Get(point)
}

// Context returns the context addressed by (include, point), creating it
// and its include-level parent on demand.
func (u *Unit) Context(include, point int32) *Context {
	ctx, ok := u.contexts[include]
	if !ok {
		ctx = NewContext()
		u.contexts[include] = ctx
	}
	if point == 0 {
		return ctx
	}
	return ctx.expansion(include, point)
}

// ContextAt returns the context addressed by ref, or nil.
func (u *Unit) ContextAt(ref types.ContextRef) *Context {
	ctx := u.contexts[ref.Include]
	if ctx == nil || ref.Point == 0 {
		return ctx
	}
	return ctx.Expansion(ref.Point)
}

// IncludeIDs returns the ids of all include-level contexts in ascending
// order.
func (u *Unit) IncludeIDs() []int32 {
	return sortedKeys(u.contexts)
}

// Lookup resolves (loc, expID) starting at the context addressed by ref
// and falling back through surrounding contexts. It returns the target
// and the start of the matched key.
func (u *Unit) Lookup(ref types.ContextRef, loc types.FileLocation, expID int32) (types.JumpTarget, types.FileLocation, bool) {
	ctx := u.ContextAt(ref)
	for hops := 0; ctx != nil && hops <= len(u.contexts); hops++ {
		if target, begin, ok := ctx.Lookup(loc, expID); ok {
			return target, begin, true
		}
		if ctx.surrounding == 0 {
			break
		}
		ctx = u.contexts[ctx.surrounding]
	}
	return types.JumpTarget{}, types.FileLocation{}, false
}

// AddJump records key→target in the context addressed by ref. When the
// target lies in this unit the reverse edge is recorded too.
func (u *Unit) AddJump(ref types.ContextRef, key types.JumpKey, target types.JumpTarget) error {
	if err := u.Context(ref.Include, ref.Point).Add(key, target); err != nil {
		return err
	}
	if target.Unit == u.ID {
		u.addBack(target, u.ID, ref, key)
	}
	return nil
}

// addBack records that key, in the context ref of unit from, refers to
// target, which must lie in u.
func (u *Unit) addBack(target types.JumpTarget, from int32, ref types.ContextRef, key types.JumpKey) {
	if target.Include == 0 {
		return
	}
	backKey := types.Span(target.Loc, key.Len)
	if target.ExpID != 0 {
		backKey = types.Expanded(target.Loc, target.ExpID)
	}
	u.Context(target.Include, target.Point).Back(backKey, types.JumpTarget{
		Unit:    from,
		Include: ref.Include,
		Point:   ref.Point,
		Loc:     key.Loc,
		ExpID:   key.ExpID,
	})
}

// AddBackReference is called when key in referrer turns out to forward to
// target, which lies in u. Every known referrer of key gets a back-edge
// from target, so references made through a declaration surface at the
// definition.
func (u *Unit) AddBackReference(referrer *Context, key types.JumpKey, target types.JumpTarget) {
	if referrer == nil {
		return
	}
	for _, r := range referrer.JumpBack(key.Loc, key.ExpID) {
		u.addBack(target, r.Unit, r.Ref(), types.JumpKey{Loc: r.Loc, Len: key.Len, ExpID: r.ExpID})
	}
}

// DeclarePublic records an externally visible declaration.
func (u *Unit) DeclarePublic(name string, include int32, key types.JumpKey) {
	u.PubDecls[name] = append(u.PubDecls[name], Declaration{Include: include, Key: key})
}

// DefinePublic records an externally visible definition. A weak
// definition yields to a later strong one; otherwise the first stays.
func (u *Unit) DefinePublic(name string, def Definition) {
	defineSymbol(u.PubDefs, name, def)
}

func defineSymbol(defs map[string]Definition, name string, def Definition) {
	old, ok := defs[name]
	if !ok || (old.Weak && !def.Weak) {
		defs[name] = def
	}
}

// NewExpansion allocates the expansion record of one macro invocation.
func (u *Unit) NewExpansion() int32 {
	u.expansions = append(u.expansions, newExpansion())
	return int32(len(u.expansions))
}

// Expansion returns the expansion record id, or nil.
func (u *Unit) Expansion(id int32) *Expansion {
	if id <= 0 || int(id) > len(u.expansions) {
		return nil
	}
	return u.expansions[id-1]
}

// ExpansionCount returns the number of expansion records.
func (u *Unit) ExpansionCount() int {
	return len(u.expansions)
}

// Encode writes the unit file layout.
func (u *Unit) Encode(e *codec.Encoder) {
	e.String(u.Input)
	e.Int32(u.InputInclude)

	includes := u.IncludeIDs()
	e.Len(len(includes))
	for _, id := range includes {
		e.Int32(id)
		e.Record(u.contexts[id])
	}

	e.Len(len(u.expansions))
	for _, x := range u.expansions {
		e.Record(x)
	}

	e.Record(u.Files)
	e.Record(u.Includes)
	e.Record(u.Points)

	fids := sortedKeys(u.FileIncludes)
	e.Len(len(fids))
	for _, fid := range fids {
		e.Int32(fid)
		encodeIDSet(e, u.FileIncludes[fid])
	}

	names := sortedNames(u.PubDecls)
	e.Len(len(names))
	for _, name := range names {
		e.String(name)
		decls := u.PubDecls[name]
		e.Len(len(decls))
		for _, d := range decls {
			e.Int32(d.Include)
			encodeJumpKey(e, d.Key)
		}
	}

	names = sortedNames(u.PubDefs)
	e.Len(len(names))
	for _, name := range names {
		def := u.PubDefs[name]
		e.String(name)
		encodeJumpTarget(e, def.Target)
		e.Bool(def.Weak)
		e.Bool(def.Init)
	}
}

// Decode reads a unit written by Encode into an empty unit.
func (u *Unit) Decode(d *codec.Decoder) {
	u.Input = d.String()
	u.InputInclude = d.Int32()

	n := d.Len()
	for i := 0; i < n && d.Err() == nil; i++ {
		id := d.Int32()
		ctx := NewContext()
		d.Record(ctx)
		u.contexts[id] = ctx
	}

	n = d.Len()
	for i := 0; i < n && d.Err() == nil; i++ {
		x := newExpansion()
		d.Record(x)
		u.expansions = append(u.expansions, x)
	}

	d.Record(u.Files)
	d.Record(u.Includes)
	d.Record(u.Points)

	n = d.Len()
	for i := 0; i < n && d.Err() == nil; i++ {
		fid := d.Int32()
		u.FileIncludes[fid] = decodeIDSet(d)
	}

	n = d.Len()
	for i := 0; i < n && d.Err() == nil; i++ {
		name := d.String()
		m := d.Len()
		decls := make([]Declaration, 0, min(m, 1024))
		for j := 0; j < m && d.Err() == nil; j++ {
			include := d.Int32()
			decls = append(decls, Declaration{Include: include, Key: decodeJumpKey(d)})
		}
		u.PubDecls[name] = decls
	}

	n = d.Len()
	for i := 0; i < n && d.Err() == nil; i++ {
		name := d.String()
		target := decodeJumpTarget(d)
		weak := d.Bool()
		u.PubDefs[name] = Definition{Target: target, Weak: weak, Init: d.Bool()}
	}
}

func sortedIDs(ids map[int32]struct{}) []int32 {
	return sortedKeys(ids)
}

func sortedKeys[V any](m map[int32]V) []int32 {
	keys := make([]int32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
