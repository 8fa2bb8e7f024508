package gcj

import (
	"slices"

	"github.com/google/btree"

	"github.com/yuchenkan/gcc-jump/codec"
	"github.com/yuchenkan/gcc-jump/types"
)

const btreeDegree = 16

type jump struct {
	key    types.JumpKey
	target types.JumpTarget
}

type back struct {
	key     types.JumpKey
	targets []types.JumpTarget // sorted, unique
}

func lessJump(a, b jump) bool { return a.key.Compare(b.key) < 0 }
func lessBack(a, b back) bool { return a.key.Compare(b.key) < 0 }

// Context is the lookup scope for one include chain, or for one macro
// invocation nested in it. Literal token spans and macro-expanded token
// instances share one table ordered by location.
type Context struct {
	jumps *btree.BTreeG[jump]
	backs *btree.BTreeG[back]

	// surrounding is the include id of the include-level context a lookup
	// falls back to; 0 for include-level contexts.
	surrounding int32

	expansions map[int32]*Context
}

// NewContext returns an empty include-level context.
func NewContext() *Context {
	return &Context{
		jumps:      btree.NewG(btreeDegree, lessJump),
		backs:      btree.NewG(btreeDegree, lessBack),
		expansions: make(map[int32]*Context),
	}
}

// Surrounding returns the include id lookups fall back to, or 0.
func (c *Context) Surrounding() int32 {
	return c.surrounding
}

// Len returns the number of jumps.
func (c *Context) Len() int {
	return c.jumps.Len()
}

// Add records key→target. Re-adding an identical pair is a no-op; adding
// the same key with another target is a conflict.
func (c *Context) Add(key types.JumpKey, target types.JumpTarget) error {
	if old, ok := c.jumps.Get(jump{key: key}); ok {
		if old.target != target {
			return conflictf("context add",
				"key %d:%d exp %d maps to %+v, refusing %+v",
				key.Loc.Line, key.Loc.Col, key.ExpID, old.target, target)
		}
		return nil
	}
	c.jumps.ReplaceOrInsert(jump{key: key, target: target})
	return nil
}

// Get returns the target stored under exactly key.
func (c *Context) Get(key types.JumpKey) (types.JumpTarget, bool) {
	j, ok := c.jumps.Get(jump{key: key})
	return j.target, ok
}

// Back records that target refers to key.
func (c *Context) Back(key types.JumpKey, target types.JumpTarget) {
	b, ok := c.backs.Get(back{key: key})
	if !ok {
		b = back{key: key}
	}
	i, found := slices.BinarySearchFunc(b.targets, target, types.JumpTarget.Compare)
	if found {
		return
	}
	b.targets = slices.Insert(slices.Clone(b.targets), i, target)
	c.backs.ReplaceOrInsert(b)
}

// Lookup resolves (loc, expID) inside this context only. It returns the
// target and the start of the matched key.
func (c *Context) Lookup(loc types.FileLocation, expID int32) (types.JumpTarget, types.FileLocation, bool) {
	j, ok := resolveKey(c.jumps, jumpProbe, loc, expID)
	if !ok {
		return types.JumpTarget{}, types.FileLocation{}, false
	}
	return j.target, j.key.Loc, true
}

// JumpBack returns everything referring to (loc, expID) in this context.
// Back-references are not inherited from the surrounding context.
func (c *Context) JumpBack(loc types.FileLocation, expID int32) []types.JumpTarget {
	b, ok := resolveKey(c.backs, backProbe, loc, expID)
	if !ok {
		return nil
	}
	return b.targets
}

// keyed is implemented by the entries of the ordered tables.
type keyed interface {
	jumpKey() types.JumpKey
}

func (j jump) jumpKey() types.JumpKey { return j.key }
func (b back) jumpKey() types.JumpKey { return b.key }

func jumpProbe(k types.JumpKey) jump { return jump{key: k} }
func backProbe(k types.JumpKey) back { return back{key: k} }

// resolveKey runs the in-context part of the lookup algorithm over an
// ordered table: predecessor search, exact match for expanded instances,
// re-probe at the predecessor's location when a literal lookup lands on an
// expanded instance, and span coverage.
func resolveKey[T keyed](tree *btree.BTreeG[T], probe func(types.JumpKey) T, loc types.FileLocation, expID int32) (T, bool) {
	var zero T
	item, ok := predecessor(tree, probe(types.Expanded(loc, expID)))
	if !ok {
		return zero, false
	}
	if expID != 0 {
		if !matchesExpansion(item.jumpKey(), loc, expID) {
			return zero, false
		}
		return item, true
	}
	if isExpandedInstance(item.jumpKey()) {
		item, ok = predecessor(tree, probe(types.Span(item.jumpKey().Loc, 0)))
		if !ok {
			return zero, false
		}
	}
	if !coversColumn(item.jumpKey(), loc) {
		return zero, false
	}
	return item, true
}

// predecessor returns the greatest item less than or equal to probe.
func predecessor[T any](tree *btree.BTreeG[T], probe T) (T, bool) {
	var found T
	var ok bool
	tree.DescendLessOrEqual(probe, func(item T) bool {
		found, ok = item, true
		return false
	})
	return found, ok
}

// matchesExpansion reports whether key is exactly the expanded token
// instance (loc, expID).
func matchesExpansion(key types.JumpKey, loc types.FileLocation, expID int32) bool {
	return key.Loc == loc && key.ExpID == expID
}

// isExpandedInstance reports whether key belongs to a macro-expanded token
// rather than a literal span.
func isExpandedInstance(key types.JumpKey) bool {
	return key.ExpID != 0
}

// coversColumn reports whether the literal span key covers loc. A key with
// column 0 covers its whole line; a zero-length key covers only its own
// column.
func coversColumn(key types.JumpKey, loc types.FileLocation) bool {
	if key.Loc.Line != loc.Line {
		return false
	}
	if key.Loc.Col == 0 || key.Loc.Col == loc.Col {
		return true
	}
	return loc.Col >= key.Loc.Col && loc.Col < key.Loc.Col+key.Len
}

// Expansion returns the child context of point, or nil.
func (c *Context) Expansion(point int32) *Context {
	return c.expansions[point]
}

// expansion returns the child context of point, creating it with its
// fallback wired to include.
func (c *Context) expansion(include, point int32) *Context {
	child, ok := c.expansions[point]
	if !ok {
		child = NewContext()
		child.surrounding = include
		c.expansions[point] = child
	}
	return child
}

// ExpansionPoints returns the point ids of all children in ascending order.
func (c *Context) ExpansionPoints() []int32 {
	points := make([]int32, 0, len(c.expansions))
	for p := range c.expansions {
		points = append(points, p)
	}
	slices.Sort(points)
	return points
}

// Jumps calls fn for every jump in key order until fn returns false.
func (c *Context) Jumps(fn func(types.JumpKey, types.JumpTarget) bool) {
	c.jumps.Ascend(func(j jump) bool { return fn(j.key, j.target) })
}

// Backs calls fn for every back-reference entry in key order until fn
// returns false.
func (c *Context) Backs(fn func(types.JumpKey, []types.JumpTarget) bool) {
	c.backs.Ascend(func(b back) bool { return fn(b.key, b.targets) })
}

// Encode writes jumps, backs, surrounding and children.
func (c *Context) Encode(e *codec.Encoder) {
	e.Len(c.jumps.Len())
	c.jumps.Ascend(func(j jump) bool {
		encodeJumpKey(e, j.key)
		encodeJumpTarget(e, j.target)
		return e.Err() == nil
	})

	e.Len(c.backs.Len())
	c.backs.Ascend(func(b back) bool {
		encodeJumpKey(e, b.key)
		e.Len(len(b.targets))
		for _, t := range b.targets {
			encodeJumpTarget(e, t)
		}
		return e.Err() == nil
	})

	e.Int32(c.surrounding)

	points := c.ExpansionPoints()
	e.Len(len(points))
	for _, p := range points {
		e.Int32(p)
		e.Record(c.expansions[p])
	}
}

// Decode reads a context written by Encode into an empty context.
func (c *Context) Decode(d *codec.Decoder) {
	n := d.Len()
	for i := 0; i < n && d.Err() == nil; i++ {
		key := decodeJumpKey(d)
		c.jumps.ReplaceOrInsert(jump{key: key, target: decodeJumpTarget(d)})
	}

	n = d.Len()
	for i := 0; i < n && d.Err() == nil; i++ {
		b := back{key: decodeJumpKey(d)}
		m := d.Len()
		for j := 0; j < m && d.Err() == nil; j++ {
			b.targets = append(b.targets, decodeJumpTarget(d))
		}
		slices.SortFunc(b.targets, types.JumpTarget.Compare)
		b.targets = slices.CompactFunc(b.targets, func(x, y types.JumpTarget) bool { return x == y })
		c.backs.ReplaceOrInsert(b)
	}

	c.surrounding = d.Int32()

	n = d.Len()
	for i := 0; i < n && d.Err() == nil; i++ {
		p := d.Int32()
		child := NewContext()
		d.Record(child)
		c.expansions[p] = child
	}
}
