package gcj

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yuchenkan/gcc-jump/types"
)

// fixture is a store with sources and a link artifact on disk.
type fixture struct {
	db   string
	src  map[string]string
	prog string
}

func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()
	dir := t.TempDir()
	paths := touch(t, dir, append(names, "prog")...)
	f := &fixture{db: filepath.Join(dir, "db"), src: make(map[string]string)}
	for i, name := range names {
		f.src[name] = paths[i]
	}
	f.prog = paths[len(paths)-1]
	return f
}

// include interns the chain of names, innermost first, each enclosing
// file including the previous one at line 1.
func (f *fixture) include(s *Session, names ...string) int32 {
	stack := make(types.SourceStack, len(names))
	for i, name := range names {
		stack[i] = types.SourceLocation{File: s.FileID(f.src[name])}
		if i > 0 {
			stack[i].Loc = loc(1, 0)
		}
	}
	return s.InternInclude(stack)
}

type unitSpec struct {
	name  string
	build func(t *testing.T, s *Session)
}

func (f *fixture) ingest(t *testing.T, opts []Option, units ...unitSpec) {
	t.Helper()
	repo, err := OpenRepository(f.db, opts...)
	require.NoError(t, err)
	for _, spec := range units {
		s, err := repo.Next(spec.name, f.src[spec.name])
		require.NoError(t, err)
		spec.build(t, s)
	}
	require.NoError(t, repo.Close())
}

func (f *fixture) query(t *testing.T) *QueryRepository {
	t.Helper()
	q, err := OpenQuery(f.db, WithJobs(2))
	require.NoError(t, err)
	return q
}

// defines builds a unit holding one public definition of name at 1:5.
func (f *fixture) defines(file, name string, weak, init bool) unitSpec {
	return unitSpec{name: file, build: func(t *testing.T, s *Session) {
		inc := f.include(s, file)
		s.DefinePublic(name, Definition{
			Target: types.JumpTarget{Unit: s.ID(), Include: inc, Loc: loc(1, 5)},
			Weak:   weak,
			Init:   init,
		})
	}}
}

// uses builds a unit declaring name in header at 1:12 and using it at 4:10.
func (f *fixture) uses(file, header, name string) unitSpec {
	return unitSpec{name: file, build: func(t *testing.T, s *Session) {
		hdr := f.include(s, header, file)
		main := f.include(s, file)
		s.DeclarePublic(name, hdr, types.Span(loc(1, 12), int32(len(name))))
		require.NoError(t, s.AddJump(types.ContextRef{Include: main}, types.Span(loc(4, 10), int32(len(name))),
			types.JumpTarget{Unit: s.ID(), Include: hdr, Loc: loc(1, 12)}))
	}}
}

func TestLinkExtern(t *testing.T) {
	f := newFixture(t, "a.c", "b.c", "x.h")
	f.ingest(t, nil, f.defines("a.c", "x", false, true), f.uses("b.c", "x.h", "x"))

	// a.c is unit 1; in b.c, x.h is include 1 and b.c include 2.
	def := types.JumpTarget{Unit: 1, Include: 1, Loc: loc(1, 5)}
	decl := types.JumpTarget{Unit: 2, Include: 1, Loc: loc(1, 12)}
	use := types.JumpTarget{Unit: 2, Include: 2, Loc: loc(4, 10)}

	q := f.query(t)
	ld, err := q.LinkSet(f.prog, []int32{2, 1})
	require.NoError(t, err)
	require.Equal(t, int32(1), ld)

	got, err := Jump(q, JumpOptions{LinkSet: ld, Unit: 2, Include: 2, Line: 4, Col: 10})
	require.NoError(t, err)
	require.Equal(t, &JumpResult{File: f.src["x.h"], Target: decl}, got)

	got, err = Jump(q, JumpOptions{LinkSet: ld, Unit: 2, Include: 1, Line: 1, Col: 12})
	require.NoError(t, err)
	require.Equal(t, &JumpResult{File: f.src["a.c"], Target: def}, got)

	got, err = Jump(q, JumpOptions{Unit: 2, Include: 1, Line: 1, Col: 12})
	require.NoError(t, err)
	require.Nil(t, got)

	refs, err := Refer(q, ReferOptions{LinkSet: ld, Unit: 1, Include: 1, Line: 1, Col: 5})
	require.NoError(t, err)
	require.Equal(t, []JumpResult{{File: f.src["b.c"], Target: use}}, refs)

	refs, err = Refer(q, ReferOptions{Unit: 1, Include: 1, Line: 1, Col: 5})
	require.NoError(t, err)
	require.Empty(t, refs)

	ld, err = q.LinkSet(f.prog, []int32{1, 2, 2})
	require.NoError(t, err)
	require.Equal(t, int32(1), ld)

	_, err = q.LinkSet(f.prog, []int32{1})
	require.True(t, IsConflict(err))

	ld, err = q.LinkSet(filepath.Join(filepath.Dir(f.prog), "absent"), []int32{1})
	require.NoError(t, err)
	require.Equal(t, int32(0), ld)

	// A fresh reader sees the persisted link-set.
	q = f.query(t)
	require.True(t, q.LinkSetValid(1))
	require.Equal(t, []int32{1, 2}, q.LinkSetMembers(1))
	got, err = Jump(q, JumpOptions{LinkSet: 1, Unit: 2, Include: 1, Line: 1, Col: 12})
	require.NoError(t, err)
	require.Equal(t, &JumpResult{File: f.src["a.c"], Target: def}, got)

	files, err := q.FileSet(1)
	require.NoError(t, err)
	require.Equal(t, int32(3), files.Files.Size())
}

func TestLinkRebuildInvalidates(t *testing.T) {
	f := newFixture(t, "a.c", "b.c", "x.h")
	f.ingest(t, nil, f.defines("a.c", "x", false, true), f.uses("b.c", "x.h", "x"))

	q := f.query(t)
	ld, err := q.LinkSet(f.prog, []int32{1, 2})
	require.NoError(t, err)

	repo, err := OpenRepository(f.db)
	require.NoError(t, err)
	require.Equal(t, []int32{1, 2}, repo.LinkSetMembers(ld))
	id, ok := repo.UnitID("a.c")
	require.True(t, ok)
	require.Equal(t, int32(1), id)
	require.NoError(t, repo.Close())

	f.ingest(t, nil, f.defines("a.c", "x", false, true))

	q = f.query(t)
	require.False(t, q.LinkSetValid(ld))
	got, err := Jump(q, JumpOptions{LinkSet: ld, Unit: 2, Include: 1, Line: 1, Col: 12})
	require.NoError(t, err)
	require.Nil(t, got)

	again, err := q.LinkSet(f.prog, []int32{1, 2})
	require.NoError(t, err)
	require.Equal(t, ld, again)
	require.True(t, q.LinkSetValid(ld))
	got, err = Jump(q, JumpOptions{LinkSet: ld, Unit: 2, Include: 1, Line: 1, Col: 12})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, int32(1), got.Target.Unit)
}

func TestLinkRebuildWithoutClose(t *testing.T) {
	f := newFixture(t, "a.c", "b.c", "x.h")
	f.ingest(t, nil, f.defines("a.c", "x", false, true), f.uses("b.c", "x.h", "x"))

	q := f.query(t)
	ld, err := q.LinkSet(f.prog, []int32{1, 2})
	require.NoError(t, err)

	// a.c is rebuilt and finalized, and the repository is abandoned
	// while b.c is open.
	repo, err := OpenRepository(f.db)
	require.NoError(t, err)
	s, err := repo.Next("a.c", f.src["a.c"])
	require.NoError(t, err)
	s.DefinePublic("x", Definition{
		Target: types.JumpTarget{Unit: s.ID(), Include: f.include(s, "a.c"), Loc: loc(7, 9)},
		Init:   true,
	})
	_, err = repo.Next("b.c", f.src["b.c"])
	require.NoError(t, err)

	q = f.query(t)
	require.False(t, q.LinkSetValid(ld))
	got, err := Jump(q, JumpOptions{LinkSet: ld, Unit: 2, Include: 1, Line: 1, Col: 12})
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = q.LinkSet(f.prog, []int32{1, 2})
	require.NoError(t, err)
	got, err = Jump(q, JumpOptions{LinkSet: ld, Unit: 2, Include: 1, Line: 1, Col: 12})
	require.NoError(t, err)
	require.Equal(t, &JumpResult{
		File:   f.src["a.c"],
		Target: types.JumpTarget{Unit: 1, Include: 1, Loc: loc(7, 9)},
	}, got)
}

func TestLinkSupersededInExpansion(t *testing.T) {
	f := newFixture(t, "w.c", "s.c")
	weak := unitSpec{name: "w.c", build: func(t *testing.T, s *Session) {
		inc := f.include(s, "w.c")
		pt := s.InternPoint(types.ExpansionPoint{
			Include: inc,
			Loc:     types.SourceLocation{File: s.FileID(f.src["w.c"]), Loc: loc(1, 1)},
		})
		s.Context(inc, pt)
		s.DefinePublic("y", Definition{
			Target: types.JumpTarget{Unit: s.ID(), Include: inc, Point: pt, Loc: loc(1, 5), ExpID: 3},
			Weak:   true,
		})
	}}
	f.ingest(t, nil, weak, f.defines("s.c", "y", false, true))

	q := f.query(t)
	ld, err := q.LinkSet(f.prog, []int32{1, 2})
	require.NoError(t, err)

	got, err := Jump(q, JumpOptions{LinkSet: ld, Unit: 1, Include: 1, Point: 1, Line: 1, Col: 5, ExpID: 3})
	require.NoError(t, err)
	require.Equal(t, &JumpResult{
		File:   f.src["s.c"],
		Target: types.JumpTarget{Unit: 2, Include: 1, Loc: loc(1, 5)},
	}, got)

	got, err = Jump(q, JumpOptions{LinkSet: ld, Unit: 1, Include: 1, Line: 1, Col: 5})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestLinkWeakStrong(t *testing.T) {
	f := newFixture(t, "w.c", "s.c", "i.c", "u.c", "y.h")
	f.ingest(t, nil,
		f.defines("w.c", "y", true, false),
		f.defines("s.c", "y", false, false),
		f.defines("i.c", "y", false, true),
		f.uses("u.c", "y.h", "y"),
	)
	winner := types.JumpTarget{Unit: 3, Include: 1, Loc: loc(1, 5)}

	q := f.query(t)
	ld, err := q.LinkSet(f.prog, []int32{1, 2, 3, 4})
	require.NoError(t, err)

	for _, unit := range []int32{1, 2} {
		got, err := Jump(q, JumpOptions{LinkSet: ld, Unit: unit, Include: 1, Line: 1, Col: 5})
		require.NoError(t, err)
		require.Equal(t, &JumpResult{File: f.src["i.c"], Target: winner}, got, "unit %d", unit)
	}

	got, err := Jump(q, JumpOptions{LinkSet: ld, Unit: 4, Include: 1, Line: 1, Col: 12})
	require.NoError(t, err)
	require.Equal(t, &JumpResult{File: f.src["i.c"], Target: winner}, got)

	got, err = Jump(q, JumpOptions{LinkSet: ld, Unit: 3, Include: 1, Line: 1, Col: 5})
	require.NoError(t, err)
	require.Nil(t, got)

	refs, err := Refer(q, ReferOptions{LinkSet: ld, Unit: 3, Include: 1, Line: 1, Col: 5})
	require.NoError(t, err)
	require.Equal(t, []JumpResult{{
		File:   f.src["u.c"],
		Target: types.JumpTarget{Unit: 4, Include: 2, Loc: loc(4, 10)},
	}}, refs)
}

func TestMergeDefinition(t *testing.T) {
	def := func(unit int32, weak, init bool) Definition {
		return Definition{Target: types.JumpTarget{Unit: unit, Include: 1, Point: unit, Loc: loc(1, 5)}, Weak: weak, Init: init}
	}

	tests := []struct {
		name      string
		defs      []Definition
		want      int32
		referrers []int32
	}{
		{"single", []Definition{def(1, false, false)}, 1, nil},
		{"strong over weak", []Definition{def(1, true, false), def(2, false, false)}, 2, []int32{1}},
		{"weak after strong", []Definition{def(1, false, false), def(2, true, false)}, 1, []int32{2}},
		{"first weak stays", []Definition{def(1, true, false), def(2, true, false)}, 1, []int32{2}},
		{"later strong over tentative", []Definition{def(1, false, false), def(2, false, true)}, 2, []int32{1}},
		{"initialized stays", []Definition{def(1, false, true), def(2, false, false)}, 1, []int32{2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			refs := make(map[string][]referrer)
			defs := make(map[string]Definition)
			for _, d := range tc.defs {
				mergeDefinition(refs, defs, "y", d)
			}
			require.Equal(t, tc.want, defs["y"].Target.Unit)

			var units []int32
			for _, r := range refs["y"] {
				units = append(units, r.unit)
				require.Equal(t, types.Span(loc(1, 5), 1), r.decl.Key)
				require.Equal(t, r.unit, r.point)
			}
			require.Equal(t, tc.referrers, units)
		})
	}
}

func TestSessionLocalSymbols(t *testing.T) {
	f := newFixture(t, "l.c")
	f.ingest(t, nil, unitSpec{name: "l.c", build: func(t *testing.T, s *Session) {
		inc := f.include(s, "l.c")
		s.DefineLocal("s", Definition{Target: types.JumpTarget{Unit: s.ID(), Include: inc, Loc: loc(1, 12)}})
		s.DeclareLocal("s", inc, types.Span(loc(5, 3), 1))
		s.DeclareLocal("t", inc, types.Span(loc(6, 3), 1))
	}})

	q := f.query(t)
	u, err := q.Unit(1)
	require.NoError(t, err)
	ref := types.ContextRef{Include: 1}

	got, _, ok := u.Lookup(ref, loc(5, 3), 0)
	require.True(t, ok)
	require.Equal(t, types.JumpTarget{Unit: 1, Include: 1, Loc: loc(1, 12)}, got)
	_, _, ok = u.Lookup(ref, loc(6, 3), 0)
	require.False(t, ok)
	require.Equal(t, []types.JumpTarget{{Unit: 1, Include: 1, Loc: loc(5, 3)}},
		u.ContextAt(ref).JumpBack(loc(1, 12), 0))
}

func TestSessionTokens(t *testing.T) {
	f := newFixture(t, "m.c")
	var dump bytes.Buffer
	f.ingest(t, []Option{WithDump(&dump)}, unitSpec{name: "m.c", build: func(t *testing.T, s *Session) {
		inc := f.include(s, "m.c")
		exp := s.NewExpansion()
		require.NoError(t, s.AddJump(types.ContextRef{Include: inc}, types.Span(loc(3, 9), 3),
			types.JumpTarget{Unit: s.ID(), Include: inc, Loc: loc(1, 9), Exp: exp}))
		require.True(t, s.AddToken(inc, loc(3, 9), "(", 7))
		require.True(t, s.AddToken(inc, loc(3, 9), "42", 8))
		require.False(t, s.AddToken(inc, loc(4, 1), "x", 7))
	}})
	require.Contains(t, dump.String(), "unit m.c:\n")
	require.Contains(t, dump.String(), "expansion: 1")

	q := f.query(t)
	got, err := Expand(q, ExpandOptions{Unit: 1, Include: 1, Line: 3, Col: 10})
	require.NoError(t, err)
	require.Equal(t, &ExpandResult{
		Begin:  loc(3, 9),
		Tokens: []Token{{Text: "(", ID: 1}, {Text: "42", ID: 2}},
	}, got)

	got, err = Expand(q, ExpandOptions{Unit: 1, Include: 1, Line: 1, Col: 9})
	require.NoError(t, err)
	require.Nil(t, got)

	sel, err := SelectUnit(q, 1)
	require.NoError(t, err)
	require.Equal(t, &SelectResult{File: f.src["m.c"], Context: Address{Unit: 1, Include: 1}}, sel)
	sel, err = SelectUnit(q, 9)
	require.NoError(t, err)
	require.Nil(t, sel)

	var out bytes.Buffer
	found, err := DumpUnit(q, 1, &out)
	require.NoError(t, err)
	require.True(t, found)
	require.Contains(t, out.String(), "unit m.c:\n")
	found, err = DumpUnit(q, 2, &out)
	require.NoError(t, err)
	require.False(t, found)
}

func TestPreload(t *testing.T) {
	f := newFixture(t, "a.c", "b.c", "x.h")
	f.ingest(t, nil, f.defines("a.c", "x", false, true), f.uses("b.c", "x.h", "x"))

	q := f.query(t)
	require.NoError(t, q.preload([]int32{1, 2, 9}))
	require.Len(t, q.units, 2)
	require.Equal(t, int32(2), q.units[2].ID)

	require.NoError(t, os.WriteFile(unitPath(f.db, 2), []byte{1, 2}, 0o644))
	q = f.query(t)
	err := q.preload([]int32{1, 2})
	require.True(t, IsMalformedInput(err))
	require.Len(t, q.units, 1)
}

func TestStoreErrors(t *testing.T) {
	dir := t.TempDir()

	err := loadRecord(unitPath(dir, 1), NewUnit(1, ""))
	require.True(t, IsMalformedInput(err))
	require.True(t, errors.Is(err, fs.ErrNotExist))

	q, err := OpenQuery(dir)
	require.NoError(t, err)
	require.Equal(t, int32(0), q.UnitCount())
	u, err := q.Unit(1)
	require.NoError(t, err)
	require.Nil(t, u)

	require.NoError(t, os.WriteFile(indexPath(dir), []byte{0xff, 0xff, 0xff, 0xff}, 0o644))
	_, err = OpenQuery(dir)
	require.True(t, IsMalformedInput(err))
}
