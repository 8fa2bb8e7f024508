package parser

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yuchenkan/gcc-jump/gcj"
	"github.com/yuchenkan/gcc-jump/types"
)

func replay(t *testing.T, facts ...string) *gcj.Unit {
	t.Helper()
	db := filepath.Join(t.TempDir(), "db")
	repo, err := gcj.OpenRepository(db)
	require.NoError(t, err)
	require.NoError(t, Replay(strings.NewReader(strings.Join(facts, "\n")), repo, Options{}))

	q, err := gcj.OpenQuery(db)
	require.NoError(t, err)
	u, err := q.Unit(1)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

func TestReplayExpansionRecords(t *testing.T) {
	const (
		unit     = `{"op":"unit","input":"/src/m.c"}`
		outer    = `{"op":"expansion","from":{"include":["/src/m.c"],"line":3,"col":9},"len":1,"to":{"include":["/src/m.c"],"line":1,"col":9}}`
		nested   = `{"op":"expansion","from":{"include":["/src/m.c"],"point":{"include":["/src/m.c"],"file":"/src/m.c","line":3,"col":9},"line":1,"col":13,"expid":1},"to":{"include":["/src/m.c"],"line":2,"col":9}}`
		literal  = `{"op":"jump","from":{"include":["/src/m.c"],"line":3,"col":9},"len":1,"to":{"include":["/src/m.c"],"line":1,"col":9}}`
		conflict = `{"op":"expansion","from":{"include":["/src/m.c"],"line":3,"col":9},"len":1,"to":{"include":["/src/m.c"],"line":5,"col":9}}`
	)

	tests := []struct {
		name    string
		facts   []string
		records int
		exp     int32
	}{
		{"outermost", []string{unit, outer}, 1, 1},
		{"repeated", []string{unit, outer, outer}, 1, 1},
		{"nested owns no record", []string{unit, outer, nested}, 1, 1},
		{"plain jump first", []string{unit, literal, outer}, 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u := replay(t, tc.facts...)
			require.Equal(t, tc.records, u.ExpansionCount())

			got, ok := u.ContextAt(types.ContextRef{Include: 1}).Get(types.Span(types.FileLocation{Line: 3, Col: 9}, 1))
			require.True(t, ok)
			require.Equal(t, tc.exp, got.Exp)
		})
	}

	t.Run("nested target", func(t *testing.T) {
		u := replay(t, unit, outer, nested)
		got, ok := u.ContextAt(types.ContextRef{Include: 1, Point: 1}).Get(types.Expanded(types.FileLocation{Line: 1, Col: 13}, 1))
		require.True(t, ok)
		require.Equal(t, int32(0), got.Exp)
	})

	t.Run("different target conflicts", func(t *testing.T) {
		repo, err := gcj.OpenRepository(filepath.Join(t.TempDir(), "db"))
		require.NoError(t, err)
		err = Replay(strings.NewReader(unit+"\n"+outer+"\n"+conflict), repo, Options{})
		require.True(t, gcj.IsConflict(err))
	})
}
