package parser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseChain(t *testing.T) {
	base := filepath.FromSlash("/src")

	tests := []struct {
		name    string
		chain   []string
		want    []chainEntry
		wantErr string
	}{
		{
			name:  "single file",
			chain: []string{"main.c"},
			want:  []chainEntry{{file: filepath.Join(base, "main.c")}},
		},
		{
			name:  "nested",
			chain: []string{"b.h", "a.h:2", "/abs/main.c:10"},
			want: []chainEntry{
				{file: filepath.Join(base, "b.h")},
				{file: filepath.Join(base, "a.h"), line: 2},
				{file: "/abs/main.c", line: 10},
			},
		},
		{
			name:  "colon in name",
			chain: []string{"c:d.h"},
			want:  []chainEntry{{file: filepath.Join(base, "c:d.h")}},
		},
		{
			name:    "empty",
			chain:   nil,
			wantErr: "empty include chain",
		},
		{
			name:    "innermost with line",
			chain:   []string{"a.h:3"},
			wantErr: `innermost include "a.h:3" has a line`,
		},
		{
			name:    "enclosing without line",
			chain:   []string{"a.h", "main.c"},
			wantErr: `enclosing include "main.c" has no line`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseChain(tc.chain, base)
			if tc.wantErr != "" {
				require.EqualError(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestResolve(t *testing.T) {
	require.Equal(t, "a.c", resolve("", "a.c"))
	require.Equal(t, "/x/a.c", resolve("/base", "/x/a.c"))
	require.Equal(t, filepath.Join("base", "a.c"), resolve("base", "a.c"))
}
