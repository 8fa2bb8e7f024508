package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yuchenkan/gcc-jump/internal/objtest"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestUnits(t *testing.T) {
	tests := []struct {
		name    string
		data    func(t *testing.T) []byte
		section string
		want    []int32
		wantErr error
	}{
		{
			name: "object",
			data: func(*testing.T) []byte {
				return objtest.ELF(DefaultSection, objtest.Units(3, 1, 3, 2))
			},
			want: []int32{1, 2, 3},
		},
		{
			name: "custom section",
			data: func(*testing.T) []byte {
				return objtest.ELF(".units", objtest.Units(7))
			},
			section: ".units",
			want:    []int32{7},
		},
		{
			name: "empty section",
			data: func(*testing.T) []byte {
				return objtest.ELF(DefaultSection, nil)
			},
			want: []int32{},
		},
		{
			name: "malformed length",
			data: func(*testing.T) []byte {
				return objtest.ELF(DefaultSection, []byte{1, 0, 0, 0, 2, 0})
			},
			wantErr: ErrMalformedSection,
		},
		{
			name: "missing section",
			data: func(*testing.T) []byte {
				return objtest.ELF("", nil)
			},
			wantErr: ErrNoSection,
		},
		{
			name: "archive",
			data: func(t *testing.T) []byte {
				data, err := objtest.Archive(
					objtest.Member{Name: "a.o", Body: objtest.ELF(DefaultSection, objtest.Units(4, 2))},
					objtest.Member{Name: "README", Body: []byte("text")},
					objtest.Member{Name: "plain.o", Body: objtest.ELF("", nil)},
					objtest.Member{Name: "b.o", Body: objtest.ELF(DefaultSection, objtest.Units(2, 9))},
				)
				require.NoError(t, err)
				return data
			},
			want: []int32{2, 4, 9},
		},
		{
			name: "archive without section",
			data: func(t *testing.T) []byte {
				data, err := objtest.Archive(objtest.Member{Name: "plain.o", Body: objtest.ELF("", nil)})
				require.NoError(t, err)
				return data
			},
			wantErr: ErrNoSection,
		},
		{
			name: "thin archive",
			data: func(*testing.T) []byte {
				return []byte("!<thin>\n")
			},
			wantErr: errThinArchive,
		},
		{
			name: "unknown format",
			data: func(*testing.T) []byte {
				return []byte("#!/bin/sh\n")
			},
			wantErr: ErrUnknownFormat,
		},
		{
			name: "empty file",
			data: func(*testing.T) []byte {
				return nil
			},
			wantErr: ErrUnknownFormat,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, "obj", tc.data(t))
			ids, err := Units(path, tc.section)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, ids)
		})
	}
}

func TestUnitsMissingFile(t *testing.T) {
	_, err := Units(filepath.Join(t.TempDir(), "absent.o"), "")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRegistry(t *testing.T) {
	require.Equal(t, []string{"ar", "elf", "thin-ar"}, List())
	require.Equal(t, "elf", ByMagic([]byte("\x7fELF\x02\x01")).Name())
	require.Equal(t, "ar", Get("ar").Name())
	require.Nil(t, ByMagic([]byte("\x7fE")))
}
