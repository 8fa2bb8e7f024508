package gcj

import (
	"cmp"
	"slices"

	"github.com/yuchenkan/gcc-jump/codec"
)

// UnitFile is a file id as seen by one unit.
type UnitFile struct {
	Unit int32
	File int32
}

func (a UnitFile) compare(b UnitFile) int {
	if c := cmp.Compare(a.Unit, b.Unit); c != 0 {
		return c
	}
	return cmp.Compare(a.File, b.File)
}

// FileCrossIndex maps the files of a link-set's members onto set-wide ids,
// so that one physical file can be found in every unit that includes it.
type FileCrossIndex struct {
	Files *Interner[string]

	ids   map[UnitFile]int32
	units map[int32][]UnitFile // sorted, unique
}

func newFileCrossIndex() *FileCrossIndex {
	return &FileCrossIndex{
		Files: NewInterner(stringKeys),
		ids:   make(map[UnitFile]int32),
		units: make(map[int32][]UnitFile),
	}
}

// buildFileCrossIndex indexes every file the units include. Files that no
// longer resolve on disk are skipped.
func buildFileCrossIndex(units []*Unit) *FileCrossIndex {
	f := newFileCrossIndex()
	for _, u := range units {
		for _, fid := range sortedKeys(u.FileIncludes) {
			path, ok := CanonicalPath(u.FileName(fid))
			if !ok {
				continue
			}
			f.add(UnitFile{Unit: u.ID, File: fid}, f.Files.Get(path))
		}
	}
	return f
}

func (f *FileCrossIndex) add(uf UnitFile, setFile int32) {
	f.ids[uf] = setFile
	members := f.units[setFile]
	i, found := slices.BinarySearchFunc(members, uf, UnitFile.compare)
	if !found {
		f.units[setFile] = slices.Insert(members, i, uf)
	}
}

// SetFile returns the set-wide id of a unit's file.
func (f *FileCrossIndex) SetFile(uf UnitFile) (int32, bool) {
	id, ok := f.ids[uf]
	return id, ok
}

// Units returns every (unit, file) pair mapped to setFile.
func (f *FileCrossIndex) Units(setFile int32) []UnitFile {
	return f.units[setFile]
}

// Widen returns uf together with every pair sharing its physical file,
// sorted and without duplicates.
func (f *FileCrossIndex) Widen(uf UnitFile) []UnitFile {
	out := []UnitFile{uf}
	if f != nil {
		if id, ok := f.ids[uf]; ok {
			out = append(out, f.units[id]...)
		}
	}
	slices.SortFunc(out, UnitFile.compare)
	return slices.Compact(out)
}

func (f *FileCrossIndex) Encode(e *codec.Encoder) {
	e.Record(f.Files)

	pairs := make([]UnitFile, 0, len(f.ids))
	for uf := range f.ids {
		pairs = append(pairs, uf)
	}
	slices.SortFunc(pairs, UnitFile.compare)
	e.Len(len(pairs))
	for _, uf := range pairs {
		e.Int32(uf.Unit)
		e.Int32(uf.File)
		e.Int32(f.ids[uf])
	}

	ids := sortedKeys(f.units)
	e.Len(len(ids))
	for _, id := range ids {
		e.Int32(id)
		e.Len(len(f.units[id]))
		for _, uf := range f.units[id] {
			e.Int32(uf.Unit)
			e.Int32(uf.File)
		}
	}
}

func (f *FileCrossIndex) Decode(d *codec.Decoder) {
	d.Record(f.Files)

	n := d.Len()
	for i := 0; i < n && d.Err() == nil; i++ {
		unit := d.Int32()
		file := d.Int32()
		f.ids[UnitFile{Unit: unit, File: file}] = d.Int32()
	}

	n = d.Len()
	for i := 0; i < n && d.Err() == nil; i++ {
		id := d.Int32()
		m := d.Len()
		members := make([]UnitFile, 0, min(m, 1024))
		for j := 0; j < m && d.Err() == nil; j++ {
			unit := d.Int32()
			members = append(members, UnitFile{Unit: unit, File: d.Int32()})
		}
		slices.SortFunc(members, UnitFile.compare)
		f.units[id] = slices.Compact(members)
	}
}
