package gcj

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/yuchenkan/gcc-jump/codec"
)

// Store layout under the database directory.
const (
	indexFile = "index"
	unitsDir  = "units"
	filesDir  = "files"
)

func indexPath(dir string) string {
	return filepath.Join(dir, indexFile)
}

func unitPath(dir string, id int32) string {
	return filepath.Join(dir, unitsDir, strconv.Itoa(int(id)))
}

func viewPath(dir string, ld, id int32) string {
	return filepath.Join(dir, unitsDir, strconv.Itoa(int(ld))+"."+strconv.Itoa(int(id)))
}

func filesPath(dir string, ld int32) string {
	return filepath.Join(dir, filesDir, strconv.Itoa(int(ld)))
}

// storeIndex is the content of the index file: unit names, link-set
// names and link-set membership.
type storeIndex struct {
	units   *Interner[string]
	links   *Interner[string]
	members map[int32]map[int32]struct{}
}

func newStoreIndex() *storeIndex {
	return &storeIndex{
		units:   NewInterner(stringKeys),
		links:   NewInterner(stringKeys),
		members: make(map[int32]map[int32]struct{}),
	}
}

// invalidate drops every link-set membership that contains unit.
func (x *storeIndex) invalidate(unit int32) []int32 {
	var dropped []int32
	for ld, units := range x.members {
		if _, ok := units[unit]; ok {
			dropped = append(dropped, ld)
			delete(x.members, ld)
		}
	}
	return dropped
}

func (x *storeIndex) Encode(e *codec.Encoder) {
	e.Record(x.units)
	e.Record(x.links)

	lds := sortedKeys(x.members)
	e.Len(len(lds))
	for _, ld := range lds {
		e.Int32(ld)
		encodeIDSet(e, x.members[ld])
	}
}

func (x *storeIndex) Decode(d *codec.Decoder) {
	d.Record(x.units)
	d.Record(x.links)

	n := d.Len()
	for i := 0; i < n && d.Err() == nil; i++ {
		ld := d.Int32()
		x.members[ld] = decodeIDSet(d)
	}
}

// loadIndex reads the index file; a missing file yields an empty index.
func loadIndex(dir string) (*storeIndex, error) {
	x := newStoreIndex()
	err := loadRecord(indexPath(dir), x)
	if errors.Is(err, fs.ErrNotExist) {
		return newStoreIndex(), nil
	}
	if err != nil {
		return nil, err
	}
	return x, nil
}

// saveRecord writes r to path, creating parent directories.
func saveRecord(path string, r codec.Record) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return newError(ErrorTypeIO, "save", err).WithPath(path)
	}
	f, err := os.Create(path)
	if err != nil {
		return newError(ErrorTypeIO, "save", err).WithPath(path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = newError(ErrorTypeIO, "save", cerr).WithPath(path)
		}
	}()

	e := codec.NewEncoder(f)
	e.Record(r)
	if err := e.Flush(); err != nil {
		return newError(ErrorTypeIO, "save", err).WithPath(path)
	}
	return nil
}

// loadRecord reads path into r. A missing file is reported as malformed
// input that still matches fs.ErrNotExist; corrupt content as malformed
// input; anything else as an I/O error.
func loadRecord(path string, r codec.Record) error {
	f, err := os.Open(path)
	if err != nil {
		t := ErrorTypeIO
		if errors.Is(err, fs.ErrNotExist) {
			t = ErrorTypeMalformedInput
		}
		return newError(t, "load", err).WithPath(path)
	}
	defer f.Close()

	d := codec.NewDecoder(f)
	d.Record(r)
	if err := d.Done(); err != nil {
		return newError(ErrorTypeMalformedInput, "load", err).WithPath(path)
	}
	return nil
}
