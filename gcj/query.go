package gcj

import (
	"log/slog"
)

type viewKey struct {
	ld, unit int32
}

// QueryRepository is the read side of the store. Units, link views and
// file cross indexes are loaded on first use and kept for the lifetime of
// the repository.
type QueryRepository struct {
	dir   string
	log   *slog.Logger
	jobs  int
	index *storeIndex

	units map[int32]*Unit
	views map[viewKey]*Unit
	files map[int32]*FileCrossIndex
}

// OpenQuery opens the store in dir for querying.
func OpenQuery(dir string, opts ...Option) (*QueryRepository, error) {
	o := buildOptions(opts)
	index, err := loadIndex(dir)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("open query", "db", dir, "units", index.units.Size(), "link_sets", index.links.Size())
	return &QueryRepository{
		dir:   dir,
		log:   o.logger,
		jobs:  o.jobs,
		index: index,
		units: make(map[int32]*Unit),
		views: make(map[viewKey]*Unit),
		files: make(map[int32]*FileCrossIndex),
	}, nil
}

// UnitCount returns the number of known unit names.
func (q *QueryRepository) UnitCount() int32 {
	return q.index.units.Size()
}

// UnitName returns the name of unit id, or "".
func (q *QueryRepository) UnitName(id int32) string {
	name, err := q.index.units.At(id)
	if err != nil {
		return ""
	}
	return name
}

// Unit returns unit id, or nil when the id is unknown.
func (q *QueryRepository) Unit(id int32) (*Unit, error) {
	if !q.index.units.Contains(id) {
		return nil, nil
	}
	if u, ok := q.units[id]; ok {
		return u, nil
	}
	u := NewUnit(id, "")
	if err := loadRecord(unitPath(q.dir, id), u); err != nil {
		return nil, err
	}
	q.log.Debug("unit loaded", "id", id, "input", u.Input)
	q.units[id] = u
	return u, nil
}

// LinkSetValid reports whether ld names a link-set whose membership is
// current. A link-set dropped by a rebuild must be linked again.
func (q *QueryRepository) LinkSetValid(ld int32) bool {
	if !q.index.links.Contains(ld) {
		return false
	}
	_, ok := q.index.members[ld]
	return ok
}

// LinkSetMembers returns the member ids of ld in ascending order.
func (q *QueryRepository) LinkSetMembers(ld int32) []int32 {
	return sortedIDs(q.index.members[ld])
}

// View returns the link view of unit id in link-set ld, or nil when ld is
// not valid or id is not a member.
func (q *QueryRepository) View(ld, id int32) (*Unit, error) {
	if !q.LinkSetValid(ld) {
		return nil, nil
	}
	if _, ok := q.index.members[ld][id]; !ok {
		return nil, nil
	}
	key := viewKey{ld: ld, unit: id}
	if v, ok := q.views[key]; ok {
		return v, nil
	}
	v := NewUnit(id, "")
	if err := loadRecord(viewPath(q.dir, ld, id), v); err != nil {
		return nil, err
	}
	q.views[key] = v
	return v, nil
}

// FileSet returns the file cross index of ld, or nil when ld is not valid.
func (q *QueryRepository) FileSet(ld int32) (*FileCrossIndex, error) {
	if !q.LinkSetValid(ld) {
		return nil, nil
	}
	if f, ok := q.files[ld]; ok {
		return f, nil
	}
	f := newFileCrossIndex()
	if err := loadRecord(filesPath(q.dir, ld), f); err != nil {
		return nil, err
	}
	q.files[ld] = f
	return f, nil
}

// fileOf returns the innermost file of include in unit id.
func (q *QueryRepository) fileOf(id, include int32) (string, error) {
	u, err := q.Unit(id)
	if err != nil || u == nil {
		return "", err
	}
	stack, err := u.Includes.At(include)
	if err != nil {
		return "", nil
	}
	return u.FileName(stack.Innermost()), nil
}
