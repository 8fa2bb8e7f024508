package gcj

import (
	"fmt"
	"io"
	"log/slog"
)

// Repository is the write side of the store. Units are built one at a
// time through a Session and persisted when the next one starts or the
// repository is closed. It must not be shared with other writers.
type Repository struct {
	dir   string
	log   *slog.Logger
	dump  io.Writer
	index *storeIndex

	session *Session
}

// OpenRepository opens the store in dir, loading its index when present.
func OpenRepository(dir string, opts ...Option) (*Repository, error) {
	o := buildOptions(opts)
	o.logger.Debug("load", "db", dir)

	index, err := loadIndex(dir)
	if err != nil {
		return nil, err
	}
	return &Repository{
		dir:   dir,
		log:   o.logger,
		dump:  o.dump,
		index: index,
	}, nil
}

// Next finalizes the open unit, if any, and opens the unit named args
// compiled from input. Rebuilding a known name reuses its id.
func (r *Repository) Next(args, input string) (*Session, error) {
	if err := r.Finalize(); err != nil {
		return nil, err
	}
	id := r.index.units.Get(args)
	r.log.Debug("next unit", "id", id, "args", args, "input", input)
	r.session = newSession(NewUnit(id, input), r.log)
	return r.session, nil
}

// Finalize resolves the open unit's local symbols, persists it and drops
// every link-set that contains it, saving the index when one was dropped.
// It is a no-op when no unit is open.
func (r *Repository) Finalize() error {
	s := r.session
	if s == nil {
		return nil
	}
	r.session = nil

	if err := s.finish(); err != nil {
		return err
	}
	u := s.unit

	if r.dump != nil {
		name, _ := r.index.units.At(u.ID)
		if _, err := fmt.Fprintf(r.dump, "unit %s:\n", name); err != nil {
			return newError(ErrorTypeIO, "dump", err)
		}
		if err := u.Dump(r.dump, 1); err != nil {
			return newError(ErrorTypeIO, "dump", err)
		}
	}

	// The index is saved before the unit so that no stored link-set
	// outlives a rebuild of one of its members.
	if dropped := r.index.invalidate(u.ID); len(dropped) > 0 {
		for _, ld := range dropped {
			r.log.Debug("link-set invalidated", "ld", ld, "unit", u.ID)
		}
		if err := saveRecord(indexPath(r.dir), r.index); err != nil {
			return err
		}
	}
	return saveRecord(unitPath(r.dir, u.ID), u)
}

// Close finalizes the open unit and saves the index.
func (r *Repository) Close() error {
	if err := r.Finalize(); err != nil {
		return err
	}
	r.log.Debug("save", "db", r.dir)
	return saveRecord(indexPath(r.dir), r.index)
}

// UnitID returns the id of the unit named args.
func (r *Repository) UnitID(args string) (int32, bool) {
	return r.index.units.Lookup(args)
}

// LinkSetMembers returns the member ids of link-set ld, or nil when the
// link-set is not built.
func (r *Repository) LinkSetMembers(ld int32) []int32 {
	units, ok := r.index.members[ld]
	if !ok {
		return nil
	}
	return sortedIDs(units)
}
