package gcj

import (
	"maps"

	"github.com/yuchenkan/gcc-jump/types"
)

// referrer is a public declaration, or a superseded definition, that
// should jump to the definition a name resolves to.
type referrer struct {
	unit  int32
	point int32
	decl  Declaration
}

// LinkSet returns the id of the link-set for the artifact at name with the
// given members, building and persisting it on first use. It returns 0
// when name does not resolve to a file. Requesting a built link-set with
// different members is a conflict.
func (q *QueryRepository) LinkSet(name string, units []int32) (int32, error) {
	path, ok := CanonicalPath(name)
	if !ok {
		return 0, nil
	}
	members := make(map[int32]struct{}, len(units))
	for _, id := range units {
		members[id] = struct{}{}
	}

	ld := q.index.links.Get(path)
	if stored, ok := q.index.members[ld]; ok {
		if !maps.Equal(stored, members) {
			return 0, conflictf("link", "link-set %d for %s has members %v, requested %v",
				ld, path, sortedIDs(stored), sortedIDs(members))
		}
		return ld, nil
	}

	if err := q.link(ld, sortedIDs(members)); err != nil {
		return 0, err
	}
	q.index.members[ld] = members
	q.log.Debug("link-set built", "ld", ld, "artifact", path, "units", len(members))
	return ld, saveRecord(indexPath(q.dir), q.index)
}

// link resolves public declarations against public definitions across
// members and persists one view per member plus the file cross index.
func (q *QueryRepository) link(ld int32, members []int32) error {
	if err := q.preload(members); err != nil {
		return err
	}

	var bases []*Unit
	refs := make(map[string][]referrer)
	defs := make(map[string]Definition)
	for _, id := range members {
		u, err := q.Unit(id)
		if err != nil {
			return err
		}
		if u == nil {
			continue
		}
		bases = append(bases, u)

		for _, name := range sortedNames(u.PubDecls) {
			for _, decl := range u.PubDecls[name] {
				refs[name] = append(refs[name], referrer{unit: id, decl: decl})
			}
		}
		for _, name := range sortedNames(u.PubDefs) {
			mergeDefinition(refs, defs, name, u.PubDefs[name])
		}
	}

	views := make(map[int32]*Unit)
	view := func(id int32) *Unit {
		v, ok := views[id]
		if !ok {
			v = NewUnit(id, "")
			views[id] = v
		}
		return v
	}

	for _, name := range sortedNames(refs) {
		def, ok := defs[name]
		if !ok {
			continue
		}
		for _, r := range refs[name] {
			if err := view(r.unit).Context(r.decl.Include, r.point).Add(r.decl.Key, def.Target); err != nil {
				return err
			}
			base, err := q.Unit(r.unit)
			if err != nil {
				return err
			}
			if base == nil {
				continue
			}
			ref := types.ContextRef{Include: r.decl.Include, Point: r.point}
			view(def.Target.Unit).AddBackReference(base.ContextAt(ref), r.decl.Key, def.Target)
		}
	}

	for _, id := range members {
		v, ok := views[id]
		if !ok {
			v = NewUnit(id, "")
		}
		if err := saveRecord(viewPath(q.dir, ld, id), v); err != nil {
			return err
		}
		q.views[viewKey{ld: ld, unit: id}] = v
	}

	files := buildFileCrossIndex(bases)
	if err := saveRecord(filesPath(q.dir, ld), files); err != nil {
		return err
	}
	q.files[ld] = files
	return nil
}

// mergeDefinition folds def into the link-wide definitions. A strong
// definition displaces a weak one, and a strong one without an initializer
// yields to a later strong one. Whichever definition loses is recorded as
// a referrer of the winner.
func mergeDefinition(refs map[string][]referrer, defs map[string]Definition, name string, def Definition) {
	old, ok := defs[name]
	switch {
	case !ok:
		defs[name] = def
	case old.Weak && !def.Weak, !old.Weak && !def.Weak && !old.Init:
		refs[name] = append(refs[name], definitionReferrer(name, old))
		defs[name] = def
	default:
		refs[name] = append(refs[name], definitionReferrer(name, def))
	}
}

func definitionReferrer(name string, def Definition) referrer {
	return referrer{
		unit:  def.Target.Unit,
		point: def.Target.Point,
		decl: Declaration{
			Include: def.Target.Include,
			Key: types.JumpKey{
				Loc:   def.Target.Loc,
				Len:   int32(len(name)),
				ExpID: def.Target.ExpID,
			},
		},
	}
}
