package gcj

import (
	"errors"
	"io"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/yuchenkan/gcc-jump/scanner"
	"github.com/yuchenkan/gcc-jump/types"
)

// UnitEntry names one unit.
type UnitEntry struct {
	Name string
	ID   int32
}

// ListResult is the output of ListUnits.
type ListResult struct {
	// LinkSet is the id of the link-set built for the object, or 0.
	LinkSet int32
	Units   []UnitEntry
}

// Address locates a context inside a unit.
type Address struct {
	Unit    int32 `json:"unit"`
	Include int32 `json:"include"`
	Point   int32 `json:"point"`
}

// SelectResult is the output of SelectUnit.
type SelectResult struct {
	File    string
	Context Address
}

// ExpandResult is the output of Expand.
type ExpandResult struct {
	// Begin is the start of the macro invocation.
	Begin  types.FileLocation
	Tokens []Token
}

// JumpResult is one resolved location.
type JumpResult struct {
	File   string
	Target types.JumpTarget
}

// ListUnits lists known units, or the units embedded in an object together
// with the link-set built for it.
func ListUnits(q *QueryRepository, opts ListOptions) (*ListResult, error) {
	if opts.Match != "" && !doublestar.ValidatePattern(opts.Match) {
		return nil, errors.New("invalid match pattern: " + opts.Match)
	}

	var ids []int32
	if opts.Object == "" {
		for id := int32(1); id <= q.UnitCount(); id++ {
			ids = append(ids, id)
		}
	} else {
		embedded, err := scanner.Units(opts.Object, opts.Section)
		if err != nil {
			return nil, newError(ErrorTypeMalformedInput, "list", err).WithPath(opts.Object)
		}
		for _, id := range embedded {
			if q.index.units.Contains(id) {
				ids = append(ids, id)
			}
		}
	}

	result := &ListResult{Units: []UnitEntry{}}
	if opts.Object != "" {
		ld, err := q.LinkSet(opts.Object, ids)
		if err != nil {
			return nil, err
		}
		if ld == 0 {
			return nil, notFoundf("list", "file not found %s", opts.Object)
		}
		result.LinkSet = ld
	}

	for _, id := range ids {
		name := q.UnitName(id)
		if opts.Match != "" {
			if ok, _ := doublestar.Match(opts.Match, name); !ok {
				continue
			}
		}
		result.Units = append(result.Units, UnitEntry{Name: name, ID: id})
	}
	sort.Slice(result.Units, func(i, j int) bool {
		return result.Units[i].Name < result.Units[j].Name
	})
	return result, nil
}

// SelectUnit returns the top-level file of a unit, or nil.
func SelectUnit(q *QueryRepository, unit int32) (*SelectResult, error) {
	u, err := q.Unit(unit)
	if err != nil || u == nil || u.InputInclude == 0 {
		return nil, err
	}
	file, err := q.fileOf(unit, u.InputInclude)
	if err != nil {
		return nil, err
	}
	return &SelectResult{
		File:    file,
		Context: Address{Unit: unit, Include: u.InputInclude},
	}, nil
}

// Expand returns the tokens of the macro invocation covering a location,
// or nil.
func Expand(q *QueryRepository, opts ExpandOptions) (*ExpandResult, error) {
	u, err := q.Unit(opts.Unit)
	if err != nil || u == nil {
		return nil, err
	}
	ref := types.ContextRef{Include: opts.Include, Point: opts.Point}
	loc := types.FileLocation{Line: opts.Line, Col: opts.Col}
	target, begin, ok := u.Lookup(ref, loc, 0)
	if !ok || target.Exp == 0 {
		return nil, nil
	}
	x := u.Expansion(target.Exp)
	if x == nil {
		return nil, nil
	}
	return &ExpandResult{Begin: begin, Tokens: x.Tokens()}, nil
}

// Jump resolves a location in the unit alone and then, when a link-set is
// given, in the unit's link view. It returns nil when neither resolves.
func Jump(q *QueryRepository, opts JumpOptions) (*JumpResult, error) {
	ref := types.ContextRef{Include: opts.Include, Point: opts.Point}
	loc := types.FileLocation{Line: opts.Line, Col: opts.Col}

	u, err := q.Unit(opts.Unit)
	if err != nil {
		return nil, err
	}
	candidates := []*Unit{u}
	if opts.LinkSet != 0 {
		v, err := q.View(opts.LinkSet, opts.Unit)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, v)
	}

	for _, c := range candidates {
		if c == nil {
			continue
		}
		target, _, ok := c.Lookup(ref, loc, opts.ExpID)
		if !ok {
			continue
		}
		file, err := q.fileOf(target.Unit, target.Include)
		if err != nil {
			return nil, err
		}
		return &JumpResult{File: file, Target: target}, nil
	}
	return nil, nil
}

// Refer returns every location referring to a location. The search covers
// every include of the queried file in the unit and, with a link-set, in
// each member including the same physical file, in both the members and
// their link views.
func Refer(q *QueryRepository, opts ReferOptions) ([]JumpResult, error) {
	results := []JumpResult{}

	u, err := q.Unit(opts.Unit)
	if err != nil || u == nil {
		return results, err
	}
	stack, err := u.Includes.At(opts.Include)
	if err != nil {
		return results, nil
	}

	files, err := q.FileSet(opts.LinkSet)
	if err != nil {
		return nil, err
	}

	loc := types.FileLocation{Line: opts.Line, Col: opts.Col}
	for _, uf := range files.Widen(UnitFile{Unit: opts.Unit, File: stack.Innermost()}) {
		base, err := q.Unit(uf.Unit)
		if err != nil {
			return nil, err
		}
		if base == nil {
			continue
		}
		view, err := q.View(opts.LinkSet, uf.Unit)
		if err != nil {
			return nil, err
		}

		for _, src := range []*Unit{base, view} {
			if src == nil {
				continue
			}
			for _, include := range sortedIDs(base.FileIncludes[uf.File]) {
				targets := referIn(src.ContextAt(types.ContextRef{Include: include}), loc, opts.ExpID)
				for _, t := range targets {
					file, err := q.fileOf(t.Unit, t.Include)
					if err != nil {
						return nil, err
					}
					results = append(results, JumpResult{File: file, Target: t})
				}
			}
		}
	}
	return results, nil
}

// referIn collects the back-references of an include-level context and
// its expansion children.
func referIn(ctx *Context, loc types.FileLocation, expID int32) []types.JumpTarget {
	if ctx == nil {
		return nil
	}
	targets := append([]types.JumpTarget(nil), ctx.JumpBack(loc, expID)...)
	for _, point := range ctx.ExpansionPoints() {
		targets = append(targets, ctx.Expansion(point).JumpBack(loc, expID)...)
	}
	return targets
}

// DumpUnit writes the text form of a unit. It reports false when the unit
// is unknown.
func DumpUnit(q *QueryRepository, unit int32, w io.Writer) (bool, error) {
	u, err := q.Unit(unit)
	if err != nil || u == nil {
		return false, err
	}
	if _, err := io.WriteString(w, "unit "+q.UnitName(unit)+":\n"); err != nil {
		return true, err
	}
	return true, u.Dump(w, 1)
}
