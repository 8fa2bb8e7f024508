package gcj

import (
	"log/slog"

	"github.com/yuchenkan/gcc-jump/types"
)

// Session builds one unit. It is valid until the repository moves on to
// the next unit, finalizes or closes.
type Session struct {
	unit *Unit
	log  *slog.Logger

	// unit-local symbols, resolved against each other when the unit is
	// finalized
	localDecls map[string][]Declaration
	localDefs  map[string]Definition
}

func newSession(u *Unit, log *slog.Logger) *Session {
	return &Session{
		unit:       u,
		log:        log,
		localDecls: make(map[string][]Declaration),
		localDefs:  make(map[string]Definition),
	}
}

// ID returns the unit id.
func (s *Session) ID() int32 { return s.unit.ID }

// Unit returns the unit under construction.
func (s *Session) Unit() *Unit { return s.unit }

// FileID interns a file path.
func (s *Session) FileID(path string) int32 { return s.unit.FileID(path) }

// InternInclude interns an include chain.
func (s *Session) InternInclude(stack types.SourceStack) int32 {
	return s.unit.InternInclude(stack)
}

// InternPoint interns a macro invocation point.
func (s *Session) InternPoint(point types.ExpansionPoint) int32 {
	return s.unit.InternPoint(point)
}

// Context returns the context addressed by (include, point).
func (s *Session) Context(include, point int32) *Context {
	return s.unit.Context(include, point)
}

// AddJump records a jump in the context addressed by ref.
func (s *Session) AddJump(ref types.ContextRef, key types.JumpKey, target types.JumpTarget) error {
	if err := s.unit.AddJump(ref, key, target); err != nil {
		return err
	}
	s.log.Debug("jump", "include", ref.Include, "point", ref.Point,
		"line", key.Loc.Line, "col", key.Loc.Col, "len", key.Len, "exp", key.ExpID,
		"to_unit", target.Unit, "to_include", target.Include, "to_point", target.Point,
		"to_line", target.Loc.Line, "to_col", target.Loc.Col)
	return nil
}

// NewExpansion allocates an expansion record.
func (s *Session) NewExpansion() int32 { return s.unit.NewExpansion() }

// AddToken appends a token produced by the macro invocation at loc in
// the include-level context include. It reports false when no
// invocation covering loc originates an expansion.
func (s *Session) AddToken(include int32, loc types.FileLocation, text string, fp int32) bool {
	target, _, ok := s.unit.Lookup(types.ContextRef{Include: include}, loc, 0)
	if !ok || target.Exp == 0 {
		s.log.Warn("token without expansion", "token", text,
			"include", include, "line", loc.Line, "col", loc.Col)
		return false
	}
	s.unit.Expansion(target.Exp).AddToken(text, fp)
	return true
}

// DeclarePublic records a declaration with external linkage.
func (s *Session) DeclarePublic(name string, include int32, key types.JumpKey) {
	s.unit.DeclarePublic(name, include, key)
}

// DefinePublic records a definition with external linkage.
func (s *Session) DefinePublic(name string, def Definition) {
	s.unit.DefinePublic(name, def)
}

// DeclareLocal records a declaration with internal linkage.
func (s *Session) DeclareLocal(name string, include int32, key types.JumpKey) {
	s.localDecls[name] = append(s.localDecls[name], Declaration{Include: include, Key: key})
}

// DefineLocal records a definition with internal linkage.
func (s *Session) DefineLocal(name string, def Definition) {
	defineSymbol(s.localDefs, name, def)
}

// finish links local declarations to local definitions of the same name.
func (s *Session) finish() error {
	for _, name := range sortedNames(s.localDecls) {
		def, ok := s.localDefs[name]
		if !ok {
			continue
		}
		for _, decl := range s.localDecls[name] {
			if err := s.unit.AddJump(types.ContextRef{Include: decl.Include}, decl.Key, def.Target); err != nil {
				return err
			}
		}
	}
	return nil
}
