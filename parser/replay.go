package parser

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/yuchenkan/gcc-jump/gcj"
	"github.com/yuchenkan/gcc-jump/types"
)

// maxLine bounds one fact.
const maxLine = 16 << 20

// Options configures Replay.
type Options struct {
	// BaseDir resolves relative file names in the stream.
	// If empty, names are used as given.
	BaseDir string

	// Logger receives one debug record per unit.
	// If nil, nothing is logged.
	Logger *slog.Logger
}

// Replay reads facts from r and feeds them to repo, then closes repo.
// Lines that are blank or start with '#' are ignored.
func Replay(r io.Reader, repo *gcj.Repository, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	p := &replayer{repo: repo, base: opts.BaseDir, log: opts.Logger}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 || text[0] == '#' {
			continue
		}

		var f Fact
		dec := json.NewDecoder(bytes.NewReader(text))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := p.apply(&f); err != nil {
			return fmt.Errorf("line %d: %s: %w", line, f.Op, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read facts: %w", err)
	}
	return repo.Close()
}

type replayer struct {
	repo    *gcj.Repository
	session *gcj.Session
	base    string
	log     *slog.Logger
	facts   int
}

var errNoUnit = errors.New("fact before the first unit")

func (p *replayer) apply(f *Fact) error {
	if f.Op == OpUnit {
		return p.unit(f)
	}
	if p.session == nil {
		return errNoUnit
	}
	p.facts++

	switch f.Op {
	case OpJump:
		return p.jump(f, false)
	case OpExpansion:
		return p.jump(f, true)
	case OpToken:
		return p.token(f)
	case OpDeclare:
		return p.declare(f)
	case OpDefine:
		return p.define(f)
	default:
		return fmt.Errorf("unknown op %q", f.Op)
	}
}

func (p *replayer) unit(f *Fact) error {
	if f.Input == "" {
		return errors.New("unit needs an input")
	}
	args := f.Args
	if args == "" {
		args = f.Input
	}
	if p.session != nil {
		p.log.Debug("unit replayed", "id", p.session.ID(), "facts", p.facts)
	}
	s, err := p.repo.Next(args, resolve(p.base, f.Input))
	if err != nil {
		return err
	}
	p.session = s
	p.facts = 0
	return nil
}

func (p *replayer) jump(f *Fact, expansion bool) error {
	if f.From == nil || f.To == nil {
		return errors.New("from and to are required")
	}
	ref, key, err := p.key(f.From, f.Len)
	if err != nil {
		return err
	}
	target, err := p.target(f.To)
	if err != nil {
		return err
	}
	// Only outermost invocations own an expansion record. A key seen
	// before keeps the record it was given.
	if expansion && ref.Point == 0 {
		target.Exp = p.expansionOf(ref, key)
	}
	return p.session.AddJump(ref, key, target)
}

func (p *replayer) expansionOf(ref types.ContextRef, key types.JumpKey) int32 {
	if ctx := p.session.Unit().ContextAt(ref); ctx != nil {
		if old, ok := ctx.Get(key); ok {
			return old.Exp
		}
	}
	return p.session.NewExpansion()
}

func (p *replayer) token(f *Fact) error {
	if f.At == nil {
		return errors.New("at is required")
	}
	ref, err := p.ref(f.At)
	if err != nil {
		return err
	}
	macro := make(types.MacroStack, 0, len(f.Macro))
	for i := range f.Macro {
		point, err := p.point(&f.Macro[i])
		if err != nil {
			return err
		}
		macro = append(macro, point)
	}
	loc := types.FileLocation{Line: f.At.Line, Col: f.At.Col}
	p.session.AddToken(ref.Include, loc, f.Text, macro.Fingerprint())
	return nil
}

func (p *replayer) declare(f *Fact) error {
	if f.Name == "" || f.At == nil {
		return errors.New("name and at are required")
	}
	ref, key, err := p.key(f.At, int32(len(f.Name)))
	if err != nil {
		return err
	}
	if f.Public {
		p.session.DeclarePublic(f.Name, ref.Include, key)
	} else {
		p.session.DeclareLocal(f.Name, ref.Include, key)
	}
	return nil
}

func (p *replayer) define(f *Fact) error {
	if f.Name == "" || f.At == nil {
		return errors.New("name and at are required")
	}
	target, err := p.target(f.At)
	if err != nil {
		return err
	}
	def := gcj.Definition{Target: target, Weak: f.Weak, Init: f.Init}
	if f.Public {
		p.session.DefinePublic(f.Name, def)
	} else {
		p.session.DefineLocal(f.Name, def)
	}
	return nil
}

// include interns a chain.
func (p *replayer) include(chain []string) (int32, error) {
	entries, err := parseChain(chain, p.base)
	if err != nil {
		return 0, err
	}
	stack := make(types.SourceStack, len(entries))
	for i, e := range entries {
		stack[i] = types.SourceLocation{
			File: p.session.FileID(e.file),
			Loc:  types.FileLocation{Line: e.line},
		}
	}
	return p.session.InternInclude(stack), nil
}

func (p *replayer) point(pt *Point) (types.ExpansionPoint, error) {
	include, err := p.include(pt.Include)
	if err != nil {
		return types.ExpansionPoint{}, err
	}
	return types.ExpansionPoint{
		Include: include,
		Loc: types.SourceLocation{
			File: p.session.FileID(resolve(p.base, pt.File)),
			Loc:  types.FileLocation{Line: pt.Line, Col: pt.Col},
		},
	}, nil
}

func (p *replayer) ref(s *Site) (types.ContextRef, error) {
	include, err := p.include(s.Include)
	if err != nil {
		return types.ContextRef{}, err
	}
	ref := types.ContextRef{Include: include}
	if s.Point != nil {
		point, err := p.point(s.Point)
		if err != nil {
			return types.ContextRef{}, err
		}
		ref.Point = p.session.InternPoint(point)
	}
	return ref, nil
}

func (p *replayer) key(s *Site, length int32) (types.ContextRef, types.JumpKey, error) {
	ref, err := p.ref(s)
	if err != nil {
		return types.ContextRef{}, types.JumpKey{}, err
	}
	loc := types.FileLocation{Line: s.Line, Col: s.Col}
	if s.ExpID != 0 {
		return ref, types.Expanded(loc, s.ExpID), nil
	}
	return ref, types.Span(loc, length), nil
}

func (p *replayer) target(s *Site) (types.JumpTarget, error) {
	ref, err := p.ref(s)
	if err != nil {
		return types.JumpTarget{}, err
	}
	return types.JumpTarget{
		Unit:    p.session.ID(),
		Include: ref.Include,
		Point:   ref.Point,
		Loc:     types.FileLocation{Line: s.Line, Col: s.Col},
		ExpID:   s.ExpID,
	}, nil
}
