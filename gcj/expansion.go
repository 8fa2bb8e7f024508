package gcj

import (
	"github.com/yuchenkan/gcc-jump/codec"
	"github.com/yuchenkan/gcc-jump/types"
)

// Token is one spelled token produced by a macro expansion. ID is the
// expansion-local id of the macro nesting the token was produced under.
type Token struct {
	Text string
	ID   int32
}

// Expansion records the tokens one macro invocation expanded to.
type Expansion struct {
	fingerprints *Interner[int32]
	tokens       []Token
}

func newExpansion() *Expansion {
	return &Expansion{fingerprints: NewInterner(int32Keys)}
}

// Intern returns the small id of fp inside this expansion.
func (x *Expansion) Intern(fp int32) int32 {
	return x.fingerprints.Get(fp)
}

// InternStack interns the fingerprint of stack.
func (x *Expansion) InternStack(stack types.MacroStack) int32 {
	return x.Intern(stack.Fingerprint())
}

// AddToken appends a token in emission order.
func (x *Expansion) AddToken(text string, fp int32) {
	x.tokens = append(x.tokens, Token{Text: text, ID: x.Intern(fp)})
}

// ID returns the id of fp, or 0 when no token carried it.
func (x *Expansion) ID(fp int32) int32 {
	id, _ := x.fingerprints.Lookup(fp)
	return id
}

// Tokens returns the tokens in emission order.
func (x *Expansion) Tokens() []Token {
	return x.tokens
}

// Encode writes the fingerprint interner followed by the tokens.
func (x *Expansion) Encode(e *codec.Encoder) {
	e.Record(x.fingerprints)
	e.Len(len(x.tokens))
	for _, t := range x.tokens {
		e.String(t.Text)
		e.Int32(t.ID)
	}
}

// Decode reads an expansion written by Encode.
func (x *Expansion) Decode(d *codec.Decoder) {
	d.Record(x.fingerprints)
	n := d.Len()
	for i := 0; i < n && d.Err() == nil; i++ {
		text := d.String()
		x.tokens = append(x.tokens, Token{Text: text, ID: d.Int32()})
	}
}
