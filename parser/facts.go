// Package parser decodes the JSON-lines fact stream a compiler front end
// emits and replays it into a repository.
package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Op names one kind of fact.
type Op string

const (
	OpUnit      Op = "unit"
	OpJump      Op = "jump"
	OpExpansion Op = "expansion"
	OpToken     Op = "token"
	OpDeclare   Op = "declare"
	OpDefine    Op = "define"
)

// Fact is one line of the stream. Which fields apply depends on Op.
type Fact struct {
	Op Op `json:"op"`

	// unit
	Args  string `json:"args,omitempty"`
	Input string `json:"input,omitempty"`

	// jump, expansion: From is the referring token and To what it
	// resolves to. Len is the length of a literal From token.
	From *Site `json:"from,omitempty"`
	To   *Site `json:"to,omitempty"`
	Len  int32 `json:"len,omitempty"`

	// token: Text was produced by the invocation covering At under the
	// macro nesting Macro (innermost first).
	At    *Site   `json:"at,omitempty"`
	Text  string  `json:"text,omitempty"`
	Macro []Point `json:"macro,omitempty"`

	// declare, define
	Name   string `json:"name,omitempty"`
	Public bool   `json:"public,omitempty"`
	Weak   bool   `json:"weak,omitempty"`
	Init   bool   `json:"init,omitempty"`
}

// Site is a location in a context: an include chain, an optional macro
// invocation inside it, and a position.
type Site struct {
	Include []string `json:"include"`
	Point   *Point   `json:"point,omitempty"`
	Line    int32    `json:"line"`
	Col     int32    `json:"col"`
	// ExpID selects an expanded token instance; 0 means a literal span.
	ExpID int32 `json:"expid,omitempty"`
}

// Point is a macro invocation: where it starts, within an include chain.
type Point struct {
	Include []string `json:"include"`
	File    string   `json:"file"`
	Line    int32    `json:"line"`
	Col     int32    `json:"col"`
}

// chainEntry is one parsed element of an include chain.
type chainEntry struct {
	file string
	line int32
}

// parseChain parses "file" and "file:line" entries. The innermost entry
// must not carry a line; every enclosing one must.
func parseChain(chain []string, base string) ([]chainEntry, error) {
	if len(chain) == 0 {
		return nil, errors.New("empty include chain")
	}
	entries := make([]chainEntry, len(chain))
	for i, s := range chain {
		file, line := s, int64(0)
		if j := strings.LastIndexByte(s, ':'); j > 0 {
			if n, err := strconv.ParseInt(s[j+1:], 10, 32); err == nil {
				file, line = s[:j], n
			}
		}
		if i == 0 && line != 0 {
			return nil, fmt.Errorf("innermost include %q has a line", s)
		}
		if i > 0 && line == 0 {
			return nil, fmt.Errorf("enclosing include %q has no line", s)
		}
		entries[i] = chainEntry{file: resolve(base, file), line: int32(line)}
	}
	return entries, nil
}

func resolve(base, file string) string {
	if base == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(base, file)
}
