package gcj

import (
	"io"
	"log/slog"
	"runtime"
)

// Option configures a Repository or QueryRepository.
type Option func(*options)

type options struct {
	logger *slog.Logger
	dump   io.Writer
	jobs   int
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.jobs < 1 {
		o.jobs = runtime.NumCPU()
	}
	return o
}

// WithLogger routes trace output to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithDump writes the text form of every finalized unit to w.
func WithDump(w io.Writer) Option {
	return func(o *options) { o.dump = w }
}

// WithJobs bounds the number of units decoded in parallel while a
// link-set is built. Values below 1 mean runtime.NumCPU().
func WithJobs(n int) Option {
	return func(o *options) { o.jobs = n }
}

// ListOptions configures the ListUnits function.
type ListOptions struct {
	// Object is a compiled object or archive whose embedded unit list
	// selects the units and names the link-set.
	// If empty, every known unit is listed and no link-set is built.
	Object string

	// Section is the section holding the embedded unit list.
	// Defaults to ".GCJ.plugin".
	Section string

	// Match filters units by name with a doublestar glob.
	// Filtering does not change the link-set membership.
	Match string
}

// ExpandOptions configures the Expand function.
type ExpandOptions struct {
	// Unit is the unit id (required).
	Unit int32

	// Include is the include id of the queried context (required).
	Include int32

	// Point is the expansion context inside Include.
	// If 0, the include-level context is used.
	Point int32

	// Line and Col locate the macro invocation.
	Line int32
	Col  int32
}

// JumpOptions configures the Jump function.
type JumpOptions struct {
	// LinkSet is the link-set id consulted when the unit alone has no
	// answer. If 0, only the unit is searched.
	LinkSet int32

	// Unit is the unit id (required).
	Unit int32

	// Include is the include id of the queried context (required).
	Include int32

	// Point is the expansion context inside Include.
	// If 0, the include-level context is used.
	Point int32

	Line int32
	Col  int32

	// ExpID selects one expanded token instance.
	// If 0, the location is matched against literal token spans.
	ExpID int32
}

// ReferOptions configures the Refer function.
type ReferOptions struct {
	// LinkSet widens the search to every member sharing the queried file.
	// If 0, only the unit is searched.
	LinkSet int32

	// Unit is the unit id (required).
	Unit int32

	// Include is the include id whose innermost file is searched
	// (required).
	Include int32

	Line  int32
	Col   int32
	ExpID int32
}
