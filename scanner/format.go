// Package scanner reads the unit-id list that the compiler plugin embeds
// into compiled objects.
package scanner

import (
	"io"
	"sort"
)

// Format is an object file format that can carry embedded unit lists.
type Format interface {
	// Name returns the format identifier (e.g., "elf", "ar").
	Name() string

	// Magic returns the leading bytes that identify the format.
	Magic() []byte

	// Units returns the unit ids found in section, in file order and
	// possibly repeated.
	Units(r io.ReaderAt, size int64, section string) ([]int32, error)
}

// registry holds all registered formats.
var registry = make(map[string]Format)

// Register adds a format to the registry.
// This is typically called from init() functions in format implementation files.
func Register(f Format) {
	registry[f.Name()] = f
}

// Get returns a format by name, or nil if not found.
func Get(name string) Format {
	return registry[name]
}

// List returns all registered format names in sorted order.
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByMagic finds the format whose magic prefixes head.
func ByMagic(head []byte) Format {
	for _, name := range List() {
		f := registry[name]
		magic := f.Magic()
		if len(head) >= len(magic) && string(head[:len(magic)]) == string(magic) {
			return f
		}
	}
	return nil
}
