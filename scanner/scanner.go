package scanner

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
)

// DefaultSection is the section the plugin writes unit ids to.
const DefaultSection = ".GCJ.plugin"

var (
	// ErrMalformedSection reports a unit list whose length is not a
	// multiple of 4.
	ErrMalformedSection = errors.New("invalid gcj section length")

	// ErrNoSection reports an object without a unit list.
	ErrNoSection = errors.New("section not found")

	// ErrUnknownFormat reports a file no registered format recognizes.
	ErrUnknownFormat = errors.New("unknown object format")
)

// Units returns the sorted, unique unit ids embedded in the object or
// archive at path.
func Units(path, section string) ([]int32, error) {
	if section == "" {
		section = DefaultSection
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	head := make([]byte, 8)
	n, err := f.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	format := ByMagic(head[:n])
	if format == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}

	ids, err := format.Units(f, info.Size(), section)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// decodeUnits splits a section body into 4-byte ids.
func decodeUnits(data []byte, order binary.ByteOrder) ([]int32, error) {
	if len(data)%4 != 0 {
		return nil, ErrMalformedSection
	}
	ids := make([]int32, 0, len(data)/4)
	for i := 0; i < len(data); i += 4 {
		ids = append(ids, int32(order.Uint32(data[i:i+4])))
	}
	return ids, nil
}
