package scanner

import (
	"debug/elf"
	"fmt"
	"io"
)

type elfFormat struct{}

func init() {
	Register(elfFormat{})
}

func (elfFormat) Name() string { return "elf" }

func (elfFormat) Magic() []byte { return []byte(elf.ELFMAG) }

func (elfFormat) Units(r io.ReaderAt, _ int64, section string) ([]int32, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sec := f.Section(section)
	if sec == nil {
		return nil, fmt.Errorf("%s: %w", section, ErrNoSection)
	}
	data, err := sec.Data()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", section, err)
	}
	return decodeUnits(data, f.ByteOrder)
}
