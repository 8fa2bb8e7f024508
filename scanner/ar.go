package scanner

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"

	"github.com/blakesmith/ar"
)

var errThinArchive = errors.New("thin archives are not supported")

// arFormat reads static libraries. Every ELF member carrying the section
// contributes its ids; other members are skipped.
type arFormat struct{}

func init() {
	Register(arFormat{})
	Register(thinArFormat{})
}

func (arFormat) Name() string { return "ar" }

func (arFormat) Magic() []byte { return []byte("!<arch>\n") }

func (arFormat) Units(r io.ReaderAt, size int64, section string) ([]int32, error) {
	rd := ar.NewReader(io.NewSectionReader(r, 0, size))
	var ids []int32
	found := false
	for {
		hdr, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read archive: %w", err)
		}

		body, err := io.ReadAll(rd)
		if err != nil {
			return nil, fmt.Errorf("read member %s: %w", hdr.Name, err)
		}
		if !bytes.HasPrefix(body, []byte(elf.ELFMAG)) {
			continue
		}

		member, err := elfFormat{}.Units(bytes.NewReader(body), int64(len(body)), section)
		if errors.Is(err, ErrNoSection) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", hdr.Name, err)
		}
		ids = append(ids, member...)
		found = true
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", section, ErrNoSection)
	}
	return ids, nil
}

// thinArFormat recognizes thin archives only to reject them: their
// members live in separate files.
type thinArFormat struct{}

func (thinArFormat) Name() string { return "thin-ar" }

func (thinArFormat) Magic() []byte { return []byte("!<thin>\n") }

func (thinArFormat) Units(io.ReaderAt, int64, string) ([]int32, error) {
	return nil, errThinArchive
}
