// Package objtest writes minimal object files and archives carrying a
// unit list, for tests.
package objtest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"time"

	"github.com/blakesmith/ar"
)

const (
	headerSize  = 64
	sectionSize = 64
)

// Units encodes ids the way the plugin writes them into its section.
func Units(ids ...int32) []byte {
	buf := make([]byte, 4*len(ids))
	for i, id := range ids {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(id))
	}
	return buf
}

// ELF returns a little-endian ELF64 relocatable object with one
// PROGBITS section named section holding data. An empty section name
// yields an object without it.
func ELF(section string, data []byte) []byte {
	var shstrtab bytes.Buffer
	shstrtab.WriteByte(0)
	nameOff := uint32(shstrtab.Len())
	shstrtab.WriteString(section)
	shstrtab.WriteByte(0)
	strOff := uint32(shstrtab.Len())
	shstrtab.WriteString(".shstrtab")
	shstrtab.WriteByte(0)

	dataOff := uint64(headerSize)
	strtabOff := dataOff + uint64(len(data))
	shoff := align8(strtabOff + uint64(shstrtab.Len()))

	sections := []elf.Section64{{}}
	if section != "" {
		sections = append(sections, elf.Section64{
			Name:      nameOff,
			Type:      uint32(elf.SHT_PROGBITS),
			Off:       dataOff,
			Size:      uint64(len(data)),
			Addralign: 1,
		})
	}
	sections = append(sections, elf.Section64{
		Name:      strOff,
		Type:      uint32(elf.SHT_STRTAB),
		Off:       strtabOff,
		Size:      uint64(shstrtab.Len()),
		Addralign: 1,
	})

	hdr := elf.Header64{
		Type:      uint16(elf.ET_REL),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     shoff,
		Ehsize:    headerSize,
		Shentsize: sectionSize,
		Shnum:     uint16(len(sections)),
		Shstrndx:  uint16(len(sections) - 1),
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	var out bytes.Buffer
	_ = binary.Write(&out, binary.LittleEndian, hdr)
	out.Write(data)
	out.Write(shstrtab.Bytes())
	out.Write(make([]byte, shoff-uint64(out.Len())))
	for _, s := range sections {
		_ = binary.Write(&out, binary.LittleEndian, s)
	}
	return out.Bytes()
}

func align8(n uint64) uint64 {
	return (n + 7) &^ 7
}

// Member is one archive entry.
type Member struct {
	Name string
	Body []byte
}

// Archive returns a System V ar archive of members.
func Archive(members ...Member) ([]byte, error) {
	var out bytes.Buffer
	w := ar.NewWriter(&out)
	if err := w.WriteGlobalHeader(); err != nil {
		return nil, err
	}
	for _, m := range members {
		hdr := &ar.Header{
			Name:    m.Name,
			ModTime: time.Unix(0, 0),
			Mode:    0o644,
			Size:    int64(len(m.Body)),
		}
		if err := w.WriteHeader(hdr); err != nil {
			return nil, err
		}
		if _, err := w.Write(m.Body); err != nil {
			return nil, err
		}
	}
	return out.Bytes(), nil
}
