// Package codec reads and writes the store's binary layout: little-endian
// fixed-width 32-bit integers and int32 length-prefixed byte strings.
//
// Encoder and Decoder keep the first error they hit and turn every later
// call into a no-op, so record codecs can write field after field and
// check Err once at the end.
package codec

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrCorrupt reports data that cannot be a valid encoding.
var ErrCorrupt = errors.New("corrupt encoding")

// maxString bounds string lengths read from disk.
const maxString = 1 << 24

// Record is implemented by every persisted entity.
type Record interface {
	Encode(e *Encoder)
	Decode(d *Decoder)
}

// Encoder writes the binary layout.
type Encoder struct {
	w   *bufio.Writer
	buf [4]byte
	err error
}

// NewEncoder returns an encoder writing to w. Call Flush when done.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Int32 writes one little-endian int32.
func (e *Encoder) Int32(v int32) {
	if e.err != nil {
		return
	}
	binary.LittleEndian.PutUint32(e.buf[:], uint32(v))
	_, e.err = e.w.Write(e.buf[:])
}

// Len writes a collection length.
func (e *Encoder) Len(n int) {
	if n > math.MaxInt32 {
		e.fail(fmt.Errorf("length %d overflows int32", n))
		return
	}
	e.Int32(int32(n))
}

// Bool writes a boolean as an int32 0 or 1.
func (e *Encoder) Bool(v bool) {
	if v {
		e.Int32(1)
	} else {
		e.Int32(0)
	}
}

// String writes a length-prefixed byte string.
func (e *Encoder) String(s string) {
	e.Len(len(s))
	if e.err != nil {
		return
	}
	_, e.err = e.w.WriteString(s)
}

// Record writes a nested record.
func (e *Encoder) Record(r Record) {
	if e.err != nil {
		return
	}
	r.Encode(e)
}

func (e *Encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

// Err returns the first error encountered.
func (e *Encoder) Err() error {
	return e.err
}

// Flush writes buffered data and returns the first error encountered.
func (e *Encoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	e.err = e.w.Flush()
	return e.err
}

// Decoder reads the binary layout.
type Decoder struct {
	r   *bufio.Reader
	buf [4]byte
	err error
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Int32 reads one little-endian int32.
func (d *Decoder) Int32() int32 {
	if d.err != nil {
		return 0
	}
	if _, err := io.ReadFull(d.r, d.buf[:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		d.err = err
		return 0
	}
	return int32(binary.LittleEndian.Uint32(d.buf[:]))
}

// Len reads a collection length and rejects negative values.
func (d *Decoder) Len() int {
	n := d.Int32()
	if n < 0 {
		d.Fail(fmt.Errorf("%w: negative length %d", ErrCorrupt, n))
		return 0
	}
	return int(n)
}

// Bool reads an int32 boolean.
func (d *Decoder) Bool() bool {
	return d.Int32() != 0
}

// String reads a length-prefixed byte string.
func (d *Decoder) String() string {
	n := d.Len()
	if d.err != nil || n == 0 {
		return ""
	}
	if n > maxString {
		d.Fail(fmt.Errorf("%w: string length %d", ErrCorrupt, n))
		return ""
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		d.err = err
		return ""
	}
	return string(b)
}

// Record reads a nested record.
func (d *Decoder) Record(r Record) {
	if d.err != nil {
		return
	}
	r.Decode(d)
}

// Fail records err unless an earlier error is already set.
func (d *Decoder) Fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

// Err returns the first error encountered.
func (d *Decoder) Err() error {
	return d.err
}

// Done reports an error if the stream has bytes left after the last record.
func (d *Decoder) Done() error {
	if d.err != nil {
		return d.err
	}
	if _, err := d.r.Peek(1); err == nil {
		d.err = fmt.Errorf("%w: trailing data", ErrCorrupt)
	}
	return d.err
}
