package gcj

import (
	"errors"

	"github.com/yuchenkan/gcc-jump/codec"
)

// KeyCodec tells an Interner how to identify and persist its keys.
// Key must return equal strings exactly for equal values.
type KeyCodec[K any] struct {
	Key    func(K) string
	Encode func(*codec.Encoder, K)
	Decode func(*codec.Decoder) K
}

// Interner maps values to dense sequential ids starting at 1. Entries are
// never removed.
type Interner[K any] struct {
	kc   KeyCodec[K]
	ids  map[string]int32
	keys []K
}

// NewInterner returns an empty interner.
func NewInterner[K any](kc KeyCodec[K]) *Interner[K] {
	return &Interner[K]{kc: kc, ids: make(map[string]int32)}
}

// Get returns the id of k, allocating the next one if k is new.
func (in *Interner[K]) Get(k K) int32 {
	s := in.kc.Key(k)
	if id, ok := in.ids[s]; ok {
		return id
	}
	in.keys = append(in.keys, k)
	id := int32(len(in.keys))
	in.ids[s] = id
	return id
}

// Lookup returns the id of k without allocating.
func (in *Interner[K]) Lookup(k K) (int32, bool) {
	id, ok := in.ids[in.kc.Key(k)]
	return id, ok
}

// Contains reports whether id has been allocated.
func (in *Interner[K]) Contains(id int32) bool {
	return id > 0 && int(id) <= len(in.keys)
}

// At returns the value interned under id.
func (in *Interner[K]) At(id int32) (K, error) {
	if !in.Contains(id) {
		var zero K
		return zero, notFoundf("interner at", "id %d of %d", id, len(in.keys))
	}
	return in.keys[id-1], nil
}

// Size returns the number of allocated ids.
func (in *Interner[K]) Size() int32 {
	return int32(len(in.keys))
}

// Encode writes the count followed by every key in id order.
func (in *Interner[K]) Encode(e *codec.Encoder) {
	e.Len(len(in.keys))
	for _, k := range in.keys {
		in.kc.Encode(e, k)
	}
}

// Decode loads keys written by Encode. The interner must be empty.
func (in *Interner[K]) Decode(d *codec.Decoder) {
	if len(in.keys) != 0 {
		d.Fail(errors.New("interner: load into non-empty interner"))
		return
	}
	n := d.Len()
	for i := 0; i < n && d.Err() == nil; i++ {
		in.Get(in.kc.Decode(d))
	}
	if d.Err() == nil && len(in.keys) != n {
		d.Fail(errors.New("interner: duplicate keys in encoding"))
	}
}
