package store

import (
	"fmt"
	"strconv"
)

// Key addresses one logical entity in the substrate. It is a tagged value:
// two keys address the same slot iff the kind and every segment are equal.
// The struct is comparable, so equality is structural and keys can be used
// directly as map keys in tests and caches.
//
// Segments carrying caller-supplied identifiers are quoted when encoded,
// so no choice of identifier can collide with another kind or with a
// sibling entity ("a/b" vs "a", "b" stay distinct).
type Key struct {
	Kind string
	ID   string
	ID2  string
	Seq  uint32

	hasID  bool
	hasID2 bool
	hasSeq bool
}

// NewKey builds a key with no segments, e.g. a global counter slot.
func NewKey(kind string) Key {
	return Key{Kind: kind}
}

// NewIDKey builds a key addressed by a caller-supplied identifier.
func NewIDKey(kind, id string) Key {
	return Key{Kind: kind, ID: id, hasID: true}
}

// NewIDPairKey builds a key addressed by two caller-supplied identifiers,
// e.g. a (token, principal) balance slot. Each identifier is quoted as its
// own segment, so no choice of identifiers can collide with another pair.
func NewIDPairKey(kind, id, id2 string) Key {
	return Key{Kind: kind, ID: id, ID2: id2, hasID: true, hasID2: true}
}

// NewSeqKey builds a key addressed by a sequence number.
func NewSeqKey(kind string, seq uint32) Key {
	return Key{Kind: kind, Seq: seq, hasSeq: true}
}

// NewIDSeqKey builds a key addressed by an identifier plus a sequence
// number, e.g. the nth payment record of one agreement.
func NewIDSeqKey(kind, id string, seq uint32) Key {
	return Key{Kind: kind, ID: id, Seq: seq, hasID: true, hasSeq: true}
}

// Encode renders the key as the unique storage slot name.
func (k Key) Encode() string {
	s := k.Kind
	if k.hasID {
		s += "/" + strconv.Quote(k.ID)
	}
	if k.hasID2 {
		s += "/" + strconv.Quote(k.ID2)
	}
	if k.hasSeq {
		s += "/" + strconv.FormatUint(uint64(k.Seq), 10)
	}
	return s
}

func (k Key) String() string { return k.Encode() }

// Validate rejects keys that would encode ambiguously.
func (k Key) Validate() error {
	if k.Kind == "" {
		return fmt.Errorf("key kind must not be empty")
	}
	return nil
}
