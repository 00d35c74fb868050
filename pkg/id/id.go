// Package id provides domain-separated content identifiers and the
// canonical byte-encoding primitives every other package hashes against.
//
// Identity is BLAKE3 over a domain tag and a label, never over
// wall-clock time or process/address state (I1 in spec.md §3.3).
package id

import (
	"encoding/binary"
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Hash is a 32-byte content digest.
type Hash [32]byte

// IsZero reports whether h is the all-zero hash, used as the "unset" value
// for optional parent/root fields.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Bytes returns the raw 32 bytes.
func (h Hash) Bytes() []byte {
	return h[:]
}

// Less provides the ascending numeric ordering required by canonical
// iteration (I2): compare raw bytes left to right.
func (h Hash) Less(o Hash) bool {
	for i := range h {
		if h[i] != o[i] {
			return h[i] < o[i]
		}
	}
	return false
}

// NodeId, EdgeId, TypeId and WarpId are newtypes over Hash so the compiler
// rejects accidentally mixing id spaces (I7).
type (
	NodeId Hash
	EdgeId Hash
	TypeId Hash
	WarpId Hash
)

func (n NodeId) Hash() Hash { return Hash(n) }
func (e EdgeId) Hash() Hash { return Hash(e) }
func (t TypeId) Hash() Hash { return Hash(t) }
func (w WarpId) Hash() Hash { return Hash(w) }

func (n NodeId) Less(o NodeId) bool { return Hash(n).Less(Hash(o)) }
func (e EdgeId) Less(o EdgeId) bool { return Hash(e).Less(Hash(o)) }
func (w WarpId) Less(o WarpId) bool { return Hash(w).Less(Hash(o)) }

// MakeID hashes domain || label with BLAKE3, producing a 32-byte digest.
// domain is a short ASCII tag such as "node:" or "rule:"; label is the
// caller-supplied distinguishing bytes for that domain.
func MakeID(domain string, label []byte) Hash {
	h := blake3.New(32, nil)
	h.Write([]byte(domain))
	h.Write(label)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Hash256 is Echo's content hash over encoded bytes: BLAKE3 with a 32-byte
// output. MakeID calls BLAKE3 directly as well, so substituting a different
// 256-bit hash means changing both functions.
func Hash256(b []byte) Hash {
	sum := blake3.Sum256(b)
	return Hash(sum)
}

// String renders the hash as lowercase hex, for CLI output and log lines.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// PutUint64LE appends a little-endian u64, the length-prefix format used by
// every canonical list/map encoding (§4.1, §4.8: "all length prefixes are
// u64 little-endian").
func PutUint64LE(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}
