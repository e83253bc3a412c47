package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Short returns the first 12 hex digits, enough to tell inputs apart in logs.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// Fingerprint hashes the exact bit patterns of the given float sequences in
// order. Two analyses with the same fingerprint and seed produce identical
// results.
func Fingerprint(seqs ...[]float64) Hash {
	buf := make([]byte, 0, 64)
	for _, seq := range seqs {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(seq)))
		for _, v := range seq {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
	}
	return NewHash(buf)
}
