// Copyright 2025 Certen Protocol
//
// Field element wrapper for the Tiered Commitment Tree.
// Every commitment and hash in the tree is an element of the BLS12-377
// scalar field; this file and sponge.go are the only places that talk to
// gnark-crypto.

package tct

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

// FqSize is the canonical wire size, in bytes, of a field element.
const FqSize = 32

// fq is a BLS12-377 scalar field element. It is the common representation
// shared by Commitment and Hash; those two types exist only to keep the two
// roles distinct at the type level.
type fq struct {
	inner fr.Element
}

func fqFromUint64(v uint64) fq {
	var f fq
	f.inner.SetUint64(v)
	return f
}

// fqFromCanonicalBytes decodes a little-endian 32-byte encoding, rejecting
// any value that is not the canonical (reduced) representative - i.e. any
// encoding of a value greater than or equal to the field modulus.
func fqFromCanonicalBytes(b [FqSize]byte) (fq, error) {
	be := reverse(b)
	var f fq
	f.inner.SetBytes(be[:])
	// SetBytes silently reduces mod p; re-encoding tells us whether the
	// input was already canonical.
	if f.inner.Bytes() != be {
		return fq{}, fmt.Errorf("non-canonical field element encoding")
	}
	return f, nil
}

// fqFromReducedBytes decodes a little-endian 32-byte value by reducing it
// modulo the field order, accepting any input including values that exceed
// the modulus. Used only where a fixed, well-defined field element is needed
// from arbitrary bytes and canonicality of the source encoding is not a
// requirement (domain separator derivation, dummy proof material).
func fqFromReducedBytes(b [FqSize]byte) fq {
	be := reverse(b)
	var f fq
	f.inner.SetBytes(be[:])
	return f
}

func (f fq) bytes() [FqSize]byte {
	be := f.inner.Bytes()
	return reverse(be)
}

func (f fq) equal(other fq) bool {
	return f.inner.Equal(&other.inner)
}

func (f fq) isZero() bool {
	return f.inner.IsZero()
}

func (f fq) String() string {
	return f.inner.String()
}

func reverse(b [FqSize]byte) [FqSize]byte {
	var out [FqSize]byte
	for i := 0; i < FqSize; i++ {
		out[i] = b[FqSize-1-i]
	}
	return out
}
