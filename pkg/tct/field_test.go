package tct

import "testing"

func TestHashRoundTrip(t *testing.T) {
	h := leafHash(mustCommitment(t, 42))
	b := h.Bytes()
	got, err := HashFromBytes(b)
	if err != nil {
		t.Fatalf("HashFromBytes: %v", err)
	}
	if !got.Equal(h) {
		t.Fatalf("round trip mismatch: got %s, want %s", got, h)
	}
}

func TestHashFromBytesRejectsNonCanonical(t *testing.T) {
	// All-0xFF is far larger than the BLS12-377 scalar field modulus.
	var b [FqSize]byte
	for i := range b {
		b[i] = 0xFF
	}
	if _, err := HashFromBytes(b); err == nil {
		t.Fatalf("expected non-canonical encoding to be rejected")
	}
}

func TestZeroCommitmentRejected(t *testing.T) {
	var b [FqSize]byte
	if _, err := CommitmentFromBytes(b); err != ErrZeroCommitment {
		t.Fatalf("got err %v, want ErrZeroCommitment", err)
	}
}

func TestNodeHashDomainSeparatesHeight(t *testing.T) {
	a := Zero
	h1 := nodeHash(1, a, a, a, a)
	h2 := nodeHash(2, a, a, a, a)
	if h1.Equal(h2) {
		t.Fatalf("node_hash collided across heights")
	}
}

func TestLeafHashDistinctFromZero(t *testing.T) {
	c := mustCommitment(t, 1)
	if leafHash(c).Equal(Zero) {
		t.Fatalf("leaf_hash(c) must never equal the zero padding value")
	}
}

// mustCommitment builds a small-valued, nonzero commitment for tests.
func mustCommitment(t *testing.T, v uint64) Commitment {
	t.Helper()
	if v == 0 {
		t.Fatalf("test commitment value must be nonzero")
	}
	return Commitment{f: fqFromUint64(v)}
}
