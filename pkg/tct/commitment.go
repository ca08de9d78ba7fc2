package tct

// Commitment identifies a single inserted item. It wraps the same
// underlying field element type as Hash, but the two are kept distinct so
// that a Commitment can never be passed somewhere a node Hash is expected
// and vice versa.
type Commitment struct {
	f fq
}

// CommitmentFromBytes decodes a commitment from its canonical 32-byte
// little-endian encoding.
func CommitmentFromBytes(b [FqSize]byte) (Commitment, error) {
	f, err := fqFromCanonicalBytes(b)
	if err != nil {
		return Commitment{}, err
	}
	c := Commitment{f: f}
	if err := validateCommitment(c); err != nil {
		return Commitment{}, err
	}
	return c, nil
}

// Bytes encodes the commitment as 32 canonical little-endian bytes.
func (c Commitment) Bytes() [FqSize]byte { return c.f.bytes() }

func (c Commitment) Equal(o Commitment) bool { return c.f.equal(o.f) }

func (c Commitment) String() string { return c.f.String() }

// validateCommitment enforces the requirement, implicit in the spec's
// choice of Zero as the padding value, that no real commitment is ever the
// zero field element - otherwise a forgotten/empty slot would be
// indistinguishable from a genuine leaf.
func validateCommitment(c Commitment) error {
	if c.f.isZero() {
		return ErrZeroCommitment
	}
	return nil
}
