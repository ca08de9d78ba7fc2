package tct

import "io"

// Proof is a self-contained inclusion proof: a commitment, the position it
// was witnessed at, and the 24-level authentication path from leaf to
// root. Its fixed-size serialization is documented in serialize.go.
type Proof struct {
	commitment Commitment
	position   Position
	path       AuthPath
}

func (p Proof) Commitment() Commitment { return p.commitment }
func (p Proof) Position() Position     { return p.position }
func (p Proof) AuthPath() AuthPath     { return p.path }

// Verify recomputes the root implied by the proof and checks it against
// root. It fails closed: any mismatch, including a position whose
// WhichWay selectors don't agree with how the path was built, is reported
// as ErrVerifyFailed rather than silently accepted.
func (p Proof) Verify(root Hash) error {
	cur := leafHash(p.commitment)
	pos := uint64(p.position)
	for height := 1; height <= TreeHeight; height++ {
		idx := TreeHeight - height
		sibs := p.path[idx]
		way := whichWay(height, pos)
		var children [4]Hash
		j := 0
		for i := 0; i < 4; i++ {
			if WhichWay(i) == way {
				children[i] = cur
			} else {
				children[i] = sibs[j]
				j++
			}
		}
		cur = nodeHash(height, children[0], children[1], children[2], children[3])
	}
	if !cur.Equal(root) {
		return ErrVerifyFailed
	}
	return nil
}

// DummyProof generates a structurally valid but meaningless proof: a
// random auth path at position 0 for the given commitment. It is useful
// for circuits that need a path-shaped value regardless of actual
// membership (mirrors the original implementation's Proof::dummy).
func DummyProof(rnd io.Reader, commitment Commitment) (Proof, error) {
	var path AuthPath
	for i := range path {
		for j := range path[i] {
			var b [FqSize]byte
			if _, err := io.ReadFull(rnd, b[:]); err != nil {
				return Proof{}, err
			}
			// Reduce into the field unconditionally: a dummy path has no
			// canonicality requirement, only "some field element".
			path[i][j] = Hash{f: fqFromReducedBytes(b)}
		}
	}
	return Proof{commitment: commitment, position: 0, path: path}, nil
}
