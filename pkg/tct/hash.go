package tct

import "crypto/sha256"

// Hash is a node value in the tree: either a commitment's leaf hash or the
// hash of an internal node. It is always a canonical field element.
type Hash struct {
	f fq
}

// Zero is the fixed padding value used for children that have not yet been
// reached by an insert (the frontier's not-yet-filled slots and the empty
// slots of a tier closed early). Forgotten leaves keep their leaf hash, not
// Zero. Because node_hash
// domain-separates on height, a single fixed Zero is safe to reuse at every
// level: node_hash(h, ..., Zero, ...) cannot collide with node_hash(h', ...)
// for h != h', and leaf_hash(c) never equals Zero because commitments are
// required to be nonzero (see validateCommitment).
var Zero = Hash{f: fqFromUint64(0)}

// HashFromBytes decodes a hash from its canonical 32-byte little-endian
// encoding.
func HashFromBytes(b [FqSize]byte) (Hash, error) {
	f, err := fqFromCanonicalBytes(b)
	if err != nil {
		return Hash{}, err
	}
	return Hash{f: f}, nil
}

// Bytes encodes the hash as 32 canonical little-endian bytes.
func (h Hash) Bytes() [FqSize]byte { return h.f.bytes() }

func (h Hash) Equal(o Hash) bool { return h.f.equal(o.f) }

func (h Hash) String() string { return h.f.String() }

// domain separators, one per tree height plus one for leaves. Derived once
// at init time by hashing a label into the field; the exact derivation is
// implementation-defined (spec Open Question: "exact preimage used for
// domain separation is not specified").
var (
	leafDomSep  fq
	nodeDomSeps [TreeHeight + 1]fq // indexed by height, 1..TreeHeight
)

func init() {
	leafDomSep = hashToFq("penumbra.tct.leaf")
	for h := 1; h <= TreeHeight; h++ {
		nodeDomSeps[h] = hashToFq(domSepLabel(h))
	}
}

func domSepLabel(height int) string {
	const alphabet = "0123456789"
	label := "penumbra.tct.node."
	if height == 0 {
		return label + "0"
	}
	var digits []byte
	for height > 0 {
		digits = append([]byte{alphabet[height%10]}, digits...)
		height /= 10
	}
	return label + string(digits)
}

// hashToFq maps an arbitrary label to a field element via SHA-256. This is
// only used to derive fixed, public domain-separation constants; it is not
// part of the accumulator's cryptographic hash function. SHA-256's output is
// uniform over 2^256 while the field is about 253 bits, so a strict
// canonical decode would reject most heights; reduction mod p is correct
// here since these constants have no canonicality requirement, only
// fixed-and-distinct-per-height.
func hashToFq(label string) fq {
	sum := sha256.Sum256([]byte(label))
	var le [FqSize]byte
	copy(le[:], sum[:])
	f := fqFromReducedBytes(le)
	if f.isZero() {
		// astronomically unlikely; avoid a zero domain separator anyway.
		return fqFromUint64(1)
	}
	return f
}

// leafHash is the hash of a single commitment at the leaf level.
func leafHash(c Commitment) Hash {
	return Hash{f: spongeCompress(leafDomSep, c.f, fqFromUint64(0), fqFromUint64(0), fqFromUint64(0))}
}

// nodeHash combines a height and four children into this node's hash.
// height is the height of the node being hashed (1 for the lowest internal
// level, TreeHeight for the root).
func nodeHash(height int, a, b, c, d Hash) Hash {
	return Hash{f: spongeCompress(nodeDomSeps[height], a.f, b.f, c.f, d.f)}
}
