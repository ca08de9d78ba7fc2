package tct

import "errors"

// Sentinel errors for the accumulator's failure taxonomy (spec 4.11, 7).
// Following the teacher's convention (pkg/merkle/tree.go, pkg/ledger),
// callers wrap these with fmt.Errorf("%w: ...") for context rather than
// reaching for an external errors package.
var (
	// ErrFull is returned by Insert, EndBlock, and EndEpoch when the tree,
	// the current block, or the current epoch has no remaining capacity.
	ErrFull = errors.New("tct: capacity exhausted")

	// ErrZeroCommitment is returned when a caller attempts to insert the
	// zero field element as a commitment. Zero is reserved as the
	// accumulator's padding value; a zero-valued commitment would be
	// indistinguishable from an empty slot.
	ErrZeroCommitment = errors.New("tct: commitment must be nonzero")

	// ErrNotFound is returned by Witness when the commitment is not
	// currently tracked by the tree (never inserted, already forgotten, or
	// inserted with Forget in the first place). Forget reports the same
	// condition by returning false.
	ErrNotFound = errors.New("tct: commitment not found")

	// ErrVerifyFailed is returned by Proof.Verify when the recomputed root
	// does not match the claimed root, or the proof's position does not
	// agree with its auth path.
	ErrVerifyFailed = errors.New("tct: proof verification failed")

	// ErrDecode is returned by deserialization routines on malformed or
	// non-canonical input.
	ErrDecode = errors.New("tct: decode error")
)
