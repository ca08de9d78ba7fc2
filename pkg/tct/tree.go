package tct

import "sync"

// Witness is the marker supplied with every insert, controlling whether the
// commitment's ancestry is retained for later proof generation.
type Witness bool

const (
	// Keep retains the commitment's full ancestry so it can later be
	// witnessed, at the cost of the tree holding onto that structure
	// until the commitment is explicitly forgotten.
	Keep Witness = true
	// Forget immediately prunes the commitment's leaf to a bare hash: its
	// contribution to every ancestor's hash is identical to Keep, but it
	// can never be witnessed.
	Forget Witness = false
)

// TierState describes where a tier is in its lifecycle (spec 4.10).
type TierState int

const (
	TierEmpty TierState = iota
	TierBuilding
	TierFinalized
)

// Tree is a Tiered Commitment Tree: a sparse, append-only, 3-tier Merkle
// accumulator. The zero value is not ready to use; call New.
type Tree struct {
	mu sync.RWMutex

	root     node // nil until the first insert; a *frontierNode while live
	full     bool
	position uint64

	index *index

	forgottenCount uint64

	blockDirty bool // true if anything has been inserted since the last EndBlock
	epochDirty bool // true if anything has been inserted since the last EndEpoch
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{index: newIndex()}
}

// Root returns the current root hash. On an empty tree this is the fixed
// hash of an entirely zero-padded tree.
func (t *Tree) Root() Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rootLocked()
}

func (t *Tree) rootLocked() Hash {
	if t.root == nil {
		return nodeHash(TreeHeight, Zero, Zero, Zero, Zero)
	}
	return t.root.Hash()
}

// Position returns the position the next inserted commitment will occupy.
func (t *Tree) Position() Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Position(t.position)
}

// ForgottenCount returns the number of successful Forget calls so far.
func (t *Tree) ForgottenCount() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.forgottenCount
}

// BlockState reports whether the current block is empty or under
// construction. Between EndBlock and the next insert the current block is
// the fresh one, so it reports TierEmpty; TierFinalized is never returned.
func (t *Tree) BlockState() TierState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.blockDirty {
		return TierBuilding
	}
	return TierEmpty
}

// EpochState reports the analogous state for the current epoch.
func (t *Tree) EpochState() TierState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.epochDirty {
		return TierBuilding
	}
	return TierEmpty
}

// Insert adds a single commitment to the tree at the current position,
// advancing the position by one. It fails if the tree has no remaining
// capacity, or if c is the zero commitment.
func (t *Tree) Insert(marker Witness, c Commitment) (Position, error) {
	if err := validateCommitment(c); err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.full {
		return 0, ErrFull
	}
	if t.root == nil {
		t.root = newEmptyFrontierNode(TreeHeight)
	}
	fn, ok := t.root.(*frontierNode)
	if !ok {
		t.full = true
		return 0, ErrFull
	}

	overflowed, final := fn.insert(c, bool(marker))
	if overflowed {
		t.root = final
		t.full = true
		return 0, ErrFull
	}

	pos := Position(t.position)
	t.position++
	t.blockDirty = true
	t.epochDirty = true
	if marker == Keep {
		t.index.insert(c, pos)
	}
	return pos, nil
}

// Witness returns an inclusion proof for c, if it was inserted with Keep
// and has not since been forgotten. If c was inserted more than once, the
// proof is for its earliest surviving position.
func (t *Tree) Witness(c Commitment) (Proof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	pos, ok := t.index.witnessPosition(c)
	if !ok {
		return Proof{}, ErrNotFound
	}
	if t.root == nil {
		return Proof{}, ErrNotFound
	}
	var path AuthPath
	if !witnessAt(t.root, TreeHeight, uint64(pos), &path) {
		return Proof{}, ErrNotFound
	}
	return Proof{commitment: c, position: pos, path: path}, nil
}

// Forget removes every live position of c from the witnessable structure
// of the tree, without changing the root. It reports whether c was found.
func (t *Tree) Forget(c Commitment) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	positions := t.index.forget(c)
	if len(positions) == 0 {
		return false
	}
	for _, pos := range positions {
		if t.root != nil {
			t.root = pruneAt(t.root, TreeHeight, uint64(pos))
		}
	}
	t.forgottenCount++
	return true
}

// EndBlock forces the current block to finalize, returning its block root,
// and advances the position to the start of the next block. It fails if
// the current epoch has no remaining block capacity.
func (t *Tree) EndBlock() (Hash, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeBoundaryLocked(TierHeight, true)
}

// EndEpoch forces the current block and then the current epoch to
// finalize, returning the epoch root, and advances the position to the
// start of the next epoch.
func (t *Tree) EndEpoch() (Hash, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.closeBoundaryLocked(TierHeight, false); err != nil {
		return Hash{}, err
	}
	return t.closeBoundaryLocked(2*TierHeight, true)
}

// closeBoundaryLocked forces finalization at targetHeight (TierHeight for a
// block boundary, 2*TierHeight for an epoch boundary) and, if advancePos is
// set, bumps the position counter to the start of the next tier at that
// level.
func (t *Tree) closeBoundaryLocked(targetHeight int, advancePos bool) (Hash, error) {
	if t.full {
		return Hash{}, ErrFull
	}
	if t.root == nil {
		t.root = newEmptyFrontierNode(TreeHeight)
	}
	fn, ok := t.root.(*frontierNode)
	if !ok {
		t.full = true
		return Hash{}, ErrFull
	}

	boundaryHash, overflowed, final := fn.closeAt(targetHeight)
	if overflowed {
		t.root = final
		t.full = true
	}

	if advancePos {
		if err := t.advancePosition(targetHeight); err != nil {
			return Hash{}, err
		}
	}
	if targetHeight == TierHeight {
		t.blockDirty = false
	}
	if targetHeight == 2*TierHeight {
		t.epochDirty = false
		t.blockDirty = false
	}
	return boundaryHash, nil
}

// advancePosition zeroes the digits below targetHeight and increments the
// next field, reporting ErrFull if that field itself overflows (in which
// case the caller was expected to close the containing tier first).
func (t *Tree) advancePosition(targetHeight int) error {
	pos := Position(t.position)
	switch targetHeight {
	case TierHeight:
		block := pos.Block() + 1
		if block >= (1 << epochBits) {
			return ErrFull
		}
		t.position = uint64(NewPosition(pos.Epoch(), block, 0))
	case 2 * TierHeight:
		epoch := pos.Epoch() + 1
		if epoch >= (1 << epochBits) {
			return ErrFull
		}
		t.position = uint64(NewPosition(epoch, 0, 0))
	}
	return nil
}

// RebuildIndex discards the current index maps and reconstructs them from
// the tree's retained (kept, not forgotten) leaves. The index is never an
// owning reference into the tree, so it can always be regenerated this way
// - useful after deserializing a tree from storage that only carries the
// node structure.
func (t *Tree) RebuildIndex() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fresh := newIndex()
	if t.root != nil {
		walkRetained(t.root, TreeHeight, 0, fresh)
	}
	t.index = fresh
}

func walkRetained(n node, height int, pos uint64, idx *index) {
	if height == 0 {
		if leaf, ok := n.(*completeLeaf); ok {
			idx.insert(leaf.commitment, Position(pos))
		} else if item, ok := n.(*frontierItem); ok && item.filled && item.keep {
			idx.insert(item.commitment, Position(pos))
		}
		return
	}
	children, ok := childrenOf(n, height)
	if !ok {
		return
	}
	shift := uint(ArityBits * (height - 1))
	for i, child := range children {
		walkRetained(child, height-1, pos|(uint64(i)<<shift), idx)
	}
}

// Clone returns a deep-enough copy of the tree that mutating the clone
// (inserting, forgetting, closing tiers) never affects the receiver.
// Complete subtrees are immutable and safe to share; only the live
// frontier spine and the index maps need duplicating.
func (t *Tree) Clone() *Tree {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := &Tree{
		full:           t.full,
		position:       t.position,
		forgottenCount: t.forgottenCount,
		blockDirty:     t.blockDirty,
		epochDirty:     t.epochDirty,
		index:          newIndex(),
	}
	for c, positions := range t.index.byCommitment {
		cp := append([]Position(nil), positions...)
		out.index.byCommitment[c] = cp
		for _, p := range cp {
			out.index.byPosition[p] = c
		}
	}
	if t.root != nil {
		out.root = cloneNode(t.root)
	}
	return out
}

func cloneNode(n node) node {
	switch v := n.(type) {
	case *frontierNode:
		cp := &frontierNode{height: v.height}
		for _, s := range v.siblings.elems() {
			all, _ := cp.siblings.push(cloneNode(s))
			_ = all
		}
		cp.focus = cloneNode(v.focus)
		return cp
	case *frontierItem:
		cp := *v
		return &cp
	default:
		// complete nodes/leaves/bare hashes are immutable and safely shared.
		return n
	}
}
