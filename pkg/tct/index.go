package tct

// index tracks, for commitments inserted with Keep and not yet forgotten,
// where they live in the tree. Spec 4.9 describes three logical maps
// (commitment->position, commitment->leaf identity, position->commitment);
// since a commitment's "leaf identity" here is fully determined by its
// position (witnessAt resolves a position to its leaf by an O(TreeHeight)
// top-down walk rather than holding an owning pointer), the first and
// third map are sufficient and are what this type holds.
//
// A commitment may be inserted more than once (spec Open Question,
// resolved: each insert creates a distinct leaf at a distinct position).
// byCommitment therefore holds every live position for a commitment, in
// insertion order.
type index struct {
	byCommitment map[Commitment][]Position
	byPosition   map[Position]Commitment
}

func newIndex() *index {
	return &index{
		byCommitment: make(map[Commitment][]Position),
		byPosition:   make(map[Position]Commitment),
	}
}

func (x *index) insert(c Commitment, pos Position) {
	x.byCommitment[c] = append(x.byCommitment[c], pos)
	x.byPosition[pos] = c
}

// witnessPosition returns the earliest still-kept position for c, which is
// the position Tree.Witness produces a proof for when a commitment was
// inserted more than once.
func (x *index) witnessPosition(c Commitment) (Position, bool) {
	positions := x.byCommitment[c]
	if len(positions) == 0 {
		return 0, false
	}
	return positions[0], true
}

// forget removes every live position recorded for c and returns them, so
// the caller can prune each one out of the tree.
func (x *index) forget(c Commitment) []Position {
	positions := x.byCommitment[c]
	if len(positions) == 0 {
		return nil
	}
	delete(x.byCommitment, c)
	for _, p := range positions {
		delete(x.byPosition, p)
	}
	return positions
}

func (x *index) commitmentAt(pos Position) (Commitment, bool) {
	c, ok := x.byPosition[pos]
	return c, ok
}

func (x *index) len() int { return len(x.byPosition) }
