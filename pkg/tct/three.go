package tct

// three is a bounded buffer of at most three left siblings. A frontier node
// at a given height has four logical child slots: up to three already-
// finalized siblings, occupied left to right, plus the currently active
// focus in the next slot. Pushing a fourth element signals that the node
// itself is now complete.
type three[T any] struct {
	items [3]T
	n     int
}

// len reports how many siblings are currently held (0..3).
func (t *three[T]) len() int { return t.n }

// elems returns the held siblings in left-to-right order. The returned
// slice aliases the buffer's backing array and must not be retained past
// the next mutating call.
func (t *three[T]) elems() []T { return t.items[:t.n] }

// at returns the i'th held sibling.
func (t *three[T]) at(i int) T { return t.items[i] }

// replaceAt overwrites the i'th held sibling in place, used when a kept
// leaf beneath an already-finalized sibling is forgotten.
func (t *three[T]) replaceAt(i int, v T) { t.items[i] = v }

// push appends x as a new sibling. If the buffer had room, it reports
// ok=true and the buffer now holds one more element. If the buffer was
// already full, it reports ok=false and returns the four logical children
// in order (the three held siblings followed by x) without mutating the
// buffer - the caller must finalize the parent node using that array.
func (t *three[T]) push(x T) (all [4]T, ok bool) {
	if t.n < 3 {
		t.items[t.n] = x
		t.n++
		return all, true
	}
	return [4]T{t.items[0], t.items[1], t.items[2], x}, false
}
