package tct

// node is any value that can sit at a position in the tree: a bare pruned
// hash, a finalized complete subtree, a finalized complete leaf, or a
// mutable frontier node/item still under construction.
type node interface {
	Hash() Hash
}

// hashNode is a pruned, opaque stand-in: all structure beneath it has been
// forgotten (or it is zero-padding for a not-yet-reached slot). It can
// never be witnessed past.
type hashNode Hash

func (h hashNode) Hash() Hash { return Hash(h) }

// completeLeaf is a finalized, witnessable commitment: the result of
// finalizing a Keep-marked frontier item.
type completeLeaf struct {
	commitment Commitment
}

func (l *completeLeaf) Hash() Hash { return leafHash(l.commitment) }

// completeNode is a finalized internal node above height 0. Once built it
// is immutable; its hash is computed once and cached forever.
type completeNode struct {
	height   int
	children [4]node
	cache    cachedHash
}

func (n *completeNode) Hash() Hash {
	return n.cache.setIfEmpty(func() Hash {
		return nodeHash(n.height,
			n.children[0].Hash(), n.children[1].Hash(),
			n.children[2].Hash(), n.children[3].Hash())
	})
}

// buildCompleteOrHash finalizes a node's four children. If every child has
// already been pruned to a bare hash, the new node collapses to a bare
// hash too (sparse pruning, spec 4.4): nothing beneath it is witnessable,
// so there is no reason to keep the structure around.
func buildCompleteOrHash(height int, children [4]node) node {
	allBare := true
	for _, c := range children {
		switch c.(type) {
		case hashNode:
		default:
			allBare = false
		}
	}
	if allBare {
		return hashNode(nodeHash(height,
			children[0].Hash(), children[1].Hash(),
			children[2].Hash(), children[3].Hash()))
	}
	return &completeNode{height: height, children: children}
}

// frontierItem is the single mutable leaf slot at the bottom of the live
// frontier spine.
type frontierItem struct {
	commitment Commitment
	keep       bool
	filled     bool
}

func (it *frontierItem) Hash() Hash {
	if !it.filled {
		return Zero
	}
	return leafHash(it.commitment)
}

// finalize converts a filled item into its permanent, complete form: kept
// commitments become witnessable leaves, forgotten ones collapse straight
// to a bare hash.
func (it *frontierItem) finalize() node {
	if it.keep {
		return &completeLeaf{commitment: it.commitment}
	}
	return hashNode(leafHash(it.commitment))
}

// frontierNode is a mutable internal node on the live spine: up to three
// already-finalized left siblings plus a focus (either a frontierNode one
// level down, or - at height 1 - a frontierItem).
type frontierNode struct {
	height   int
	siblings three[node]
	focus    node
	cache    cachedHash
}

func newEmptyFrontierNode(height int) *frontierNode {
	fn := &frontierNode{height: height}
	if height == 1 {
		fn.focus = &frontierItem{}
	} else {
		fn.focus = newEmptyFrontierNode(height - 1)
	}
	return fn
}

func (fn *frontierNode) Hash() Hash {
	return fn.cache.setIfEmpty(func() Hash {
		var children [4]Hash
		i := 0
		for _, s := range fn.siblings.elems() {
			children[i] = s.Hash()
			i++
		}
		children[i] = fn.focus.Hash()
		i++
		for ; i < 4; i++ {
			children[i] = Zero
		}
		return nodeHash(fn.height, children[0], children[1], children[2], children[3])
	})
}

// insert places (c, keep) into this subtree. It returns overflowed=true if
// this subtree was already full, in which case c has not been placed and
// finalizedSelf holds the subtree's previous contents; the caller (the
// parent frontier node, or the Tree at the root) must then fold
// finalizedSelf into its own siblings, give this slot a fresh replacement,
// and insert c there.
func (fn *frontierNode) insert(c Commitment, keep bool) (overflowed bool, finalizedSelf node) {
	fn.cache.clear()

	if fn.height == 1 {
		item := fn.focus.(*frontierItem)
		if !item.filled {
			item.commitment = c
			item.keep = keep
			item.filled = true
			return false, nil
		}
		finalizedItem := item.finalize()
		all, ok := fn.siblings.push(finalizedItem)
		if ok {
			fn.focus = &frontierItem{commitment: c, keep: keep, filled: true}
			return false, nil
		}
		return true, buildCompleteOrHash(fn.height, all)
	}

	child := fn.focus.(*frontierNode)
	childOverflowed, childFinal := child.insert(c, keep)
	if !childOverflowed {
		return false, nil
	}
	all, ok := fn.siblings.push(childFinal)
	if ok {
		fresh := newEmptyFrontierNode(child.height)
		fn.focus = fresh
		// The child overflowed because it was already full, so c is not in
		// childFinal; it still needs a home in the replacement focus. A brand-new frontier node can never
		// overflow on its very first insert (overflow requires filling all
		// four slots at every level beneath it), so this recursive call
		// always succeeds in place.
		if freshOverflowed, _ := fresh.insert(c, keep); freshOverflowed {
			panic("tct: freshly created frontier node overflowed on first insert")
		}
		return false, nil
	}
	return true, buildCompleteOrHash(fn.height, all)
}

// closeAt forces the live subtree currently active at exactly targetHeight
// to finalize now, regardless of whether it is full, zero-padding any
// slots it has not yet reached. It is the mechanism behind EndBlock and
// EndEpoch. It returns the hash of the forced subtree (the block or epoch
// root), plus the usual overflow signal for folding the result upward.
func (fn *frontierNode) closeAt(targetHeight int) (boundaryHash Hash, overflowed bool, finalizedSelf node) {
	fn.cache.clear()
	child := fn.focus.(*frontierNode)

	if child.height == targetHeight {
		final := freeze(child)
		boundaryHash = final.Hash()
		all, ok := fn.siblings.push(final)
		if ok {
			fn.focus = newEmptyFrontierNode(targetHeight)
			return boundaryHash, false, nil
		}
		return boundaryHash, true, buildCompleteOrHash(fn.height, all)
	}

	bh, childOverflowed, childFinal := child.closeAt(targetHeight)
	boundaryHash = bh
	if !childOverflowed {
		return boundaryHash, false, nil
	}
	all, ok := fn.siblings.push(childFinal)
	if ok {
		fn.focus = newEmptyFrontierNode(child.height)
		return boundaryHash, false, nil
	}
	return boundaryHash, true, buildCompleteOrHash(fn.height, all)
}

// freeze converts a live (possibly partially filled) frontier subtree into
// an honest, immutable complete subtree: kept leaves remain witnessable,
// forgotten or not-yet-reached slots collapse to bare hashes. Used when a
// tier boundary forces finalization of a subtree that was never actually
// filled to capacity.
func freeze(n node) node {
	switch v := n.(type) {
	case *frontierItem:
		if v.filled {
			return v.finalize()
		}
		return hashNode(Zero)
	case *frontierNode:
		var children [4]node
		i := 0
		for _, s := range v.siblings.elems() {
			children[i] = s
			i++
		}
		children[i] = freeze(v.focus)
		i++
		for ; i < 4; i++ {
			children[i] = hashNode(Zero)
		}
		return buildCompleteOrHash(v.height, children)
	default:
		return n
	}
}

// childrenOf returns the four logical children of n (at the given height,
// height > 0), or ok=false if n is opaque (a bare pruned hash) and cannot
// be descended into further.
func childrenOf(n node, height int) (children [4]node, ok bool) {
	switch v := n.(type) {
	case *completeNode:
		return v.children, true
	case *frontierNode:
		i := 0
		for _, s := range v.siblings.elems() {
			children[i] = s
			i++
		}
		children[i] = v.focus
		i++
		for ; i < 4; i++ {
			children[i] = hashNode(Zero)
		}
		return children, true
	default:
		return children, false
	}
}

// witnessAt walks from n (at height) down to the commitment at pos,
// collecting the sibling hashes not on the path into path. ok is false if
// the walk hits a pruned (bare-hash) node before reaching the leaf.
func witnessAt(n node, height int, pos uint64, path *AuthPath) bool {
	if height == 0 {
		switch v := n.(type) {
		case *completeLeaf:
			return true
		case *frontierItem:
			return v.filled
		default:
			return false
		}
	}
	children, ok := childrenOf(n, height)
	if !ok {
		return false
	}
	way := whichWay(height, pos)
	if !witnessAt(children[way], height-1, subPosition(height, pos), path) {
		return false
	}
	idx := TreeHeight - height
	j := 0
	for i := 0; i < 4; i++ {
		if WhichWay(i) != way {
			path[idx][j] = children[i].Hash()
			j++
		}
	}
	return true
}

// pruneAt removes the witnessable structure for the commitment at pos,
// returning the (possibly replaced, if it collapsed to a bare hash)
// version of n. Forgetting never changes any node's hash (P2): a
// completeNode that collapses reuses its already-computed hash rather than
// recomputing anything.
func pruneAt(n node, height int, pos uint64) node {
	if height == 0 {
		switch v := n.(type) {
		case *completeLeaf:
			return hashNode(leafHash(v.commitment))
		case *frontierItem:
			v.keep = false
			return v
		default:
			return n
		}
	}
	switch v := n.(type) {
	case *completeNode:
		// Complete nodes may be shared with clones, so prune a copy rather
		// than mutating v in place.
		way := whichWay(height, pos)
		cp := &completeNode{height: v.height, children: v.children}
		cp.children[way] = pruneAt(v.children[way], height-1, subPosition(height, pos))
		allBare := true
		for _, c := range cp.children {
			if _, ok := c.(hashNode); !ok {
				allBare = false
				break
			}
		}
		if allBare {
			return hashNode(v.Hash())
		}
		return cp
	case *frontierNode:
		way := whichWay(height, pos)
		if int(way) < v.siblings.len() {
			v.siblings.replaceAt(int(way), pruneAt(v.siblings.at(int(way)), height-1, subPosition(height, pos)))
		} else {
			v.focus = pruneAt(v.focus, height-1, subPosition(height, pos))
		}
		return v
	default:
		return n
	}
}
