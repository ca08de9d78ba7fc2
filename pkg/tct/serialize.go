package tct

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Proof serialization is fixed-size: 32 bytes commitment + 8 bytes position
// + 24*3*32 bytes auth path = 2344 bytes total, matching the reference
// implementation's static size assertion.
const ProofSize = FqSize + 8 + TreeHeight*3*FqSize

// MarshalProof encodes a proof into its fixed 2344-byte wire format.
func (p Proof) MarshalProof() [ProofSize]byte {
	var out [ProofSize]byte
	off := 0
	cb := p.commitment.Bytes()
	copy(out[off:], cb[:])
	off += FqSize
	binary.BigEndian.PutUint64(out[off:], uint64(p.position))
	off += 8
	for i := 0; i < TreeHeight; i++ {
		for j := 0; j < 3; j++ {
			hb := p.path[i][j].Bytes()
			copy(out[off:], hb[:])
			off += FqSize
		}
	}
	return out
}

// UnmarshalProof decodes a proof from its fixed 2344-byte wire format.
func UnmarshalProof(b [ProofSize]byte) (Proof, error) {
	off := 0
	var cb [FqSize]byte
	copy(cb[:], b[off:off+FqSize])
	off += FqSize
	c, err := CommitmentFromBytes(cb)
	if err != nil {
		return Proof{}, fmt.Errorf("%w: commitment: %v", ErrDecode, err)
	}
	position := Position(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	var path AuthPath
	for i := 0; i < TreeHeight; i++ {
		for j := 0; j < 3; j++ {
			var hb [FqSize]byte
			copy(hb[:], b[off:off+FqSize])
			off += FqSize
			h, err := HashFromBytes(hb)
			if err != nil {
				return Proof{}, fmt.Errorf("%w: auth path[%d][%d]: %v", ErrDecode, i, j, err)
			}
			path[i][j] = h
		}
	}
	return Proof{commitment: c, position: position, path: path}, nil
}

// Tree serialization markers. A finalized subtree collapses to a single
// markHash entry regardless of its depth whenever it has been pruned away
// (forgotten or never reached), which is what makes the format sparse: a
// tree with millions of forgotten commitments serializes in proportion to
// the number still kept, not the tree's nominal depth. The two frontier
// markers carry the live, mutable rightmost spine explicitly (siblings held
// so far, plus the in-progress focus), which is what lets Unmarshal hand
// back a tree that can keep accepting inserts (spec 4.8/6: the stream "must
// carry enough information to rebuild the frontier ... so that insertion
// may resume").
const (
	markHash         byte = 0
	markLeaf         byte = 1
	markInternal     byte = 2
	markFrontierItem byte = 3
	markFrontierNode byte = 4
)

// Marshal encodes the tree's current structure, position, and forgotten
// count. The live frontier spine is encoded with the frontier markers so a
// tree produced by Unmarshal can resume inserting exactly where this one
// left off.
func (t *Tree) Marshal() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var buf bytes.Buffer
	buf.WriteByte(2) // format version
	var u64 [8]byte
	binary.BigEndian.PutUint64(u64[:], t.position)
	buf.Write(u64[:])
	binary.BigEndian.PutUint64(u64[:], t.forgottenCount)
	buf.Write(u64[:])
	var flags byte
	if t.blockDirty {
		flags |= 1
	}
	if t.epochDirty {
		flags |= 2
	}
	buf.WriteByte(flags)

	root := t.root
	if root == nil {
		// Never inserted into or closed: serialize an empty live frontier.
		// UnmarshalTree recognizes this case by its zero position and
		// restores the tree with no root, as New does, so its root is the
		// empty-tree root.
		root = newEmptyFrontierNode(TreeHeight)
	}
	writeNode(&buf, root, TreeHeight)
	return buf.Bytes(), nil
}

func writeNode(buf *bytes.Buffer, n node, height int) {
	switch v := n.(type) {
	case *frontierItem:
		buf.WriteByte(markFrontierItem)
		if !v.filled {
			buf.WriteByte(0)
			return
		}
		buf.WriteByte(1)
		if v.keep {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		cb := v.commitment.Bytes()
		buf.Write(cb[:])

	case *frontierNode:
		buf.WriteByte(markFrontierNode)
		buf.WriteByte(byte(v.siblings.len()))
		for _, s := range v.siblings.elems() {
			writeNode(buf, s, height-1)
		}
		writeNode(buf, v.focus, height-1)

	case *completeLeaf:
		buf.WriteByte(markLeaf)
		cb := v.commitment.Bytes()
		buf.Write(cb[:])

	case *completeNode:
		buf.WriteByte(markInternal)
		for _, c := range v.children {
			writeNode(buf, c, height-1)
		}

	default: // hashNode, or anything else opaque
		buf.WriteByte(markHash)
		hb := n.Hash().Bytes()
		buf.Write(hb[:])
	}
}

// UnmarshalTree decodes a tree previously produced by Marshal.
func UnmarshalTree(b []byte) (*Tree, error) {
	r := bytes.NewReader(b)
	version, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if version != 2 {
		return nil, fmt.Errorf("%w: unsupported tree format version %d", ErrDecode, version)
	}
	var u64 [8]byte
	if _, err := io.ReadFull(r, u64[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	position := binary.BigEndian.Uint64(u64[:])
	if _, err := io.ReadFull(r, u64[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	forgotten := binary.BigEndian.Uint64(u64[:])
	flags, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	root, err := readNode(r, TreeHeight)
	if err != nil {
		return nil, err
	}
	// Position 0 means nothing was ever inserted or closed; such a tree has
	// no root (see Marshal).
	if position == 0 {
		root = nil
	}

	t := &Tree{
		root:           root,
		position:       position,
		forgottenCount: forgotten,
		blockDirty:     flags&1 != 0,
		epochDirty:     flags&2 != 0,
		index:          newIndex(),
	}
	t.RebuildIndex()
	return t, nil
}

func readNode(r *bytes.Reader, height int) (node, error) {
	mark, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	switch mark {
	case markHash:
		var hb [FqSize]byte
		if _, err := io.ReadFull(r, hb[:]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		h, err := HashFromBytes(hb)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return hashNode(h), nil
	case markLeaf:
		if height != 0 {
			return nil, fmt.Errorf("%w: leaf marker above height 0", ErrDecode)
		}
		var cb [FqSize]byte
		if _, err := io.ReadFull(r, cb[:]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		c, err := CommitmentFromBytes(cb)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return &completeLeaf{commitment: c}, nil
	case markInternal:
		if height == 0 {
			return nil, fmt.Errorf("%w: internal marker at height 0", ErrDecode)
		}
		var children [4]node
		for i := range children {
			c, err := readNode(r, height-1)
			if err != nil {
				return nil, err
			}
			children[i] = c
		}
		return buildCompleteOrHash(height, children), nil

	case markFrontierItem:
		if height != 0 {
			return nil, fmt.Errorf("%w: frontier-item marker above height 0", ErrDecode)
		}
		filled, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		if filled == 0 {
			return &frontierItem{}, nil
		}
		keepByte, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		var cb [FqSize]byte
		if _, err := io.ReadFull(r, cb[:]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		c, err := CommitmentFromBytes(cb)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return &frontierItem{commitment: c, keep: keepByte != 0, filled: true}, nil

	case markFrontierNode:
		if height == 0 {
			return nil, fmt.Errorf("%w: frontier-node marker at height 0", ErrDecode)
		}
		count, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		if count > 3 {
			return nil, fmt.Errorf("%w: frontier sibling count %d exceeds 3", ErrDecode, count)
		}
		fn := &frontierNode{height: height}
		for i := byte(0); i < count; i++ {
			s, err := readNode(r, height-1)
			if err != nil {
				return nil, err
			}
			if _, ok := fn.siblings.push(s); !ok {
				return nil, fmt.Errorf("%w: frontier sibling overflow", ErrDecode)
			}
		}
		focus, err := readNode(r, height-1)
		if err != nil {
			return nil, err
		}
		fn.focus = focus
		return fn, nil

	default:
		return nil, fmt.Errorf("%w: unknown node marker %d", ErrDecode, mark)
	}
}
