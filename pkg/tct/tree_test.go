package tct

import "testing"

func c(t *testing.T, v uint64) Commitment {
	t.Helper()
	return mustCommitment(t, v)
}

func TestEmptyTreeRoot(t *testing.T) {
	tr := New()
	want := nodeHash(TreeHeight, Zero, Zero, Zero, Zero)
	if !tr.Root().Equal(want) {
		t.Fatalf("empty tree root mismatch")
	}
	if tr.Position() != 0 {
		t.Fatalf("empty tree position = %d, want 0", tr.Position())
	}
}

func TestInsertAdvancesPosition(t *testing.T) {
	tr := New()
	commitments := make([]Commitment, 0, 5)
	for i := uint64(1); i <= 5; i++ {
		cm := c(t, i)
		commitments = append(commitments, cm)
		pos, err := tr.Insert(Keep, cm)
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		if pos != Position(i-1) {
			t.Fatalf("insert %d: position = %d, want %d", i, pos, i-1)
		}
	}
	if tr.Position() != 5 {
		t.Fatalf("position = %d, want 5", tr.Position())
	}

	// The fifth insert crosses the height-1 group boundary (four leaves per
	// frontier group): every commitment, including the one that forced the
	// group to roll over, must still be witnessable against the final root.
	root := tr.Root()
	for i, cm := range commitments {
		proof, err := tr.Witness(cm)
		if err != nil {
			t.Fatalf("witness %d: %v", i+1, err)
		}
		if err := proof.Verify(root); err != nil {
			t.Fatalf("verify %d: %v", i+1, err)
		}
	}
}

func TestInsertRejectsZeroCommitment(t *testing.T) {
	tr := New()
	var zero Commitment
	if _, err := tr.Insert(Keep, zero); err != ErrZeroCommitment {
		t.Fatalf("got %v, want ErrZeroCommitment", err)
	}
}

func TestWitnessRoundTrip(t *testing.T) {
	tr := New()
	target := c(t, 7)
	if _, err := tr.Insert(Keep, c(t, 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Insert(Keep, target); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Insert(Forget, c(t, 3)); err != nil {
		t.Fatal(err)
	}

	proof, err := tr.Witness(target)
	if err != nil {
		t.Fatalf("witness: %v", err)
	}
	if !proof.Commitment().Equal(target) {
		t.Fatalf("proof commitment mismatch")
	}
	if err := proof.Verify(tr.Root()); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestWitnessFailsForForgetInserted(t *testing.T) {
	tr := New()
	target := c(t, 9)
	if _, err := tr.Insert(Forget, target); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Witness(target); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestWitnessFailsAfterForget(t *testing.T) {
	tr := New()
	target := c(t, 11)
	if _, err := tr.Insert(Keep, target); err != nil {
		t.Fatal(err)
	}
	rootBefore := tr.Root()

	if ok := tr.Forget(target); !ok {
		t.Fatalf("forget reported not found")
	}
	if !tr.Root().Equal(rootBefore) {
		t.Fatalf("forget must not change the root")
	}
	if _, err := tr.Witness(target); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestForgetUnknownCommitmentReportsFalse(t *testing.T) {
	tr := New()
	if tr.Forget(c(t, 123)) {
		t.Fatalf("expected Forget on unknown commitment to report false")
	}
}

func TestProofVerifyRejectsWrongRoot(t *testing.T) {
	tr := New()
	target := c(t, 5)
	if _, err := tr.Insert(Keep, target); err != nil {
		t.Fatal(err)
	}
	proof, err := tr.Witness(target)
	if err != nil {
		t.Fatal(err)
	}
	if err := proof.Verify(Zero); err != ErrVerifyFailed {
		t.Fatalf("got %v, want ErrVerifyFailed", err)
	}
}

func TestEndBlockIdempotentOnEmptyBlock(t *testing.T) {
	tr := New()
	root1, err := tr.EndBlock()
	if err != nil {
		t.Fatalf("end_block: %v", err)
	}
	root2, err := tr.EndBlock()
	if err != nil {
		t.Fatalf("end_block (again): %v", err)
	}
	if !root1.Equal(root2) {
		t.Fatalf("empty block root must be deterministic across calls")
	}
	if tr.Position() != NewPosition(0, 2, 0) {
		t.Fatalf("position = %v, want (0,2,0)", tr.Position())
	}
}

func TestEndBlockAdvancesPositionAndFinalizes(t *testing.T) {
	tr := New()
	target := c(t, 21)
	if _, err := tr.Insert(Keep, target); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.EndBlock(); err != nil {
		t.Fatalf("end_block: %v", err)
	}
	if tr.Position() != NewPosition(0, 1, 0) {
		t.Fatalf("position = %v, want (0,1,0)", tr.Position())
	}
	// Finalizing a block must not change the commitment's witnessability:
	// the frontier subtree simply became immutable in place, and still
	// verifies against the (now different, since a new block has begun)
	// root.
	proof, err := tr.Witness(target)
	if err != nil {
		t.Fatalf("witness after end_block: %v", err)
	}
	if err := proof.Verify(tr.Root()); err != nil {
		t.Fatalf("verify after end_block: %v", err)
	}
}

func TestEndEpochAdvancesEpochAndResetsBlock(t *testing.T) {
	tr := New()
	if _, err := tr.Insert(Keep, c(t, 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.EndEpoch(); err != nil {
		t.Fatalf("end_epoch: %v", err)
	}
	if tr.Position() != NewPosition(1, 0, 0) {
		t.Fatalf("position = %v, want (1,0,0)", tr.Position())
	}
}

func TestMultipleInsertsOfSameCommitmentAreDistinctLeaves(t *testing.T) {
	tr := New()
	dup := c(t, 77)
	pos1, err := tr.Insert(Keep, dup)
	if err != nil {
		t.Fatal(err)
	}
	pos2, err := tr.Insert(Keep, dup)
	if err != nil {
		t.Fatal(err)
	}
	if pos1 == pos2 {
		t.Fatalf("duplicate inserts must occupy distinct positions")
	}
	proof, err := tr.Witness(dup)
	if err != nil {
		t.Fatal(err)
	}
	if proof.Position() != pos1 {
		t.Fatalf("witness should resolve to the earliest surviving position")
	}

	if !tr.Forget(dup) {
		t.Fatalf("forget should find the duplicated commitment")
	}
	if _, err := tr.Witness(dup); err != ErrNotFound {
		t.Fatalf("forget must remove every instance of a duplicated commitment")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	tr := New()
	kept := c(t, 3)
	if _, err := tr.Insert(Keep, kept); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Insert(Forget, c(t, 4)); err != nil {
		t.Fatal(err)
	}
	rootBefore := tr.Root()

	blob, err := tr.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	restored, err := UnmarshalTree(blob)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !restored.Root().Equal(rootBefore) {
		t.Fatalf("restored root mismatch")
	}
	proof, err := restored.Witness(kept)
	if err != nil {
		t.Fatalf("witness after restore: %v", err)
	}
	if err := proof.Verify(restored.Root()); err != nil {
		t.Fatalf("verify after restore: %v", err)
	}
	// A restored tree must be able to resume inserting exactly where the
	// original left off (spec 4.8/6: the stream carries enough to rebuild
	// the frontier), not just serve reads.
	wantNextPos := restored.Position()
	pos, err := restored.Insert(Keep, c(t, 5))
	if err != nil {
		t.Fatalf("insert after restore: %v", err)
	}
	if pos != wantNextPos {
		t.Fatalf("insert after restore: position = %v, want %v", pos, wantNextPos)
	}
	if restored.Root().Equal(rootBefore) {
		t.Fatalf("root must change after a new insert")
	}
}

func TestSerializeRoundTripEmptyTree(t *testing.T) {
	tr := New()
	blob, err := tr.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	restored, err := UnmarshalTree(blob)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !restored.Root().Equal(tr.Root()) {
		t.Fatalf("restored empty-tree root mismatch")
	}
	if _, err := restored.Insert(Keep, c(t, 1)); err != nil {
		t.Fatalf("insert into restored empty tree: %v", err)
	}
}

func TestProofMarshalSize(t *testing.T) {
	tr := New()
	target := c(t, 1)
	if _, err := tr.Insert(Keep, target); err != nil {
		t.Fatal(err)
	}
	proof, err := tr.Witness(target)
	if err != nil {
		t.Fatal(err)
	}
	blob := proof.MarshalProof()
	if len(blob) != 2344 {
		t.Fatalf("proof wire size = %d, want 2344", len(blob))
	}
	got, err := UnmarshalProof(blob)
	if err != nil {
		t.Fatalf("unmarshal proof: %v", err)
	}
	if err := got.Verify(tr.Root()); err != nil {
		t.Fatalf("verify round-tripped proof: %v", err)
	}
}
