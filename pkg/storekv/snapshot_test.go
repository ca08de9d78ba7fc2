package storekv

import (
	"sync"
	"testing"

	"github.com/certen/tct/pkg/tct"
)

// memKV is a minimal in-memory KV used only by this package's tests.
type memKV struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemKV() *memKV { return &memKV{items: make(map[string][]byte)} }

func (m *memKV) Get(key []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[string(key)], nil
}

func (m *memKV) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[string(key)] = append([]byte{}, value...)
	return nil
}

func mustCommitment(t *testing.T, b byte) tct.Commitment {
	t.Helper()
	var arr [tct.FqSize]byte
	arr[31] = b
	c, err := tct.CommitmentFromBytes(arr)
	if err != nil {
		t.Fatalf("CommitmentFromBytes failed: %v", err)
	}
	return c
}

func TestSnapshotStoreLoadLatestEmpty(t *testing.T) {
	s := NewSnapshotStore(newMemKV())
	_, _, ok, err := s.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest() returned error: %v", err)
	}
	if ok {
		t.Fatal("LoadLatest() on an empty store should report ok=false")
	}
}

func TestSnapshotStoreSaveAndLoadRoundTrip(t *testing.T) {
	tr := tct.New()
	if _, err := tr.Insert(tct.Keep, mustCommitment(t, 1)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	wantRoot := tr.Root()

	s := NewSnapshotStore(newMemKV())
	if err := s.SaveOnCommit(7, tr); err != nil {
		t.Fatalf("SaveOnCommit failed: %v", err)
	}

	loaded, height, ok, err := s.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if !ok {
		t.Fatal("LoadLatest() reported ok=false after a save")
	}
	if height != 7 {
		t.Errorf("height = %d, want 7", height)
	}
	if loaded.Root() != wantRoot {
		t.Errorf("loaded root %x != saved root %x", loaded.Root().Bytes(), wantRoot.Bytes())
	}
}

func TestSnapshotStoreLoadedTreeAcceptsFurtherInserts(t *testing.T) {
	tr := tct.New()
	if _, err := tr.Insert(tct.Keep, mustCommitment(t, 1)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := tr.EndBlock(); err != nil {
		t.Fatalf("EndBlock failed: %v", err)
	}

	s := NewSnapshotStore(newMemKV())
	if err := s.SaveOnCommit(1, tr); err != nil {
		t.Fatalf("SaveOnCommit failed: %v", err)
	}

	loaded, _, ok, err := s.LoadLatest()
	if err != nil || !ok {
		t.Fatalf("LoadLatest failed: ok=%v err=%v", ok, err)
	}
	wantPos := tr.Position()
	if loaded.Position() != wantPos {
		t.Fatalf("loaded tree position = %v, want %v", loaded.Position(), wantPos)
	}
	// A node restarting from a persisted snapshot must be able to keep
	// accepting chain activity, not just serve reads.
	gotPos, err := loaded.Insert(tct.Keep, mustCommitment(t, 2))
	if err != nil {
		t.Fatalf("insert into loaded tree: %v", err)
	}
	if gotPos != wantPos {
		t.Errorf("insert into loaded tree landed at %v, want %v", gotPos, wantPos)
	}
}

func TestSnapshotStoreOverwritesLatestPointer(t *testing.T) {
	s := NewSnapshotStore(newMemKV())

	tr1 := tct.New()
	if err := s.SaveOnCommit(1, tr1); err != nil {
		t.Fatalf("SaveOnCommit(1) failed: %v", err)
	}

	tr2 := tct.New()
	if _, err := tr2.Insert(tct.Keep, mustCommitment(t, 2)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := s.SaveOnCommit(2, tr2); err != nil {
		t.Fatalf("SaveOnCommit(2) failed: %v", err)
	}

	_, height, ok, err := s.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if !ok || height != 2 {
		t.Errorf("LoadLatest() = (height=%d, ok=%v), want (height=2, ok=true)", height, ok)
	}
}
