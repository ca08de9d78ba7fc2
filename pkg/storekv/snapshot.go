package storekv

import (
	"encoding/binary"
	"fmt"

	"github.com/certen/tct/pkg/tct"
)

// SnapshotStore persists tree snapshots for recovery across restarts.
// Persistence is explicitly the caller's concern (not pkg/tct's); this is
// that caller.
//
// CONCURRENCY: like the ledger store it is adapted from, SnapshotStore
// assumes single-writer access and is meant to be called only from the
// consensus commit thread. Wrap it with your own synchronization if you
// need to call it from more than one goroutine.
type SnapshotStore struct {
	kv KV
}

// NewSnapshotStore creates a new SnapshotStore backed by kv.
func NewSnapshotStore(kv KV) *SnapshotStore {
	return &SnapshotStore{kv: kv}
}

var (
	keyLatestHeight   = []byte("tct:latest_height")
	keySnapshotPrefix = []byte("tct:snapshot:") // + big-endian height -> tree Marshal() blob
)

func snapshotKey(height uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, height)
	return append(append([]byte{}, keySnapshotPrefix...), b...)
}

// SaveOnCommit persists the tree's current structure under height, and
// advances the latest-height pointer.
func (s *SnapshotStore) SaveOnCommit(height uint64, tr *tct.Tree) error {
	blob, err := tr.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal tree snapshot: %w", err)
	}
	if err := s.kv.Set(snapshotKey(height), blob); err != nil {
		return fmt.Errorf("failed to set snapshot key: %w", err)
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, height)
	if err := s.kv.Set(keyLatestHeight, b); err != nil {
		return fmt.Errorf("failed to set latest height key: %w", err)
	}
	return nil
}

// LoadLatest returns the most recently saved tree snapshot and its height,
// or (nil, 0, false, nil) if nothing has ever been saved.
func (s *SnapshotStore) LoadLatest() (*tct.Tree, uint64, bool, error) {
	hb, err := s.kv.Get(keyLatestHeight)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to get latest height key: %w", err)
	}
	if len(hb) != 8 {
		return nil, 0, false, nil
	}
	height := binary.BigEndian.Uint64(hb)

	blob, err := s.kv.Get(snapshotKey(height))
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to get snapshot key: %w", err)
	}
	if blob == nil {
		return nil, 0, false, nil
	}
	tr, err := tct.UnmarshalTree(blob)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to unmarshal tree snapshot: %w", err)
	}
	return tr, height, true, nil
}
