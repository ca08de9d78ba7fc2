// Copyright 2025 Certen Protocol
//
// KV adapter for CometBFT database integration.
// Wraps CometBFT's dbm.DB interface behind the narrow KV interface the
// snapshot store needs.

package storekv

import (
	dbm "github.com/cometbft/cometbft-db"
)

// KV is the narrow key-value interface the snapshot store depends on,
// mirroring the teacher's ledger.KV shape.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
}

// Adapter wraps a CometBFT dbm.DB and exposes it as a KV.
type Adapter struct {
	db dbm.DB
}

// NewAdapter creates a new Adapter for the given underlying DB.
func NewAdapter(db dbm.DB) *Adapter {
	return &Adapter{db: db}
}

// Get implements KV.
func (a *Adapter) Get(key []byte) ([]byte, error) {
	if a.db == nil {
		return nil, nil
	}
	v, err := a.db.Get(key)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Set implements KV, using SetSync for durable writes at commit time.
func (a *Adapter) Set(key, value []byte) error {
	if a.db == nil {
		return nil
	}
	return a.db.SetSync(key, value)
}
