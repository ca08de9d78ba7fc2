// Copyright 2025 Certen Protocol
//
// ABCI Application wiring the tree accumulator into CometBFT consensus.

package chainapp

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	abcitypes "github.com/cometbft/cometbft/abci/types"

	"github.com/certen/tct/pkg/metrics"
	"github.com/certen/tct/pkg/storekv"
	"github.com/certen/tct/pkg/tct"
)

// EpochLength is the number of blocks per epoch. A real deployment would
// make this a chain parameter; fixed here since the tree's own tier
// heights (8 levels per tier) are likewise fixed.
const EpochLength = 16

// txOp names the operation a transaction performs against the tree.
type txOp string

const (
	opInsert txOp = "insert"
	opForget txOp = "forget"
)

// Tx is the canonical JSON transaction envelope accepted by CheckTx and
// FinalizeBlock.
type Tx struct {
	Op         txOp   `json:"op"`
	Commitment string `json:"commitment"` // hex-encoded 32 bytes
	Keep       bool   `json:"keep,omitempty"`
}

// App implements the ABCI interface over a single tct.Tree.
type App struct {
	logger *log.Logger
	mu     sync.RWMutex

	tree     *tct.Tree
	snapshot *storekv.SnapshotStore
	chainID  string
	metrics  *metrics.Collectors

	latestHeight int64
	lastAppHash  []byte
}

// NewApp creates a new App for chainID, restoring the tree from the
// snapshot store if one was previously saved. collectors may be nil, in
// which case metric updates are skipped.
func NewApp(snapshot *storekv.SnapshotStore, chainID string, collectors *metrics.Collectors) *App {
	app := &App{
		logger:   log.New(log.Writer(), "[chainapp] ", log.LstdFlags),
		snapshot: snapshot,
		chainID:  chainID,
		metrics:  collectors,
		tree:     tct.New(),
	}

	if snapshot != nil {
		if tr, height, ok, err := snapshot.LoadLatest(); err != nil {
			app.logger.Printf("⚠️ failed to load tree snapshot: %v (starting fresh)", err)
		} else if ok {
			app.tree = tr
			app.latestHeight = int64(height)
			app.lastAppHash = app.tree.Root().Bytes()[:]
			app.logger.Printf("✅ restored tree snapshot: height=%d root=%x", height, app.lastAppHash[:8])
		}
	}

	return app
}

// Tree returns the underlying tree for use by other components (e.g. the
// HTTP server). Safe for concurrent reads.
func (app *App) Tree() *tct.Tree {
	return app.tree
}

// Info returns application information.
func (app *App) Info(ctx context.Context, req *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	app.mu.RLock()
	defer app.mu.RUnlock()

	app.logger.Printf("📋 Info() called - height=%d appHash=%x", app.latestHeight, truncate(app.lastAppHash))

	return &abcitypes.ResponseInfo{
		Data:             "TCT accumulator application",
		Version:          "1.0.0",
		AppVersion:       1,
		LastBlockHeight:  app.latestHeight,
		LastBlockAppHash: app.lastAppHash,
	}, nil
}

// InitChain initializes the application.
func (app *App) InitChain(ctx context.Context, req *abcitypes.RequestInitChain) (*abcitypes.ResponseInitChain, error) {
	app.logger.Printf("🚀 initializing chain %s", req.ChainId)
	return &abcitypes.ResponseInitChain{}, nil
}

// CheckTx validates an incoming transaction without applying it.
func (app *App) CheckTx(ctx context.Context, req *abcitypes.RequestCheckTx) (*abcitypes.ResponseCheckTx, error) {
	var tx Tx
	if err := json.Unmarshal(req.Tx, &tx); err != nil {
		return &abcitypes.ResponseCheckTx{Code: 1, Log: "invalid tx JSON: " + err.Error()}, nil
	}
	if err := validateTx(&tx); err != nil {
		return &abcitypes.ResponseCheckTx{Code: 2, Log: "invalid tx: " + err.Error()}, nil
	}
	return &abcitypes.ResponseCheckTx{Code: 0, GasWanted: 1, GasUsed: 1, Log: "tx accepted"}, nil
}

func validateTx(tx *Tx) error {
	if tx.Op != opInsert && tx.Op != opForget {
		return fmt.Errorf("unknown op %q", tx.Op)
	}
	b, err := hex.DecodeString(tx.Commitment)
	if err != nil {
		return fmt.Errorf("commitment is not hex: %w", err)
	}
	if len(b) != tct.FqSize {
		return fmt.Errorf("commitment must be %d bytes, got %d", tct.FqSize, len(b))
	}
	return nil
}

func decodeCommitment(hexStr string) (tct.Commitment, error) {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return tct.Commitment{}, err
	}
	var arr [tct.FqSize]byte
	copy(arr[:], b)
	return tct.CommitmentFromBytes(arr)
}

func (app *App) applyTx(tx []byte) abcitypes.ExecTxResult {
	var t Tx
	if err := json.Unmarshal(tx, &t); err != nil {
		return abcitypes.ExecTxResult{Code: 1, Log: "invalid tx JSON: " + err.Error()}
	}
	if err := validateTx(&t); err != nil {
		return abcitypes.ExecTxResult{Code: 2, Log: "invalid tx: " + err.Error()}
	}

	c, err := decodeCommitment(t.Commitment)
	if err != nil {
		return abcitypes.ExecTxResult{Code: 3, Log: "invalid commitment: " + err.Error()}
	}

	switch t.Op {
	case opInsert:
		marker := tct.Forget
		if t.Keep {
			marker = tct.Keep
		}
		pos, err := app.tree.Insert(marker, c)
		if err != nil {
			if app.metrics != nil {
				app.metrics.InsertFailures.WithLabelValues(err.Error()).Inc()
			}
			return abcitypes.ExecTxResult{Code: 4, Log: "insert failed: " + err.Error()}
		}
		if app.metrics != nil {
			label := "forget"
			if marker == tct.Keep {
				label = "keep"
			}
			app.metrics.Inserts.WithLabelValues(label).Inc()
		}
		return abcitypes.ExecTxResult{
			Code: 0,
			Log:  "inserted",
			Events: []abcitypes.Event{{
				Type: "tct_insert",
				Attributes: []abcitypes.EventAttribute{
					{Key: "commitment", Value: t.Commitment},
					{Key: "position", Value: fmt.Sprintf("%d", uint64(pos))},
				},
			}},
		}
	case opForget:
		found := app.tree.Forget(c)
		if app.metrics != nil && found {
			app.metrics.Forgets.Inc()
		}
		return abcitypes.ExecTxResult{
			Code: 0,
			Log:  fmt.Sprintf("forgotten=%v", found),
			Events: []abcitypes.Event{{
				Type: "tct_forget",
				Attributes: []abcitypes.EventAttribute{
					{Key: "commitment", Value: t.Commitment},
					{Key: "found", Value: fmt.Sprintf("%v", found)},
				},
			}},
		}
	default:
		return abcitypes.ExecTxResult{Code: 1, Log: "unreachable"}
	}
}

// FinalizeBlock applies every transaction in the block to the tree.
func (app *App) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	results := make([]*abcitypes.ExecTxResult, len(req.Txs))
	for i, tx := range req.Txs {
		r := app.applyTx(tx)
		results[i] = &r
	}

	app.logger.Printf("🔄 finalized block %d with %d txs", req.Height, len(req.Txs))

	return &abcitypes.ResponseFinalizeBlock{TxResults: results}, nil
}

// Commit closes the current block in the tree, periodically closing the
// epoch too, and persists the resulting snapshot.
func (app *App) Commit(ctx context.Context, req *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	app.latestHeight++

	var root tct.Hash
	var err error
	if app.latestHeight%EpochLength == 0 {
		root, err = app.tree.EndEpoch()
		if app.metrics != nil {
			app.metrics.EndEpochs.Inc()
		}
	} else {
		root, err = app.tree.EndBlock()
	}
	if app.metrics != nil {
		app.metrics.EndBlocks.Inc()
	}
	if err != nil {
		app.logger.Printf("❌ failed to close block at height %d: %v", app.latestHeight, err)
		return nil, fmt.Errorf("chainapp: failed to close block: %w", err)
	}

	hashBytes := root.Bytes()
	app.lastAppHash = hashBytes[:]

	if app.metrics != nil {
		app.metrics.TreePosition.Set(float64(app.tree.Position()))
		app.metrics.ForgottenCount.Set(float64(app.tree.ForgottenCount()))
	}

	if app.snapshot != nil {
		if err := app.snapshot.SaveOnCommit(uint64(app.latestHeight), app.tree); err != nil {
			app.logger.Printf("❌ failed to save tree snapshot: %v", err)
		}
	}

	app.logger.Printf("📦 committed block %d (root=%x, forgotten=%d)",
		app.latestHeight, truncate(app.lastAppHash), app.tree.ForgottenCount())

	retainHeight := app.latestHeight - 100
	if retainHeight < 0 {
		retainHeight = 0
	}
	return &abcitypes.ResponseCommit{RetainHeight: retainHeight}, nil
}

// Query serves read-only queries against the tree.
func (app *App) Query(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	app.mu.RLock()
	defer app.mu.RUnlock()

	switch req.Path {
	case "/root":
		root := app.tree.Root()
		return &abcitypes.ResponseQuery{Code: 0, Value: root.Bytes()[:], Log: "root"}, nil

	case "/position":
		return &abcitypes.ResponseQuery{
			Code:  0,
			Value: []byte(fmt.Sprintf("%d", app.tree.Position())),
			Log:   "position",
		}, nil

	case "/forgotten_count":
		return &abcitypes.ResponseQuery{
			Code:  0,
			Value: []byte(fmt.Sprintf("%d", app.tree.ForgottenCount())),
			Log:   "forgotten_count",
		}, nil

	case "/witness":
		if len(req.Data) != tct.FqSize {
			return &abcitypes.ResponseQuery{Code: 1, Log: fmt.Sprintf("commitment must be %d bytes", tct.FqSize)}, nil
		}
		var arr [tct.FqSize]byte
		copy(arr[:], req.Data)
		c, err := tct.CommitmentFromBytes(arr)
		if err != nil {
			return &abcitypes.ResponseQuery{Code: 1, Log: "invalid commitment: " + err.Error()}, nil
		}
		proof, err := app.tree.Witness(c)
		if err != nil {
			return &abcitypes.ResponseQuery{Code: 2, Log: "witness failed: " + err.Error()}, nil
		}
		marshaled := proof.MarshalProof()
		return &abcitypes.ResponseQuery{Code: 0, Value: marshaled[:], Log: "witness"}, nil

	default:
		return &abcitypes.ResponseQuery{Code: 2, Log: "unknown query path: " + req.Path}, nil
	}
}

// PrepareProposal accepts the mempool's transactions as-is.
func (app *App) PrepareProposal(ctx context.Context, req *abcitypes.RequestPrepareProposal) (*abcitypes.ResponsePrepareProposal, error) {
	return &abcitypes.ResponsePrepareProposal{Txs: req.Txs}, nil
}

// ProcessProposal rejects a proposed block if any transaction fails to
// parse or validate.
func (app *App) ProcessProposal(ctx context.Context, req *abcitypes.RequestProcessProposal) (*abcitypes.ResponseProcessProposal, error) {
	for _, tx := range req.Txs {
		var t Tx
		if err := json.Unmarshal(tx, &t); err != nil {
			return &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}, nil
		}
		if err := validateTx(&t); err != nil {
			return &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}, nil
		}
	}
	return &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_ACCEPT}, nil
}

// ExtendVote is unused by this application.
func (app *App) ExtendVote(ctx context.Context, req *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

// VerifyVoteExtension is unused by this application.
func (app *App) VerifyVoteExtension(ctx context.Context, req *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{Status: abcitypes.ResponseVerifyVoteExtension_ACCEPT}, nil
}

// ListSnapshots reports no state-sync snapshots; recovery goes through
// SnapshotStore instead.
func (app *App) ListSnapshots(ctx context.Context, req *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return &abcitypes.ResponseListSnapshots{}, nil
}

// OfferSnapshot always aborts; this application does not support
// CometBFT's state-sync snapshot protocol.
func (app *App) OfferSnapshot(ctx context.Context, req *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return &abcitypes.ResponseOfferSnapshot{Result: abcitypes.ResponseOfferSnapshot_ABORT}, nil
}

// LoadSnapshotChunk is unused by this application.
func (app *App) LoadSnapshotChunk(ctx context.Context, req *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return &abcitypes.ResponseLoadSnapshotChunk{}, nil
}

// ApplySnapshotChunk always aborts, matching OfferSnapshot.
func (app *App) ApplySnapshotChunk(ctx context.Context, req *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return &abcitypes.ResponseApplySnapshotChunk{Result: abcitypes.ResponseApplySnapshotChunk_ABORT}, nil
}

func truncate(b []byte) []byte {
	if len(b) > 8 {
		return b[:8]
	}
	return b
}
