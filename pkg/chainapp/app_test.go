package chainapp

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"testing"

	abcitypes "github.com/cometbft/cometbft/abci/types"

	"github.com/certen/tct/pkg/tct"
)

func commitmentHex(b byte) string {
	var arr [tct.FqSize]byte
	arr[31] = b
	return hex.EncodeToString(arr[:])
}

func TestCheckTxRejectsInvalidJSON(t *testing.T) {
	app := NewApp(nil, "test-chain", nil)
	resp, err := app.CheckTx(context.Background(), &abcitypes.RequestCheckTx{Tx: []byte("not json")})
	if err != nil {
		t.Fatalf("CheckTx returned error: %v", err)
	}
	if resp.Code == 0 {
		t.Fatal("CheckTx should have rejected invalid JSON")
	}
}

func TestCheckTxAcceptsValidInsert(t *testing.T) {
	app := NewApp(nil, "test-chain", nil)
	tx, _ := json.Marshal(Tx{Op: opInsert, Commitment: commitmentHex(1), Keep: true})
	resp, err := app.CheckTx(context.Background(), &abcitypes.RequestCheckTx{Tx: tx})
	if err != nil {
		t.Fatalf("CheckTx returned error: %v", err)
	}
	if resp.Code != 0 {
		t.Fatalf("CheckTx rejected a valid tx: %s", resp.Log)
	}
}

func TestFinalizeBlockAndCommitAdvanceTree(t *testing.T) {
	app := NewApp(nil, "test-chain", nil)
	tx, _ := json.Marshal(Tx{Op: opInsert, Commitment: commitmentHex(2), Keep: true})

	fbResp, err := app.FinalizeBlock(context.Background(), &abcitypes.RequestFinalizeBlock{
		Height: 1,
		Txs:    [][]byte{tx},
	})
	if err != nil {
		t.Fatalf("FinalizeBlock returned error: %v", err)
	}
	if len(fbResp.TxResults) != 1 || fbResp.TxResults[0].Code != 0 {
		t.Fatalf("expected tx to succeed, got %+v", fbResp.TxResults)
	}

	commitResp, err := app.Commit(context.Background(), &abcitypes.RequestCommit{})
	if err != nil {
		t.Fatalf("Commit returned error: %v", err)
	}
	if commitResp.RetainHeight != 0 {
		t.Errorf("RetainHeight = %d, want 0 for an early block", commitResp.RetainHeight)
	}

	queryResp, err := app.Query(context.Background(), &abcitypes.RequestQuery{Path: "/position"})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if queryResp.Code != 0 {
		t.Fatalf("Query(/position) failed: %s", queryResp.Log)
	}
}

func TestQueryWitnessRoundTrip(t *testing.T) {
	app := NewApp(nil, "test-chain", nil)
	tx, _ := json.Marshal(Tx{Op: opInsert, Commitment: commitmentHex(3), Keep: true})

	if _, err := app.FinalizeBlock(context.Background(), &abcitypes.RequestFinalizeBlock{Height: 1, Txs: [][]byte{tx}}); err != nil {
		t.Fatalf("FinalizeBlock returned error: %v", err)
	}
	if _, err := app.Commit(context.Background(), &abcitypes.RequestCommit{}); err != nil {
		t.Fatalf("Commit returned error: %v", err)
	}

	var arr [tct.FqSize]byte
	arr[31] = 3
	resp, err := app.Query(context.Background(), &abcitypes.RequestQuery{Path: "/witness", Data: arr[:]})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if resp.Code != 0 {
		t.Fatalf("Query(/witness) failed: %s", resp.Log)
	}
	if len(resp.Value) != tct.ProofSize {
		t.Errorf("witness proof length = %d, want %d", len(resp.Value), tct.ProofSize)
	}
}
