package tctserver

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/certen/tct/pkg/tct"
)

func newTestTree(t *testing.T) *tct.Tree {
	t.Helper()
	tr := tct.New()
	var arr [tct.FqSize]byte
	arr[31] = 9
	c, err := tct.CommitmentFromBytes(arr)
	if err != nil {
		t.Fatalf("CommitmentFromBytes failed: %v", err)
	}
	if _, err := tr.Insert(tct.Keep, c); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := tr.EndBlock(); err != nil {
		t.Fatalf("EndBlock failed: %v", err)
	}
	return tr
}

func TestHandleGetRoot(t *testing.T) {
	h := NewHandlers(newTestTree(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/root", nil)
	w := httptest.NewRecorder()
	h.HandleGetRoot(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, ok := body["root"]; !ok {
		t.Error("response missing root field")
	}
}

func TestHandleGetRootRejectsNonGet(t *testing.T) {
	h := NewHandlers(newTestTree(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/root", nil)
	w := httptest.NewRecorder()
	h.HandleGetRoot(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestHandleGetWitnessRoundTrip(t *testing.T) {
	tr := newTestTree(t)
	h := NewHandlers(tr, nil)

	var arr [tct.FqSize]byte
	arr[31] = 9
	commitmentHex := hex.EncodeToString(arr[:])

	req := httptest.NewRequest(http.MethodGet, "/v1/witness/"+commitmentHex, nil)
	w := httptest.NewRecorder()
	h.HandleGetWitness(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	proofHex, _ := body["proof"].(string)
	proofBytes, err := hex.DecodeString(proofHex)
	if err != nil {
		t.Fatalf("proof is not valid hex: %v", err)
	}
	if len(proofBytes) != tct.ProofSize {
		t.Errorf("proof length = %d, want %d", len(proofBytes), tct.ProofSize)
	}
}

func TestHandleGetWitnessUnknownCommitment(t *testing.T) {
	h := NewHandlers(newTestTree(t), nil)

	var arr [tct.FqSize]byte
	arr[31] = 10
	req := httptest.NewRequest(http.MethodGet, "/v1/witness/"+hex.EncodeToString(arr[:]), nil)
	w := httptest.NewRecorder()
	h.HandleGetWitness(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHandleGetState(t *testing.T) {
	h := NewHandlers(newTestTree(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/state", nil)
	w := httptest.NewRecorder()
	h.HandleGetState(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, field := range []string{"root", "position", "epoch", "block", "forgotten_count"} {
		if _, ok := body[field]; !ok {
			t.Errorf("response missing %q field", field)
		}
	}
}
