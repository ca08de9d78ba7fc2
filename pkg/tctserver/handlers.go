// Copyright 2025 Certen Protocol
//
// HTTP API for read access to the tree: root, witness proofs, and
// live-state snapshots for external auditors.

package tctserver

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/certen/tct/pkg/tct"
)

var errInvalidCommitmentLength = errors.New("tctserver: commitment must be 32 bytes")

// Handlers provides HTTP handlers for read access to a tree.
type Handlers struct {
	tree   *tct.Tree
	logger *log.Logger
}

// NewHandlers creates new tree API handlers.
func NewHandlers(tree *tct.Tree, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.New(log.Writer(), "[tctserver] ", log.LstdFlags)
	}
	return &Handlers{tree: tree, logger: logger}
}

// HandleGetRoot handles GET /v1/root
func (h *Handlers) HandleGetRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only GET is allowed")
		return
	}

	root := h.tree.Root()
	b := root.Bytes()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"root":     hex.EncodeToString(b[:]),
		"position": uint64(h.tree.Position()),
	})
}

// HandleGetWitness handles GET /v1/witness/{commitment_hex}
func (h *Handlers) HandleGetWitness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only GET is allowed")
		return
	}

	reqID := uuid.NewString()

	path := strings.TrimPrefix(r.URL.Path, "/v1/witness/")
	commitmentHex := strings.TrimSuffix(path, "/")
	if commitmentHex == "" {
		h.writeError(w, http.StatusBadRequest, "INVALID_COMMITMENT", "commitment is required")
		return
	}

	c, err := decodeCommitment(commitmentHex)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_COMMITMENT", err.Error())
		return
	}

	proof, err := h.tree.Witness(c)
	if err != nil {
		h.logger.Printf("[%s] witness failed for %s: %v", reqID, commitmentHex, err)
		h.writeError(w, http.StatusNotFound, "NOT_WITNESSED", err.Error())
		return
	}

	marshaled := proof.MarshalProof()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"request_id": reqID,
		"commitment": commitmentHex,
		"proof":      hex.EncodeToString(marshaled[:]),
	})
}

// HandleGetForgottenCount handles GET /v1/forgotten_count
func (h *Handlers) HandleGetForgottenCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only GET is allowed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"forgotten_count": h.tree.ForgottenCount(),
	})
}

// HandleGetState handles GET /v1/state, returning a small JSON snapshot of
// the tree's live state for auditing nodes that don't want the full sparse
// serialization.
func (h *Handlers) HandleGetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only GET is allowed")
		return
	}

	root := h.tree.Root()
	b := root.Bytes()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"root":            hex.EncodeToString(b[:]),
		"position":        uint64(h.tree.Position()),
		"epoch":           h.tree.Position().Epoch(),
		"block":           h.tree.Position().Block(),
		"forgotten_count": h.tree.ForgottenCount(),
		"block_state":     int(h.tree.BlockState()),
		"epoch_state":     int(h.tree.EpochState()),
	})
}

func decodeCommitment(commitmentHex string) (tct.Commitment, error) {
	b, err := hex.DecodeString(commitmentHex)
	if err != nil {
		return tct.Commitment{}, err
	}
	if len(b) != tct.FqSize {
		return tct.Commitment{}, errInvalidCommitmentLength
	}
	var arr [tct.FqSize]byte
	copy(arr[:], b)
	return tct.CommitmentFromBytes(arr)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("error encoding response: %v", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
