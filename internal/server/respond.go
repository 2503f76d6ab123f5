package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/splitledger/splitledger/internal/ledger"
	"github.com/splitledger/splitledger/internal/split"
	"github.com/splitledger/splitledger/internal/storage"
)

// errorResponse is the JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

// decode reads the request body into v, rejecting malformed JSON.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

var errBadRequest = errors.New("invalid request body")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("Failed to encode response", "error", err)
		}
	}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, ledger.ErrRelationshipNotFound),
		errors.Is(err, ledger.ErrEntryNotFound),
		errors.Is(err, ledger.ErrGroupNotFound),
		errors.Is(err, ledger.ErrMemberNotFound),
		errors.Is(err, ledger.ErrSettlementNotFound),
		errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound

	case errors.Is(err, errBadRequest),
		errors.Is(err, split.ErrMismatch),
		errors.Is(err, split.ErrBadShape),
		errors.Is(err, split.ErrNonPositiveAmount),
		errors.Is(err, split.ErrSelfTransaction):
		status = http.StatusBadRequest

	case errors.Is(err, ledger.ErrNotParticipant):
		status = http.StatusForbidden

	case errors.Is(err, ledger.ErrActionNotAllowed),
		errors.Is(err, ledger.ErrInactiveMember),
		errors.Is(err, ledger.ErrAlreadySettled),
		errors.Is(err, ledger.ErrSettlementExceedsBalance),
		errors.Is(err, ledger.ErrWrongDirection),
		errors.Is(err, storage.ErrConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
