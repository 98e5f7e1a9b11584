package nodesim

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gabrielantonyxaviour/jedi-vault/interfaces"
	"github.com/gabrielantonyxaviour/jedi-vault/tokens"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// Handler implements one node's side of the vault wire protocol: bearer
// token verification with audience binding, then create, read or delete
// against the in-memory store.
type Handler struct {
	nodeID   interfaces.NodeID
	verifier *tokens.Verifier
	store    *Store
	log      *slog.Logger
}

// NewHandler creates a node handler verifying tokens against the caller's
// public key.
func NewHandler(nodeID interfaces.NodeID, callerPubPEM []byte, logger *slog.Logger) (*Handler, error) {
	verifier, err := tokens.NewVerifier(nodeID, callerPubPEM)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		nodeID:   nodeID,
		verifier: verifier,
		store:    NewStore(),
		log:      logger,
	}, nil
}

// Store exposes the underlying store, mainly so tests can corrupt or
// inspect node-side state directly.
func (h *Handler) Store() *Store {
	return h.store
}

type createRequest struct {
	Schema interfaces.SchemaID        `json:"schema"`
	Data   []interfaces.PartialRecord `json:"data"`
}

type filterRequest struct {
	Schema interfaces.SchemaID `json:"schema"`
	Filter interfaces.Filter   `json:"filter"`
}

// HandleCreate stores the partial records of a create request.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	var req createRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Schema == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing schema"))
		return
	}

	h.store.Create(req.Schema, req.Data)
	h.log.Debug("records created",
		slog.String("node", h.nodeID.String()),
		slog.String("schema", req.Schema.String()),
		slog.Int("count", len(req.Data)))
	writeJSON(w, http.StatusCreated, map[string]any{"created": len(req.Data)})
}

// HandleRead returns the partial records matching the request filter.
func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	var req filterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Schema == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing schema"))
		return
	}

	records := h.store.Read(req.Schema, req.Filter)
	if records == nil {
		records = []interfaces.PartialRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": records})
}

// HandleDelete removes the partial records matching the request filter.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	var req filterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Schema == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing schema"))
		return
	}

	removed := h.store.Delete(req.Schema, req.Filter)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": removed})
}

// authorize verifies the bearer token, including that its audience names
// this node. A token minted for another node fails here with 401.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) bool {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
		return false
	}

	issuer, err := h.verifier.Verify(interfaces.BearerToken(token))
	if err != nil {
		h.log.Warn("token rejected",
			slog.String("node", h.nodeID.String()),
			slog.Any("err", err))
		writeError(w, http.StatusUnauthorized, err)
		return false
	}

	h.log.Debug("token accepted",
		slog.String("node", h.nodeID.String()),
		slog.String("issuer", issuer))
	return true
}

func decodeBody(r *http.Request, into any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(into); err != nil {
		return fmt.Errorf("could not parse request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
