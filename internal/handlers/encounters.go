package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/jwebster45206/encounter-engine/internal/encounter"
	"github.com/jwebster45206/encounter-engine/internal/logger"
	"github.com/jwebster45206/encounter-engine/internal/services/queue"
	"github.com/jwebster45206/encounter-engine/pkg/history"
	"github.com/jwebster45206/encounter-engine/pkg/resolve"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// EncounterService is the encounter manager as seen by the HTTP layer.
type EncounterService interface {
	Open(ctx context.Context, req encounter.OpenRequest) (*encounter.Snapshot, error)
	Active(communityID string) (*encounter.Snapshot, error)
	Join(ctx context.Context, communityID, actorID string, action resolve.Action) (*encounter.Membership, error)
	Leave(ctx context.Context, communityID, actorID string) (*encounter.Membership, error)
	Signal(ctx context.Context, communityID, actorID string) error
	ActivateAbility(ctx context.Context, communityID, actorID string) (*encounter.AbilityResult, error)
	Finalize(ctx context.Context, communityID string) (*encounter.Result, error)
	DifficultySample(ctx context.Context, communityID string) (history.Sample, error)
}

// NarrativeReader returns the recent narrative of a community.
type NarrativeReader interface {
	Peek(ctx context.Context, communityID string, limit int) ([]queue.Entry, error)
}

var _ EncounterService = (*encounter.Manager)(nil)

// OpenEncounterRequest is the body of POST /v1/encounters/{community}
type OpenEncounterRequest struct {
	StarterID    string `json:"starter_id"`
	Monster      string `json:"monster,omitempty"`
	Attribute    string `json:"attribute,omitempty"`
	ForceVisible bool   `json:"force_visible,omitempty"`
}

// ActorRequest is the body of the join, leave, signal and ability routes.
type ActorRequest struct {
	ActorID string         `json:"actor_id"`
	Action  resolve.Action `json:"action,omitempty"`
}

type EncounterHandler struct {
	encounters EncounterService
	narrative  NarrativeReader
	logger     *slog.Logger
}

// NewEncounterHandler builds the encounter routes. narrative may be nil, in
// which case the log route answers 404.
func NewEncounterHandler(encounters EncounterService, narrative NarrativeReader, logger *slog.Logger) *EncounterHandler {
	return &EncounterHandler{
		encounters: encounters,
		narrative:  narrative,
		logger:     logger,
	}
}

// ServeHTTP routes encounter requests
// Routes:
// POST /v1/encounters/{community}           - Open an encounter
// GET  /v1/encounters/{community}           - Active encounter snapshot
// POST /v1/encounters/{community}/join      - Join a roster
// POST /v1/encounters/{community}/leave     - Leave the encounter
// POST /v1/encounters/{community}/signal    - Signal the guardian
// POST /v1/encounters/{community}/ability   - Activate a class ability
// POST /v1/encounters/{community}/finalize  - End the encounter now
// GET  /v1/encounters/{community}/log       - Recent narrative
func (h *EncounterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/encounters"), "/")
	parts := strings.Split(path, "/")
	if path == "" || len(parts) > 2 || parts[0] == "" {
		h.writeError(w, http.StatusBadRequest, "Invalid path. Expected /v1/encounters/{community}[/{operation}]")
		return
	}
	communityID := parts[0]
	op := ""
	if len(parts) == 2 {
		op = parts[1]
	}
	log := logger.WithCommunity(h.logger, communityID)

	switch {
	case op == "" && r.Method == http.MethodPost:
		h.handleOpen(w, r, communityID, log)
	case op == "" && r.Method == http.MethodGet:
		h.handleActive(w, communityID)
	case op == "log" && r.Method == http.MethodGet:
		h.handleLog(w, r, communityID, log)
	case op == "finalize" && r.Method == http.MethodPost:
		h.handleFinalize(w, r, communityID, log)
	case (op == "join" || op == "leave" || op == "signal" || op == "ability") && r.Method == http.MethodPost:
		h.handleActor(w, r, communityID, op, log)
	case op == "" || op == "log" || op == "finalize" || op == "join" || op == "leave" || op == "signal" || op == "ability":
		log.Warn("Method not allowed for encounter endpoint", "method", r.Method, "operation", op)
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	default:
		h.writeError(w, http.StatusNotFound, "Unknown encounter operation: "+op)
	}
}

func (h *EncounterHandler) handleOpen(w http.ResponseWriter, r *http.Request, communityID string, log *slog.Logger) {
	var req OpenEncounterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("Invalid open request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snap, err := h.encounters.Open(r.Context(), encounter.OpenRequest{
		CommunityID:  communityID,
		StarterID:    req.StarterID,
		Monster:      req.Monster,
		Attribute:    req.Attribute,
		ForceVisible: req.ForceVisible,
	})
	if err != nil {
		h.writeEncounterError(w, err, log)
		return
	}

	log.Info("Encounter opened", "encounter_id", snap.ID, "starter_id", req.StarterID)
	h.writeJSON(w, http.StatusCreated, snap)
}

func (h *EncounterHandler) handleActive(w http.ResponseWriter, communityID string) {
	snap, err := h.encounters.Active(communityID)
	if err != nil {
		h.writeEncounterError(w, err, h.logger)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *EncounterHandler) handleActor(w http.ResponseWriter, r *http.Request, communityID, op string, log *slog.Logger) {
	var req ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("Invalid request body", "error", err, "operation", op)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ActorID == "" {
		h.writeError(w, http.StatusBadRequest, "actor_id is required")
		return
	}
	log = logger.WithActor(log, req.ActorID)

	var (
		body any
		err  error
	)
	switch op {
	case "join":
		body, err = h.encounters.Join(r.Context(), communityID, req.ActorID, req.Action)
	case "leave":
		body, err = h.encounters.Leave(r.Context(), communityID, req.ActorID)
	case "signal":
		err = h.encounters.Signal(r.Context(), communityID, req.ActorID)
		body = map[string]any{"actor_id": req.ActorID, "signaled": true}
	case "ability":
		body, err = h.encounters.ActivateAbility(r.Context(), communityID, req.ActorID)
	}
	if err != nil {
		h.writeEncounterError(w, err, log)
		return
	}

	log.Debug("Encounter request handled", "operation", op)
	h.writeJSON(w, http.StatusOK, body)
}

// handleFinalize settles the encounter even if the client hangs up: the
// encounter is already closed by then and must not be abandoned halfway.
func (h *EncounterHandler) handleFinalize(w http.ResponseWriter, r *http.Request, communityID string, log *slog.Logger) {
	res, err := h.encounters.Finalize(context.WithoutCancel(r.Context()), communityID)
	if err != nil {
		h.writeEncounterError(w, err, log)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *EncounterHandler) handleLog(w http.ResponseWriter, r *http.Request, communityID string, log *slog.Logger) {
	if h.narrative == nil {
		h.writeError(w, http.StatusNotFound, "Narrative log is not enabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := h.narrative.Peek(r.Context(), communityID, limit)
	if err != nil {
		log.Error("Failed to read narrative log", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to read narrative log")
		return
	}
	if entries == nil {
		entries = []queue.Entry{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// writeEncounterError maps manager errors onto status codes. Validation
// errors carry the message meant for the actor.
func (h *EncounterHandler) writeEncounterError(w http.ResponseWriter, err error, log *slog.Logger) {
	var fatal *encounter.FatalError
	switch {
	case errors.As(err, &fatal):
		log.Error("Encounter failed", "error", err, "encounter_id", fatal.EncounterID)
		h.writeError(w, http.StatusInternalServerError, "The encounter could not be finalized")
	case errors.Is(err, encounter.ErrNoEncounter), errors.Is(err, encounter.ErrNotJoined):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, encounter.ErrEncounterActive),
		errors.Is(err, encounter.ErrActorBusy),
		errors.Is(err, encounter.ErrOnCooldown),
		errors.Is(err, encounter.ErrWindowClosed):
		h.writeError(w, http.StatusConflict, err.Error())
	case encounter.IsValidation(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error("Encounter request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *EncounterHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *EncounterHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, ErrorResponse{Error: msg})
}
