package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/encounter-engine/pkg/history"
)

// DifficultySampler summarizes a community's recent outcomes.
type DifficultySampler interface {
	DifficultySample(ctx context.Context, communityID string) (history.Sample, error)
}

type DifficultyHandler struct {
	sampler DifficultySampler
	logger  *slog.Logger
}

func NewDifficultyHandler(sampler DifficultySampler, logger *slog.Logger) *DifficultyHandler {
	return &DifficultyHandler{
		sampler: sampler,
		logger:  logger,
	}
}

// ServeHTTP handles GET /v1/difficulty/{community}
func (h *DifficultyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		if err := json.NewEncoder(w).Encode(ErrorResponse{
			Error: "Method not allowed. Only GET is supported.",
		}); err != nil {
			h.logger.Error("Failed to encode error response", "error", err)
		}
		return
	}

	communityID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/difficulty"), "/")
	if communityID == "" || strings.Contains(communityID, "/") {
		w.WriteHeader(http.StatusBadRequest)
		if err := json.NewEncoder(w).Encode(ErrorResponse{
			Error: "Invalid path. Expected /v1/difficulty/{community}",
		}); err != nil {
			h.logger.Error("Failed to encode error response", "error", err)
		}
		return
	}

	sample, err := h.sampler.DifficultySample(r.Context(), communityID)
	if err != nil {
		h.logger.Error("Failed to read difficulty sample", "error", err, "community_id", communityID)
		w.WriteHeader(http.StatusInternalServerError)
		if err := json.NewEncoder(w).Encode(ErrorResponse{
			Error: "Failed to read difficulty sample",
		}); err != nil {
			h.logger.Error("Failed to encode error response", "error", err)
		}
		return
	}

	if err := json.NewEncoder(w).Encode(sample); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}
