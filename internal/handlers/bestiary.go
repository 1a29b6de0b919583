package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/jwebster45206/encounter-engine/pkg/actor"
)

// BestiarySource loads the content tables.
type BestiarySource interface {
	GetBestiary(ctx context.Context) (*actor.Bestiary, error)
}

// BestiaryResponse lists the names in each table.
type BestiaryResponse struct {
	Monsters   []string            `json:"monsters"`
	Elite      []string            `json:"elite"`
	Themes     map[string][]string `json:"themes,omitempty"`
	Attributes []string            `json:"attributes"`
	Locations  int                 `json:"locations"`
}

type BestiaryHandler struct {
	logger  *slog.Logger
	storage BestiarySource
}

func NewBestiaryHandler(logger *slog.Logger, storage BestiarySource) *BestiaryHandler {
	return &BestiaryHandler{
		logger:  logger,
		storage: storage,
	}
}

func (h *BestiaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if r.URL.Path == "/v1/bestiary" || r.URL.Path == "/v1/bestiary/" {
			h.ListMonsters(w, r)
		} else {
			h.GetMonster(w, r)
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *BestiaryHandler) ListMonsters(w http.ResponseWriter, r *http.Request) {
	b, err := h.storage.GetBestiary(r.Context())
	if err != nil {
		h.logger.Error("Failed to load bestiary", "error", err)
		http.Error(w, "Failed to load bestiary", http.StatusInternalServerError)
		return
	}

	response := BestiaryResponse{
		Monsters:   sortedKeys(b.Monsters),
		Elite:      sortedKeys(b.Elite),
		Attributes: sortedKeys(b.Attributes),
		Locations:  len(b.Locations),
	}
	if len(b.Themes) > 0 {
		response.Themes = make(map[string][]string, len(b.Themes))
		for theme, extras := range b.Themes {
			response.Themes[theme] = sortedKeys(extras)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// GetMonster looks a name up in the general, elite and theme tables in
// that order.
func (h *BestiaryHandler) GetMonster(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/v1/bestiary/"))

	if name == "" || strings.Contains(name, "/") {
		http.Error(w, "Monster name is required in URL path (e.g., /v1/bestiary/Ogre)", http.StatusBadRequest)
		return
	}

	b, err := h.storage.GetBestiary(r.Context())
	if err != nil {
		h.logger.Error("Failed to load bestiary", "error", err)
		http.Error(w, "Failed to load bestiary", http.StatusInternalServerError)
		return
	}

	monster, ok := lookupMonster(b, name)
	if !ok {
		http.Error(w, "Monster not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(monster); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

func lookupMonster(b *actor.Bestiary, name string) (actor.Monster, bool) {
	if m, ok := b.Monsters[name]; ok {
		return m, true
	}
	if m, ok := b.Elite[name]; ok {
		return m, true
	}
	themes := sortedKeys(b.Themes)
	for _, theme := range themes {
		if m, ok := b.Themes[theme][name]; ok {
			return m, true
		}
	}
	return actor.Monster{}, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
