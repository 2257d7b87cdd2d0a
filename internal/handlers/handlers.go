package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"gigs/internal/engine"
	"gigs/models"
)

// Handler wires the HTTP surface to the engine and the read-side storage.
type Handler struct {
	Store  StorageInterface
	Engine EngineInterface
	Auth   Authorizer
}

func NewHandler(store StorageInterface, eng EngineInterface, auth Authorizer) *Handler {
	return &Handler{Store: store, Engine: eng, Auth: auth}
}

// PingHandler answers "ok" for liveness checks
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// writeEngineError maps the typed failure taxonomy onto HTTP statuses. Every
// engine error reaches the caller explicitly; nothing is swallowed into a
// generic success.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, engine.ErrAlreadyAssigned),
		errors.Is(err, engine.ErrDuplicateBid),
		errors.Is(err, engine.ErrRatingExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, engine.ErrInvalidTransition),
		errors.Is(err, engine.ErrIncompleteComplaint),
		errors.Is(err, engine.ErrInvalidRating):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// CreateGigHandler handles POST /api/gigs/new
func (h *Handler) CreateGigHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.Auth.Authorize(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	// Cap the body size to avoid DoS
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var gig models.Gig
	if err := json.Unmarshal(body, &gig); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	if err := validateGigRequest(&gig); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Engine.CreateGig(r.Context(), actor, &gig); err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(gig)
}

func validateGigRequest(g *models.Gig) error {
	if g.Title == "" || len(g.Title) > 100 {
		return errors.New("title is required and max length 100")
	}
	if g.Description == "" || len(g.Description) > 500 {
		return errors.New("description is required and max length 500")
	}
	if g.Price <= 0 {
		return errors.New("price must be positive")
	}
	if g.Status != "" && g.Status != models.GigStatusOpen {
		return errors.New("status must be 'Open' on creation")
	}
	return nil
}
