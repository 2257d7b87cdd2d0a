package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gigs/models"
)

// SubmitRatingHandler handles POST /api/gigs/{gigId}/rating. A score below
// three must carry a complete complaint with an affirmed sincerity agreement;
// the engine rejects anything less with nothing persisted.
func (h *Handler) SubmitRatingHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.Auth.Authorize(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	gigID, ok := gigIDParam(r)
	if !ok {
		http.Error(w, "Invalid gigId", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var input struct {
		Rating    int               `json:"rating"`
		Review    string            `json:"review"`
		Complaint *models.Complaint `json:"complaint"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if len(input.Review) > 1000 {
		http.Error(w, "review max length 1000", http.StatusBadRequest)
		return
	}

	rating, err := h.Engine.SubmitRating(r.Context(), gigID, actor, input.Rating, input.Review, input.Complaint)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(rating)
}

// GetGigRatingHandler returns the rating recorded for a gig
func (h *Handler) GetGigRatingHandler(w http.ResponseWriter, r *http.Request) {
	gigID, ok := gigIDParam(r)
	if !ok {
		http.Error(w, "Invalid gigId", http.StatusBadRequest)
		return
	}

	rating, err := h.Store.GetRatingByGig(r.Context(), gigID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, rating)
}

// GetProviderStrikesHandler returns a provider's strike standing. Providers
// may read their own; admins may read anyone's.
func (h *Handler) GetProviderStrikesHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.Auth.Authorize(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	providerID, err := strconv.Atoi(chi.URLParam(r, "providerId"))
	if err != nil || providerID <= 0 {
		http.Error(w, "Invalid providerId", http.StatusBadRequest)
		return
	}

	if actor.Role != models.RoleAdmin && actor.ID != providerID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	strike, err := h.Store.GetStrike(r.Context(), providerID)
	if err != nil {
		http.Error(w, "Failed to get strikes", http.StatusInternalServerError)
		return
	}

	writeJSON(w, strike)
}
