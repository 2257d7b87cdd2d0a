package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type PaginationParams struct {
	Limit  int
	Offset int
}

// parsePaginationParams reads limit and offset from the query with defaults
// and caps
func parsePaginationParams(r *http.Request) PaginationParams {
	var params PaginationParams
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	params.Limit = 20
	params.Offset = 0

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			params.Limit = l
		}
	}
	if offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			params.Offset = o
		}
	}
	return params
}

func gigIDParam(r *http.Request) (int, bool) {
	gigID, err := strconv.Atoi(chi.URLParam(r, "gigId"))
	return gigID, err == nil && gigID > 0
}

// GetGigsHandler returns the gig listing with an optional tier filter
func (h *Handler) GetGigsHandler(w http.ResponseWriter, r *http.Request) {
	params := parsePaginationParams(r)
	tiers := r.URL.Query()["tier"]

	gigs, err := h.Store.GetGigs(r.Context(), tiers, params.Limit, params.Offset)
	if err != nil {
		http.Error(w, "Failed to get gigs", http.StatusInternalServerError)
		return
	}

	writeJSON(w, gigs)
}

// GetGigHandler returns one gig by id
func (h *Handler) GetGigHandler(w http.ResponseWriter, r *http.Request) {
	gigID, ok := gigIDParam(r)
	if !ok {
		http.Error(w, "Invalid gigId", http.StatusBadRequest)
		return
	}

	gig, err := h.Store.GetGig(r.Context(), gigID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, gig)
}

// GetUserGigsHandler returns the gigs posted by the calling actor
func (h *Handler) GetUserGigsHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.Auth.Authorize(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	params := parsePaginationParams(r)

	gigs, err := h.Store.GetUserGigs(r.Context(), actor.ID, params.Limit, params.Offset)
	if err != nil {
		http.Error(w, "Failed to get user gigs", http.StatusInternalServerError)
		return
	}

	writeJSON(w, gigs)
}

// GetGigHistoryHandler returns the append-only audit trail for a gig
func (h *Handler) GetGigHistoryHandler(w http.ResponseWriter, r *http.Request) {
	gigID, ok := gigIDParam(r)
	if !ok {
		http.Error(w, "Invalid gigId", http.StatusBadRequest)
		return
	}

	if _, err := h.Store.GetGig(r.Context(), gigID); err != nil {
		writeEngineError(w, err)
		return
	}

	entries, err := h.Store.GetGigHistory(r.Context(), gigID)
	if err != nil {
		http.Error(w, "Failed to get gig history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, entries)
}

// ChangeGigStatusHandler handles PUT /api/gigs/{gigId}/status. The requested
// transition is validated and applied atomically by the engine; a bidId is
// required when the transition approves a bid.
func (h *Handler) ChangeGigStatusHandler(w http.ResponseWriter, r *http.Request) {
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

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Cannot read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var input struct {
		Status      string `json:"status"`
		BidID       *int   `json:"bidId"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if input.Status == "" {
		http.Error(w, "Missing status", http.StatusBadRequest)
		return
	}

	gig, err := h.Engine.Transition(r.Context(), gigID, input.Status, actor, input.BidID, input.Description)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, gig)
}
