package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gigs/models"
)

// PlaceBidHandler handles POST /api/bids/new
func (h *Handler) PlaceBidHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.Auth.Authorize(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
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
		GigID         int     `json:"gigId"`
		BidAmount     float64 `json:"bidAmount"`
		BidAmountType string  `json:"bidAmountType"`
		Description   string  `json:"description"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	if err := validateBidRequest(input.GigID, input.BidAmount, input.BidAmountType, input.Description); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	bid, err := h.Engine.PlaceBid(r.Context(), input.GigID, actor, input.BidAmount, input.BidAmountType, input.Description)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(bid)
}

func validateBidRequest(gigID int, amount float64, amountType, description string) error {
	if gigID <= 0 {
		return errors.New("gigId must be positive")
	}
	if amount <= 0 {
		return errors.New("bidAmount must be positive")
	}
	if amountType != models.BidAmountHourly && amountType != models.BidAmountFixed {
		return errors.New("bidAmountType must be 'hourly' or 'fixed'")
	}
	if len(description) > 500 {
		return errors.New("description max length 500")
	}
	return nil
}

// GetUserBidsHandler returns the bids placed by the calling actor
func (h *Handler) GetUserBidsHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.Auth.Authorize(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	params := parsePaginationParams(r)

	bids, err := h.Store.GetUserBids(r.Context(), actor.ID, params.Limit, params.Offset)
	if err != nil {
		http.Error(w, "Failed to get user bids", http.StatusInternalServerError)
		return
	}

	writeJSON(w, bids)
}

// GetBidsForGigHandler returns all bids on a gig; only the gig owner and
// admins may list them.
func (h *Handler) GetBidsForGigHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.Auth.Authorize(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	params := parsePaginationParams(r)

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
	if actor.Role != models.RoleAdmin && actor.ID != gig.CreatedBy {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	bids, err := h.Store.GetBidsForGig(r.Context(), gigID, params.Limit, params.Offset)
	if err != nil {
		http.Error(w, "Failed to get bids for gig", http.StatusInternalServerError)
		return
	}

	writeJSON(w, bids)
}

// SetBidStatusHandler handles PUT /api/bids/{bidId}/status, the
// administrative shortcut that funnels into bid approval or rejection.
// Approving moves the gig into its assigned status and rejects every other
// pending bid in the same unit.
func (h *Handler) SetBidStatusHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.Auth.Authorize(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	bidID, err := strconv.Atoi(chi.URLParam(r, "bidId"))
	if err != nil || bidID <= 0 {
		http.Error(w, "Invalid bidId", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Cannot read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var input struct {
		GigID  int    `json:"gigId"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if input.GigID <= 0 {
		http.Error(w, "gigId must be positive", http.StatusBadRequest)
		return
	}

	switch input.Status {
	case models.BidStatusApproved:
		gig, err := h.Engine.ApproveBid(r.Context(), input.GigID, bidID, actor)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, gig)
	case models.BidStatusRejected:
		bid, err := h.Engine.RejectBid(r.Context(), input.GigID, bidID, actor)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, bid)
	default:
		http.Error(w, "status must be 'approved' or 'rejected'", http.StatusBadRequest)
	}
}
