package engine

import (
	"context"
	"fmt"

	"gigs/internal/status"
	"gigs/models"
)

// PlaceBid submits a bid against a gig that is still open for assignment.
// A bidder may hold at most one non-rejected bid per gig.
func (e *Engine) PlaceBid(ctx context.Context, gigID int, actor models.Actor, amount float64, amountType, description string) (*models.Bid, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: bid amount must be positive", ErrInvalidTransition)
	}
	if amountType != models.BidAmountHourly && amountType != models.BidAmountFixed {
		return nil, fmt.Errorf("%w: bid amount type must be hourly or fixed", ErrInvalidTransition)
	}
	var out *models.Bid
	err := e.store.InTx(ctx, func(tx Tx) error {
		gig, err := tx.GigForUpdate(ctx, gigID)
		if err != nil {
			return err
		}
		if !status.Assignable(gig.Status) {
			return fmt.Errorf("%w: bidding is closed in status %s", ErrInvalidTransition, gig.Status)
		}
		if actor.ID == gig.CreatedBy {
			return fmt.Errorf("%w: cannot bid on own gig", ErrUnauthorized)
		}
		if actor.Role == gig.CreatedByRole {
			return fmt.Errorf("%w: bids come from the counter-party role", ErrUnauthorized)
		}
		dup, err := tx.HasActiveBid(ctx, gigID, actor.ID)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicateBid
		}
		bid := &models.Bid{
			GigID:         gigID,
			CreatedBy:     actor.ID,
			BidAmount:     amount,
			BidAmountType: amountType,
			Description:   description,
			Status:        models.BidStatusPending,
		}
		if err := tx.CreateBid(ctx, bid); err != nil {
			return err
		}
		if err := e.enqueueNotification(ctx, tx, gig, gig.CreatedBy,
			"New bid received",
			fmt.Sprintf("A new bid of %.2f (%s) was placed on %q", amount, amountType, gig.Title)); err != nil {
			return err
		}
		out = bid
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApproveBid resolves the bidding round in favor of one bid. It funnels into
// Transition so the status change, the bid rewrites and the history entry
// commit as one unit. For a User-created gig the target status is Assigned;
// a Provider-created gig skips straight to In-Progress since its flow has no
// Assigned stage.
func (e *Engine) ApproveBid(ctx context.Context, gigID, bidID int, actor models.Actor) (*models.Gig, error) {
	gig, err := e.store.GetGig(ctx, gigID)
	if err != nil {
		return nil, err
	}
	target := models.GigStatusAssigned
	if gig.CreatedByRole == models.RoleProvider {
		target = models.GigStatusInProgress
	}
	return e.Transition(ctx, gigID, target, actor, &bidID, "bid approved")
}

// RejectBid moves a single pending bid to rejected without touching the gig
// status. Only the gig owner (or an admin) may reject.
func (e *Engine) RejectBid(ctx context.Context, gigID, bidID int, actor models.Actor) (*models.Bid, error) {
	var out *models.Bid
	err := e.store.InTx(ctx, func(tx Tx) error {
		gig, err := tx.GigForUpdate(ctx, gigID)
		if err != nil {
			return err
		}
		if actor.Role != models.RoleAdmin && actor.ID != gig.CreatedBy {
			return ErrUnauthorized
		}
		bid, err := tx.GetBid(ctx, bidID)
		if err != nil {
			return err
		}
		if bid.GigID != gigID {
			return fmt.Errorf("%w: bid %d does not belong to gig %d", ErrNotFound, bidID, gigID)
		}
		if bid.Status != models.BidStatusPending {
			return fmt.Errorf("%w: only pending bids can be rejected", ErrInvalidTransition)
		}
		if err := tx.SetBidStatus(ctx, bidID, models.BidStatusRejected); err != nil {
			return err
		}
		bid.Status = models.BidStatusRejected
		if err := e.enqueueNotification(ctx, tx, gig, bid.CreatedBy,
			"Bid rejected",
			fmt.Sprintf("Your bid on %q was rejected", gig.Title)); err != nil {
			return err
		}
		out = bid
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
