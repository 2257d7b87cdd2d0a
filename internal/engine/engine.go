// Package engine implements the gig lifecycle: the status transition
// machine, bid-approval exclusivity, the rating/withhold/strike policy and
// the append-only audit history behind them. All mutations to one gig commit
// in a single transaction under the gig's row lock, so concurrent requests
// are serialized and a failed request leaves no partial effect.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gigs/internal/status"
	"gigs/models"
)

type Engine struct {
	store Store
	now   func() time.Time
}

// New creates an Engine over the given store. now may be nil, in which case
// time.Now is used; tests inject a fixed clock.
func New(store Store, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{store: store, now: now}
}

// CreateGig persists a new gig in status Open together with the first history
// entry.
func (e *Engine) CreateGig(ctx context.Context, actor models.Actor, g *models.Gig) error {
	if actor.Role != models.RoleUser && actor.Role != models.RoleProvider {
		return fmt.Errorf("%w: only users and providers may post gigs", ErrUnauthorized)
	}
	g.CreatedBy = actor.ID
	g.CreatedByRole = actor.Role
	g.Status = models.GigStatusOpen
	g.AssignedToBid = nil
	g.PaymentStatus = nil
	return e.store.InTx(ctx, func(tx Tx) error {
		if err := tx.CreateGig(ctx, g); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, &models.HistoryEntry{
			GigID:         g.ID,
			CurrentStatus: g.Status,
			ChangedBy:     actor.ID,
			ChangedByRole: actor.Role,
			Description:   "gig created",
			ChangedAt:     e.now(),
		})
	})
}

// Transition moves a gig to the requested status. The whole sequence
// (authorization, registry check, bid side effects, status write, history
// append, effect enqueueing) commits atomically. bidID is required when the
// transition approves a bid, i.e. when it moves an unassigned gig into an
// assigned status.
func (e *Engine) Transition(ctx context.Context, gigID int, requested string, actor models.Actor, bidID *int, note string) (*models.Gig, error) {
	if !status.Known(requested) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, requested)
	}
	var out *models.Gig
	err := e.store.InTx(ctx, func(tx Tx) error {
		gig, err := tx.GigForUpdate(ctx, gigID)
		if err != nil {
			return err
		}
		if err := e.authorize(ctx, tx, gig, actor, bidID); err != nil {
			return err
		}
		// An approval request naming a bid while the gig already carries one
		// lost the race, whichever bid it names.
		if bidID != nil && gig.AssignedToBid != nil {
			return ErrAlreadyAssigned
		}
		if !status.IsValidTransition(gig.Status, requested, actor.Role, gig.CreatedByRole) {
			return fmt.Errorf("%w: %s -> %s for role %s", ErrInvalidTransition, gig.Status, requested, actor.Role)
		}
		if status.RequiresAssignment(requested) && gig.AssignedToBid == nil {
			if bidID == nil {
				return fmt.Errorf("%w: transition to %s requires a bid", ErrInvalidTransition, requested)
			}
			if err := e.approveBidLocked(ctx, tx, gig, *bidID); err != nil {
				return err
			}
		}
		if gig.Status == models.GigStatusCompleted &&
			(requested == models.GigStatusApproved || requested == models.GigStatusRejected) {
			if _, err := tx.RatingForGig(ctx, gig.ID); err != nil {
				if errors.Is(err, ErrNotFound) {
					return fmt.Errorf("%w: a rating must be submitted before closing the gig", ErrInvalidTransition)
				}
				return err
			}
		}

		prev := gig.Status
		gig.Status = requested
		if !status.RequiresAssignment(requested) {
			gig.AssignedToBid = nil
		}
		if requested == models.GigStatusNotAssigned {
			// Close the bidding round.
			if err := tx.RejectPendingBids(ctx, gig.ID, 0); err != nil {
				return err
			}
		}
		if err := tx.UpdateGig(ctx, gig); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, &models.HistoryEntry{
			GigID:          gig.ID,
			PreviousStatus: &prev,
			CurrentStatus:  requested,
			ChangedBy:      actor.ID,
			ChangedByRole:  actor.Role,
			Description:    note,
			ChangedAt:      e.now(),
		}); err != nil {
			return err
		}
		if err := e.enqueueTransitionEffects(ctx, tx, gig, actor, requested); err != nil {
			return err
		}
		out = gig
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// authorize admits the gig owner, an admin, the holder of the assigned bid,
// and, while the gig is still open for assignment, the owner of the bid named
// in the request (a user requesting a provider-posted service acts through
// their own bid).
func (e *Engine) authorize(ctx context.Context, tx Tx, gig *models.Gig, actor models.Actor, bidID *int) error {
	if actor.Role == models.RoleAdmin || actor.ID == gig.CreatedBy {
		return nil
	}
	if gig.AssignedToBid != nil {
		bid, err := tx.GetBid(ctx, *gig.AssignedToBid)
		if err != nil {
			return err
		}
		if bid.CreatedBy == actor.ID {
			return nil
		}
	}
	if bidID != nil && status.Assignable(gig.Status) {
		bid, err := tx.GetBid(ctx, *bidID)
		if err != nil {
			return err
		}
		if bid.GigID == gig.ID && bid.CreatedBy == actor.ID {
			return nil
		}
	}
	return ErrUnauthorized
}

// approveBidLocked resolves the bidding round: the chosen bid becomes
// approved, every other pending bid is rejected and the gig records the
// assignment. Runs under the gig row lock; the caller writes the gig and the
// history entry.
func (e *Engine) approveBidLocked(ctx context.Context, tx Tx, gig *models.Gig, bidID int) error {
	if !status.Assignable(gig.Status) {
		return ErrAlreadyAssigned
	}
	bid, err := tx.GetBid(ctx, bidID)
	if err != nil {
		return err
	}
	if bid.GigID != gig.ID {
		return fmt.Errorf("%w: bid %d does not belong to gig %d", ErrNotFound, bidID, gig.ID)
	}
	if bid.Status != models.BidStatusPending {
		return ErrAlreadyAssigned
	}
	if err := tx.SetBidStatus(ctx, bidID, models.BidStatusApproved); err != nil {
		return err
	}
	if err := tx.RejectPendingBids(ctx, gig.ID, bidID); err != nil {
		return err
	}
	gig.AssignedToBid = &bidID
	return nil
}

// enqueueTransitionEffects writes the fire-and-forget requests that follow a
// committed transition: a notification to the counter-party and, for terminal
// statuses, a payment release or hold. They ride in the same transaction so
// the request itself is durable; delivery happens out-of-band.
func (e *Engine) enqueueTransitionEffects(ctx context.Context, tx Tx, gig *models.Gig, actor models.Actor, requested string) error {
	recipient, err := e.counterparty(ctx, tx, gig, actor)
	if err != nil {
		return err
	}
	if err := e.enqueueNotification(ctx, tx, gig, recipient,
		"Gig status changed",
		fmt.Sprintf("Gig %q moved to %s", gig.Title, requested)); err != nil {
		return err
	}
	switch requested {
	case models.GigStatusApproved:
		rating, err := tx.RatingForGig(ctx, gig.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if rating != nil && rating.PaymentWithheld {
			// Withholding was already requested by the rating path.
			return nil
		}
		return e.enqueuePayment(ctx, tx, gig, models.EffectPaymentRelease)
	case models.GigStatusRejected:
		return e.enqueuePayment(ctx, tx, gig, models.EffectPaymentHold)
	}
	return nil
}

// counterparty returns the participant to notify about the actor's change, or
// zero when the gig has no counter-party yet.
func (e *Engine) counterparty(ctx context.Context, tx Tx, gig *models.Gig, actor models.Actor) (int, error) {
	if gig.AssignedToBid != nil {
		bid, err := tx.GetBid(ctx, *gig.AssignedToBid)
		if err != nil {
			return 0, err
		}
		if bid.CreatedBy != actor.ID {
			return bid.CreatedBy, nil
		}
		return gig.CreatedBy, nil
	}
	if actor.ID != gig.CreatedBy {
		return gig.CreatedBy, nil
	}
	return 0, nil
}

func (e *Engine) enqueueNotification(ctx context.Context, tx Tx, gig *models.Gig, recipient int, title, message string) error {
	if recipient == 0 {
		return nil
	}
	return tx.EnqueueEffect(ctx, &models.EffectRequest{
		ID:        uuid.New(),
		Kind:      models.EffectNotification,
		GigID:     gig.ID,
		Recipient: recipient,
		Title:     title,
		Message:   message,
		Link:      fmt.Sprintf("/gigs/%d", gig.ID),
		Status:    models.EffectStatusPending,
		CreatedAt: e.now(),
	})
}

func (e *Engine) enqueuePayment(ctx context.Context, tx Tx, gig *models.Gig, kind string) error {
	return tx.EnqueueEffect(ctx, &models.EffectRequest{
		ID:        uuid.New(),
		Kind:      kind,
		GigID:     gig.ID,
		Status:    models.EffectStatusPending,
		CreatedAt: e.now(),
	})
}
