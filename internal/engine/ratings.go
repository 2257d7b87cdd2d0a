package engine

import (
	"context"
	"errors"
	"fmt"

	"gigs/internal/status"
	"gigs/models"
)

// SubmitRating records the counter-party's verdict on a finished gig. A score
// below three demands a complete complaint with an affirmed sincerity
// agreement; it withholds payment and records a strike against the provider,
// keyed by the rating id so retried delivery cannot over-penalize. Nothing is
// persisted when validation fails.
func (e *Engine) SubmitRating(ctx context.Context, gigID int, actor models.Actor, score int, review string, complaint *models.Complaint) (*models.Rating, error) {
	if score < 1 || score > 5 {
		return nil, ErrInvalidRating
	}
	if score < 3 {
		if complaint == nil || complaint.Issue == "" ||
			complaint.ImprovementSuggestion == "" || !complaint.SincerityAgreement {
			return nil, ErrIncompleteComplaint
		}
	}
	var out *models.Rating
	err := e.store.InTx(ctx, func(tx Tx) error {
		gig, err := tx.GigForUpdate(ctx, gigID)
		if err != nil {
			return err
		}
		if !status.Rateable(gig.Status) {
			return fmt.Errorf("%w: gig in status %s cannot be rated", ErrInvalidTransition, gig.Status)
		}
		if _, err := tx.RatingForGig(ctx, gigID); err == nil {
			return ErrRatingExists
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		bid, err := tx.ApprovedBid(ctx, gigID)
		if err != nil {
			return err
		}
		provider, rater := gig.CreatedBy, bid.CreatedBy
		if gig.CreatedByRole == models.RoleUser {
			provider, rater = bid.CreatedBy, gig.CreatedBy
		}
		if actor.ID != rater {
			return fmt.Errorf("%w: only the counter-party may rate this gig", ErrUnauthorized)
		}

		withheld := score < 3
		r := &models.Rating{
			GigID:           gigID,
			RatedBy:         actor.ID,
			Rating:          score,
			Review:          review,
			PaymentWithheld: withheld,
			Status:          models.RatingStatusPending,
			CreatedAt:       e.now(),
		}
		if withheld {
			r.Complaint = complaint
		}
		if err := tx.CreateRating(ctx, r); err != nil {
			return err
		}
		if err := e.enqueueNotification(ctx, tx, gig, provider,
			"Gig rated",
			fmt.Sprintf("Gig %q received a rating of %d", gig.Title, score)); err != nil {
			return err
		}
		if withheld {
			if err := e.enqueuePayment(ctx, tx, gig, models.EffectPaymentHold); err != nil {
				return err
			}
			if _, err := e.recordStrike(ctx, tx, provider, r.ID); err != nil {
				return err
			}
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
