package engine

import (
	"context"

	"gigs/models"
)

// Store is the persistence surface the engine mutates through. Every write
// happens inside InTx; the callback either commits as a whole or leaves no
// trace. Implementations map their own not-found conditions to ErrNotFound.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	GetGig(ctx context.Context, gigID int) (*models.Gig, error)
}

// Tx is the transactional view used while a gig is being mutated.
// GigForUpdate takes the per-gig write lock that serializes concurrent
// transitions and approvals.
type Tx interface {
	CreateGig(ctx context.Context, g *models.Gig) error
	GigForUpdate(ctx context.Context, gigID int) (*models.Gig, error)
	UpdateGig(ctx context.Context, g *models.Gig) error

	AppendHistory(ctx context.Context, e *models.HistoryEntry) error

	CreateBid(ctx context.Context, b *models.Bid) error
	GetBid(ctx context.Context, bidID int) (*models.Bid, error)
	ApprovedBid(ctx context.Context, gigID int) (*models.Bid, error)
	HasActiveBid(ctx context.Context, gigID, bidderID int) (bool, error)
	SetBidStatus(ctx context.Context, bidID int, bidStatus string) error
	RejectPendingBids(ctx context.Context, gigID, keepBidID int) error

	CreateRating(ctx context.Context, r *models.Rating) error
	RatingForGig(ctx context.Context, gigID int) (*models.Rating, error)

	InsertStrikeEvent(ctx context.Context, ratingID, providerID int) (bool, error)
	StrikeForUpdate(ctx context.Context, providerID int) (*models.Strike, error)
	SaveStrike(ctx context.Context, s *models.Strike) error

	EnqueueEffect(ctx context.Context, e *models.EffectRequest) error
}
