package handlers

import (
	"context"
	"net/http"

	"gigs/models"
)

type StorageInterface interface {
	GetGig(ctx context.Context, gigID int) (*models.Gig, error)
	GetGigs(ctx context.Context, tiers []string, limit, offset int) ([]models.Gig, error)
	GetUserGigs(ctx context.Context, actorID, limit, offset int) ([]models.Gig, error)
	GetGigHistory(ctx context.Context, gigID int) ([]models.HistoryEntry, error)

	GetUserBids(ctx context.Context, actorID, limit, offset int) ([]models.Bid, error)
	GetBidsForGig(ctx context.Context, gigID, limit, offset int) ([]models.Bid, error)

	GetRatingByGig(ctx context.Context, gigID int) (*models.Rating, error)
	GetStrike(ctx context.Context, providerID int) (*models.Strike, error)
}

type EngineInterface interface {
	CreateGig(ctx context.Context, actor models.Actor, g *models.Gig) error
	Transition(ctx context.Context, gigID int, requested string, actor models.Actor, bidID *int, note string) (*models.Gig, error)
	PlaceBid(ctx context.Context, gigID int, actor models.Actor, amount float64, amountType, description string) (*models.Bid, error)
	ApproveBid(ctx context.Context, gigID, bidID int, actor models.Actor) (*models.Gig, error)
	RejectBid(ctx context.Context, gigID, bidID int, actor models.Actor) (*models.Bid, error)
	SubmitRating(ctx context.Context, gigID int, actor models.Actor, score int, review string, complaint *models.Complaint) (*models.Rating, error)
}

type Authorizer interface {
	Authorize(r *http.Request) (models.Actor, error)
}
