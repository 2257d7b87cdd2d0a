package engine

import "errors"

// Typed failures surfaced to the API boundary. None of these leaves partial
// state behind: the transaction that produced them is rolled back whole.
var (
	ErrInvalidTransition   = errors.New("requested status is not reachable from the current status for this actor")
	ErrUnauthorized        = errors.New("actor is neither the gig owner nor the assignee")
	ErrAlreadyAssigned     = errors.New("gig already has an approved bid")
	ErrDuplicateBid        = errors.New("bidder already has an active bid on this gig")
	ErrIncompleteComplaint = errors.New("a rating below three requires a complaint with an affirmed sincerity agreement")
	ErrInvalidRating       = errors.New("rating must be an integer between 1 and 5")
	ErrRatingExists        = errors.New("gig already has a rating")
	ErrNotFound            = errors.New("not found")
)
