package models

import (
	"time"

	"github.com/google/uuid"
)

// Gig statuses
const (
	GigStatusOpen        = "Open"
	GigStatusRequested   = "Requested"
	GigStatusAssigned    = "Assigned"
	GigStatusNotAssigned = "Not-Assigned"
	GigStatusInProgress  = "In-Progress"
	GigStatusCompleted   = "Completed"
	GigStatusApproved    = "Approved"
	GigStatusRejected    = "Rejected"
)

// Bid statuses
const (
	BidStatusPending  = "pending"
	BidStatusApproved = "approved"
	BidStatusRejected = "rejected"
)

// Actor roles
const (
	RoleUser     = "User"
	RoleProvider = "Provider"
	RoleAdmin    = "Admin"
)

// Bid amount types
const (
	BidAmountHourly = "hourly"
	BidAmountFixed  = "fixed"
)

// Payment statuses recorded on a gig once the payment collaborator reports back
const (
	PaymentStatusCompleted = "Completed"
	PaymentStatusFailed    = "Failed"
)

// Rating moderation statuses
const (
	RatingStatusPending  = "pending"
	RatingStatusApproved = "approved"
	RatingStatusRejected = "rejected"
)

// Actor is an authorized caller resolved from a bearer token.
type Actor struct {
	ID   int    `json:"id"`
	Role string `json:"role"`
}

// Gig is a unit of work posted by a User or offered by a Provider.
// AssignedToBid is non-nil exactly while the gig sits in an assigned status.
type Gig struct {
	ID            int       `db:"id" json:"id"`
	Title         string    `db:"title" json:"title" validate:"required,max=100"`
	Description   string    `db:"description" json:"description" validate:"required,max=500"`
	Price         float64   `db:"price" json:"price" validate:"required"`
	Tier          string    `db:"tier" json:"tier"`
	CreatedBy     int       `db:"created_by" json:"createdBy" validate:"required"`
	CreatedByRole string    `db:"created_by_role" json:"createdByRole" validate:"required,oneof=User Provider"`
	Status        string    `db:"status" json:"status"`
	AssignedToBid *int      `db:"assigned_to_bid" json:"assignedToBid,omitempty"`
	PaymentStatus *string   `db:"payment_status" json:"paymentStatus,omitempty"`
	Version       int       `db:"version" json:"version"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"-"`
}

// Bid is a proposal to fulfill a gig at a stated price.
type Bid struct {
	ID            int       `db:"id" json:"id"`
	GigID         int       `db:"gig_id" json:"gigId" validate:"required"`
	CreatedBy     int       `db:"created_by" json:"createdBy"`
	BidAmount     float64   `db:"bid_amount" json:"bidAmount" validate:"required"`
	BidAmountType string    `db:"bid_amount_type" json:"bidAmountType" validate:"required,oneof=hourly fixed"`
	Description   string    `db:"description" json:"description" validate:"max=500"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"-"`
}

// HistoryEntry is one immutable record in a gig's audit trail.
type HistoryEntry struct {
	ID             int       `db:"id" json:"id"`
	GigID          int       `db:"gig_id" json:"gigId"`
	PreviousStatus *string   `db:"previous_status" json:"previousStatus,omitempty"`
	CurrentStatus  string    `db:"current_status" json:"currentStatus"`
	ChangedBy      int       `db:"changed_by" json:"changedBy"`
	ChangedByRole  string    `db:"changed_by_role" json:"changedByRole"`
	Description    string    `db:"description" json:"description,omitempty"`
	ChangedAt      time.Time `db:"changed_at" json:"changedAt"`
}

// Complaint is the structured justification required for a low rating.
type Complaint struct {
	Issue                 string `json:"issue"`
	ImprovementSuggestion string `json:"improvementSuggestion"`
	SincerityAgreement    bool   `json:"sincerityAgreement"`
}

// Rating is the counter-party's verdict on a finished gig. The complaint is
// present only when the score is below three.
type Rating struct {
	ID              int        `db:"id" json:"id"`
	GigID           int        `db:"gig_id" json:"gigId"`
	RatedBy         int        `db:"rated_by" json:"ratedBy"`
	Rating          int        `db:"rating" json:"rating" validate:"required,min=1,max=5"`
	Review          string     `db:"review" json:"review" validate:"max=1000"`
	Complaint       *Complaint `db:"-" json:"complaint,omitempty"`
	PaymentWithheld bool       `db:"payment_withheld" json:"paymentWithheld"`
	Status          string     `db:"status" json:"status"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
}

// Strike tracks sincerity-agreement penalties per provider. The count never
// decreases; the suspension window is derived from it.
type Strike struct {
	ProviderID     int        `db:"provider_id" json:"providerId"`
	Count          int        `db:"count" json:"count"`
	SuspendedUntil *time.Time `db:"suspended_until" json:"suspendedUntil,omitempty"`
	Permanent      bool       `db:"permanent" json:"permanent"`
	UpdatedAt      time.Time  `db:"updated_at" json:"-"`
}

// Effect request kinds queued in the outbox after a transition commits.
const (
	EffectNotification   = "notification"
	EffectPaymentRelease = "payment_release"
	EffectPaymentHold    = "payment_hold"
)

// Effect dispatch statuses
const (
	EffectStatusPending    = "pending"
	EffectStatusDispatched = "dispatched"
	EffectStatusFailed     = "failed"
)

// EffectRequest is a durable fire-and-forget request to an external
// collaborator (payment gateway or notification dispatcher). It is written in
// the same transaction as the state change it follows and delivered
// out-of-band; delivery failure never rolls the state change back.
type EffectRequest struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Kind         string     `db:"kind" json:"kind"`
	GigID        int        `db:"gig_id" json:"gigId"`
	Recipient    int        `db:"recipient" json:"recipient"`
	Title        string     `db:"title" json:"title"`
	Message      string     `db:"message" json:"message"`
	Link         string     `db:"link" json:"link"`
	Status       string     `db:"status" json:"status"`
	Attempts     int        `db:"attempts" json:"attempts"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	DispatchedAt *time.Time `db:"dispatched_at" json:"dispatchedAt,omitempty"`
}
