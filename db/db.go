package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gigs/internal/engine"
	"gigs/models"
)

// Storage is the Postgres-backed implementation of engine.Store plus the
// read queries used by the HTTP handlers and the effect dispatcher.
type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// InTx runs fn inside a transaction. The callback either commits as a whole
// or rolls back without trace.
func (s *Storage) InTx(ctx context.Context, fn func(tx engine.Tx) error) error {
	txx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	t := &Tx{tx: txx}
	if err := fn(t); err != nil {
		_ = txx.Rollback()
		return err
	}
	return txx.Commit()
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return engine.ErrNotFound
	}
	return err
}

func mapUniqueViolation(err error, sentinel error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return sentinel
	}
	return err
}

// Gig

func (s *Storage) GetGig(ctx context.Context, gigID int) (*models.Gig, error) {
	g := &models.Gig{}
	query := `SELECT * FROM gig WHERE id=$1`
	if err := s.db.GetContext(ctx, g, query, gigID); err != nil {
		return nil, mapNotFound(err)
	}
	return g, nil
}

func (s *Storage) GetGigs(ctx context.Context, tiers []string, limit, offset int) ([]models.Gig, error) {
	baseQuery := `SELECT * FROM gig`
	var args []interface{}
	filter := ""

	if len(tiers) > 0 {
		placeholders := make([]string, len(tiers))
		for i := range tiers {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
		filter = fmt.Sprintf(" WHERE tier IN (%s)", strings.Join(placeholders, ", "))
		for _, v := range tiers {
			args = append(args, v)
		}
	}

	query := baseQuery + filter + " ORDER BY created_at DESC"
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	gigs := []models.Gig{}
	if err := s.db.SelectContext(ctx, &gigs, query, args...); err != nil {
		return nil, err
	}
	return gigs, nil
}

func (s *Storage) GetUserGigs(ctx context.Context, actorID, limit, offset int) ([]models.Gig, error) {
	query := `
        SELECT * FROM gig
        WHERE created_by = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`
	gigs := []models.Gig{}
	err := s.db.SelectContext(ctx, &gigs, query, actorID, limit, offset)
	return gigs, err
}

// History

func (s *Storage) GetGigHistory(ctx context.Context, gigID int) ([]models.HistoryEntry, error) {
	query := `
        SELECT * FROM gig_history
        WHERE gig_id = $1
        ORDER BY changed_at ASC, id ASC`
	entries := []models.HistoryEntry{}
	err := s.db.SelectContext(ctx, &entries, query, gigID)
	return entries, err
}

// Bid

func (s *Storage) GetBid(ctx context.Context, bidID int) (*models.Bid, error) {
	b := &models.Bid{}
	query := `SELECT * FROM bid WHERE id=$1`
	if err := s.db.GetContext(ctx, b, query, bidID); err != nil {
		return nil, mapNotFound(err)
	}
	return b, nil
}

func (s *Storage) GetUserBids(ctx context.Context, actorID, limit, offset int) ([]models.Bid, error) {
	query := `
        SELECT * FROM bid
        WHERE created_by = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`
	bids := []models.Bid{}
	err := s.db.SelectContext(ctx, &bids, query, actorID, limit, offset)
	return bids, err
}

func (s *Storage) GetBidsForGig(ctx context.Context, gigID, limit, offset int) ([]models.Bid, error) {
	query := `
        SELECT * FROM bid
        WHERE gig_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`
	bids := []models.Bid{}
	err := s.db.SelectContext(ctx, &bids, query, gigID, limit, offset)
	return bids, err
}

// Rating

type ratingRow struct {
	models.Rating
	ComplaintIssue       sql.NullString `db:"complaint_issue"`
	ComplaintImprovement sql.NullString `db:"complaint_improvement"`
	SincerityAgreement   sql.NullBool   `db:"sincerity_agreement"`
}

func (r *ratingRow) toModel() *models.Rating {
	rt := r.Rating
	if r.ComplaintIssue.Valid {
		rt.Complaint = &models.Complaint{
			Issue:                 r.ComplaintIssue.String,
			ImprovementSuggestion: r.ComplaintImprovement.String,
			SincerityAgreement:    r.SincerityAgreement.Bool,
		}
	}
	return &rt
}

func (s *Storage) GetRatingByGig(ctx context.Context, gigID int) (*models.Rating, error) {
	var row ratingRow
	query := `SELECT * FROM rating WHERE gig_id=$1`
	if err := s.db.GetContext(ctx, &row, query, gigID); err != nil {
		return nil, mapNotFound(err)
	}
	return row.toModel(), nil
}

// Strike

func (s *Storage) GetStrike(ctx context.Context, providerID int) (*models.Strike, error) {
	st := &models.Strike{}
	query := `SELECT * FROM strike WHERE provider_id=$1`
	if err := s.db.GetContext(ctx, st, query, providerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.Strike{ProviderID: providerID}, nil
		}
		return nil, err
	}
	return st, nil
}

// Outbox, consumed by the effect dispatcher.

func (s *Storage) PendingEffects(ctx context.Context, limit int) ([]models.EffectRequest, error) {
	query := `
        SELECT * FROM outbox
        WHERE status = $1
        ORDER BY created_at ASC
        LIMIT $2`
	effects := []models.EffectRequest{}
	err := s.db.SelectContext(ctx, &effects, query, models.EffectStatusPending, limit)
	return effects, err
}

func (s *Storage) MarkEffectDispatched(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE outbox SET status=$1, dispatched_at=$2 WHERE id=$3`
	_, err := s.db.ExecContext(ctx, query, models.EffectStatusDispatched, at, id)
	return err
}

func (s *Storage) MarkEffectFailed(ctx context.Context, id uuid.UUID, exhausted bool) error {
	st := models.EffectStatusPending
	if exhausted {
		st = models.EffectStatusFailed
	}
	query := `UPDATE outbox SET attempts = attempts + 1, status=$1 WHERE id=$2`
	_, err := s.db.ExecContext(ctx, query, st, id)
	return err
}

// Tx is the transactional view handed to the engine.
type Tx struct {
	tx *sqlx.Tx
}

func (t *Tx) CreateGig(ctx context.Context, g *models.Gig) error {
	query := `
        INSERT INTO gig
            (title, description, price, tier, created_by, created_by_role, status, version)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, 1)
        RETURNING id, version, created_at, updated_at`
	return t.tx.QueryRowContext(ctx, query,
		g.Title, g.Description, g.Price, g.Tier, g.CreatedBy, g.CreatedByRole, g.Status).
		Scan(&g.ID, &g.Version, &g.CreatedAt, &g.UpdatedAt)
}

func (t *Tx) GigForUpdate(ctx context.Context, gigID int) (*models.Gig, error) {
	g := &models.Gig{}
	query := `SELECT * FROM gig WHERE id=$1 FOR UPDATE`
	if err := t.tx.GetContext(ctx, g, query, gigID); err != nil {
		return nil, mapNotFound(err)
	}
	return g, nil
}

func (t *Tx) UpdateGig(ctx context.Context, g *models.Gig) error {
	g.Version++
	query := `
        UPDATE gig
        SET status=$1, assigned_to_bid=$2, payment_status=$3, version=$4, updated_at=NOW()
        WHERE id=$5 AND version=$6`
	res, err := t.tx.ExecContext(ctx, query,
		g.Status, g.AssignedToBid, g.PaymentStatus, g.Version, g.ID, g.Version-1)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("gig %d: stale version %d", g.ID, g.Version-1)
	}
	return nil
}

func (t *Tx) AppendHistory(ctx context.Context, e *models.HistoryEntry) error {
	query := `
        INSERT INTO gig_history
            (gig_id, previous_status, current_status, changed_by, changed_by_role, description, changed_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id`
	return t.tx.QueryRowContext(ctx, query,
		e.GigID, e.PreviousStatus, e.CurrentStatus, e.ChangedBy, e.ChangedByRole, e.Description, e.ChangedAt).
		Scan(&e.ID)
}

func (t *Tx) CreateBid(ctx context.Context, b *models.Bid) error {
	query := `
        INSERT INTO bid
            (gig_id, created_by, bid_amount, bid_amount_type, description, status)
        VALUES
            ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`
	err := t.tx.QueryRowContext(ctx, query,
		b.GigID, b.CreatedBy, b.BidAmount, b.BidAmountType, b.Description, b.Status).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return mapUniqueViolation(err, engine.ErrDuplicateBid)
	}
	return nil
}

func (t *Tx) GetBid(ctx context.Context, bidID int) (*models.Bid, error) {
	b := &models.Bid{}
	query := `SELECT * FROM bid WHERE id=$1`
	if err := t.tx.GetContext(ctx, b, query, bidID); err != nil {
		return nil, mapNotFound(err)
	}
	return b, nil
}

func (t *Tx) ApprovedBid(ctx context.Context, gigID int) (*models.Bid, error) {
	b := &models.Bid{}
	query := `SELECT * FROM bid WHERE gig_id=$1 AND status=$2`
	if err := t.tx.GetContext(ctx, b, query, gigID, models.BidStatusApproved); err != nil {
		return nil, mapNotFound(err)
	}
	return b, nil
}

func (t *Tx) HasActiveBid(ctx context.Context, gigID, bidderID int) (bool, error) {
	var count int
	query := `SELECT COUNT(1) FROM bid WHERE gig_id=$1 AND created_by=$2 AND status <> $3`
	if err := t.tx.GetContext(ctx, &count, query, gigID, bidderID, models.BidStatusRejected); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (t *Tx) SetBidStatus(ctx context.Context, bidID int, bidStatus string) error {
	query := `UPDATE bid SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := t.tx.ExecContext(ctx, query, bidStatus, bidID)
	return mapUniqueViolation(err, engine.ErrAlreadyAssigned)
}

func (t *Tx) RejectPendingBids(ctx context.Context, gigID, keepBidID int) error {
	query := `UPDATE bid SET status=$1, updated_at=NOW() WHERE gig_id=$2 AND id <> $3 AND status=$4`
	_, err := t.tx.ExecContext(ctx, query, models.BidStatusRejected, gigID, keepBidID, models.BidStatusPending)
	return err
}

func (t *Tx) CreateRating(ctx context.Context, r *models.Rating) error {
	var issue, improvement *string
	var sincerity *bool
	if r.Complaint != nil {
		issue = &r.Complaint.Issue
		improvement = &r.Complaint.ImprovementSuggestion
		sincerity = &r.Complaint.SincerityAgreement
	}
	query := `
        INSERT INTO rating
            (gig_id, rated_by, rating, review, complaint_issue, complaint_improvement,
             sincerity_agreement, payment_withheld, status, created_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id`
	err := t.tx.QueryRowContext(ctx, query,
		r.GigID, r.RatedBy, r.Rating, r.Review, issue, improvement,
		sincerity, r.PaymentWithheld, r.Status, r.CreatedAt).
		Scan(&r.ID)
	if err != nil {
		return mapUniqueViolation(err, engine.ErrRatingExists)
	}
	return nil
}

func (t *Tx) RatingForGig(ctx context.Context, gigID int) (*models.Rating, error) {
	var row ratingRow
	query := `SELECT * FROM rating WHERE gig_id=$1`
	if err := t.tx.GetContext(ctx, &row, query, gigID); err != nil {
		return nil, mapNotFound(err)
	}
	return row.toModel(), nil
}

func (t *Tx) InsertStrikeEvent(ctx context.Context, ratingID, providerID int) (bool, error) {
	query := `
        INSERT INTO strike_event (rating_id, provider_id, created_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (rating_id) DO NOTHING`
	res, err := t.tx.ExecContext(ctx, query, ratingID, providerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *Tx) StrikeForUpdate(ctx context.Context, providerID int) (*models.Strike, error) {
	insert := `
        INSERT INTO strike (provider_id, count)
        VALUES ($1, 0)
        ON CONFLICT (provider_id) DO NOTHING`
	if _, err := t.tx.ExecContext(ctx, insert, providerID); err != nil {
		return nil, err
	}
	st := &models.Strike{}
	query := `SELECT * FROM strike WHERE provider_id=$1 FOR UPDATE`
	if err := t.tx.GetContext(ctx, st, query, providerID); err != nil {
		return nil, mapNotFound(err)
	}
	return st, nil
}

func (t *Tx) SaveStrike(ctx context.Context, s *models.Strike) error {
	query := `
        UPDATE strike
        SET count=$1, suspended_until=$2, permanent=$3, updated_at=NOW()
        WHERE provider_id=$4`
	_, err := t.tx.ExecContext(ctx, query, s.Count, s.SuspendedUntil, s.Permanent, s.ProviderID)
	return err
}

func (t *Tx) EnqueueEffect(ctx context.Context, e *models.EffectRequest) error {
	query := `
        INSERT INTO outbox
            (id, kind, gig_id, recipient, title, message, link, status, attempts, created_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9)`
	_, err := t.tx.ExecContext(ctx, query,
		e.ID, e.Kind, e.GigID, e.Recipient, e.Title, e.Message, e.Link, e.Status, e.CreatedAt)
	return err
}
