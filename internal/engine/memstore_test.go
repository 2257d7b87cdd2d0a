package engine_test

import (
	"context"
	"sync"
	"time"

	"gigs/internal/engine"
	"gigs/models"
)

// memStore is an in-memory engine.Store with real transaction semantics: the
// callback works on a copy of the state, and only a nil return swaps it in.
// The store-wide mutex serializes transactions the way the gig row lock does
// in Postgres.
type memStore struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	gigs    map[int]models.Gig
	bids    map[int]models.Bid
	history []models.HistoryEntry
	ratings map[int]models.Rating // keyed by gig id
	strikes map[int]models.Strike
	events  map[int]int // rating id -> provider id
	effects []models.EffectRequest

	nextGig, nextBid, nextHistory, nextRating int
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		gigs:       map[int]models.Gig{},
		bids:       map[int]models.Bid{},
		ratings:    map[int]models.Rating{},
		strikes:    map[int]models.Strike{},
		events:     map[int]int{},
		nextGig:    1,
		nextBid:    1,
		nextHistory: 1,
		nextRating: 1,
	}}
}

func copyGig(g models.Gig) models.Gig {
	if g.AssignedToBid != nil {
		v := *g.AssignedToBid
		g.AssignedToBid = &v
	}
	if g.PaymentStatus != nil {
		v := *g.PaymentStatus
		g.PaymentStatus = &v
	}
	return g
}

func copyHistory(e models.HistoryEntry) models.HistoryEntry {
	if e.PreviousStatus != nil {
		v := *e.PreviousStatus
		e.PreviousStatus = &v
	}
	return e
}

func copyRating(r models.Rating) models.Rating {
	if r.Complaint != nil {
		v := *r.Complaint
		r.Complaint = &v
	}
	return r
}

func copyStrike(s models.Strike) models.Strike {
	if s.SuspendedUntil != nil {
		v := *s.SuspendedUntil
		s.SuspendedUntil = &v
	}
	return s
}

func (st *memState) clone() *memState {
	out := &memState{
		gigs:        make(map[int]models.Gig, len(st.gigs)),
		bids:        make(map[int]models.Bid, len(st.bids)),
		history:     make([]models.HistoryEntry, len(st.history)),
		ratings:     make(map[int]models.Rating, len(st.ratings)),
		strikes:     make(map[int]models.Strike, len(st.strikes)),
		events:      make(map[int]int, len(st.events)),
		effects:     make([]models.EffectRequest, len(st.effects)),
		nextGig:     st.nextGig,
		nextBid:     st.nextBid,
		nextHistory: st.nextHistory,
		nextRating:  st.nextRating,
	}
	for k, v := range st.gigs {
		out.gigs[k] = copyGig(v)
	}
	for k, v := range st.bids {
		out.bids[k] = v
	}
	for i, v := range st.history {
		out.history[i] = copyHistory(v)
	}
	for k, v := range st.ratings {
		out.ratings[k] = copyRating(v)
	}
	for k, v := range st.strikes {
		out.strikes[k] = copyStrike(v)
	}
	for k, v := range st.events {
		out.events[k] = v
	}
	copy(out.effects, st.effects)
	return out
}

func (s *memStore) InTx(ctx context.Context, fn func(tx engine.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.clone()
	if err := fn(&memTx{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *memStore) GetGig(ctx context.Context, gigID int) (*models.Gig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.state.gigs[gigID]
	if !ok {
		return nil, engine.ErrNotFound
	}
	g = copyGig(g)
	return &g, nil
}

// test-side inspection helpers

func (s *memStore) historyFor(gigID int) []models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.HistoryEntry
	for _, e := range s.state.history {
		if e.GigID == gigID {
			out = append(out, copyHistory(e))
		}
	}
	return out
}

func (s *memStore) bid(bidID int) models.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.bids[bidID]
}

func (s *memStore) rating(gigID int) (models.Rating, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.state.ratings[gigID]
	return copyRating(r), ok
}

func (s *memStore) strike(providerID int) models.Strike {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyStrike(s.state.strikes[providerID])
}

func (s *memStore) effectsOfKind(kind string) []models.EffectRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.EffectRequest
	for _, e := range s.state.effects {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type memTx struct {
	st *memState
}

func (t *memTx) CreateGig(ctx context.Context, g *models.Gig) error {
	g.ID = t.st.nextGig
	t.st.nextGig++
	g.Version = 1
	g.CreatedAt = time.Now()
	g.UpdatedAt = g.CreatedAt
	t.st.gigs[g.ID] = copyGig(*g)
	return nil
}

func (t *memTx) GigForUpdate(ctx context.Context, gigID int) (*models.Gig, error) {
	g, ok := t.st.gigs[gigID]
	if !ok {
		return nil, engine.ErrNotFound
	}
	g = copyGig(g)
	return &g, nil
}

func (t *memTx) UpdateGig(ctx context.Context, g *models.Gig) error {
	if _, ok := t.st.gigs[g.ID]; !ok {
		return engine.ErrNotFound
	}
	g.Version++
	t.st.gigs[g.ID] = copyGig(*g)
	return nil
}

func (t *memTx) AppendHistory(ctx context.Context, e *models.HistoryEntry) error {
	e.ID = t.st.nextHistory
	t.st.nextHistory++
	t.st.history = append(t.st.history, copyHistory(*e))
	return nil
}

func (t *memTx) CreateBid(ctx context.Context, b *models.Bid) error {
	b.ID = t.st.nextBid
	t.st.nextBid++
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	t.st.bids[b.ID] = *b
	return nil
}

func (t *memTx) GetBid(ctx context.Context, bidID int) (*models.Bid, error) {
	b, ok := t.st.bids[bidID]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return &b, nil
}

func (t *memTx) ApprovedBid(ctx context.Context, gigID int) (*models.Bid, error) {
	for _, b := range t.st.bids {
		if b.GigID == gigID && b.Status == models.BidStatusApproved {
			b := b
			return &b, nil
		}
	}
	return nil, engine.ErrNotFound
}

func (t *memTx) HasActiveBid(ctx context.Context, gigID, bidderID int) (bool, error) {
	for _, b := range t.st.bids {
		if b.GigID == gigID && b.CreatedBy == bidderID && b.Status != models.BidStatusRejected {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) SetBidStatus(ctx context.Context, bidID int, bidStatus string) error {
	b, ok := t.st.bids[bidID]
	if !ok {
		return engine.ErrNotFound
	}
	b.Status = bidStatus
	t.st.bids[bidID] = b
	return nil
}

func (t *memTx) RejectPendingBids(ctx context.Context, gigID, keepBidID int) error {
	for id, b := range t.st.bids {
		if b.GigID == gigID && b.ID != keepBidID && b.Status == models.BidStatusPending {
			b.Status = models.BidStatusRejected
			t.st.bids[id] = b
		}
	}
	return nil
}

func (t *memTx) CreateRating(ctx context.Context, r *models.Rating) error {
	if _, ok := t.st.ratings[r.GigID]; ok {
		return engine.ErrRatingExists
	}
	r.ID = t.st.nextRating
	t.st.nextRating++
	t.st.ratings[r.GigID] = copyRating(*r)
	return nil
}

func (t *memTx) RatingForGig(ctx context.Context, gigID int) (*models.Rating, error) {
	r, ok := t.st.ratings[gigID]
	if !ok {
		return nil, engine.ErrNotFound
	}
	r = copyRating(r)
	return &r, nil
}

func (t *memTx) InsertStrikeEvent(ctx context.Context, ratingID, providerID int) (bool, error) {
	if _, ok := t.st.events[ratingID]; ok {
		return false, nil
	}
	t.st.events[ratingID] = providerID
	return true, nil
}

func (t *memTx) StrikeForUpdate(ctx context.Context, providerID int) (*models.Strike, error) {
	s, ok := t.st.strikes[providerID]
	if !ok {
		s = models.Strike{ProviderID: providerID}
	}
	s = copyStrike(s)
	return &s, nil
}

func (t *memTx) SaveStrike(ctx context.Context, s *models.Strike) error {
	t.st.strikes[s.ProviderID] = copyStrike(*s)
	return nil
}

func (t *memTx) EnqueueEffect(ctx context.Context, e *models.EffectRequest) error {
	t.st.effects = append(t.st.effects, *e)
	return nil
}
