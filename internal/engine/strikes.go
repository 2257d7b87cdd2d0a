package engine

import (
	"context"
	"time"
)

// SuspensionDecision is the outcome of recording a strike: the provider's
// running count and the suspension it maps to.
type SuspensionDecision struct {
	ProviderID     int        `json:"providerId"`
	Count          int        `json:"count"`
	SuspendedUntil *time.Time `json:"suspendedUntil,omitempty"`
	Permanent      bool       `json:"permanent"`
}

// Fixed escalation table: first strike two weeks, second four weeks, third
// permanent. Strikes never decay.
var suspensionWindows = map[int]time.Duration{
	1: 14 * 24 * time.Hour,
	2: 28 * 24 * time.Hour,
}

// RecordStrike increments the provider's strike count exactly once per rating
// id. Redelivery of the same rating returns the already-decided suspension
// without touching the count.
func (e *Engine) RecordStrike(ctx context.Context, providerID, ratingID int) (SuspensionDecision, error) {
	var d SuspensionDecision
	err := e.store.InTx(ctx, func(tx Tx) error {
		var err error
		d, err = e.recordStrike(ctx, tx, providerID, ratingID)
		return err
	})
	return d, err
}

func (e *Engine) recordStrike(ctx context.Context, tx Tx, providerID, ratingID int) (SuspensionDecision, error) {
	inserted, err := tx.InsertStrikeEvent(ctx, ratingID, providerID)
	if err != nil {
		return SuspensionDecision{}, err
	}
	s, err := tx.StrikeForUpdate(ctx, providerID)
	if err != nil {
		return SuspensionDecision{}, err
	}
	if inserted {
		s.Count++
		if s.Count >= 3 {
			s.Permanent = true
			s.SuspendedUntil = nil
		} else {
			until := e.now().Add(suspensionWindows[s.Count])
			s.SuspendedUntil = &until
		}
		if err := tx.SaveStrike(ctx, s); err != nil {
			return SuspensionDecision{}, err
		}
	}
	return SuspensionDecision{
		ProviderID:     providerID,
		Count:          s.Count,
		SuspendedUntil: s.SuspendedUntil,
		Permanent:      s.Permanent,
	}, nil
}
