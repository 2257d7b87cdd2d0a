package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gigs/internal/engine"
	"gigs/models"
)

func completedUserGig(t *testing.T, e *engine.Engine, store *memStore) *models.Gig {
	t.Helper()
	ctx := context.Background()
	gig := createUserGig(t, e)
	bid := placeBid(t, e, gig.ID, provider1, 50)
	_, err := e.ApproveBid(ctx, gig.ID, bid.ID, owner)
	require.NoError(t, err)
	_, err = e.Transition(ctx, gig.ID, models.GigStatusInProgress, provider1, nil, "")
	require.NoError(t, err)
	updated, err := e.Transition(ctx, gig.ID, models.GigStatusCompleted, provider1, nil, "")
	require.NoError(t, err)
	return updated
}

func TestLowRatingWithholdsPaymentAndStrikes(t *testing.T) {
	e, store := newTestEngine()
	gig := completedUserGig(t, e, store)

	complaint := &models.Complaint{
		Issue:                 "left the site unfinished",
		ImprovementSuggestion: "finish before invoicing",
		SincerityAgreement:    true,
	}
	r, err := e.SubmitRating(context.Background(), gig.ID, owner, 2, "disappointed", complaint)
	require.NoError(t, err)
	require.True(t, r.PaymentWithheld)
	require.NotNil(t, r.Complaint)

	saved, ok := store.rating(gig.ID)
	require.True(t, ok)
	require.True(t, saved.PaymentWithheld)

	s := store.strike(provider1.ID)
	require.Equal(t, 1, s.Count)
	require.False(t, s.Permanent)
	require.NotNil(t, s.SuspendedUntil)
	require.Equal(t, testNow.Add(14*24*time.Hour), *s.SuspendedUntil)

	require.Len(t, store.effectsOfKind(models.EffectPaymentHold), 1)
}

func TestLowRatingWithoutComplaintPersistsNothing(t *testing.T) {
	e, store := newTestEngine()
	gig := completedUserGig(t, e, store)

	cases := []struct {
		name      string
		complaint *models.Complaint
	}{
		{"missing entirely", nil},
		{"missing issue", &models.Complaint{ImprovementSuggestion: "x", SincerityAgreement: true}},
		{"missing suggestion", &models.Complaint{Issue: "x", SincerityAgreement: true}},
		{"sincerity not affirmed", &models.Complaint{Issue: "x", ImprovementSuggestion: "y"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.SubmitRating(context.Background(), gig.ID, owner, 1, "", tc.complaint)
			require.ErrorIs(t, err, engine.ErrIncompleteComplaint)

			_, ok := store.rating(gig.ID)
			require.False(t, ok)
			require.Zero(t, store.strike(provider1.ID).Count)
			require.Empty(t, store.effectsOfKind(models.EffectPaymentHold))
		})
	}
}

func TestGoodRatingReleasesNormally(t *testing.T) {
	e, store := newTestEngine()
	gig := completedUserGig(t, e, store)

	r, err := e.SubmitRating(context.Background(), gig.ID, owner, 3, "fine", nil)
	require.NoError(t, err)
	require.False(t, r.PaymentWithheld)
	require.Nil(t, r.Complaint)

	require.Zero(t, store.strike(provider1.ID).Count)
	require.Empty(t, store.effectsOfKind(models.EffectPaymentHold))

	_, err = e.Transition(context.Background(), gig.ID, models.GigStatusApproved, owner, nil, "")
	require.NoError(t, err)
	require.Len(t, store.effectsOfKind(models.EffectPaymentRelease), 1)
}

func TestWithheldRatingBlocksRelease(t *testing.T) {
	e, store := newTestEngine()
	gig := completedUserGig(t, e, store)

	complaint := &models.Complaint{Issue: "sloppy", ImprovementSuggestion: "take more care", SincerityAgreement: true}
	_, err := e.SubmitRating(context.Background(), gig.ID, owner, 2, "", complaint)
	require.NoError(t, err)

	_, err = e.Transition(context.Background(), gig.ID, models.GigStatusApproved, owner, nil, "")
	require.NoError(t, err)
	require.Empty(t, store.effectsOfKind(models.EffectPaymentRelease))
}

func TestRatingScoreBounds(t *testing.T) {
	e, store := newTestEngine()
	gig := completedUserGig(t, e, store)

	for _, score := range []int{0, 6, -1} {
		_, err := e.SubmitRating(context.Background(), gig.ID, owner, score, "", nil)
		require.ErrorIs(t, err, engine.ErrInvalidRating, "score %d", score)
	}
}

func TestDuplicateRatingRejected(t *testing.T) {
	e, store := newTestEngine()
	gig := completedUserGig(t, e, store)

	_, err := e.SubmitRating(context.Background(), gig.ID, owner, 4, "", nil)
	require.NoError(t, err)

	_, err = e.SubmitRating(context.Background(), gig.ID, owner, 5, "changed my mind", nil)
	require.ErrorIs(t, err, engine.ErrRatingExists)
}

func TestOnlyCounterPartyMayRate(t *testing.T) {
	e, store := newTestEngine()
	gig := completedUserGig(t, e, store)

	// The provider rendered the service; they do not rate themselves.
	_, err := e.SubmitRating(context.Background(), gig.ID, provider1, 5, "", nil)
	require.ErrorIs(t, err, engine.ErrUnauthorized)

	_, err = e.SubmitRating(context.Background(), gig.ID, stranger, 5, "", nil)
	require.ErrorIs(t, err, engine.ErrUnauthorized)
}

func TestRatingRequiresFinishedGig(t *testing.T) {
	e, _ := newTestEngine()
	gig := createUserGig(t, e)

	_, err := e.SubmitRating(context.Background(), gig.ID, owner, 4, "", nil)
	require.ErrorIs(t, err, engine.ErrInvalidTransition)
}

func TestRejectedGigCanStillBeRated(t *testing.T) {
	e, store := newTestEngine()
	ctx := context.Background()
	gig := createUserGig(t, e)
	bid := placeBid(t, e, gig.ID, provider1, 50)
	_, err := e.ApproveBid(ctx, gig.ID, bid.ID, owner)
	require.NoError(t, err)
	_, err = e.Transition(ctx, gig.ID, models.GigStatusRejected, owner, nil, "bad fit")
	require.NoError(t, err)

	complaint := &models.Complaint{Issue: "never showed up", ImprovementSuggestion: "communicate", SincerityAgreement: true}
	r, err := e.SubmitRating(ctx, gig.ID, owner, 1, "", complaint)
	require.NoError(t, err)
	require.True(t, r.PaymentWithheld)
	require.Equal(t, 1, store.strike(provider1.ID).Count)
}

func TestProviderCreatedGigRatedByRequestingUser(t *testing.T) {
	e, store := newTestEngine()
	ctx := context.Background()
	prov := models.Actor{ID: 11, Role: models.RoleProvider}
	client := models.Actor{ID: 12, Role: models.RoleUser}

	gig := &models.Gig{Title: "Dog walking", Description: "30 minute walks", Price: 15}
	require.NoError(t, e.CreateGig(ctx, prov, gig))
	bid, err := e.PlaceBid(ctx, gig.ID, client, 15, models.BidAmountFixed, "")
	require.NoError(t, err)
	_, err = e.Transition(ctx, gig.ID, models.GigStatusRequested, client, &bid.ID, "")
	require.NoError(t, err)
	_, err = e.ApproveBid(ctx, gig.ID, bid.ID, prov)
	require.NoError(t, err)
	_, err = e.Transition(ctx, gig.ID, models.GigStatusCompleted, prov, nil, "")
	require.NoError(t, err)

	// The provider owns the gig here, so a low score still strikes them.
	complaint := &models.Complaint{Issue: "walk cut short", ImprovementSuggestion: "full half hour", SincerityAgreement: true}
	_, err = e.SubmitRating(ctx, gig.ID, client, 2, "", complaint)
	require.NoError(t, err)
	require.Equal(t, 1, store.strike(prov.ID).Count)
	require.Zero(t, store.strike(client.ID).Count)
}
