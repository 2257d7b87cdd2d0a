// Package dispatch drains the effect outbox and hands requests to the
// external payment and notification collaborators over a Redis channel. The
// engine only guarantees the request was durably queued; delivery here is
// best-effort with bounded timeouts and backoff, and a failed delivery never
// touches gig state.
package dispatch

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"gigs/models"
)

// Store is the slice of storage the dispatcher needs.
type Store interface {
	PendingEffects(ctx context.Context, limit int) ([]models.EffectRequest, error)
	MarkEffectDispatched(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkEffectFailed(ctx context.Context, id uuid.UUID, exhausted bool) error
}

// Publisher delivers a serialized effect request to a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

type Dispatcher struct {
	store    Store
	pub      Publisher
	channel  string
	interval time.Duration
	timeout  time.Duration
	batch    int
	retries  uint64
}

func New(store Store, pub Publisher, channel string) *Dispatcher {
	return &Dispatcher{
		store:    store,
		pub:      pub,
		channel:  channel,
		interval: 2 * time.Second,
		timeout:  3 * time.Second,
		batch:    50,
		retries:  4,
	}
}

// Run polls the outbox until the context is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.DrainOnce(ctx); err != nil {
				log.Printf("dispatch: drain failed: %v", err)
			}
		}
	}
}

// DrainOnce claims a batch of pending effects and publishes each with a
// bounded per-attempt timeout and fibonacci backoff. An effect that exhausts
// its retries is marked failed and left for operator review.
func (d *Dispatcher) DrainOnce(ctx context.Context) error {
	effects, err := d.store.PendingEffects(ctx, d.batch)
	if err != nil {
		return err
	}
	for _, effect := range effects {
		payload, err := json.Marshal(effect)
		if err != nil {
			log.Printf("dispatch: marshal effect %s: %v", effect.ID, err)
			_ = d.store.MarkEffectFailed(ctx, effect.ID, true)
			continue
		}

		backoff := retry.WithMaxRetries(d.retries, retry.NewFibonacci(250*time.Millisecond))
		err = retry.Do(ctx, backoff, func(ctx context.Context) error {
			attempt, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			if err := d.pub.Publish(attempt, d.channel, payload); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			log.Printf("dispatch: effect %s (%s) undelivered: %v", effect.ID, effect.Kind, err)
			exhausted := effect.Attempts+1 >= int(d.retries)
			if err := d.store.MarkEffectFailed(ctx, effect.ID, exhausted); err != nil {
				return err
			}
			continue
		}
		if err := d.store.MarkEffectDispatched(ctx, effect.ID, time.Now()); err != nil {
			return err
		}
	}
	return nil
}
