package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Publisher delivers a committed event somewhere outside the database.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, e *Event) error
}

// TxRunner is satisfied by *db.TxManager.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type RelayOptions struct {
	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int
	// Retention is how long delivered and dead-lettered events are kept.
	// Zero disables purging.
	Retention time.Duration
}

func (o RelayOptions) withDefaults() RelayOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 5
	}
	return o
}

// Relay polls the outbox and fans each pending event out to every publisher.
// Delivery is at least once: an event is marked processed only after all
// publishers accepted it.
type Relay struct {
	repo       Repository
	tx         TxRunner
	publishers []Publisher
	opts       RelayOptions
	logger     zerolog.Logger
}

func NewRelay(repo Repository, tx TxRunner, logger zerolog.Logger, opts RelayOptions, publishers ...Publisher) *Relay {
	return &Relay{
		repo:       repo,
		tx:         tx,
		publishers: publishers,
		opts:       opts.withDefaults(),
		logger:     logger.With().Str("component", "outbox-relay").Logger(),
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info().
		Dur("poll_interval", r.opts.PollInterval).
		Int("publishers", len(r.publishers)).
		Msg("outbox relay started")

	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	lastPurge := time.Now()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("outbox relay stopped")
			return nil
		case <-ticker.C:
			if _, err := r.ProcessOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Error().Err(err).Msg("process outbox batch")
			}
			if r.opts.Retention > 0 && time.Since(lastPurge) > time.Hour {
				r.purge(ctx)
				lastPurge = time.Now()
			}
		}
	}
}

// ProcessOnce relays a single batch and returns how many events were
// delivered to every publisher.
func (r *Relay) ProcessOnce(ctx context.Context) (int, error) {
	delivered := 0
	err := r.tx.InTx(ctx, func(ctx context.Context) error {
		events, err := r.repo.FetchPending(ctx, r.opts.MaxRetries, r.opts.BatchSize)
		if err != nil {
			return fmt.Errorf("fetch pending events: %w", err)
		}

		for _, e := range events {
			if perr := r.publish(ctx, e); perr != nil {
				exhausted := e.RetryCount+1 >= r.opts.MaxRetries
				r.logger.Warn().Err(perr).
					Int64("event_id", e.ID).
					Str("event_type", e.EventType).
					Int("retry_count", e.RetryCount+1).
					Msg("outbox event delivery failed")
				if err := r.repo.MarkFailed(ctx, e.ID, perr.Error()); err != nil {
					return fmt.Errorf("mark event %d failed: %w", e.ID, err)
				}
				if exhausted {
					r.logger.Error().Err(perr).
						Int64("event_id", e.ID).
						Str("event_type", e.EventType).
						Str("aggregate_id", e.AggregateID).
						Msg("outbox event dead-lettered, retries exhausted")
				}
				continue
			}
			if err := r.repo.MarkProcessed(ctx, e.ID); err != nil {
				return fmt.Errorf("mark event %d processed: %w", e.ID, err)
			}
			delivered++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if delivered > 0 {
		r.logger.Debug().Int("count", delivered).Msg("outbox events delivered")
	}
	return delivered, nil
}

func (r *Relay) publish(ctx context.Context, e *Event) error {
	var errs []error
	for _, p := range r.publishers {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (r *Relay) purge(ctx context.Context) {
	n, err := r.repo.Purge(ctx, r.opts.Retention, r.opts.MaxRetries)
	if err != nil {
		r.logger.Error().Err(err).Msg("purge outbox events")
		return
	}
	if n > 0 {
		r.logger.Info().Int64("deleted", n).Msg("purged outbox events")
	}
}

// LogPublisher writes each event to the logger. It is the only publisher
// when no broker is configured.
type LogPublisher struct {
	Logger zerolog.Logger
}

func (LogPublisher) Name() string { return "log" }

func (p LogPublisher) Publish(_ context.Context, e *Event) error {
	p.Logger.Info().
		Int64("event_id", e.ID).
		Str("event_type", e.EventType).
		Str("key", e.Key()).
		RawJSON("payload", e.Payload).
		Msg("domain event")
	return nil
}
