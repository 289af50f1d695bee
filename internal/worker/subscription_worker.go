package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SubscriptionExpirer downgrades teachers whose pro period has ended.
type SubscriptionExpirer interface {
	ExpireLapsed(ctx context.Context) (int64, error)
}

// SubscriptionWorker periodically returns lapsed pro teachers to the free
// tier. Activation itself happens in the payment webhook.
type SubscriptionWorker struct {
	expirer  SubscriptionExpirer
	interval time.Duration
	log      zerolog.Logger
}

func NewSubscriptionWorker(expirer SubscriptionExpirer, interval time.Duration, log zerolog.Logger) *SubscriptionWorker {
	return &SubscriptionWorker{
		expirer:  expirer,
		interval: interval,
		log:      log.With().Str("component", "subscription_worker").Logger(),
	}
}

// Start sweeps once immediately, then every interval until ctx is cancelled.
func (w *SubscriptionWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("SubscriptionWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("SubscriptionWorker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SubscriptionWorker) sweep(ctx context.Context) {
	n, err := w.expirer.ExpireLapsed(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Subscription expiry sweep failed")
		}
		return
	}
	if n > 0 {
		w.log.Info().Int64("downgraded", n).Msg("Expired pro subscriptions")
	}
}
