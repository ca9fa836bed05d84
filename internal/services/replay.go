package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ConnectivitySignal is an observable online/offline indicator. OnOnline
// callbacks fire on every offline-to-online transition.
type ConnectivitySignal interface {
	IsOnline() bool
	OnOnline(fn func())
}

// ReplayTrigger drains the offline queues whenever connectivity returns.
// It subscribes to a ConnectivitySignal, drains once at startup (the page-load
// replay), and optionally re-drains on a fixed interval as a safety net.
type ReplayTrigger struct {
	svc      *SyncService
	signal   ConnectivitySignal
	interval time.Duration
	log      zerolog.Logger

	// mu serializes drains so a timer tick and a connectivity event never
	// replay the same entries twice.
	mu sync.Mutex
}

// NewReplayTrigger wires a trigger to the coordinator. interval <= 0 disables
// periodic re-drains; signal may be nil, leaving only the startup drain (and
// any interval).
func NewReplayTrigger(svc *SyncService, signal ConnectivitySignal, interval time.Duration, log zerolog.Logger) *ReplayTrigger {
	return &ReplayTrigger{svc: svc, signal: signal, interval: interval, log: log}
}

// Start performs the startup drain, registers for connectivity events, and
// launches the optional periodic loop. It returns immediately; the loop
// stops when ctx is cancelled.
func (t *ReplayTrigger) Start(ctx context.Context) {
	t.Drain(ctx)

	if t.signal != nil {
		t.signal.OnOnline(func() {
			t.log.Info().Msg("connectivity restored, replaying offline queues")
			t.Drain(ctx)
		})
	}

	if t.interval > 0 {
		go func() {
			ticker := time.NewTicker(t.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					t.Drain(ctx)
				}
			}
		}()
	}
}

// Drain replays both queues concurrently. Each queue is all-or-nothing:
// every snapshotted entry is sent in its own goroutine, and the batch is
// acknowledged only when all of them succeed. Writes queued while a drain is
// in flight are outside the snapshot and survive the ack. Failures are
// logged and the entries stay queued for the next trigger; Drain never
// surfaces an error to the caller.
func (t *ReplayTrigger) Drain(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		t.drainReviews(ctx)
	}()
	go func() {
		defer wg.Done()
		t.drainFavorites(ctx)
	}()
	wg.Wait()
}

func (t *ReplayTrigger) drainReviews(ctx context.Context) {
	pending, err := t.svc.Queue().PendingReviews(ctx)
	if err != nil {
		t.log.Error().Err(err).Msg("failed to load pending reviews")
		return
	}
	if len(pending) == 0 {
		return
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed error
	)
	for _, review := range pending {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := t.svc.Remote().SubmitReview(ctx, review); err != nil {
				mu.Lock()
				failed = err
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if failed != nil {
		replayRuns.WithLabelValues("reviews", "retry").Inc()
		t.log.Warn().Err(failed).Int("pending", len(pending)).
			Msg("review replay incomplete, will retry")
		return
	}
	if err := t.svc.Queue().AckReviews(ctx, pending); err != nil {
		t.log.Error().Err(err).Msg("failed to ack replayed reviews")
		return
	}
	replayRuns.WithLabelValues("reviews", "ok").Inc()
	t.log.Info().Int("replayed", len(pending)).Msg("offline reviews replayed")
}

func (t *ReplayTrigger) drainFavorites(ctx context.Context) {
	pending, err := t.svc.Queue().PendingFavorites(ctx)
	if err != nil {
		t.log.Error().Err(err).Msg("failed to load pending favorites")
		return
	}
	if len(pending) == 0 {
		return
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed error
	)
	for _, fav := range pending {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := t.svc.Remote().SetFavorite(ctx, fav.RestaurantID, fav.IsFavorite); err != nil {
				mu.Lock()
				failed = err
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if failed != nil {
		replayRuns.WithLabelValues("favorites", "retry").Inc()
		t.log.Warn().Err(failed).Int("pending", len(pending)).
			Msg("favorite replay incomplete, will retry")
		return
	}
	if err := t.svc.Queue().AckFavorites(ctx, pending); err != nil {
		t.log.Error().Err(err).Msg("failed to ack replayed favorites")
		return
	}
	replayRuns.WithLabelValues("favorites", "ok").Inc()
	t.log.Info().Int("replayed", len(pending)).Msg("offline favorites replayed")
}
