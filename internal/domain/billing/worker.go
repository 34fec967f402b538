package billing

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clinika/clinika-api/internal/domain/ledger"
)

// Worker sweeps pending purchases that never received a confirmation within
// the expiry window. It reuses the same status-guarded transition as
// ConfirmTopUp, so a late legitimate callback and the sweep cannot both win.
type Worker struct {
	store    *ledger.Store
	expiry   time.Duration
	interval time.Duration
	stopCh   chan struct{}
}

// NewWorker creates a new billing sweep worker
func NewWorker(store *ledger.Store, expiry, interval time.Duration) *Worker {
	if expiry == 0 {
		expiry = 24 * time.Hour
	}
	if interval == 0 {
		interval = 1 * time.Hour
	}
	return &Worker{
		store:    store,
		expiry:   expiry,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background worker
func (w *Worker) Start() {
	log.Info().Dur("interval", w.interval).Msg("Starting billing sweep worker...")
	go w.loop()
}

// Stop gracefully stops the background worker
func (w *Worker) Stop() {
	log.Info().Msg("Stopping billing sweep worker...")
	close(w.stopCh)
}

func (w *Worker) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately on startup
	w.sweep()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.stopCh:
			return
		}
	}
}

func (w *Worker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-w.expiry)
	count, err := w.store.FailExpiredPending(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Failed to sweep expired pending purchases")
		return
	}
	if count > 0 {
		log.Info().Int64("count", count).Msg("Swept expired pending purchases to failed")
	}
}
