package pricing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/m-a-mahammad/shop-checkout/internal/domain"
	"github.com/m-a-mahammad/shop-checkout/internal/store"
	"github.com/m-a-mahammad/shop-checkout/pkg/logger"
)

var recomputeFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "cart_total_recompute_failures_total",
	Help: "Number of background cart total recomputations that failed.",
})

// Watcher keeps a per-user total in step with cart snapshot changes. Each
// change marks the total pending and triggers a background recomputation;
// results are tagged with the cart revision they priced, and a result for an
// older revision never overwrites a newer one.
type Watcher struct {
	calc    *Calculator
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	totals   map[string]domain.TotalState
	inflight map[string]chan struct{}
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher using the given calculator. timeout bounds
// each background recomputation.
func NewWatcher(calc *Calculator, timeout time.Duration, log *slog.Logger) *Watcher {
	return &Watcher{
		calc:     calc,
		timeout:  timeout,
		logger:   log,
		totals:   make(map[string]domain.TotalState),
		inflight: make(map[string]chan struct{}),
	}
}

// Attach subscribes the watcher to snapshot changes. The returned function
// detaches it again.
func (w *Watcher) Attach(st *store.Store) func() {
	return st.Subscribe(w.onCartUpdated)
}

// Wait blocks until all in-flight recomputations finish. Used in tests and
// during shutdown.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

// onCartUpdated marks the total pending for the new revision and prices it
// in the background. Runs under the store lock, so it must stay cheap.
func (w *Watcher) onCartUpdated(cart *domain.Cart) {
	done := make(chan struct{})

	w.mu.Lock()
	w.totals[cart.UserID] = domain.TotalState{
		Status:   domain.TotalPending,
		Currency: w.calc.Currency(),
		Revision: cart.Revision,
	}
	w.inflight[cart.UserID] = done
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		w.recompute(ctx, cart)

		w.mu.Lock()
		if w.inflight[cart.UserID] == done {
			delete(w.inflight, cart.UserID)
		}
		w.mu.Unlock()
		close(done)
	}()
}

// recompute prices the given snapshot and publishes the result unless a
// newer revision has been priced in the meantime.
func (w *Watcher) recompute(ctx context.Context, cart *domain.Cart) {
	amount, err := w.calc.ComputeTotal(ctx, cart.UserID, cart.Lines)

	state := domain.TotalState{
		Status:   domain.TotalCurrent,
		Amount:   amount,
		Currency: w.calc.Currency(),
		Revision: cart.Revision,
	}
	if err != nil {
		recomputeFailures.Inc()
		w.logger.ErrorContext(logger.WithUserID(ctx, cart.UserID), "cart total recomputation failed",
			slog.Int64("revision", cart.Revision),
			slog.String("error", err.Error()),
		)
		state.Status = domain.TotalFailed
		state.Amount = 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if existing, ok := w.totals[cart.UserID]; ok && existing.Revision > cart.Revision {
		// A newer snapshot is already being priced; this result is stale.
		return
	}
	w.totals[cart.UserID] = state
}

// Resolve returns the total for the given snapshot. A cached result for the
// same revision is served as is; a pending one waits for the in-flight
// recomputation rather than quoting the same snapshot a second time.
// Anything else is priced on the spot.
func (w *Watcher) Resolve(ctx context.Context, cart *domain.Cart) domain.TotalState {
	w.mu.Lock()
	state, ok := w.totals[cart.UserID]
	done := w.inflight[cart.UserID]
	w.mu.Unlock()

	if ok && state.Revision == cart.Revision {
		if state.Status != domain.TotalPending {
			return state
		}
		if done != nil {
			select {
			case <-done:
				w.mu.Lock()
				state = w.totals[cart.UserID]
				w.mu.Unlock()
				if state.Revision == cart.Revision && state.Status != domain.TotalPending {
					return state
				}
			case <-ctx.Done():
				return state
			}
		}
	}

	amount, err := w.calc.ComputeTotal(ctx, cart.UserID, cart.Lines)
	state = domain.TotalState{
		Status:   domain.TotalCurrent,
		Amount:   amount,
		Currency: w.calc.Currency(),
		Revision: cart.Revision,
	}
	if err != nil {
		state.Status = domain.TotalFailed
		state.Amount = 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if existing, ok := w.totals[cart.UserID]; !ok || existing.Revision <= cart.Revision {
		w.totals[cart.UserID] = state
	}
	return state
}
