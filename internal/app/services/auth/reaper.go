package auth

import (
	"context"
	"sync"
	"time"

	"github.com/frogworks/storefront/internal/app/storage"
	"github.com/frogworks/storefront/internal/app/system"
	"github.com/frogworks/storefront/pkg/logger"
)

// Reaper closes sessions whose last activity is older than the idle limit.
type Reaper struct {
	store    storage.SessionStore
	maxIdle  time.Duration
	interval time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

var _ system.Service = (*Reaper)(nil)

// NewReaper constructs a session reaper. maxIdle and interval fall back to
// one hour and one minute respectively when not positive.
func NewReaper(store storage.SessionStore, maxIdle, interval time.Duration, log *logger.Logger) *Reaper {
	if log == nil {
		log = logger.NewDefault("session-reaper")
	}
	if maxIdle <= 0 {
		maxIdle = time.Hour
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reaper{
		store:    store,
		maxIdle:  maxIdle,
		interval: interval,
		log:      log,
	}
}

func (r *Reaper) Name() string { return "session-reaper" }

func (r *Reaper) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				r.tick(runCtx)
			}
		}
	}()

	r.log.Info("session reaper started")
	return nil
}

func (r *Reaper) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (r *Reaper) tick(ctx context.Context) {
	sessions, err := r.store.ListSessions(ctx)
	if err != nil {
		r.log.WithError(err).Warn("list sessions failed")
		return
	}

	cutoff := time.Now().UTC().Add(-r.maxIdle)
	for _, sess := range sessions {
		if sess.LastActivity.After(cutoff) {
			continue
		}
		if err := r.store.DeleteSession(ctx, sess.ID); err != nil {
			r.log.WithError(err).Warnf("reap session %s failed", sess.ID)
			continue
		}
		r.log.WithField("session_id", sess.ID).
			WithField("user_id", sess.UserID).
			Info("idle session closed")
	}
}
