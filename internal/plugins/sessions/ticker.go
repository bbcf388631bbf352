package sessions

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Ticker advances the elapsed time of active sessions, one goroutine per
// court. A court's loop exits on its own once the court has no active
// session, so ending a session needs no explicit Stop.
type Ticker struct {
	svc      CourtService
	interval time.Duration

	mu      sync.Mutex
	running map[string]*tickLoop
	wg      sync.WaitGroup
}

type tickLoop struct {
	cancel context.CancelFunc

	// rewatched is set when Watch hits a live loop, so a loop that just
	// saw an empty court keeps going for the session started meanwhile.
	rewatched bool

	// restart asks the loop to begin a fresh interval for a new session.
	restart chan struct{}
}

// NewTicker creates a ticker that calls svc.Tick every interval.
func NewTicker(svc CourtService, interval time.Duration) *Ticker {
	return &Ticker{
		svc:      svc,
		interval: interval,
		running:  make(map[string]*tickLoop),
	}
}

// Watch starts ticking courtID. When the court already has a loop, that
// loop restarts its interval so a session started just now is not credited
// early.
func (t *Ticker) Watch(courtID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if loop, ok := t.running[courtID]; ok {
		loop.rewatched = true
		select {
		case loop.restart <- struct{}{}:
		default:
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	loop := &tickLoop{cancel: cancel, restart: make(chan struct{}, 1)}
	t.running[courtID] = loop
	t.wg.Add(1)
	go t.run(ctx, courtID, loop)
}

// Stop cancels the loop for courtID, if any.
func (t *Ticker) Stop(courtID string) {
	t.mu.Lock()
	loop, ok := t.running[courtID]
	delete(t.running, courtID)
	t.mu.Unlock()
	if ok {
		loop.cancel()
	}
}

// StopAll cancels every loop and waits for them to exit.
func (t *Ticker) StopAll() {
	t.mu.Lock()
	for id, loop := range t.running {
		loop.cancel()
		delete(t.running, id)
	}
	t.mu.Unlock()
	t.wg.Wait()
}

// Running reports whether courtID has a live loop.
func (t *Ticker) Running(courtID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.running[courtID]
	return ok
}

// Resume starts loops for every court that already has an active session,
// e.g. after a restart.
func (t *Ticker) Resume(ctx context.Context) error {
	ids, err := t.svc.ActiveCourts(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		t.Watch(id)
	}
	return nil
}

func (t *Ticker) run(ctx context.Context, courtID string, loop *tickLoop) {
	defer t.wg.Done()
	defer t.forget(courtID, loop)

	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-loop.restart:
			tk.Reset(t.interval)
		case <-tk.C:
			sess, err := t.svc.Tick(ctx, courtID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("tick failed", slog.String("court_id", courtID), slog.Any("error", err))
				continue
			}
			if sess == nil && t.idle(courtID, loop) {
				return
			}
		}
	}
}

// idle reports whether loop should exit after finding no active session.
func (t *Ticker) idle(courtID string, loop *tickLoop) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if loop.rewatched {
		loop.rewatched = false
		return false
	}
	if t.running[courtID] == loop {
		delete(t.running, courtID)
	}
	return true
}

// forget removes loop from the running set unless it was already replaced.
func (t *Ticker) forget(courtID string, loop *tickLoop) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running[courtID] == loop {
		delete(t.running, courtID)
	}
	loop.cancel()
}
