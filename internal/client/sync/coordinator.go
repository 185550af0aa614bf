package sync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// State is the coordinator lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
)

// Status is a point-in-time snapshot of the coordinator.
type Status struct {
	State   State
	Pushing bool
	Pulling bool
}

// Coordinator owns the sync lifecycle: it keeps the live feed connected
// while listening, runs combined pull+push cycles, debounces push requests
// and guarantees at most one cycle runs at a time.
type Coordinator struct {
	s          *Session
	pusher     *Pusher
	reconciler *Reconciler
	debounce   time.Duration

	mu       sync.Mutex
	state    State
	runCtx   context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	busy     bool
	pushing  bool
	pulling  bool
	deadline *time.Timer
}

func NewCoordinator(s *Session, debounce time.Duration) *Coordinator {
	return &Coordinator{
		s:          s,
		pusher:     NewPusher(s),
		reconciler: NewReconciler(s),
		debounce:   debounce,
		state:      StateIdle,
	}
}

// Start moves the coordinator to listening: the watermark is reset, the
// live feed goroutine comes up and one catch-up-plus-push cycle runs.
// Starting an already listening coordinator is a no-op.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateListening {
		c.mu.Unlock()
		return nil
	}
	if err := c.s.ResetWatermark(ctx); err != nil {
		c.mu.Unlock()
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.runCtx = runCtx
	c.cancel = cancel
	c.state = StateListening
	c.wg.Add(1)
	c.mu.Unlock()

	go c.liveLoop(runCtx)

	_, err := c.cycle(runCtx)
	return err
}

// Stop cancels the live feed and returns to idle. Blocks until the live
// goroutine exits.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	if c.deadline != nil {
		c.deadline.Stop()
		c.deadline = nil
	}
	c.cancel()
	c.state = StateIdle
	c.pushing = false
	c.pulling = false
	c.mu.Unlock()

	c.wg.Wait()
}

// Status returns the current lifecycle snapshot.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{State: c.state, Pushing: c.pushing, Pulling: c.pulling}
}

// RequestPush schedules a cycle after the debounce window. Requests landing
// inside an open window coalesce into the one scheduled cycle.
func (c *Coordinator) RequestPush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateListening || c.deadline != nil {
		return
	}
	ctx := c.runCtx
	c.deadline = time.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		c.deadline = nil
		c.mu.Unlock()

		ran, _ := c.cycle(ctx)
		if !ran && ctx.Err() == nil {
			// a cycle was already in flight; try again after another window
			c.RequestPush()
		}
	})
}

// Flush runs a cycle immediately, bypassing the debounce window.
func (c *Coordinator) Flush(ctx context.Context) error {
	_, err := c.cycle(ctx)
	return err
}

// OnEntitlementChanged reacts to plan changes. Regaining the entitlement
// triggers an immediate cycle so parked changes drain; losing it needs no
// action here, the gate suppresses subsequent pushes on its own.
func (c *Coordinator) OnEntitlementChanged(entitled bool) {
	if !entitled {
		return
	}
	c.mu.Lock()
	listening := c.state == StateListening
	ctx := c.runCtx
	c.mu.Unlock()
	if listening {
		go func() { _, _ = c.cycle(ctx) }()
	}
}

// cycle runs one pull-then-push pass. Overlapping invocations are dropped:
// the second caller returns immediately with ran=false.
func (c *Coordinator) cycle(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return false, nil
	}
	c.busy = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	c.setFlag(&c.pulling, true)
	pullErr := c.reconciler.CatchUp(ctx)
	c.setFlag(&c.pulling, false)
	if pullErr != nil {
		c.s.Logger.Warn(ctx, "pull cycle failed", "error", pullErr)
	}

	c.setFlag(&c.pushing, true)
	pushErr := c.pusher.Push(ctx)
	c.setFlag(&c.pushing, false)
	if pushErr != nil {
		c.s.Logger.Warn(ctx, "push cycle failed", "error", pushErr)
	}

	return true, errors.Join(pullErr, pushErr)
}

func (c *Coordinator) setFlag(f *bool, v bool) {
	c.mu.Lock()
	*f = v
	c.mu.Unlock()
}

// liveLoop keeps the change feed connected, reconnecting with exponential
// backoff. A connection that stayed up for a while resets the backoff.
func (c *Coordinator) liveLoop(ctx context.Context) {
	defer c.wg.Done()

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0

	for {
		started := time.Now()
		err := c.reconciler.RunLive(ctx)
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) > time.Minute {
			bo.Reset()
		}

		wait := bo.NextBackOff()
		c.s.Logger.Warn(ctx, "live feed disconnected, reconnecting", "error", err, "wait", wait)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}
