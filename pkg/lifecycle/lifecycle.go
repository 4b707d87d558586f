// Package lifecycle coordinates startup hooks, long-running background work,
// and two-phase shutdown for the service.
//
// Shutdown runs in two phases. The drain phase covers Run loops and OnDrain
// hooks: everything that still produces work against shared resources.
// Resource hooks registered with OnShutdown wait on Drained before closing
// connections, so in-flight work can finish its writes.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ReadinessChecker reports whether a subsystem is ready to serve traffic.
type ReadinessChecker interface {
	Ready() bool
}

// Coordinator owns the service context and tracks every registered hook.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc

	startup  sync.WaitGroup
	work     sync.WaitGroup
	shutdown sync.WaitGroup

	drained   chan struct{}
	drainOnce sync.Once
	ready     atomic.Bool
}

// New creates a Coordinator with a cancellable context.
func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:     ctx,
		cancel:  cancel,
		drained: make(chan struct{}),
	}
}

// Context returns the coordinator's context, cancelled when Shutdown begins.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup runs fn concurrently. WaitForStartup blocks until every startup
// hook returns.
func (c *Coordinator) OnStartup(fn func()) {
	c.startup.Go(fn)
}

// Run starts a background loop with the coordinator context. fn must return
// once the context is cancelled; it belongs to the drain phase.
func (c *Coordinator) Run(fn func(ctx context.Context)) {
	c.work.Go(func() {
		fn(c.ctx)
	})
}

// OnDrain registers a drain-phase hook. Hooks should block on
// <-Context().Done() before stopping intake and flushing pending work.
func (c *Coordinator) OnDrain(fn func()) {
	c.work.Go(fn)
}

// OnShutdown registers a resource hook. Hooks should block on <-Drained()
// before releasing connections.
func (c *Coordinator) OnShutdown(fn func()) {
	c.shutdown.Go(fn)
}

// Drained is closed once shutdown has begun and every Run loop and drain
// hook has returned.
func (c *Coordinator) Drained() <-chan struct{} {
	return c.drained
}

// Ready reports whether startup completed and shutdown has not begun.
func (c *Coordinator) Ready() bool {
	return c.ready.Load()
}

// WaitForStartup blocks until all startup hooks return, then marks the
// coordinator ready.
func (c *Coordinator) WaitForStartup() {
	c.startup.Wait()
	if c.ctx.Err() == nil {
		c.ready.Store(true)
	}
}

// Shutdown cancels the context, waits for the drain phase, then for the
// resource hooks, all within timeout.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.ready.Store(false)
	c.cancel()

	c.drainOnce.Do(func() {
		go func() {
			c.work.Wait()
			close(c.drained)
		}()
	})

	done := make(chan struct{})
	go func() {
		<-c.drained
		c.shutdown.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}
