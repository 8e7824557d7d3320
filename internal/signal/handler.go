// Package signal turns SIGINT and SIGTERM into context cancellation so a
// waiting `kscript run` can stop its background jobs and exit cleanly.
//
// Import rules:
//   - CAN import: std lib only
//   - MUST NOT import: internal packages
package signal

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Handler cancels its context on the first interrupt signal.
type Handler struct {
	ctx         context.Context //nolint:containedctx // handler owns the context lifecycle
	cancel      context.CancelFunc
	interrupted chan struct{}
	quit        chan struct{}
	signals     chan os.Signal
	fireOnce    sync.Once
	stopOnce    sync.Once
}

// NewHandler starts listening for SIGINT and SIGTERM. Call Stop when done.
func NewHandler(parent context.Context) *Handler {
	ctx, cancel := context.WithCancel(parent)
	h := &Handler{
		ctx:         ctx,
		cancel:      cancel,
		interrupted: make(chan struct{}),
		quit:        make(chan struct{}),
		signals:     make(chan os.Signal, 1),
	}
	signal.Notify(h.signals, syscall.SIGINT, syscall.SIGTERM)
	go h.listen()
	return h
}

// Context is canceled when a signal arrives or Stop is called.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Interrupted is closed when a signal arrives.
func (h *Handler) Interrupted() <-chan struct{} {
	return h.interrupted
}

// WasInterrupted reports whether a signal has arrived.
func (h *Handler) WasInterrupted() bool {
	select {
	case <-h.interrupted:
		return true
	default:
		return false
	}
}

// Stop releases the signal subscription and cancels the context.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() {
		signal.Stop(h.signals)
		close(h.quit)
		h.cancel()
	})
}

func (h *Handler) fire() {
	h.fireOnce.Do(func() {
		close(h.interrupted)
		h.cancel()
	})
}

func (h *Handler) listen() {
	for {
		select {
		case <-h.quit:
			return
		case <-h.ctx.Done():
			return
		case <-h.signals:
			h.fire()
		}
	}
}
