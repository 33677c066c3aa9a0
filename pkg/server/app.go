package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	applogger "ContractScan/pkg/logger"
)

// Component is a long-running part of the service (HTTP server, Kafka consumer, dispatcher).
type Component interface {
	Start() error
	Stop(ctx context.Context) error
}

type named struct {
	name string
	c    Component
}

type closer struct {
	name string
	fn   func() error
}

// App starts components in registration order, waits for a signal or context
// cancellation, then stops them in reverse order and releases clients.
type App struct {
	l               *applogger.Logger
	components      []named
	closers         []closer
	shutdownTimeout time.Duration
}

func New(l *applogger.Logger, shutdownTimeout time.Duration) *App {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	return &App{l: l, shutdownTimeout: shutdownTimeout}
}

// Add registers a component. Nil components are ignored so optional wiring stays simple.
func (a *App) Add(name string, c Component) {
	if c == nil {
		return
	}
	a.components = append(a.components, named{name: name, c: c})
}

// OnClose registers a release hook run after every component has stopped.
func (a *App) OnClose(name string, fn func() error) {
	if fn == nil {
		return
	}
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Run blocks until SIGINT/SIGTERM or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := 0
	var startErr error
	for _, n := range a.components {
		if err := n.c.Start(); err != nil {
			startErr = fmt.Errorf("start %s: %w", n.name, err)
			a.l.Error("component failed to start", applogger.String("component", n.name), applogger.Error(err))
			break
		}
		a.l.Info("component started", applogger.String("component", n.name))
		started++
	}

	if startErr == nil {
		<-ctx.Done()
		a.l.Info("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	errs := []error{startErr}
	for i := started - 1; i >= 0; i-- {
		n := a.components[i]
		if err := n.c.Stop(shutdownCtx); err != nil {
			a.l.Warn("component stop failed", applogger.String("component", n.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("stop %s: %w", n.name, err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		cl := a.closers[i]
		if err := cl.fn(); err != nil {
			a.l.Warn("close failed", applogger.String("resource", cl.name), applogger.Error(err))
		}
	}
	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}
