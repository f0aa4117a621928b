// Package bootstrap owns the document database connection lifecycle: the
// one-shot connect attempt made at startup, the resulting state, and the
// dependency probes served by the admin health endpoints.
package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrConnectStarted is returned when Connect is called after the connection
// attempt has already been made. There is exactly one attempt per process.
var ErrConnectStarted = errors.New("connect already started")

// DependencyMongo is the key used for the document database in probe maps.
const DependencyMongo = "mongo"

const tracerName = "secureapp-backend"

// DocumentStore is satisfied by *clients.MongoClient.
type DocumentStore interface {
	Connect(ctx context.Context) error
	Probe(ctx context.Context) ProbeResult
	Disconnect(ctx context.Context) error
}

// Bootstrapper makes the startup connection attempt and reports its state.
type Bootstrapper struct {
	store DocumentStore

	started atomic.Bool

	mu      sync.RWMutex
	state   State
	lastErr error
}

// New constructs a Bootstrapper in the disconnected state. No I/O happens
// until Connect or ConnectAsync is called.
func New(store DocumentStore) *Bootstrapper {
	return &Bootstrapper{
		store: store,
		state: StateDisconnected,
	}
}

// Connect makes the single connection attempt and blocks until it completes.
// A connection failure is logged and reported in the result, not returned as
// an error; the only error is ErrConnectStarted. Failures are not retried.
func (b *Bootstrapper) Connect(ctx context.Context) (*ConnectResult, error) {
	if !b.started.CompareAndSwap(false, true) {
		return nil, ErrConnectStarted
	}

	b.setState(StateConnecting, nil)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "backend.mongo.connect")
	defer span.End()

	start := time.Now()
	err := b.store.Connect(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		b.setState(StateFailed, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "mongo connect failed")
		span.SetAttributes(attribute.String("mongo.state", string(StateFailed)))
		slog.ErrorContext(ctx, "MongoDB connection error", "err", err, "latency_ms", latency)
		return &ConnectResult{
			Status:    StatusError,
			State:     StateFailed,
			LatencyMs: latency,
			Error:     err.Error(),
		}, nil
	}

	b.setState(StateConnected, nil)
	span.SetStatus(codes.Ok, "")
	span.SetAttributes(attribute.String("mongo.state", string(StateConnected)))
	slog.InfoContext(ctx, "connected to MongoDB", "latency_ms", latency)
	return &ConnectResult{
		Status:    StatusOK,
		State:     StateConnected,
		LatencyMs: latency,
	}, nil
}

// ConnectAsync runs Connect in a background goroutine and returns at once.
// The channel delivers the result and is then closed; it is closed without a
// value if the attempt had already been started.
func (b *Bootstrapper) ConnectAsync(ctx context.Context) <-chan *ConnectResult {
	ch := make(chan *ConnectResult, 1)
	go func() {
		defer close(ch)
		res, err := b.Connect(ctx)
		if err != nil {
			slog.WarnContext(ctx, "MongoDB connect skipped", "err", err)
			return
		}
		ch <- res
	}()
	return ch
}

// State returns the current connection state.
func (b *Bootstrapper) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// LastError returns the error from a failed attempt, or nil.
func (b *Bootstrapper) LastError() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastErr
}

// IsReady returns true once the connection attempt has succeeded.
func (b *Bootstrapper) IsReady() bool {
	return b.State() == StateConnected
}

// RunDeepHealth probes every dependency and returns a map of dependency name
// to ProbeResult.
func (b *Bootstrapper) RunDeepHealth(ctx context.Context) map[string]ProbeResult {
	return map[string]ProbeResult{
		DependencyMongo: b.store.Probe(ctx),
	}
}

// Shutdown releases the database handle. Safe to call whether or not the
// connection attempt succeeded.
func (b *Bootstrapper) Shutdown(ctx context.Context) error {
	if err := b.store.Disconnect(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	if b.state == StateConnected {
		b.state = StateDisconnected
	}
	b.mu.Unlock()
	return nil
}

func (b *Bootstrapper) setState(s State, err error) {
	b.mu.Lock()
	b.state = s
	b.lastErr = err
	b.mu.Unlock()
}
