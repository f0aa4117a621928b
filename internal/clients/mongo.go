package clients

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"

	"github.com/Shivraj0199/Secure-multi-container-webapp/internal/bootstrap"
	"github.com/Shivraj0199/Secure-multi-container-webapp/internal/config"
)

const mongoProbeName = "mongo"

var (
	// ErrNotConnected is returned by probes made before a successful Connect.
	ErrNotConnected = errors.New("not connected")

	// ErrClosed is returned by a Connect that completes after Disconnect.
	ErrClosed = errors.New("mongo client closed")
)

// mongoConn abstracts the *mongo.Client methods used here so that tests can
// inject a fake without a running server.
type mongoConn interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
	Disconnect(ctx context.Context) error
}

// MongoClient owns the process's single MongoDB handle. Probes are wrapped in
// a circuit breaker; the initial Connect is not.
type MongoClient struct {
	cfg     config.MongoConfig
	cb      *gobreaker.CircuitBreaker
	connect func(ctx context.Context, cfg config.MongoConfig) (mongoConn, error)

	mu     sync.RWMutex
	conn   mongoConn
	closed bool
}

// NewMongoClient creates a MongoClient. No connection is made until Connect.
func NewMongoClient(cfg config.MongoConfig, cb *gobreaker.CircuitBreaker) *MongoClient {
	return &MongoClient{
		cfg:     cfg,
		cb:      cb,
		connect: realConnect,
	}
}

// Connect builds the driver client and pings the primary. The ping is bounded
// by the configured connect timeout. On failure the half-built client is
// disconnected and the error returned; the caller decides whether to retry.
func (c *MongoClient) Connect(ctx context.Context) error {
	conn, err := c.connect(ctx, c.cfg)
	if err != nil {
		return fmt.Errorf("creating mongo client: %w", err)
	}

	pingCtx := ctx
	if c.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()
	}

	if err := conn.Ping(pingCtx, readpref.Primary()); err != nil {
		discardConn(conn)
		return fmt.Errorf("ping: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		// Disconnect ran while the connect was in flight; nobody else will
		// close this handle.
		discardConn(conn)
		return ErrClosed
	}
	c.conn = conn
	c.mu.Unlock()
	return nil
}

// discardConn closes a handle that was never published. It uses a fresh
// context because the caller's may already be expired.
func discardConn(conn mongoConn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn.Disconnect(ctx) //nolint:errcheck
}

// Probe pings the primary through the circuit breaker. After 3 consecutive
// failures the breaker opens and calls return "circuit open" immediately.
func (c *MongoClient) Probe(ctx context.Context) bootstrap.ProbeResult {
	start := time.Now()

	_, err := c.cb.Execute(func() (any, error) {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			return nil, ErrNotConnected
		}
		if err := conn.Ping(ctx, readpref.Primary()); err != nil {
			return nil, fmt.Errorf("ping: %w", err)
		}
		return nil, nil
	})

	latency := time.Since(start).Milliseconds()

	if err != nil {
		errMsg := err.Error()
		if errors.Is(err, gobreaker.ErrOpenState) {
			errMsg = "circuit open"
		}
		return bootstrap.ProbeResult{
			Name:      mongoProbeName,
			OK:        false,
			LatencyMs: latency,
			Error:     errMsg,
		}
	}

	return bootstrap.ProbeResult{
		Name:      mongoProbeName,
		OK:        true,
		LatencyMs: latency,
	}
}

// Disconnect closes the handle if one is held and marks the client closed, so
// a Connect still in flight discards its handle instead of storing it.
// Calling it more than once, or without a prior successful Connect, is a no-op.
func (c *MongoClient) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.closed = true
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnecting mongo: %w", err)
	}
	return nil
}

// realConnect builds a *mongo.Client from the URI. mongo.Connect validates
// the URI and starts background monitoring but does not wait for a server.
func realConnect(ctx context.Context, cfg config.MongoConfig) (mongoConn, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMonitor(otelmongo.NewMonitor())

	if cfg.ConnectTimeout > 0 {
		opts.SetServerSelectionTimeout(cfg.ConnectTimeout)
	}
	if cfg.MaxPool > 0 {
		opts.SetMaxPoolSize(cfg.MaxPool)
	}
	opts.SetMinPoolSize(cfg.MinPool)
	if cfg.AppName != "" {
		opts.SetAppName(cfg.AppName)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return client, nil
}
