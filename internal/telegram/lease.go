package telegram

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Lease pairs a connected client with exactly-once release semantics. Every
// flow that dials a connection owns the resulting lease until it calls
// Release; double release is a no-op, so cleanup can run on every exit path
// without bookkeeping.
type Lease struct {
	id       string
	client   Client
	logger   *slog.Logger
	once     sync.Once
	released atomic.Bool
}

// NewLease wraps an already-connected client.
func NewLease(client Client, logger *slog.Logger) *Lease {
	return &Lease{id: uuid.NewString(), client: client, logger: logger}
}

// ID returns the lease correlation id used in log records.
func (l *Lease) ID() string { return l.id }

// Client exposes the underlying capability client.
func (l *Lease) Client() Client { return l.client }

// Released reports whether Release has run.
func (l *Lease) Released() bool { return l.released.Load() }

// Release disconnects the client. Safe to call multiple times; only the first
// call disconnects.
func (l *Lease) Release(ctx context.Context) {
	l.once.Do(func() {
		l.released.Store(true)
		if err := l.client.Disconnect(ctx); err != nil {
			l.logger.Warn("disconnect failed", "lease_id", l.id, "error", err)
		}
	})
}

// Dialer opens connection leases against the registered driver.
type Dialer struct {
	driver  Driver
	apiID   int
	apiHash string
	logger  *slog.Logger
}

// NewDialer builds a dialer bound to one API application.
func NewDialer(driver Driver, apiID int, apiHash string, logger *slog.Logger) *Dialer {
	return &Dialer{driver: driver, apiID: apiID, apiHash: apiHash, logger: logger}
}

// DialFresh opens an unauthenticated connection for a login flow.
func (d *Dialer) DialFresh(ctx context.Context) (*Lease, error) {
	client := d.driver.NewClient(d.apiID, d.apiHash)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return NewLease(client, d.logger), nil
}

// DialStored opens a connection bound to a previously exported credential.
func (d *Dialer) DialStored(ctx context.Context, credential string) (*Lease, error) {
	client := d.driver.NewClientWithCredential(d.apiID, d.apiHash, credential)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return NewLease(client, d.logger), nil
}
