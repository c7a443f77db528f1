// Package mongostore owns the process-wide MongoDB client.
//
// The client is created once at startup by Initialize and handed to a Holder.
// Operations copy the handle out of the Holder under its lock and release the
// lock before any I/O, so a slow store call never blocks another operation.
package mongostore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/starford/knowleague/internal/apperr"
)

// Options configures the client created by Initialize.
type Options struct {
	URI                    string
	AppName                string
	ServerSelectionTimeout time.Duration
}

// Initialize parses opts.URI and constructs a client. It is best-effort: any
// parse or construction failure is logged and reported as a nil client, and
// the process keeps running disconnected. There are no retries.
func Initialize(ctx context.Context, opts Options, logger *slog.Logger) *mongo.Client {
	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.AppName != "" {
		clientOpts.SetAppName(opts.AppName)
	}
	if opts.ServerSelectionTimeout > 0 {
		clientOpts.SetServerSelectionTimeout(opts.ServerSelectionTimeout)
	}
	if err := clientOpts.Validate(); err != nil {
		logger.Warn("mongo: invalid client options", slog.String("error", err.Error()))
		return nil
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		logger.Warn("mongo: connect failed", slog.String("error", err.Error()))
		return nil
	}
	return client
}

// Holder guards the optional client handle.
type Holder struct {
	mu     sync.Mutex
	client *mongo.Client
}

// NewHolder wraps client, which may be nil when startup failed.
func NewHolder(client *mongo.Client) *Holder {
	return &Holder{client: client}
}

// Client returns a copy of the held handle, or ErrNotConnected.
func (h *Holder) Client() (*mongo.Client, error) {
	h.mu.Lock()
	client := h.client
	h.mu.Unlock()

	if client == nil {
		return nil, apperr.ErrNotConnected
	}
	return client, nil
}

// Connected reports whether a handle is held.
func (h *Holder) Connected() bool {
	_, err := h.Client()
	return err == nil
}

// Probe asks the store for its database names and returns them as a
// human-readable acknowledgement.
func (h *Holder) Probe(ctx context.Context) (string, error) {
	client, err := h.Client()
	if err != nil {
		return "", err
	}
	names, err := client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return "", apperr.Store("list databases", err)
	}
	return fmt.Sprintf("Databases: %q", names), nil
}

// Disconnect closes the held client on process exit. It is not part of any
// note operation and is only called once every transport has stopped.
func (h *Holder) Disconnect(ctx context.Context) error {
	client, err := h.Client()
	if err != nil {
		return nil
	}
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo: disconnect: %w", err)
	}
	return nil
}
