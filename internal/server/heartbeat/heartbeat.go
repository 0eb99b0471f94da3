package heartbeat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Directory services keep a public listing of running servers alive via
// periodic POSTs. Both clients share the Client contract; the Hub only
// sees this interface.

// Client announces the server to one directory service.
type Client interface {
	// Build assembles the request body from the current server
	// identity and roster.
	Build()
	// Beat POSTs the built request, retrying on non-200 responses.
	Beat(ctx context.Context) error
	// Delete removes the server registration.
	Delete(ctx context.Context) error
	// SetPlayerCount updates the connected-player count.
	SetPlayerCount(n int)
	// SetPlayerNames updates the connected-player names, where the
	// service supports them.
	SetPlayerNames(names []string)
}

const (
	// Interval between unconditional beats.
	Interval = 40 * time.Second

	// Retries after a failed beat attempt.
	beatRetries = 5
)

// beatInterval is the pause between retries. Variable for tests.
var beatInterval = 2 * time.Second

// sendWithRetry performs req up to 1+beatRetries times, treating any
// non-200 status as a failure. The response body of the final success
// is returned.
func sendWithRetry(ctx context.Context, httpc *http.Client, build func() (*http.Request, error)) ([]byte, error) {
	var body []byte

	op := func() error {
		req, err := build()
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := httpc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("directory answered %s", resp.Status)
		}
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(beatInterval), beatRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return body, nil
}

// Runner drives the beat cadence: every Interval, or as soon as the Hub
// marks the roster dirty.
type Runner struct {
	log     *slog.Logger
	clients []Client
	dirty   atomic.Bool
}

// NewRunner builds a Runner over the active clients.
func NewRunner(log *slog.Logger, clients ...Client) *Runner {
	return &Runner{log: log, clients: clients}
}

// UpdateRoster pushes the current roster into every client and requests
// an immediate beat.
func (r *Runner) UpdateRoster(names []string) {
	for _, c := range r.clients {
		c.SetPlayerCount(len(names))
		c.SetPlayerNames(names)
	}
	r.dirty.Store(true)
}

// Run beats until the context is cancelled or a beat stays failing
// through its retries. A dead heartbeat never stops the game server;
// the error only ends this task.
func (r *Runner) Run(ctx context.Context) error {
	if len(r.clients) == 0 {
		return nil
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastBeat time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if !r.dirty.Load() && time.Since(lastBeat) < Interval {
			continue
		}
		r.dirty.Store(false)
		lastBeat = time.Now()

		for _, c := range r.clients {
			c.Build()
			if err := c.Beat(ctx); err != nil {
				return fmt.Errorf("heartbeat: %w", err)
			}
		}
		r.log.Debug("heartbeat sent", "services", len(r.clients))
	}
}
