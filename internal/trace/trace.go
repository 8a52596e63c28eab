// Package trace tags each transaction application with an id so the log
// lines of one dispatch can be correlated, and keeps running counters of
// the applications.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

type contextKey string

const idKey contextKey = "trace_id"

// GenerateID creates a unique trace id.
func GenerateID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("tx_%d", time.Now().UnixNano())
	}
	return "tx_" + hex.EncodeToString(b)
}

// WithID returns a context carrying id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey, id)
}

// ID extracts the trace id from ctx, "" when none is set.
func ID(ctx context.Context) string {
	if id, ok := ctx.Value(idKey).(string); ok {
		return id
	}
	return ""
}

// Metrics is a snapshot of the counters.
type Metrics struct {
	Applied int64
	Failed  int64
	// LastDuration is the duration of the most recent application.
	LastDuration time.Duration
}

// Counters tracks applications. The zero value is ready to use.
type Counters struct {
	applied  atomic.Int64
	failed   atomic.Int64
	lastNano atomic.Int64
}

// Observe records one application that took d.
func (c *Counters) Observe(d time.Duration, err error) {
	if err != nil {
		c.failed.Add(1)
	} else {
		c.applied.Add(1)
	}
	c.lastNano.Store(int64(d))
}

func (c *Counters) Snapshot() Metrics {
	return Metrics{
		Applied:      c.applied.Load(),
		Failed:       c.failed.Load(),
		LastDuration: time.Duration(c.lastNano.Load()),
	}
}
