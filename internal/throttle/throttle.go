// Package throttle gates rider submissions: at most one accepted attempt
// per (client, vehicle) key per window.
//
// Two backends are provided:
//   - Memory: a per-key golang.org/x/time/rate limiter (burst 1, one token
//     per window) in a mutex-guarded map with opportunistic eviction.
//     Process-local.
//   - Redis: an atomic INCR + PEXPIRE script, shared by every replica.
//
// Both are true gates: concurrent attempts on the same key never both pass.
// Callers consult the gate only after the submission passed validation, so
// rejected input never consumes the quota.
package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/tbourn/rider-feedback/internal/config"
)

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration // remaining cooldown when not allowed
}

// Throttle consumes one attempt for key.
type Throttle interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Key builds the composite gate key of a client and a vehicle.
func Key(client, vehicleID string) string {
	return client + "|" + vehicleID
}

// New builds the backend selected by cfg. The returned close function
// releases backend resources and is never nil.
func New(ctx context.Context, cfg config.ThrottleConfig) (Throttle, func() error, error) {
	switch cfg.Backend {
	case "redis":
		r, err := NewRedisFromURL(ctx, cfg.RedisURL, cfg.Window)
		if err != nil {
			return nil, func() error { return nil }, err
		}
		return r, r.Close, nil
	case "memory", "":
		return NewMemory(cfg.Window), func() error { return nil }, nil
	default:
		return nil, func() error { return nil }, fmt.Errorf("unknown throttle backend %q", cfg.Backend)
	}
}
