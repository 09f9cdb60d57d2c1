// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package health reports whether a service and the resources it depends on
// can serve traffic.
package health

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// Monitor reports the health of some resource.
type Monitor interface {
	Healthy(context.Context) (bool, error)
}

// MonitorFunc is a function adapter that implements [Monitor].
type MonitorFunc func(context.Context) (bool, error)

// Healthy implements [Monitor].
func (f MonitorFunc) Healthy(ctx context.Context) (bool, error) {
	return f(ctx)
}

// Binary is a [Monitor] toggled by hand. The zero value is unhealthy.
type Binary struct {
	healthy atomic.Bool
}

// MarkUnhealthy makes subsequent calls to Healthy report false.
func (b *Binary) MarkUnhealthy() {
	b.healthy.Store(false)
}

// MarkHealthy makes subsequent calls to Healthy report true.
func (b *Binary) MarkHealthy() {
	b.healthy.Store(true)
}

// Healthy implements [Monitor].
func (b *Binary) Healthy(ctx context.Context) (bool, error) {
	return b.healthy.Load(), nil
}

// All is healthy only if every monitor is. The monitors are checked
// concurrently.
func All(ms ...Monitor) Monitor {
	return MonitorFunc(func(ctx context.Context) (bool, error) {
		results := make([]bool, len(ms))

		p := pool.New().WithContext(ctx)
		for i, m := range ms {
			p.Go(func(ctx context.Context) error {
				healthy, err := m.Healthy(ctx)
				results[i] = healthy
				return err
			})
		}

		err := p.Wait()
		if err != nil {
			return false, err
		}
		return !slices.Contains(results, false), nil
	})
}

// Any is healthy as soon as one of the monitors is. Errors are only
// reported when no monitor is healthy.
func Any(ms ...Monitor) Monitor {
	return MonitorFunc(func(ctx context.Context) (bool, error) {
		errs := make([]error, 0, len(ms))
		for _, m := range ms {
			healthy, err := m.Healthy(ctx)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if healthy {
				return true, nil
			}
		}
		return false, errors.Join(errs...)
	})
}

// Pinger is implemented by [*sql.DB] and most driver pools.
type Pinger interface {
	PingContext(context.Context) error
}

// PingerFunc adapts a ping function like pgxpool.Pool.Ping into a [Pinger].
type PingerFunc func(context.Context) error

// PingContext implements [Pinger].
func (f PingerFunc) PingContext(ctx context.Context) error {
	return f(ctx)
}

// Ping reports healthy while p answers within timeout.
func Ping(p Pinger, timeout time.Duration) Monitor {
	return MonitorFunc(func(ctx context.Context) (bool, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		err := p.PingContext(ctx)
		if err != nil {
			return false, err
		}
		return true, nil
	})
}

// Handler responds 200 while m is healthy and 503 otherwise.
func Handler(m Monitor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		healthy, err := m.Healthy(r.Context())
		if err != nil || !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}
