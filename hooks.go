// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package restkit

import (
	"context"
	"errors"
	"sync"
)

// HookFunc releases a resource acquired while building a service.
type HookFunc func(context.Context) error

type hooks struct {
	mu    sync.Mutex
	funcs []HookFunc
}

type hooksCtxKey struct{}

// OnShutdown registers f to run once the service stops. ctx must be the
// context handed to a [BuildFunc], otherwise f is not registered and
// OnShutdown reports false.
//
// Hooks run in reverse registration order and all of them run even if
// some fail.
//
//	sqlDB, err := sql.Open("pgx", cfg.Database.URL)
//	if err != nil {
//	    return nil, err
//	}
//	restkit.OnShutdown(ctx, func(context.Context) error {
//	    return sqlDB.Close()
//	})
func OnShutdown(ctx context.Context, f HookFunc) bool {
	hs, ok := ctx.Value(hooksCtxKey{}).(*hooks)
	if !ok {
		return false
	}

	hs.mu.Lock()
	defer hs.mu.Unlock()

	hs.funcs = append(hs.funcs, f)
	return true
}

func withHooks(ctx context.Context) (context.Context, *hooks) {
	hs := &hooks{}
	return context.WithValue(ctx, hooksCtxKey{}, hs), hs
}

func (hs *hooks) run(ctx context.Context) error {
	hs.mu.Lock()
	funcs := hs.funcs
	hs.funcs = nil
	hs.mu.Unlock()

	var errs []error
	for i := len(funcs) - 1; i >= 0; i-- {
		errs = append(errs, funcs[i](ctx))
	}
	return errors.Join(errs...)
}
