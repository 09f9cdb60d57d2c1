// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"net/http"
)

// Shield runs next with a request context which is never cancelled, so the
// handler completes even if the client goes away.
func Shield(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(context.WithoutCancel(r.Context())))
	})
}

// ShieldInterceptor is the [ServerInterceptor] form of [Shield].
//
// Register it before interceptors, e.g. a transaction, which must not be
// interrupted by a disconnecting client.
var ShieldInterceptor = ServerInterceptorFunc(func(next func(http.ResponseWriter, *http.Request) error) func(http.ResponseWriter, *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		return next(w, r.WithContext(context.WithoutCancel(r.Context())))
	}
})
