// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/ptr"
)

// Bearer is a token sent with the "Bearer" authorization scheme.
type Bearer struct {
	Token string
}

// BearerFromRequest returns the bearer token of the Authorization header.
// It returns nil if the header is absent, uses another scheme or carries an
// empty token. The scheme is matched case-insensitively.
func BearerFromRequest(r *http.Request) *Bearer {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return nil
	}

	token = strings.TrimSpace(token)
	if len(token) == 0 {
		return nil
	}
	return &Bearer{Token: token}
}

// AuthFunc decides whether a request is authorized. bearer is nil when the
// request carries no bearer token so checkers may allow anonymous access.
//
// A returned error is rendered unchanged, so checkers usually return
// [Unauthorized] or another declared variant.
type AuthFunc[T any] func(r *http.Request, bearer *Bearer) (T, error)

type authCtxKey[T any] struct{}

// BearerAuth runs check before the request is read and makes its result
// available through [Authorized].
//
// The operation is documented with an http bearer security scheme named after T
// together with the responses described by docs, [Unauthorized] when none are given.
//
// check runs before the operation's interceptors. A checker which needs the
// request transaction of a db.Middleware must be served by that middleware's
// Handler installed around the [Api], not by its interceptor.
func BearerAuth[T any](check AuthFunc[T], docs ...Documenter) OperationOption {
	if len(docs) == 0 {
		docs = []Documenter{Unauthorized}
	}

	return func(oo *OperationOptions) {
		oo.securityScheme = &securityScheme{
			name: SecuritySchemeName[T](),
			scheme: openapi3.SecurityScheme{
				HTTPSecurityScheme: &openapi3.HTTPSecurityScheme{
					Scheme: "bearer",
				},
			},
		}
		oo.docs = append(oo.docs, docs...)

		oo.transforms = append(oo.transforms, func(r *http.Request) (*http.Request, error) {
			v, err := check(r, BearerFromRequest(r))
			if err != nil {
				return nil, err
			}

			ctx := context.WithValue(r.Context(), authCtxKey[T]{}, v)
			return r.WithContext(ctx), nil
		})
	}
}

// Authorized returns the value produced by the [BearerAuth] checker for T.
func Authorized[T any](ctx context.Context) (T, bool) {
	v, ok := ctx.Value(authCtxKey[T]{}).(T)
	return v, ok
}

// SecuritySchemeName is the name T's security scheme is registered under.
func SecuritySchemeName[T any]() string {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	name := t.Name()
	if len(name) == 0 {
		return "bearer"
	}
	if i := strings.IndexByte(name, '['); i > 0 {
		name = name[:i]
	}
	return name
}

// BearerFormat documents the format of the bearer token, e.g. "JWT". It must
// follow the [BearerAuth] option it applies to.
func BearerFormat(format string) OperationOption {
	return func(oo *OperationOptions) {
		if oo.securityScheme == nil || oo.securityScheme.scheme.HTTPSecurityScheme == nil {
			return
		}
		oo.securityScheme.scheme.HTTPSecurityScheme.BearerFormat = ptr.Ref(format)
	}
}
