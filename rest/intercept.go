// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"net/http"
)

// ServerInterceptor wraps the part of an operation which reads the request,
// calls the handler and writes the response.
type ServerInterceptor interface {
	Intercept(next func(http.ResponseWriter, *http.Request) error) func(http.ResponseWriter, *http.Request) error
}

// ServerInterceptorFunc is a function type that implements the ServerInterceptor interface.
type ServerInterceptorFunc func(next func(http.ResponseWriter, *http.Request) error) func(http.ResponseWriter, *http.Request) error

// Intercept calls the ServerInterceptorFunc with the next handler.
func (f ServerInterceptorFunc) Intercept(next func(http.ResponseWriter, *http.Request) error) func(http.ResponseWriter, *http.Request) error {
	return f(next)
}

// Intercept registers the given ServerInterceptor for the operation.
// The first registered interceptor is the outermost one.
func Intercept(interceptor ServerInterceptor) OperationOption {
	return func(oo *OperationOptions) {
		oo.interceptors = append(oo.interceptors, interceptor)
	}
}
