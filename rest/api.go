// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/z5labs/restkit"
	"github.com/z5labs/restkit/health"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/openapi-go/openapi3"
)

// ApiOptions holds configuration values used when constructing an [Api].
type ApiOptions struct {
	mux          *chi.Mux
	def          *openapi3.Spec
	panicHandler PanicHandler
}

// ApiOption configures an [Api].
type ApiOption interface {
	ApplyApiOption(*ApiOptions)
}

type apiOptionFunc func(*ApiOptions)

func (f apiOptionFunc) ApplyApiOption(ao *ApiOptions) {
	f(ao)
}

// OnPanic replaces the [DefaultPanicHandler].
func OnPanic(ph PanicHandler) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.panicHandler = ph
	})
}

// Readiness serves GET /health/readiness from the given [health.Monitor].
func Readiness(m health.Monitor) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.mux.Method(http.MethodGet, "/health/readiness", health.Handler(m))
	})
}

// Liveness serves GET /health/liveness from the given [health.Monitor].
func Liveness(m health.Monitor) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.mux.Method(http.MethodGet, "/health/liveness", health.Handler(m))
	})
}

// NotFound overrides the handler used when no route matches.
func NotFound(h http.Handler) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.mux.NotFound(h.ServeHTTP)
	})
}

// Api is an [http.Handler] serving registered operations along with their
// OpenAPI document at GET /openapi.json.
type Api struct {
	handler http.Handler
}

// NewApi creates a new [Api] with the specified title and version.
func NewApi(title, version string, opts ...ApiOption) *Api {
	log := restkit.Logger("github.com/z5labs/restkit/rest")

	ao := &ApiOptions{
		mux: chi.NewMux(),
		def: &openapi3.Spec{
			Openapi: "3.0.3",
			Info: openapi3.Info{
				Title:   title,
				Version: version,
			},
		},
		panicHandler: DefaultPanicHandler{},
	}
	for _, opt := range opts {
		opt.ApplyApiOption(ao)
	}

	ao.mux.Get("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		enc := json.NewEncoder(w)
		err := enc.Encode(ao.def)
		if err == nil {
			return
		}
		log.ErrorContext(
			r.Context(),
			"failed to encode openapi schema to json",
			slog.Any("error", err),
		)
	})

	return &Api{
		handler: CatchPanic(ao.panicHandler)(ao.mux),
	}
}

// ServeHTTP implements the [http.Handler] interface.
func (api *Api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	api.handler.ServeHTTP(w, r)
}
