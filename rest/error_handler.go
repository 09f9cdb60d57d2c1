// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/z5labs/restkit"
	"github.com/z5labs/restkit/openapi"

	"github.com/swaggest/openapi-go/openapi3"
)

// HttpResponseWriter is implemented by errors which know how to render
// themselves as an HTTP response.
type HttpResponseWriter interface {
	WriteHttpResponse(context.Context, http.ResponseWriter)
}

// ErrorHandler handles errors that occur during request processing.
type ErrorHandler interface {
	OnError(context.Context, http.ResponseWriter, error)
}

// ErrorHandlerFunc is a function adapter that implements [ErrorHandler].
type ErrorHandlerFunc func(context.Context, http.ResponseWriter, error)

// OnError implements the [ErrorHandler] interface.
func (f ErrorHandlerFunc) OnError(ctx context.Context, w http.ResponseWriter, err error) {
	f(ctx, w, err)
}

// ErrNilResponse is the cause of the internal error reported when a handler
// returns neither a response nor an error.
var ErrNilResponse = errors.New("rest: handler returned a nil response")

func defaultErrorHandler(h slog.Handler) ErrorHandlerFunc {
	log := slog.New(h)

	return func(ctx context.Context, w http.ResponseWriter, err error) {
		log.ErrorContext(ctx, "sending error response", slog.Any("error", err))

		var hrw HttpResponseWriter
		if errors.As(err, &hrw) {
			hrw.WriteHttpResponse(ctx, w)
			return
		}

		InternalServerError{Cause: err}.WriteHttpResponse(ctx, w)
	}
}

func writeJson(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	return enc.Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Details any    `json:"details,omitempty"`
}

// BadRequestError is returned when the request could not be read, either
// because a parameter failed validation or because the body did not decode.
// It is rendered as a 422 with the cause as the reason:
//
//	{"error": "unprocessable_content", "reason": "..."}
type BadRequestError struct {
	Cause error
}

// Error implements the [error] interface.
func (e BadRequestError) Error() string {
	return fmt.Sprintf("bad request error: %v", e.Cause)
}

// Unwrap returns the underlying cause of the bad request.
func (e BadRequestError) Unwrap() error {
	return e.Cause
}

// WriteHttpResponse implements [HttpResponseWriter].
func (e BadRequestError) WriteHttpResponse(ctx context.Context, w http.ResponseWriter) {
	body := errorBody{Error: "unprocessable_content"}
	if e.Cause != nil {
		body.Reason = e.Cause.Error()
	}
	_ = writeJson(w, http.StatusUnprocessableEntity, body)
}

// InternalServerError is rendered as a 500 which never exposes its cause.
type InternalServerError struct {
	Cause error
}

// Error implements the [error] interface.
func (e InternalServerError) Error() string {
	return fmt.Sprintf("internal server error: %v", e.Cause)
}

// Unwrap returns the cause of the failure.
func (e InternalServerError) Unwrap() error {
	return e.Cause
}

// WriteHttpResponse implements [HttpResponseWriter].
func (InternalServerError) WriteHttpResponse(ctx context.Context, w http.ResponseWriter) {
	_ = writeJson(w, http.StatusInternalServerError, errorBody{Error: "internal_server_error"})
}

// InternalError logs err and returns the error which renders as a 500.
func InternalError(ctx context.Context, err error) error {
	log := restkit.Logger("github.com/z5labs/restkit/rest")
	log.ErrorContext(ctx, "internal server error", slog.Any("error", err))

	return InternalServerError{Cause: err}
}

var defaultErrorResponses = DocumenterFunc(func() ([]openapi.Response, error) {
	unprocessable := openapi.JSON(
		http.StatusUnprocessableEntity,
		"The request could not be read.",
		openapi.Object(
			map[string]openapi3.SchemaOrRef{
				"error":  openapi.ConstString("unprocessable_content"),
				"reason": stringSchema(),
			},
			"error", "reason",
		),
	)

	internal := openapi.JSON(
		http.StatusInternalServerError,
		"The request could not be processed.",
		openapi.Object(
			map[string]openapi3.SchemaOrRef{
				"error": openapi.ConstString("internal_server_error"),
			},
			"error",
		),
	)

	return []openapi.Response{unprocessable, internal}, nil
})
