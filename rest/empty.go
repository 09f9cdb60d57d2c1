// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"net/http"

	"github.com/z5labs/restkit/openapi"

	"github.com/swaggest/openapi-go/openapi3"
)

// EmptyRequest is used by operations which do not read a request body.
type EmptyRequest struct{}

// ReadRequest implements the [RequestReader] interface.
func (*EmptyRequest) ReadRequest(ctx context.Context, r *http.Request) error {
	return nil
}

// Spec implements the [TypedRequest] interface.
func (*EmptyRequest) Spec() (openapi3.RequestBodyOrRef, error) {
	return openapi3.RequestBodyOrRef{}, nil
}

// EmptyResponse responds with a 200 and the body {}.
type EmptyResponse struct{}

// WriteResponse implements the [ResponseWriter] interface.
func (*EmptyResponse) WriteResponse(ctx context.Context, w http.ResponseWriter) error {
	return writeJson(w, http.StatusOK, struct{}{})
}

// Spec implements the [TypedResponse] interface.
func (*EmptyResponse) Spec() ([]openapi.Response, error) {
	return Empty(http.StatusOK).Responses()
}

// Consumer processes a request without producing a response body.
type Consumer[T any] interface {
	Consume(context.Context, *T) error
}

// ConsumerFunc is a function adapter that implements [Consumer].
type ConsumerFunc[T any] func(context.Context, *T) error

// Consume implements the [Consumer] interface.
func (f ConsumerFunc[T]) Consume(ctx context.Context, req *T) error {
	return f(ctx, req)
}

// ConsumerHandler adapts a [Consumer] into a [Handler].
type ConsumerHandler[T any] struct {
	c Consumer[T]
}

// ProduceNothing initializes a [ConsumerHandler].
func ProduceNothing[T any](c Consumer[T]) *ConsumerHandler[T] {
	return &ConsumerHandler[T]{
		c: c,
	}
}

// Handle implements the [Handler] interface.
func (h *ConsumerHandler[T]) Handle(ctx context.Context, req *T) (*EmptyResponse, error) {
	err := h.c.Consume(ctx, req)
	if err != nil {
		return nil, err
	}
	return &EmptyResponse{}, nil
}

// Producer returns a response without reading a request body.
type Producer[T any] interface {
	Produce(context.Context) (*T, error)
}

// ProducerFunc is a function adapter that implements [Producer].
type ProducerFunc[T any] func(context.Context) (*T, error)

// Produce implements the [Producer] interface.
func (f ProducerFunc[T]) Produce(ctx context.Context) (*T, error) {
	return f(ctx)
}

// ProducerHandler adapts a [Producer] into a [Handler].
type ProducerHandler[T any] struct {
	p Producer[T]
}

// ConsumeNothing initializes a [ProducerHandler].
func ConsumeNothing[T any](p Producer[T]) *ProducerHandler[T] {
	return &ProducerHandler[T]{
		p: p,
	}
}

// Handle implements the [Handler] interface.
func (h *ProducerHandler[T]) Handle(ctx context.Context, _ *EmptyRequest) (*T, error) {
	return h.p.Produce(ctx)
}
