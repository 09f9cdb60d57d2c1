// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"net/http"

	"github.com/z5labs/restkit"
	"github.com/z5labs/restkit/openapi"

	"github.com/swaggest/openapi-go/openapi3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type securityScheme struct {
	name   string
	scheme openapi3.SecurityScheme
}

// OperationOptions holds the configuration of an operation registered with [Operation].
type OperationOptions struct {
	id             string
	summary        string
	tags           []string
	securityScheme *securityScheme
	parameters     []openapi3.ParameterOrRef
	transforms     []func(*http.Request) (*http.Request, error)
	interceptors   []ServerInterceptor
	docs           []Documenter
	errHandler     ErrorHandler
}

// OperationOption configures an operation created by [Operation].
type OperationOption func(*OperationOptions)

// OnError replaces the default [ErrorHandler] of an operation.
func OnError(eh ErrorHandler) OperationOption {
	return func(oo *OperationOptions) {
		oo.errHandler = eh
	}
}

// Returns documents additional responses the operation may produce, e.g.
// the variants of a [Set] returned through [*Reply] and [*Error].
func Returns(docs ...Documenter) OperationOption {
	return func(oo *OperationOptions) {
		oo.docs = append(oo.docs, docs...)
	}
}

// OperationID sets the operationId of the operation.
func OperationID(id string) OperationOption {
	return func(oo *OperationOptions) {
		oo.id = id
	}
}

// Summary sets the summary of the operation.
func Summary(s string) OperationOption {
	return func(oo *OperationOptions) {
		oo.summary = s
	}
}

// Tags groups the operation in the rendered documentation.
func Tags(tags ...string) OperationOption {
	return func(oo *OperationOptions) {
		oo.tags = append(oo.tags, tags...)
	}
}

// Handler represents a RPC style implementation of the core
// logic for your [http.Handler].
type Handler[Req, Resp any] interface {
	Handle(context.Context, *Req) (*Resp, error)
}

// HandlerFunc is an adapter to allow the use of ordinary functions
// as [Handler]s.
type HandlerFunc[Req, Resp any] func(context.Context, *Req) (*Resp, error)

// Handle implements the [Handler] interface.
func (f HandlerFunc[Req, Resp]) Handle(ctx context.Context, req *Req) (*Resp, error) {
	return f(ctx, req)
}

// RequestReader is meant to be implemented by any type which knows how
// unmarshal itself from a [http.Request].
type RequestReader[T any] interface {
	*T

	ReadRequest(context.Context, *http.Request) error
}

// TypedRequest is a [RequestReader] which also provides a OpenAPI 3.0
// spec for itself.
type TypedRequest[T any] interface {
	RequestReader[T]

	Spec() (openapi3.RequestBodyOrRef, error)
}

// ResponseWriter is meant to be implemented by any type which knows how
// to marshal itself into a HTTP response.
type ResponseWriter[T any] interface {
	*T

	WriteResponse(context.Context, http.ResponseWriter) error
}

// TypedResponse is a [ResponseWriter] which also documents the responses
// it can produce.
type TypedResponse[T any] interface {
	ResponseWriter[T]

	Spec() ([]openapi.Response, error)
}

type operation[I, O any, Req TypedRequest[I], Resp TypedResponse[O]] struct {
	tracer     trace.Tracer
	errHandler ErrorHandler
	transforms []func(*http.Request) (*http.Request, error)
	serve      func(http.ResponseWriter, *http.Request) error
	handler    Handler[I, O]
}

// Operation registers a typed handler under method and path.
//
// The request is read through Req, handed to h and the result written
// through Resp. Transforms registered by options (parameters, [BearerAuth])
// run first, followed by the interceptors in the order they were given.
// Any error is passed to the operation's [ErrorHandler].
func Operation[I, O any, Req TypedRequest[I], Resp TypedResponse[O]](method string, path Path, h Handler[I, O], opts ...OperationOption) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		for _, el := range path {
			v, ok := el.(pathParam)
			if !ok {
				continue
			}

			opts = append([]OperationOption{param(v.name, openapi3.ParameterInPath, v.opts...)}, opts...)
		}

		oo := &OperationOptions{
			errHandler: defaultErrorHandler(restkit.LogHandler("github.com/z5labs/restkit/rest")),
		}
		for _, opt := range opts {
			opt(oo)
		}

		var req Req
		requestBodySpec, err := req.Spec()
		if err != nil {
			panic(err)
		}

		var resp Resp
		responses, err := resp.Spec()
		if err != nil {
			panic(err)
		}

		documented, err := collectResponses(append(oo.docs, defaultErrorResponses)...)
		if err != nil {
			panic(err)
		}
		responses = append(responses, documented...)

		op := openapi3.Operation{
			Responses:  openapi.Responses(responses),
			Parameters: oo.parameters,
			Tags:       oo.tags,
		}
		if requestBodySpec.RequestBody != nil || requestBodySpec.RequestBodyReference != nil {
			op.RequestBody = &requestBodySpec
		}
		if len(oo.id) > 0 {
			op.ID = &oo.id
		}
		if len(oo.summary) > 0 {
			op.Summary = &oo.summary
		}

		if oo.securityScheme != nil {
			ao.def.ComponentsEns().SecuritySchemesEns().WithMapOfSecuritySchemeOrRefValuesItem(
				oo.securityScheme.name,
				openapi3.SecuritySchemeOrRef{
					SecurityScheme: &oo.securityScheme.scheme,
				},
			)

			op.WithSecurity(map[string][]string{
				oo.securityScheme.name: {},
			})
		}

		endpoint := path.String()

		err = ao.def.AddOperation(method, endpoint, op)
		if err != nil {
			panic(err)
		}

		o := &operation[I, O, Req, Resp]{
			tracer:     otel.Tracer("github.com/z5labs/restkit/rest"),
			errHandler: oo.errHandler,
			transforms: oo.transforms,
			handler:    h,
		}
		o.serve = o.handle
		for i := len(oo.interceptors) - 1; i >= 0; i-- {
			o.serve = oo.interceptors[i].Intercept(o.serve)
		}

		ao.mux.Method(method, endpoint, otelhttp.WithRouteTag(endpoint, o))
	})
}

func (o *operation[I, O, Req, Resp]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var err error
	defer func() {
		if err == nil {
			return
		}

		o.errHandler.OnError(r.Context(), w, err)
	}()

	for _, transform := range o.transforms {
		var next *http.Request
		next, err = transform(r)
		if err != nil {
			return
		}
		r = next
	}

	err = o.serve(w, r)
}

func (o *operation[I, O, Req, Resp]) handle(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	req, err := o.readRequest(ctx, r)
	if err != nil {
		return err
	}

	resp, err := o.handler.Handle(ctx, &req)
	if err != nil {
		return err
	}

	return o.writeResponse(ctx, w, resp)
}

func (o *operation[I, O, Req, Resp]) readRequest(ctx context.Context, r *http.Request) (I, error) {
	spanCtx, span := o.tracer.Start(ctx, "operation.readRequest")
	defer span.End()

	var req I
	err := Req(&req).ReadRequest(spanCtx, r)
	if err != nil {
		span.RecordError(err)
		return req, err
	}

	return req, nil
}

func (o *operation[I, O, Req, Resp]) writeResponse(ctx context.Context, w http.ResponseWriter, resp *O) error {
	spanCtx, span := o.tracer.Start(ctx, "operation.writeResponse")
	defer span.End()

	if resp == nil {
		return InternalServerError{Cause: ErrNilResponse}
	}

	err := Resp(resp).WriteResponse(spanCtx, w)
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
