// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	"github.com/z5labs/restkit/openapi"

	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/ptr"
	"github.com/z5labs/sdk-go/try"
)

// InvalidContentTypeError is the cause of the [BadRequestError] returned for
// bodies sent with an unexpected Content-Type.
type InvalidContentTypeError struct {
	ContentType string
}

// Error implements the [error] interface.
func (e InvalidContentTypeError) Error() string {
	return fmt.Sprintf("invalid content type for request: %s", e.ContentType)
}

// JsonRequest reads a JSON request body into T.
type JsonRequest[T any] struct {
	inner T
}

// Spec implements the [TypedRequest] interface.
func (*JsonRequest[T]) Spec() (openapi3.RequestBodyOrRef, error) {
	var t T
	schema, err := openapi.Reflect(t)
	if err != nil {
		return openapi3.RequestBodyOrRef{}, err
	}

	spec := &openapi3.RequestBody{
		Required: ptr.Ref(true),
		Content: map[string]openapi3.MediaType{
			"application/json": {
				Schema: &schema,
			},
		},
	}

	return openapi3.RequestBodyOrRef{
		RequestBody: spec,
	}, nil
}

// ReadRequest implements the [RequestReader] interface. Both an unexpected
// content type and an undecodable body result in a [BadRequestError].
func (jr *JsonRequest[T]) ReadRequest(ctx context.Context, r *http.Request) (err error) {
	defer try.Close(&err, r.Body)

	contentType := r.Header.Get("Content-Type")
	mediaType, _, perr := mime.ParseMediaType(contentType)
	if perr != nil || mediaType != "application/json" {
		return BadRequestError{
			Cause: InvalidContentTypeError{
				ContentType: contentType,
			},
		}
	}

	dec := json.NewDecoder(r.Body)
	err = dec.Decode(&jr.inner)
	if err != nil {
		return BadRequestError{Cause: err}
	}
	return nil
}

// JsonResponse writes T as a 200 JSON response.
type JsonResponse[T any] struct {
	inner *T
}

// Spec implements the [TypedResponse] interface.
func (*JsonResponse[T]) Spec() ([]openapi.Response, error) {
	var t T
	schema, err := openapi.Reflect(t)
	if err != nil {
		return nil, err
	}

	return []openapi.Response{
		openapi.JSON(http.StatusOK, http.StatusText(http.StatusOK), schema),
	}, nil
}

// WriteResponse implements the [ResponseWriter] interface.
func (jr *JsonResponse[T]) WriteResponse(ctx context.Context, w http.ResponseWriter) error {
	return writeJson(w, http.StatusOK, jr.inner)
}

// ReturnJsonHandler adapts a [Handler] to respond with JSON.
type ReturnJsonHandler[Req, Resp any] struct {
	inner Handler[Req, Resp]
}

// ReturnJson initializes a [ReturnJsonHandler].
func ReturnJson[Req, Resp any](h Handler[Req, Resp]) *ReturnJsonHandler[Req, Resp] {
	return &ReturnJsonHandler[Req, Resp]{
		inner: h,
	}
}

// Handle implements the [Handler] interface.
func (h *ReturnJsonHandler[Req, Resp]) Handle(ctx context.Context, req *Req) (*JsonResponse[Resp], error) {
	resp, err := h.inner.Handle(ctx, req)
	if err != nil {
		return nil, err
	}
	return &JsonResponse[Resp]{
		inner: resp,
	}, nil
}

// ConsumeJsonHandler adapts a [Handler] to read its request from JSON.
type ConsumeJsonHandler[Req, Resp any] struct {
	inner Handler[Req, Resp]
}

// ConsumeJson initializes a [ConsumeJsonHandler].
func ConsumeJson[Req, Resp any](h Handler[Req, Resp]) *ConsumeJsonHandler[Req, Resp] {
	return &ConsumeJsonHandler[Req, Resp]{
		inner: h,
	}
}

// Handle implements the [Handler] interface.
func (h *ConsumeJsonHandler[Req, Resp]) Handle(ctx context.Context, req *JsonRequest[Req]) (*Resp, error) {
	return h.inner.Handle(ctx, &req.inner)
}

// HandleJson creates a handler that both consumes and produces JSON.
func HandleJson[Req, Resp any](h Handler[Req, Resp]) *ConsumeJsonHandler[Req, JsonResponse[Resp]] {
	return ConsumeJson(ReturnJson(h))
}

// ProduceJson creates a handler that returns JSON without reading a request body.
func ProduceJson[T any](p Producer[T]) *ReturnJsonHandler[EmptyRequest, T] {
	return ReturnJson[EmptyRequest, T](ConsumeNothing(p))
}

// ConsumeOnlyJson creates a handler that reads a JSON body and responds with {}.
func ConsumeOnlyJson[T any](c Consumer[T]) *ConsumeJsonHandler[T, EmptyResponse] {
	return ConsumeJson[T, EmptyResponse](ProduceNothing(c))
}
