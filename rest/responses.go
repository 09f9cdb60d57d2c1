// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/z5labs/restkit/openapi"

	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/ptr"
)

// Documenter describes responses an operation may produce.
type Documenter interface {
	Responses() ([]openapi.Response, error)
}

// DocumenterFunc is a function adapter that implements [Documenter].
type DocumenterFunc func() ([]openapi.Response, error)

// Responses implements [Documenter].
func (f DocumenterFunc) Responses() ([]openapi.Response, error) {
	return f()
}

func collectResponses(docs ...Documenter) ([]openapi.Response, error) {
	var rs []openapi.Response
	for _, d := range docs {
		drs, err := d.Responses()
		if err != nil {
			return nil, err
		}
		rs = append(rs, drs...)
	}
	return rs, nil
}

// Set groups the variants an operation can respond with. A Set is itself a
// [Documenter] so sets can include other sets.
//
//	var getNoteResponses = rest.Set{noteFound, noteNotFound, rest.Unauthorized}
type Set []Documenter

// Responses implements [Documenter].
func (s Set) Responses() ([]openapi.Response, error) {
	return collectResponses(s...)
}

// Unauthorized is the variant returned by auth checkers rejecting a request.
var Unauthorized = Fail(http.StatusUnauthorized, "unauthorized").Describe("The request is not authorized.")

// Forbidden is the variant returned when the caller may not perform the operation.
var Forbidden = Fail(http.StatusForbidden, "forbidden").Describe("The caller may not perform this operation.")

// Reply is a success response produced by [DataVariant.Reply] or [EmptyVariant.Reply].
type Reply struct {
	status int
	header http.Header
	body   any
}

// Status returns the status code the reply is written with.
func (r *Reply) Status() int {
	return r.status
}

// Header returns the headers set on the reply. They are written before the body.
func (r *Reply) Header() http.Header {
	if r.header == nil {
		r.header = make(http.Header)
	}
	return r.header
}

// WriteResponse implements the [ResponseWriter] interface.
func (r *Reply) WriteResponse(ctx context.Context, w http.ResponseWriter) error {
	for k, vs := range r.header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	return writeJson(w, r.status, r.body)
}

// Spec implements the [TypedResponse] interface. A Reply documents nothing
// on its own, use [Returns] with the variants producing it.
func (*Reply) Spec() ([]openapi.Response, error) {
	return nil, nil
}

// DataVariant is a success response carrying a JSON body of type T.
type DataVariant[T any] struct {
	status      int
	description string
}

// Data declares a success response carrying a JSON body of type T.
func Data[T any](status int) DataVariant[T] {
	return DataVariant[T]{status: status, description: http.StatusText(status)}
}

// Describe returns a copy of the variant with the given description.
func (v DataVariant[T]) Describe(desc string) DataVariant[T] {
	v.description = desc
	return v
}

// Reply builds the response for data.
func (v DataVariant[T]) Reply(data T) *Reply {
	return &Reply{status: v.status, body: data}
}

// Responses implements [Documenter].
func (v DataVariant[T]) Responses() ([]openapi.Response, error) {
	var t T
	schema, err := openapi.Reflect(t)
	if err != nil {
		return nil, err
	}
	return []openapi.Response{openapi.JSON(v.status, v.description, schema)}, nil
}

// EmptyVariant is a success response with the body {}.
type EmptyVariant struct {
	status      int
	description string
}

// Empty declares a success response with the body {}.
func Empty(status int) EmptyVariant {
	return EmptyVariant{status: status, description: http.StatusText(status)}
}

// Describe returns a copy of the variant with the given description.
func (v EmptyVariant) Describe(desc string) EmptyVariant {
	v.description = desc
	return v
}

// Reply builds the response.
func (v EmptyVariant) Reply() *Reply {
	return &Reply{status: v.status, body: struct{}{}}
}

// Responses implements [Documenter].
func (v EmptyVariant) Responses() ([]openapi.Response, error) {
	schema := openapi.Object(map[string]openapi3.SchemaOrRef{})
	return []openapi.Response{openapi.JSON(v.status, v.description, schema)}, nil
}

// Error is an error response declared with [Fail] or [FailWith]. It renders
// as {"error": code} with the details, when present, under "details".
type Error struct {
	Status  int
	Code    string
	Details any
	Cause   error
}

// Error implements the [error] interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Cause)
	}
	return e.Code
}

// Unwrap returns the error wrapped by [FailVariant.Wrap], if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WriteHttpResponse implements [HttpResponseWriter].
func (e *Error) WriteHttpResponse(ctx context.Context, w http.ResponseWriter) {
	_ = writeJson(w, e.Status, errorBody{Error: e.Code, Details: e.Details})
}

// FailVariant is an error response without details.
type FailVariant struct {
	status      int
	code        string
	description string
}

// Fail declares an error response. name is converted to snake case for the
// error code, so "NotFound" renders as {"error":"not_found"}.
func Fail(status int, name string) FailVariant {
	return FailVariant{status: status, code: snakeCase(name), description: http.StatusText(status)}
}

// Describe returns a copy of the variant with the given description.
func (v FailVariant) Describe(desc string) FailVariant {
	v.description = desc
	return v
}

// Err builds the error.
func (v FailVariant) Err() *Error {
	return &Error{Status: v.status, Code: v.code}
}

// Wrap builds the error, recording cause for logs. The cause is never rendered.
func (v FailVariant) Wrap(cause error) *Error {
	return &Error{Status: v.status, Code: v.code, Cause: cause}
}

// Responses implements [Documenter].
func (v FailVariant) Responses() ([]openapi.Response, error) {
	schema := openapi.Object(
		map[string]openapi3.SchemaOrRef{
			"error": openapi.ConstString(v.code),
		},
		"error",
	)
	return []openapi.Response{openapi.JSON(v.status, v.description, schema)}, nil
}

// FailWithVariant is an error response carrying details of type D.
type FailWithVariant[D any] struct {
	status      int
	code        string
	description string
}

// FailWith declares an error response with details of type D.
func FailWith[D any](status int, name string) FailWithVariant[D] {
	return FailWithVariant[D]{status: status, code: snakeCase(name), description: http.StatusText(status)}
}

// Describe returns a copy of the variant with the given description.
func (v FailWithVariant[D]) Describe(desc string) FailWithVariant[D] {
	v.description = desc
	return v
}

// Err builds the error.
func (v FailWithVariant[D]) Err(details D) *Error {
	return &Error{Status: v.status, Code: v.code, Details: details}
}

// Responses implements [Documenter].
func (v FailWithVariant[D]) Responses() ([]openapi.Response, error) {
	var d D
	details, err := openapi.Reflect(d)
	if err != nil {
		return nil, err
	}

	schema := openapi.Object(
		map[string]openapi3.SchemaOrRef{
			"error":   openapi.ConstString(v.code),
			"details": details,
		},
		"error", "details",
	)
	return []openapi.Response{openapi.JSON(v.status, v.description, schema)}, nil
}

func stringSchema() openapi3.SchemaOrRef {
	return openapi3.SchemaOrRef{
		Schema: &openapi3.Schema{
			Type: ptr.Ref(openapi3.SchemaTypeString),
		},
	}
}

// snakeCase converts identifiers like "NotFound" or "HTTPError" into
// "not_found" and "http_error". Already snake cased input is kept.
func snakeCase(s string) string {
	rs := []rune(s)

	var b strings.Builder
	for i, r := range rs {
		switch {
		case r == '-' || r == ' ' || r == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
			continue
		case unicode.IsUpper(r):
			if i > 0 && b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				prev := rs[i-1]
				nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
