// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/ptr"
)

// ParameterOptions holds the definition of a parameter being added to an
// operation together with the operation it belongs to.
type ParameterOptions struct {
	operationOptions *OperationOptions
	def              *openapi3.Parameter
}

// ParameterOption configures a parameter created by [Header], [QueryParam] or [PathParam].
type ParameterOption func(*ParameterOptions)

// Header declares a request header.
func Header(name string, opts ...ParameterOption) OperationOption {
	return param(name, openapi3.ParameterInHeader, opts...)
}

// QueryParam declares a URL query parameter.
func QueryParam(name string, opts ...ParameterOption) OperationOption {
	return param(name, openapi3.ParameterInQuery, opts...)
}

// HeaderValue returns the values of a header declared with [Header].
func HeaderValue(ctx context.Context, name string) []string {
	vs, _ := ctx.Value(paramCtxKey{in: openapi3.ParameterInHeader, name: name}).([]string)
	return vs
}

// QueryParamValue returns the values of a query parameter declared with [QueryParam].
func QueryParamValue(ctx context.Context, name string) []string {
	vs, _ := ctx.Value(paramCtxKey{in: openapi3.ParameterInQuery, name: name}).([]string)
	return vs
}

// PathParamValue returns the value of a path parameter declared with [PathParam] or [Path.Param].
func PathParamValue(ctx context.Context, name string) string {
	vs, _ := ctx.Value(paramCtxKey{in: openapi3.ParameterInPath, name: name}).([]string)
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

type paramCtxKey struct {
	in   openapi3.ParameterIn
	name string
}

func extractParam(r *http.Request, in openapi3.ParameterIn, name string) []string {
	switch in {
	case openapi3.ParameterInHeader:
		return r.Header.Values(name)
	case openapi3.ParameterInQuery:
		return r.URL.Query()[name]
	case openapi3.ParameterInPath:
		v := chi.URLParam(r, name)
		if len(v) == 0 {
			return nil
		}
		return []string{v}
	default:
		panic("unsupported parameter location: " + in)
	}
}

func param(name string, in openapi3.ParameterIn, opts ...ParameterOption) OperationOption {
	return func(oo *OperationOptions) {
		oo.transforms = append(oo.transforms, func(r *http.Request) (*http.Request, error) {
			ctx := context.WithValue(r.Context(), paramCtxKey{in: in, name: name}, extractParam(r, in, name))
			return r.WithContext(ctx), nil
		})

		po := &ParameterOptions{
			operationOptions: oo,
			def: &openapi3.Parameter{
				Name: name,
				In:   in,
				Schema: &openapi3.SchemaOrRef{
					Schema: &openapi3.Schema{
						Type: ptr.Ref(openapi3.SchemaTypeString),
					},
				},
			},
		}
		for _, opt := range opts {
			opt(po)
		}

		oo.parameters = append(oo.parameters, openapi3.ParameterOrRef{
			Parameter: po.def,
		})
	}
}

func (po *ParameterOptions) validate(f func([]string) error) {
	name, in := po.def.Name, po.def.In
	po.operationOptions.transforms = append(po.operationOptions.transforms, func(r *http.Request) (*http.Request, error) {
		err := f(extractParam(r, in, name))
		if err != nil {
			return nil, err
		}
		return r, nil
	})
}

// MissingRequiredParameterError is the cause of the [BadRequestError]
// returned when a [Required] parameter is absent.
type MissingRequiredParameterError struct {
	Parameter string
	In        string
}

// Error implements the [error] interface.
func (e MissingRequiredParameterError) Error() string {
	return fmt.Sprintf("missing required request parameter in %s: %s", e.In, e.Parameter)
}

// InvalidParameterValueError is the cause of the [BadRequestError] returned
// when a parameter does not match its [Regex].
type InvalidParameterValueError struct {
	Parameter string
	In        string
}

// Error implements the [error] interface.
func (e InvalidParameterValueError) Error() string {
	return fmt.Sprintf("invalid parameter value in %s: %s", e.In, e.Parameter)
}

// Required rejects requests which do not carry the parameter.
func Required() ParameterOption {
	return func(po *ParameterOptions) {
		po.def.Required = ptr.Ref(true)

		name, in := po.def.Name, string(po.def.In)
		po.validate(func(vs []string) error {
			if len(vs) > 0 {
				return nil
			}
			return BadRequestError{
				Cause: MissingRequiredParameterError{Parameter: name, In: in},
			}
		})
	}
}

// Regex rejects requests in which any value of the parameter does not match re.
func Regex(re *regexp.Regexp) ParameterOption {
	return func(po *ParameterOptions) {
		po.def.Schema.Schema.Pattern = ptr.Ref(re.String())

		name, in := po.def.Name, string(po.def.In)
		po.validate(func(vs []string) error {
			for _, v := range vs {
				if !re.MatchString(v) {
					return BadRequestError{
						Cause: InvalidParameterValueError{Parameter: name, In: in},
					}
				}
			}
			return nil
		})
	}
}

// Description documents the parameter.
func Description(desc string) ParameterOption {
	return func(po *ParameterOptions) {
		po.def.Description = ptr.Ref(desc)
	}
}
