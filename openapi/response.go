// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package openapi models the responses an operation may produce and merges
// the ones which share a status code into a single OpenAPI 3 response object.
package openapi

import (
	"sort"
	"strconv"

	"github.com/swaggest/openapi-go/openapi3"
)

// MediaType pairs a content type with the schema of the body sent under it.
type MediaType struct {
	ContentType string
	Schema      openapi3.SchemaOrRef
}

// Header is a named response header.
type Header struct {
	Name   string
	Header openapi3.HeaderOrRef
}

// Response describes a single documented outcome of an operation.
type Response struct {
	Status      int
	Description string
	Content     []MediaType
	Headers     []Header
}

// JSON returns a [Response] with a single "application/json" body.
func JSON(status int, description string, schema openapi3.SchemaOrRef) Response {
	return Response{
		Status:      status,
		Description: description,
		Content: []MediaType{
			{ContentType: "application/json", Schema: schema},
		},
	}
}

// Spec converts the descriptor into its OpenAPI 3 representation.
//
// Media types are keyed by content type, so a descriptor should already be
// merged with [Merge] when it carries the same content type more than once.
// Later entries win otherwise. Headers behave the same way.
func (r Response) Spec() openapi3.ResponseOrRef {
	resp := &openapi3.Response{
		Description: r.Description,
	}
	if len(r.Content) > 0 {
		resp.Content = make(map[string]openapi3.MediaType, len(r.Content))
		for _, mt := range r.Content {
			schema := mt.Schema
			resp.Content[mt.ContentType] = openapi3.MediaType{
				Schema: &schema,
			}
		}
	}
	if len(r.Headers) > 0 {
		resp.Headers = make(map[string]openapi3.HeaderOrRef, len(r.Headers))
		for _, h := range r.Headers {
			resp.Headers[h.Name] = h.Header
		}
	}

	return openapi3.ResponseOrRef{
		Response: resp,
	}
}

// Responses merges rs and returns them as an OpenAPI 3 responses object keyed
// by the decimal status code.
func Responses(rs []Response) openapi3.Responses {
	merged := Merge(rs)

	values := make(map[string]openapi3.ResponseOrRef, len(merged))
	for _, r := range merged {
		values[strconv.Itoa(r.Status)] = r.Spec()
	}

	return openapi3.Responses{
		MapOfResponseOrRefValues: values,
	}
}

// Sorted returns a copy of rs ordered by status code. Responses with equal
// status codes keep their relative order.
func Sorted(rs []Response) []Response {
	out := make([]Response, len(rs))
	copy(out, rs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Status < out[j].Status
	})
	return out
}
