// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package openapi

import (
	"strings"

	"github.com/swaggest/openapi-go/openapi3"
)

const multipleResponsesPreamble = "There are multiple possible responses with this status code:"

// Merge collapses every group of responses sharing a status code into one.
//
// A group with a single member is returned untouched. For larger groups the
// descriptions become a bulleted list, the content is regrouped by content
// type with [MergeMediaTypes] and the headers are concatenated.
//
// Groups appear in the order their status code was first seen.
func Merge(rs []Response) []Response {
	var order []int
	groups := make(map[int][]Response)
	for _, r := range rs {
		if _, ok := groups[r.Status]; !ok {
			order = append(order, r.Status)
		}
		groups[r.Status] = append(groups[r.Status], r)
	}

	merged := make([]Response, 0, len(order))
	for _, status := range order {
		merged = append(merged, mergeGroup(status, groups[status]))
	}
	return merged
}

func mergeGroup(status int, group []Response) Response {
	if len(group) == 1 {
		return group[0]
	}

	var desc strings.Builder
	desc.WriteString(multipleResponsesPreamble)

	var content []MediaType
	var headers []Header
	for _, r := range group {
		desc.WriteString("\n- ")
		desc.WriteString(r.Description)

		content = append(content, r.Content...)
		headers = append(headers, r.Headers...)
	}

	return Response{
		Status:      status,
		Description: desc.String(),
		Content:     MergeMediaTypes(content),
		Headers:     headers,
	}
}

// MergeMediaTypes groups media types by content type. A content type with
// more than one schema is replaced by an inline schema whose oneOf lists
// every constituent in order.
func MergeMediaTypes(mts []MediaType) []MediaType {
	var order []string
	schemas := make(map[string][]openapi3.SchemaOrRef)
	for _, mt := range mts {
		if _, ok := schemas[mt.ContentType]; !ok {
			order = append(order, mt.ContentType)
		}
		schemas[mt.ContentType] = append(schemas[mt.ContentType], mt.Schema)
	}

	merged := make([]MediaType, 0, len(order))
	for _, ct := range order {
		ss := schemas[ct]
		if len(ss) == 1 {
			merged = append(merged, MediaType{ContentType: ct, Schema: ss[0]})
			continue
		}

		merged = append(merged, MediaType{
			ContentType: ct,
			Schema:      OneOf(ss...),
		})
	}
	return merged
}

// OneOf returns an inline schema which matches exactly one of ss.
func OneOf(ss ...openapi3.SchemaOrRef) openapi3.SchemaOrRef {
	return openapi3.SchemaOrRef{
		Schema: &openapi3.Schema{
			OneOf: ss,
		},
	}
}
