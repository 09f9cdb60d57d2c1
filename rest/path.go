// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"path"
)

// PathElement is either a static segment or a named parameter of a [Path].
type PathElement interface {
	pathElement() string
}

// PathSegment is a static component of a URL path.
type PathSegment string

func (s PathSegment) pathElement() string {
	return string(s)
}

type pathParam struct {
	name string
	opts []ParameterOption
}

func (p pathParam) pathElement() string {
	return "{" + p.name + "}"
}

// PathParam creates a named path parameter. Its value is available to
// handlers through [PathParamValue].
func PathParam(name string, opts ...ParameterOption) PathElement {
	return pathParam{
		name: name,
		opts: opts,
	}
}

// Path is a URL path built from [BasePath].
type Path []PathElement

// BasePath starts a new [Path].
//
//	rest.BasePath("/notes").Param("id") // /notes/{id}
func BasePath(s string) Path {
	return Path{PathSegment(s)}
}

// Segment appends a static segment.
func (p Path) Segment(s string) Path {
	return append(p, PathSegment(s))
}

// Param appends a required path parameter.
func (p Path) Param(name string, opts ...ParameterOption) Path {
	return append(p, PathParam(name, append([]ParameterOption{Required()}, opts...)...))
}

// String renders the path in OpenAPI form, e.g. /notes/{id}.
func (p Path) String() string {
	ss := make([]string, len(p))
	for i, el := range p {
		ss[i] = el.pathElement()
	}
	return path.Join(ss...)
}
