// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package rest registers typed HTTP operations on a chi router and keeps an
// OpenAPI 3 document of them in sync.
//
// # Operations
//
// An operation pairs a method and [Path] with a [Handler]:
//
//	getNote := rest.Operation(
//	    http.MethodGet,
//	    rest.BasePath("/notes").Param("id"),
//	    rest.HandlerFunc[rest.EmptyRequest, rest.Reply](h.getNote),
//	    rest.Returns(noteFound, noteNotFound),
//	)
//	api := rest.NewApi("Notes", "v1.0.0", getNote)
//
// Every operation documents, next to its own responses, a 422 for requests
// which could not be decoded and a 500 for everything else. Responses sharing
// a status code are merged into one entry whose schema is a oneOf.
//
// # Responses
//
// Declared responses are built with [Data], [Empty], [Fail] and [FailWith].
// Success variants produce a [*Reply] while error variants produce an
// [*Error] which the operation renders as
//
//	{"error": "not_found", "details": {...}}
//
// # Authorization
//
// [BearerAuth] extracts an optional bearer token, hands it to a checker and
// stores the checker's result in the request context for [Authorized].
//
// # Panics
//
// [NewApi] installs [CatchPanic] so a panicking handler results in a 500
// with the body {"error":"internal_server_error"}. Use [OnPanic] to change that.
package rest
