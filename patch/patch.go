// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package patch provides [Value], a field wrapper for partial update payloads
// which tells "set to a new value" apart from "leave unchanged".
//
//	type updateNote struct {
//	    Title patch.Value[string] `json:"title"`
//	    Body  patch.Value[string] `json:"body"`
//	}
//
// A field absent from the JSON payload and a field explicitly set to null
// both decode to unchanged.
package patch

import (
	"bytes"
	"database/sql"
	"encoding/json"

	"github.com/Masterminds/squirrel"
	"github.com/swaggest/jsonschema-go"
)

// Value is either set to a value of type T or unchanged.
// The zero value is unchanged.
type Value[T any] struct {
	v   T
	set bool
}

// Set returns a Value set to v.
func Set[T any](v T) Value[T] {
	return Value[T]{v: v, set: true}
}

// Unchanged returns a Value which leaves the target as is.
func Unchanged[T any]() Value[T] {
	return Value[T]{}
}

// IsSet reports whether the value should be updated.
func (p Value[T]) IsSet() bool {
	return p.set
}

// IsZero reports whether p is unchanged. It lets encoding/json omit unchanged
// fields tagged with omitzero.
func (p Value[T]) IsZero() bool {
	return !p.set
}

// Get returns the new value and whether it is set.
func (p Value[T]) Get() (T, bool) {
	return p.v, p.set
}

// GetNew returns the new value if set, otherwise old.
func (p Value[T]) GetNew(old T) T {
	if p.set {
		return p.v
	}
	return old
}

// Update writes the new value into dst if set and reports whether it did.
func (p Value[T]) Update(dst *T) bool {
	if !p.set {
		return false
	}
	*dst = p.v
	return true
}

// Map converts the value of p with f. An unchanged p stays unchanged and f
// is not called.
func Map[T, U any](p Value[T], f func(T) U) Value[U] {
	if !p.set {
		return Unchanged[U]()
	}
	return Set(f(p.v))
}

// MarshalJSON implements [json.Marshaler]. Unchanged values marshal as null.
func (p Value[T]) MarshalJSON() ([]byte, error) {
	if !p.set {
		return []byte("null"), nil
	}
	return json.Marshal(p.v)
}

// UnmarshalJSON implements [json.Unmarshaler]. null decodes to unchanged.
func (p *Value[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*p = Unchanged[T]()
		return nil
	}

	var v T
	err := json.Unmarshal(b, &v)
	if err != nil {
		return err
	}
	*p = Set(v)
	return nil
}

// JSONSchema implements [jsonschema.Exposer]. A Value is documented by the
// schema of T.
func (Value[T]) JSONSchema() (jsonschema.Schema, error) {
	var r jsonschema.Reflector

	var v T
	return r.Reflect(v, jsonschema.InlineRefs)
}

// SQLNull converts p into a [sql.Null] which is valid only if p is set.
func (p Value[T]) SQLNull() sql.Null[T] {
	return sql.Null[T]{V: p.v, Valid: p.set}
}

// Apply adds column to a gorm style updates map if p is set.
//
//	updates := map[string]any{}
//	req.Title.Apply(updates, "title")
//	db.Model(&note).Updates(updates)
func (p Value[T]) Apply(updates map[string]any, column string) {
	if p.set {
		updates[column] = p.v
	}
}

// SetOn adds column to the UPDATE statement built by b if p is set.
func (p Value[T]) SetOn(b squirrel.UpdateBuilder, column string) squirrel.UpdateBuilder {
	if !p.set {
		return b
	}
	return b.Set(column, p.v)
}
