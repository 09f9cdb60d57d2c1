// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package openapi

import (
	"github.com/swaggest/jsonschema-go"
	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/ptr"
)

// Reflect builds the schema of v's type with every reference inlined.
func Reflect(v any) (openapi3.SchemaOrRef, error) {
	var reflector jsonschema.Reflector

	js, err := reflector.Reflect(v, jsonschema.InlineRefs)
	if err != nil {
		return openapi3.SchemaOrRef{}, err
	}

	var schemaOrRef openapi3.SchemaOrRef
	schemaOrRef.FromJSONSchema(js.ToSchemaOrBool())
	return schemaOrRef, nil
}

// ConstString is a read-only string schema defaulting to s.
func ConstString(s string) openapi3.SchemaOrRef {
	var def interface{} = s

	return openapi3.SchemaOrRef{
		Schema: &openapi3.Schema{
			Type:     ptr.Ref(openapi3.SchemaTypeString),
			ReadOnly: ptr.Ref(true),
			Default:  &def,
			Enum:     []interface{}{s},
		},
	}
}

// Object returns an object schema with the given properties. Every name in
// required must also appear in props.
func Object(props map[string]openapi3.SchemaOrRef, required ...string) openapi3.SchemaOrRef {
	return openapi3.SchemaOrRef{
		Schema: &openapi3.Schema{
			Type:       ptr.Ref(openapi3.SchemaTypeObject),
			Properties: props,
			Required:   required,
		},
	}
}
