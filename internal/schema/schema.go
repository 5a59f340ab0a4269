// Package schema parses JSON Schema documents into a typed record that
// keeps the original JSON value alongside it, and resolves JSON Pointer
// path segments against that record.
package schema

import (
	"strconv"
	"strings"
)

// Draft identifies which JSON Schema draft's keyword semantics apply.
type Draft int

const (
	Draft4 Draft = iota
	Draft6
	Draft7
	Draft201909
	Draft202012
)

// DraftFromSchemaURI infers a Draft from a $schema URI, defaulting to
// Draft7 when the URI names no recognized draft.
func DraftFromSchemaURI(uri string) Draft {
	switch {
	case strings.Contains(uri, "draft-04"), strings.Contains(uri, "draft/04"):
		return Draft4
	case strings.Contains(uri, "draft-06"), strings.Contains(uri, "draft/06"):
		return Draft6
	case strings.Contains(uri, "draft-07"), strings.Contains(uri, "draft/07"):
		return Draft7
	case strings.Contains(uri, "2019-09"):
		return Draft201909
	case strings.Contains(uri, "2020-12"):
		return Draft202012
	default:
		return Draft7
	}
}

// Type is one of the seven JSON Schema primitive type names.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeNull    Type = "null"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

func parseType(s string) (Type, bool) {
	switch Type(s) {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeNull, TypeArray, TypeObject:
		return Type(s), true
	default:
		return "", false
	}
}

// SchemaOrBool is either a sub-schema or a boolean shorthand (true accepts
// everything, false rejects everything).
type SchemaOrBool struct {
	Schema *Schema
	Bool   *bool
}

// AsSchema returns the wrapped Schema, or nil if this is a boolean form.
func (sb *SchemaOrBool) AsSchema() *Schema {
	if sb == nil {
		return nil
	}
	return sb.Schema
}

// IsFalse reports whether this is the boolean-false shorthand.
func (sb *SchemaOrBool) IsFalse() bool {
	return sb != nil && sb.Bool != nil && !*sb.Bool
}

func parseSchemaOrBool(v any) *SchemaOrBool {
	if b, ok := v.(bool); ok {
		return &SchemaOrBool{Bool: &b}
	}
	return &SchemaOrBool{Schema: FromValue(v)}
}

// Dependency is either a list of required sibling properties or a
// sub-schema, per the "dependencies" keyword's dual shape.
type Dependency struct {
	Properties []string
	Schema     *Schema
}

// ExclusiveLimit represents exclusiveMinimum/exclusiveMaximum, whose shape
// differs between draft 4 (boolean flag on minimum/maximum) and draft 6+
// (the boundary value itself).
type ExclusiveLimit struct {
	Bool      *bool
	Number    *float64
	IsBoolean bool
}

// DefaultSnippet is the VS Code defaultSnippets extension entry.
type DefaultSnippet struct {
	Label       string
	Description string
	Body        any
}

// Schema is a recursive JSON Schema record. Optional fields are nil/zero
// when absent so callers can distinguish "not specified" from "specified
// as the zero value". Raw holds the original parsed JSON value so unknown
// keywords and $ref fragment resolution never lose information the typed
// fields drop.
type Schema struct {
	Raw any

	// Metadata.
	ID                     string
	SchemaURI              string
	Draft                  Draft
	Title                  string
	Description            string
	MarkdownDescription    string
	Default                any
	HasDefault             bool
	Examples               []any
	Deprecated             bool
	DeprecationMessage     string
	ErrorMessage           map[string]string
	PatternErrorMessage    string
	DoNotSuggest           bool
	EnumDescriptions       []string
	MarkdownEnumDescriptions []string

	// Type.
	Types []Type

	// Enum / const.
	EnumValues []any
	ConstValue any
	HasConst   bool

	// Numeric.
	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum *ExclusiveLimit
	ExclusiveMaximum *ExclusiveLimit
	MultipleOf       *float64

	// String.
	MinLength *uint64
	MaxLength *uint64
	Pattern   string
	Format    string

	// Array.
	Items            *SchemaOrBool
	PrefixItems      []*Schema
	AdditionalItems  *SchemaOrBool
	MinItems         *uint64
	MaxItems         *uint64
	UniqueItems      bool
	Contains         *Schema
	MinContains      *uint64
	MaxContains      *uint64

	// Object.
	Properties           map[string]*Schema
	Required             []string
	AdditionalProperties *SchemaOrBool
	PatternProperties    map[string]*Schema
	PropertyNames        *Schema
	MinProperties       *uint64
	MaxProperties       *uint64
	Dependencies        map[string]Dependency
	DependentRequired   map[string][]string
	DependentSchemas    map[string]*Schema

	// Composition.
	AllOf []*Schema
	AnyOf []*Schema
	OneOf []*Schema
	Not   *Schema

	// Conditional.
	If   *Schema
	Then *Schema
	Else *Schema

	// References.
	Ref string

	// Definitions.
	Definitions map[string]*Schema
	Defs        map[string]*Schema

	// VS Code extensions.
	DefaultSnippets []DefaultSnippet
}

// FromValue builds a Schema from a generic JSON value (the result of
// json.Unmarshal into `any`). A JSON `true` schema accepts everything; a
// JSON `false` schema rejects everything, modeled as `not: {}`.
func FromValue(v any) *Schema {
	switch val := v.(type) {
	case bool:
		if val {
			return &Schema{Raw: v}
		}
		return &Schema{Raw: v, Not: &Schema{}}
	case map[string]any:
		s := parseSchemaObject(val)
		s.Raw = v
		return s
	default:
		return &Schema{Raw: v}
	}
}

func parseSchemaObject(m map[string]any) *Schema {
	s := &Schema{}

	if uri, ok := strField(m, "$schema"); ok {
		s.SchemaURI = uri
		s.Draft = DraftFromSchemaURI(uri)
	} else {
		s.Draft = Draft7
	}

	if id, ok := strField(m, "$id"); ok {
		s.ID = id
	} else if id, ok := strField(m, "id"); ok {
		s.ID = id
	}
	s.Title, _ = strField(m, "title")
	s.Description, _ = strField(m, "description")
	s.MarkdownDescription, _ = strField(m, "markdownDescription")
	if def, ok := m["default"]; ok {
		s.Default = def
		s.HasDefault = true
	}
	s.Examples = arrayField(m, "examples")
	s.Deprecated, _ = boolField(m, "deprecated")
	s.DeprecationMessage, _ = strField(m, "deprecationMessage")
	s.ErrorMessage = stringMapField(m, "errorMessage")
	s.PatternErrorMessage, _ = strField(m, "patternErrorMessage")
	s.DoNotSuggest, _ = boolField(m, "doNotSuggest")
	s.EnumDescriptions = strArrayField(m, "enumDescriptions")
	s.MarkdownEnumDescriptions = strArrayField(m, "markdownEnumDescriptions")

	switch t := m["type"].(type) {
	case string:
		if st, ok := parseType(t); ok {
			s.Types = []Type{st}
		}
	case []any:
		for _, v := range t {
			if str, ok := v.(string); ok {
				if st, ok := parseType(str); ok {
					s.Types = append(s.Types, st)
				}
			}
		}
	}

	s.EnumValues = arrayField(m, "enum")
	if cv, ok := m["const"]; ok {
		s.ConstValue = cv
		s.HasConst = true
	}

	s.Minimum = float64Field(m, "minimum")
	s.Maximum = float64Field(m, "maximum")
	s.ExclusiveMinimum = exclusiveLimitField(m, "exclusiveMinimum")
	s.ExclusiveMaximum = exclusiveLimitField(m, "exclusiveMaximum")
	s.MultipleOf = float64Field(m, "multipleOf")

	s.MinLength = uint64Field(m, "minLength")
	s.MaxLength = uint64Field(m, "maxLength")
	s.Pattern, _ = strField(m, "pattern")
	s.Format, _ = strField(m, "format")

	if v, ok := m["items"]; ok {
		s.Items = parseSchemaOrBool(v)
	}
	s.PrefixItems = schemaArrayField(m, "prefixItems")
	if v, ok := m["additionalItems"]; ok {
		s.AdditionalItems = parseSchemaOrBool(v)
	}
	s.MinItems = uint64Field(m, "minItems")
	s.MaxItems = uint64Field(m, "maxItems")
	s.UniqueItems, _ = boolField(m, "uniqueItems")
	if v, ok := m["contains"]; ok {
		s.Contains = FromValue(v)
	}
	s.MinContains = uint64Field(m, "minContains")
	s.MaxContains = uint64Field(m, "maxContains")

	s.Properties = schemaObjectField(m, "properties")
	s.Required = strArrayField(m, "required")
	if v, ok := m["additionalProperties"]; ok {
		s.AdditionalProperties = parseSchemaOrBool(v)
	}
	s.PatternProperties = schemaObjectField(m, "patternProperties")
	if v, ok := m["propertyNames"]; ok {
		s.PropertyNames = FromValue(v)
	}
	s.MinProperties = uint64Field(m, "minProperties")
	s.MaxProperties = uint64Field(m, "maxProperties")

	if obj, ok := m["dependencies"].(map[string]any); ok {
		s.Dependencies = make(map[string]Dependency, len(obj))
		for k, dep := range obj {
			if arr, ok := dep.([]any); ok {
				var props []string
				for _, v := range arr {
					if str, ok := v.(string); ok {
						props = append(props, str)
					}
				}
				s.Dependencies[k] = Dependency{Properties: props}
			} else {
				s.Dependencies[k] = Dependency{Schema: FromValue(dep)}
			}
		}
	}
	if obj, ok := m["dependentRequired"].(map[string]any); ok {
		s.DependentRequired = make(map[string][]string, len(obj))
		for k, arr := range obj {
			if list, ok := arr.([]any); ok {
				var props []string
				for _, v := range list {
					if str, ok := v.(string); ok {
						props = append(props, str)
					}
				}
				s.DependentRequired[k] = props
			}
		}
	}
	if deps := schemaObjectField(m, "dependentSchemas"); deps != nil {
		s.DependentSchemas = deps
	}

	s.AllOf = schemaArrayField(m, "allOf")
	s.AnyOf = schemaArrayField(m, "anyOf")
	s.OneOf = schemaArrayField(m, "oneOf")
	if v, ok := m["not"]; ok {
		s.Not = FromValue(v)
	}

	if v, ok := m["if"]; ok {
		s.If = FromValue(v)
	}
	if v, ok := m["then"]; ok {
		s.Then = FromValue(v)
	}
	if v, ok := m["else"]; ok {
		s.Else = FromValue(v)
	}

	s.Ref, _ = strField(m, "$ref")

	s.Definitions = schemaObjectField(m, "definitions")
	s.Defs = schemaObjectField(m, "$defs")

	if arr, ok := m["defaultSnippets"].([]any); ok {
		for _, v := range arr {
			obj, ok := v.(map[string]any)
			if !ok {
				continue
			}
			snip := DefaultSnippet{}
			snip.Label, _ = strField(obj, "label")
			snip.Description, _ = strField(obj, "description")
			snip.Body = obj["body"]
			s.DefaultSnippets = append(s.DefaultSnippets, snip)
		}
	}

	return s
}

// RefResolver looks up the schema a $ref string points to, or returns nil
// if it cannot be resolved. hover and completion receive one of these from
// the server (backed by schemastore.Resolver.Resolve) rather than schema
// importing schemastore directly, which already imports schema.
type RefResolver func(ref string) *Schema

// Resolved follows s.Ref through resolve, repeatedly, until it reaches a
// schema with no $ref of its own, resolve returns nil, or 16 hops pass
// without terminating (a defensive bound against a $ref cycle). Per
// spec.md §4.4, $ref is always followed before any other keyword on a
// schema is read.
func (s *Schema) Resolved(resolve RefResolver) *Schema {
	cur := s
	for i := 0; i < 16 && cur != nil && cur.Ref != "" && resolve != nil; i++ {
		next := resolve(cur.Ref)
		if next == nil {
			break
		}
		cur = next
	}
	return cur
}

// ResolvePathSegment finds the sub-schema reached by descending one JSON
// Pointer segment from s, per spec's §4.4 resolution order: $ref first,
// then direct property/array index, then composition (allOf/anyOf/oneOf),
// then if/then/else, then additionalProperties.
func (s *Schema) ResolvePathSegment(seg string, resolve RefResolver) *Schema {
	s = s.Resolved(resolve)
	if s == nil {
		return nil
	}

	if prop, ok := s.Properties[seg]; ok {
		return prop
	}

	if idx, err := strconv.Atoi(seg); err == nil && idx >= 0 {
		if idx < len(s.PrefixItems) {
			return s.PrefixItems[idx]
		}
		if sub := s.Items.AsSchema(); sub != nil {
			return sub
		}
	}

	for _, sub := range s.AllOf {
		if r := sub.ResolvePathSegment(seg, resolve); r != nil {
			return r
		}
	}
	for _, sub := range s.AnyOf {
		if r := sub.ResolvePathSegment(seg, resolve); r != nil {
			return r
		}
	}
	for _, sub := range s.OneOf {
		if r := sub.ResolvePathSegment(seg, resolve); r != nil {
			return r
		}
	}

	if s.Then != nil {
		if r := s.Then.ResolvePathSegment(seg, resolve); r != nil {
			return r
		}
	}
	if s.Else != nil {
		if r := s.Else.ResolvePathSegment(seg, resolve); r != nil {
			return r
		}
	}

	if sub := s.AdditionalProperties.AsSchema(); sub != nil {
		return sub
	}

	return nil
}

// ResolvePath applies ResolvePathSegment segment by segment, short
// circuiting as soon as a segment fails to resolve, and follows $ref once
// more on the final result so callers never read through an unresolved ref.
func (s *Schema) ResolvePath(pointer []string, resolve RefResolver) *Schema {
	cur := s
	for _, seg := range pointer {
		if cur == nil {
			return nil
		}
		cur = cur.ResolvePathSegment(seg, resolve)
	}
	return cur.Resolved(resolve)
}

// -- field extraction helpers --

func strField(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// stringMapField parses the "keyword: custom message" object the
// errorMessage vocabulary uses. Entries whose value isn't a string are
// skipped rather than rejecting the whole schema, matching the other
// lenient field extractors in this file. Returns nil if the key is absent
// or not an object.
func stringMapField(m map[string]any, key string) map[string]string {
	obj, ok := m[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func boolField(m map[string]any, key string) (bool, bool) {
	v, ok := m[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func float64Field(m map[string]any, key string) *float64 {
	v, ok := m[key]
	if !ok {
		return nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}

func uint64Field(m map[string]any, key string) *uint64 {
	f := float64Field(m, key)
	if f == nil {
		return nil
	}
	u := uint64(*f)
	return &u
}

func strArrayField(m map[string]any, key string) []string {
	arr, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func arrayField(m map[string]any, key string) []any {
	arr, ok := m[key].([]any)
	if !ok {
		return nil
	}
	return arr
}

func schemaArrayField(m map[string]any, key string) []*Schema {
	arr, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]*Schema, 0, len(arr))
	for _, v := range arr {
		out = append(out, FromValue(v))
	}
	return out
}

// schemaObjectField parses an object-valued keyword into a name->Schema map.
// Declaration order is not preserved: the raw schema bytes are decoded into
// map[string]any upstream, which already discards key order.
func schemaObjectField(m map[string]any, key string) map[string]*Schema {
	obj, ok := m[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]*Schema, len(obj))
	for k, v := range obj {
		out[k] = FromValue(v)
	}
	return out
}

func exclusiveLimitField(m map[string]any, key string) *ExclusiveLimit {
	v, ok := m[key]
	if !ok {
		return nil
	}
	if b, ok := v.(bool); ok {
		return &ExclusiveLimit{Bool: &b, IsBoolean: true}
	}
	if f, ok := v.(float64); ok {
		return &ExclusiveLimit{Number: &f}
	}
	return nil
}
