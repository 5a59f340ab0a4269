// Package validate walks a decoded JSON value against a schema, producing
// diagnostics. It never panics: every failure mode becomes a Diagnostic
// rather than an error return, matching the "collect, never throw" shape
// the rest of this server's request handlers use.
package validate

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/dlclark/regexp2"

	"github.com/jsonls/jsonls/internal/schema"
)

// Kind classifies a Diagnostic by the check that produced it.
type Kind string

const (
	KindSchemaViolation    Kind = "SchemaViolation"
	KindDeprecated         Kind = "Deprecated"
	KindRegexCompileFailure Kind = "RegexCompileFailure"
)

// Severity mirrors the LSP diagnostic severity levels the validator reports
// at; the server maps these onto protocol.DiagnosticSeverity directly.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
)

// Diagnostic is a single validation finding, located by JSON Pointer path
// into the validated value rather than by byte range — mapping a Pointer to
// a source Range is the caller's job, since only the caller has the
// document's syntax tree.
type Diagnostic struct {
	Pointer  []string
	Severity Severity
	Kind     Kind
	Message  string
}

// Resolver resolves a schema's $ref against its base URI. Implementations
// live in internal/schemastore; validate depends only on this narrow
// interface to avoid an import cycle.
type Resolver interface {
	Resolve(baseURI, ref string) (*schema.Schema, error)
}

// RegexCache is a process-wide mapping from pattern string to compiled
// ECMA-262 regex, or the error encountered compiling it. Entries are never
// evicted: patterns are small, finite in number per session, and reused
// across every document that shares a schema.
type RegexCache struct {
	mu      chan struct{} // binary semaphore; see lock/unlock below
	entries map[string]regexEntry
}

type regexEntry struct {
	re  *regexp2.Regexp
	err error
}

// NewRegexCache creates an empty cache.
func NewRegexCache() *RegexCache {
	c := &RegexCache{mu: make(chan struct{}, 1), entries: make(map[string]regexEntry)}
	c.mu <- struct{}{}
	return c
}

func (c *RegexCache) lock()   { <-c.mu }
func (c *RegexCache) unlock() { c.mu <- struct{}{} }

// Compile returns the cached compiled regex for pattern, compiling and
// caching it (including any compile error) on first use.
func (c *RegexCache) Compile(pattern string) (*regexp2.Regexp, error) {
	c.lock()
	defer c.unlock()

	if e, ok := c.entries[pattern]; ok {
		return e.re, e.err
	}
	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	c.entries[pattern] = regexEntry{re: re, err: err}
	return re, err
}

// Context carries the state threaded through a single validation call:
// the current JSON Pointer path, the active base URI for $ref resolution,
// the set of $ref URIs already being validated in an outer frame (to
// terminate cycles), and the shared caches.
type Context struct {
	Pointer  []string
	BaseURI  string
	Visited  map[string]struct{}
	Regexes  *RegexCache
	Resolver Resolver

	// Ctx, if non-nil, is checked at safe points between top-level schema
	// children (each object property, each composition branch) so an
	// explicit LSP $/cancelRequest for the enclosing request can abandon a
	// long validation pass without corrupting any shared state.
	Ctx context.Context
}

// NewContext creates a root validation Context.
func NewContext(baseURI string, regexes *RegexCache, resolver Resolver) Context {
	return Context{
		Pointer:  nil,
		BaseURI:  baseURI,
		Visited:  map[string]struct{}{},
		Regexes:  regexes,
		Resolver: resolver,
	}
}

// WithCtx returns a copy of ctx carrying the given cancellation context.
func (ctx Context) WithCtx(c context.Context) Context {
	ctx.Ctx = c
	return ctx
}

// cancelled reports whether ctx's cancellation context, if any, has been
// cancelled.
func (ctx Context) cancelled() bool {
	return ctx.Ctx != nil && ctx.Ctx.Err() != nil
}

// withSegment returns a copy of ctx with seg appended to Pointer.
func (ctx Context) withSegment(seg string) Context {
	next := ctx
	next.Pointer = append(append([]string{}, ctx.Pointer...), seg)
	return next
}

// withVisited returns a copy of ctx with uri added to a cloned Visited set.
// Cloning (rather than mutating in place) means sibling branches that both
// reference the same URI are not spuriously treated as cycles of each
// other — only an actual ancestor chain trips the cycle check.
func (ctx Context) withVisited(uri string) Context {
	next := ctx
	next.Visited = make(map[string]struct{}, len(ctx.Visited)+1)
	for k := range ctx.Visited {
		next.Visited[k] = struct{}{}
	}
	next.Visited[uri] = struct{}{}
	return next
}

func (d Diagnostic) at(ctx Context) Diagnostic {
	d.Pointer = append([]string{}, ctx.Pointer...)
	return d
}

// Validate walks value against s and returns every diagnostic found. It is
// pure: equal (value, schema, ctx) inputs produce equal, stably ordered
// diagnostics.
func Validate(value any, s *schema.Schema, ctx Context) []Diagnostic {
	if s == nil {
		return nil
	}

	var diags []Diagnostic

	// 1. $ref.
	if s.Ref != "" {
		refURI := resolveRefURI(ctx.BaseURI, s.Ref)
		if _, seen := ctx.Visited[refURI]; seen {
			return nil
		}
		if ctx.Resolver != nil {
			target, err := ctx.Resolver.Resolve(ctx.BaseURI, s.Ref)
			if err == nil && target != nil {
				return Validate(value, target, ctx.withVisited(refURI))
			}
		}
		// Unresolvable $ref: fall through and validate remaining sibling
		// keywords on s itself rather than failing the whole subtree.
	}

	// 2. Type check.
	diags = append(diags, checkType(value, s, ctx)...)

	// 3. enum / const.
	diags = append(diags, checkEnumConst(value, s, ctx)...)

	// 4. Type-specific keywords.
	switch v := value.(type) {
	case string:
		diags = append(diags, checkString(v, s, ctx)...)
	case float64:
		diags = append(diags, checkNumber(v, s, ctx)...)
	case []any:
		diags = append(diags, checkArray(v, s, ctx)...)
	case map[string]any:
		diags = append(diags, checkObject(v, s, ctx)...)
	}

	// 5. Composition.
	diags = append(diags, checkComposition(value, s, ctx)...)

	// 6. Conditionals.
	diags = append(diags, checkConditional(value, s, ctx)...)

	// 7. deprecated.
	if s.Deprecated {
		msg := "this value is deprecated"
		if s.DeprecationMessage != "" {
			msg = s.DeprecationMessage
		}
		diags = append(diags, Diagnostic{Severity: SeverityWarning, Kind: KindDeprecated, Message: msg}.at(ctx))
	}

	return diags
}

func resolveRefURI(baseURI, ref string) string {
	if len(ref) > 0 && ref[0] == '#' {
		return baseURI + ref
	}
	return ref
}

func violation(ctx Context, s *schema.Schema, keyword, message string) Diagnostic {
	if custom, ok := s.ErrorMessage[keyword]; ok && custom != "" {
		message = custom
	}
	return Diagnostic{Severity: SeverityError, Kind: KindSchemaViolation, Message: message}.at(ctx)
}

func jsonTypeName(value any) schema.Type {
	switch v := value.(type) {
	case string:
		return schema.TypeString
	case bool:
		return schema.TypeBoolean
	case nil:
		return schema.TypeNull
	case []any:
		return schema.TypeArray
	case map[string]any:
		return schema.TypeObject
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return schema.TypeInteger
		}
		return schema.TypeNumber
	default:
		return ""
	}
}

func matchesType(value any, t schema.Type) bool {
	actual := jsonTypeName(value)
	if actual == t {
		return true
	}
	// A value with no fractional part satisfies both "integer" and "number".
	if t == schema.TypeNumber && actual == schema.TypeInteger {
		return true
	}
	return false
}

func checkType(value any, s *schema.Schema, ctx Context) []Diagnostic {
	if len(s.Types) == 0 {
		return nil
	}
	for _, t := range s.Types {
		if matchesType(value, t) {
			return nil
		}
	}
	names := make([]string, len(s.Types))
	for i, t := range s.Types {
		names[i] = string(t)
	}
	return []Diagnostic{violation(ctx, s, "type", fmt.Sprintf("value does not match type(s): %v", names))}
}

func checkEnumConst(value any, s *schema.Schema, ctx Context) []Diagnostic {
	var diags []Diagnostic
	if len(s.EnumValues) > 0 {
		match := false
		for _, ev := range s.EnumValues {
			if structuralEqual(value, ev) {
				match = true
				break
			}
		}
		if !match {
			diags = append(diags, violation(ctx, s, "enum", "value does not match any enum value"))
		}
	}
	if s.HasConst {
		if !structuralEqual(value, s.ConstValue) {
			diags = append(diags, violation(ctx, s, "const", "value does not match const"))
		}
	}
	return diags
}

// structuralEqual compares two decoded JSON values by structural JSON
// semantics: numeric equality compares numeric values (not representation),
// object key order is irrelevant, array order matters.
func structuralEqual(a, b any) bool {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !structuralEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, ok := bv[k]
			if !ok || !structuralEqual(v, bvv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func checkString(v string, s *schema.Schema, ctx Context) []Diagnostic {
	var diags []Diagnostic
	length := uint64(len([]rune(v)))

	if s.MinLength != nil && length < *s.MinLength {
		diags = append(diags, violation(ctx, s, "minLength", fmt.Sprintf("string is shorter than minLength %d", *s.MinLength)))
	}
	if s.MaxLength != nil && length > *s.MaxLength {
		diags = append(diags, violation(ctx, s, "maxLength", fmt.Sprintf("string is longer than maxLength %d", *s.MaxLength)))
	}
	if s.Pattern != "" {
		re, err := ctx.Regexes.Compile(s.Pattern)
		if err != nil {
			diags = append(diags, Diagnostic{Severity: SeverityWarning, Kind: KindRegexCompileFailure, Message: fmt.Sprintf("invalid pattern %q: %v", s.Pattern, err)}.at(ctx))
		} else {
			matched, _ := re.MatchString(v)
			if !matched {
				msg := fmt.Sprintf("string does not match pattern %q", s.Pattern)
				if s.PatternErrorMessage != "" {
					msg = s.PatternErrorMessage
				}
				diags = append(diags, Diagnostic{Severity: SeverityError, Kind: KindSchemaViolation, Message: msg}.at(ctx))
			}
		}
	}
	return diags
}

const multipleOfEpsilon = 1e-10

func checkNumber(v float64, s *schema.Schema, ctx Context) []Diagnostic {
	var diags []Diagnostic

	if s.Minimum != nil && v < *s.Minimum {
		diags = append(diags, violation(ctx, s, "minimum", fmt.Sprintf("value is less than minimum %v", *s.Minimum)))
	}
	if s.Maximum != nil && v > *s.Maximum {
		diags = append(diags, violation(ctx, s, "maximum", fmt.Sprintf("value is greater than maximum %v", *s.Maximum)))
	}
	if lo, ok := exclusiveMin(s); ok && v <= lo {
		diags = append(diags, violation(ctx, s, "exclusiveMinimum", fmt.Sprintf("value is not greater than exclusiveMinimum %v", lo)))
	}
	if hi, ok := exclusiveMax(s); ok && v >= hi {
		diags = append(diags, violation(ctx, s, "exclusiveMaximum", fmt.Sprintf("value is not less than exclusiveMaximum %v", hi)))
	}
	if s.MultipleOf != nil && *s.MultipleOf != 0 {
		m := *s.MultipleOf
		ratio := v / m
		if math.Abs(v-math.Round(ratio)*m) >= multipleOfEpsilon*math.Max(1, math.Abs(v)) {
			diags = append(diags, violation(ctx, s, "multipleOf", fmt.Sprintf("value is not a multiple of %v", m)))
		}
	}
	return diags
}

// exclusiveMin resolves exclusiveMinimum across draft 4 (boolean flag on
// minimum) and draft 6+ (numeric boundary) shapes into a single bound.
func exclusiveMin(s *schema.Schema) (float64, bool) {
	if s.ExclusiveMinimum == nil {
		return 0, false
	}
	if s.ExclusiveMinimum.IsBoolean {
		if s.ExclusiveMinimum.Bool != nil && *s.ExclusiveMinimum.Bool && s.Minimum != nil {
			return *s.Minimum, true
		}
		return 0, false
	}
	if s.ExclusiveMinimum.Number != nil {
		return *s.ExclusiveMinimum.Number, true
	}
	return 0, false
}

func exclusiveMax(s *schema.Schema) (float64, bool) {
	if s.ExclusiveMaximum == nil {
		return 0, false
	}
	if s.ExclusiveMaximum.IsBoolean {
		if s.ExclusiveMaximum.Bool != nil && *s.ExclusiveMaximum.Bool && s.Maximum != nil {
			return *s.Maximum, true
		}
		return 0, false
	}
	if s.ExclusiveMaximum.Number != nil {
		return *s.ExclusiveMaximum.Number, true
	}
	return 0, false
}

func checkArray(v []any, s *schema.Schema, ctx Context) []Diagnostic {
	var diags []Diagnostic
	n := uint64(len(v))

	if s.MinItems != nil && n < *s.MinItems {
		diags = append(diags, violation(ctx, s, "minItems", fmt.Sprintf("array has fewer than minItems %d", *s.MinItems)))
	}
	if s.MaxItems != nil && n > *s.MaxItems {
		diags = append(diags, violation(ctx, s, "maxItems", fmt.Sprintf("array has more than maxItems %d", *s.MaxItems)))
	}

	if s.UniqueItems {
		diags = append(diags, checkUniqueItems(v, s, ctx)...)
	}

	for i, item := range v {
		seg := strconv.Itoa(i)
		itemCtx := ctx.withSegment(seg)

		var itemSchema *schema.Schema
		if i < len(s.PrefixItems) {
			itemSchema = s.PrefixItems[i]
		} else if s.Items.AsSchema() != nil {
			itemSchema = s.Items.AsSchema()
		} else if s.Items != nil && s.Items.IsFalse() {
			diags = append(diags, violation(itemCtx, s, "items", "array has more items than schema allows"))
			continue
		}
		if itemSchema != nil {
			diags = append(diags, Validate(item, itemSchema, itemCtx)...)
		}
	}

	if s.Contains != nil {
		matchCount := 0
		for _, item := range v {
			if len(Validate(item, s.Contains, Context{Pointer: nil, BaseURI: ctx.BaseURI, Visited: ctx.Visited, Regexes: ctx.Regexes, Resolver: ctx.Resolver})) == 0 {
				matchCount++
			}
		}
		min := uint64(1)
		if s.MinContains != nil {
			min = *s.MinContains
		}
		if uint64(matchCount) < min {
			diags = append(diags, violation(ctx, s, "contains", "array does not contain enough matching items"))
		}
		if s.MaxContains != nil && uint64(matchCount) > *s.MaxContains {
			diags = append(diags, violation(ctx, s, "maxContains", "array contains too many matching items"))
		}
	}

	return diags
}

// checkUniqueItems uses a canonicalized-hash bucket per element, confirming
// collisions by structural equality, for expected O(n) behavior.
func checkUniqueItems(v []any, s *schema.Schema, ctx Context) []Diagnostic {
	buckets := make(map[string][]any, len(v))
	for _, item := range v {
		key := canonicalHash(item)
		for _, other := range buckets[key] {
			if structuralEqual(item, other) {
				return []Diagnostic{violation(ctx, s, "uniqueItems", "array contains duplicate items")}
			}
		}
		buckets[key] = append(buckets[key], item)
	}
	return nil
}

func canonicalHash(v any) string {
	switch val := v.(type) {
	case nil:
		return "n"
	case bool:
		return fmt.Sprintf("b%v", val)
	case float64:
		return fmt.Sprintf("f%v", val)
	case string:
		return fmt.Sprintf("s%s", val)
	case []any:
		out := "a["
		for _, e := range val {
			out += canonicalHash(e) + ","
		}
		return out + "]"
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := "o{"
		for _, k := range keys {
			out += k + ":" + canonicalHash(val[k]) + ","
		}
		return out + "}"
	default:
		return "?"
	}
}

func checkObject(v map[string]any, s *schema.Schema, ctx Context) []Diagnostic {
	var diags []Diagnostic
	n := uint64(len(v))

	if s.MinProperties != nil && n < *s.MinProperties {
		diags = append(diags, violation(ctx, s, "minProperties", fmt.Sprintf("object has fewer than minProperties %d", *s.MinProperties)))
	}
	if s.MaxProperties != nil && n > *s.MaxProperties {
		diags = append(diags, violation(ctx, s, "maxProperties", fmt.Sprintf("object has more than maxProperties %d", *s.MaxProperties)))
	}

	for _, req := range s.Required {
		if _, ok := v[req]; !ok {
			diags = append(diags, violation(ctx, s, "required", fmt.Sprintf("missing required property %q", req)))
		}
	}

	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		val := v[name]
		if ctx.cancelled() {
			return diags
		}

		propCtx := ctx.withSegment(name)

		var propSchema *schema.Schema
		if ps, ok := s.Properties[name]; ok {
			propSchema = ps
		} else {
			patterns := make([]string, 0, len(s.PatternProperties))
			for pattern := range s.PatternProperties {
				patterns = append(patterns, pattern)
			}
			sort.Strings(patterns)
			for _, pattern := range patterns {
				ps := s.PatternProperties[pattern]
				re, err := ctx.Regexes.Compile(pattern)
				if err != nil {
					diags = append(diags, Diagnostic{Severity: SeverityWarning, Kind: KindRegexCompileFailure, Message: fmt.Sprintf("invalid patternProperties pattern %q: %v", pattern, err)}.at(ctx))
					continue
				}
				if matched, _ := re.MatchString(name); matched {
					propSchema = ps
					break
				}
			}
			if propSchema == nil && s.AdditionalProperties != nil {
				if s.AdditionalProperties.IsFalse() {
					diags = append(diags, violation(propCtx, s, "additionalProperties", fmt.Sprintf("property %q is not allowed", name)))
					continue
				}
				propSchema = s.AdditionalProperties.AsSchema()
			}
		}
		if propSchema != nil {
			diags = append(diags, Validate(val, propSchema, propCtx)...)
		}

		if s.PropertyNames != nil {
			diags = append(diags, Validate(name, s.PropertyNames, propCtx)...)
		}
	}

	diags = append(diags, checkDependencies(v, s, ctx)...)

	return diags
}

func checkDependencies(v map[string]any, s *schema.Schema, ctx Context) []Diagnostic {
	var diags []Diagnostic

	for trigger, dep := range s.Dependencies {
		if _, present := v[trigger]; !present {
			continue
		}
		if dep.Schema != nil {
			diags = append(diags, Validate(v, dep.Schema, ctx)...)
			continue
		}
		for _, req := range dep.Properties {
			if _, ok := v[req]; !ok {
				diags = append(diags, violation(ctx, s, "dependencies", fmt.Sprintf("property %q requires %q", trigger, req)))
			}
		}
	}

	for trigger, required := range s.DependentRequired {
		if _, present := v[trigger]; !present {
			continue
		}
		for _, req := range required {
			if _, ok := v[req]; !ok {
				diags = append(diags, violation(ctx, s, "dependentRequired", fmt.Sprintf("property %q requires %q", trigger, req)))
			}
		}
	}

	for trigger, depSchema := range s.DependentSchemas {
		if _, present := v[trigger]; !present {
			continue
		}
		diags = append(diags, Validate(v, depSchema, ctx)...)
	}

	return diags
}

func checkComposition(value any, s *schema.Schema, ctx Context) []Diagnostic {
	var diags []Diagnostic

	for _, branch := range s.AllOf {
		if ctx.cancelled() {
			return diags
		}
		diags = append(diags, Validate(value, branch, ctx)...)
	}

	if len(s.AnyOf) > 0 {
		var branchErrs []Diagnostic
		ok := false
		for _, branch := range s.AnyOf {
			if ctx.cancelled() {
				break
			}
			errs := Validate(value, branch, ctx)
			if len(errs) == 0 {
				ok = true
				break
			}
			branchErrs = append(branchErrs, errs...)
		}
		if !ok {
			diags = append(diags, branchErrs...)
		}
	}

	if len(s.OneOf) > 0 {
		successes := 0
		var branchErrs []Diagnostic
		for _, branch := range s.OneOf {
			if ctx.cancelled() {
				break
			}
			errs := Validate(value, branch, ctx)
			if len(errs) == 0 {
				successes++
			} else {
				branchErrs = append(branchErrs, errs...)
			}
		}
		switch {
		case successes == 0:
			diags = append(diags, violation(ctx, s, "oneOf", "no schema matched"))
		case successes >= 2:
			diags = append(diags, violation(ctx, s, "oneOf", "matches more than one schema"))
		}
	}

	if s.Not != nil {
		if len(Validate(value, s.Not, ctx)) == 0 {
			diags = append(diags, violation(ctx, s, "not", "value must not match schema"))
		}
	}

	return diags
}

func checkConditional(value any, s *schema.Schema, ctx Context) []Diagnostic {
	if s.If == nil {
		return nil
	}
	if len(Validate(value, s.If, ctx)) == 0 {
		if s.Then != nil {
			return Validate(value, s.Then, ctx)
		}
		return nil
	}
	if s.Else != nil {
		return Validate(value, s.Else, ctx)
	}
	return nil
}
