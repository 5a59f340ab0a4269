// Package schemastore fetches JSON Schema documents from the local
// filesystem or over HTTP, caches them, and resolves $ref URIs and
// document-to-schema associations.
package schemastore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"golang.org/x/sync/singleflight"

	"github.com/jsonls/jsonls/internal/schema"
)

const fetchTimeout = 10 * time.Second

// Transport retrieves the raw bytes of a schema document named by uri.
// Resolver dispatches on uri's scheme to choose an implementation; tests
// substitute a fake Transport to avoid touching the network or disk.
type Transport interface {
	FetchRaw(ctx context.Context, uri string) ([]byte, error)
}

// httpFileTransport is the production Transport: http(s) URIs are fetched
// over the network, everything else is read as a local file path (with an
// optional file:// scheme stripped). A buffered channel caps the number of
// fetches in flight at once, the worker-pool shape spec.md's concurrency
// section calls for.
type httpFileTransport struct {
	client *http.Client
	sem    chan struct{}
}

func newHTTPFileTransport(maxConcurrent int) *httpFileTransport {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &httpFileTransport{
		client: &http.Client{},
		sem:    make(chan struct{}, maxConcurrent),
	}
}

func (t *httpFileTransport) FetchRaw(ctx context.Context, uri string) ([]byte, error) {
	t.sem <- struct{}{}
	defer func() { <-t.sem }()

	switch {
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return t.fetchHTTP(ctx, uri)
	default:
		return t.fetchFile(uri)
	}
}

func (t *httpFileTransport) fetchHTTP(ctx context.Context, uri string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", uri, err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", uri, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", uri, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", uri, resp.StatusCode)
	}
	return body, nil
}

func (t *httpFileTransport) fetchFile(uri string) ([]byte, error) {
	path := strings.TrimPrefix(uri, "file://")
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return body, nil
}

// Resolver fetches, parses, and caches schema documents, and resolves
// $ref references (including fragment-only refs and refs into a different
// document) against them.
type Resolver struct {
	cache     *lru
	group     singleflight.Group
	transport Transport
}

// NewResolver creates a Resolver with the given cache capacity and a
// production Transport capped at maxConcurrent simultaneous fetches.
func NewResolver(capacity, maxConcurrent int) *Resolver {
	return &Resolver{
		cache:     newLRU(capacity),
		transport: newHTTPFileTransport(maxConcurrent),
	}
}

// NewResolverWithTransport creates a Resolver using a caller-supplied
// Transport, for tests that want to avoid real network or filesystem I/O.
func NewResolverWithTransport(capacity int, transport Transport) *Resolver {
	return &Resolver{cache: newLRU(capacity), transport: transport}
}

// Fetch returns the parsed Schema at uri, using the cache when possible and
// coalescing concurrent callers requesting the same uri into one Transport
// call.
func (r *Resolver) Fetch(ctx context.Context, uri string) (*schema.Schema, error) {
	if s, ok := r.cache.get(uri); ok {
		return s, nil
	}

	v, err, _ := r.group.Do(uri, func() (any, error) {
		if s, ok := r.cache.get(uri); ok {
			return s, nil
		}
		raw, err := r.transport.FetchRaw(ctx, uri)
		if err != nil {
			return nil, err
		}
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("parsing schema at %s: %w", uri, err)
		}
		s := schema.FromValue(decoded)
		r.cache.set(uri, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*schema.Schema), nil
}

// Seed decodes raw and inserts it into the cache under uri directly,
// bypassing Transport entirely. This is how a synthetic "inline:N" URI
// produced by config.SetFromSettings for an inline schema body becomes
// resolvable: there is no document to fetch, only bytes config already
// has in hand.
func (r *Resolver) Seed(uri string, raw json.RawMessage) error {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("parsing inline schema %s: %w", uri, err)
	}
	r.cache.set(uri, schema.FromValue(decoded))
	return nil
}

// Resolve implements validate.Resolver: it splits ref into a document URI
// and a fragment JSON Pointer, fetches the target document (or reuses
// baseURI when ref is fragment-only), and walks the pointer into it.
func (r *Resolver) Resolve(baseURI, ref string) (*schema.Schema, error) {
	docURI, pointer := splitRef(ref)

	target := baseURI
	if docURI != "" {
		target = resolveRelativeURI(baseURI, docURI)
	}

	s, err := r.Fetch(context.Background(), target)
	if err != nil {
		return nil, err
	}
	if pointer == "" {
		return s, nil
	}

	raw, ok := walkRawPointer(s.Raw, splitPointer(pointer))
	if !ok {
		return nil, fmt.Errorf("could not resolve pointer %q in %s", pointer, target)
	}
	return schema.FromValue(raw), nil
}

// walkRawPointer descends segments through v by literal JSON structure — an
// object key at each object, a decimal array index at each array — per
// spec.md §4.6: "fragments are resolved by walking the original parsed JSON
// (not by re-traversing the Schema record, which loses unknown keywords)".
// This is deliberately distinct from Schema.ResolvePathSegment, which
// interprets a segment through JSON-Schema keyword semantics (properties,
// patternProperties, items, ...) for the completion/hover "what schema
// applies at this document location" question; a $ref fragment like
// "#/definitions/A" or "#/$defs/A/properties/x" names literal JSON
// structure instead, so no segment ("definitions" and "$defs" included)
// gets keyword-specific handling here.
func walkRawPointer(v any, segments []string) (any, bool) {
	cur := v
	for _, seg := range segments {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

func splitRef(ref string) (docURI, pointer string) {
	idx := strings.IndexByte(ref, '#')
	if idx < 0 {
		return ref, ""
	}
	return ref[:idx], ref[idx+1:]
}

func splitPointer(pointer string) []string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return nil
	}
	parts := strings.Split(pointer, "/")
	for i, p := range parts {
		parts[i] = unescapePointerSegment(p)
	}
	return parts
}

// unescapePointerSegment reverses RFC 6901 JSON Pointer escaping. Order
// matters: ~1 must be decoded to / before ~0 is decoded to ~, mirroring how
// an encoder escapes ~ first and then /.
func unescapePointerSegment(seg string) string {
	seg = strings.ReplaceAll(seg, "~1", "/")
	seg = strings.ReplaceAll(seg, "~0", "~")
	return seg
}

func resolveRelativeURI(baseURI, ref string) string {
	base, err := url.Parse(baseURI)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(refURL).String()
}

// Association binds a set of file-match globs to a schema URI, the shape
// `json.schemas` configuration entries resolve to once their `fileMatch`
// patterns are precompiled.
type Association struct {
	SchemaURI string
	FileMatch []glob.Glob
}

// AssociateDocument picks the schema URI for a document: an explicit
// $schema value on the document always wins; otherwise the first
// Association whose fileMatch glob matches docURI applies.
func AssociateDocument(docURI, dollarSchema string, associations []Association) (string, bool) {
	if dollarSchema != "" {
		return dollarSchema, true
	}
	for _, assoc := range associations {
		for _, g := range assoc.FileMatch {
			if g.Match(docURI) {
				return assoc.SchemaURI, true
			}
		}
	}
	return "", false
}
