// Package config parses the editor's json.schemas setting and holds it as
// a set of precompiled glob associations the server can query without
// recompiling a pattern on every lookup.
package config

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gobwas/glob"

	"github.com/jsonls/jsonls/internal/schemastore"
)

// Option configures a Config at construction time.
type Option func(*Config)

// Config holds the server's live configuration. Associations can be
// replaced wholesale at any time (the workspace/didChangeConfiguration
// handler calls SetFromSettings), so every access goes through the mutex
// rather than assuming the slice is fixed for the server's lifetime.
type Config struct {
	mu           sync.RWMutex
	associations []schemastore.Association
}

// New creates a Config, applying any Options over the zero value (no
// associations configured).
func New(opts ...Option) *Config {
	c := &Config{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithAssociations seeds a Config with a fixed association list, primarily
// useful in tests.
func WithAssociations(associations []schemastore.Association) Option {
	return func(c *Config) {
		c.associations = associations
	}
}

// Associations returns the currently configured schema associations.
func (c *Config) Associations() []schemastore.Association {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.associations
}

// schemasSetting mirrors the shape of a single entry in the editor's
// json.schemas setting: either a remote/local url or an inline schema body,
// plus the glob patterns of files it applies to.
type schemasSetting struct {
	URL       string          `json:"url"`
	Schema    json.RawMessage `json:"schema"`
	FileMatch []string        `json:"fileMatch"`
}

// settingsPayload is the subset of workspace configuration this server
// reads; unknown keys are ignored so the editor can send its full settings
// object without this code needing to know every key in it.
type settingsPayload struct {
	JSON struct {
		Schemas []schemasSetting `json:"schemas"`
	} `json:"json"`
}

// SetFromSettings parses raw (the payload of a workspace/didChangeConfiguration
// notification) and replaces the current association list. A schema entry
// with an inline "schema" body is registered under a synthetic
// "inline:" URI so Resolver.Fetch never needs network or disk access for it
// — the caller is expected to pre-populate the resolver's cache for such
// URIs before association lookups occur.
func (c *Config) SetFromSettings(raw json.RawMessage) error {
	var payload settingsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("parsing configuration: %w", err)
	}

	associations := make([]schemastore.Association, 0, len(payload.JSON.Schemas))
	for i, setting := range payload.JSON.Schemas {
		globs := make([]glob.Glob, 0, len(setting.FileMatch))
		for _, pattern := range setting.FileMatch {
			g, err := glob.Compile(pattern)
			if err != nil {
				continue
			}
			globs = append(globs, g)
		}
		if len(globs) == 0 {
			continue
		}

		uri := setting.URL
		if uri == "" && len(setting.Schema) > 0 {
			uri = fmt.Sprintf("inline:%d", i)
		}
		if uri == "" {
			continue
		}

		associations = append(associations, schemastore.Association{SchemaURI: uri, FileMatch: globs})
	}

	c.mu.Lock()
	c.associations = associations
	c.mu.Unlock()
	return nil
}

// InlineSchemas returns the URI→raw-schema-body pairs found in raw's
// json.schemas entries that carried an inline "schema" rather than a "url",
// so the caller can seed Resolver's cache for the synthetic "inline:N" URIs
// SetFromSettings produced.
func InlineSchemas(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var payload settingsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	out := make(map[string]json.RawMessage)
	for i, setting := range payload.JSON.Schemas {
		if setting.URL != "" || len(setting.Schema) == 0 {
			continue
		}
		out[fmt.Sprintf("inline:%d", i)] = setting.Schema
	}
	return out, nil
}
