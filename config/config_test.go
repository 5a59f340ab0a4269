package config_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonls/jsonls/config"
)

func TestSetFromSettingsParsesURLAssociations(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{
		"json": {
			"schemas": [
				{"url": "https://example.com/a.schema.json", "fileMatch": ["*.a.json"]}
			]
		}
	}`)

	c := config.New()
	require.NoError(t, c.SetFromSettings(raw))

	assoc := c.Associations()
	require.Len(t, assoc, 1)
	assert.Equal(t, "https://example.com/a.schema.json", assoc[0].SchemaURI)
	assert.True(t, assoc[0].FileMatch[0].Match("package.a.json"), "expected the fileMatch glob to match package.a.json")
}

func TestSetFromSettingsSkipsEntriesWithNoValidGlob(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{
		"json": {
			"schemas": [
				{"url": "https://example.com/a.schema.json", "fileMatch": ["["]}
			]
		}
	}`)

	c := config.New()
	require.NoError(t, c.SetFromSettings(raw))
	assert.Empty(t, c.Associations(), "expected an entry with only invalid globs to be dropped")
}

func TestSetFromSettingsAssignsInlineURIs(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{
		"json": {
			"schemas": [
				{"schema": {"type": "object"}, "fileMatch": ["*.inline.json"]}
			]
		}
	}`)

	c := config.New()
	require.NoError(t, c.SetFromSettings(raw))
	assoc := c.Associations()
	require.Len(t, assoc, 1)
	assert.Equal(t, "inline:0", assoc[0].SchemaURI)

	inline, err := config.InlineSchemas(raw)
	require.NoError(t, err)
	assert.Contains(t, inline, "inline:0", "expected InlineSchemas to report the inline:0 body")
}

func TestSetFromSettingsReplacesPreviousAssociations(t *testing.T) {
	t.Parallel()

	c := config.New()
	first := json.RawMessage(`{"json": {"schemas": [{"url": "a", "fileMatch": ["*.a.json"]}]}}`)
	second := json.RawMessage(`{"json": {"schemas": [{"url": "b", "fileMatch": ["*.b.json"]}]}}`)

	require.NoError(t, c.SetFromSettings(first))
	require.NoError(t, c.SetFromSettings(second))

	assoc := c.Associations()
	require.Len(t, assoc, 1)
	assert.Equal(t, "b", assoc[0].SchemaURI)
}
