package colors_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonls/jsonls/internal/colors"
	"github.com/jsonls/jsonls/internal/document"
	"github.com/jsonls/jsonls/protocol"
)

func snapshot(t *testing.T, text string) document.Snapshot {
	t.Helper()
	doc, err := document.Open(context.Background(), "file:///a.json", 0, []byte(text))
	require.NoError(t, err)
	return doc.Snapshot()
}

func TestDocumentColorsHex6(t *testing.T) {
	t.Parallel()

	found := colors.DocumentColors(snapshot(t, `{"color": "#ff0000"}`))
	require.Len(t, found, 1)
	c := found[0].Color
	assert.GreaterOrEqual(t, c.Red, 0.99)
	assert.LessOrEqual(t, c.Green, 0.01)
	assert.LessOrEqual(t, c.Blue, 0.01)
	assert.GreaterOrEqual(t, c.Alpha, 0.99)
}

func TestDocumentColorsHex3(t *testing.T) {
	t.Parallel()

	found := colors.DocumentColors(snapshot(t, `{"color": "#f00"}`))
	require.Len(t, found, 1)
	assert.GreaterOrEqual(t, found[0].Color.Red, 0.99)
}

func TestDocumentColorsHex8WithAlpha(t *testing.T) {
	t.Parallel()

	found := colors.DocumentColors(snapshot(t, `{"color": "#ff000080"}`))
	require.Len(t, found, 1)
	want := 128.0 / 255.0
	assert.InDelta(t, want, found[0].Color.Alpha, 0.01)
}

func TestDocumentColorsHex4WithAlpha(t *testing.T) {
	t.Parallel()

	found := colors.DocumentColors(snapshot(t, `{"color": "#f008"}`))
	assert.Len(t, found, 1)
}

func TestDocumentColorsIgnoresNonHexString(t *testing.T) {
	t.Parallel()

	found := colors.DocumentColors(snapshot(t, `{"name": "hello"}`))
	assert.Empty(t, found)
}

func TestDocumentColorsIgnoresInvalidHex(t *testing.T) {
	t.Parallel()

	found := colors.DocumentColors(snapshot(t, `{"color": "#xyz"}`))
	assert.Empty(t, found)
}

func TestDocumentColorsIgnoresWrongLengthHex(t *testing.T) {
	t.Parallel()

	for _, text := range []string{`{"color": "#ab"}`, `{"color": "#abcdefghi"}`} {
		found := colors.DocumentColors(snapshot(t, text))
		assert.Emptyf(t, found, "expected no colors for %q", text)
	}
}

func TestDocumentColorsMultiple(t *testing.T) {
	t.Parallel()

	found := colors.DocumentColors(snapshot(t, `{"bg": "#ffffff", "fg": "#000000", "accent": "#abcdef"}`))
	assert.Len(t, found, 3)
}

func TestColorPresentationsOpaque(t *testing.T) {
	t.Parallel()

	presentations := colors.ColorPresentations(protocol.Color{Red: 1, Green: 0, Blue: 0, Alpha: 1})
	require.GreaterOrEqual(t, len(presentations), 2)
	joined := joinLabels(presentations)
	for _, want := range []string{"ff0000", "rgb", "hsl"} {
		assert.Containsf(t, joined, want, "expected a presentation containing %q, got %v", want, presentations)
	}
}

func TestColorPresentationsWithAlpha(t *testing.T) {
	t.Parallel()

	presentations := colors.ColorPresentations(protocol.Color{Red: 1, Green: 0, Blue: 0, Alpha: 0.5})
	joined := joinLabels(presentations)
	for _, want := range []string{"rgba", "hsla"} {
		assert.Containsf(t, joined, want, "expected a presentation containing %q, got %v", want, presentations)
	}
}

func joinLabels(presentations []protocol.ColorPresentation) string {
	var labels []string
	for _, p := range presentations {
		labels = append(labels, p.Label)
	}
	return strings.Join(labels, " ")
}
