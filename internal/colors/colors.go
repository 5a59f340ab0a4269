// Package colors detects CSS hex color literals inside JSON string values
// and converts a picked color back into the hex/rgb/hsl textual forms an
// editor's color picker offers.
package colors

import (
	"fmt"
	"math"

	"github.com/jsonls/jsonls/internal/document"
	"github.com/jsonls/jsonls/internal/syntax"
	"github.com/jsonls/jsonls/protocol"
)

// DocumentColors walks snap's tree and returns every hex color literal
// found in a string node.
func DocumentColors(snap document.Snapshot) []protocol.ColorInformation {
	var colors []protocol.ColorInformation
	collect(snap, snap.Tree.Root(), &colors)
	return colors
}

func collect(snap document.Snapshot, n syntax.Node, colors *[]protocol.ColorInformation) {
	if n.Kind() == syntax.KindString {
		if raw, ok := syntax.StringContents(n, snap.Text); ok {
			if c, ok := parseHexColor(raw); ok {
				*colors = append(*colors, protocol.ColorInformation{
					Range: snap.RangeOf(n.StartByte(), n.EndByte()),
					Color: c,
				})
			}
		}
		return // Strings have no named children to recurse into.
	}

	for i := 0; i < n.NamedChildCount(); i++ {
		collect(snap, n.NamedChild(i), colors)
	}
}

// ColorPresentations returns the textual forms (hex, rgb/rgba, hsl/hsla) an
// editor can offer for color.
func ColorPresentations(color protocol.Color) []protocol.ColorPresentation {
	r := uint8(math.Round(color.Red * 255))
	g := uint8(math.Round(color.Green * 255))
	b := uint8(math.Round(color.Blue * 255))

	var presentations []protocol.ColorPresentation
	opaque := math.Abs(color.Alpha-1.0) < 1e-6

	if opaque {
		presentations = append(presentations,
			present(fmt.Sprintf("#%02x%02x%02x", r, g, b)),
			present(fmt.Sprintf("rgb(%d, %d, %d)", r, g, b)),
		)
	} else {
		a8 := uint8(math.Round(color.Alpha * 255))
		presentations = append(presentations,
			present(fmt.Sprintf("#%02x%02x%02x%02x", r, g, b, a8)),
			present(fmt.Sprintf("rgba(%d, %d, %d, %.2f)", r, g, b, color.Alpha)),
		)
	}

	h, s, l := rgbToHSL(color.Red, color.Green, color.Blue)
	if opaque {
		presentations = append(presentations, present(fmt.Sprintf("hsl(%.0f, %.0f%%, %.0f%%)", h, s, l)))
	} else {
		presentations = append(presentations, present(fmt.Sprintf("hsla(%.0f, %.0f%%, %.0f%%, %.2f)", h, s, l, color.Alpha)))
	}

	return presentations
}

func present(label string) protocol.ColorPresentation {
	return protocol.ColorPresentation{Label: label}
}

func parseHexColor(s string) (protocol.Color, bool) {
	if len(s) == 0 || s[0] != '#' {
		return protocol.Color{}, false
	}
	hex := s[1:]

	switch len(hex) {
	case 3:
		r, ok1 := hexDigit(hex[0])
		g, ok2 := hexDigit(hex[1])
		b, ok3 := hexDigit(hex[2])
		if !ok1 || !ok2 || !ok3 {
			return protocol.Color{}, false
		}
		return makeColor(r*17, g*17, b*17, 255), true
	case 4:
		r, ok1 := hexDigit(hex[0])
		g, ok2 := hexDigit(hex[1])
		b, ok3 := hexDigit(hex[2])
		a, ok4 := hexDigit(hex[3])
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return protocol.Color{}, false
		}
		return makeColor(r*17, g*17, b*17, a*17), true
	case 6:
		r, ok1 := hexByte(hex[0], hex[1])
		g, ok2 := hexByte(hex[2], hex[3])
		b, ok3 := hexByte(hex[4], hex[5])
		if !ok1 || !ok2 || !ok3 {
			return protocol.Color{}, false
		}
		return makeColor(r, g, b, 255), true
	case 8:
		r, ok1 := hexByte(hex[0], hex[1])
		g, ok2 := hexByte(hex[2], hex[3])
		b, ok3 := hexByte(hex[4], hex[5])
		a, ok4 := hexByte(hex[6], hex[7])
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return protocol.Color{}, false
		}
		return makeColor(r, g, b, a), true
	default:
		return protocol.Color{}, false
	}
}

func makeColor(r, g, b, a uint8) protocol.Color {
	return protocol.Color{
		Red:   float64(r) / 255.0,
		Green: float64(g) / 255.0,
		Blue:  float64(b) / 255.0,
		Alpha: float64(a) / 255.0,
	}
}

func hexDigit(b byte) (uint8, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	default:
		return 0, false
	}
}

func hexByte(hi, lo byte) (uint8, bool) {
	h, ok1 := hexDigit(hi)
	l, ok2 := hexDigit(lo)
	if !ok1 || !ok2 {
		return 0, false
	}
	return h*16 + l, true
}

// rgbToHSL converts an RGB color (components in [0, 1]) to HSL, returning
// hue in degrees [0, 360) and saturation/lightness as percentages [0, 100].
func rgbToHSL(r, g, b float64) (h, s, l float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	l = (max + min) / 2.0

	if math.Abs(max-min) < 1e-9 {
		return 0, 0, l * 100
	}

	d := max - min
	if l > 0.5 {
		s = d / (2.0 - max - min)
	} else {
		s = d / (max + min)
	}

	switch {
	case math.Abs(max-r) < 1e-9:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case math.Abs(max-g) < 1e-9:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}

	return h * 60, s * 100, l * 100
}
