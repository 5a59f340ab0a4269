// Package lineindex translates between byte offsets into a document's UTF-8
// text and LSP positions, which count columns in UTF-16 code units.
package lineindex

import (
	"sort"
)

// LineIndex is an ordered sequence of byte offsets, one per line start.
// Entry 0 is always 0.
type LineIndex struct {
	text   []byte
	starts []int
}

// Build scans text once and records the byte offset of every line start.
func Build(text []byte) *LineIndex {
	starts := make([]int, 1, 16)
	starts[0] = 0
	for i, b := range text {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{text: text, starts: starts}
}

// Len reports the number of lines recorded.
func (li *LineIndex) Len() int { return len(li.starts) }

// lineStart returns the byte offset of the start of the given line,
// clamped to the valid range.
func (li *LineIndex) lineStart(line int) int {
	if line < 0 {
		return li.starts[0]
	}
	if line >= len(li.starts) {
		return li.starts[len(li.starts)-1]
	}
	return li.starts[line]
}

// lineEnd returns the byte offset one past the end of the given line's
// content, not including its trailing newline.
func (li *LineIndex) lineEnd(line int) int {
	start := li.lineStart(line)
	if line+1 < len(li.starts) {
		end := li.starts[line+1] - 1 // exclude the '\n'
		if end < start {
			end = start
		}
		return end
	}
	return len(li.text)
}

// OffsetToPosition converts a byte offset into (line, utf16-column).
// The offset is clamped to [0, len(text)].
func (li *LineIndex) OffsetToPosition(offset int) (line, utf16Col int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(li.text) {
		offset = len(li.text)
	}

	// Greatest starting offset <= offset.
	line = sort.Search(len(li.starts), func(i int) bool {
		return li.starts[i] > offset
	}) - 1
	if line < 0 {
		line = 0
	}

	start := li.starts[line]
	utf16Col = utf16Len(li.text[start:offset])
	return line, utf16Col
}

// PositionToOffset converts (line, utf16-column) into a byte offset.
// If the column exceeds the line's UTF-16 length, it saturates to the
// end of the line (not including the newline).
func (li *LineIndex) PositionToOffset(line, utf16Col int) int {
	if line < 0 {
		line = 0
	}
	start := li.lineStart(line)
	end := li.lineEnd(line)
	lineBytes := li.text[start:end]

	if utf16Col <= 0 {
		return start
	}

	col := 0
	for i := 0; i < len(lineBytes); {
		r, size := decodeRune(lineBytes[i:])
		width := 1
		if r > 0xFFFF {
			width = 2 // surrogate pair
		}
		if col+width > utf16Col {
			return start + i
		}
		col += width
		i += size
		if col >= utf16Col {
			return start + i
		}
	}
	return start + len(lineBytes)
}

// Update splices out the line starts covering oldRange and splices in the
// line starts implied by newText, shifting every later entry by the
// signed byte delta. oldRange is a [start, end) byte range into the text
// as it was *before* the edit; newText is the replacement text.
//
// Callers are expected to call Update with the same text that was used to
// build the index, or to call Build again; Update only maintains the
// offsets, it does not retain a copy of the full new text beyond what it
// needs to recompute inserted line starts.
func (li *LineIndex) Update(oldStart, oldEnd int, newText []byte, fullNewText []byte) {
	delta := len(newText) - (oldEnd - oldStart)

	// Index of the first line start strictly after oldStart, and one past
	// the last line start at or before oldEnd.
	firstAffected := sort.Search(len(li.starts), func(i int) bool {
		return li.starts[i] > oldStart
	})
	lastAffected := sort.Search(len(li.starts), func(i int) bool {
		return li.starts[i] > oldEnd
	})

	inserted := make([]int, 0, 4)
	for i, b := range newText {
		if b == '\n' {
			inserted = append(inserted, oldStart+i+1)
		}
	}

	kept := make([]int, 0, len(li.starts)-(lastAffected-firstAffected)+len(inserted))
	kept = append(kept, li.starts[:firstAffected]...)
	kept = append(kept, inserted...)
	for _, s := range li.starts[lastAffected:] {
		kept = append(kept, s+delta)
	}
	li.starts = kept
	li.text = fullNewText
}

func utf16Len(b []byte) int {
	n := 0
	for i := 0; i < len(b); {
		r, size := decodeRune(b[i:])
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
		i += size
	}
	return n
}

// decodeRune is a small UTF-8 decoder tuned for line-local slices; it never
// needs to handle invalid UTF-8 since Document guarantees text is valid.
func decodeRune(b []byte) (r rune, size int) {
	if len(b) == 0 {
		return 0, 0
	}
	c := b[0]
	switch {
	case c < 0x80:
		return rune(c), 1
	case c&0xE0 == 0xC0 && len(b) >= 2:
		return rune(c&0x1F)<<6 | rune(b[1]&0x3F), 2
	case c&0xF0 == 0xE0 && len(b) >= 3:
		return rune(c&0x0F)<<12 | rune(b[1]&0x3F)<<6 | rune(b[2]&0x3F), 3
	case c&0xF8 == 0xF0 && len(b) >= 4:
		return rune(c&0x07)<<18 | rune(b[1]&0x3F)<<12 | rune(b[2]&0x3F)<<6 | rune(b[3]&0x3F), 4
	default:
		return rune(c), 1
	}
}
