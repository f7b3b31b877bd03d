// Package textdoc converts between byte offsets and editor positions
// (zero-based line, UTF-16 character) for a document buffer.
package textdoc

import (
	"sort"
	"unicode/utf8"

	"github.com/starford/starlinks/internal/models"
)

// Doc is an immutable view over a document's text.
type Doc struct {
	text   string
	starts []int
}

// New indexes the line starts of text.
func New(text string) *Doc {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Doc{text: text, starts: starts}
}

// Text returns the underlying buffer.
func (d *Doc) Text() string { return d.text }

// LineCount returns the number of lines, counting a trailing empty line.
func (d *Doc) LineCount() int { return len(d.starts) }

// PositionAt converts a byte offset to a position. Offsets outside the
// buffer are clamped.
func (d *Doc) PositionAt(offset int) models.Position {
	offset = clamp(offset, 0, len(d.text))
	line := sort.Search(len(d.starts), func(i int) bool { return d.starts[i] > offset }) - 1
	return models.Position{
		Line:      line,
		Character: UTF16Len(d.text[d.starts[line]:offset]),
	}
}

// OffsetAt converts a position to a byte offset. Lines past the end clamp
// to the end of the buffer; characters past the end of a line clamp to the
// line end.
func (d *Doc) OffsetAt(pos models.Position) int {
	if pos.Line < 0 {
		return 0
	}
	if pos.Line >= len(d.starts) {
		return len(d.text)
	}
	start, end := d.lineBounds(pos.Line)

	units := 0
	for i := start; i < end; {
		if units >= pos.Character {
			return i
		}
		r, size := utf8.DecodeRuneInString(d.text[i:end])
		units += runeUnits(r)
		i += size
	}
	return end
}

// LinePrefix returns the text of pos's line up to pos, and the byte offset
// where the line starts.
func (d *Doc) LinePrefix(pos models.Position) (string, int) {
	offset := d.OffsetAt(pos)
	line := d.PositionAt(offset).Line
	start := d.starts[line]
	return d.text[start:offset], start
}

// lineBounds returns the byte span of a line without its line terminator.
func (d *Doc) lineBounds(line int) (int, int) {
	start := d.starts[line]
	end := len(d.text)
	if line+1 < len(d.starts) {
		end = d.starts[line+1] - 1
	}
	if end > start && d.text[end-1] == '\r' {
		end--
	}
	return start, end
}

// UTF16Len returns the length of s in UTF-16 code units.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

func runeUnits(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
