// Package slug derives canonical document slugs from content paths and
// URL-safe fragment identifiers from heading text.
package slug

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Make converts text to a fragment identifier without any de-duplication:
// NFC-normalised, lowercased, stripped of everything but letters, marks,
// digits, '-' and '_', with whitespace runs collapsed to a single '-' and
// surrounding hyphens trimmed.
func Make(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	pendingDash := false
	for _, r := range strings.ToLower(norm.NFC.String(text)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r), r == '-', r == '_':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingDash = true
		}
	}

	return strings.Trim(b.String(), "-")
}

// Slugger hands out heading identifiers that are unique within one
// document pass. The zero value is ready to use.
type Slugger struct {
	counts map[string]int
	seen   map[string]struct{}
}

// Reset forgets every identifier handed out so far.
func (s *Slugger) Reset() {
	s.counts = make(map[string]int)
	s.seen = make(map[string]struct{})
}

// Slug returns the identifier for text. The first occurrence of a base
// identifier is returned as is, later ones get "-2", "-3", ... appended.
func (s *Slugger) Slug(text string) string {
	if s.seen == nil {
		s.Reset()
	}

	base := Make(text)
	n := s.counts[base]
	id := base
	for {
		if n > 0 {
			id = base + "-" + strconv.Itoa(n+1)
		}
		if _, taken := s.seen[id]; !taken {
			break
		}
		n++
	}

	s.counts[base] = n + 1
	s.seen[id] = struct{}{}
	return id
}
