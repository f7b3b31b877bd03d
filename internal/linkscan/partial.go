package linkscan

import (
	"regexp"

	"github.com/starford/starlinks/internal/models"
	"github.com/starford/starlinks/internal/textdoc"
)

var (
	// partialInlineRe matches a line prefix ending inside an inline link
	// destination: "See [the guide](/gui".
	partialInlineRe = regexp.MustCompile(`\[[^\]]*\]\(([^)]*)$`)

	// partialAttrRe matches a line prefix ending inside a quoted attribute
	// value of an opening tag: `<LinkCard title="x" href="/gui`.
	partialAttrRe = regexp.MustCompile(`<([A-Za-z][\w.:-]*)\b[^<>]*?\s([\w:-]+)\s*=\s*["']([^"']*)$`)
)

// Partial reports whether linePrefix, the text of a line up to the cursor,
// ends inside a not yet closed link URL. Start is the UTF-16 column where
// the URL text begins.
func (s *Scanner) Partial(linePrefix string) models.PartialLink {
	if m := partialInlineRe.FindStringSubmatchIndex(linePrefix); m != nil {
		return models.PartialLink{
			InLink: true,
			URL:    linePrefix[m[2]:m[3]],
			Start:  textdoc.UTF16Len(linePrefix[:m[2]]),
		}
	}
	if m := partialAttrRe.FindStringSubmatchIndex(linePrefix); m != nil {
		tag, attr := linePrefix[m[2]:m[3]], linePrefix[m[4]:m[5]]
		if s.table.Has(tag, attr) {
			return models.PartialLink{
				InLink: true,
				URL:    linePrefix[m[6]:m[7]],
				Start:  textdoc.UTF16Len(linePrefix[:m[6]]),
			}
		}
	}
	return models.PartialLink{}
}
