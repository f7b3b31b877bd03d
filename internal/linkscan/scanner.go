// Package linkscan recognises link URLs in Markdown/MDX text: inline links,
// link reference definitions and URL attributes of known link elements.
package linkscan

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/starford/starlinks/internal/frontmatter"
	"github.com/starford/starlinks/internal/models"
	"github.com/starford/starlinks/internal/textdoc"
)

// Scanner finds link occurrences. It holds no per-scan state and is safe
// for concurrent use.
type Scanner struct {
	table Table
}

// New creates a scanner recognising the default link elements plus custom.
func New(custom []models.LinkComponent) *Scanner {
	return &Scanner{table: NewTable(custom)}
}

// Result is the outcome of a full-document scan. Err is set when the text
// could not be scanned; Occurrences is then empty.
type Result struct {
	Occurrences []models.Occurrence
	Err         error
}

// node is a URL found in the source, identified by its syntax kind and the
// byte span of the URL text.
type node struct {
	kind        models.LinkKind
	start, stop int
}

// span is a byte range excluded from scanning (code or an HTML comment).
type span struct {
	start, stop int
}

// Scan returns every cross-document link occurrence in text. Same-page
// fragment links ("#top") and empty URLs are skipped.
func (s *Scanner) Scan(text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("linkscan: scan: %v", r)}
		}
	}()

	nodes := s.collect([]byte(text))
	doc := textdoc.New(text)

	out := make([]models.Occurrence, 0, len(nodes))
	for _, n := range nodes {
		url := text[n.start:n.stop]
		if url == "" || strings.HasPrefix(url, "#") {
			continue
		}
		out = append(out, models.Occurrence{
			Kind: n.kind,
			URL:  url,
			Slug: StripFragment(url),
			Range: models.Range{
				Start: doc.PositionAt(n.start),
				End:   doc.PositionAt(n.stop),
			},
		})
	}
	return Result{Occurrences: out}
}

// At returns the occurrence whose range contains pos.
func (s *Scanner) At(text string, pos models.Position) (models.Occurrence, bool) {
	for _, occ := range s.Scan(text).Occurrences {
		if occ.Range.Contains(pos) {
			return occ, true
		}
	}
	return models.Occurrence{}, false
}

// StripFragment removes a "#fragment" suffix from url.
func StripFragment(url string) string {
	if i := strings.IndexByte(url, '#'); i >= 0 {
		return url[:i]
	}
	return url
}

// collect walks src line by line, skipping front matter and fenced code,
// and gathers definition and inline link nodes. HTML comments outside code
// are then found, nodes inside them dropped, and element nodes gathered
// over everything that is neither code nor comment.
func (s *Scanner) collect(src []byte) []node {
	var (
		nodes     []node
		code      []span
		inFence   bool
		fenceChar byte
		fenceLen  int
		fenceFrom int
	)

	begin := 0
	if _, bodyStart, ok := frontmatter.Split(src); ok {
		begin = bodyStart
		code = append(code, span{0, bodyStart})
	}

	for lineStart := begin; lineStart < len(src); {
		lineEnd := indexByteFrom(src, lineStart, '\n')
		line := src[lineStart:lineEnd]

		switch {
		case inFence:
			if isFenceClose(line, fenceChar, fenceLen) {
				inFence = false
				code = append(code, span{fenceFrom, lineEnd})
			}
		default:
			if ok, fc, fl := isFenceStart(line); ok {
				inFence, fenceChar, fenceLen, fenceFrom = true, fc, fl, lineStart
				break
			}
			if start, stop, ok := parseReferenceDefinition(line); ok {
				nodes = append(nodes, node{kind: models.LinkDefinition, start: lineStart + start, stop: lineStart + stop})
				break
			}
			nodes, code = scanInlineLinks(line, lineStart, nodes, code)
		}

		lineStart = lineEnd + 1
	}
	if inFence {
		code = append(code, span{fenceFrom, len(src)})
	}

	comments := commentSpans(src, code)
	if len(comments) > 0 {
		nodes = outside(nodes, comments)
	}
	skip := mergeSpans(code, comments)
	return mergeByStart(nodes, s.scanElements(src, skip))
}

// commentSpans returns the HTML comments of src that do not start inside
// code. An unterminated comment runs to the end of src.
func commentSpans(src []byte, code []span) []span {
	var out []span
	k := 0
	for i := 0; i < len(src); {
		for k < len(code) && code[k].stop <= i {
			k++
		}
		if k < len(code) && code[k].start <= i {
			i = code[k].stop
			continue
		}
		if src[i] != '<' || !bytes.HasPrefix(src[i:], commentOpen) {
			i++
			continue
		}
		end := len(src)
		if n := bytes.Index(src[i+len(commentOpen):], commentClose); n >= 0 {
			end = i + len(commentOpen) + n + len(commentClose)
		}
		out = append(out, span{i, end})
		i = end
	}
	return out
}

var (
	commentOpen  = []byte("<!--")
	commentClose = []byte("-->")
)

// outside drops the nodes that start inside one of spans. Both lists are
// sorted by start offset.
func outside(nodes []node, spans []span) []node {
	out := nodes[:0]
	k := 0
	for _, n := range nodes {
		for k < len(spans) && spans[k].stop <= n.start {
			k++
		}
		if k < len(spans) && spans[k].start <= n.start {
			continue
		}
		out = append(out, n)
	}
	return out
}

// mergeSpans merges two span lists that are each sorted by start offset.
func mergeSpans(a, b []span) []span {
	out := make([]span, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].start <= b[j].start {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

func indexByteFrom(src []byte, from int, c byte) int {
	for i := from; i < len(src); i++ {
		if src[i] == c {
			return i
		}
	}
	return len(src)
}

// mergeByStart merges two node lists that are each sorted by start offset.
func mergeByStart(a, b []node) []node {
	out := make([]node, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].start <= b[j].start {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
