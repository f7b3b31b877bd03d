// Package fragments lists the addressable anchors of a Markdown/MDX document:
// the synthetic top anchor, heading identifiers and explicit id attributes.
package fragments

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/starford/starlinks/internal/frontmatter"
	"github.com/starford/starlinks/internal/models"
	"github.com/starford/starlinks/internal/slug"
)

// idAttrRe matches an id attribute with a quoted value inside raw HTML.
var idAttrRe = regexp.MustCompile(`(?:^|[\s<])id\s*=\s*(?:"([^"]*)"|'([^']*)')`)

// componentOpenRe matches a line holding only the opening tag of an MDX
// component. The lines that follow are Markdown children of the component.
var componentOpenRe = regexp.MustCompile(`^\s*<[A-Z][\w.]*(?:\s[^>]*)?>\s*$`)

// Extract returns the fragments of content in document order. The first
// fragment is always the top anchor. Heading identifiers are de-duplicated
// per call; explicit ids are taken verbatim.
func Extract(content []byte) []models.Fragment {
	src := content
	if _, bodyStart, ok := frontmatter.Split(content); ok {
		src = content[bodyStart:]
	}

	var slugger slug.Slugger
	return walk(src, &slugger, []models.Fragment{{Slug: models.TopFragment}})
}

// walk parses src and appends its fragments to out.
func walk(src []byte, slugger *slug.Slugger, out []models.Fragment) []models.Fragment {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			var b strings.Builder
			headingText(node, src, &b)
			label := strings.TrimSpace(b.String())
			if label != "" {
				out = append(out, models.Fragment{Label: label, Slug: slugger.Slug(label)})
			}
		case *ast.HTMLBlock:
			out = htmlBlock(node, src, slugger, out)
		case *ast.RawHTML:
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				out = appendIDs(out, seg.Value(src))
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.CodeSpan:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return out
}

// htmlBlock appends the explicit ids of an HTML block. A block opened by a
// component tag runs until the next blank line and swallows the component's
// Markdown children, so the lines after the tag are walked again as Markdown.
func htmlBlock(node *ast.HTMLBlock, src []byte, slugger *slug.Slugger, out []models.Fragment) []models.Fragment {
	lines := node.Lines()
	if lines.Len() == 0 {
		return out
	}
	firstSeg := lines.At(0)
	first := firstSeg.Value(src)
	if !isComponentOpen(first) {
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			out = appendIDs(out, seg.Value(src))
		}
		if node.HasClosure() {
			out = appendIDs(out, node.ClosureLine.Value(src))
		}
		return out
	}

	out = appendIDs(out, first)
	var body []byte
	for i := 1; i < lines.Len(); i++ {
		seg := lines.At(i)
		body = appendLine(body, seg.Value(src))
	}
	if node.HasClosure() {
		body = appendLine(body, node.ClosureLine.Value(src))
	}
	if len(body) == 0 {
		return out
	}
	return walk(body, slugger, out)
}

func isComponentOpen(line []byte) bool {
	return componentOpenRe.Match(line) && !bytes.HasSuffix(bytes.TrimSpace(line), []byte("/>"))
}

func appendLine(dst, line []byte) []byte {
	dst = append(dst, line...)
	if !bytes.HasSuffix(line, []byte("\n")) {
		dst = append(dst, '\n')
	}
	return dst
}

// ExtractFile reads path and returns its fragments.
func ExtractFile(path string) ([]models.Fragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fragments: read %s: %w", path, err)
	}
	return Extract(data), nil
}

// headingText writes the rendered text of n's inline children to b.
// Backslash escapes and character references are resolved outside code
// spans.
func headingText(n ast.Node, src []byte, b *strings.Builder) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(resolveText(t.Segment.Value(src)))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.CodeSpan:
			for cc := t.FirstChild(); cc != nil; cc = cc.NextSibling() {
				if txt, ok := cc.(*ast.Text); ok {
					b.Write(txt.Segment.Value(src))
				}
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.RawHTML:
		default:
			headingText(c, src, b)
		}
	}
}

func resolveText(v []byte) []byte {
	v = util.UnescapePunctuations(v)
	v = util.ResolveNumericReferences(v)
	return util.ResolveEntityNames(v)
}

func appendIDs(out []models.Fragment, raw []byte) []models.Fragment {
	for _, m := range idAttrRe.FindAllSubmatch(raw, -1) {
		id := m[1]
		if id == nil {
			id = m[2]
		}
		if len(id) > 0 {
			out = append(out, models.Fragment{Slug: string(id)})
		}
	}
	return out
}
