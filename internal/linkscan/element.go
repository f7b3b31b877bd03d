package linkscan

import (
	"bytes"

	"github.com/yuin/goldmark/util"

	"github.com/starford/starlinks/internal/models"
)

// scanElements finds URL attributes of known tags anywhere outside the skip
// spans (code and comments). A tag may span several lines. skip must be
// sorted by start offset.
func (s *Scanner) scanElements(src []byte, skip []span) []node {
	var nodes []node
	k := 0
	for i := 0; i < len(src); {
		for k < len(skip) && skip[k].stop <= i {
			k++
		}
		if k < len(skip) && skip[k].start <= i {
			i = skip[k].stop
			continue
		}
		if src[i] != '<' {
			i++
			continue
		}
		nameEnd := tagNameEnd(src, i+1)
		if nameEnd == i+1 {
			i++
			continue
		}
		tag := string(src[i+1 : nameEnd])
		if !s.table.IsTag(tag) {
			i = nameEnd
			continue
		}
		found, end, ok := s.scanAttributes(src, nameEnd, tag)
		if !ok {
			// Not a tag after all; resume right after the name.
			i = nameEnd
			continue
		}
		nodes = append(nodes, found...)
		i = end
	}
	return nodes
}

// scanAttributes parses the attributes of an opening tag from pos. It
// returns the URL nodes and the offset after the closing '>', or ok=false
// when the text from pos does not form a tag: it hits a blank line, a '<',
// an invalid attribute name or the end of input first.
func (s *Scanner) scanAttributes(src []byte, pos int, tag string) (nodes []node, end int, ok bool) {
	i := pos
	for {
		var blank bool
		if i, blank = skipTagSpace(src, i); blank || i >= len(src) {
			return nil, 0, false
		}
		switch src[i] {
		case '>':
			return nodes, i + 1, true
		case '<':
			return nil, 0, false
		case '/':
			i++
			continue
		case '{':
			i = skipExpression(src, i)
			continue
		}

		nameStart := i
		for i < len(src) && !isAttrNameEnd(src[i]) {
			i++
		}
		if i == nameStart || !isAttrName(src[nameStart:i]) {
			return nil, 0, false
		}
		name := string(src[nameStart:i])

		j, blank := skipTagSpace(src, i)
		if blank {
			return nil, 0, false
		}
		if j >= len(src) || src[j] != '=' {
			i = j
			continue
		}
		if j, blank = skipTagSpace(src, j+1); blank || j >= len(src) {
			return nil, 0, false
		}

		var start, stop int
		switch src[j] {
		case '"', '\'':
			n := bytes.IndexByte(src[j+1:], src[j])
			if n < 0 {
				return nil, 0, false
			}
			start, stop = j+1, j+1+n
			i = stop + 1
		case '{':
			var lit bool
			start, stop, lit = stringExpression(src, j)
			i = skipExpression(src, j)
			if !lit {
				continue
			}
		default:
			start = j
			for j < len(src) && !util.IsSpace(src[j]) && src[j] != '>' && src[j] != '<' {
				j++
			}
			stop = j
			i = j
		}
		if s.table.Has(tag, name) {
			nodes = append(nodes, node{kind: models.LinkElement, start: start, stop: stop})
		}
	}
}

func tagNameEnd(src []byte, pos int) int {
	if pos >= len(src) || !isLetter(src[pos]) {
		return pos
	}
	i := pos + 1
	for i < len(src) {
		c := src[i]
		if !isLetter(c) && !(c >= '0' && c <= '9') && c != '.' && c != '-' && c != '_' && c != ':' {
			break
		}
		i++
	}
	return i
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isAttrNameEnd(c byte) bool {
	switch c {
	case '=', '>', '/', '"', '\'', '{', '<':
		return true
	}
	return util.IsSpace(c)
}

// isAttrName reports whether name can be a JSX or HTML attribute name.
func isAttrName(name []byte) bool {
	if !isLetter(name[0]) && name[0] != '_' && name[0] != ':' {
		return false
	}
	for _, c := range name[1:] {
		if !isLetter(c) && !(c >= '0' && c <= '9') && c != '-' && c != '_' && c != ':' && c != '.' {
			return false
		}
	}
	return true
}

// skipTagSpace skips whitespace inside a tag and reports whether it crossed
// a blank line, which ends any tag.
func skipTagSpace(src []byte, pos int) (int, bool) {
	newlines := 0
	for pos < len(src) && util.IsSpace(src[pos]) {
		if src[pos] == '\n' {
			newlines++
			if newlines > 1 {
				return pos, true
			}
		}
		pos++
	}
	return pos, false
}

func skipWhitespace(src []byte, pos int) int {
	for pos < len(src) && util.IsSpace(src[pos]) {
		pos++
	}
	return pos
}

// skipExpression returns the offset after the JSX expression opened at pos,
// honouring nested braces and string literals.
func skipExpression(src []byte, pos int) int {
	depth := 0
	for i := pos; i < len(src); i++ {
		switch c := src[i]; c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		case '"', '\'', '`':
			end := bytes.IndexByte(src[i+1:], c)
			if end < 0 {
				return len(src)
			}
			i += end + 1
		}
	}
	return len(src)
}

// stringExpression recognises a JSX expression holding only a string
// literal, like {"/guides/"}, and returns the span of the literal's text.
func stringExpression(src []byte, pos int) (start, stop int, ok bool) {
	i := skipWhitespace(src, pos+1)
	if i >= len(src) {
		return 0, 0, false
	}
	q := src[i]
	if q != '"' && q != '\'' && q != '`' {
		return 0, 0, false
	}
	end := bytes.IndexByte(src[i+1:], q)
	if end < 0 {
		return 0, 0, false
	}
	start, stop = i+1, i+1+end
	j := skipWhitespace(src, stop+1)
	if j >= len(src) || src[j] != '}' {
		return 0, 0, false
	}
	return start, stop, true
}
