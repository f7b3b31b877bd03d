package linkscan

import (
	"bytes"

	"github.com/yuin/goldmark/util"

	"github.com/starford/starlinks/internal/models"
)

// bracket is an unmatched "[" on the current line.
type bracket struct {
	pos   int
	image bool
}

// scanInlineLinks appends the inline links of line to nodes. Code spans on
// the line are appended to code so element scanning can skip them.
func scanInlineLinks(line []byte, lineStart int, nodes []node, code []span) ([]node, []span) {
	stack := make([]bracket, 0, 4)

	for i := 0; i < len(line); {
		c := line[i]

		switch {
		case c == '\\' && i+1 < len(line) && util.IsPunct(line[i+1]):
			i += 2
			continue
		case c == '`':
			run := countRun(line, i, '`')
			if end := findCodeSpanClose(line, i+run, run); end >= 0 {
				code = append(code, span{lineStart + i, lineStart + end})
				i = end
				continue
			}
			i += run
			continue
		case c == '!' && i+1 < len(line) && line[i+1] == '[':
			stack = append(stack, bracket{pos: i + 1, image: true})
			i += 2
			continue
		case c == '[':
			stack = append(stack, bracket{pos: i})
			i++
			continue
		case c == ']':
			if len(stack) == 0 {
				i++
				continue
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if i+1 < len(line) && line[i+1] == '(' {
				start, stop, end, ok := parseInlineDestination(line, i+2)
				if ok {
					if !open.image {
						nodes = append(nodes, node{kind: models.LinkInline, start: lineStart + start, stop: lineStart + stop})
						// Links cannot contain other links.
						stack = stack[:0]
					}
					i = end
					continue
				}
			}
		}
		i++
	}
	return nodes, code
}

// findCodeSpanClose returns the offset just past the backtick run of length
// run that closes a code span opened before pos, or -1.
func findCodeSpanClose(line []byte, pos, run int) int {
	for i := pos; i < len(line); {
		if line[i] != '`' {
			i++
			continue
		}
		n := countRun(line, i, '`')
		if n == run {
			return i + n
		}
		i += n
	}
	return -1
}

func parseInlineDestination(line []byte, pos int) (start, stop, end int, ok bool) {
	pos = skipSpaces(line, pos)
	if pos >= len(line) {
		return 0, 0, 0, false
	}
	if line[pos] == ')' {
		return pos, pos, pos + 1, true
	}
	destStart, destStop, after, ok := parseDestination(line, pos)
	if !ok {
		return 0, 0, 0, false
	}
	end, ok = parseTitleAndClose(line, after)
	if !ok {
		return 0, 0, 0, false
	}
	return destStart, destStop, end, true
}

// parseReferenceDefinition recognises `[label]: destination "title"` and
// returns the byte span of the destination.
func parseReferenceDefinition(line []byte) (start, stop int, ok bool) {
	width, pos := util.IndentWidth(line, 0)
	if width > 3 || pos >= len(line) || line[pos] != '[' {
		return 0, 0, false
	}
	labelEnd := findLabelEnd(line, pos+1)
	if labelEnd < 0 || util.IsBlank(line[pos+1:labelEnd]) {
		return 0, 0, false
	}
	if labelEnd+1 >= len(line) || line[labelEnd+1] != ':' {
		return 0, 0, false
	}
	destStart, destStop, after, ok := parseDestination(line, labelEnd+2)
	if !ok {
		return 0, 0, false
	}
	after, spaces := skipSpacesCount(line, after)
	if after >= len(line) {
		return destStart, destStop, true
	}
	opener := line[after]
	if opener != '"' && opener != '\'' && opener != '(' {
		return 0, 0, false
	}
	if spaces == 0 {
		return 0, 0, false
	}
	end, ok := parseTitle(line, after)
	if !ok || !util.IsBlank(line[end:]) {
		return 0, 0, false
	}
	return destStart, destStop, true
}

// parseDestination returns the destination span starting at pos. For the
// `<...>` form the span excludes the angle brackets.
func parseDestination(line []byte, pos int) (start, stop, after int, ok bool) {
	pos = skipSpaces(line, pos)
	if pos >= len(line) {
		return 0, 0, 0, false
	}
	if line[pos] == '<' {
		for i := pos + 1; i < len(line); i++ {
			switch line[i] {
			case '\\':
				if i+1 < len(line) && util.IsPunct(line[i+1]) {
					i++
				}
			case '<', '\n':
				return 0, 0, 0, false
			case '>':
				return pos + 1, i, i + 1, true
			}
		}
		return 0, 0, 0, false
	}
	opened := 0
	i := pos
loop:
	for i < len(line) {
		c := line[i]
		switch {
		case c == '\\' && i+1 < len(line) && util.IsPunct(line[i+1]):
			i += 2
			continue
		case c == '(':
			opened++
		case c == ')':
			opened--
			if opened < 0 {
				break loop
			}
		case util.IsSpace(c):
			break loop
		}
		i++
	}
	if i == pos {
		return 0, 0, 0, false
	}
	return pos, i, i, true
}

func parseTitleAndClose(line []byte, pos int) (end int, ok bool) {
	pos = skipSpaces(line, pos)
	if pos >= len(line) {
		return 0, false
	}
	if line[pos] == ')' {
		return pos + 1, true
	}
	opener := line[pos]
	if opener != '"' && opener != '\'' && opener != '(' {
		return 0, false
	}
	end, ok = parseTitle(line, pos)
	if !ok {
		return 0, false
	}
	end = skipSpaces(line, end)
	if end < len(line) && line[end] == ')' {
		return end + 1, true
	}
	return 0, false
}

func parseTitle(line []byte, pos int) (end int, ok bool) {
	closer := line[pos]
	if closer == '(' {
		closer = ')'
	}
	for i := pos + 1; i < len(line); i++ {
		c := line[i]
		if c == '\\' && i+1 < len(line) && util.IsPunct(line[i+1]) {
			i++
			continue
		}
		if c == closer {
			return i + 1, true
		}
	}
	return 0, false
}

func findLabelEnd(line []byte, pos int) int {
	for i := pos; i < len(line); i++ {
		switch line[i] {
		case '\\':
			if i+1 < len(line) && util.IsPunct(line[i+1]) {
				i++
			}
		case '[':
			return -1
		case ']':
			return i
		}
	}
	return -1
}

func countRun(line []byte, pos int, c byte) int {
	i := pos
	for i < len(line) && line[i] == c {
		i++
	}
	return i - pos
}

func skipSpaces(line []byte, pos int) int {
	for pos < len(line) && util.IsSpace(line[pos]) {
		pos++
	}
	return pos
}

func skipSpacesCount(line []byte, pos int) (newPos, count int) {
	for pos < len(line) && util.IsSpace(line[pos]) {
		pos++
		count++
	}
	return pos, count
}

func isFenceStart(line []byte) (ok bool, fenceChar byte, fenceLen int) {
	width, pos := util.IndentWidth(line, 0)
	if width > 3 || pos >= len(line) {
		return false, 0, 0
	}
	c := line[pos]
	if c != '`' && c != '~' {
		return false, 0, 0
	}
	run := countRun(line, pos, c)
	if run < 3 {
		return false, 0, 0
	}
	if c == '`' && bytes.IndexByte(line[pos+run:], '`') >= 0 {
		return false, 0, 0
	}
	return true, c, run
}

func isFenceClose(line []byte, fenceChar byte, fenceLen int) bool {
	width, pos := util.IndentWidth(line, 0)
	if width > 3 || pos >= len(line) {
		return false
	}
	run := countRun(line, pos, fenceChar)
	if run < fenceLen {
		return false
	}
	return util.IsBlank(line[pos+run:])
}
