// Package frontmatter locates and decodes the YAML front matter block at
// the start of a Markdown/MDX document.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// chunkSize is how much of a file is read at a time while looking for the
// closing delimiter.
const chunkSize = 1024

const delim = "---"

// Data holds the front matter fields the link index cares about.
type Data struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Slug        string `yaml:"slug"`
}

type state int

const (
	stateMore state = iota
	stateNone
	stateFound
)

// Split returns the YAML between the leading "---" delimiter lines and the
// offset of the first body byte. ok is false when data has no front matter.
func Split(data []byte) (block []byte, bodyStart int, ok bool) {
	block, bodyStart, st := split(data, true)
	return block, bodyStart, st == stateFound
}

// Parse decodes a front matter block.
func Parse(block []byte) (*Data, error) {
	var d Data
	if err := yaml.Unmarshal(block, &d); err != nil {
		return nil, fmt.Errorf("frontmatter: parse: %w", err)
	}
	return &d, nil
}

// Read consumes r in fixed-size chunks until both delimiter lines have been
// seen, then parses the captured prefix.
func Read(r io.Reader) (*Data, error) {
	var buf []byte
	chunk := make([]byte, chunkSize)

	for {
		n, readErr := r.Read(chunk)
		buf = append(buf, chunk[:n]...)

		atEOF := errors.Is(readErr, io.EOF)
		if readErr != nil && !atEOF {
			return nil, readErr
		}

		block, _, st := split(buf, atEOF)
		switch st {
		case stateFound:
			return Parse(block)
		case stateNone:
			return nil, nil
		}
		if atEOF {
			return nil, nil
		}
	}
}

// split scans data line by line. When atEOF is false an unterminated last
// line is treated as incomplete.
func split(data []byte, atEOF bool) ([]byte, int, state) {
	pos := 0
	for pos < len(data) && (data[pos] == '\n' || data[pos] == '\r') {
		pos++
	}

	line, next, complete := lineAt(data, pos)
	if !complete && !atEOF {
		if len(bytes.TrimSpace(line)) > len(delim) || !bytes.HasPrefix([]byte(delim), bytes.TrimSpace(line)) {
			return nil, 0, stateNone
		}
		return nil, 0, stateMore
	}
	if !isDelimiter(line) {
		return nil, 0, stateNone
	}

	blockStart := next
	for p := blockStart; p < len(data); {
		line, next, complete := lineAt(data, p)
		if !complete && !atEOF {
			break
		}
		if isDelimiter(line) {
			return data[blockStart:p], next, stateFound
		}
		p = next
	}

	if atEOF {
		return nil, 0, stateNone
	}
	return nil, 0, stateMore
}

// lineAt returns the line starting at pos without its terminator, the
// offset of the next line and whether a newline terminated it.
func lineAt(data []byte, pos int) ([]byte, int, bool) {
	if pos >= len(data) {
		return nil, len(data), false
	}
	i := bytes.IndexByte(data[pos:], '\n')
	if i < 0 {
		return data[pos:], len(data), false
	}
	return data[pos : pos+i], pos + i + 1, true
}

func isDelimiter(line []byte) bool {
	return string(bytes.TrimSpace(line)) == delim
}
