package models

// Position is a zero-based line and UTF-16 character offset.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Before reports whether p comes strictly before o.
func (p Position) Before(o Position) bool {
	return p.Line < o.Line || (p.Line == o.Line && p.Character < o.Character)
}

// Range is a half-open span of a document.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Contains reports whether pos lies within r, both ends included.
func (r Range) Contains(pos Position) bool {
	return !pos.Before(r.Start) && !r.End.Before(pos)
}

// LinkKind identifies the syntax a link occurrence was written in.
type LinkKind string

const (
	LinkInline     LinkKind = "inline"
	LinkDefinition LinkKind = "definition"
	LinkElement    LinkKind = "element"
)

// Occurrence is one recognised link URL and its location.
type Occurrence struct {
	Kind  LinkKind `json:"kind"`
	URL   string   `json:"url"`
	Slug  string   `json:"slug"`
	Range Range    `json:"range"`
}

// PartialLink describes a link URL the user is still typing.
type PartialLink struct {
	InLink bool   `json:"in_link"`
	URL    string `json:"url,omitempty"`
	Start  int    `json:"start"`
}

// CompletionItem is a single completion candidate.
type CompletionItem struct {
	Label    string `json:"label"`
	Detail   string `json:"detail,omitempty"`
	NewText  string `json:"new_text"`
	Range    Range  `json:"range"`
	SortText string `json:"sort_text,omitempty"`
}

// Location points at a position inside a file.
type Location struct {
	Path  string `json:"path"`
	Range Range  `json:"range"`
}

// DocumentLink maps a source range to a target file.
type DocumentLink struct {
	Range  Range  `json:"range"`
	Target string `json:"target"`
}

// Hover is the formatted summary shown for a link.
type Hover struct {
	Range    Range  `json:"range"`
	Markdown string `json:"markdown"`
}
