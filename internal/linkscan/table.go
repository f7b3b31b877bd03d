package linkscan

import "github.com/starford/starlinks/internal/models"

// linkAttribute is the attribute carrying the URL on the default tags.
const linkAttribute = "href"

// defaultTags are the elements recognised without any configuration: plain
// anchors and the Starlight link card and button components.
var defaultTags = []string{"a", "LinkCard", "LinkButton"}

// Table maps tag names to the attributes that hold a link URL. It is built
// once from configuration and only read afterwards.
type Table map[string]map[string]struct{}

// NewTable returns the default table extended with custom components.
// Entries with an empty component or attribute are ignored.
func NewTable(custom []models.LinkComponent) Table {
	t := make(Table, len(defaultTags)+len(custom))
	for _, tag := range defaultTags {
		t.add(tag, linkAttribute)
	}
	for _, c := range custom {
		if c.Component == "" || c.Attribute == "" {
			continue
		}
		t.add(c.Component, c.Attribute)
	}
	return t
}

func (t Table) add(tag, attr string) {
	attrs, ok := t[tag]
	if !ok {
		attrs = make(map[string]struct{})
		t[tag] = attrs
	}
	attrs[attr] = struct{}{}
}

// Has reports whether attr on tag carries a link URL.
func (t Table) Has(tag, attr string) bool {
	_, ok := t[tag][attr]
	return ok
}

// IsTag reports whether tag is known at all.
func (t Table) IsTag(tag string) bool {
	_, ok := t[tag]
	return ok
}
