package model

import (
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
)

// Kind identifies what a toolbox entry represents.
type Kind string

const (
	KindCategory  Kind = "category"
	KindSeparator Kind = "separator"
	KindFlyout    Kind = "flyout" // Placeholder selected while the toolbox has no entries
)

// Custom tags marking the dynamic standard categories.
const (
	CustomTagVariable  = "VARIABLE"
	CustomTagProcedure = "PROCEDURE"
)

// ListElement is a single toolbox entry: a category, a separator, or the flyout placeholder.
type ListElement struct {
	Kind      Kind           `json:"kind"`
	ID        string         `json:"id"`
	Name      string         `json:"name,omitempty"`   // Categories only
	Content   *etree.Element `json:"-"`                // Saved blocks, rooted at <xml>
	Color     string         `json:"colour,omitempty"` // Categories only
	CustomTag string         `json:"custom,omitempty"` // VARIABLE, PROCEDURE or empty
}

func newElement(kind Kind, name string) *ListElement {
	return &ListElement{
		Kind:    kind,
		ID:      uuid.NewString(),
		Name:    name,
		Content: EmptyContent(),
	}
}

// NewCategory creates a category entry with empty content.
func NewCategory(name string) *ListElement {
	return newElement(KindCategory, name)
}

// NewSeparator creates a separator entry.
func NewSeparator() *ListElement {
	return newElement(KindSeparator, "")
}

// NewFlyout creates the placeholder entry used in single-flyout mode.
func NewFlyout() *ListElement {
	return newElement(KindFlyout, "")
}

// EmptyContent returns an empty <xml/> tree.
func EmptyContent() *etree.Element {
	return etree.NewElement("xml")
}

// IsCategory reports whether the entry is a category.
func (e *ListElement) IsCategory() bool {
	return e != nil && e.Kind == KindCategory
}

// SetName changes the display name. No-op for anything but a category.
func (e *ListElement) SetName(name string) {
	if !e.IsCategory() {
		return
	}
	e.Name = name
}

// SetColor changes the category colour. No-op for anything but a category.
func (e *ListElement) SetColor(color string) {
	if !e.IsCategory() {
		return
	}
	e.Color = color
}

// SetCustomTag marks the category as a standard dynamic category.
// No-op for anything but a category.
func (e *ListElement) SetCustomTag(tag string) {
	if !e.IsCategory() {
		return
	}
	e.CustomTag = tag
}

// SaveContent stores a deep copy of the given tree as the entry's content.
// A nil tree resets the content to an empty document.
func (e *ListElement) SaveContent(xml *etree.Element) {
	if xml == nil {
		e.Content = EmptyContent()
		return
	}
	e.Content = xml.Copy()
}

// ContentString renders the saved content as compact XML.
func (e *ListElement) ContentString() string {
	if e.Content == nil {
		return "<xml/>"
	}
	doc := etree.NewDocument()
	doc.SetRoot(e.Content.Copy())
	s, err := doc.WriteToString()
	if err != nil {
		return "<xml/>"
	}
	return s
}

// ExportInfo is the manifest written next to every exported toolbox file.
type ExportInfo struct {
	Name       string    `json:"name"`       // User-facing export name
	File       string    `json:"file"`       // XML file name relative to the export directory
	CreatedAt  time.Time `json:"createdAt"`
	Categories int       `json:"categories"` // Number of category entries at export time
	BlockTypes []string  `json:"blockTypes,omitempty"`
}
