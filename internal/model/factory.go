package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// FactoryModel holds the toolbox being edited: the ordered entries, the current
// selection and the blocks the user marked as shadows.
//
// The selection is kept as a pointer to an entry, never as an index, so it
// survives reordering. It is nil, the flyout placeholder, or a member of entries.
type FactoryModel struct {
	entries        []*ListElement
	selected       *ListElement
	flyout         *ListElement
	shadowBlockIDs map[string]struct{}

	hasVariableCategory  bool
	hasProcedureCategory bool
}

// NewFactoryModel creates an empty model in single-flyout mode.
func NewFactoryModel() *FactoryModel {
	flyout := NewFlyout()
	return &FactoryModel{
		entries:        make([]*ListElement, 0),
		selected:       flyout,
		flyout:         flyout,
		shadowBlockIDs: make(map[string]struct{}),
	}
}

// AddCategory appends a new empty category and returns its id.
func (m *FactoryModel) AddCategory(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if m.HasCategoryName(name) {
		return "", fmt.Errorf("add category %q: %w", name, ErrDuplicateName)
	}
	e := NewCategory(name)
	m.entries = append(m.entries, e)
	return e.ID, nil
}

// AddSeparator appends a separator and returns its id.
func (m *FactoryModel) AddSeparator() string {
	e := NewSeparator()
	m.entries = append(m.entries, e)
	return e.ID
}

// CopyStandardCategory appends a copy of a predefined category with a fresh id.
// VARIABLE and PROCEDURE categories may appear only once.
func (m *FactoryModel) CopyStandardCategory(template *ListElement) (*ListElement, error) {
	if template == nil || !template.IsCategory() {
		return nil, fmt.Errorf("copy standard category: template is not a category")
	}
	if m.HasCategoryName(template.Name) {
		return nil, fmt.Errorf("copy standard category %q: %w", template.Name, ErrDuplicateCategory)
	}
	switch template.CustomTag {
	case CustomTagVariable:
		if m.hasVariableCategory {
			return nil, fmt.Errorf("copy standard category %q: %w", template.Name, ErrDuplicateCategory)
		}
	case CustomTagProcedure:
		if m.hasProcedureCategory {
			return nil, fmt.Errorf("copy standard category %q: %w", template.Name, ErrDuplicateCategory)
		}
	}

	e := NewCategory(template.Name)
	e.SetColor(template.Color)
	e.SetCustomTag(template.CustomTag)
	e.SaveContent(template.Content)
	m.entries = append(m.entries, e)
	m.updateCustomTags()
	return e, nil
}

// DeleteEntry removes an entry. Unknown ids are ignored.
func (m *FactoryModel) DeleteEntry(id string) {
	idx := m.IndexOf(id)
	if idx < 0 {
		return
	}
	removed := m.entries[idx]
	m.entries = append(m.entries[:idx], m.entries[idx+1:]...)
	m.updateCustomTags()

	if len(m.entries) == 0 {
		m.flyout.SaveContent(nil)
		m.selected = m.flyout
		return
	}
	if m.selected == removed {
		m.selected = nil
	}
}

// MoveEntry relocates an entry to newIndex, shifting the others.
func (m *FactoryModel) MoveEntry(id string, newIndex int) error {
	idx := m.IndexOf(id)
	if idx < 0 {
		return fmt.Errorf("move entry %s: %w", id, ErrNotFound)
	}
	if newIndex < 0 || newIndex >= len(m.entries) {
		return fmt.Errorf("move entry %s to %d: %w", id, newIndex, ErrIndexOutOfBounds)
	}
	if idx == newIndex {
		return nil
	}
	e := m.entries[idx]
	m.entries = append(m.entries[:idx], m.entries[idx+1:]...)
	m.entries = append(m.entries[:newIndex], append([]*ListElement{e}, m.entries[newIndex:]...)...)
	return nil
}

// RenameCategory changes a category's name, keeping names unique.
// Renaming a separator is a no-op.
func (m *FactoryModel) RenameCategory(id, name string) error {
	e := m.Entry(id)
	if e == nil {
		return fmt.Errorf("rename entry %s: %w", id, ErrNotFound)
	}
	if !e.IsCategory() {
		return nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	for _, other := range m.entries {
		if other != e && other.IsCategory() && strings.EqualFold(other.Name, name) {
			return fmt.Errorf("rename category to %q: %w", name, ErrDuplicateName)
		}
	}
	e.SetName(name)
	return nil
}

// SetCategoryColor changes a category's colour.
func (m *FactoryModel) SetCategoryColor(id, color string) error {
	e := m.Entry(id)
	if e == nil {
		return fmt.Errorf("set colour of %s: %w", id, ErrNotFound)
	}
	e.SetColor(strings.TrimSpace(color))
	return nil
}

// SetSelected selects the entry with the given id.
func (m *FactoryModel) SetSelected(id string) error {
	e := m.Entry(id)
	if e == nil {
		return fmt.Errorf("select %s: %w", id, ErrNotFound)
	}
	m.selected = e
	return nil
}

// ClearSelection drops the selection. With no entries left the flyout
// placeholder becomes selected again.
func (m *FactoryModel) ClearSelection() {
	if len(m.entries) == 0 {
		m.selected = m.flyout
		return
	}
	m.selected = nil
}

// Selected returns the current selection (may be nil).
func (m *FactoryModel) Selected() *ListElement {
	return m.selected
}

// Flyout returns the placeholder entry used in single-flyout mode.
func (m *FactoryModel) Flyout() *ListElement {
	return m.flyout
}

// SaveSelectedContent stores the surface state into the selected entry.
// Nothing happens for a nil selection or a separator.
func (m *FactoryModel) SaveSelectedContent(xml *etree.Element) {
	if m.selected == nil || m.selected.Kind == KindSeparator {
		return
	}
	m.selected.SaveContent(xml)
}

// Entries returns the entries in toolbox order. The slice is a copy.
func (m *FactoryModel) Entries() []*ListElement {
	out := make([]*ListElement, len(m.entries))
	copy(out, m.entries)
	return out
}

// Entry returns the entry with the given id, or nil.
func (m *FactoryModel) Entry(id string) *ListElement {
	if idx := m.IndexOf(id); idx >= 0 {
		return m.entries[idx]
	}
	return nil
}

// IndexOf returns the position of an entry, or -1.
func (m *FactoryModel) IndexOf(id string) int {
	for i, e := range m.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// HasEntries reports whether the toolbox has any category or separator.
// Without entries the model is in single-flyout mode.
func (m *FactoryModel) HasEntries() bool {
	return len(m.entries) > 0
}

// HasCategories reports whether at least one category exists.
func (m *FactoryModel) HasCategories() bool {
	for _, e := range m.entries {
		if e.IsCategory() {
			return true
		}
	}
	return false
}

// HasCategoryName reports whether a category already uses name.
// The comparison ignores case.
func (m *FactoryModel) HasCategoryName(name string) bool {
	name = strings.TrimSpace(name)
	for _, e := range m.entries {
		if e.IsCategory() && strings.EqualFold(e.Name, name) {
			return true
		}
	}
	return false
}

// CategoryNames lists category names in toolbox order.
func (m *FactoryModel) CategoryNames() []string {
	names := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		if e.IsCategory() {
			names = append(names, e.Name)
		}
	}
	return names
}

// HasVariableCategory reports whether an entry is the dynamic VARIABLE category.
func (m *FactoryModel) HasVariableCategory() bool { return m.hasVariableCategory }

// HasProcedureCategory reports whether an entry is the dynamic PROCEDURE category.
func (m *FactoryModel) HasProcedureCategory() bool { return m.hasProcedureCategory }

func (m *FactoryModel) updateCustomTags() {
	m.hasVariableCategory = false
	m.hasProcedureCategory = false
	for _, e := range m.entries {
		switch e.CustomTag {
		case CustomTagVariable:
			m.hasVariableCategory = true
		case CustomTagProcedure:
			m.hasProcedureCategory = true
		}
	}
}

// --- Shadow blocks ---

// AddShadowBlock marks a block as a user-generated shadow.
func (m *FactoryModel) AddShadowBlock(blockID string) {
	m.shadowBlockIDs[blockID] = struct{}{}
}

// RemoveShadowBlock unmarks a block.
func (m *FactoryModel) RemoveShadowBlock(blockID string) {
	delete(m.shadowBlockIDs, blockID)
}

// IsShadowBlock reports whether a block is marked as a shadow.
func (m *FactoryModel) IsShadowBlock(blockID string) bool {
	_, ok := m.shadowBlockIDs[blockID]
	return ok
}

// ShadowBlockIDs returns the marked block ids, sorted.
func (m *FactoryModel) ShadowBlockIDs() []string {
	ids := make([]string, 0, len(m.shadowBlockIDs))
	for id := range m.shadowBlockIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CollectUsedBlockTypes returns the distinct block types referenced by all
// entries plus any preloaded trees, sorted.
func (m *FactoryModel) CollectUsedBlockTypes(preloaded ...*etree.Element) []string {
	seen := make(map[string]struct{})
	collect := func(root *etree.Element) {
		WalkBlocks(root, func(b *etree.Element) {
			if t := b.SelectAttrValue("type", ""); t != "" {
				seen[t] = struct{}{}
			}
		})
	}
	for _, e := range m.entries {
		collect(e.Content)
	}
	collect(m.flyout.Content)
	for _, p := range preloaded {
		collect(p)
	}

	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Reset drops every entry and shadow mark, returning to single-flyout mode.
func (m *FactoryModel) Reset() {
	m.entries = make([]*ListElement, 0)
	m.shadowBlockIDs = make(map[string]struct{})
	m.flyout.SaveContent(nil)
	m.selected = m.flyout
	m.updateCustomTags()
}

// IsBlockElement reports whether el is a <block> or <shadow> node.
func IsBlockElement(el *etree.Element) bool {
	return el != nil && (el.Tag == "block" || el.Tag == "shadow")
}

// IsTopLevel reports whether a block node sits directly under the document
// root instead of inside another block.
func IsTopLevel(b *etree.Element) bool {
	p := b.Parent()
	return p == nil || p.Tag == "xml"
}

// WalkBlocks calls fn for every block or shadow node under root, depth first.
func WalkBlocks(root *etree.Element, fn func(*etree.Element)) {
	if root == nil {
		return
	}
	for _, child := range root.ChildElements() {
		if IsBlockElement(child) {
			fn(child)
		}
		WalkBlocks(child, fn)
	}
}
