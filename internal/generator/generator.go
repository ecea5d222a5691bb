// Package generator turns a factory model into toolbox XML.
package generator

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/beevik/etree"

	"go-toolbox-factory/internal/model"
	"go-toolbox-factory/internal/workspace"
)

// ErrInvalidState is returned when the toolbox has entries but nothing is selected.
var ErrInvalidState = errors.New("toolbox has entries but no selection")

// Generator produces toolbox documents. It borrows the shared surface for the
// duration of a call and hands it back showing what it showed before.
type Generator struct {
	logger *slog.Logger
}

// New creates a Generator. A nil logger discards output.
func New(logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Generator{logger: logger}
}

// GenerateConfigXML builds the toolbox document rooted at <xml id="toolbox">.
//
// Without entries the live surface is exported as a flat flyout. Otherwise every
// category's saved content is loaded into the surface in turn; the surface is
// restored afterwards. The cycle runs inside one batch, so subscribers see nothing.
func (g *Generator) GenerateConfigXML(m *model.FactoryModel, s workspace.Surface) (*etree.Document, error) {
	root := etree.NewElement("xml")
	root.CreateAttr("id", "toolbox")

	err := s.Batch(func() error {
		if !m.HasEntries() {
			for _, b := range exportBlocks(m, s) {
				root.AddChild(b)
			}
			return nil
		}
		return g.generateCategories(m, s, root)
	})
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.SetRoot(root)
	doc.Indent(2)
	g.logger.Debug("Generated toolbox XML", "entries", len(m.Entries()), "topLevelNodes", len(root.ChildElements()))
	return doc, nil
}

// GenerateConfigString is GenerateConfigXML rendered to a string.
func (g *Generator) GenerateConfigString(m *model.FactoryModel, s workspace.Surface) (string, error) {
	doc, err := g.GenerateConfigXML(m, s)
	if err != nil {
		return "", err
	}
	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("serializing toolbox XML failed: %w", err)
	}
	return out, nil
}

func (g *Generator) generateCategories(m *model.FactoryModel, s workspace.Surface, root *etree.Element) (err error) {
	selected := m.Selected()
	if selected == nil || selected.Kind == model.KindFlyout {
		return fmt.Errorf("generate toolbox: %w", ErrInvalidState)
	}

	// 1. Persist the user's current work, then snapshot what the surface shows.
	if selected.IsCategory() {
		m.SaveSelectedContent(s.Save())
	}
	snapshot := s.Save()

	// 3. Always hand the surface back the way we found it.
	defer func() {
		s.Clear()
		if loadErr := s.Load(snapshot); loadErr != nil && err == nil {
			err = fmt.Errorf("restoring surface failed: %w", loadErr)
		}
		MarkShadowBlocks(m, s)
	}()

	// 2. Emit entries in toolbox order.
	for _, e := range m.Entries() {
		switch e.Kind {
		case model.KindSeparator:
			root.CreateElement("sep")
		case model.KindCategory:
			cat := root.CreateElement("category")
			cat.CreateAttr("name", e.Name)
			if e.Color != "" {
				cat.CreateAttr("colour", e.Color)
			}
			if e.CustomTag != "" {
				// Dynamic categories are filled in by the editor at runtime.
				cat.CreateAttr("custom", e.CustomTag)
				continue
			}
			s.Clear()
			if err := s.Load(e.Content); err != nil {
				return fmt.Errorf("loading category %q failed: %w", e.Name, err)
			}
			for _, b := range exportBlocks(m, s) {
				cat.AddChild(b)
			}
		}
	}
	return nil
}

// exportBlocks serializes the surface with marked blocks as true shadows and
// returns the top-level nodes without ids. The surface itself is left unchanged.
func exportBlocks(m *model.FactoryModel, s workspace.Surface) []*etree.Element {
	var converted []string
	for _, id := range m.ShadowBlockIDs() {
		// A shadow needs a parent block; top-level blocks export as they are.
		if b := s.Block(id); b == nil || model.IsTopLevel(b) {
			continue
		}
		if err := s.SetShadow(id, true); err == nil {
			converted = append(converted, id)
		}
	}
	saved := s.Save()
	for _, id := range converted {
		_ = s.SetShadow(id, false)
	}

	var blocks []*etree.Element
	for _, child := range saved.ChildElements() {
		if !model.IsBlockElement(child) {
			continue
		}
		StripIDs(child)
		blocks = append(blocks, child)
	}
	return blocks
}

// StripIDs removes the id attribute from el and every block or shadow below it.
func StripIDs(el *etree.Element) {
	if model.IsBlockElement(el) {
		el.RemoveAttr("id")
	}
	model.WalkBlocks(el, func(b *etree.Element) {
		b.RemoveAttr("id")
	})
}

// MarkShadowBlocks re-applies the visual shadow marking to every block the model
// tracks as a shadow and the surface currently holds.
func MarkShadowBlocks(m *model.FactoryModel, s workspace.Surface) {
	for _, id := range m.ShadowBlockIDs() {
		if b := s.Block(id); b != nil && !model.IsTopLevel(b) {
			_ = s.MarkShadow(id, true)
		}
	}
}
