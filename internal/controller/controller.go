// Package controller drives the toolbox editor: it owns the selection state
// machine, moves content between the model and the shared editing surface, and
// keeps the view and the XML preview up to date.
package controller

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"go-toolbox-factory/internal/generator"
	"go-toolbox-factory/internal/model"
	"go-toolbox-factory/internal/workspace"
)

// Controller coordinates one editing session. It is not safe for concurrent
// use; callers serialize access.
type Controller struct {
	model     *model.FactoryModel
	surface   workspace.Surface
	generator *generator.Generator
	view      View
	prompter  Prompter
	logger    *slog.Logger

	depth       int  // Nesting of controller-driven transitions
	switched    bool // Selection changed during the current transition
	preview     string
	unsubscribe func()
}

// New wires a controller to a model and a surface. A nil view or logger is
// replaced by a no-op; a nil prompter cancels every name prompt and accepts
// every confirmation.
func New(m *model.FactoryModel, s workspace.Surface, view View, prompter Prompter, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if view == nil {
		view = noopView{}
	}
	if prompter == nil {
		prompter = &AnswerPrompter{Accept: true}
	}
	c := &Controller{
		model:     m,
		surface:   s,
		generator: generator.New(logger),
		view:      view,
		prompter:  prompter,
		logger:    logger,
	}
	c.unsubscribe = s.Subscribe(c.onSurfaceEvent)
	c.UpdatePreview()
	return c
}

// Close detaches the controller from the surface.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// SetPrompter swaps the prompter, returning the previous one.
func (c *Controller) SetPrompter(p Prompter) Prompter {
	old := c.prompter
	if p != nil {
		c.prompter = p
	}
	return old
}

func (c *Controller) Model() *model.FactoryModel  { return c.model }
func (c *Controller) Surface() workspace.Surface { return c.surface }

func (c *Controller) onSurfaceEvent(ev workspace.Event) {
	if c.depth > 0 {
		return
	}
	c.logger.Debug("Surface changed", "event", ev.Kind, "blockID", ev.BlockID)
	if ev.Kind == workspace.EventUndo {
		c.reconcileShadows()
	}
	c.UpdatePreview()
}

// transition runs fn as one atomic step: surface events are ignored while it
// runs and a single preview regeneration follows.
func (c *Controller) transition(fn func() error) error {
	c.depth++
	err := c.surface.Batch(fn)
	c.depth--
	if c.depth > 0 {
		return err
	}
	if c.switched {
		// A fresh entry starts with an empty history.
		c.surface.ClearUndo()
		c.switched = false
	}
	c.UpdatePreview()
	return err
}

// --- Entry creation ---

// AddCategory creates an empty category and selects it.
//
// When it is the first entry and the flyout holds blocks, the user is asked
// whether to keep those blocks in a category of their own; otherwise they are
// discarded.
func (c *Controller) AddCategory(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", model.ErrEmptyName
	}
	if c.model.HasCategoryName(name) {
		return "", fmt.Errorf("add category %q: %w", name, model.ErrDuplicateName)
	}

	var keepAs string
	if !c.model.HasEntries() && len(c.surface.TopBlocks()) > 0 {
		if c.prompter.Confirm("Do you want to save your work in another category? If you don't, the blocks in your workspace will be deleted.") {
			n, err := c.promptUniqueName("Enter the name of the category for your current blocks:", "", nil, name)
			if err != nil {
				return "", err
			}
			keepAs = n
		}
	}

	var id string
	err := c.transition(func() error {
		if keepAs != "" {
			keptID, err := c.model.AddCategory(keepAs)
			if err != nil {
				return err
			}
			kept := c.model.Entry(keptID)
			kept.SaveContent(c.surface.Save())
			c.view.AddTab(kept)
			c.logger.Info("Moved flyout blocks into category", "id", keptID, "name", keepAs)
		}
		newID, err := c.model.AddCategory(name)
		if err != nil {
			return err
		}
		c.view.AddTab(c.model.Entry(newID))
		c.leaveFlyout()
		id = newID
		return c.switchTo(newID)
	})
	if err != nil {
		return "", err
	}
	c.logger.Info("Added category", "id", id, "name", name)
	return id, nil
}

// PromptAddCategory asks for a name, re-prompting on empty or duplicate names.
func (c *Controller) PromptAddCategory() (string, error) {
	name, err := c.promptUniqueName("Enter the name of your new category:", "", nil)
	if err != nil {
		return "", err
	}
	return c.AddCategory(name)
}

// AddSeparator appends a separator and selects it.
func (c *Controller) AddSeparator() (string, error) {
	var id string
	err := c.transition(func() error {
		id = c.model.AddSeparator()
		c.view.AddTab(c.model.Entry(id))
		c.leaveFlyout()
		return c.switchTo(id)
	})
	if err != nil {
		return "", err
	}
	c.logger.Info("Added separator", "id", id)
	return id, nil
}

// LoadStandardCategory appends a copy of a predefined category and selects it.
// Blocks in the flyout are dropped once the user confirms.
func (c *Controller) LoadStandardCategory(name string) (string, error) {
	tmpl, ok := model.StandardCategory(name)
	if !ok {
		return "", fmt.Errorf("load standard category %q: %w", name, ErrUnknownStandardCategory)
	}
	if !c.model.HasEntries() && len(c.surface.TopBlocks()) > 0 {
		if !c.prompter.Confirm("Loading a category will delete the blocks in your workspace. Continue?") {
			return "", ErrUserCancelled
		}
	}

	var id string
	err := c.transition(func() error {
		e, err := c.model.CopyStandardCategory(tmpl)
		if err != nil {
			return err
		}
		c.view.AddTab(e)
		c.leaveFlyout()
		id = e.ID
		return c.switchTo(e.ID)
	})
	if err != nil {
		return "", err
	}
	c.logger.Info("Loaded standard category", "id", id, "name", tmpl.Name)
	return id, nil
}

// --- Selection ---

// SwitchElement selects the entry with the given id; "" drops the selection.
func (c *Controller) SwitchElement(id string) error {
	return c.transition(func() error {
		return c.switchTo(id)
	})
}

// switchTo captures the surface into the current entry, then shows the target.
func (c *Controller) switchTo(id string) error {
	cur := c.model.Selected()
	if id == "" && (cur == nil || !c.model.HasEntries()) {
		return nil
	}

	var next *model.ListElement
	if id != "" {
		next = c.model.Entry(id)
		if next == nil {
			return fmt.Errorf("switch to %s: %w", id, model.ErrNotFound)
		}
	}

	// 1. Capture the live surface into whatever was showing.
	if cur != nil {
		c.model.SaveSelectedContent(c.surface.Save())
	}

	// 2. Show the target.
	c.surface.Clear()
	if next == nil {
		c.model.ClearSelection()
	} else {
		if err := c.model.SetSelected(next.ID); err != nil {
			return err
		}
		if next.IsCategory() {
			if err := c.surface.Load(next.Content); err != nil {
				return fmt.Errorf("loading entry %s failed: %w", next.ID, err)
			}
			generator.MarkShadowBlocks(c.model, c.surface)
		}
	}
	c.switched = true
	c.view.SelectTab(id)
	return nil
}

// leaveFlyout drops the flyout selection once entries exist, so the next
// switch does not capture the surface into the placeholder.
func (c *Controller) leaveFlyout() {
	if sel := c.model.Selected(); sel != nil && sel.Kind == model.KindFlyout {
		c.model.Flyout().SaveContent(nil)
		c.model.ClearSelection()
	}
}

// --- Editing the selected entry ---

func (c *Controller) selectedEntry() (*model.ListElement, error) {
	cur := c.model.Selected()
	if cur == nil || cur.Kind == model.KindFlyout {
		return nil, ErrNoSelection
	}
	return cur, nil
}

// RemoveSelected deletes the selected entry after confirmation. The entry
// before it becomes selected, else the one after it, else nothing.
func (c *Controller) RemoveSelected() error {
	cur, err := c.selectedEntry()
	if err != nil {
		return err
	}
	label := "separator"
	if cur.IsCategory() {
		label = fmt.Sprintf("category %q", cur.Name)
	}
	if !c.prompter.Confirm(fmt.Sprintf("Are you sure you want to delete the %s?", label)) {
		return ErrUserCancelled
	}

	err = c.transition(func() error {
		idx := c.model.IndexOf(cur.ID)
		c.surface.Clear()
		c.model.DeleteEntry(cur.ID)
		c.view.RemoveTab(cur.ID)

		entries := c.model.Entries()
		switch {
		case idx-1 >= 0 && idx-1 < len(entries):
			return c.switchTo(entries[idx-1].ID)
		case idx < len(entries):
			return c.switchTo(entries[idx].ID)
		}
		// Back in single-flyout mode.
		c.switched = true
		c.view.SelectTab("")
		return nil
	})
	if err != nil {
		return err
	}
	c.logger.Info("Removed entry", "id", cur.ID, "kind", cur.Kind, "name", cur.Name)
	return nil
}

// MoveSelected swaps the selected entry with the one offset positions away.
// Out-of-range offsets are ignored.
func (c *Controller) MoveSelected(offset int) error {
	cur, err := c.selectedEntry()
	if err != nil {
		return err
	}
	idx := c.model.IndexOf(cur.ID)
	target := idx + offset
	entries := c.model.Entries()
	if offset == 0 || target < 0 || target >= len(entries) {
		return nil
	}
	other := entries[target]

	return c.transition(func() error {
		if err := c.model.MoveEntry(cur.ID, target); err != nil {
			return err
		}
		if err := c.model.MoveEntry(other.ID, idx); err != nil {
			return err
		}
		c.view.MoveTab(cur.ID, target)
		c.view.MoveTab(other.ID, idx)
		c.logger.Debug("Moved entry", "id", cur.ID, "from", idx, "to", target)
		return nil
	})
}

// RenameSelected renames the selected category. Separators are left alone.
func (c *Controller) RenameSelected(name string) error {
	cur, err := c.selectedEntry()
	if err != nil {
		return err
	}
	if !cur.IsCategory() {
		return nil
	}
	return c.transition(func() error {
		if err := c.model.RenameCategory(cur.ID, name); err != nil {
			return err
		}
		c.view.RenameTab(cur.ID, cur.Name)
		c.logger.Info("Renamed category", "id", cur.ID, "name", cur.Name)
		return nil
	})
}

// PromptRenameSelected asks for the new name of the selected category.
func (c *Controller) PromptRenameSelected() error {
	cur, err := c.selectedEntry()
	if err != nil {
		return err
	}
	if !cur.IsCategory() {
		return nil
	}
	name, err := c.promptUniqueName("What do you want to change this category's name to?", cur.Name, cur)
	if err != nil {
		return err
	}
	return c.RenameSelected(name)
}

// SetSelectedColor changes the colour of the selected category.
func (c *Controller) SetSelectedColor(colour string) error {
	cur, err := c.selectedEntry()
	if err != nil {
		return err
	}
	return c.transition(func() error {
		return c.model.SetCategoryColor(cur.ID, colour)
	})
}

// ToggleShadow flips the user-generated shadow marking of a block on the
// surface and reports the new state. The block structure is not touched.
func (c *Controller) ToggleShadow(blockID string) (bool, error) {
	b := c.surface.Block(blockID)
	if b == nil {
		return false, fmt.Errorf("toggle shadow %s: %w", blockID, workspace.ErrBlockNotFound)
	}

	marked := !c.model.IsShadowBlock(blockID)
	if marked {
		if model.IsTopLevel(b) {
			return false, fmt.Errorf("toggle shadow %s: %w", blockID, ErrInvalidShadow)
		}
		c.model.AddShadowBlock(blockID)
	} else {
		c.model.RemoveShadowBlock(blockID)
	}
	if err := c.surface.MarkShadow(blockID, marked); err != nil {
		return false, err
	}
	c.logger.Debug("Toggled shadow block", "blockID", blockID, "shadow", marked)
	c.UpdatePreview()
	return marked, nil
}

// SyncSurface replaces the surface with the state pushed by the view.
func (c *Controller) SyncSurface(xml *etree.Element) error {
	if xml == nil || xml.Tag != "xml" {
		return fmt.Errorf("sync surface: %w", ErrInvalidWorkspace)
	}
	return c.surface.Batch(func() error {
		c.surface.Clear()
		if err := c.surface.Load(xml); err != nil {
			return err
		}
		c.reconcileShadows()
		return nil
	})
}

// reconcileShadows brings the visual marks on the surface in line with the
// model. Tracked shadows that were moved to the top level stop being shadows.
func (c *Controller) reconcileShadows() {
	for _, id := range c.model.ShadowBlockIDs() {
		b := c.surface.Block(id)
		if b == nil {
			continue
		}
		if model.IsTopLevel(b) {
			c.model.RemoveShadowBlock(id)
			_ = c.surface.MarkShadow(id, false)
			c.logger.Debug("Dropped top-level shadow block", "blockID", id)
			continue
		}
		_ = c.surface.MarkShadow(id, true)
	}
	for _, b := range c.surface.AllBlocks() {
		id := b.SelectAttrValue("id", "")
		if c.surface.IsMarkedShadow(id) && !c.model.IsShadowBlock(id) {
			_ = c.surface.MarkShadow(id, false)
		}
	}
}

// ErrInvalidWorkspace is returned for workspace documents not rooted at <xml>.
var ErrInvalidWorkspace = errors.New("workspace document must be rooted at <xml>")

// --- Output ---

// UpdatePreview regenerates the toolbox XML and pushes it to the view.
func (c *Controller) UpdatePreview() (string, error) {
	if c.model.HasEntries() && c.model.Selected() == nil {
		// Nothing to snapshot; keep the last preview until something is selected.
		c.logger.Debug("Preview skipped, no entry selected")
		return c.preview, nil
	}
	out, err := c.generator.GenerateConfigString(c.model, c.surface)
	if err != nil {
		c.logger.Error("Failed to generate preview", "error", err)
		return "", err
	}
	c.preview = out
	c.view.ShowPreview(out)
	return out, nil
}

// Preview returns the last generated toolbox XML.
func (c *Controller) Preview() string {
	return c.preview
}

// ExportXML generates the toolbox XML for download.
func (c *Controller) ExportXML() (string, error) {
	return c.generator.GenerateConfigString(c.model, c.surface)
}

// UsedBlockTypes returns every block type the toolbox references, the live
// surface included.
func (c *Controller) UsedBlockTypes(preloaded ...*etree.Element) []string {
	c.model.SaveSelectedContent(c.surface.Save())
	return c.model.CollectUsedBlockTypes(preloaded...)
}

// Reset drops every entry and clears the surface.
func (c *Controller) Reset() {
	_ = c.transition(func() error {
		c.reset()
		return nil
	})
	c.logger.Info("Reset toolbox")
}

func (c *Controller) reset() {
	for _, e := range c.model.Entries() {
		c.view.RemoveTab(e.ID)
	}
	c.model.Reset()
	c.surface.Clear()
	c.switched = true
	c.view.SelectTab("")
}

// ImportToolbox replaces the session with a toolbox document as produced by
// ExportXML. A document without categories is loaded into the flyout.
func (c *Controller) ImportToolbox(root *etree.Element) error {
	if root == nil || root.Tag != "xml" {
		return fmt.Errorf("import toolbox: %w", ErrInvalidWorkspace)
	}
	hasEntries := false
	for _, child := range root.ChildElements() {
		if child.Tag == "category" || child.Tag == "sep" {
			hasEntries = true
			break
		}
	}

	err := c.transition(func() error {
		c.reset()
		if !hasEntries {
			content := blockContent(root)
			c.editableShadows(content)
			if err := c.surface.Load(content); err != nil {
				return err
			}
			generator.MarkShadowBlocks(c.model, c.surface)
			return nil
		}
		var first string
		for _, child := range root.ChildElements() {
			var e *model.ListElement
			switch child.Tag {
			case "sep":
				e = c.model.Entry(c.model.AddSeparator())
			case "category":
				name := strings.TrimSpace(child.SelectAttrValue("name", ""))
				if name == "" {
					return fmt.Errorf("import toolbox: %w", model.ErrEmptyName)
				}
				tmpl := model.NewCategory(name)
				tmpl.SetColor(child.SelectAttrValue("colour", ""))
				tmpl.SetCustomTag(child.SelectAttrValue("custom", ""))
				content := blockContent(child)
				c.editableShadows(content)
				tmpl.SaveContent(content)
				var err error
				if e, err = c.model.CopyStandardCategory(tmpl); err != nil {
					return fmt.Errorf("import toolbox: %w", err)
				}
			default:
				continue
			}
			c.view.AddTab(e)
			if first == "" {
				first = e.ID
			}
		}
		c.model.ClearSelection()
		return c.switchTo(first)
	})
	if err != nil {
		// Never leave a half-imported toolbox behind.
		c.Reset()
		return err
	}
	c.logger.Info("Imported toolbox", "entries", len(c.model.Entries()))
	return nil
}

// editableShadows turns nested <shadow> nodes into blocks the model tracks as
// shadows, so an imported toolbox edits like the one that was exported.
func (c *Controller) editableShadows(content *etree.Element) {
	model.WalkBlocks(content, func(b *etree.Element) {
		if b.Tag != "shadow" || model.IsTopLevel(b) {
			return
		}
		id := b.SelectAttrValue("id", "")
		if id == "" {
			id = uuid.NewString()
			b.CreateAttr("id", id)
		}
		b.Tag = "block"
		c.model.AddShadowBlock(id)
	})
}

func blockContent(parent *etree.Element) *etree.Element {
	content := model.EmptyContent()
	for _, child := range parent.ChildElements() {
		if model.IsBlockElement(child) {
			content.AddChild(child.Copy())
		}
	}
	return content
}

// --- Prompts ---

// promptUniqueName asks until it gets a non-empty name no other category uses.
// except is the category being renamed; reserved names are also rejected.
func (c *Controller) promptUniqueName(label, defaultValue string, except *model.ListElement, reserved ...string) (string, error) {
	for {
		name, err := c.prompter.PromptName(label, defaultValue)
		if err != nil {
			if errors.Is(err, ErrUserCancelled) {
				return "", err
			}
			return "", fmt.Errorf("prompting for a category name failed: %w", err)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			c.prompter.Alert("Category names cannot be empty.")
			continue
		}
		if c.nameTaken(name, except, reserved) {
			c.prompter.Alert(fmt.Sprintf("There is already a category named %q.", name))
			continue
		}
		return name, nil
	}
}

func (c *Controller) nameTaken(name string, except *model.ListElement, reserved []string) bool {
	for _, r := range reserved {
		if strings.EqualFold(r, name) {
			return true
		}
	}
	for _, e := range c.model.Entries() {
		if e != except && e.IsCategory() && strings.EqualFold(e.Name, name) {
			return true
		}
	}
	return false
}
