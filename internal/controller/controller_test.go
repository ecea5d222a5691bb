package controller

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/beevik/etree"

	"go-toolbox-factory/internal/model"
	"go-toolbox-factory/internal/workspace"
)

type recordingView struct {
	calls    []string
	previews int
	last     string
}

func (v *recordingView) AddTab(e *model.ListElement) { v.calls = append(v.calls, "add:"+e.Name) }
func (v *recordingView) RemoveTab(id string)         { v.calls = append(v.calls, "remove") }
func (v *recordingView) RenameTab(id, name string)   { v.calls = append(v.calls, "rename:"+name) }
func (v *recordingView) MoveTab(id string, i int)    { v.calls = append(v.calls, fmt.Sprintf("move:%d", i)) }
func (v *recordingView) SelectTab(id string)         { v.calls = append(v.calls, "select") }
func (v *recordingView) ShowPreview(xml string) {
	v.previews++
	v.last = xml
}

type fixture struct {
	ctrl     *Controller
	model    *model.FactoryModel
	surface  *workspace.Workspace
	view     *recordingView
	prompter *AnswerPrompter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		model:    model.NewFactoryModel(),
		surface:  workspace.New(),
		view:     &recordingView{},
		prompter: &AnswerPrompter{Accept: true},
	}
	f.ctrl = New(f.model, f.surface, f.view, f.prompter, nil)
	t.Cleanup(f.ctrl.Close)
	return f
}

func parse(t *testing.T, s string) *etree.Element {
	t.Helper()
	el, err := model.ParseContent(s)
	if err != nil {
		t.Fatalf("ParseContent() failed: %v", err)
	}
	return el
}

func names(m *model.FactoryModel) []string {
	var out []string
	for _, e := range m.Entries() {
		if e.IsCategory() {
			out = append(out, e.Name)
		} else {
			out = append(out, "<sep>")
		}
	}
	return out
}

func TestAddCategorySelectsIt(t *testing.T) {
	f := newFixture(t)

	id, err := f.ctrl.AddCategory("Logic")
	if err != nil {
		t.Fatalf("AddCategory() failed: %v", err)
	}
	if got := f.model.Selected(); got == nil || got.ID != id {
		t.Errorf("selected = %v, want the new category", got)
	}
	if !strings.Contains(f.ctrl.Preview(), `<category name="Logic"/>`) {
		t.Errorf("preview not refreshed:\n%s", f.ctrl.Preview())
	}
}

func TestDuplicateMathScenario(t *testing.T) {
	f := newFixture(t)
	if _, err := f.ctrl.AddCategory("Math"); err != nil {
		t.Fatalf("AddCategory(Math) failed: %v", err)
	}
	_, err := f.ctrl.AddCategory("Math")
	if !errors.Is(err, model.ErrDuplicateName) {
		t.Errorf("second AddCategory(Math) error = %v, want ErrDuplicateName", err)
	}
	if n := len(f.model.Entries()); n != 1 {
		t.Errorf("entries = %d, want 1", n)
	}
}

func TestLogicLoopsMoveScenario(t *testing.T) {
	f := newFixture(t)
	if _, err := f.ctrl.AddCategory("Logic"); err != nil {
		t.Fatalf("AddCategory(Logic) failed: %v", err)
	}
	if _, err := f.ctrl.AddCategory("Loops"); err != nil {
		t.Fatalf("AddCategory(Loops) failed: %v", err)
	}

	if err := f.ctrl.MoveSelected(-1); err != nil {
		t.Fatalf("MoveSelected(-1) failed: %v", err)
	}

	if got, want := names(f.model), []string{"Loops", "Logic"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if f.model.Selected().Name != "Loops" {
		t.Errorf("selection did not follow the moved entry")
	}
	// Moving further left is out of range and ignored.
	if err := f.ctrl.MoveSelected(-1); err != nil {
		t.Fatalf("MoveSelected(-1) at the start failed: %v", err)
	}
	if got, want := names(f.model), []string{"Loops", "Logic"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order after no-op move = %v, want %v", got, want)
	}
}

func TestMoveSelectedSwapsDistantEntries(t *testing.T) {
	f := newFixture(t)
	a, _ := f.ctrl.AddCategory("A")
	f.ctrl.AddCategory("B")
	f.ctrl.AddCategory("C")
	if err := f.ctrl.SwitchElement(a); err != nil {
		t.Fatalf("SwitchElement() failed: %v", err)
	}
	if err := f.ctrl.MoveSelected(2); err != nil {
		t.Fatalf("MoveSelected(2) failed: %v", err)
	}
	if got, want := names(f.model), []string{"C", "B", "A"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestSwitchCapturesAndRestoresContent(t *testing.T) {
	f := newFixture(t)
	first, _ := f.ctrl.AddCategory("First")
	if err := f.ctrl.SyncSurface(parse(t, `<xml><block type="text" id="t1"/></xml>`)); err != nil {
		t.Fatalf("SyncSurface() failed: %v", err)
	}
	second, _ := f.ctrl.AddCategory("Second")

	if f.surface.Block("t1") != nil {
		t.Errorf("switching kept the previous category's blocks on the surface")
	}
	if err := f.ctrl.SwitchElement(first); err != nil {
		t.Fatalf("SwitchElement(first) failed: %v", err)
	}
	if f.surface.Block("t1") == nil {
		t.Errorf("switching back did not reload the captured blocks")
	}
	if f.surface.Undo() {
		t.Errorf("undo history should be empty after a switch")
	}

	if err := f.ctrl.SwitchElement(""); err != nil {
		t.Fatalf("SwitchElement(\"\") failed: %v", err)
	}
	if f.model.Selected() != nil {
		t.Errorf("selection = %v, want none", f.model.Selected())
	}
	if !f.surface.IsEmpty() {
		t.Errorf("surface should be empty without a selection")
	}
	if err := f.ctrl.SwitchElement("missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("SwitchElement(missing) error = %v, want ErrNotFound", err)
	}
	_ = second
}

func TestRemoveSelectedPicksNeighbour(t *testing.T) {
	f := newFixture(t)
	a, _ := f.ctrl.AddCategory("A")
	b, _ := f.ctrl.AddCategory("B")
	c, _ := f.ctrl.AddCategory("C")

	// Middle entry: the previous one is selected next.
	_ = f.ctrl.SwitchElement(b)
	if err := f.ctrl.RemoveSelected(); err != nil {
		t.Fatalf("RemoveSelected() failed: %v", err)
	}
	if got := f.model.Selected(); got == nil || got.ID != a {
		t.Errorf("after removing B selected = %v, want A", got)
	}

	// First entry: the following one is selected next.
	if err := f.ctrl.RemoveSelected(); err != nil {
		t.Fatalf("RemoveSelected() failed: %v", err)
	}
	if got := f.model.Selected(); got == nil || got.ID != c {
		t.Errorf("after removing A selected = %v, want C", got)
	}

	// Last entry: back to the flyout.
	if err := f.ctrl.RemoveSelected(); err != nil {
		t.Fatalf("RemoveSelected() failed: %v", err)
	}
	if f.model.HasEntries() {
		t.Errorf("entries left after removing everything")
	}
	if f.model.Selected() != f.model.Flyout() {
		t.Errorf("selection should fall back to the flyout")
	}
	if _, err := f.ctrl.ExportXML(); err != nil {
		t.Errorf("ExportXML() in flyout mode failed: %v", err)
	}
}

func TestRemoveSelectedCancelled(t *testing.T) {
	f := newFixture(t)
	f.ctrl.AddCategory("Keep")
	f.prompter.Accept = false

	if err := f.ctrl.RemoveSelected(); !errors.Is(err, ErrUserCancelled) {
		t.Errorf("RemoveSelected() error = %v, want ErrUserCancelled", err)
	}
	if len(f.model.Entries()) != 1 {
		t.Errorf("cancelled removal changed the entries")
	}
}

func TestRemoveWithoutSelection(t *testing.T) {
	f := newFixture(t)
	if err := f.ctrl.RemoveSelected(); !errors.Is(err, ErrNoSelection) {
		t.Errorf("RemoveSelected() error = %v, want ErrNoSelection", err)
	}
}

func TestPromptAddCategoryRepromptsOnDuplicate(t *testing.T) {
	f := newFixture(t)
	f.ctrl.AddCategory("Math")
	f.prompter.Names = []string{"math", "  ", "Text"}

	id, err := f.ctrl.PromptAddCategory()
	if err != nil {
		t.Fatalf("PromptAddCategory() failed: %v", err)
	}
	if f.model.Entry(id).Name != "Text" {
		t.Errorf("created %q, want Text", f.model.Entry(id).Name)
	}
	if len(f.prompter.Alerts) != 2 {
		t.Errorf("alerts = %v, want two", f.prompter.Alerts)
	}
}

func TestPromptAddCategoryCancelled(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctrl.PromptAddCategory()
	if !errors.Is(err, ErrUserCancelled) {
		t.Errorf("PromptAddCategory() error = %v, want ErrUserCancelled", err)
	}
	if f.model.HasEntries() {
		t.Errorf("cancelled prompt created an entry")
	}
}

func TestFirstCategoryKeepsFlyoutBlocks(t *testing.T) {
	f := newFixture(t)
	_ = f.ctrl.SyncSurface(parse(t, `<xml><block type="logic_boolean" id="b"/></xml>`))
	f.prompter.Names = []string{"Old work"}

	id, err := f.ctrl.AddCategory("New")
	if err != nil {
		t.Fatalf("AddCategory() failed: %v", err)
	}
	if got, want := names(f.model), []string{"Old work", "New"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}
	kept := f.model.Entries()[0]
	if !strings.Contains(kept.ContentString(), "logic_boolean") {
		t.Errorf("flyout blocks were not moved: %s", kept.ContentString())
	}
	if f.model.Selected().ID != id || !f.surface.IsEmpty() {
		t.Errorf("the new empty category should be showing")
	}
}

func TestFirstCategoryDiscardsFlyoutBlocks(t *testing.T) {
	f := newFixture(t)
	_ = f.ctrl.SyncSurface(parse(t, `<xml><block type="logic_boolean"/></xml>`))
	f.prompter.Accept = false

	if _, err := f.ctrl.AddCategory("New"); err != nil {
		t.Fatalf("AddCategory() failed: %v", err)
	}
	if got, want := names(f.model), []string{"New"}; !reflect.DeepEqual(got, want) {
		t.Errorf("entries = %v, want %v", got, want)
	}
	if strings.Contains(f.ctrl.Preview(), "logic_boolean") {
		t.Errorf("discarded blocks still exported:\n%s", f.ctrl.Preview())
	}
}

func TestLoadStandardCategory(t *testing.T) {
	f := newFixture(t)
	if _, err := f.ctrl.LoadStandardCategory("logic"); err != nil {
		t.Fatalf("LoadStandardCategory() failed: %v", err)
	}
	if f.surface.IsEmpty() {
		t.Errorf("standard category blocks not shown on the surface")
	}
	if _, err := f.ctrl.LoadStandardCategory("Variables"); err != nil {
		t.Fatalf("LoadStandardCategory(Variables) failed: %v", err)
	}
	if _, err := f.ctrl.LoadStandardCategory("Variables"); !errors.Is(err, model.ErrDuplicateCategory) {
		t.Errorf("second Variables error = %v, want ErrDuplicateCategory", err)
	}
	if _, err := f.ctrl.LoadStandardCategory("Widgets"); !errors.Is(err, ErrUnknownStandardCategory) {
		t.Errorf("LoadStandardCategory(Widgets) error = %v, want ErrUnknownStandardCategory", err)
	}
	if !strings.Contains(f.ctrl.Preview(), `custom="VARIABLE"`) {
		t.Errorf("preview misses the Variables category:\n%s", f.ctrl.Preview())
	}
}

func TestRenameAndColour(t *testing.T) {
	f := newFixture(t)
	f.ctrl.AddCategory("Old")
	f.ctrl.AddCategory("Other")
	f.ctrl.SwitchElement(f.model.Entries()[0].ID)

	if err := f.ctrl.RenameSelected("other"); !errors.Is(err, model.ErrDuplicateName) {
		t.Errorf("RenameSelected(other) error = %v, want ErrDuplicateName", err)
	}
	f.prompter.Names = []string{"Renamed"}
	if err := f.ctrl.PromptRenameSelected(); err != nil {
		t.Fatalf("PromptRenameSelected() failed: %v", err)
	}
	if err := f.ctrl.SetSelectedColor("#123456"); err != nil {
		t.Fatalf("SetSelectedColor() failed: %v", err)
	}
	if !strings.Contains(f.ctrl.Preview(), `<category name="Renamed" colour="#123456"/>`) {
		t.Errorf("preview not updated:\n%s", f.ctrl.Preview())
	}
}

func TestToggleShadow(t *testing.T) {
	f := newFixture(t)
	f.ctrl.AddCategory("Math")
	_ = f.ctrl.SyncSurface(parse(t, `<xml><block type="math_arithmetic" id="a1"><value name="A"><block type="math_number" id="b1"/></value></block></xml>`))

	on, err := f.ctrl.ToggleShadow("b1")
	if err != nil || !on {
		t.Fatalf("ToggleShadow(b1) = %v, %v; want true, nil", on, err)
	}
	if !strings.Contains(f.ctrl.Preview(), `<shadow type="math_number"/>`) {
		t.Errorf("preview should export b1 as a shadow:\n%s", f.ctrl.Preview())
	}
	if f.surface.Block("b1").Tag != "block" || !f.surface.IsMarkedShadow("b1") {
		t.Errorf("b1 should stay an editable block with a visual mark")
	}

	off, err := f.ctrl.ToggleShadow("b1")
	if err != nil || off {
		t.Fatalf("second ToggleShadow(b1) = %v, %v; want false, nil", off, err)
	}
	if f.model.IsShadowBlock("b1") || f.surface.IsMarkedShadow("b1") {
		t.Errorf("b1 still marked after toggling off")
	}

	if _, err := f.ctrl.ToggleShadow("a1"); !errors.Is(err, ErrInvalidShadow) {
		t.Errorf("ToggleShadow(top-level) error = %v, want ErrInvalidShadow", err)
	}
	if _, err := f.ctrl.ToggleShadow("zz"); !errors.Is(err, workspace.ErrBlockNotFound) {
		t.Errorf("ToggleShadow(missing) error = %v, want ErrBlockNotFound", err)
	}
}

func TestSyncDropsTopLevelShadows(t *testing.T) {
	f := newFixture(t)
	f.ctrl.AddCategory("Math")
	_ = f.ctrl.SyncSurface(parse(t, `<xml><block type="math_arithmetic" id="a1"><value name="A"><block type="math_number" id="b1"/></value></block></xml>`))
	if _, err := f.ctrl.ToggleShadow("b1"); err != nil {
		t.Fatalf("ToggleShadow(b1) failed: %v", err)
	}

	// b1 dragged out of its parent.
	if err := f.ctrl.SyncSurface(parse(t, `<xml><block type="math_arithmetic" id="a1"/><block type="math_number" id="b1"/></xml>`)); err != nil {
		t.Fatalf("SyncSurface() failed: %v", err)
	}
	if f.model.IsShadowBlock("b1") || f.surface.IsMarkedShadow("b1") {
		t.Errorf("b1 should stop being a shadow at the top level")
	}
	out, err := f.ctrl.ExportXML()
	if err != nil {
		t.Fatalf("ExportXML() failed: %v", err)
	}
	if strings.Contains(out, "<shadow") {
		t.Errorf("export holds a top-level shadow:\n%s", out)
	}
}

func TestUndoKeepsShadowMarks(t *testing.T) {
	f := newFixture(t)
	nested := `<xml><block type="math_arithmetic" id="a1"><value name="A"><block type="math_number" id="b1"/></value></block></xml>`
	_ = f.ctrl.SyncSurface(parse(t, nested))
	if _, err := f.ctrl.ToggleShadow("b1"); err != nil {
		t.Fatalf("ToggleShadow(b1) failed: %v", err)
	}

	// Flyout mode: undo a clear.
	_ = f.ctrl.SyncSurface(parse(t, `<xml/>`))
	if !f.surface.Undo() {
		t.Fatalf("Undo() = false, want true")
	}
	if f.surface.Block("b1") == nil || !f.surface.IsMarkedShadow("b1") || !f.model.IsShadowBlock("b1") {
		t.Errorf("undo should bring b1 back as a marked shadow")
	}
	if !strings.Contains(f.ctrl.Preview(), `<shadow type="math_number"/>`) {
		t.Errorf("preview after undo lost the shadow:\n%s", f.ctrl.Preview())
	}

	// Undo past a sync that dropped the shadow leaves the model in charge.
	_ = f.ctrl.SyncSurface(parse(t, `<xml><block type="math_arithmetic" id="a1"/><block type="math_number" id="b1"/></xml>`))
	f.surface.Undo()
	if f.model.IsShadowBlock("b1") || f.surface.IsMarkedShadow("b1") {
		t.Errorf("surface mark and model disagree after undo")
	}
}

func TestSurfaceEditsRefreshPreviewOnce(t *testing.T) {
	f := newFixture(t)
	before := f.view.previews
	if err := f.ctrl.SyncSurface(parse(t, `<xml><block type="text"/></xml>`)); err != nil {
		t.Fatalf("SyncSurface() failed: %v", err)
	}
	if got := f.view.previews - before; got != 1 {
		t.Errorf("preview refreshed %d times, want 1", got)
	}

	before = f.view.previews
	f.prompter.Accept = false // drop the flyout blocks
	f.ctrl.AddCategory("Text")
	if got := f.view.previews - before; got != 1 {
		t.Errorf("AddCategory refreshed the preview %d times, want 1", got)
	}
}

func TestUsedBlockTypes(t *testing.T) {
	f := newFixture(t)
	f.ctrl.LoadStandardCategory("Colour")
	f.ctrl.AddCategory("Mine")
	_ = f.ctrl.SyncSurface(parse(t, `<xml><block type="my_block"/></xml>`))

	types := f.ctrl.UsedBlockTypes(parse(t, `<xml><block type="preloaded"/></xml>`))
	for _, want := range []string{"colour_picker", "math_number", "my_block", "preloaded"} {
		found := false
		for _, got := range types {
			if got == want {
				found = true
			}
		}
		if !found {
			t.Errorf("UsedBlockTypes() misses %q: %v", want, types)
		}
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.ctrl.LoadStandardCategory("Loops")
	f.ctrl.AddSeparator()
	f.ctrl.LoadStandardCategory("Functions")
	exported, err := f.ctrl.ExportXML()
	if err != nil {
		t.Fatalf("ExportXML() failed: %v", err)
	}

	g := newFixture(t)
	if err := g.ctrl.ImportToolbox(parse(t, exported)); err != nil {
		t.Fatalf("ImportToolbox() failed: %v", err)
	}
	again, err := g.ctrl.ExportXML()
	if err != nil {
		t.Fatalf("ExportXML() after import failed: %v", err)
	}
	if again != exported {
		t.Errorf("round trip differs:\n%s\n---\n%s", exported, again)
	}
	if !g.model.HasProcedureCategory() {
		t.Errorf("imported Functions category lost its custom tag")
	}
}

func TestImportFlyoutAndFailure(t *testing.T) {
	f := newFixture(t)
	if err := f.ctrl.ImportToolbox(parse(t, `<xml id="toolbox"><block type="text"/></xml>`)); err != nil {
		t.Fatalf("ImportToolbox(flyout) failed: %v", err)
	}
	if f.model.HasEntries() || f.surface.IsEmpty() {
		t.Errorf("flyout import should fill the surface without entries")
	}

	err := f.ctrl.ImportToolbox(parse(t, `<xml><category name="A"/><category name="a"/></xml>`))
	if !errors.Is(err, model.ErrDuplicateCategory) {
		t.Errorf("ImportToolbox(duplicate) error = %v, want ErrDuplicateCategory", err)
	}
	if f.model.HasEntries() {
		t.Errorf("failed import left entries behind")
	}
}

func TestImportMakesShadowsEditable(t *testing.T) {
	f := newFixture(t)
	doc := `<xml id="toolbox"><category name="Math"><block type="math_arithmetic"><value name="A"><shadow type="math_number"/></value></block></category></xml>`
	if err := f.ctrl.ImportToolbox(parse(t, doc)); err != nil {
		t.Fatalf("ImportToolbox() failed: %v", err)
	}

	var num *etree.Element
	for _, b := range f.surface.AllBlocks() {
		if b.SelectAttrValue("type", "") == "math_number" {
			num = b
		}
	}
	if num == nil {
		t.Fatalf("math_number missing from the surface")
	}
	id := num.SelectAttrValue("id", "")
	if num.Tag != "block" || !f.surface.IsMarkedShadow(id) || !f.model.IsShadowBlock(id) {
		t.Errorf("imported shadow should be an editable block tracked as a shadow")
	}
	out, _ := f.ctrl.ExportXML()
	if !strings.Contains(out, `<shadow type="math_number"/>`) {
		t.Errorf("export lost the shadow:\n%s", out)
	}

	// Flyout documents get the same treatment.
	if err := f.ctrl.ImportToolbox(parse(t, `<xml><block type="a"><value name="X"><shadow type="b" id="s1"/></value></block></xml>`)); err != nil {
		t.Fatalf("ImportToolbox(flyout) failed: %v", err)
	}
	if b := f.surface.Block("s1"); b == nil || b.Tag != "block" || !f.surface.IsMarkedShadow("s1") {
		t.Errorf("flyout shadow s1 should be a marked block")
	}
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	f.ctrl.AddCategory("A")
	f.ctrl.AddSeparator()
	f.ctrl.Reset()
	if f.model.HasEntries() || f.model.Selected() != f.model.Flyout() {
		t.Errorf("Reset() should return to single-flyout mode")
	}
}
