package workspace

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"go-toolbox-factory/internal/model"
)

// maxUndo caps the undo history; the oldest snapshots are dropped first.
const maxUndo = 64

type subscriber struct {
	id int
	fn func(Event)
}

// Workspace is the in-memory Surface implementation.
// It is not safe for concurrent use; callers serialize access.
type Workspace struct {
	root    *etree.Element
	marked  map[string]bool
	undo    []snapshot
	subs    []subscriber
	nextSub int

	batchDepth int
	pending    bool
}

var _ Surface = (*Workspace)(nil)

// snapshot is one undo step: the block tree and the visual marks that went with it.
type snapshot struct {
	root   *etree.Element
	marked map[string]bool
}

func (w *Workspace) capture() snapshot {
	marked := make(map[string]bool, len(w.marked))
	for id := range w.marked {
		marked[id] = true
	}
	return snapshot{root: w.root.Copy(), marked: marked}
}

// New creates an empty workspace.
func New() *Workspace {
	return &Workspace{
		root:   model.EmptyContent(),
		marked: make(map[string]bool),
	}
}

// Clear removes every block and visual mark.
func (w *Workspace) Clear() {
	before := w.capture()
	w.root = model.EmptyContent()
	w.marked = make(map[string]bool)
	w.changed(before, Event{Kind: EventClear})
}

// ClearUndo drops the undo history.
func (w *Workspace) ClearUndo() {
	w.undo = nil
}

// Undo restores the state before the last mutation.
func (w *Workspace) Undo() bool {
	if len(w.undo) == 0 {
		return false
	}
	last := w.undo[len(w.undo)-1]
	w.undo = w.undo[:len(w.undo)-1]
	w.root = last.root
	w.marked = last.marked
	w.emit(Event{Kind: EventUndo})
	return true
}

// Save serializes the surface. The returned tree is a copy.
func (w *Workspace) Save() *etree.Element {
	return w.root.Copy()
}

// Load appends the blocks of xml to the surface. Blocks without an id, or
// with an id already present, get a fresh one.
func (w *Workspace) Load(xml *etree.Element) error {
	if xml == nil {
		return nil
	}
	if xml.Tag != "xml" {
		return fmt.Errorf("load workspace: root element is <%s>: %w", xml.Tag, ErrInvalidDocument)
	}

	before := w.capture()
	seen := make(map[string]bool)
	for _, b := range w.AllBlocks() {
		seen[b.SelectAttrValue("id", "")] = true
	}

	for _, child := range xml.ChildElements() {
		c := child.Copy()
		if model.IsBlockElement(c) {
			assignID(c, seen)
		}
		model.WalkBlocks(c, func(b *etree.Element) { assignID(b, seen) })
		w.root.AddChild(c)
	}
	w.changed(before, Event{Kind: EventLoad})
	return nil
}

func assignID(b *etree.Element, seen map[string]bool) {
	id := b.SelectAttrValue("id", "")
	if id == "" || seen[id] {
		id = uuid.NewString()
		b.RemoveAttr("id")
		b.CreateAttr("id", id)
	}
	seen[id] = true
}

// TopBlocks returns the top-level blocks. The nodes belong to the surface;
// treat them as read-only.
func (w *Workspace) TopBlocks() []*etree.Element {
	var blocks []*etree.Element
	for _, c := range w.root.ChildElements() {
		if model.IsBlockElement(c) {
			blocks = append(blocks, c)
		}
	}
	return blocks
}

// AllBlocks returns every block and shadow node, depth first.
func (w *Workspace) AllBlocks() []*etree.Element {
	var blocks []*etree.Element
	model.WalkBlocks(w.root, func(b *etree.Element) {
		blocks = append(blocks, b)
	})
	return blocks
}

// Block returns the node with the given id, or nil.
func (w *Workspace) Block(id string) *etree.Element {
	if id == "" {
		return nil
	}
	var found *etree.Element
	model.WalkBlocks(w.root, func(b *etree.Element) {
		if found == nil && b.SelectAttrValue("id", "") == id {
			found = b
		}
	})
	return found
}

// IsEmpty reports whether the surface holds no blocks.
func (w *Workspace) IsEmpty() bool {
	return len(w.TopBlocks()) == 0
}

// SetShadow switches a node between <block> and <shadow>.
func (w *Workspace) SetShadow(id string, shadow bool) error {
	b := w.Block(id)
	if b == nil {
		return fmt.Errorf("set shadow %s: %w", id, ErrBlockNotFound)
	}
	tag := "block"
	if shadow {
		tag = "shadow"
	}
	if b.Tag == tag {
		return nil
	}
	before := w.capture()
	b.Tag = tag
	w.changed(before, Event{Kind: EventShadow, BlockID: id})
	return nil
}

// MarkShadow sets the visual-only shadow marking. The serialized surface is unaffected.
func (w *Workspace) MarkShadow(id string, marked bool) error {
	if w.Block(id) == nil {
		return fmt.Errorf("mark shadow %s: %w", id, ErrBlockNotFound)
	}
	if marked {
		w.marked[id] = true
	} else {
		delete(w.marked, id)
	}
	return nil
}

// IsMarkedShadow reports whether a block carries the visual shadow marking.
func (w *Workspace) IsMarkedShadow(id string) bool {
	return w.marked[id]
}

// Subscribe registers fn for change events.
func (w *Workspace) Subscribe(fn func(Event)) func() {
	w.nextSub++
	id := w.nextSub
	w.subs = append(w.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range w.subs {
			if s.id == id {
				w.subs = append(w.subs[:i], w.subs[i+1:]...)
				return
			}
		}
	}
}

// Batch runs fn with events suspended and records a single undo step.
func (w *Workspace) Batch(fn func() error) error {
	outer := w.batchDepth == 0
	var before snapshot
	var beforeXML string
	if outer {
		before = w.capture()
		beforeXML = serialize(before.root)
		w.pending = false
	}

	w.batchDepth++
	err := func() error {
		defer func() { w.batchDepth-- }()
		return fn()
	}()
	if !outer {
		return err
	}

	pending := w.pending
	w.pending = false
	if pending && serialize(w.root) != beforeXML {
		w.pushUndo(before)
		w.emit(Event{Kind: EventBatch})
	}
	return err
}

// String renders the surface as compact XML.
func (w *Workspace) String() string {
	return serialize(w.root)
}

func (w *Workspace) changed(before snapshot, ev Event) {
	if w.batchDepth > 0 {
		w.pending = true
		return
	}
	w.pushUndo(before)
	w.emit(ev)
}

func (w *Workspace) pushUndo(s snapshot) {
	w.undo = append(w.undo, s)
	if len(w.undo) > maxUndo {
		w.undo = append([]snapshot{}, w.undo[len(w.undo)-maxUndo:]...)
	}
}

func (w *Workspace) emit(ev Event) {
	if w.batchDepth > 0 {
		w.pending = true
		return
	}
	// Copy so subscribers may unsubscribe while being notified.
	subs := append([]subscriber(nil), w.subs...)
	for _, s := range subs {
		s.fn(ev)
	}
}

func serialize(root *etree.Element) string {
	doc := etree.NewDocument()
	doc.SetRoot(root.Copy())
	s, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return s
}
