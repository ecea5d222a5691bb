// Package workspace models the editing surface: the single live workspace the
// user drags blocks into. The browser owns the rendered workspace; this package
// keeps the server-side mirror the controller and generator operate on.
package workspace

import (
	"errors"

	"github.com/beevik/etree"
)

// ErrBlockNotFound is returned for operations on a block id the surface does not hold.
var ErrBlockNotFound = errors.New("block not found on workspace")

// ErrInvalidDocument is returned by Load for documents not rooted at <xml>.
var ErrInvalidDocument = errors.New("workspace document must be rooted at <xml>")

// EventKind describes what changed on the surface.
type EventKind string

const (
	EventLoad   EventKind = "load"
	EventClear  EventKind = "clear"
	EventShadow EventKind = "shadow"
	EventUndo   EventKind = "undo"
	EventBatch  EventKind = "batch" // Single event fired at the end of a batch that changed something
)

// Event is delivered to subscribers after a mutation.
type Event struct {
	Kind    EventKind
	BlockID string
}

// Surface is the editing surface consumed by the generator and the controller.
type Surface interface {
	// Clear removes every block and visual mark.
	Clear()
	// ClearUndo drops the undo history.
	ClearUndo()
	// Undo reverts the last mutation. It reports false when there is nothing to undo.
	Undo() bool
	// Save serializes the surface to an <xml> tree, block ids included.
	Save() *etree.Element
	// Load appends the blocks of an <xml> tree to the surface.
	Load(xml *etree.Element) error
	// TopBlocks returns the top-level block nodes, in order.
	TopBlocks() []*etree.Element
	// AllBlocks returns every block and shadow node, depth first.
	AllBlocks() []*etree.Element
	// Block returns the node with the given id, or nil.
	Block(id string) *etree.Element
	// SetShadow turns a block into a real shadow node, or back.
	SetShadow(id string, shadow bool) error
	// MarkShadow toggles the visual-only shadow marking of a block.
	MarkShadow(id string, marked bool) error
	IsMarkedShadow(id string) bool
	// Subscribe registers fn for change events and returns a function removing it.
	Subscribe(fn func(Event)) func()
	// Batch runs fn with event delivery suspended. One EventBatch is delivered
	// afterwards if the serialized surface changed.
	Batch(fn func() error) error
}
