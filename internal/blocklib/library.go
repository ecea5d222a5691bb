// Package blocklib imports block definition libraries: concatenated block
// factory documents, one per custom block.
package blocklib

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/bmatcuk/doublestar/v4"

	"go-toolbox-factory/internal/model"
)

const docDelimiter = "</xml>"

// SplitLibrary splits a library file into its documents. Documents are
// delimited by the closing </xml> tag; blank pieces are skipped.
func SplitLibrary(text string) ([]*etree.Element, error) {
	pieces := strings.Split(text, docDelimiter)
	docs := make([]*etree.Element, 0, len(pieces))
	for i, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		root, err := model.ParseContent(piece + docDelimiter)
		if err != nil {
			return nil, fmt.Errorf("parsing library document %d failed: %w", i+1, err)
		}
		docs = append(docs, root)
	}
	return docs, nil
}

// BlockType returns the block type a definition document describes: the NAME
// field of its factory_base block, or the type of its first block.
func BlockType(doc *etree.Element) string {
	var first string
	var named string
	model.WalkBlocks(doc, func(b *etree.Element) {
		if named != "" {
			return
		}
		t := b.SelectAttrValue("type", "")
		if first == "" {
			first = t
		}
		if t == "factory_base" {
			if f := b.FindElement("./field[@name='NAME']"); f != nil {
				named = strings.TrimSpace(f.Text())
			}
		}
	})
	if named != "" {
		return named
	}
	return first
}

// Library holds block definitions keyed by block type.
type Library struct {
	defs   map[string]*etree.Element
	logger *slog.Logger
}

// New creates an empty library.
func New(logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Library{defs: make(map[string]*etree.Element), logger: logger}
}

// Import adds every definition in text and returns how many were read.
// A later definition of the same type replaces the earlier one.
func (l *Library) Import(text string) (int, error) {
	docs, err := SplitLibrary(text)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, doc := range docs {
		t := BlockType(doc)
		if t == "" {
			l.logger.Warn("Skipping library document without a block type")
			continue
		}
		if _, exists := l.defs[t]; exists {
			l.logger.Debug("Replacing block definition", "type", t)
		}
		l.defs[t] = doc
		n++
	}
	return n, nil
}

// LoadFiles imports every file in fsys matching one of the doublestar patterns.
func (l *Library) LoadFiles(fsys fs.FS, patterns ...string) (int, error) {
	total := 0
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return total, fmt.Errorf("invalid library pattern %q: %w", pattern, err)
		}
		for _, path := range matches {
			data, err := fs.ReadFile(fsys, path)
			if err != nil {
				return total, fmt.Errorf("reading library file %s failed: %w", path, err)
			}
			n, err := l.Import(string(data))
			if err != nil {
				return total, fmt.Errorf("importing library file %s failed: %w", path, err)
			}
			l.logger.Info("Imported block library", "file", path, "definitions", n)
			total += n
		}
	}
	return total, nil
}

// BlockTypes lists the known block types, sorted.
func (l *Library) BlockTypes() []string {
	types := make([]string, 0, len(l.defs))
	for t := range l.defs {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Definition returns a copy of the definition document for a block type.
func (l *Library) Definition(blockType string) (*etree.Element, bool) {
	doc, ok := l.defs[blockType]
	if !ok {
		return nil, false
	}
	return doc.Copy(), true
}

// Len reports the number of definitions.
func (l *Library) Len() int { return len(l.defs) }

// Filter returns a library restricted to the given block types.
// Unknown types are ignored.
func (l *Library) Filter(types []string) *Library {
	out := New(l.logger)
	for _, t := range types {
		if doc, ok := l.defs[t]; ok {
			out.defs[t] = doc
		}
	}
	return out
}

// Export renders the library back into the concatenated file format.
func (l *Library) Export() (string, error) {
	var sb strings.Builder
	for _, t := range l.BlockTypes() {
		doc := etree.NewDocument()
		doc.SetRoot(l.defs[t].Copy())
		s, err := doc.WriteToString()
		if err != nil {
			return "", fmt.Errorf("serializing definition %s failed: %w", t, err)
		}
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
