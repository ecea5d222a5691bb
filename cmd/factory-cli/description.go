package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"go-toolbox-factory/internal/controller"
	"go-toolbox-factory/internal/model"
	"go-toolbox-factory/internal/workspace"
)

// Description is a toolbox written by hand in YAML:
//
//	name: Robot Kit
//	entries:
//	  - standard: Logic
//	  - separator: true
//	  - category: Motion
//	    colour: "#5ba55b"
//	    blocks: |
//	      <xml><block type="robot_move"/></xml>
//	    shadows: [speed]
//
// A description without entries puts Flyout into a single flyout.
type Description struct {
	Name    string             `yaml:"name"`
	Flyout  string             `yaml:"flyout"`
	Entries []DescriptionEntry `yaml:"entries"`
}

// DescriptionEntry is exactly one of a standard category, a custom category
// or a separator.
type DescriptionEntry struct {
	Standard  string   `yaml:"standard"`
	Category  string   `yaml:"category"`
	Colour    string   `yaml:"colour"`
	Blocks    string   `yaml:"blocks"`
	Shadows   []string `yaml:"shadows"`
	Separator bool     `yaml:"separator"`
}

var errInvalidDescription = errors.New("invalid toolbox description")

// ParseDescription decodes and checks a YAML toolbox description.
func ParseDescription(data []byte) (*Description, error) {
	var d Description
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing toolbox description: %w", err)
	}
	if len(d.Entries) > 0 && strings.TrimSpace(d.Flyout) != "" {
		return nil, fmt.Errorf("%w: flyout and entries cannot both be set", errInvalidDescription)
	}
	for i, e := range d.Entries {
		kinds := 0
		if e.Standard != "" {
			kinds++
		}
		if e.Category != "" {
			kinds++
		}
		if e.Separator {
			kinds++
		}
		if kinds != 1 {
			return nil, fmt.Errorf("%w: entry %d must set exactly one of standard, category, separator", errInvalidDescription, i+1)
		}
		if e.Category == "" && (e.Blocks != "" || len(e.Shadows) > 0 || e.Colour != "") {
			return nil, fmt.Errorf("%w: entry %d: colour, blocks and shadows need a custom category", errInvalidDescription, i+1)
		}
	}
	return &d, nil
}

// Build replays the description through a fresh editing session and returns
// the controller holding the result.
func (d *Description) Build(logger *slog.Logger) (*controller.Controller, error) {
	c := controller.New(model.NewFactoryModel(), workspace.New(), nil, &controller.AnswerPrompter{}, logger)

	if len(d.Entries) == 0 {
		root, err := model.ParseContent(d.Flyout)
		if err != nil {
			return nil, fmt.Errorf("parsing flyout blocks: %w", err)
		}
		if err := c.SyncSurface(root); err != nil {
			return nil, err
		}
		return c, nil
	}

	for i, e := range d.Entries {
		if err := d.buildEntry(c, e); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
	}
	// Show the first entry, like a freshly opened toolbox.
	if err := c.SwitchElement(c.Model().Entries()[0].ID); err != nil {
		return nil, err
	}
	return c, nil
}

func (d *Description) buildEntry(c *controller.Controller, e DescriptionEntry) error {
	switch {
	case e.Separator:
		_, err := c.AddSeparator()
		return err
	case e.Standard != "":
		_, err := c.LoadStandardCategory(e.Standard)
		return err
	}

	if _, err := c.AddCategory(e.Category); err != nil {
		return err
	}
	if e.Colour != "" {
		if err := c.SetSelectedColor(e.Colour); err != nil {
			return err
		}
	}
	root, err := model.ParseContent(e.Blocks)
	if err != nil {
		return fmt.Errorf("parsing blocks of %q: %w", e.Category, err)
	}
	if err := c.SyncSurface(root); err != nil {
		return err
	}
	for _, id := range e.Shadows {
		if _, err := c.ToggleShadow(id); err != nil {
			return err
		}
	}
	return nil
}

// categoryCount counts the category entries of a session.
func categoryCount(c *controller.Controller) int {
	n := 0
	for _, e := range c.Model().Entries() {
		if e.IsCategory() {
			n++
		}
	}
	return n
}
