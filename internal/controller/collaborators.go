package controller

import (
	"errors"

	"go-toolbox-factory/internal/model"
)

var (
	// ErrUserCancelled is returned when the user dismisses a prompt. Nothing was changed.
	ErrUserCancelled = errors.New("cancelled by user")
	// ErrNoSelection is returned by operations on the selected entry when there is none.
	ErrNoSelection = errors.New("no toolbox entry selected")
	// ErrUnknownStandardCategory is returned for a standard category name that does not exist.
	ErrUnknownStandardCategory = errors.New("unknown standard category")
	// ErrInvalidShadow is returned when a top-level block is marked as a shadow.
	ErrInvalidShadow = errors.New("only blocks attached to a parent can be shadows")
)

// View keeps the tab widgets and the preview pane in sync with the model.
type View interface {
	AddTab(e *model.ListElement)
	RemoveTab(id string)
	RenameTab(id, name string)
	MoveTab(id string, index int)
	SelectTab(id string) // "" clears the selection
	ShowPreview(xml string)
}

// Prompter asks the user for input. PromptName returns ErrUserCancelled when
// the prompt is dismissed.
type Prompter interface {
	PromptName(label, defaultValue string) (string, error)
	Confirm(message string) bool
	Alert(message string)
}

type noopView struct{}

func (noopView) AddTab(*model.ListElement) {}
func (noopView) RemoveTab(string)          {}
func (noopView) RenameTab(string, string)  {}
func (noopView) MoveTab(string, int)       {}
func (noopView) SelectTab(string)          {}
func (noopView) ShowPreview(string)        {}

// AnswerPrompter replays prepared answers. It backs non-interactive callers
// such as the HTTP API: names are handed out in order, every confirmation
// gets the same answer and alerts are collected.
type AnswerPrompter struct {
	Names  []string
	Accept bool
	Alerts []string
}

func (p *AnswerPrompter) PromptName(label, defaultValue string) (string, error) {
	if len(p.Names) == 0 {
		return "", ErrUserCancelled
	}
	name := p.Names[0]
	p.Names = p.Names[1:]
	return name, nil
}

func (p *AnswerPrompter) Confirm(string) bool { return p.Accept }

func (p *AnswerPrompter) Alert(message string) {
	p.Alerts = append(p.Alerts, message)
}
