package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"

	"go-toolbox-factory/internal/controller"
	"go-toolbox-factory/internal/model"
)

// terminalPrompter asks questions with promptui.
type terminalPrompter struct {
	out io.Writer
}

func (p terminalPrompter) PromptName(label, defaultValue string) (string, error) {
	prompt := promptui.Prompt{
		Label:     label,
		Default:   defaultValue,
		AllowEdit: true,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return model.ErrEmptyName
			}
			return nil
		},
	}
	name, err := prompt.Run()
	if err != nil {
		return "", promptError(err)
	}
	return strings.TrimSpace(name), nil
}

func (p terminalPrompter) Confirm(message string) bool {
	prompt := promptui.Prompt{Label: message, IsConfirm: true}
	_, err := prompt.Run()
	return err == nil
}

func (p terminalPrompter) Alert(message string) {
	fmt.Fprintf(p.out, "%s %s\n", promptui.IconWarn, message)
}

// promptError maps the ways a user can leave a prompt to ErrUserCancelled.
func promptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrEOF) {
		return controller.ErrUserCancelled
	}
	return err
}

// consoleView reports tab changes as plain text lines.
type consoleView struct {
	out         io.Writer
	showPreview bool
}

func (v *consoleView) AddTab(e *model.ListElement) {
	fmt.Fprintf(v.out, "+ %s\n", tabLabel(e))
}

func (v *consoleView) RemoveTab(id string) { fmt.Fprintf(v.out, "- %s\n", shortID(id)) }

func (v *consoleView) RenameTab(id, name string) {
	fmt.Fprintf(v.out, "~ %s is now %q\n", shortID(id), name)
}

func (v *consoleView) MoveTab(id string, index int) {
	fmt.Fprintf(v.out, "> %s moved to position %d\n", shortID(id), index+1)
}

func (v *consoleView) SelectTab(string) {}

func (v *consoleView) ShowPreview(xml string) {
	if v.showPreview {
		fmt.Fprintln(v.out, xml)
	}
}

func tabLabel(e *model.ListElement) string {
	switch e.Kind {
	case model.KindSeparator:
		return "--- separator ---"
	case model.KindFlyout:
		return "(flyout)"
	}
	if e.Color != "" {
		return fmt.Sprintf("%s [%s]", e.Name, e.Color)
	}
	return e.Name
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
