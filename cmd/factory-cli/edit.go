package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"go-toolbox-factory/internal/controller"
	"go-toolbox-factory/internal/model"
	"go-toolbox-factory/internal/storage"
	"go-toolbox-factory/internal/workspace"
	"go-toolbox-factory/pkg/fsutils"
)

var editFrom string

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit a toolbox interactively",
	Long: `Edit opens a terminal session on a toolbox, empty or loaded with --from.
Blocks are entered as XML, the way the browser editor would push them.`,
	Args: cobra.NoArgs,
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVar(&editFrom, "from", "", "toolbox XML file to start from")
	rootCmd.AddCommand(editCmd)
}

// Menu actions, in display order.
const (
	actAddCategory = "Add category"
	actAddStandard = "Load standard category"
	actAddSep      = "Add separator"
	actSelect      = "Select entry"
	actRename      = "Rename selected category"
	actColour      = "Set category colour"
	actMoveUp      = "Move selected up"
	actMoveDown    = "Move selected down"
	actRemove      = "Remove selected"
	actBlocks      = "Replace blocks"
	actShadow      = "Toggle shadow block"
	actUndo        = "Undo"
	actPreview     = "Show toolbox XML"
	actSave        = "Save export"
	actQuit        = "Quit"
)

var editActions = []string{
	actAddCategory, actAddStandard, actAddSep, actSelect, actRename, actColour,
	actMoveUp, actMoveDown, actRemove, actBlocks, actShadow, actUndo, actPreview, actSave, actQuit,
}

func runEdit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(cfg)
	defer closeLog()

	out := cmd.OutOrStdout()
	c := controller.New(model.NewFactoryModel(), workspace.New(), &consoleView{out: out}, terminalPrompter{out: out}, logger)
	defer c.Close()

	if editFrom != "" {
		root, err := readToolbox(editFrom)
		if err != nil {
			return err
		}
		if err := c.ImportToolbox(root); err != nil {
			return err
		}
	}

	store, err := storage.NewFileStore(cfg.Export.Dir, logger)
	if err != nil {
		return err
	}

	for {
		menu := promptui.Select{
			Label: sessionLabel(c),
			Items: editActions,
			Size:  len(editActions),
		}
		_, action, err := menu.Run()
		if err != nil {
			if errors.Is(promptError(err), controller.ErrUserCancelled) {
				return nil
			}
			return err
		}
		if action == actQuit {
			return nil
		}
		if err := runAction(c, store, out, action); err != nil {
			if errors.Is(err, controller.ErrUserCancelled) {
				continue
			}
			fmt.Fprintf(out, "%s %v\n", promptui.IconBad, err)
		}
	}
}

func sessionLabel(c *controller.Controller) string {
	sel := c.Model().Selected()
	if sel == nil {
		return "Toolbox (nothing selected)"
	}
	if sel.Kind == model.KindFlyout {
		return "Toolbox (single flyout)"
	}
	return fmt.Sprintf("Toolbox (%d entries, editing %s)", len(c.Model().Entries()), tabLabel(sel))
}

func runAction(c *controller.Controller, store storage.ExportStore, out io.Writer, action string) error {
	switch action {
	case actAddCategory:
		_, err := c.PromptAddCategory()
		return err
	case actAddStandard:
		pick := promptui.Select{Label: "Standard category", Items: model.StandardCategoryNames()}
		_, name, err := pick.Run()
		if err != nil {
			return promptError(err)
		}
		_, err = c.LoadStandardCategory(name)
		return err
	case actAddSep:
		_, err := c.AddSeparator()
		return err
	case actSelect:
		id, err := pickEntry(c)
		if err != nil {
			return err
		}
		return c.SwitchElement(id)
	case actRename:
		return c.PromptRenameSelected()
	case actColour:
		colour, err := ask("Colour (hue or #rrggbb)", "")
		if err != nil {
			return err
		}
		return c.SetSelectedColor(colour)
	case actMoveUp:
		return c.MoveSelected(-1)
	case actMoveDown:
		return c.MoveSelected(1)
	case actRemove:
		return c.RemoveSelected()
	case actBlocks:
		text, err := ask("Blocks XML", "<xml></xml>")
		if err != nil {
			return err
		}
		root, err := model.ParseContent(text)
		if err != nil {
			return err
		}
		return c.SyncSurface(root)
	case actShadow:
		id, err := pickBlock(c)
		if err != nil {
			return err
		}
		shadow, err := c.ToggleShadow(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Block %s shadow: %t\n", id, shadow)
	case actUndo:
		if !c.Surface().Undo() {
			fmt.Fprintln(out, "Nothing to undo")
		}
	case actPreview:
		xml, err := c.ExportXML()
		if err != nil {
			return err
		}
		fmt.Fprint(out, xml)
	case actSave:
		name, err := ask("Export name", "")
		if err != nil {
			return err
		}
		xml, err := c.ExportXML()
		if err != nil {
			return err
		}
		info := &model.ExportInfo{Name: name, Categories: categoryCount(c), BlockTypes: c.UsedBlockTypes()}
		if err := store.SaveExport(info, xml); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s Saved %s\n", promptui.IconGood, fsutils.Slug(name))
	}
	return nil
}

func ask(label, def string) (string, error) {
	p := promptui.Prompt{Label: label, Default: def, AllowEdit: true}
	s, err := p.Run()
	if err != nil {
		return "", promptError(err)
	}
	return strings.TrimSpace(s), nil
}

func pickEntry(c *controller.Controller) (string, error) {
	entries := c.Model().Entries()
	if len(entries) == 0 {
		return "", fmt.Errorf("the toolbox has no entries")
	}
	items := make([]string, len(entries))
	for i, e := range entries {
		items[i] = strconv.Itoa(i+1) + ". " + tabLabel(e)
	}
	pick := promptui.Select{Label: "Entry", Items: items}
	idx, _, err := pick.Run()
	if err != nil {
		return "", promptError(err)
	}
	return entries[idx].ID, nil
}

func pickBlock(c *controller.Controller) (string, error) {
	blocks := c.Surface().AllBlocks()
	if len(blocks) == 0 {
		return "", fmt.Errorf("the workspace has no blocks")
	}
	items := make([]string, len(blocks))
	for i, b := range blocks {
		id := b.SelectAttrValue("id", "")
		mark := ""
		if c.Model().IsShadowBlock(id) {
			mark = " (shadow)"
		}
		items[i] = fmt.Sprintf("%s %s%s", b.SelectAttrValue("type", "?"), shortID(id), mark)
	}
	pick := promptui.Select{Label: "Block", Items: items}
	idx, _, err := pick.Run()
	if err != nil {
		return "", promptError(err)
	}
	return blocks[idx].SelectAttrValue("id", ""), nil
}
