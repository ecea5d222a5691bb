package main

import (
	"fmt"
	"os"

	"github.com/beevik/etree"
	"github.com/spf13/cobra"

	"go-toolbox-factory/internal/blocklib"
	"go-toolbox-factory/internal/model"
	"go-toolbox-factory/pkg/fsutils"
)

var (
	libraryDir     string
	libraryToolbox string
	libraryOutput  string
)

var libraryCmd = &cobra.Command{
	Use:   "library [pattern...]",
	Short: "Inspect block definition libraries",
	Long: `Library loads block definition files matching the given doublestar
patterns (default: the library.preload patterns from the config) and lists
their block types. With --toolbox only the definitions the toolbox uses are
kept; with --output they are written back as one library file.`,
	RunE: runLibrary,
}

func init() {
	libraryCmd.Flags().StringVar(&libraryDir, "dir", ".", "directory the patterns are relative to")
	libraryCmd.Flags().StringVar(&libraryToolbox, "toolbox", "", "keep only the block types used by this toolbox XML file")
	libraryCmd.Flags().StringVarP(&libraryOutput, "output", "o", "", "write the selected definitions to this file")
	rootCmd.AddCommand(libraryCmd)
}

func runLibrary(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(cfg)
	defer closeLog()

	patterns := args
	if len(patterns) == 0 {
		patterns = cfg.Library.Preload
	}
	if len(patterns) == 0 {
		return fmt.Errorf("no library patterns given and none configured")
	}

	lib := blocklib.New(logger)
	if _, err := lib.LoadFiles(os.DirFS(libraryDir), patterns...); err != nil {
		return err
	}

	if libraryToolbox != "" {
		root, err := readToolbox(libraryToolbox)
		if err != nil {
			return err
		}
		lib = lib.Filter(UsedTypes(root))
	}

	if libraryOutput != "" {
		out, err := lib.Export()
		if err != nil {
			return err
		}
		if err := fsutils.WriteToFile(libraryOutput, []byte(out)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d definitions to %s\n", lib.Len(), libraryOutput)
		return nil
	}
	for _, t := range lib.BlockTypes() {
		fmt.Fprintln(cmd.OutOrStdout(), t)
	}
	return nil
}

// readToolbox loads a toolbox XML file.
func readToolbox(path string) (*etree.Element, error) {
	data, err := fsutils.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading toolbox: %w", err)
	}
	root, err := model.ParseContent(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing toolbox %s: %w", path, err)
	}
	return root, nil
}

// UsedTypes lists the block types a toolbox document references.
func UsedTypes(toolbox *etree.Element) []string {
	return model.NewFactoryModel().CollectUsedBlockTypes(toolbox)
}
