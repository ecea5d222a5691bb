package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"go-toolbox-factory/internal/model"
	"go-toolbox-factory/internal/storage"
	"go-toolbox-factory/pkg/fsutils"
)

var (
	buildOutput string
	buildSave   bool
)

var buildCmd = &cobra.Command{
	Use:   "build <description.yml>",
	Short: "Generate toolbox XML from a YAML description",
	Long: `Build replays a YAML toolbox description through an editing session and
writes the generated toolbox XML to stdout, to --output, or with --save to the
export directory from the config.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "write the toolbox XML to this file")
	buildCmd.Flags().BoolVar(&buildSave, "save", false, "store the toolbox in the export directory")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(cfg)
	defer closeLog()

	// 1. Parse the description
	data, err := fsutils.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading description: %w", err)
	}
	desc, err := ParseDescription(data)
	if err != nil {
		return err
	}

	// 2. Replay it
	c, err := desc.Build(logger)
	if err != nil {
		return err
	}
	defer c.Close()
	out, err := c.ExportXML()
	if err != nil {
		return err
	}

	// 3. Write the result
	switch {
	case buildSave:
		name := strings.TrimSpace(desc.Name)
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
		store, err := storage.NewFileStore(cfg.Export.Dir, logger)
		if err != nil {
			return err
		}
		info := &model.ExportInfo{Name: name, Categories: categoryCount(c), BlockTypes: c.UsedBlockTypes()}
		if err := store.SaveExport(info, out); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", name, filepath.Join(store.GetBasePath(), info.File))
	case buildOutput != "":
		if err := fsutils.WriteToFile(buildOutput, []byte(out)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", buildOutput)
	default:
		fmt.Fprint(cmd.OutOrStdout(), out)
	}
	logger.Debug("Built toolbox", "description", args[0], "entries", len(c.Model().Entries()))
	return nil
}
