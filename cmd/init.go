package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conneroisu/binserve/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "init [directory]",
		Aliases: []string{"i"},
		Short:   "Write the starter site",
		Long: `Write binserve.json and a starter site into the given directory, or the
current directory when none is given. Existing files are never overwritten.

Examples:
  binserve init             # Initialize in current directory
  binserve init my-site     # Create my-site and initialize it`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	created, err := config.WriteStarter(dir)
	if err != nil {
		return err
	}

	if len(created) == 0 {
		printInfo(out, "Nothing to do, every starter file already exists in %s", dir)
		return nil
	}
	for _, name := range created {
		printInfo(out, "Created %s", filepath.ToSlash(name))
	}
	printSuccess(out, "Starter site ready, run binserve in %s to serve it", dir)
	return nil
}
