package main

import (
	"fmt"
	"os"

	"github.com/matsen/skinrec/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a skinrec repository in the current directory",
	Long: `Create a .skinrec directory holding the default config.yml, empty
products, concepts, users and analyses JSONL files, and the cache directory.

Existing files are left untouched.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}
	if config.IsRepository(cwd) {
		exitWithError(ExitError, "repository already exists at %s", config.SkinrecPath(cwd))
	}

	if err := initRepository(cwd); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		outputHuman("Initialized skinrec repository in %s\n", config.SkinrecPath(cwd))
	} else {
		outputJSON(StatusResponse{Status: "initialized", Path: config.SkinrecPath(cwd)})
	}
	return nil
}

// initRepository lays out a new repository under root.
func initRepository(root string) error {
	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	if _, err := os.Stat(config.ConfigPath(root)); os.IsNotExist(err) {
		if err := config.Default().Save(root); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
	}

	src := config.Sources(root)
	for _, path := range []string{src.Products, src.Concepts, src.Users, src.Analyses} {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		f.Close()
	}
	return nil
}
