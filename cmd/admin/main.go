package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	persistlog "overburnt.game/internal/persistence/log"
)

var dataDir string

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "overburnt-admin",
		Short: "Inspect recorded sessions and a running server",
		Long: `Offline and online inspection of an Overburnt server.

Examples:
  overburnt-admin logs
  overburnt-admin db sessions --limit 5
  overburnt-admin db attempts 2f1c0a9e-...
  overburnt-admin db levels
  overburnt-admin health --url http://127.0.0.1:8080`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVar(&dataDir, "data", "./data", "runtime data directory")
	root.SetOut(stdout)

	root.AddCommand(newLogsCommand())
	root.AddCommand(newDBCommand())
	root.AddCommand(newHealthCommand())
	return root
}

// newLogsCommand lists the session directories that hold tick logs.
func newLogsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "List sessions with tick logs on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			base := filepath.Join(dataDir, "sessions")
			entries, err := os.ReadDir(base)
			if err != nil {
				return fmt.Errorf("read %s: %w", base, err)
			}
			for _, e := range entries {
				if !e.IsDir() {
					continue
				}
				files, err := persistlog.ListTickFiles(filepath.Join(base, e.Name()))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d files\n", e.Name(), len(files))
			}
			return nil
		},
	}
}
