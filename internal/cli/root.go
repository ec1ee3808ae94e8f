// Package cli holds the educhat command tree.
package cli

import (
	"github.com/latestcomment/educhat/internal/config"
	"github.com/latestcomment/educhat/internal/logging"
	"github.com/spf13/cobra"
)

var version = "dev"

// NewRootCommand builds the educhat command with all subcommands attached.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "educhat",
		Short: "EduChat - compare free LLM answers and tag questions with Bloom's taxonomy",
		Long: `EduChat sends one question to several free models, shows the answers side by side,
records which answer the student found best and tags the question with its
Bloom's taxonomy level.

Use 'educhat [command] --help' for more information.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "educhat.yaml", "path to the YAML config file")

	root.AddCommand(
		newServeCommand(),
		newSessionsCommand(),
		newExportCommand(),
		newClassifyCommand(),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// loadConfig reads the --config flag, loads the effective configuration and
// sets up the global logger from it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logging.SetupWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}
