package cli

import (
	"errors"
	"fmt"

	"github.com/latestcomment/educhat/internal/services"
	"github.com/spf13/cobra"
)

func newSessionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List the sessions stored in the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store := services.NewFileStore(cfg.DataDir)
			ids, err := store.List()
			if err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintf(out, "No sessions found in %s\n", store.Dir())
				return nil
			}
			for _, id := range ids {
				turns, err := store.Peek(id)
				switch {
				case errors.Is(err, services.ErrCorruptSession):
					fmt.Fprintf(out, "%s  corrupt\n", id)
				case err != nil:
					fmt.Fprintf(out, "%s  error: %v\n", id, err)
				default:
					fmt.Fprintf(out, "%s  %d turn(s)\n", id, len(turns))
				}
			}
			return nil
		},
	}
}
