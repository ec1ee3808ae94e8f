package cli

import (
	"fmt"

	"github.com/latestcomment/educhat/internal/services"
	"github.com/spf13/cobra"
)

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [session-id]",
		Short: "Print a stored session as JSON or as a text transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			if format != "json" && format != "text" {
				return fmt.Errorf("unknown format %q: use json or text", format)
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			id := args[0]
			store := services.NewFileStore(cfg.DataDir)
			if !services.ValidSessionID(id) {
				return fmt.Errorf("%w: %s", services.ErrInvalidSessionID, id)
			}
			if !store.Exists(id) {
				return fmt.Errorf("session %s not found in %s", id, store.Dir())
			}
			turns, err := store.Load(id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "text" {
				return services.WriteTranscript(out, id, turns)
			}
			data, err := services.ExportJSON(turns)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
	cmd.Flags().String("format", "json", "output format: json or text")
	return cmd
}
