package cli

import (
	"fmt"
	"strings"

	"github.com/latestcomment/educhat/internal/services"
	"github.com/spf13/cobra"
)

func newClassifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [text...]",
		Short: "Print the Bloom's taxonomy level of a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			c := services.NewClassifier(services.ProseTagger{})
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, c.Classify(text))

			if breakdown, _ := cmd.Flags().GetBool("breakdown"); breakdown {
				counts, err := c.Breakdown(text)
				if err != nil {
					return err
				}
				for _, level := range services.BloomLevels {
					if n := counts[level.Name]; n > 0 {
						fmt.Fprintf(out, "  %s: %d\n", level.Name, n)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("breakdown", false, "also print verb matches per level")
	return cmd
}
