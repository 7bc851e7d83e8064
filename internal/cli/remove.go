package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// removeCmd deletes every indexed chunk of a document.
var removeCmd = &cobra.Command{
	Use:   "remove <document-id>",
	Short: "Remove a document from the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer p.Close()

		if err := p.Remove(cmd.Context(), args[0]); err != nil {
			return err
		}
		color.Green("✓ Removed document %s", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
