package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var ingestDocID string

// ingestCmd indexes one or more local documents. PDFs get native extraction
// with OCR fallback when enabled; anything else is read as HTML.
var ingestCmd = &cobra.Command{
	Use:   "ingest <file> [file...]",
	Short: "Extract, chunk, embed and index documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestDocID != "" && len(args) > 1 {
			return fmt.Errorf("--id can only be used with a single file")
		}

		p, err := buildPipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer p.Close()

		bar := getProgressBar(len(args), "Ingesting documents...")

		var failed int
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				bar.Add(1)
				color.Red("\n✗ %s: %v", path, err)
				failed++
				continue
			}

			docID := ingestDocID
			if docID == "" {
				docID = uuid.NewString()
			}

			filename := filepath.Base(path)
			result, err := p.Ingest(cmd.Context(), data, docID, filename)
			bar.Add(1)
			if err != nil {
				color.Red("\n✗ %s: %v", path, err)
				failed++
				continue
			}

			line := fmt.Sprintf("✓ %s → %s (%d chunks", filename, docID, result.ChunksIndexed)
			if result.PagesFailed > 0 {
				line += fmt.Sprintf(", %d pages failed", result.PagesFailed)
			}
			color.Green("\n%s)", line)
		}
		bar.Finish()

		if failed > 0 {
			return fmt.Errorf("%d of %d documents failed", failed, len(args))
		}
		color.Green("\n✓ Ingested %d documents\n", len(args))
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDocID, "id", "", "document id (single file only; generated when empty)")
	rootCmd.AddCommand(ingestCmd)
}
