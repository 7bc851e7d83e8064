package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/haydenk/askpdf/internal/models"
	"github.com/haydenk/askpdf/pkg/pipeline"
)

var (
	askTopK        int
	askShowSources bool
)

// askCmd answers a single question, or starts an interactive loop when no
// question is given.
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against the indexed documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer p.Close()

		if len(args) > 0 {
			return askOnce(cmd, p, strings.Join(args, " "))
		}
		return askLoop(cmd, p)
	},
}

func askOnce(cmd *cobra.Command, p *pipeline.Pipeline, query string) error {
	spinner := getSpinner("Thinking...")
	record, err := p.Ask(cmd.Context(), query, askTopK)
	spinner.Finish()
	fmt.Print("\r")
	if err != nil {
		return err
	}

	printAnswer(record)
	return nil
}

func askLoop(cmd *cobra.Command, p *pipeline.Pipeline) error {
	color.Cyan("\nChat with your documents (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if strings.ToLower(query) == "exit" {
			break
		}

		spinner := getSpinner("Thinking...")
		record, err := p.Ask(cmd.Context(), query, askTopK)
		spinner.Finish()
		fmt.Print("\r")
		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}

		printAnswer(record)
	}
	return scanner.Err()
}

func printAnswer(record *models.AnswerRecord) {
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	if record.NoAnswer {
		color.Yellow("\n%s\n", record.Answer)
		return
	}

	assistantPrompt("\nAssistant: %s\n", record.Answer)

	if askShowSources && len(record.Sources) > 0 {
		faint := color.New(color.Faint).PrintfFunc()
		faint("\nSources:\n")
		for _, src := range record.Sources {
			faint("  [%.2f] %s p.%d\n", src.Score, src.Chunk.ID.DocumentID, src.Chunk.ID.Page)
		}
	}
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (0 uses the configured default)")
	askCmd.Flags().BoolVar(&askShowSources, "sources", false, "print the retrieved sources with scores")
	rootCmd.AddCommand(askCmd)
}
