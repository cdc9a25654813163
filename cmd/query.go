package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/paper-rag/internal/answer"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question about the ingested papers",
	Long:  `Retrieves the most relevant passages, generates an answer with the configured LLM and prints it with its cited sources. The answer streams to the terminal as it is generated.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().Int("top-k", 0, "number of passages to answer from (default retrieval.top_k)")
	queryCmd.Flags().Int64Slice("paper", nil, "restrict to these paper ids (repeatable)")
	queryCmd.Flags().Bool("json", false, "output the full result as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := strings.Join(args, " ")

	topK, _ := cmd.Flags().GetInt("top-k")
	paperIDs, _ := cmd.Flags().GetInt64Slice("paper")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if topK < 0 || topK > cfg.Retrieval.MaxTopK {
		return fmt.Errorf("--top-k must be between 1 and %d", cfg.Retrieval.MaxTopK)
	}

	svc, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	if svc.index.Count() == 0 {
		fmt.Println("No papers indexed. Run `paperrag ingest <dir>` first.")
		return nil
	}

	synth, err := svc.synthesizer()
	if err != nil {
		return err
	}

	req := answer.Request{Question: question, TopK: topK, PaperIDs: paperIDs}

	if jsonOutput {
		res, err := synth.Answer(ctx, req)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	res, err := synth.Stream(ctx, req, func(delta string) error {
		_, err := fmt.Print(delta)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Println()
	printSources(res)
	return nil
}

func printSources(res *answer.Result) {
	if len(res.Citations) > 0 {
		fmt.Println("\nSources:")
		for _, c := range res.Citations {
			fmt.Printf("  (Source %d) %s\n", c.SourceIndex, c.PaperTitle)
			fmt.Printf("     %s, pages %s [%.2f]\n", c.Section, c.Page, c.RelevanceScore)
		}
	}
	fmt.Printf("\nConfidence: %.0f%%  (%d ms)\n", res.Confidence*100, res.ResponseTimeMs)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
