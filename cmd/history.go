package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/paper-rag/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past questions",
}

var historyRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recent questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		return withServices(func(ctx context.Context, svc *services) error {
			queries, err := svc.history.ListRecent(ctx, limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(queries)
			}
			if len(queries) == 0 {
				fmt.Println("No questions recorded yet.")
				return nil
			}
			for _, q := range queries {
				rating := "-"
				if q.Rating != nil {
					rating = fmt.Sprintf("%d/5", *q.Rating)
				}
				fmt.Printf("  [%d] %s  %s\n", q.ID, q.CreatedAt.Local().Format("2006-01-02 15:04"), truncate(q.Question, 70))
				fmt.Printf("       confidence %.0f%%, %d ms, rating %s, papers %v\n",
					q.Confidence*100, q.ResponseTimeMs, rating, q.PaperIDs)
			}
			return nil
		})
	},
}

var historyTopicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Show the most frequent question topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withServices(func(ctx context.Context, svc *services) error {
			topics, err := svc.history.PopularTopics(ctx, limit)
			if err != nil {
				return err
			}
			if len(topics) == 0 {
				fmt.Println("No questions recorded yet.")
				return nil
			}
			for i, t := range topics {
				fmt.Printf("  %2d. %-24s %d\n", i+1, t.Topic, t.Count)
			}

			sum, err := svc.history.Summary(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("\n%d questions, avg confidence %.0f%%, avg %.0f ms\n",
				sum.TotalQueries, sum.AvgConfidence*100, sum.AvgResponseTimeMs)
			return nil
		})
	},
}

func init() {
	historyRecentCmd.Flags().Int("limit", history.DefaultRecentLimit, "number of questions to show")
	historyRecentCmd.Flags().Bool("json", false, "output as JSON")
	historyTopicsCmd.Flags().Int("limit", history.DefaultTopicLimit, "number of topics to show")
	historyCmd.AddCommand(historyRecentCmd, historyTopicsCmd)
	rootCmd.AddCommand(historyCmd)
}
