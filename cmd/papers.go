package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/paper-rag/internal/papers"
)

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "List, inspect and delete ingested papers",
}

var papersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested papers",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		return withServices(func(ctx context.Context, svc *services) error {
			list, err := svc.papers.List(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(list)
			}
			if len(list) == 0 {
				fmt.Println("No papers ingested yet.")
				return nil
			}
			for _, p := range list {
				fmt.Printf("  [%d] %s\n", p.ID, truncate(p.DisplayTitle(), 80))
				fmt.Printf("       %s, %d pages, %d chunks\n", p.Filename, p.Pages, p.ChunkCount)
			}
			fmt.Printf("\n%d papers\n", len(list))
			return nil
		})
	},
}

var papersShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a paper and its chunk statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withServices(func(ctx context.Context, svc *services) error {
			p, err := svc.papers.Get(ctx, id)
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("%w: %d", papers.ErrNotFound, id)
			}
			stats, err := svc.papers.Stats(ctx, id)
			if err != nil {
				return err
			}

			fmt.Printf("ID:       %d\n", p.ID)
			fmt.Printf("Title:    %s\n", p.DisplayTitle())
			if p.Authors != "" {
				fmt.Printf("Authors:  %s\n", p.Authors)
			}
			if p.Year != "" {
				fmt.Printf("Year:     %s\n", p.Year)
			}
			fmt.Printf("File:     %s\n", p.Filename)
			fmt.Printf("Pages:    %d\n", p.Pages)
			fmt.Printf("Chunks:   %d (avg %.0f chars, %d indexed)\n",
				stats.TotalChunks, stats.AvgChunkLength, svc.index.PaperCount(id))
			fmt.Printf("Added:    %s\n", p.CreatedAt.Format("2006-01-02 15:04"))
			if len(stats.Sections) > 0 {
				fmt.Println("Sections:")
				names := make([]string, 0, len(stats.Sections))
				for name := range stats.Sections {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Printf("  - %s (%d chunks)\n", name, stats.Sections[name])
				}
			}
			return nil
		})
	},
}

var papersDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a paper and its vectors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withServices(func(ctx context.Context, svc *services) error {
			if err := papers.Remove(ctx, svc.papers, svc.index, id); err != nil {
				return err
			}
			fmt.Printf("Deleted paper %d\n", id)
			return nil
		})
	},
}

func init() {
	papersListCmd.Flags().Bool("json", false, "output as JSON")
	papersCmd.AddCommand(papersListCmd, papersShowCmd, papersDeleteCmd)
	rootCmd.AddCommand(papersCmd)
}

// withServices loads config, opens services for the duration of fn and
// closes them afterwards.
func withServices(fn func(ctx context.Context, svc *services) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(context.Background(), svc)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid paper id %q", s)
	}
	return id, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
