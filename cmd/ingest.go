package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/paper-rag/internal/ingest"
	"github.com/ziadkadry99/paper-rag/internal/progress"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths...]",
	Short: "Ingest PDF papers into the library",
	Long: `Extracts, chunks and embeds PDF files and adds them to the library.
Directories are walked using the ingest.include and ingest.exclude globs.
Papers whose filename is already registered are skipped unless --replace
is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Bool("replace", false, "re-ingest papers whose filename is already registered")
	ingestCmd.Flags().Int("concurrency", 0, "documents processed at once (default ingest.concurrency)")
	ingestCmd.Flags().Bool("json", false, "output the batch result as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	replace, _ := cmd.Flags().GetBool("replace")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency <= 0 {
		concurrency = cfg.Ingest.Concurrency
	}

	files, err := ingest.Resolve(args, cfg.Ingest.Include, cfg.Ingest.Exclude)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "No PDF files found.")
		return nil
	}
	fmt.Fprintf(os.Stderr, "Found %d PDF files to ingest\n", len(files))

	svc, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	pipe := svc.pipeline()
	if replace {
		pipe = pipe.Replacing()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up progress reporting.
	reporter := progress.NewReporter()
	reporter.Start(len(files))
	batcher := ingest.NewBatcher(concurrency, pipe, func(current, total int, file string) {
		reporter.Update(current, filepath.Base(file))
	})
	result := batcher.Run(ctx, files)
	reporter.Finish()

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	for _, r := range result.Results {
		switch r.Status {
		case ingest.StatusOK:
			fmt.Printf("  ok       %s -> [%d] %s (%d chunks)\n", filepath.Base(r.File), r.PaperID, r.Title, r.Chunks)
		case ingest.StatusSkipped:
			fmt.Printf("  skipped  %s (already ingested)\n", filepath.Base(r.File))
		default:
			fmt.Printf("  failed   %s: %s\n", filepath.Base(r.File), r.Error)
		}
	}
	s := result.Summary
	fmt.Printf("\n%d ingested, %d skipped, %d failed\n", s.Succeeded, s.Skipped, s.Failed)

	if s.Failed > 0 {
		return fmt.Errorf("%d of %d papers failed to ingest", s.Failed, len(files))
	}
	return nil
}
