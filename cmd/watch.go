package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/paper-rag/internal/ingest"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest papers as they appear in a directory",
	Long: `Ingests the PDFs already in dir that are not registered yet, then watches
dir and ingests new files as they appear. A file that changes after it was
ingested is re-ingested.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		settle, _ := cmd.Flags().GetDuration("settle")

		info, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		svc, err := openServices(cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pipe := svc.pipeline()

		// Catch up on files added while nothing was watching.
		existing, err := ingest.Collect(dir, cfg.Ingest.Include, cfg.Ingest.Exclude)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			ingest.NewBatcher(cfg.Ingest.Concurrency, pipe, nil).Run(ctx, existing)
		}

		w := ingest.NewWatcher(dir, cfg.Ingest.Include, cfg.Ingest.Exclude,
			ingest.NewBatcher(cfg.Ingest.Concurrency, pipe.Replacing(), nil), settle)
		w.OnBatch = func(res *ingest.BatchResult) {
			for _, r := range res.Results {
				if r.Status == ingest.StatusOK {
					log.Info().Str("file", r.File).Int64("paper_id", r.PaperID).Msg("watched paper ingested")
				}
			}
		}
		return w.Run(ctx)
	},
}

func init() {
	watchCmd.Flags().Duration("settle", ingest.DefaultSettle, "quiet period before a changed file is ingested")
	rootCmd.AddCommand(watchCmd)
}
