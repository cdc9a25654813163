package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/paper-rag/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize paperrag configuration with an interactive wizard",
	Long:  `Runs an interactive wizard that picks the generation and embedding backends and writes a .paperrag.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.RunWizard(cfgFile)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s (llm: %s/%s, embeddings: %s/%s)\n",
			cfgFile, cfg.LLM.Provider, cfg.LLM.Model, cfg.Embedding.Provider, cfg.Embedding.Model)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
