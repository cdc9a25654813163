package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/paper-rag/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing ask_papers, list_papers and search_passages tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		svc, err := openServices(cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		synth, err := svc.synthesizer()
		if err != nil {
			return err
		}

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		log.Info().Int("vectors", svc.index.Count()).Msg("paperrag MCP server started on stdio")

		srv := mcpserver.NewServer(synth, svc.papers, svc.retriever(), cfg.Retrieval.MaxTopK)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
