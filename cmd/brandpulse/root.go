package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "brandpulse",
		Short: "Brand reputation monitoring and response workflow",
		Long: `Brandpulse collects brand mentions, scores their sentiment, assesses
crisis risk, drafts responses and gates every response through an approval
policy. Configuration is read from the environment (and .env when present).`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd(), newAnalyzeCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		},
	}
}
