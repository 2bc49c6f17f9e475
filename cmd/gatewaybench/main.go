// Command gatewaybench serves the model benchmark API and queries a running server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gatewaybench/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	root := &cobra.Command{
		Use:           "gatewaybench",
		Short:         "Model catalog, throughput leaderboard and benchmarks behind an LLM gateway",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Running without a subcommand starts the server.
		RunE: serve.RunE,
	}
	root.Flags().AddFlagSet(serve.Flags())

	var server string
	root.PersistentFlags().StringVar(&server, "server", envOr("GATEWAYBENCH_URL", "http://localhost:8080"),
		"base URL of a running gatewaybench server")

	root.AddCommand(
		serve,
		newModelsCmd(&server),
		newLeaderboardCmd(&server),
		newBenchmarkCmd(&server),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
