package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"gatewaybench/internal/apiclient"
)

func newModelsCmd(server *string) *cobra.Command {
	var retries int
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models with availability and throughput",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := apiclient.New(*server, apiclient.WithRetry(retries, delay))
			models, err := client.FetchModels(cmd.Context())
			if err != nil {
				slog.Warn("server unreachable, showing default models", "error", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLABEL\tAVAILABLE\tTOKENS/S\tRANK")
			for _, m := range models {
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", m.ID, m.Label, m.IsAvailable, fmtFloat(m.TokensPerSecond), fmtInt(m.Rank))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&retries, "retries", apiclient.DefaultMaxRetries, "retries before falling back to the default models")
	cmd.Flags().DurationVar(&delay, "retry-delay", apiclient.DefaultRetryDelay, "wait between retries")
	return cmd
}

func newLeaderboardCmd(server *string) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the public throughput leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := apiclient.New(*server).FetchLeaderboard(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tMODEL\tPROVIDER\tTOKENS/S")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", fmtInt(e.Rank), e.Model, e.Provider, fmtFloat(e.TokensPerSecond))
			}
			return w.Flush()
		},
	}
}

func newBenchmarkCmd(server *string) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "benchmark [model...]",
		Short: "Benchmark models (all available models when none are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := apiclient.New(*server)
			if _, err := client.RunBenchmarks(cmd.Context(), args, refresh); err != nil {
				return err
			}
			entries, source, err := client.FetchBenchmarks(cmd.Context())
			if err != nil {
				return err
			}
			slog.Debug("benchmark listing fetched", "source", source, "count", len(entries))

			return printBenchmarks(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached results and rerun")
	return cmd
}
