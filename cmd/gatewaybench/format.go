package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"gatewaybench/internal/core"
)

func printBenchmarks(out io.Writer, entries []core.BenchmarkEntry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tPROVIDER\tTOKENS/S\tTTFT (S)\tTOTAL (S)\tMEASURED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%.1f\t%.2f\t%.2f\t%s\n",
			e.ModelName, e.Provider, e.TokensPerSecond, e.TimeToFirstToken, e.TotalTime,
			time.UnixMilli(e.Timestamp).UTC().Format(time.DateTime))
	}
	return w.Flush()
}

func fmtFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func fmtInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
