package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var analyzeDays int

var analyzeCmd = &cobra.Command{
	Use:   "analyze <code>",
	Short: "Print the table, then stream an LLM analysis of it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, fragments, errs, err := uc.Analyze(cmd.Context(), args[0], analyzeDays)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printHeader(cmd, res)
		fmt.Fprintln(out, res.Markdown)
		fmt.Fprintln(out, "## 分析")
		fmt.Fprintln(out)
		for f := range fragments {
			fmt.Fprint(out, f)
		}
		fmt.Fprintln(out)
		return <-errs
	},
}

func init() {
	analyzeCmd.Flags().IntVarP(&analyzeDays, "days", "d", 0, "trading days to analyze, 0 for the configured default")
}
