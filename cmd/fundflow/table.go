package main

import (
	"fmt"

	"FundFlow/internal/domain/models"

	"github.com/spf13/cobra"
)

var tableDays int

var tableCmd = &cobra.Command{
	Use:   "table <code>",
	Short: "Print the processed fund flow table as Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := uc.Load(cmd.Context(), args[0], tableDays)
		if err != nil {
			return err
		}
		printHeader(cmd, res)
		fmt.Fprint(cmd.OutOrStdout(), res.Markdown)
		return nil
	},
}

func init() {
	tableCmd.Flags().IntVarP(&tableDays, "days", "d", 0, "trading days to show, 0 for the configured default")
}

func printHeader(cmd *cobra.Command, res *models.FundFlowResult) {
	out := cmd.OutOrStdout()
	name := res.Name
	if name == "" {
		name = res.Stock.FullCode
	}
	fmt.Fprintf(out, "## %s (%s) 最近%d个交易日资金流\n\n", name, res.Stock.FullCode, res.Days)
	s := res.Summary
	if s.MainNetTotal.Valid {
		fmt.Fprintf(out, "主力净流入合计: %.2f 亿元\n", s.MainNetTotal.Float64)
	}
	if s.LatestClose.Valid {
		fmt.Fprintf(out, "最新收盘价: %.2f", s.LatestClose.Float64)
		if s.LatestChange.Valid {
			fmt.Fprintf(out, " (%+.2f%%)", s.LatestChange.Float64)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out)
}
