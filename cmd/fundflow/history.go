package main

import (
	"fmt"
	"text/tabwriter"

	"FundFlow/internal/domain/models"
	xutil "FundFlow/pkg/util"

	"github.com/guregu/null/v6"
	"github.com/spf13/cobra"
)

var (
	historyFrom  string
	historyTo    string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history <code>",
	Short: "List archived raw rows of a stock, amounts in yuan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := xutil.ParseDate(historyFrom)
		if err != nil {
			return err
		}
		to, err := xutil.ParseDate(historyTo)
		if err != nil {
			return err
		}
		stock, rows, err := uc.History(cmd.Context(), args[0], from, to, historyLimit)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintf(tw, "%s\t收盘价\t涨跌幅\t主力净额\t主力净占比\t\n", stock.FullCode)
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", r.DateKey(),
				cell(r.ClosePrice), cell(r.ChangePct),
				cell(r.NetAmount[models.ClassMain]), cell(r.NetRatio[models.ClassMain]))
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyFrom, "from", "", "first date, YYYY-MM-DD")
	historyCmd.Flags().StringVar(&historyTo, "to", "", "last date, YYYY-MM-DD")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 30, "maximum rows, most recent first")
}

func cell(f null.Float) string {
	if !f.Valid {
		return "-"
	}
	return fmt.Sprintf("%.2f", f.Float64)
}
