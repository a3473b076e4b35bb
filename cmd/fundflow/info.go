package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <code>",
	Short: "Show the normalized code and market of a stock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stock, err := uc.Resolve(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "code:      %s\n", stock.Code)
		fmt.Fprintf(out, "market:    %s\n", stock.Market)
		fmt.Fprintf(out, "full code: %s\n", stock.FullCode)
		return nil
	},
}
