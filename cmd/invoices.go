package cmd

import (
	"github.com/spf13/cobra"
)

var invoicesLimit int

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "List invoices registered with EIMS, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.invoiceRepo.ListInvoices(cmd.Context(), invoicesLimit)
		if err != nil {
			return err
		}
		return printJSON(list)
	},
}

func init() {
	invoicesCmd.Flags().IntVar(&invoicesLimit, "limit", 20, "maximum number of invoices to print")
	rootCmd.AddCommand(invoicesCmd)
}
