package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var eimsCmd = &cobra.Command{
	Use:   "eims",
	Short: "EIMS gateway utilities",
}

var eimsPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Authenticate against EIMS with the stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.gateway.Ping(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("EIMS connection established")
		return nil
	},
}

func init() {
	eimsCmd.AddCommand(eimsPingCmd)
	rootCmd.AddCommand(eimsCmd)
}
