package cmd

import (
	"fmt"
	"os"

	"github.com/sinekal/Taxiye-EIMS-Integration/src/config"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/logger"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "taxiye-eims",
	Short: "Registers Taxiye trip invoices and receipts with the Ethiopian EIMS gateway",
	Long: `taxiye-eims receives completed trips from the Taxiye platform, registers
their invoices with the Ministry of Revenue EIMS gateway and keeps the local
document number / invoice counter sequence in step with it.

Configuration is read from the environment or a .env file.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadConfig()
		if cmd == serveCmd {
			logger.InitLogger(config.Cfg.LogLevel)
			return
		}
		// command output goes to stdout
		logger.InitLoggerWithWriter(config.Cfg.LogLevel, os.Stderr)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.L.Error("Command execution failed", "command", os.Args[1:], "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
