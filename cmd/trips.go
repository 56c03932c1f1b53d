package cmd

import (
	"fmt"
	"os"

	"github.com/sinekal/Taxiye-EIMS-Integration/src/security/validation"
	"github.com/spf13/cobra"
)

var tripsCmd = &cobra.Command{
	Use:   "trips",
	Short: "Work with Taxiye trips",
}

var tripsImportCmd = &cobra.Command{
	Use:   "import [csv-file]",
	Short: "Register invoices for every trip in a CSV export",
	Long: `Reads a trip export with a header row and registers each trip with EIMS in
file order. Trips that were already invoiced are reported and left alone, so an
interrupted import can simply be run again.

Required columns: trip_id, trip_date, trip_time, base_fare, driver_name, driver_tin.`,
	Example: `  taxiye-eims trips import september-trips.csv`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := validation.ValidateFileContent(f); err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.imports.ImportTrips(cmd.Context(), f)
		if err != nil {
			return err
		}
		if err := printJSON(res); err != nil {
			return err
		}
		if res.StopReason != "" {
			return fmt.Errorf("import stopped: %s", res.StopReason)
		}
		return nil
	},
}

func init() {
	tripsCmd.AddCommand(tripsImportCmd)
	rootCmd.AddCommand(tripsCmd)
}
