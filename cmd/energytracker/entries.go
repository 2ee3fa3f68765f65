package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"energytracker/internal/core"
)

var entriesCmd = &cobra.Command{
	Use:   "entries [month] [year]",
	Short: "Print the entries and bill of one month",
	Long:  `Prints every entry of the month, the total energy and the bill. Defaults to the current month.`,
	Args:  cobra.MaximumNArgs(2),
	RunE:  runEntries,
}

func init() {
	rootCmd.AddCommand(entriesCmd)
}

func runEntries(cmd *cobra.Command, args []string) error {
	now := time.Now()
	month, year := int(now.Month()), now.Year()

	var err error
	if len(args) > 0 {
		if month, err = strconv.Atoi(args[0]); err != nil {
			return fmt.Errorf("invalid month %q", args[0])
		}
	}
	if len(args) > 1 {
		if year, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("invalid year %q", args[1])
		}
	}

	cfg, logger, err := bootstrap(os.Stderr)
	if err != nil {
		return err
	}
	svc, err := openService(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	report, err := svc.MonthlyReport(cmd.Context(), month, year)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %d\n\n", report.MonthName(), report.Year)
	if len(report.Entries) == 0 {
		fmt.Fprintf(out, "No entries found for %s %d\n", report.MonthName(), report.Year)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "DATE\tAPPLIANCE\tWATTS\tHOURS\tkWh\t")
	for _, e := range report.Entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.2f\t\n", e.Date, e.Appliance, e.PowerWatts, e.HoursUsed, e.EnergyKWh)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nTotal: %.2f kWh at %s per kWh = %s (%d entries)\n",
		report.TotalKWh, core.FormatCurrency(report.RatePerKWh), core.FormatCurrency(report.Bill), len(report.Entries))
	return nil
}
