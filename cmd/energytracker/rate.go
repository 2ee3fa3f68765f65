package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"energytracker/internal/core"
)

var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Show or change the billing rate per kWh",
}

var rateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the rate currently used for bills",
	Args:  cobra.NoArgs,
	RunE:  runRateShow,
}

var rateSetCmd = &cobra.Command{
	Use:   "set <rate>",
	Short: "Append a new rate effective today",
	Long: `Appends a new rate per kWh to the rate history. The latest rate applies to
every month's bill, including months recorded before the change.`,
	Args: cobra.ExactArgs(1),
	RunE: runRateSet,
}

var rateHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List every recorded rate, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRateHistory,
}

func init() {
	rateCmd.AddCommand(rateShowCmd, rateSetCmd, rateHistoryCmd)
	rootCmd.AddCommand(rateCmd)
}

func runRateShow(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap(os.Stderr)
	if err != nil {
		return err
	}
	svc, err := openService(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	rate, err := svc.CurrentRate(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading rate: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s per kWh\n", core.FormatCurrency(rate))
	return nil
}

func runRateSet(cmd *cobra.Command, args []string) error {
	value, err := core.ValidatePositiveNumber(args[0], "Rate")
	if err != nil {
		return err
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

	rate, err := svc.UpdateRate(cmd.Context(), value)
	if err != nil {
		return fmt.Errorf("updating rate: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Rate set to %s per kWh from %s\n",
		core.FormatCurrency(rate.RatePerKWh), rate.EffectiveDate)
	return nil
}

func runRateHistory(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap(os.Stderr)
	if err != nil {
		return err
	}
	svc, err := openService(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	rates, err := svc.RateHistory(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing rates: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EFFECTIVE\tRATE/kWh\tRECORDED")
	for _, r := range rates {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.EffectiveDate, core.FormatCurrency(r.RatePerKWh),
			r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
