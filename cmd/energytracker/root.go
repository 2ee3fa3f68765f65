package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"energytracker/internal/cli"
	"energytracker/internal/config"
	"energytracker/internal/log"
	"energytracker/internal/services"
)

var (
	envFile string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "energytracker",
	Short: "Track household appliance energy use and estimate the monthly bill",
	Long: `energytracker records daily appliance usage (power rating and hours used),
stores it in a local SQLite database and reports monthly energy and cost.

Configuration is read from the environment. Run "energytracker env" to list
every supported variable.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (overrides DATABASE)")
}

// loadConfig reads the dotenv file and the environment. The --db flag takes
// precedence over DATABASE.
func loadConfig() (*config.Config, error) {
	if err := cli.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	if dbPath != "" {
		if err := os.Setenv("DATABASE", dbPath); err != nil {
			return nil, err
		}
	}
	return cli.LoadAndValidateConfig()
}

// bootstrap loads the configuration and sets up logging into out.
func bootstrap(out io.Writer) (*config.Config, *log.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, cli.SetupLogger(cfg, out), nil
}

// openService opens the store behind a service that publishes nothing.
// Used by the offline subcommands.
func openService(cfg *config.Config, logger *log.Logger) (*services.EnergyService, error) {
	store, err := cli.InitStore(cfg, logger.WithComponent(log.ComponentStorage))
	if err != nil {
		return nil, err
	}
	return services.NewEnergyService(store, nil, nil, logger), nil
}
