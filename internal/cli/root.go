package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/cli/runner"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/config"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/service"
)

var (
	// Version is set at build time
	Version = "0.1.0"

	cfgFile    string
	jsonOutput bool

	runners = runner.NewBuilder(loadConfig, service.Open)
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "clinicguard",
	Short: "Backup, integrity verification and disaster recovery for clinic records",
	Long: `clinicguard snapshots the clinic record store to several locations,
audits the live data for integrity problems and restores validated
snapshots without ever deleting records.`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// SetVersion sets the version string
func SetVersion(v string) {
	Version = v
	rootCmd.Version = v
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "Config file (default: built-in defaults and CLINICGUARD_* variables)")
	pf.BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig reads the configuration and configures logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.NewParser().Load(cfgFile)
	if err != nil {
		logging.InitDefault()
		return nil, err
	}
	_ = logging.Init(logging.Config{Level: cfg.Logging.Level, JSON: cfg.Logging.JSON})
	return cfg, nil
}
