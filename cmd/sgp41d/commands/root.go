// Package commands implements the sgp41d CLI: the host-side simulator for
// the SGP41 air-quality firmware, plus a small codec console.
package commands

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "sgp41d",
	Short: "SGP41 VOC/NOx sensor firmware, host simulator",
	Long: `sgp41d runs the SGP41 air-quality firmware pipeline against a
simulated sensor bus: conditioning warm-up, steady-state measurement,
classification and the status indicator, all on the host.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lvl, err := log.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		log.SetLevel(lvl)
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		return nil
	},
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (defaults used when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "logrus level (trace..panic)")
}
