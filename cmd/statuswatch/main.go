package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "statuswatch",
	Short: "Statuswatch - status page to Prometheus exporter",
	Long: `Statuswatch polls vendor status pages (StatusPage.io JSON APIs and
HTML-rendered pages), tracks incidents, maintenance windows and component
health, and exposes the normalized state as Prometheus metrics.

Metrics are updated selectively: gauges change only when the observed
state actually changes, and transient fetch failures fall back to the
last known good state instead of blanking alerts.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Statuswatch version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "statuswatch.yaml", "path to configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cacheCmd)
}
