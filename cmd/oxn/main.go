package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:     "oxn",
	Short:   "Observability-experiments and chaos-engineering runner",
	Long:    `oxn runs declarative experiment specs: it injects treatments into a docker-compose system under experiment, observes Prometheus/Jaeger response variables around them, and reports per-treatment statistics.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "engine config file (default ./oxn.yaml)")
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
