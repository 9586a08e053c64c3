package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yairfalse/costscan/internal/config"
	"github.com/yairfalse/costscan/internal/telemetry"
)

var (
	version = "0.1.0"

	configPath string
	logLevel   string
	logFormat  string

	// cfg is loaded once before any subcommand runs.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "costscan",
		Short: "List billable AWS resources across all regions",
		Long: `costscan - AWS payable resource inventory

costscan walks every enabled region of the current AWS account and lists
the resources that cost money: EC2 instances, EBS volumes, Elastic IPs,
load balancers, RDS, ElastiCache, DynamoDB tables and NAT gateways, plus
S3 buckets, CloudFront distributions and EKS clusters.

Results are printed grouped by region and exported to aws_resources.csv
and aws_resources.xlsx. A check that fails is logged and skipped.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		RunE:              runScan,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`costscan {{.Version}}
`)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (.toml, .yaml or .yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console, json")

	addScanFlags(rootCmd)
}

// setup loads the config file, applies logging flags and installs the
// global logger.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	if logFormat != "" {
		loaded.Log.Format = logFormat
	}

	logger, err := telemetry.NewLogger(loaded.Log, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	log.Logger = logger

	cfg = loaded
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the costscan version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "costscan %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
