package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/run"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yairfalse/costscan/internal/config"
	"github.com/yairfalse/costscan/internal/emitter"
	"github.com/yairfalse/costscan/internal/orchestrator"
	"github.com/yairfalse/costscan/internal/plugin"
	"github.com/yairfalse/costscan/internal/plugin/aws"
	"github.com/yairfalse/costscan/internal/telemetry"
)

// scanFlags are the command-line overrides for config values.
type scanFlags struct {
	regions         []string
	excludeRegions  []string
	eksRegions      []string
	services        []string
	excludeServices []string
	profile         string
	concurrency     int
	checkTimeout    time.Duration
	outputDir       string
	noConsole       bool
	noCSV           bool
	noXLSX          bool
	json            bool
	metricsFile     string
}

var flags scanFlags

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan all regions and export billable resources",
	Long: `Scan every enabled region for billable resources, print them grouped
by region and write aws_resources.csv and aws_resources.xlsx.

Checks that fail (access denied, service not available in a region,
throttling, timeouts) are logged at WARN and contribute no rows.`,
	Example: `  costscan scan                                  # Scan every enabled region
  costscan scan --regions us-east-1,eu-west-1    # Scan selected regions
  costscan scan --exclude-services cloudfront    # Skip a service
  costscan scan --output-dir /tmp/report --json  # Also write aws_resources.json
  costscan scan --metrics-file costscan.prom     # Write a Prometheus textfile`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	addScanFlags(scanCmd)
}

func addScanFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVar(&flags.regions, "regions", nil, "Regions to scan instead of every enabled region")
	f.StringSliceVar(&flags.excludeRegions, "exclude-regions", nil, "Regions to skip")
	f.StringSliceVar(&flags.eksRegions, "eks-regions", nil, "Regions queried for EKS clusters (default us-east-1)")
	f.StringSliceVar(&flags.services, "services", nil, "Only scan these services (ec2,ebs,eip,elb,rds,elasticache,dynamodb,nat_gateway,s3,cloudfront,eks)")
	f.StringSliceVar(&flags.excludeServices, "exclude-services", nil, "Services to skip")
	f.StringVarP(&flags.profile, "profile", "p", "", "AWS shared config profile")
	f.IntVar(&flags.concurrency, "concurrency", 0, "Checks run in parallel (default 8)")
	f.DurationVar(&flags.checkTimeout, "check-timeout", 0, "Timeout for a single check (default 30s)")
	f.StringVarP(&flags.outputDir, "output-dir", "o", "", "Directory for exported files (default .)")
	f.BoolVar(&flags.noConsole, "no-console", false, "Do not print the report to stdout")
	f.BoolVar(&flags.noCSV, "no-csv", false, "Do not write aws_resources.csv")
	f.BoolVar(&flags.noXLSX, "no-xlsx", false, "Do not write aws_resources.xlsx")
	f.BoolVar(&flags.json, "json", false, "Also write aws_resources.json")
	f.StringVar(&flags.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
}

// applyFlags overlays explicitly set flags on the loaded config.
func applyFlags(cmd *cobra.Command, c *config.Config, fl scanFlags) {
	changed := cmd.Flags().Changed
	if changed("regions") {
		c.AWS.Regions = fl.regions
	}
	if changed("exclude-regions") {
		c.AWS.ExcludeRegions = fl.excludeRegions
	}
	if changed("eks-regions") {
		c.AWS.EKSRegions = fl.eksRegions
	}
	if changed("services") {
		c.Scanner.Services = fl.services
	}
	if changed("exclude-services") {
		c.Scanner.ExcludeServices = fl.excludeServices
	}
	if changed("profile") {
		c.AWS.Profile = fl.profile
	}
	if changed("concurrency") {
		c.Scanner.Concurrency = fl.concurrency
	}
	if changed("check-timeout") {
		c.Scanner.CheckTimeout = fl.checkTimeout
	}
	if changed("output-dir") {
		c.Output.Dir = fl.outputDir
	}
	if fl.noConsole {
		c.Output.Console = false
	}
	if fl.noCSV {
		c.Output.CSV = false
	}
	if fl.noXLSX {
		c.Output.XLSX = false
	}
	if fl.json {
		c.Output.JSON = true
	}
	if changed("metrics-file") {
		c.Output.MetricsFile = fl.metricsFile
	}
}

func runScan(cmd *cobra.Command, _ []string) error {
	applyFlags(cmd, cfg, flags)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return executeScan(cmd.Context(), cfg, cmd.OutOrStdout(), newAWSPlugin)
}

// providerName is the registry name every command scans with.
const providerName = "aws"

// pluginFactory builds the provider plugin; tests swap it out.
type pluginFactory func(ctx context.Context, cfg aws.Config) (plugin.Plugin, error)

func newAWSPlugin(ctx context.Context, cfg aws.Config) (plugin.Plugin, error) {
	return aws.New(ctx, cfg)
}

// loadPlugin builds the provider plugin, registers it and resolves the
// provider commands run against from the registry.
func loadPlugin(ctx context.Context, pcfg aws.Config, newPlugin pluginFactory) (plugin.Plugin, error) {
	p, err := newPlugin(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create aws plugin: %w", err)
	}
	plugin.Register(p)

	resolved, err := plugin.Get(providerName)
	if err != nil {
		return nil, fmt.Errorf("resolve provider: %w", err)
	}
	return resolved, nil
}

// pluginConfig maps the loaded config onto the AWS plugin settings.
func pluginConfig(c *config.Config, runID string, observer aws.Observer) (aws.Config, error) {
	f, err := c.Filter()
	if err != nil {
		return aws.Config{}, err
	}
	return aws.Config{
		Region:       c.AWS.Region,
		Profile:      c.AWS.Profile,
		Regions:      c.AWS.Regions,
		EKSRegions:   c.AWS.EKSRegions,
		Filter:       f,
		Concurrency:  c.Scanner.Concurrency,
		CheckTimeout: c.Scanner.CheckTimeout,
		RunID:        runID,
		Observer:     observer,
	}, nil
}

// executeScan runs one scan next to a signal handler and writes every
// enabled output.
func executeScan(ctx context.Context, c *config.Config, stdout io.Writer, newPlugin pluginFactory) error {
	if ctx == nil {
		ctx = context.Background()
	}
	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Logger()

	tp, err := telemetry.NewProvider(ctx, c.OTEL, version, telemetry.WithErrorClassifier(aws.ErrorCode))
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Debug().Err(err).Msg("telemetry shutdown")
		}
	}()

	pcfg, err := pluginConfig(c, runID, tp)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	p, err := loadPlugin(ctx, pcfg, newPlugin)
	if err != nil {
		return err
	}

	emit, err := buildEmitters(c, stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := emit.Close(); err != nil {
			logger.Warn().Err(err).Msg("close outputs")
		}
	}()

	logger.Info().
		Str("version", version).
		Str("provider", p.Name()).
		Int("outputs", emit.Len()).
		Strs("regions", c.AWS.Regions).
		Int("concurrency", c.Scanner.Concurrency).
		Dur("check_timeout", c.Scanner.CheckTimeout).
		Msg("costscan starting")

	orch := orchestrator.New(p, emit)
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g run.Group
	g.Add(func() error {
		_, err := orch.RunCycle(scanCtx)
		return err
	}, func(error) {
		cancel()
	})
	g.Add(run.SignalHandler(scanCtx, os.Interrupt, syscall.SIGTERM))

	if err := g.Run(); err != nil {
		var sig run.SignalError
		if errors.As(err, &sig) {
			logger.Warn().Str("signal", sig.Signal.String()).Msg("interrupted")
			return fmt.Errorf("interrupted by %s", sig.Signal)
		}
		return err
	}

	if c.Output.CSV && c.Output.XLSX {
		logger.Info().Msgf("AWS payable resources exported to %s and %s",
			emitter.NewCSVEmitter(c.Output.Dir).Path(), emitter.NewXLSXEmitter(c.Output.Dir).Path())
	}
	return nil
}

// buildEmitters assembles the enabled sinks: console first, then files.
func buildEmitters(c *config.Config, stdout io.Writer) (*emitter.MultiEmitter, error) {
	var sinks []emitter.Emitter
	if c.Output.Console {
		sinks = append(sinks, emitter.NewConsoleEmitter(stdout))
	}
	if c.Output.CSV || c.Output.XLSX || c.Output.JSON {
		if err := os.MkdirAll(c.Output.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	if c.Output.CSV {
		sinks = append(sinks, emitter.NewCSVEmitter(c.Output.Dir))
	}
	if c.Output.XLSX {
		sinks = append(sinks, emitter.NewXLSXEmitter(c.Output.Dir))
	}
	if c.Output.JSON {
		sinks = append(sinks, emitter.NewJSONEmitter(c.Output.Dir, aws.ErrorCode))
	}
	if c.Output.MetricsFile != "" {
		prom, err := emitter.NewPrometheusEmitter(c.Output.MetricsFile, aws.ErrorCode)
		if err != nil {
			return nil, fmt.Errorf("create metrics emitter: %w", err)
		}
		sinks = append(sinks, prom)
	}
	return emitter.NewMultiEmitter(sinks...), nil
}
