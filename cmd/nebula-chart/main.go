package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-chart/internal/pipeline"
	"github.com/ajitpratap0/nebula-chart/pkg/config"
	"github.com/ajitpratap0/nebula-chart/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-chart/pkg/logger"
	"github.com/ajitpratap0/nebula-chart/pkg/metrics"
	"github.com/ajitpratap0/nebula-chart/pkg/observability"

	// Register connectors
	_ "github.com/ajitpratap0/nebula-chart/pkg/connector/destinations/chart"
	_ "github.com/ajitpratap0/nebula-chart/pkg/connector/sources/csv"
	_ "github.com/ajitpratap0/nebula-chart/pkg/connector/sources/json"
)

var version = "0.1.0"

// SystemFlags contains optional system-level configuration
type SystemFlags struct {
	BatchSize     int
	FlushInterval time.Duration
	Timeout       time.Duration
	LogLevel      string
	EnableMetrics bool
	EnableTracing bool
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCommand builds the CLI. Global flags are bound to viper so each
// can also be set as NEBULA_<FLAG> in the environment or the .env file.
func newRootCommand(stdout io.Writer) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("NEBULA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "nebula-chart",
		Short: "nebula-chart - render extracted records as charts",
		Long: `nebula-chart reads records from a source connector and hands them to the chart
output, which groups them into named series and renders a bar, line, scatter or
stacked bar chart as an image, a text table or a JSON document.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logger.Config{
				Level:    v.GetString("log-level"),
				Encoding: "console",
			})
		},
	}
	root.SetOut(stdout)

	pf := root.PersistentFlags()
	pf.String("log-level", "error", "Log level (debug, info, warn, error)")
	pf.Bool("enable-metrics", false, "Print a summary of collected metrics when the command ends")
	pf.Bool("enable-tracing", false, "Export tracing spans to stderr")
	_ = v.BindPFlags(pf)

	root.AddCommand(
		newVersionCommand(stdout),
		newListCommand(stdout),
		newValidateCommand(stdout),
		newRunCommand(v, stdout),
	)
	return root
}

func newVersionCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "nebula-chart v%s\n", version)
			fmt.Fprintf(stdout, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(stdout, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newListCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available connectors",
		Run: func(cmd *cobra.Command, args []string) {
			table := tablewriter.NewWriter(stdout)
			table.SetHeader([]string{"Name", "Type", "Version", "Capabilities", "Description"})
			table.SetAutoWrapText(false)
			for _, info := range registry.List() {
				table.Append([]string{
					info.Name,
					string(info.Kind),
					info.Version,
					strings.Join(info.Capabilities, ", "),
					info.Description,
				})
			}
			table.Render()
		},
	}
}

func newValidateCommand(stdout io.Writer) *cobra.Command {
	var destConfigFile string

	cmd := &cobra.Command{
		Use:     "validate",
		Short:   "Validate a destination configuration without reading any record",
		Example: `  nebula-chart validate --destination chart.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			destConfig, err := loadConfigFromFile(destConfigFile)
			if err != nil {
				return fmt.Errorf("destination configuration error: %w", err)
			}

			destination, err := registry.CreateDestination(destConfig.Type, destConfig)
			if err != nil {
				return fmt.Errorf("failed to create destination connector '%s': %w", destConfig.Type, err)
			}
			if err := destination.Initialize(cmd.Context(), destConfig); err != nil {
				return fmt.Errorf("invalid destination configuration: %w", err)
			}

			fmt.Fprintf(stdout, "%s: configuration of %s destination is valid\n", destConfig.Name, destConfig.Type)
			return nil
		},
	}

	cmd.Flags().StringVarP(&destConfigFile, "destination", "d", "", "Path to destination configuration YAML file (required)")
	_ = cmd.MarkFlagRequired("destination")
	return cmd
}

func newRunCommand(v *viper.Viper, stdout io.Writer) *cobra.Command {
	var sourceConfigFile, destConfigFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a source into a chart destination",
		Long: `Run reads every record of the source and hands it to the destination.
Configuration files are YAML (JSON is accepted too) and may reference
environment variables as ${NAME}.`,
		Example: `  nebula-chart run --source sales.yaml --destination sales-chart.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), stdout, sourceConfigFile, destConfigFile, &SystemFlags{
				BatchSize:     v.GetInt("batch-size"),
				FlushInterval: v.GetDuration("flush-interval"),
				Timeout:       v.GetDuration("timeout"),
				LogLevel:      v.GetString("log-level"),
				EnableMetrics: v.GetBool("enable-metrics"),
				EnableTracing: v.GetBool("enable-tracing"),
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&sourceConfigFile, "source", "s", "", "Path to source configuration YAML file (required)")
	f.StringVarP(&destConfigFile, "destination", "d", "", "Path to destination configuration YAML file (required)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("destination")

	f.Int("batch-size", 0, "Records per batch; 0 keeps the value of the source configuration")
	f.Duration("flush-interval", 0, "Interval for flushing partial batches; 0 keeps the configured value")
	f.Duration("timeout", 30*time.Minute, "Pipeline timeout")
	_ = v.BindPFlags(f)

	return cmd
}

// loadConfigFromFile loads a BaseConfig from a YAML or JSON file
func loadConfigFromFile(filename string) (*config.BaseConfig, error) {
	cfg, err := config.LoadBaseConfig(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}
	return cfg, nil
}

// runPipeline executes the data pipeline with the given configurations
func runPipeline(ctx context.Context, stdout io.Writer, sourceConfigFile, destConfigFile string, flags *SystemFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}

	sourceConfig, err := loadConfigFromFile(sourceConfigFile)
	if err != nil {
		return fmt.Errorf("source configuration error: %w", err)
	}

	destConfig, err := loadConfigFromFile(destConfigFile)
	if err != nil {
		return fmt.Errorf("destination configuration error: %w", err)
	}

	applySystemFlags(sourceConfig, flags)
	applySystemFlags(destConfig, flags)

	log := logger.Get().With(
		zap.String("component", "nebula-chart-cli"),
		zap.String("source", sourceConfig.Type),
		zap.String("destination", destConfig.Type),
	)

	if destConfig.Observability.EnableTracing {
		tc := observability.DefaultConfig()
		tc.ServiceVersion = version
		tc.SamplingRate = destConfig.Observability.TracingSampleRate
		if err := observability.Initialize(ctx, tc); err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			if err := observability.Shutdown(context.WithoutCancel(ctx)); err != nil {
				log.Warn("failed to flush traces", zap.Error(err))
			}
		}()
	}

	source, err := registry.CreateSource(sourceConfig.Type, sourceConfig)
	if err != nil {
		return fmt.Errorf("failed to create source connector '%s': %w", sourceConfig.Type, err)
	}

	destination, err := registry.CreateDestination(destConfig.Type, destConfig)
	if err != nil {
		return fmt.Errorf("failed to create destination connector '%s': %w", destConfig.Type, err)
	}

	timeout := flags.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := source.Initialize(ctx, sourceConfig); err != nil {
		return fmt.Errorf("failed to initialize source: %w", err)
	}
	defer func() {
		if err := source.Close(ctx); err != nil {
			log.Warn("failed to close source", zap.Error(err))
		}
	}()

	if err := destination.Initialize(ctx, destConfig); err != nil {
		return fmt.Errorf("failed to initialize destination: %w", err)
	}

	p := pipeline.NewSimplePipeline(source, destination, &pipeline.PipelineConfig{
		BatchSize:       sourceConfig.Performance.BatchSize,
		BufferSize:      sourceConfig.Performance.BufferSize,
		FlushInterval:   sourceConfig.Performance.FlushInterval,
		SourceName:      sourceConfig.Name,
		DestinationName: destConfig.Name,
	}, log)

	log.Info("executing pipeline",
		zap.String("source_config", sourceConfigFile),
		zap.String("dest_config", destConfigFile))
	startTime := time.Now()

	runErr := p.Run(ctx)

	// Presentations outlive the transaction; wait for them before exiting
	if err := destination.Close(context.WithoutCancel(ctx)); err != nil {
		log.Warn("failed to close destination", zap.Error(err))
	}

	if flags.EnableMetrics {
		printMetrics(stdout, log)
	}

	if runErr != nil {
		return fmt.Errorf("pipeline execution failed: %w", runErr)
	}

	duration := time.Since(startTime)
	recordsProcessed := p.Metrics()["records_processed"].(int64)
	log.Info("pipeline completed successfully",
		zap.Duration("duration", duration),
		zap.Int64("records_processed", recordsProcessed),
		zap.Float64("records_per_second", float64(recordsProcessed)/duration.Seconds()))

	return nil
}

// applySystemFlags applies command line settings to a connector config
func applySystemFlags(cfg *config.BaseConfig, flags *SystemFlags) {
	if flags.BatchSize > 0 {
		cfg.Performance.BatchSize = flags.BatchSize
	}
	if flags.FlushInterval > 0 {
		cfg.Performance.FlushInterval = flags.FlushInterval
	}
	if flags.LogLevel != "" {
		cfg.Observability.LogLevel = flags.LogLevel
	}
	if flags.EnableMetrics {
		cfg.Observability.EnableMetrics = true
	}
	if flags.EnableTracing {
		cfg.Observability.EnableTracing = true
	}
}

// printMetrics writes the totals of every nebula metric family as a table
func printMetrics(stdout io.Writer, log *zap.Logger) {
	summary, err := metrics.Summarize(prometheus.DefaultGatherer)
	if err != nil {
		log.Warn("failed to gather metrics", zap.Error(err))
		return
	}

	table := tablewriter.NewWriter(stdout)
	table.SetHeader([]string{"Metric", "Total"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, s := range summary {
		table.Append([]string{s.Name, strconv.FormatFloat(s.Value, 'f', -1, 64)})
	}
	table.Render()
}
