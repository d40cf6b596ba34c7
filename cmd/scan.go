package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bimmerbailey/herring/internal/config"
	"github.com/bimmerbailey/herring/internal/metrics"
	"github.com/bimmerbailey/herring/internal/output"
	"github.com/bimmerbailey/herring/internal/parser"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [flags] <file>...",
	Short: "Cluster syslog messages and report the patterns",
	Long: `Read one or more syslog files, group similar messages into patterns and
print each pattern with its frequency, similarity and time range.

Files may be plain, gzip or zstd compressed, and may be given as globs.
They are read in sorted order into a single pattern table.

Examples:
  herring scan /var/log/syslog
  herring scan --only-uncommon /var/log/syslog
  herring scan --one-liner --unique-messages '/var/log/syslog*'
  herring scan --since 2h --format json /var/log/syslog
  herring scan --metrics-file /var/lib/node_exporter/herring.prom /var/log/syslog`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	addScanFlags(scanCmd)
	rootCmd.AddCommand(scanCmd)
}

func addScanFlags(cmd *cobra.Command) {
	addReportFlags(cmd.Flags())
	addClusterFlags(cmd.Flags())
	cmd.Flags().String("since", "", "only cluster messages after this time (relative like '2h' or absolute)")
	cmd.Flags().String("until", "", "only cluster messages before this time (relative or absolute)")
	cmd.Flags().String("metrics-file", "", "write run metrics in Prometheus textfile format to this path")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()

	opts, err := reportOptions(cmd, cfg)
	if err != nil {
		return err
	}

	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	sinceStr, _ := cmd.Flags().GetString("since")
	untilStr, _ := cmd.Flags().GetString("until")
	window, err := config.ParseWindow(sinceStr, untilStr, time.Now())
	if err != nil {
		return err
	}

	c, err := newClusterer(cmd, cfg, logger)
	if err != nil {
		return err
	}

	rec := metrics.NewRecorder()
	p := parser.New(cfg.TimestampFormats, parser.WithLogger(logger))

	var total parser.Stats
	outside := 0
	for _, file := range files {
		stats, err := p.ParseFile(file, func(r config.Record) error {
			if !window.Contains(r.Timestamp) {
				outside++
				return nil
			}
			rec.ObserveIngest(c.Ingest(r))
			return nil
		})
		if err != nil {
			return fmt.Errorf("error reading %s: %w", file, err)
		}
		logger.Info("scanned file", "path", file, "lines", stats.Lines, "records", stats.Records, "skipped", stats.Skipped)
		rec.ObserveStats(stats)
		total.Add(stats)
	}
	if !window.IsOpen() {
		logger.Info("records outside time window", "count", outside)
	}

	patterns := c.Results()
	logger.Info("clustering complete", "files", len(files), "records", total.Records, "patterns", len(patterns))

	writer := output.New(cmd.OutOrStdout(), output.ParseFormat(cfg.Format), opts)
	if err := writer.WritePatterns(patterns); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if path, _ := cmd.Flags().GetString("metrics-file"); path != "" {
		rec.ObservePatterns(patterns)
		if err := rec.WriteTextfile(path); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}
