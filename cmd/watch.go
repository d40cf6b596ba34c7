package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bimmerbailey/herring/internal/cluster"
	"github.com/bimmerbailey/herring/internal/follow"
	"github.com/bimmerbailey/herring/internal/output"
	"github.com/bimmerbailey/herring/internal/parser"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] <file>",
	Short: "Cluster a growing syslog file and announce new patterns",
	Long: `Follow a syslog file like 'tail -f', clustering every line as it is
written. Each time a message does not fit any known pattern it is printed
immediately. On interrupt the full pattern report is printed.

Examples:
  herring watch /var/log/syslog
  herring watch --from-end /var/log/syslog
  herring watch --follow-rotate --only-uncommon /var/log/syslog
  herring watch --no-follow /var/log/syslog`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	addWatchFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

func addWatchFlags(cmd *cobra.Command) {
	addReportFlags(cmd.Flags())
	addClusterFlags(cmd.Flags())
	cmd.Flags().Bool("no-follow", false, "read the existing content, report and exit")
	cmd.Flags().Bool("follow-rotate", false, "follow through log rotations (continue when file is renamed/removed)")
	cmd.Flags().Bool("from-end", false, "skip the existing content and only cluster new lines")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()

	opts, err := reportOptions(cmd, cfg)
	if err != nil {
		return err
	}

	filePath := args[0]
	if _, err := expandFiles([]string{filePath}); err != nil {
		return err
	}

	noFollow, _ := cmd.Flags().GetBool("no-follow")
	followRotate, _ := cmd.Flags().GetBool("follow-rotate")
	fromEnd, _ := cmd.Flags().GetBool("from-end")

	c, err := newClusterer(cmd, cfg, logger)
	if err != nil {
		return err
	}
	p := parser.New(cfg.TimestampFormats, parser.WithLogger(logger))

	format := output.ParseFormat(cfg.Format)
	writer := output.New(cmd.OutOrStdout(), format, opts)

	var stats parser.Stats
	onLine := func(line string, lineNum int) error {
		stats.Lines++
		rec, ok := p.ParseLine(line, lineNum)
		if !ok {
			stats.Skipped++
			return nil
		}
		stats.Records++

		res := c.Ingest(rec)
		if !res.Created || format != output.FormatText {
			return nil
		}
		return writer.WriteNewPattern(cluster.Pattern{Key: res.Key, Cluster: res.Cluster})
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	f := follow.New(follow.Options{
		FilePath:     filePath,
		Follow:       !noFollow,
		FollowRotate: followRotate,
		FromEnd:      fromEnd,
		OnLine:       onLine,
		Logger:       logger,
	})
	if err := f.Run(ctx); err != nil && !errors.Is(err, follow.ErrRotated) {
		return err
	}

	patterns := c.Results()
	logger.Info("watch finished", "lines", stats.Lines, "records", stats.Records, "skipped", stats.Skipped, "patterns", len(patterns))

	if format == output.FormatText && !noFollow {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	if err := writer.WritePatterns(patterns); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
