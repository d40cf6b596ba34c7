package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bimmerbailey/herring/internal/cluster"
	"github.com/bimmerbailey/herring/internal/config"
	"github.com/bimmerbailey/herring/internal/output"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var errOneLinerWithMessages = errors.New("You can't specify --one-liner and --print-messages together")

// addClusterFlags registers the flags that tune the clusterer.
func addClusterFlags(fs *pflag.FlagSet) {
	fs.Float64("threshold", cluster.DefaultThreshold, "similarity a message must exceed to join a pattern (0-1)")
}

// addReportFlags registers the flags that select what a report shows.
func addReportFlags(fs *pflag.FlagSet) {
	fs.Bool("print-messages", false, "print every message under its pattern")
	fs.Bool("only-uncommon", false, "only report patterns seen at most --uncommon-frequency times")
	fs.Int("uncommon-frequency", 1, "frequency at or below which a pattern is uncommon")
	fs.Bool("unique-messages", false, "print the number of distinct patterns")
	fs.Bool("one-liner", false, "print one summary line per pattern")
	fs.Bool("no-color", false, "disable colored output")
}

// uncommonFrequency returns the flag value when set, else the configured one.
func uncommonFrequency(cmd *cobra.Command, cfg *config.Config) int {
	if cmd.Flags().Changed("uncommon-frequency") {
		n, _ := cmd.Flags().GetInt("uncommon-frequency")
		return n
	}
	if cfg.Report.UncommonFrequency > 0 {
		return cfg.Report.UncommonFrequency
	}
	return 1
}

// reportOptions reads the report flags. The one-liner and print-messages
// combination is rejected with exit code 2.
func reportOptions(cmd *cobra.Command, cfg *config.Config) (output.Options, error) {
	printMessages, _ := cmd.Flags().GetBool("print-messages")
	oneLiner, _ := cmd.Flags().GetBool("one-liner")
	if oneLiner && printMessages {
		return output.Options{}, &ExitError{Code: 2, Err: errOneLinerWithMessages}
	}

	onlyUncommon, _ := cmd.Flags().GetBool("only-uncommon")
	uniqueMessages, _ := cmd.Flags().GetBool("unique-messages")
	noColor, _ := cmd.Flags().GetBool("no-color")

	colorMode := output.ColorAuto
	if noColor {
		colorMode = output.ColorNever
	}

	return output.Options{
		PrintMessages:     printMessages,
		OnlyUncommon:      onlyUncommon,
		UncommonFrequency: uncommonFrequency(cmd, cfg),
		UniqueMessages:    uniqueMessages,
		OneLiner:          oneLiner,
		Color:             colorMode,
	}, nil
}

// newClusterer builds a Clusterer from config, with --threshold taking
// precedence over cluster.threshold.
func newClusterer(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*cluster.Clusterer, error) {
	threshold := cfg.Cluster.Threshold
	if cmd.Flags().Changed("threshold") {
		threshold, _ = cmd.Flags().GetFloat64("threshold")
	}
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("invalid threshold %v: must be in (0, 1]", threshold)
	}

	placeholder := cfg.Cluster.Placeholder
	if placeholder == "" {
		placeholder = string(cluster.DefaultPlaceholder)
	}
	if len(placeholder) != 1 {
		return nil, fmt.Errorf("invalid placeholder %q: must be a single byte", placeholder)
	}

	return cluster.New(
		cluster.WithThreshold(threshold),
		cluster.WithPlaceholder(placeholder[0]),
		cluster.WithAutojunk(cfg.Cluster.Autojunk),
		cluster.WithLogger(logger),
	), nil
}

// expandFiles resolves file arguments; a missing file exits with code 1.
func expandFiles(args []string) ([]string, error) {
	files, err := config.ExpandGlobs(args)
	if err != nil {
		var missing *config.MissingFileError
		if errors.As(err, &missing) {
			return nil, &ExitError{Code: 1, Err: err}
		}
		return nil, err
	}
	return files, nil
}
