package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bimmerbailey/herring/internal/cluster"
	"github.com/bimmerbailey/herring/internal/config"
	"github.com/bimmerbailey/herring/internal/llm"
	"github.com/bimmerbailey/herring/internal/output"
	"github.com/bimmerbailey/herring/internal/parser"
	"github.com/bimmerbailey/herring/internal/prompt"
	"github.com/bimmerbailey/herring/internal/redact"
	"github.com/spf13/cobra"
)

var explainCmd = &cobra.Command{
	Use:   "explain [flags] <file>...",
	Short: "Ask a local model which rare patterns matter",
	Long: `Cluster the given files, keep the uncommon patterns and ask an Ollama model
to triage them. Secrets and addresses are redacted before anything is sent.

Examples:
  herring explain /var/log/syslog
  herring explain --uncommon-frequency 3 /var/log/syslog
  herring explain --type root_cause /var/log/syslog
  herring explain --question "did the disk fail before the reboot?" /var/log/syslog`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExplain,
}

func init() {
	addExplainFlags(explainCmd)
	rootCmd.AddCommand(explainCmd)
}

func addExplainFlags(cmd *cobra.Command) {
	addClusterFlags(cmd.Flags())
	cmd.Flags().Int("uncommon-frequency", 1, "frequency at or below which a pattern is sent to the model")
	cmd.Flags().String("type", "triage", "prompt type (triage, root_cause, question)")
	cmd.Flags().StringP("question", "q", "", "question to answer about the patterns (implies --type question)")
	cmd.Flags().String("model", "", "model to use (default llm.ollama.model)")
	cmd.Flags().Int("max-chars", prompt.DefaultMaxChars, "character budget for the pattern listing")
	cmd.Flags().Bool("no-redact", false, "send patterns without redaction")
}

// ExplainResult is the structured form of an explanation.
type ExplainResult struct {
	Files          []string                `json:"files" yaml:"files"`
	TotalClusters  int                     `json:"total_clusters" yaml:"total_clusters"`
	Patterns       []output.PatternSummary `json:"patterns" yaml:"patterns"`
	RedactedValues int                     `json:"redacted_values" yaml:"redacted_values"`
	Model          string                  `json:"model" yaml:"model"`
	Explanation    string                  `json:"explanation" yaml:"explanation"`
}

func runExplain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	typeStr, _ := cmd.Flags().GetString("type")
	question, _ := cmd.Flags().GetString("question")
	if question != "" {
		typeStr = string(prompt.TypeQuestion)
	}
	pt, err := prompt.ParseType(typeStr)
	if err != nil {
		return err
	}

	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	c, err := newClusterer(cmd, cfg, logger)
	if err != nil {
		return err
	}
	p := parser.New(cfg.TimestampFormats, parser.WithLogger(logger))
	for _, file := range files {
		if _, err := p.ParseFile(file, func(r config.Record) error {
			c.Ingest(r)
			return nil
		}); err != nil {
			return fmt.Errorf("error reading %s: %w", file, err)
		}
	}

	reportOpts := output.Options{OnlyUncommon: true, UncommonFrequency: uncommonFrequency(cmd, cfg)}
	all := c.Results()
	var uncommon []cluster.Pattern
	for _, pat := range all {
		if reportOpts.Keep(pat.Cluster) {
			uncommon = append(uncommon, pat)
		}
	}
	if len(uncommon) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No patterns seen %d times or fewer; nothing to explain.\n", reportOpts.UncommonFrequency)
		return nil
	}

	noRedact, _ := cmd.Flags().GetBool("no-redact")
	redactor := redact.New(cfg.Redaction.Enabled && !noRedact, cfg.Redaction.Patterns, logger)
	maxChars, _ := cmd.Flags().GetInt("max-chars")

	messages, err := prompt.Build(pt, uncommon, prompt.Options{
		Question:          question,
		Files:             files,
		TotalClusters:     len(all),
		UncommonFrequency: reportOpts.UncommonFrequency,
		MaxChars:          maxChars,
		Redactor:          redactor,
	})
	if err != nil {
		return err
	}

	model := cfg.LLM.Ollama.Model
	if m, _ := cmd.Flags().GetString("model"); m != "" {
		model = m
	}

	provider, err := llm.NewProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}
	if err := provider.Heartbeat(ctx); err != nil {
		return fmt.Errorf("cannot connect to Ollama: %w\n\nStart Ollama with: ollama serve", err)
	}
	if ok, err := provider.ModelAvailable(ctx, model); err == nil && !ok {
		return fmt.Errorf("%w: %s\n\nPull it with: ollama pull %s", llm.ErrModelNotFound, model, model)
	}

	stream, err := provider.ChatStream(ctx, messages, &llm.ChatOptions{
		Model:       model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to start LLM stream: %w", err)
	}

	format := output.ParseFormat(cfg.Format)
	out := cmd.OutOrStdout()
	var explanation []byte

	if format == output.FormatText {
		fmt.Fprintf(out, "=== Explanation (%d of %d patterns, %s) ===\n\n", len(uncommon), len(all), model)
	}
	err = llm.Collect(stream, func(chunk string) error {
		if format == output.FormatText {
			_, werr := fmt.Fprint(out, chunk)
			return werr
		}
		explanation = append(explanation, chunk...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("explanation failed: %w", err)
	}

	if format == output.FormatText {
		fmt.Fprintln(out)
		return nil
	}

	result := ExplainResult{
		Files:          files,
		TotalClusters:  len(all),
		Patterns:       output.Summarize(uncommon, reportOpts).Patterns,
		RedactedValues: len(redactor.Values()),
		Model:          model,
		Explanation:    string(explanation),
	}
	writer := output.New(out, format, output.Options{})
	if format == output.FormatYAML {
		return writer.WriteYAML(result)
	}
	return writer.WriteJSON(result)
}
