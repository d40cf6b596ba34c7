// Package prompt turns rare clustered patterns into chat messages for a
// model.
//
// Patterns are listed rarest first, each with its key, module, frequency,
// time range and a few quoted occurrences, until the character budget is
// spent.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bimmerbailey/herring/internal/cluster"
	"github.com/bimmerbailey/herring/internal/config"
	"github.com/bimmerbailey/herring/internal/llm"
)

const stampLayout = "02 Jan 15:04:05"

// BuildTriage is Build with TypeTriage.
func BuildTriage(patterns []cluster.Pattern, opts Options) ([]llm.Message, error) {
	return Build(TypeTriage, patterns, opts)
}

// Build returns a system message for pt followed by one user message that
// lists the patterns.
func Build(pt PromptType, patterns []cluster.Pattern, opts Options) ([]llm.Message, error) {
	if len(patterns) == 0 {
		return nil, ErrNoPatterns
	}
	if pt == TypeQuestion && strings.TrimSpace(opts.Question) == "" {
		return nil, missingField("Question")
	}

	var sb strings.Builder
	switch pt {
	case TypeRootCause:
		sb.WriteString("Perform a root cause analysis using the following rare log patterns.\n\n")
	case TypeQuestion:
		sb.WriteString("Question: ")
		sb.WriteString(opts.Question)
		sb.WriteString("\n\n")
	default:
		sb.WriteString("Triage the following rare log patterns.\n\n")
	}
	writeHeader(&sb, len(patterns), opts)
	writePatterns(&sb, patterns, opts)

	return []llm.Message{
		{Role: "system", Content: systemPrompt(pt)},
		{Role: "user", Content: sb.String()},
	}, nil
}

func writeHeader(sb *strings.Builder, shown int, opts Options) {
	switch len(opts.Files) {
	case 0:
	case 1:
		fmt.Fprintf(sb, "Source file: %s\n", opts.Files[0])
	default:
		fmt.Fprintf(sb, "Source files (%d): %s\n", len(opts.Files), strings.Join(opts.Files, ", "))
	}

	total := opts.TotalClusters
	if total < shown {
		total = shown
	}
	fmt.Fprintf(sb, "Patterns: %d of %d", shown, total)
	if opts.UncommonFrequency > 0 {
		fmt.Fprintf(sb, " (seen at most %d times)", opts.UncommonFrequency)
	}
	sb.WriteString("\n\n")
}

// writePatterns lists patterns rarest first. The first pattern is always
// listed; later ones only while they fit in the budget.
func writePatterns(sb *strings.Builder, patterns []cluster.Pattern, opts Options) {
	budget := opts.MaxChars
	if budget <= 0 {
		budget = DefaultMaxChars
	}

	ordered := rarestFirst(patterns)
	used := 0
	for i, p := range ordered {
		block := formatPattern(i+1, p, opts)
		if i > 0 && used+len(block) > budget {
			fmt.Fprintf(sb, "(%d more patterns omitted)\n", len(ordered)-i)
			return
		}
		sb.WriteString(block)
		used += len(block)
	}
}

// rarestFirst orders a copy of patterns by frequency, then by first sighting.
func rarestFirst(patterns []cluster.Pattern) []cluster.Pattern {
	out := make([]cluster.Pattern, len(patterns))
	copy(out, patterns)
	sort.SliceStable(out, func(i, j int) bool {
		fi, fj := out[i].Cluster.Frequency(), out[j].Cluster.Frequency()
		if fi != fj {
			return fi < fj
		}
		ti, _ := out[i].Cluster.Range()
		tj, _ := out[j].Cluster.Range()
		return ti.Before(tj)
	})
	return out
}

func formatPattern(n int, p cluster.Pattern, opts Options) string {
	redact := func(s string) string {
		if opts.Redactor == nil {
			return s
		}
		return opts.Redactor.Redact(s)
	}

	c := p.Cluster
	first, last := c.Range()

	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s\n", n, redact(p.Key))
	fmt.Fprintf(&b, "    module: %s, frequency: %d, similarity: %d%%\n", c.Module, c.Frequency(), int(100*c.Similarity))
	fmt.Fprintf(&b, "    range: %s through %s\n", first.Format(stampLayout), last.Format(stampLayout))

	if samples := sampleMessages(c, opts.Samples); len(samples) > 0 && !(len(samples) == 1 && samples[0].Message == p.Key) {
		b.WriteString("    samples:\n")
		for _, o := range samples {
			fmt.Fprintf(&b, "      %s: %s\n", o.Timestamp.Format(stampLayout), redact(o.Message))
		}
	}
	b.WriteString("\n")
	return b.String()
}

// sampleMessages returns up to n occurrences with distinct messages, oldest
// first.
func sampleMessages(c *cluster.Cluster, n int) []config.Occurrence {
	if n <= 0 {
		n = DefaultSamples
	}
	seen := make(map[string]bool, n)
	var out []config.Occurrence
	for _, o := range c.SortedOccurrences() {
		if seen[o.Message] {
			continue
		}
		seen[o.Message] = true
		out = append(out, o)
		if len(out) == n {
			break
		}
	}
	return out
}
