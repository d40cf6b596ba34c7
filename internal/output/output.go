// Package output renders clustered patterns as text, JSON, or YAML.
//
// Text output comes in two shapes: a verbose block per pattern, or a single
// summary line per pattern (--one-liner). Occurrences are sorted by
// timestamp just before they are rendered.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bimmerbailey/herring/internal/cluster"
	"github.com/bimmerbailey/herring/internal/config"
	"gopkg.in/yaml.v3"
)

// Format represents an output format type.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Time layouts used by the text renderers.
const (
	verboseStamp = "02 Jan 15:04:05"
	oneLineStamp = "01/02 15:04:05"
)

// ParseFormat converts a string to a Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "yaml", "yml":
		return FormatYAML
	default:
		return FormatText
	}
}

// Options selects what is reported.
type Options struct {
	PrintMessages     bool // list every occurrence under its pattern
	OnlyUncommon      bool // hide patterns seen more than UncommonFrequency times
	UncommonFrequency int
	UniqueMessages    bool // print the number of distinct patterns
	OneLiner          bool // one summary line per pattern
	Color             ColorMode
}

// Keep reports whether a cluster passes the uncommon filter.
func (o Options) Keep(c *cluster.Cluster) bool {
	return !o.OnlyUncommon || c.Frequency() <= o.UncommonFrequency
}

// Writer handles writing formatted output.
type Writer struct {
	w        io.Writer
	format   Format
	opts     Options
	colorize bool
}

// New creates a new output Writer.
func New(w io.Writer, format Format, opts Options) *Writer {
	return &Writer{
		w:        w,
		format:   format,
		opts:     opts,
		colorize: format == FormatText && shouldColorize(opts.Color, w),
	}
}

// WritePatterns renders the final pattern table.
func (wr *Writer) WritePatterns(patterns []cluster.Pattern) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(Summarize(patterns, wr.opts))
	case FormatYAML:
		return wr.WriteYAML(Summarize(patterns, wr.opts))
	default:
		return wr.writeText(patterns)
	}
}

// WriteJSON outputs any value as indented JSON.
func (wr *Writer) WriteJSON(v interface{}) error {
	enc := json.NewEncoder(wr.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteYAML outputs any value as a YAML document.
func (wr *Writer) WriteYAML(v interface{}) error {
	enc := yaml.NewEncoder(wr.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (wr *Writer) writeText(patterns []cluster.Pattern) error {
	for _, p := range patterns {
		if !wr.opts.Keep(p.Cluster) {
			continue
		}
		var err error
		if wr.opts.OneLiner {
			err = wr.writeOneLine(p)
		} else {
			err = wr.writeBlock(p)
		}
		if err != nil {
			return err
		}
	}

	if wr.opts.UniqueMessages {
		_, err := fmt.Fprintf(wr.w, "\n\nUnique Messages: %d\n\n", len(patterns))
		return err
	}
	return nil
}

func (wr *Writer) writeBlock(p cluster.Pattern) error {
	occ := p.Cluster.SortedOccurrences()
	if len(occ) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n\n%s %s\n", wr.label("Message:"), wr.key(p))
	fmt.Fprintf(&b, "%s %s\n", wr.label("Module:"), p.Cluster.Module)
	fmt.Fprintf(&b, "%s %d\n", wr.label("Frequency:"), len(occ))
	fmt.Fprintf(&b, "%s %d%%\n", wr.label("Similarity:"), percent(p.Cluster.Similarity))
	fmt.Fprintf(&b, "%s %s through %s\n", wr.label("Range:"),
		occ[0].Timestamp.Format(verboseStamp),
		occ[len(occ)-1].Timestamp.Format(verboseStamp))

	if wr.opts.PrintMessages {
		for _, o := range occ {
			fmt.Fprintf(&b, "%s: %s\n", o.Timestamp.Format(verboseStamp), o.Message)
		}
	}

	_, err := io.WriteString(wr.w, b.String())
	return err
}

func (wr *Writer) writeOneLine(p cluster.Pattern) error {
	occ := p.Cluster.SortedOccurrences()
	if len(occ) == 0 {
		return nil
	}

	if wr.opts.OnlyUncommon && wr.opts.UncommonFrequency == 1 {
		_, err := fmt.Fprintf(wr.w, "%s: %s\n", occ[0].Timestamp.Format(verboseStamp), wr.key(p))
		return err
	}

	_, err := fmt.Fprintf(wr.w, "freq %02d sim %03d%% range %s - %s msg: %s\n",
		len(occ),
		percent(p.Cluster.Similarity),
		occ[0].Timestamp.Format(oneLineStamp),
		occ[len(occ)-1].Timestamp.Format(oneLineStamp),
		wr.key(p))
	return err
}

// WriteNewPattern announces a pattern the moment it is first seen.
func (wr *Writer) WriteNewPattern(p cluster.Pattern) error {
	occ := p.Cluster.Occurrences
	if len(occ) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(wr.w, "%s: %s [%s]\n", occ[0].Timestamp.Format(verboseStamp), wr.key(p), p.Cluster.Module)
	return err
}

func (wr *Writer) label(s string) string {
	if !wr.colorize {
		return s
	}
	return colorBold + s + colorReset
}

func (wr *Writer) key(p cluster.Pattern) string {
	if !wr.colorize {
		return p.Key
	}
	return colorizeKey(p.Cluster.Frequency(), p.Key)
}

// percent truncates a similarity to a whole percentage.
func percent(similarity float64) int {
	return int(100.0 * similarity)
}

// Report is the structured form of the pattern table.
type Report struct {
	TotalClusters int              `json:"total_clusters" yaml:"total_clusters"`
	Patterns      []PatternSummary `json:"patterns" yaml:"patterns"`
}

// PatternSummary describes one reported pattern.
type PatternSummary struct {
	Key         string              `json:"key" yaml:"key"`
	Module      string              `json:"module" yaml:"module"`
	Frequency   int                 `json:"frequency" yaml:"frequency"`
	Similarity  float64             `json:"similarity" yaml:"similarity"`
	FirstSeen   time.Time           `json:"first_seen" yaml:"first_seen"`
	LastSeen    time.Time           `json:"last_seen" yaml:"last_seen"`
	Occurrences []config.Occurrence `json:"occurrences,omitempty" yaml:"occurrences,omitempty"`
}

// Summarize builds a Report from the patterns that pass the options filter.
func Summarize(patterns []cluster.Pattern, opts Options) Report {
	rep := Report{
		TotalClusters: len(patterns),
		Patterns:      make([]PatternSummary, 0, len(patterns)),
	}
	for _, p := range patterns {
		if !opts.Keep(p.Cluster) {
			continue
		}
		first, last := p.Cluster.Range()
		ps := PatternSummary{
			Key:        p.Key,
			Module:     p.Cluster.Module,
			Frequency:  p.Cluster.Frequency(),
			Similarity: p.Cluster.Similarity,
			FirstSeen:  first,
			LastSeen:   last,
		}
		if opts.PrintMessages {
			ps.Occurrences = p.Cluster.SortedOccurrences()
		}
		rep.Patterns = append(rep.Patterns, ps)
	}
	return rep
}
