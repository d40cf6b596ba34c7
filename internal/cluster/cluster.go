// Package cluster groups similar log messages into patterns in a single pass.
//
// Messages are compared, in arrival order, against the pattern key of every
// known cluster. The first key whose similarity ratio exceeds the threshold
// absorbs the message, and the key is rewritten so that only the bytes shared
// with the new message survive; everything else becomes a placeholder:
//
//	connection from 10.0.0.1
//	connection from 10.0.0.2   ->  connection from 10.0.0.-
//
// Matching is first-match-wins, not best-match, and the outcome depends on
// input order. Clusters are never split or deleted.
//
// A Clusterer is not safe for concurrent use.
package cluster

import (
	"bytes"
	"log/slog"
	"time"

	"github.com/bimmerbailey/herring/internal/config"
)

// Default clustering parameters.
const (
	DefaultThreshold   = 0.85
	DefaultPlaceholder = '-'
)

// Cluster is the accumulated record of one message pattern.
type Cluster struct {
	// Similarity is a running confidence in [0, 1] that the occurrences
	// are the same message. Each merge averages it with the merge ratio.
	Similarity float64

	// Module is the module of the first occurrence.
	Module string

	// Occurrences are kept in arrival order.
	Occurrences []config.Occurrence
}

// Frequency returns the number of occurrences.
func (c *Cluster) Frequency() int {
	return len(c.Occurrences)
}

// SortedOccurrences returns a copy of the occurrences sorted by timestamp.
func (c *Cluster) SortedOccurrences() []config.Occurrence {
	occ := make([]config.Occurrence, len(c.Occurrences))
	copy(occ, c.Occurrences)
	config.SortOccurrences(occ)
	return occ
}

// Range returns the earliest and latest occurrence timestamps.
func (c *Cluster) Range() (first, last time.Time) {
	for i, o := range c.Occurrences {
		if i == 0 || o.Timestamp.Before(first) {
			first = o.Timestamp
		}
		if i == 0 || o.Timestamp.After(last) {
			last = o.Timestamp
		}
	}
	return first, last
}

// Pattern pairs a pattern key with its cluster.
type Pattern struct {
	Key     string
	Cluster *Cluster
}

// Result describes what a single Ingest did.
type Result struct {
	Key     string   // key of the cluster after the ingest
	Cluster *Cluster // nil when the record was ignored
	Created bool     // true when the record started a new cluster
	Ratio   float64  // similarity to the matched key, 1 for new clusters
}

// entry is one row of the ordered pattern table.
type entry struct {
	key     string
	cluster int
}

// Clusterer maintains the ordered pattern table.
type Clusterer struct {
	threshold   float64
	placeholder byte
	autojunk    bool
	logger      *slog.Logger

	arena   []*Cluster
	entries []entry
}

// Option configures a Clusterer.
type Option func(*Clusterer)

// WithThreshold sets the ratio a message must strictly exceed to join a
// cluster. Values outside (0, 1] are ignored.
func WithThreshold(threshold float64) Option {
	return func(c *Clusterer) {
		if threshold > 0 && threshold <= 1 {
			c.threshold = threshold
		}
	}
}

// WithPlaceholder sets the byte that masks uncommon characters.
func WithPlaceholder(placeholder byte) Option {
	return func(c *Clusterer) {
		c.placeholder = placeholder
	}
}

// WithAutojunk toggles the popular-byte heuristic for long keys.
func WithAutojunk(enabled bool) Option {
	return func(c *Clusterer) {
		c.autojunk = enabled
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Clusterer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates an empty Clusterer.
func New(opts ...Option) *Clusterer {
	c := &Clusterer{
		threshold:   DefaultThreshold,
		placeholder: DefaultPlaceholder,
		autojunk:    true,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ingest adds one record to the table. Records with an empty message are
// ignored.
func (c *Clusterer) Ingest(rec config.Record) Result {
	if rec.Message == "" {
		return Result{}
	}

	for pos, e := range c.entries {
		m := NewMatcher(rec.Message, e.key, c.autojunk)
		diff := m.Ratio()
		if diff <= c.threshold {
			continue
		}

		cl := c.arena[e.cluster]
		cl.Similarity = (cl.Similarity + diff) / 2.0
		cl.Occurrences = append(cl.Occurrences, config.Occurrence{
			Timestamp: rec.Timestamp,
			Message:   rec.Message,
		})

		key := c.mask(rec.Message, m.MatchingBlocks())

		// The rekeyed entry moves to the back of the search order.
		c.entries = append(c.entries[:pos], c.entries[pos+1:]...)
		c.entries = append(c.entries, entry{key: key, cluster: e.cluster})

		c.logger.Debug("merged message into pattern",
			"line", rec.Line,
			"ratio", diff,
			"key", key,
			"frequency", len(cl.Occurrences))

		return Result{Key: key, Cluster: cl, Ratio: diff}
	}

	cl := &Cluster{
		Similarity: 1.0,
		Module:     rec.Module,
		Occurrences: []config.Occurrence{{
			Timestamp: rec.Timestamp,
			Message:   rec.Message,
		}},
	}
	c.arena = append(c.arena, cl)
	c.entries = append(c.entries, entry{key: rec.Message, cluster: len(c.arena) - 1})

	c.logger.Debug("new pattern", "line", rec.Line, "module", rec.Module, "clusters", len(c.arena))

	return Result{Key: rec.Message, Cluster: cl, Created: true, Ratio: 1.0}
}

// Results returns the pattern table in its current search order. The
// clusters are shared with the Clusterer; callers must not modify them.
func (c *Clusterer) Results() []Pattern {
	out := make([]Pattern, len(c.entries))
	for i, e := range c.entries {
		out[i] = Pattern{Key: e.key, Cluster: c.arena[e.cluster]}
	}
	return out
}

// Len returns the number of distinct clusters.
func (c *Clusterer) Len() int {
	return len(c.arena)
}

// Threshold returns the merge threshold in use.
func (c *Clusterer) Threshold() float64 {
	return c.threshold
}

func (c *Clusterer) mask(message string, blocks []Match) string {
	buf := bytes.Repeat([]byte{c.placeholder}, len(message))
	for _, blk := range blocks {
		if blk.Size > 0 {
			copy(buf[blk.A:blk.A+blk.Size], message[blk.A:blk.A+blk.Size])
		}
	}
	return string(buf)
}

// Mask returns message with every byte not shared with key replaced by the
// default placeholder. Masking a key against itself returns it unchanged.
func Mask(message, key string) string {
	c := New()
	return c.mask(message, NewMatcher(message, key, true).MatchingBlocks())
}
