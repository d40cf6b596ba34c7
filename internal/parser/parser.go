// Package parser turns syslog-style lines into records for the clusterer.
//
// A line looks like
//
//	Jan  1 00:00:01 host app[123]: connection from 10.0.0.1
//
// Everything before the first ": " is the stamp: its first three fields are
// the date, its last field is the module (any "[pid]" suffix removed). The
// rest of the line is the message. Lines without the separator or with a
// date no layout understands are skipped, never reported as errors.
package parser

import (
	"bufio"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/bimmerbailey/herring/internal/config"
)

// separator divides the stamp from the message.
const separator = ": "

// maxLineSize bounds a single scanned line.
const maxLineSize = 1024 * 1024

// Stats counts what a parse run saw.
type Stats struct {
	Lines   int `json:"lines"`   // non-blank lines read
	Records int `json:"records"` // lines turned into records
	Skipped int `json:"skipped"` // lines dropped as unparseable
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Lines += other.Lines
	s.Records += other.Records
	s.Skipped += other.Skipped
}

// Parser reads log lines into records.
type Parser struct {
	timestampFormats []string
	year             int
	logger           *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithYear sets the year given to timestamps that carry none, as syslog
// stamps do. Defaults to the current year.
func WithYear(year int) Option {
	return func(p *Parser) {
		p.year = year
	}
}

// WithLogger sets the logger used to trace skipped lines.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Parser trying the given timestamp layouts in order.
// An empty list selects config.DefaultTimestampFormats.
func New(timestampFormats []string, opts ...Option) *Parser {
	if len(timestampFormats) == 0 {
		timestampFormats = config.DefaultTimestampFormats
	}
	p := &Parser{
		timestampFormats: timestampFormats,
		year:             time.Now().Year(),
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseLine parses a single line. ok is false when the line must be skipped.
func (p *Parser) ParseLine(line string, lineNum int) (rec config.Record, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return config.Record{}, false
	}

	stamp, message, found := strings.Cut(line, separator)
	if !found {
		return config.Record{}, false
	}

	fields := strings.Fields(stamp)
	if len(fields) == 0 {
		return config.Record{}, false
	}

	ts, ok := p.parseDate(fields)
	if !ok {
		return config.Record{}, false
	}

	module, _, _ := strings.Cut(fields[len(fields)-1], "[")

	return config.Record{
		Timestamp: ts,
		Module:    module,
		Message:   message,
		Line:      lineNum,
	}, true
}

// parseDate reads the date from the first three stamp fields, falling back
// to shorter prefixes for stamps such as RFC3339 that use fewer fields.
func (p *Parser) parseDate(fields []string) (time.Time, bool) {
	n := min(len(fields), 3)
	for ; n > 0; n-- {
		if t, ok := p.parseTimestamp(strings.Join(fields[:n], " ")); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseTimestamp tries every configured layout against s.
func (p *Parser) parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range p.timestampFormats {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() == 0 {
			t = time.Date(p.year, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
		}
		return t, true
	}
	return time.Time{}, false
}

// ParseStream parses every line of r, calling fn for each record in input
// order. Parsing stops at the first error returned by fn.
func (p *Parser) ParseStream(r io.Reader, fn func(config.Record) error) (Stats, error) {
	var stats Stats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		stats.Lines++

		rec, ok := p.ParseLine(line, lineNum)
		if !ok {
			stats.Skipped++
			p.logger.Debug("skipping unparseable line", "line", lineNum)
			continue
		}

		stats.Records++
		if err := fn(rec); err != nil {
			return stats, err
		}
	}

	return stats, scanner.Err()
}

// ParseFile opens path, decompressing it if needed, and parses it with
// ParseStream.
func (p *Parser) ParseFile(path string, fn func(config.Record) error) (Stats, error) {
	rc, err := Open(path)
	if err != nil {
		return Stats{}, err
	}
	defer rc.Close()

	stats, err := p.ParseStream(rc, fn)
	p.logger.Debug("parsed file",
		"path", path,
		"lines", stats.Lines,
		"records", stats.Records,
		"skipped", stats.Skipped)
	return stats, err
}
