package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Window bounds the records fed to the clusterer. A zero bound is open.
type Window struct {
	Since time.Time
	Until time.Time
}

// ParseWindow builds a Window from --since/--until style references
// resolved against now.
func ParseWindow(since, until string, now time.Time) (Window, error) {
	var w Window
	var err error
	if strings.TrimSpace(since) != "" {
		if w.Since, err = ParseTimeRef(since, now); err != nil {
			return Window{}, fmt.Errorf("invalid --since value: %w", err)
		}
	}
	if strings.TrimSpace(until) != "" {
		if w.Until, err = ParseTimeRef(until, now); err != nil {
			return Window{}, fmt.Errorf("invalid --until value: %w", err)
		}
	}
	if !w.Since.IsZero() && !w.Until.IsZero() && w.Until.Before(w.Since) {
		return Window{}, fmt.Errorf("--until (%s) is before --since (%s)",
			w.Until.Format(time.Stamp), w.Since.Format(time.Stamp))
	}
	return w, nil
}

// Contains reports whether t falls inside the window (bounds inclusive).
func (w Window) Contains(t time.Time) bool {
	if !w.Since.IsZero() && t.Before(w.Since) {
		return false
	}
	if !w.Until.IsZero() && t.After(w.Until) {
		return false
	}
	return true
}

// IsOpen reports whether neither bound is set.
func (w Window) IsOpen() bool {
	return w.Since.IsZero() && w.Until.IsZero()
}

// ParseTimeRef parses an absolute timestamp or a relative duration.
// Relative values are subtracted from now (e.g. "1h", "30m", "1d2h").
// Syslog stamps without a year take the year of now.
func ParseTimeRef(s string, now time.Time) (time.Time, error) {
	input := strings.TrimSpace(s)
	if input == "" {
		return time.Time{}, fmt.Errorf("time reference is empty")
	}

	if t, err := parseAbsoluteTime(input, now); err == nil {
		return t, nil
	}

	d, err := parseRelativeDuration(input)
	if err != nil {
		return time.Time{}, err
	}

	return now.Add(-d), nil
}

func parseAbsoluteTime(input string, now time.Time) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, input); err == nil {
			return t, nil
		}
	}

	for _, layout := range []string{time.Stamp, "Jan 2 15:04:05"} {
		if t, err := time.Parse(layout, input); err == nil {
			return t.AddDate(now.Year(), 0, 0), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid absolute time: %s", input)
}

var durationPart = regexp.MustCompile(`(\d+)([dhms])`)

func parseRelativeDuration(input string) (time.Duration, error) {
	if d, err := time.ParseDuration(input); err == nil {
		return d, nil
	}

	matches := durationPart.FindAllStringSubmatchIndex(input, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid relative duration: %s", input)
	}

	totalLen := 0
	total := time.Duration(0)

	for _, match := range matches {
		totalLen += match[1] - match[0]
		value, err := strconv.ParseInt(input[match[2]:match[3]], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid relative duration: %s", input)
		}

		switch input[match[4]:match[5]] {
		case "d":
			total += 24 * time.Hour * time.Duration(value)
		case "h":
			total += time.Hour * time.Duration(value)
		case "m":
			total += time.Minute * time.Duration(value)
		case "s":
			total += time.Second * time.Duration(value)
		}
	}

	if totalLen != len(input) {
		return 0, fmt.Errorf("invalid relative duration: %s", input)
	}

	return total, nil
}
