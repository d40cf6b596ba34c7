// Package redact replaces sensitive values in log text before it is sent to
// a model.
//
// The same value always maps to the same placeholder within one Redactor, so
// "the same address failed twice" survives redaction:
//
//	"connect from 192.168.1.1 failed" -> "connect from [IPV4:a3f2] failed"
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Redactor removes sensitive data while preserving correlation between
// identical values. It is safe for concurrent use.
type Redactor struct {
	enabled  bool
	patterns []Pattern

	mu     sync.Mutex
	values map[string]string // original value -> placeholder
}

// New creates a Redactor for the named patterns, falling back to
// DefaultPatterns when names is empty. Unknown names are logged and skipped.
func New(enabled bool, names []string, logger *slog.Logger) *Redactor {
	if logger == nil {
		logger = slog.Default()
	}
	if len(names) == 0 {
		names = DefaultPatterns()
	}
	patterns, unknown := lookup(names)
	if len(unknown) > 0 {
		logger.Warn("ignoring unknown redaction patterns", "patterns", unknown, "available", PatternNames())
	}
	return &Redactor{
		enabled:  enabled,
		patterns: patterns,
		values:   make(map[string]string),
	}
}

// Enabled reports whether Redact changes anything.
func (r *Redactor) Enabled() bool {
	return r != nil && r.enabled && len(r.patterns) > 0
}

// Redact replaces every sensitive value in text with its placeholder.
func (r *Redactor) Redact(text string) string {
	out, _ := r.RedactCount(text)
	return out
}

// RedactCount is Redact that also reports how many values were replaced.
func (r *Redactor) RedactCount(text string) (string, int) {
	if !r.Enabled() {
		return text, 0
	}
	count := 0
	for _, p := range r.patterns {
		text = p.Regex.ReplaceAllStringFunc(text, func(match string) string {
			count++
			return r.placeholder(match, p.Type)
		})
	}
	return text, count
}

// Values returns a copy of the value to placeholder map.
func (r *Redactor) Values() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

func (r *Redactor) placeholder(value, kind string) string {
	key := normalize(value, kind)

	r.mu.Lock()
	defer r.mu.Unlock()
	if ph, ok := r.values[key]; ok {
		return ph
	}
	sum := sha256.Sum256([]byte(key))
	ph := fmt.Sprintf("[%s:%s]", kind, hex.EncodeToString(sum[:2]))
	r.values[key] = ph
	return ph
}

// normalize folds spellings of the same value together.
func normalize(value, kind string) string {
	switch kind {
	case "EMAIL", "IPV6", "MAC", "UUID":
		return strings.ToLower(value)
	}
	return value
}
