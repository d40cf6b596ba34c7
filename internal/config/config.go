// Package config provides configuration types and helpers for herring.
package config

import (
	"sort"
	"time"
)

// Config holds the application-wide configuration.
type Config struct {
	Format           string          `mapstructure:"format"`
	Verbose          bool            `mapstructure:"verbose"`
	LogLevel         string          `mapstructure:"log_level"`
	TimestampFormats []string        `mapstructure:"timestamp_formats"`
	Cluster          ClusterConfig   `mapstructure:"cluster"`
	Report           ReportConfig    `mapstructure:"report"`
	LLM              LLMConfig       `mapstructure:"llm"`
	Redaction        RedactionConfig `mapstructure:"redaction"`
}

// ClusterConfig tunes the pattern clusterer.
type ClusterConfig struct {
	// Threshold is the similarity ratio a message must exceed to join a pattern.
	Threshold float64 `mapstructure:"threshold"`

	// Placeholder replaces the characters that differ between messages of a pattern.
	Placeholder string `mapstructure:"placeholder"`

	// Autojunk ignores very frequent bytes when seeding matches in keys of 200+ bytes.
	Autojunk bool `mapstructure:"autojunk"`
}

// ReportConfig holds defaults for the reporting layer.
type ReportConfig struct {
	UncommonFrequency int `mapstructure:"uncommon_frequency"`
}

// LLMConfig holds configuration for LLM providers.
type LLMConfig struct {
	// Provider selects which LLM to use. Only "ollama" is supported.
	Provider string `mapstructure:"provider"`

	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`

	Ollama OllamaConfig `mapstructure:"ollama"`
}

// OllamaConfig holds Ollama-specific settings.
type OllamaConfig struct {
	Host  string `mapstructure:"host"`  // API endpoint
	Model string `mapstructure:"model"` // Default model name
}

// RedactionConfig controls secret redaction before pattern data leaves the machine.
type RedactionConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Patterns specifies which redaction patterns to use
	// Available: private_key, jwt, aws_key, api_key, email, uuid, mac_address, ipv4, ipv6
	Patterns []string `mapstructure:"patterns"`
}

// DefaultTimestampFormats are the layouts tried, in order, on the date
// portion of a syslog line.
var DefaultTimestampFormats = []string{
	"Jan _2 15:04:05",           // Syslog (space padded day)
	"Jan 2 15:04:05",            // Syslog with collapsed whitespace
	"Jan 02 15:04:05",           // Syslog (zero padded day)
	"2006-01-02T15:04:05Z07:00", // RFC3339
	"2006-01-02 15:04:05",       // Common datetime
}

// Record is one parsed log line handed to the clusterer.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Message   string    `json:"message"`
	Line      int       `json:"line"`
}

// Occurrence is a single message that was matched into a pattern.
type Occurrence struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Message   string    `json:"message" yaml:"message"`
}

// SortOccurrences sorts occurrences by timestamp ascending, keeping arrival
// order for equal timestamps.
func SortOccurrences(occ []Occurrence) {
	sort.SliceStable(occ, func(i, j int) bool {
		return occ[i].Timestamp.Before(occ[j].Timestamp)
	})
}
