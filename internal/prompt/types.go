package prompt

import (
	"errors"
	"fmt"
)

// PromptType selects the task the model is asked to perform.
type PromptType string

const (
	// TypeTriage asks which rare patterns deserve attention. It is the
	// default for herring explain.
	TypeTriage PromptType = "triage"

	// TypeRootCause asks for an evidence-based diagnosis built from the rare
	// patterns and their timing.
	TypeRootCause PromptType = "root_cause"

	// TypeQuestion answers a free-form question about the patterns.
	TypeQuestion PromptType = "question"
)

// ParseType converts a string to a PromptType.
func ParseType(s string) (PromptType, error) {
	switch PromptType(s) {
	case TypeTriage, TypeRootCause, TypeQuestion:
		return PromptType(s), nil
	case "":
		return TypeTriage, nil
	}
	return "", fmt.Errorf("unknown prompt type %q (supported: triage, root_cause, question)", s)
}

// DefaultMaxChars bounds the pattern section of the user message.
const DefaultMaxChars = 12000

// DefaultSamples is how many occurrences are quoted per pattern.
const DefaultSamples = 3

// Redactor rewrites text before it is placed in a prompt.
type Redactor interface {
	Redact(text string) string
}

// Options holds the context for one prompt.
type Options struct {
	// Question is required for TypeQuestion.
	Question string

	// Files are the scanned inputs, named in the header when set.
	Files []string

	// TotalClusters is the size of the whole pattern table, so the model
	// knows how much was left out.
	TotalClusters int

	// UncommonFrequency is the frequency cutoff used to select the patterns.
	UncommonFrequency int

	// MaxChars bounds the pattern listing; 0 uses DefaultMaxChars.
	MaxChars int

	// Samples is the number of occurrences quoted per pattern; 0 uses
	// DefaultSamples.
	Samples int

	// Redactor, when set, is applied to every key and quoted message.
	Redactor Redactor
}

// Errors returned by Build.
var (
	ErrMissingField = errors.New("prompt: missing required field")
	ErrNoPatterns   = errors.New("prompt: no patterns to explain")
)

func missingField(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}
