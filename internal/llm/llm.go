// Package llm is the model-facing side of herring explain.
//
// Callers depend on the Provider interface; NewProvider picks the
// implementation from configuration. Only Ollama is supported, so pattern
// data never leaves the machine unless the Ollama host is remote.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bimmerbailey/herring/internal/config"
	"github.com/bimmerbailey/herring/internal/llm/ollama"
)

// Provider is a chat model. Implementations must be safe for concurrent use.
type Provider interface {
	// Chat sends messages and returns the complete response.
	Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error)

	// ChatStream sends messages and returns a channel of response chunks.
	// The channel is closed when the stream completes or fails.
	ChatStream(ctx context.Context, messages []Message, opts *ChatOptions) (<-chan StreamEvent, error)

	// Heartbeat returns nil if the provider is reachable.
	Heartbeat(ctx context.Context) error

	// ModelAvailable reports whether the model can be used without pulling it.
	ModelAvailable(ctx context.Context, model string) (bool, error)
}

// Message represents a single message in a conversation.
type Message struct {
	Role    string // "system", "user", or "assistant"
	Content string
}

// ChatOptions overrides the configured defaults for one request. A nil
// *ChatOptions uses the defaults.
type ChatOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Response is a complete model response.
type Response struct {
	Content      string
	Model        string
	TokensPrompt int
	TokensTotal  int
}

// StreamEvent is one chunk of a streamed response. An event with Error set
// terminates the stream.
type StreamEvent struct {
	Content string
	Done    bool
	Error   error
}

// Common errors returned by providers.
var (
	ErrProviderUnavailable = ollama.ErrProviderUnavailable
	ErrContextCanceled     = ollama.ErrContextCanceled
	ErrModelNotFound       = errors.New("requested model is not available")
)

// NewProvider creates the provider named by cfg.LLM.Provider.
func NewProvider(cfg *config.Config, logger *slog.Logger) (Provider, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	kind := strings.ToLower(cfg.LLM.Provider)
	logger.Debug("creating llm provider", "type", kind)

	switch kind {
	case "ollama":
		p, err := ollama.New(ollama.Config{
			Host:        cfg.LLM.Ollama.Host,
			Model:       cfg.LLM.Ollama.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		}, logger)
		if err != nil {
			return nil, err
		}
		return &ollamaAdapter{p: p}, nil
	case "":
		return nil, errors.New("llm provider not specified in configuration")
	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: ollama)", kind)
	}
}

// ollamaAdapter converts between llm and ollama types.
type ollamaAdapter struct {
	p *ollama.Provider
}

func toOllama(messages []Message, opts *ChatOptions) ([]ollama.Message, *ollama.ChatOptions) {
	out := make([]ollama.Message, len(messages))
	for i, m := range messages {
		out[i] = ollama.Message{Role: m.Role, Content: m.Content}
	}
	if opts == nil {
		return out, nil
	}
	return out, &ollama.ChatOptions{Model: opts.Model, Temperature: opts.Temperature, MaxTokens: opts.MaxTokens}
}

func (a *ollamaAdapter) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	msgs, o := toOllama(messages, opts)
	resp, err := a.p.Chat(ctx, msgs, o)
	if err != nil {
		return nil, err
	}
	return &Response{
		Content:      resp.Content,
		Model:        resp.Model,
		TokensPrompt: resp.TokensPrompt,
		TokensTotal:  resp.TokensTotal,
	}, nil
}

func (a *ollamaAdapter) ChatStream(ctx context.Context, messages []Message, opts *ChatOptions) (<-chan StreamEvent, error) {
	msgs, o := toOllama(messages, opts)
	in, err := a.p.ChatStream(ctx, msgs, o)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamEvent, cap(in))
	go func() {
		defer close(out)
		for ev := range in {
			out <- StreamEvent{Content: ev.Content, Done: ev.Done, Error: ev.Error}
		}
	}()
	return out, nil
}

func (a *ollamaAdapter) Heartbeat(ctx context.Context) error {
	return a.p.Heartbeat(ctx)
}

func (a *ollamaAdapter) ModelAvailable(ctx context.Context, model string) (bool, error) {
	return a.p.ModelAvailable(ctx, model)
}

// Collect drains a stream, calling fn for each chunk, and returns the first
// error carried by the stream.
func Collect(stream <-chan StreamEvent, fn func(string) error) error {
	var streamErr error
	for ev := range stream {
		if streamErr != nil {
			continue
		}
		if ev.Error != nil {
			streamErr = ev.Error
			continue
		}
		if ev.Content != "" {
			if err := fn(ev.Content); err != nil {
				streamErr = err
			}
		}
	}
	return streamErr
}
