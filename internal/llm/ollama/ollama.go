// Package ollama talks to a local Ollama server.
//
// The package keeps its own message types so that the parent llm package can
// import it without a cycle; llm adapts them to llm.Provider.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "llama3.2"

// Common errors
var (
	ErrProviderUnavailable = errors.New("llm provider is not reachable")
	ErrContextCanceled     = errors.New("operation was canceled")
	ErrNoMessages          = errors.New("messages cannot be empty")
)

// Config holds Ollama-specific configuration.
type Config struct {
	Host        string  // e.g. "http://localhost:11434"; empty uses OLLAMA_HOST
	Model       string  // default model for requests that do not name one
	Temperature float32 // default sampling temperature
	MaxTokens   int     // default response limit, 0 for the server default
}

// Message is one turn of a conversation.
type Message struct {
	Role    string
	Content string
}

// ChatOptions overrides Config for a single request.
type ChatOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Response is a complete, non-streamed answer.
type Response struct {
	Content      string
	Model        string
	TokensPrompt int
	TokensTotal  int
}

// StreamEvent is one chunk of a streamed answer.
type StreamEvent struct {
	Content string
	Done    bool
	Error   error
}

// Provider sends chat requests to Ollama.
type Provider struct {
	client *api.Client
	config Config
	logger *slog.Logger
}

// New creates a Provider. An empty cfg.Host falls back to the OLLAMA_HOST
// environment variable, then to http://localhost:11434.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	var client *api.Client
	if cfg.Host != "" {
		u, err := url.Parse(cfg.Host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host: %w", err)
		}
		client = api.NewClient(u, http.DefaultClient)
		logger.Debug("created ollama client with explicit host", "host", cfg.Host)
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		logger.Debug("created ollama client from environment")
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	return &Provider{client: client, config: cfg, logger: logger}, nil
}

// request builds the wire request, applying opts over the configured defaults.
func (p *Provider) request(messages []Message, opts *ChatOptions, stream bool) *api.ChatRequest {
	model, temperature, maxTokens := p.config.Model, p.config.Temperature, p.config.MaxTokens
	if opts != nil {
		if opts.Model != "" {
			model = opts.Model
		}
		temperature = opts.Temperature
		if opts.MaxTokens > 0 {
			maxTokens = opts.MaxTokens
		}
	}

	msgs := make([]api.Message, len(messages))
	for i, m := range messages {
		msgs[i] = api.Message{Role: m.Role, Content: m.Content}
	}

	req := &api.ChatRequest{
		Model:    model,
		Messages: msgs,
		Options:  map[string]interface{}{"temperature": temperature},
		Stream:   &stream,
	}
	if maxTokens > 0 {
		req.Options["num_predict"] = maxTokens
	}
	return req
}

// wrapError maps client failures onto the package sentinels.
func wrapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrContextCanceled, err)
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

// Chat sends messages and waits for the complete answer.
func (p *Provider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}
	req := p.request(messages, opts, false)
	p.logger.Debug("sending chat request", "model", req.Model, "messages", len(messages))

	var final api.ChatResponse
	err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		final = resp
		return nil
	})
	if err != nil {
		p.logger.Error("chat request failed", "error", err, "model", req.Model)
		return nil, wrapError(err)
	}

	p.logger.Debug("chat request completed",
		"model", final.Model,
		"prompt_tokens", final.PromptEvalCount,
		"eval_tokens", final.EvalCount)

	return &Response{
		Content:      final.Message.Content,
		Model:        final.Model,
		TokensPrompt: final.PromptEvalCount,
		TokensTotal:  final.PromptEvalCount + final.EvalCount,
	}, nil
}

// ChatStream sends messages and returns the answer chunk by chunk. The
// channel is closed when the answer is complete, the request fails, or ctx
// is cancelled; failures arrive as a final event with Error set.
func (p *Provider) ChatStream(ctx context.Context, messages []Message, opts *ChatOptions) (<-chan StreamEvent, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}
	req := p.request(messages, opts, true)
	p.logger.Debug("starting chat stream", "model", req.Model, "messages", len(messages))

	events := make(chan StreamEvent, 10)
	send := func(ev StreamEvent) error {
		select {
		case events <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	go func() {
		defer close(events)

		err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
			if resp.Done {
				p.logger.Debug("chat stream completed",
					"model", resp.Model,
					"prompt_tokens", resp.PromptEvalCount,
					"eval_tokens", resp.EvalCount)
			}
			if resp.Message.Content == "" && !resp.Done {
				return nil
			}
			return send(StreamEvent{Content: resp.Message.Content, Done: resp.Done})
		})
		if err != nil {
			p.logger.Debug("chat stream ended with error", "error", err, "model", req.Model)
			_ = send(StreamEvent{Error: wrapError(err), Done: true})
		}
	}()

	return events, nil
}

// Heartbeat checks that the server answers.
func (p *Provider) Heartbeat(ctx context.Context) error {
	if err := p.client.Heartbeat(ctx); err != nil {
		p.logger.Debug("ollama heartbeat failed", "error", err)
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return nil
}

// ModelAvailable reports whether model has been pulled. Both "name" and
// "name:tag" spellings are accepted.
func (p *Provider) ModelAvailable(ctx context.Context, model string) (bool, error) {
	list, err := p.client.List(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	for _, m := range list.Models {
		if m.Name == model || m.Model == model || m.Name == model+":latest" {
			return true, nil
		}
	}
	p.logger.Debug("model not found", "model", model, "available", len(list.Models))
	return false, nil
}
