package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// newTestProvider starts a mock Ollama server and points a Provider at it.
func newTestProvider(t *testing.T, cfg Config, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.Host = server.URL
	p, err := New(cfg, quietLogger)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	return p
}

// streamChunks writes ndjson chat chunks, flushing after each one.
func streamChunks(w http.ResponseWriter, chunks []map[string]interface{}, delay time.Duration) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	enc := json.NewEncoder(w)
	for _, chunk := range chunks {
		if err := enc.Encode(chunk); err != nil {
			return
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		time.Sleep(delay)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		wantModel string
		wantErr   bool
	}{
		{"explicit host and model", Config{Host: "http://localhost:11434", Model: "mistral"}, "mistral", false},
		{"default model", Config{Host: "http://localhost:11434"}, DefaultModel, false},
		{"invalid host URL", Config{Host: "://invalid-url"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.config, quietLogger)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && p.config.Model != tt.wantModel {
				t.Errorf("model = %q, want %q", p.config.Model, tt.wantModel)
			}
		})
	}

	if _, err := New(Config{}, nil); err == nil {
		t.Error("New() should reject nil logger")
	}
}

func TestChat(t *testing.T) {
	p := newTestProvider(t, Config{Model: "test-model"}, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req["stream"] != false {
			t.Errorf("stream = %v, want false", req["stream"])
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"model":             req["model"],
			"message":           map[string]string{"role": "assistant", "content": "a disk is failing"},
			"done":              true,
			"prompt_eval_count": 10,
			"eval_count":        20,
		})
	})

	resp, err := p.Chat(context.Background(), []Message{{Role: "user", Content: "Hello"}}, nil)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Content != "a disk is failing" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Model != "test-model" {
		t.Errorf("Model = %q, want test-model", resp.Model)
	}
	if resp.TokensPrompt != 10 || resp.TokensTotal != 30 {
		t.Errorf("tokens = %d/%d, want 10/30", resp.TokensPrompt, resp.TokensTotal)
	}
}

func TestChatEmptyMessages(t *testing.T) {
	p, err := New(Config{Host: "http://localhost:11434"}, quietLogger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := p.Chat(context.Background(), nil, nil); !errors.Is(err, ErrNoMessages) {
		t.Errorf("Chat() error = %v, want ErrNoMessages", err)
	}
	if _, err := p.ChatStream(context.Background(), nil, nil); !errors.Is(err, ErrNoMessages) {
		t.Errorf("ChatStream() error = %v, want ErrNoMessages", err)
	}
}

func TestChatServerError(t *testing.T) {
	p := newTestProvider(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not loaded"}`, http.StatusInternalServerError)
	})

	_, err := p.Chat(context.Background(), []Message{{Role: "user", Content: "Hello"}}, nil)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("Chat() error = %v, want ErrProviderUnavailable", err)
	}
}

func TestChatOptions(t *testing.T) {
	tests := []struct {
		name           string
		config         Config
		opts           *ChatOptions
		wantModel      string
		wantTemp       float64
		wantNumPredict float64 // 0 means absent
	}{
		{
			name:      "config defaults",
			config:    Config{Model: "default-model", Temperature: 0.2, MaxTokens: 256},
			wantModel: "default-model", wantTemp: 0.2, wantNumPredict: 256,
		},
		{
			name:      "per-request override",
			config:    Config{Model: "default-model", MaxTokens: 256},
			opts:      &ChatOptions{Model: "custom-model", Temperature: 0.7, MaxTokens: 100},
			wantModel: "custom-model", wantTemp: 0.7, wantNumPredict: 100,
		},
		{
			name:      "no limit",
			config:    Config{Model: "default-model"},
			wantModel: "default-model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, tt.config, func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					Model   string                 `json:"model"`
					Options map[string]interface{} `json:"options"`
				}
				json.NewDecoder(r.Body).Decode(&req)

				if req.Model != tt.wantModel {
					t.Errorf("model = %q, want %q", req.Model, tt.wantModel)
				}
				if temp, _ := req.Options["temperature"].(float64); temp != tt.wantTemp {
					t.Errorf("temperature = %v, want %v", temp, tt.wantTemp)
				}
				np, present := req.Options["num_predict"].(float64)
				if tt.wantNumPredict == 0 && present {
					t.Errorf("num_predict should be absent, got %v", np)
				}
				if tt.wantNumPredict != 0 && np != tt.wantNumPredict {
					t.Errorf("num_predict = %v, want %v", np, tt.wantNumPredict)
				}

				json.NewEncoder(w).Encode(map[string]interface{}{
					"model":   req.Model,
					"message": map[string]string{"content": "ok"},
					"done":    true,
				})
			})

			if _, err := p.Chat(context.Background(), []Message{{Role: "user", Content: "test"}}, tt.opts); err != nil {
				t.Fatalf("Chat() error = %v", err)
			}
		})
	}
}

func TestChatStream(t *testing.T) {
	p := newTestProvider(t, Config{Model: "test-model"}, func(w http.ResponseWriter, r *http.Request) {
		streamChunks(w, []map[string]interface{}{
			{"message": map[string]string{"content": "Hello "}, "done": false},
			{"message": map[string]string{"content": ""}, "done": false},
			{"message": map[string]string{"content": "World"}, "done": false},
			{"message": map[string]string{"content": "!"}, "done": true, "prompt_eval_count": 5, "eval_count": 15},
		}, 0)
	})

	stream, err := p.ChatStream(context.Background(), []Message{{Role: "user", Content: "Hello"}}, nil)
	if err != nil {
		t.Fatalf("ChatStream() error = %v", err)
	}

	var content strings.Builder
	events, done := 0, 0
	for ev := range stream {
		if ev.Error != nil {
			t.Fatalf("stream error: %v", ev.Error)
		}
		events++
		content.WriteString(ev.Content)
		if ev.Done {
			done++
		}
	}

	if content.String() != "Hello World!" {
		t.Errorf("content = %q, want %q", content.String(), "Hello World!")
	}
	if events != 3 {
		t.Errorf("empty chunks should be skipped, got %d events", events)
	}
	if done != 1 {
		t.Errorf("done events = %d, want 1", done)
	}
}

func TestChatStreamCancellation(t *testing.T) {
	chunks := make([]map[string]interface{}, 100)
	for i := range chunks {
		chunks[i] = map[string]interface{}{"message": map[string]string{"content": "chunk"}, "done": false}
	}
	p := newTestProvider(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		streamChunks(w, chunks, 10*time.Millisecond)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := p.ChatStream(ctx, []Message{{Role: "user", Content: "Hello"}}, nil)
	if err != nil {
		t.Fatalf("ChatStream() error = %v", err)
	}

	count := 0
	for ev := range stream {
		count++
		if count == 3 {
			cancel()
		}
		if ev.Error != nil {
			if !errors.Is(ev.Error, ErrContextCanceled) {
				t.Errorf("error = %v, want ErrContextCanceled", ev.Error)
			}
			break
		}
	}
	if count >= len(chunks) {
		t.Errorf("stream did not stop after cancel, got %d events", count)
	}
}

func TestHeartbeat(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"running", http.StatusOK, false},
		{"unhealthy", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			err := p.Heartbeat(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Heartbeat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrProviderUnavailable) {
				t.Errorf("Heartbeat() error = %v, want ErrProviderUnavailable", err)
			}
		})
	}
}

func TestModelAvailable(t *testing.T) {
	p := newTestProvider(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"models": []map[string]interface{}{
				{"name": "llama3.2:latest", "model": "llama3.2:latest"},
				{"name": "codellama:7b", "model": "codellama:7b"},
			},
		})
	})

	tests := []struct {
		model     string
		available bool
	}{
		{"llama3.2", true},
		{"llama3.2:latest", true},
		{"codellama:7b", true},
		{"codellama", false},
		{"nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, err := p.ModelAvailable(context.Background(), tt.model)
			if err != nil {
				t.Fatalf("ModelAvailable() error = %v", err)
			}
			if got != tt.available {
				t.Errorf("ModelAvailable(%q) = %v, want %v", tt.model, got, tt.available)
			}
		})
	}
}
