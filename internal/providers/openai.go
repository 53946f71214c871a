package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ErrAuthMissing marks a provider call rejected for missing or bad
// credentials. Callers skip rather than retry these.
var ErrAuthMissing = errors.New("provider credentials missing or rejected")

// Config describes one OpenAI-compatible chat backend.
type Config struct {
	Name          string
	BaseURL       string
	APIKey        string
	Model         string            // fixed model id; empty with DiscoverModel set
	DiscoverModel bool              // pick the first model the backend lists
	Headers       map[string]string // extra headers some backends require
	Temperature   float64
	MaxTokens     int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ChatProvider talks to one OpenAI-compatible chat completion endpoint.
type ChatProvider struct {
	cfg    Config
	client *http.Client

	mu    sync.Mutex
	model string
}

// NewChatProvider builds a provider with a pooled transport. Timeouts are
// controlled by the caller's context, not the http.Client.
func NewChatProvider(cfg Config) *ChatProvider {
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1000
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &ChatProvider{
		cfg:    cfg,
		client: &http.Client{Transport: transport},
		model:  cfg.Model,
	}
}

func (p *ChatProvider) Name() string { return p.cfg.Name }

func (p *ChatProvider) Ready() bool { return p.cfg.APIKey != "" }

// Submit sends the prompt and returns the backend's raw text answer.
func (p *ChatProvider) Submit(ctx context.Context, prompt string) (string, error) {
	if !p.Ready() {
		return "", ErrAuthMissing
	}

	model, err := p.resolveModel(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemMessage},
			{Role: "user", Content: prompt},
		},
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: status %d", ErrAuthMissing, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(b))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}
	return cr.Choices[0].Message.Content, nil
}

// resolveModel returns the configured model, discovering one from the
// backend's model list when none is configured. Discovery failures are
// not cached so a flaky backend can recover on the next call.
func (p *ChatProvider) resolveModel(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model != "" {
		return p.model, nil
	}
	if !p.cfg.DiscoverModel {
		return "", fmt.Errorf("provider %s: no model configured", p.cfg.Name)
	}
	if err := p.discover(ctx); err != nil {
		return "", err
	}
	return p.model, nil
}

func (p *ChatProvider) discover(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("create discovery request: %w", err)
	}
	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("model discovery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model discovery status %d", resp.StatusCode)
	}

	var ml modelList
	if err := json.NewDecoder(resp.Body).Decode(&ml); err != nil {
		return fmt.Errorf("decode model list: %w", err)
	}
	if len(ml.Data) == 0 {
		return fmt.Errorf("provider %s lists no models", p.cfg.Name)
	}
	p.model = ml.Data[0].ID
	return nil
}

func (p *ChatProvider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	for k, v := range p.cfg.Headers {
		req.Header.Set(k, v)
	}
}
