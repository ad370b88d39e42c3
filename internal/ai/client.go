// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ai talks to an OpenAI-compatible chat-completion endpoint and turns
// its free-form replies into typed values through a three-way parse result.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// ErrConfigMissing is returned synchronously when no API key is configured.
// It is never retried.
var ErrConfigMissing = errors.New("ai provider not configured: missing API key")

// Defaults applied when AIConfig fields are zero.
const (
	DefaultModel     = "gpt-4o-mini"
	DefaultMaxTokens = 1500
)

// Completer sends one system/user exchange and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// CheckConfig reports ErrConfigMissing for a nil completer or one that
// declares itself unconfigured.
func CheckConfig(c Completer) error {
	if c == nil {
		return ErrConfigMissing
	}
	if cc, ok := c.(interface{ Configured() bool }); ok && !cc.Configured() {
		return ErrConfigMissing
	}
	return nil
}

// OpenAIClient implements Completer with github.com/sashabaranov/go-openai.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	configured  bool
}

// NewOpenAIClient builds a client for cfg. httpClient may be nil.
func NewOpenAIClient(cfg types.AIConfig, httpClient *http.Client) *OpenAIClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if httpClient != nil {
		oc.HTTPClient = httpClient
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(oc),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		configured:  strings.TrimSpace(cfg.APIKey) != "",
	}
}

// Configured reports whether an API key is present.
func (c *OpenAIClient) Configured() bool { return c.configured }

// Complete posts a chat completion. Provider HTTP failures surface as
// *httputil.StatusError so the resilience wrapper can recognize 404 and 429.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	if !c.configured {
		return "", ErrConfigMissing
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	// Reasoning models take MaxCompletionTokens instead of MaxTokens.
	if isReasoningModel(c.model) {
		req.MaxCompletionTokens = c.maxTokens
	} else {
		req.MaxTokens = c.maxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", statusFrom(err))
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func statusFrom(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &httputil.StatusError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &httputil.StatusError{StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return err
}
