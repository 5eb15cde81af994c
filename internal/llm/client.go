// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps the OpenAI chat completion API behind a small JSON-mode
// completion interface, with cost estimation and prompt-injection
// mitigation for untrusted document text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// CompletionRequest describes one JSON-mode chat completion call. System
// carries trusted instructions; User carries the metadata header and the
// delimited untrusted document text.
type CompletionRequest struct {
	Model     string
	System    string
	User      string
	MaxTokens int
}

// CompletionResult carries the raw model output and the token counts the
// usage ledger needs.
type CompletionResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// Backend is the completion surface the pipeline stages depend on. Tests
// substitute a Mock.
type Backend interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}

// Client is the OpenAI-backed Backend.
type Client struct {
	client *openai.Client
	log    *zap.Logger
}

// NewClient builds a client from the API key. The key comes from the
// environment or the secrets directory, never from the config file.
func NewClient(apiKey string, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	return &Client{
		client: openai.NewClient(apiKey),
		log:    logger.Named("llm"),
	}, nil
}

// Complete runs one chat completion with response_format json_object and
// returns the raw content plus token usage.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		MaxTokens: req.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.log.Error("completion failed",
			zap.String("model", req.Model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in response")
	}

	c.log.Debug("completion done",
		zap.String("model", req.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &CompletionResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
