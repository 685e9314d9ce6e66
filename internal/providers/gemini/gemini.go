// Package gemini talks to the generateContent endpoint: request building,
// retrying execution and interpretation of the decoded response.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/example/research-reporter/internal/config"
)

// Client binds an Executor to one model endpoint and key.
type Client struct {
	APIKey   string
	Model    string
	BaseURL  string
	Executor *Executor
}

// NewFromConfig builds a Client with the default retry policy.
func NewFromConfig(cfg config.Config) *Client {
	return &Client{
		APIKey:   cfg.GeminiAPIKey,
		Model:    cfg.GeminiModel,
		BaseURL:  cfg.GeminiBaseURL,
		Executor: NewExecutor(&http.Client{Timeout: cfg.HTTPTimeout}),
	}
}

// Configured is false for an empty key or the placeholder key.
func (c *Client) Configured() bool {
	return c != nil && config.UsableAPIKey(c.APIKey)
}

// Endpoint returns the generateContent URL including the key.
func (c *Client) Endpoint() string {
	base := c.BaseURL
	if base == "" {
		base = config.DefaultGeminiBaseURL
	}
	model := c.Model
	if model == "" {
		model = config.DefaultGeminiModel
	}
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s", strings.TrimRight(base, "/"), url.PathEscape(model), url.QueryEscape(c.APIKey))
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

// GenerateRequest is the generateContent request body.
type GenerateRequest struct {
	Contents []content `json:"contents"`
}

// NewTextRequest wraps a single prompt as {contents:[{parts:[{text}]}]}.
func NewTextRequest(prompt string) GenerateRequest {
	return GenerateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}}
}

// Generate sends prompt through the Executor.
func (c *Client) Generate(ctx context.Context, prompt string) Outcome {
	return c.Executor.Execute(ctx, c.Endpoint(), NewTextRequest(prompt))
}
