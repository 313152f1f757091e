package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"cgt-timeline-backend/internal/timeline"
	"cgt-timeline-backend/internal/verification"
)

// Response modes map to distinct endpoints on the model API.
const (
	ModeMarkdown = "markdown"
	ModeJSON     = "json"

	pathMarkdown = "/calculate-cgt/"
	pathJSON     = "/calculate-cgt-json/"
)

// Ships in .env.example; a base URL still set to this means "not configured".
const placeholderBaseURL = "YOUR_MODEL_API_URL_HERE"

// DefaultProvider default LLM provider sent with each request.
const DefaultProvider = "claude"

// Request timeline payload for the model API
type Request struct {
	Properties            []timeline.Property                  `json:"properties"`
	Events                []timeline.Event                     `json:"events"`
	Notes                 []timeline.Note                      `json:"notes,omitempty"`
	VerificationResponses []verification.VerificationResponse `json:"verification_responses,omitempty"`
}

type wireRequest struct {
	Request
	LLMProvider string `json:"llm_provider"`
}

// Result outcome of one analysis call
type Result struct {
	Response *verification.Response `json:"response"`
	Raw      json.RawMessage        `json:"raw"`
	Mode     string                 `json:"mode"`
	Demo     bool                   `json:"demo"`
}

// Client calls the external CGT model API. An unconfigured client serves a
// canned demo response so the rest of the app keeps working.
type Client struct {
	baseURL   string
	mode      string
	provider  string
	http      *http.Client
	demoDelay time.Duration
}

// NewClient creates a Client.
func NewClient(baseURL, mode, provider string, timeout time.Duration) *Client {
	if mode != ModeJSON {
		mode = ModeMarkdown
	}
	if provider == "" {
		provider = DefaultProvider
	}
	return &Client{
		baseURL:   baseURL,
		mode:      mode,
		provider:  provider,
		http:      &http.Client{Timeout: timeout},
		demoDelay: 1500 * time.Millisecond,
	}
}

// SetDemoDelay overrides the artificial demo-mode latency.
func (c *Client) SetDemoDelay(d time.Duration) {
	c.demoDelay = d
}

// Configured reports whether a real model API endpoint is set.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.baseURL != placeholderBaseURL
}

// Mode returns the configured response mode.
func (c *Client) Mode() string {
	return c.mode
}

// Provider returns the configured LLM provider.
func (c *Client) Provider() string {
	return c.provider
}

// Calculate submits the timeline for analysis. A json-mode response that
// doesn't parse into a known shape triggers one automatic retry in markdown
// mode.
func (c *Client) Calculate(ctx context.Context, req Request) (*Result, error) {
	if !c.Configured() {
		return c.demo(ctx)
	}

	result, err := c.call(ctx, req, c.mode)
	if err != nil {
		return nil, err
	}

	if c.mode == ModeJSON && !ValidFormat(result.Response) {
		log.Printf("⚠️ [Analysis] Unrecognized json response format, retrying in markdown mode")
		return c.call(ctx, req, ModeMarkdown)
	}
	return result, nil
}

func (c *Client) call(ctx context.Context, req Request, mode string) (*Result, error) {
	path := pathMarkdown
	if mode == ModeJSON {
		path = pathJSON
	}

	body, err := json.Marshal(wireRequest{Request: req, LLMProvider: c.provider})
	if err != nil {
		return nil, fmt.Errorf("encode analysis request: %w", err)
	}

	log.Printf("🔗 [Analysis] Calling model API: %s%s (provider: %s)", c.baseURL, path, c.provider)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("model API request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read model API response: %w", err)
	}

	log.Printf("📥 [Analysis] Model API status: %d", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("model API responded with status %d: %s", resp.StatusCode, truncate(string(raw), 500))
	}

	normalized, err := verification.Normalize(raw)
	if err != nil {
		return nil, err
	}
	return &Result{Response: normalized, Raw: raw, Mode: mode}, nil
}

// ValidFormat reports whether a normalized response carries any shape we
// know how to render.
func ValidFormat(r *verification.Response) bool {
	if r == nil {
		return false
	}
	return r.Analysis != "" ||
		r.Status != "" ||
		r.Summary != nil ||
		len(r.Properties) > 0 ||
		r.NeedsClarification()
}

// demo returns the canned response after an artificial delay so the UI's
// loading states stay exercised without a configured API.
func (c *Client) demo(ctx context.Context) (*Result, error) {
	log.Printf("ℹ️ [Analysis] Model API not configured, serving demo response")

	select {
	case <-time.After(c.demoDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	raw := []byte(demoResponseJSON)
	normalized, err := verification.Normalize(raw)
	if err != nil {
		return nil, err
	}
	return &Result{Response: normalized, Raw: raw, Mode: ModeMarkdown, Demo: true}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

const demoResponseJSON = `{
  "status": "completed",
  "analysis": "## CGT Analysis (Demo)\n\nThis is a sample analysis generated without a configured model API.\n\n### Summary\n- Main residence exemption applies for the full ownership period.\n- No capital gains tax payable on the disposal.\n\nConfigure ANALYSIS_API_URL to run a real analysis.",
  "summary": {
    "total_properties": 1,
    "properties_passed": 1,
    "properties_failed": 0,
    "requires_clarification": false
  },
  "total_net_capital_gain": 0
}`
