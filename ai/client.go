// Package ai wraps the hosted generative-language model used for content
// moderation and auto-reply generation. The client is explicitly constructed and
// injected; nothing in this package holds global state.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dicomeinit/post-comment-app/config"
)

// TextGenerator is the single operation this system needs from the model:
// a prompt in, generated text out.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Client calls the Vertex-style generateContent REST endpoint.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewClient builds a Client from configuration read at process start. When
// cfg.AIEndpoint is set it overrides the derived Vertex URL, which is how tests
// and proxies hook in.
func NewClient(cfg config.AppConfig) *Client {
	endpoint := cfg.AIEndpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf(
			"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
			cfg.AILocation, cfg.AIProjectID, cfg.AILocation, cfg.AIModelName,
		)
	}
	return &Client{
		endpoint: endpoint,
		token:    cfg.AIAccessToken,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.AITimeoutSec) * time.Second,
		},
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateContent sends one prompt and returns the model's text answer.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read model response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model API error (%d): %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode model response: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("model response contains no text")
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("model response contains no text")
	}
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
