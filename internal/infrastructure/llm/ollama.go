package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"IntelBrief/internal/ports"
)

// OllamaClient calls the native Ollama generate endpoint without streaming.
type OllamaClient struct {
	host string
	http *http.Client
}

var _ ports.TextGenerator = (*OllamaClient)(nil)

// NewOllamaClient creates a reusable HTTP client. Request deadlines come from
// the caller's context.
func NewOllamaClient(host string) *OllamaClient {
	return &OllamaClient{
		host: strings.TrimRight(host, "/"),
		http: &http.Client{},
	}
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Generate returns the model's completion for req.
func (c *OllamaClient) Generate(ctx context.Context, req ports.GenerateRequest) (string, error) {
	if c.host == "" {
		return "", errors.New("ollama host is not configured")
	}

	var resp ollamaResponse
	err := postJSON(ctx, c.http, c.host+"/api/generate", "", ollamaRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", errors.New(resp.Error)
	}
	return resp.Response, nil
}
