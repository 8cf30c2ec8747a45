// internal/intent/classifier/client.go
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"invoicing-dashboard/internal/common/httpclient"
	"invoicing-dashboard/internal/common/logger"
	"invoicing-dashboard/internal/intent"
)

const temperature = 0.2 // near-deterministic sampling

var (
	ErrUnavailable = errors.New("CLASSIFIER_UNAVAILABLE")
	ErrMalformed   = errors.New("CLASSIFIER_MALFORMED")
)

// MalformedError keeps the raw model text so the caller can surface it
// for diagnostics. It wraps ErrMalformed.
type MalformedError struct {
	Raw string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("CLASSIFIER_MALFORMED: bad JSON from model: %q", e.Raw)
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformed
}

// Client calls the external text-generation service and demands a
// strict-JSON classification back. One outbound call per invocation;
// no retries, no caching.
type Client struct {
	config *Config
	client *httpclient.Client
	logger logger.Logger
}

// NewClient fails when the API key is absent: a missing credential is a
// startup condition, not a per-request error.
func NewClient(config *Config, log logger.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("classifier API key is required")
	}
	if config.Model == "" {
		config.Model = "gemini-1.5-flash"
	}
	return &Client{
		config: config,
		client: httpclient.NewClient(config.Timeout),
		logger: log.WithFields(map[string]interface{}{
			"component": "classifier",
			"model":     config.Model,
		}),
	}, nil
}

// Classify renders the instruction prompt for the utterance, invokes the
// model and decodes its strict-JSON answer. The result is untrusted.
func (c *Client) Classify(ctx context.Context, utterance string) (*RawResult, error) {
	reqBody := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: intent.UserPrompt(utterance)}}},
		},
		GenerationConfig: generationConfig{
			Temperature:      temperature,
			ResponseMimeType: "application/json",
		},
	}

	body, _ := json.Marshal(reqBody)
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimSuffix(c.config.BaseURL, "/"), c.config.Model, c.config.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("model call failed", map[string]interface{}{
			"status": resp.StatusCode,
			"body":   string(snippet),
		})
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", ErrUnavailable, err)
	}

	raw := candidateText(&genResp)

	var result RawResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, &MalformedError{Raw: raw}
	}

	c.logger.Debug("utterance classified", map[string]interface{}{
		"intent":     result.Intent,
		"confidence": result.Confidence,
	})

	return &result, nil
}

func candidateText(resp *generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}
