// Package ai talks to an Ollama server for vision OCR and LLM-assisted text
// classification.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/digimosa/content-moderation/internal/config"
)

// ErrBadResponse is returned when the model answers with something that is
// not the JSON shape it was asked for.
var ErrBadResponse = errors.New("ollama returned an unusable response")

type OllamaClient struct {
	BaseURL    string
	Model      string
	Client     *http.Client
	MaxRetries uint64

	log     *zap.Logger
	backOff func() backoff.BackOff
}

type GenerateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Stream bool     `json:"stream"`
	Format string   `json:"format,omitempty"`
	Images []string `json:"images,omitempty"`
}

type GenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func NewClient(log *zap.Logger, endpoint config.OllamaEndpoint) *OllamaClient {
	timeout := endpoint.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OllamaClient{
		BaseURL:    endpoint.URL,
		Model:      endpoint.Model,
		Client:     &http.Client{Timeout: timeout},
		MaxRetries: endpoint.MaxRetries,
		log:        log.Named("ollama").With(zap.String("model", endpoint.Model)),
		backOff:    func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

// Ping checks if the Ollama instance is reachable and the model exists
func (c *OllamaClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.post(ctx, GenerateRequest{Model: c.Model, Prompt: "ping"})
	if err != nil {
		return fmt.Errorf("ollama unreachable at %s: %w", c.BaseURL, err)
	}
	return nil
}

// callOllama sends one non-streaming generate request, retrying transport
// errors and 5xx answers with exponential backoff.
func (c *OllamaClient) callOllama(ctx context.Context, req GenerateRequest) (string, error) {
	req.Model = c.Model
	req.Stream = false
	c.logDebug("prompt", req.Prompt)

	var answer string
	operation := func() error {
		resp, err := c.post(ctx, req)
		if err != nil {
			return err
		}
		answer = resp
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(c.backOff(), c.MaxRetries), ctx)
	notify := func(err error, wait time.Duration) {
		c.log.Debug("retrying ollama call", zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(operation, bo, notify); err != nil {
		return "", err
	}

	c.logDebug("response", answer)
	return strings.TrimSpace(answer), nil
}

func (c *OllamaClient) post(ctx context.Context, req GenerateRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", backoff.Permanent(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", backoff.Permanent(ctx.Err())
		}
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		err := fmt.Errorf("ollama API returned status %d", resp.StatusCode)
		if resp.StatusCode < http.StatusInternalServerError {
			return "", backoff.Permanent(err)
		}
		return "", err
	}

	var genResp GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", backoff.Permanent(fmt.Errorf("%w: %v", ErrBadResponse, err))
	}
	return genResp.Response, nil
}

// logDebug never logs more than a short prefix; prompts can carry user text.
func (c *OllamaClient) logDebug(kind, message string) {
	if ce := c.log.Check(zap.DebugLevel, "ollama "+kind); ce != nil {
		ce.Write(zap.Int("chars", len(message)))
	}
}

// decodeJSON extracts the outermost JSON object from a model answer, tolerating
// markdown fences and chatter around it.
func decodeJSON(answer string, out any) error {
	text := cleanMarkdown(answer)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return fmt.Errorf("%w: no JSON object", ErrBadResponse)
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}

func cleanMarkdown(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
