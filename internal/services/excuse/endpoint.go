package excuse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxEndpointBody caps how much of an endpoint answer is read
const maxEndpointBody = 64 << 10

// EndpointGenerator posts {"context": ...} to an excuse endpoint that answers
// {"excuse": ...}. Another excuse-deck server's /api/v1/excuses qualifies, and
// so does its success envelope.
type EndpointGenerator struct {
	url    string
	client *http.Client
}

// NewEndpointGenerator creates a generator for url
func NewEndpointGenerator(url string, client *http.Client) *EndpointGenerator {
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &EndpointGenerator{url: url, client: client}
}

type endpointRequest struct {
	Context string `json:"context"`
}

type endpointResponse struct {
	Excuse string `json:"excuse"`
	Error  string `json:"error"`
	Data   *struct {
		Excuse string `json:"excuse"`
	} `json:"data"`
}

// Generate performs one POST. Non-2xx answers and bodies without an excuse are errors.
func (g *EndpointGenerator) Generate(ctx context.Context, eventContext string) (string, error) {
	body, err := json.Marshal(endpointRequest{Context: eventContext})
	if err != nil {
		return "", fmt.Errorf("failed to encode excuse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build excuse request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("excuse request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxEndpointBody))
	if err != nil {
		return "", fmt.Errorf("failed to read excuse response: %w", err)
	}

	var decoded endpointResponse
	decodeErr := json.Unmarshal(raw, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && decoded.Error != "" {
			msg = decoded.Error
		}
		return "", &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("malformed excuse response: %w", decodeErr)
	}

	excuse := decoded.Excuse
	if excuse == "" && decoded.Data != nil {
		excuse = decoded.Data.Excuse
	}
	excuse = strings.TrimSpace(excuse)
	if excuse == "" {
		return "", ErrEmptyExcuse
	}
	return excuse, nil
}
