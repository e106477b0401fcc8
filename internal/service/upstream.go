package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vibetutor/gateway-server-go/internal/config"
	"github.com/vibetutor/gateway-server-go/internal/model"
)

const completionsPath = "/chat/completions"

// UpstreamClient forwards completion requests to the LLM provider. The API
// key lives only here; it is attached server-side and never reaches the app.
type UpstreamClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewUpstreamClient(baseURL, apiKey string) *UpstreamClient {
	return &UpstreamClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: config.UpstreamTimeout,
		},
	}
}

// ChatCompletion performs one provider call. Non-2xx responses are logged
// with the upstream body and returned as a bare error; the body never
// reaches the caller.
func (c *UpstreamClient) ChatCompletion(ctx context.Context, req model.UpstreamRequest) (*model.UpstreamResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	elapsed := time.Since(start)

	if err != nil {
		log.Error().
			Err(err).
			Dur("elapsed", elapsed).
			Msg("upstream request error")
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Error().
			Int("status", resp.StatusCode).
			Dur("elapsed", elapsed).
			Str("body", string(errBody)).
			Msg("upstream returned error status")
		return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
	}

	var completion model.UpstreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Str("model", req.Model).
		Msg("upstream completion ok")

	return &completion, nil
}
