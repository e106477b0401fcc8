// Package chatclient is the Go client for the tutoring gateway. It hides
// session bootstrapping and retry handling so callers only deal with
// messages in and completion text out.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tune a single completion request. The zero value asks the gateway
// for its defaults.
type Options struct {
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// RetryCount overrides the client RetryPolicy's MaxAttempts for this
	// call when positive. Not sent to the gateway.
	RetryCount int `json:"-"`

	// FallbackMessage is returned by CreateChatCompletion when the request
	// ultimately fails. Not sent to the gateway.
	FallbackMessage string `json:"-"`
}

// UsageStats mirrors the gateway's parent-facing stats response.
type UsageStats struct {
	RequestCount int `json:"requestCount"`
	DailyUsage   int `json:"dailyUsage"`
	SessionAge   int `json:"sessionAge"`
}

// connectMessage is the never-fail fallback when none is supplied.
const connectMessage = "I'm having trouble connecting right now. Please try again in a moment."

// sessionCacheKey is the single entry in the token cache; the cache exists
// for its TTL bookkeeping, not for multiple keys.
const sessionCacheKey = "session"

// sessionSafetyMargin shortens the cached token lifetime so we re-init
// slightly before the server would start returning 401s.
const sessionSafetyMargin = 30 * time.Second

const requestTimeout = 30 * time.Second

// Client talks to one gateway instance. It is safe for concurrent use; the
// session token is shared across goroutines and refreshed on demand.
type Client struct {
	baseURL    string
	httpClient *http.Client
	policy     RetryPolicy

	mu       sync.Mutex
	sessions *cache.Cache
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. The per-attempt timeout
// is whatever the supplied client enforces.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// New builds a client for the gateway at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		policy:     DefaultRetryPolicy(),
		sessions:   cache.New(cache.NoExpiration, 5*time.Minute),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type initSessionResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	Reason     string `json:"reason"`
	RetryAfter int    `json:"retryAfter"`
}

// token returns the cached session token, or "" when absent or expired.
func (c *Client) token() string {
	if v, ok := c.sessions.Get(sessionCacheKey); ok {
		return v.(string)
	}
	return ""
}

// initSession fetches a fresh token and caches it for its advertised
// lifetime minus a safety margin.
func (c *Client) initSession(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have refreshed while we waited on the lock.
	if token := c.token(); token != "" {
		return token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/session/init", nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionInit, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionInit, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrSessionInit, resp.StatusCode)
	}

	var body initSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionInit, err)
	}
	if body.Token == "" {
		return "", fmt.Errorf("%w: empty token", ErrSessionInit)
	}

	ttl := time.Duration(body.ExpiresIn)*time.Second - sessionSafetyMargin
	if ttl <= 0 {
		ttl = time.Duration(body.ExpiresIn) * time.Second
	}
	c.sessions.Set(sessionCacheKey, body.Token, ttl)

	log.Debug().Int("expiresIn", body.ExpiresIn).Msg("gateway session initialized")
	return body.Token, nil
}

// ensureValidSession returns a usable token, initializing one if needed.
func (c *Client) ensureValidSession(ctx context.Context) (string, error) {
	if token := c.token(); token != "" {
		return token, nil
	}
	return c.initSession(ctx)
}

// invalidateSession drops the cached token after a 401.
func (c *Client) invalidateSession() {
	c.sessions.Delete(sessionCacheKey)
}

// ChatCompletion sends messages through the gateway and returns the
// assistant's reply. Transient failures are retried per the client's
// RetryPolicy; moderation blocks and quota exhaustion fail immediately.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, opts Options) (string, error) {
	token, err := c.ensureValidSession(ctx)
	if err != nil {
		return "", err
	}

	maxAttempts := c.policy.MaxAttempts
	if opts.RetryCount > 0 {
		maxAttempts = opts.RetryCount
	}

	requestID := uuid.NewString()
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		content, retry, err := c.attempt(ctx, token, requestID, messages, opts)
		if err == nil {
			return content, nil
		}

		switch {
		case errors.Is(err, errSessionRejected):
			// At most one re-init per attempt; a fresh 401 on the next
			// attempt starts over with another fresh token.
			c.invalidateSession()
			token, err = c.initSession(ctx)
			if err != nil {
				return "", err
			}
			continue

		case !retry:
			return "", err
		}

		lastErr = err
		if attempt == maxAttempts {
			break
		}

		delay := c.policy.backoff(attempt)
		var rl *rateLimitedError
		if errors.As(err, &rl) {
			delay = rl.wait
		}

		log.Debug().
			Str("requestId", requestID).
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(err).
			Msg("retrying chat completion")

		if err := sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: %v", ErrRetriesExhausted, lastErr)
}

// CreateChatCompletion never returns an error: any failure yields the
// fallback message from opts, or a generic apology.
func (c *Client) CreateChatCompletion(ctx context.Context, messages []Message, opts Options) string {
	content, err := c.ChatCompletion(ctx, messages, opts)
	if err != nil {
		log.Warn().Err(err).Msg("chat completion failed, using fallback")
		if opts.FallbackMessage != "" {
			return opts.FallbackMessage
		}
		return connectMessage
	}
	return content
}

// UsageStats fetches the gateway's usage counters for the current session.
// Returns ErrSessionInit when no session has been established yet.
func (c *Client) UsageStats(ctx context.Context) (*UsageStats, error) {
	token := c.token()
	if token == "" {
		return nil, fmt.Errorf("%w: no active session", ErrSessionInit)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/stats/"+token, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Code: "STATS_UNAVAILABLE", Message: "failed to fetch usage stats"}
	}

	var stats UsageStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// errSessionRejected signals a 401 inside the retry loop.
var errSessionRejected = errors.New("chatclient: session rejected")

// rateLimitedError carries the server-instructed wait.
type rateLimitedError struct {
	wait time.Duration
}

func (e *rateLimitedError) Error() string {
	return fmt.Sprintf("chatclient: rate limited, retry after %s", e.wait)
}

// attempt performs one request. retry reports whether the error is worth
// another attempt.
func (c *Client) attempt(
	ctx context.Context,
	token string,
	requestID string,
	messages []Message,
	opts Options,
) (content string, retry bool, err error) {
	payload, err := json.Marshal(map[string]any{
		"messages": messages,
		"options":  opts,
	})
	if err != nil {
		return "", false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-Id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		// Network errors and per-attempt timeouts are retryable.
		return "", true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var completion completionResponse
		if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
			return "", true, err
		}
		if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
			return "", false, ErrEmptyCompletion
		}
		return completion.Choices[0].Message.Content, false, nil
	}

	apiErr := decodeError(resp.Body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return "", false, errSessionRejected

	case http.StatusTooManyRequests:
		if apiErr.Code == "DAILY_LIMIT_REACHED" {
			return "", false, ErrDailyLimitReached
		}
		wait := c.policy.RateLimitDelay
		if apiErr.RetryAfter > 0 {
			wait = time.Duration(apiErr.RetryAfter) * time.Second
		}
		return "", true, &rateLimitedError{wait: wait}

	case http.StatusBadRequest:
		if apiErr.Code == "CONTENT_BLOCKED" {
			return "", false, fmt.Errorf("%w: %s", ErrContentBlocked, apiErr.Reason)
		}
		return "", false, &APIError{Status: resp.StatusCode, Code: apiErr.Code, Message: apiErr.Error}

	default:
		if resp.StatusCode >= 500 {
			return "", true, fmt.Errorf("chatclient: gateway status %d", resp.StatusCode)
		}
		return "", false, &APIError{Status: resp.StatusCode, Code: apiErr.Code, Message: apiErr.Error}
	}
}

func decodeError(r io.Reader) errorResponse {
	var body errorResponse
	// A non-JSON error body leaves the zero value, which is handled fine.
	json.NewDecoder(io.LimitReader(r, 4096)).Decode(&body)
	return body
}
