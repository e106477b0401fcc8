package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vibetutor/gateway-server-go/internal/audit"
	"github.com/vibetutor/gateway-server-go/internal/config"
	apperrors "github.com/vibetutor/gateway-server-go/internal/errors"
	"github.com/vibetutor/gateway-server-go/internal/model"
	"github.com/vibetutor/gateway-server-go/internal/repository"
	"github.com/vibetutor/gateway-server-go/internal/util"
)

// redirectMessage replaces an unsafe model reply. Pre-approved wording; do
// not reword without a product review.
const redirectMessage = "I cannot provide that information. Let's focus on your homework and learning instead!"

// CompletionClient is the upstream provider seam, satisfied by
// UpstreamClient and by test doubles.
type CompletionClient interface {
	ChatCompletion(ctx context.Context, req model.UpstreamRequest) (*model.UpstreamResponse, error)
}

// ChatService is the gateway core: session validation, quota accounting,
// moderation and forwarding, independent of any HTTP host. Handlers are
// thin adapters over HandleChat.
type ChatService struct {
	sessions     repository.SessionStore
	limiter      RateLimiter
	filter       *ContentFilter
	upstream     CompletionClient
	usageRepo    repository.UsageRepository
	defaultModel string
}

func NewChatService(
	sessions repository.SessionStore,
	limiter RateLimiter,
	filter *ContentFilter,
	upstream CompletionClient,
	usageRepo repository.UsageRepository,
	defaultModel string,
) *ChatService {
	return &ChatService{
		sessions:     sessions,
		limiter:      limiter,
		filter:       filter,
		upstream:     upstream,
		usageRepo:    usageRepo,
		defaultModel: defaultModel,
	}
}

// HandleChat validates, moderates and forwards one chat request. The checks
// run in a fixed order: session, daily cap, rate limit, request moderation,
// upstream call, response moderation. A request blocked at any step never
// reaches the upstream provider.
func (s *ChatService) HandleChat(
	ctx context.Context,
	token string,
	clientIP string,
	messages []model.ChatMessage,
	options model.ChatOptions,
) (*model.UpstreamResponse, error) {
	tokenHash := util.HashToken(token)

	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		log.Error().Err(err).Msg("session lookup failed")
		return nil, apperrors.Internal("Session lookup failed").WithCause(err)
	}
	if session == nil {
		return nil, apperrors.Unauthorized("Invalid or expired session")
	}

	if _, err := s.sessions.Touch(ctx, token); err != nil {
		if errors.Is(err, repository.ErrDailyLimitReached) {
			audit.Log(ctx, audit.Event{
				Type:      audit.EventDailyLimitReached,
				TokenHash: tokenHash,
				IP:        clientIP,
			})
			s.recordUsage(tokenHash, clientIP, repository.UsageEventDailyLimit)
			return nil, apperrors.DailyLimitReached()
		}
		log.Error().Err(err).Msg("session touch failed")
		return nil, apperrors.Internal("Session update failed").WithCause(err)
	}

	allowed, retryAfter := s.limiter.Check(ctx, clientIP)
	if !allowed {
		audit.Log(ctx, audit.Event{
			Type:      audit.EventRateLimitExceed,
			TokenHash: tokenHash,
			IP:        clientIP,
		})
		s.recordUsage(tokenHash, clientIP, repository.UsageEventRateLimited)
		return nil, apperrors.RateLimitExceeded(retryAfterSeconds(retryAfter))
	}

	if last := lastUserMessage(messages); last != nil {
		if verdict := s.filter.Classify(last.Content); !verdict.Safe {
			// The flagged text is deliberately absent from the log.
			audit.Log(ctx, audit.Event{
				Type:      audit.EventContentBlocked,
				TokenHash: tokenHash,
				IP:        clientIP,
				Details:   map[string]interface{}{"reason": verdict.Reason},
			})
			s.recordUsage(tokenHash, clientIP, repository.UsageEventContentBlocked)
			return nil, apperrors.ContentBlocked(verdict.Reason)
		}
	}

	upstreamReq := s.clampOptions(messages, options)

	completion, err := s.upstream.ChatCompletion(ctx, upstreamReq)
	if err != nil {
		audit.Log(ctx, audit.Event{
			Type:      audit.EventUpstreamError,
			TokenHash: tokenHash,
			IP:        clientIP,
		})
		s.recordUsage(tokenHash, clientIP, repository.UsageEventUpstreamError)
		return nil, apperrors.UpstreamUnavailable(err)
	}

	if len(completion.Choices) > 0 {
		if verdict := s.filter.Classify(completion.Choices[0].Message.Content); !verdict.Safe {
			log.Warn().Str("reason", verdict.Reason).Msg("filtered inappropriate model reply")
			completion.Choices[0].Message.Content = redirectMessage
		}
	}

	s.recordUsage(tokenHash, clientIP, repository.UsageEventChatOK)
	return completion, nil
}

// clampOptions applies defaults and safety ceilings before anything is
// forwarded upstream, regardless of what the client sent.
func (s *ChatService) clampOptions(messages []model.ChatMessage, options model.ChatOptions) model.UpstreamRequest {
	upstreamModel := options.Model
	if upstreamModel == "" {
		upstreamModel = s.defaultModel
	}

	temperature := options.Temperature
	if temperature == 0 {
		temperature = config.DefaultTemperature
	}
	temperature = math.Min(temperature, config.TemperatureCeiling)

	topP := options.TopP
	if topP == 0 {
		topP = config.DefaultTopP
	}

	maxTokens := options.MaxTokens
	if maxTokens == 0 {
		maxTokens = config.DefaultMaxTokens
	}
	if maxTokens > config.MaxTokensCeiling {
		maxTokens = config.MaxTokensCeiling
	}

	return model.UpstreamRequest{
		Model:       upstreamModel,
		Messages:    messages,
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}
}

func (s *ChatService) recordUsage(tokenHash, clientIP, event string) {
	if s.usageRepo == nil {
		return
	}

	// Best effort with its own deadline: a slow database must not delay
	// or fail the chat path.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.usageRepo.Create(ctx, tokenHash, clientIP, event); err != nil {
			log.Warn().Err(err).Str("event", event).Msg("failed to record usage event")
		}
	}()
}

// lastUserMessage returns the final message when it is user-authored;
// system and assistant turns are not re-filtered on input.
func lastUserMessage(messages []model.ChatMessage) *model.ChatMessage {
	if len(messages) == 0 {
		return nil
	}
	last := &messages[len(messages)-1]
	if last.Role != model.RoleUser {
		return nil
	}
	return last
}

func retryAfterSeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
