package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"feedbackbot/internal/logger"
	telegoapi "feedbackbot/pkg/telegoapi"

	sentry "github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
)

const defaultRetryWait = 2 * time.Second

// retryBot retries SendMessage when Telegram answers 429 Too Many Requests.
// Every other call goes straight to the wrapped API.
type retryBot struct {
	telegoapi.BotAPI
	maxRetries int
	wait       func(ctx context.Context, d time.Duration) error
}

func newRetryBot(api telegoapi.BotAPI, maxRetries int) *retryBot {
	if rb, ok := api.(*retryBot); ok {
		return rb
	}
	return &retryBot{BotAPI: api, maxRetries: maxRetries, wait: sleepCtx}
}

// SendMessage sends a message, waiting out rate limits between attempts.
func (r *retryBot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	logPrefix := fmt.Sprintf("[SendRetry Chat:%d]", params.ChatID.ID)
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		msg, err := r.BotAPI.SendMessage(ctx, params)
		if err == nil {
			if attempt > 0 {
				logger.GetLogger().Infof("%s Successfully sent after %d attempt(s)", logPrefix, attempt+1)
			}
			return msg, nil
		}
		lastErr = err

		if !isRateLimited(err) {
			return nil, err
		}
		if attempt == r.maxRetries {
			break
		}

		waitDuration := defaultRetryWait
		if seconds, ok := parseRetryAfter(err.Error()); ok {
			waitDuration = time.Duration(seconds) * time.Second
		}
		logger.GetLogger().Warnf("%s Rate limit hit (attempt %d/%d), waiting %v", logPrefix, attempt+1, r.maxRetries+1, waitDuration)

		if werr := r.wait(ctx, waitDuration); werr != nil {
			return nil, fmt.Errorf("%s context cancelled during rate limit wait: %w", logPrefix, werr)
		}
	}

	finalErr := fmt.Errorf("%s max retries (%d) exceeded: %w", logPrefix, r.maxRetries, lastErr)
	sentry.CaptureException(finalErr)
	return nil, finalErr
}

func isRateLimited(err error) bool {
	s := err.Error()
	return strings.Contains(s, "Too Many Requests") || strings.Contains(s, "429")
}

// parseRetryAfter extracts the "retry after N" seconds from a Telegram error.
func parseRetryAfter(errorString string) (int, bool) {
	const marker = "retry after "
	i := strings.Index(errorString, marker)
	if i < 0 {
		return 0, false
	}
	rest := errorString[i+len(marker):]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	seconds, err := strconv.Atoi(rest[:end])
	if err != nil || seconds <= 0 {
		return 0, false
	}
	return seconds, true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
