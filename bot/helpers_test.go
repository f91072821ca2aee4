package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestParseRetryAfter(t *testing.T) {
	seconds, ok := parseRetryAfter(`telego: sendMessage: api: 429 "Too Many Requests: retry after 7"`)
	assert.True(t, ok)
	assert.Equal(t, 7, seconds)

	_, ok = parseRetryAfter("telego: sendMessage: api: 400 Bad Request")
	assert.False(t, ok)
	_, ok = parseRetryAfter("Too Many Requests: retry after x")
	assert.False(t, ok)
}

func TestRetryBot_RetriesRateLimitedSends(t *testing.T) {
	api := new(MockBot)
	params := tu.Message(tu.ID(1), "hi")
	api.On("SendMessage", mock.Anything, params).Return(nil, errors.New("api: 429 Too Many Requests: retry after 3")).Twice()
	api.On("SendMessage", mock.Anything, params).Return(&telego.Message{MessageID: 5}, nil).Once()

	var waits []time.Duration
	rb := newRetryBot(api, 3)
	rb.wait = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	msg, err := rb.SendMessage(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 5, msg.MessageID)
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, waits)
	api.AssertExpectations(t)
}

func TestRetryBot_GivesUp(t *testing.T) {
	api := new(MockBot)
	params := tu.Message(tu.ID(1), "hi")
	api.On("SendMessage", mock.Anything, params).Return(nil, errors.New("429 Too Many Requests"))

	rb := newRetryBot(api, 2)
	rb.wait = func(context.Context, time.Duration) error { return nil }

	_, err := rb.SendMessage(context.Background(), params)
	assert.ErrorContains(t, err, "max retries (2) exceeded")
	api.AssertNumberOfCalls(t, "SendMessage", 3)
}

func TestRetryBot_OtherErrorsAreNotRetried(t *testing.T) {
	api := new(MockBot)
	params := tu.Message(tu.ID(1), "hi")
	api.On("SendMessage", mock.Anything, params).Return(nil, errors.New("400 Bad Request: chat not found")).Once()

	_, err := newRetryBot(api, 3).SendMessage(context.Background(), params)
	assert.ErrorContains(t, err, "chat not found")
	api.AssertNumberOfCalls(t, "SendMessage", 1)
}

func TestRetryBot_StopsOnCancelledContext(t *testing.T) {
	api := new(MockBot)
	params := tu.Message(tu.ID(1), "hi")
	api.On("SendMessage", mock.Anything, params).Return(nil, errors.New("429 Too Many Requests")).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newRetryBot(api, 3).SendMessage(ctx, params)
	assert.ErrorIs(t, err, context.Canceled)
}
