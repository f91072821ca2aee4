package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"feedbackbot/internal/handlers"
	"feedbackbot/internal/locales"
	"feedbackbot/internal/logger"
	telegoapi "feedbackbot/pkg/telegoapi"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/ratelimit"
)

const (
	// DefaultRateLimit is the number of updates processed per second when none is configured.
	DefaultRateLimit = 20
	// processingTimeout bounds the handling of a single update.
	processingTimeout = 30 * time.Second
	// sendRetries is how many times a rate-limited message is retried.
	sendRetries = 3
)

// UpdateHandler routes commands, form input and button presses.
type UpdateHandler interface {
	GetCommandHandler(command string) handlers.CommandHandler
	HandleText(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error
	HandleCallbackQuery(ctx context.Context, bot telegoapi.BotAPI, query telego.CallbackQuery) error
}

// Bot represents the main application logic for the Telegram bot.
// It reads updates from telego, rate limits them and hands each one to the
// message handler in its own goroutine.
type Bot struct {
	bot         telegoapi.BotAPI
	updatesChan <-chan telego.Update
	debug       bool
	handler     UpdateHandler
	ratelimiter ratelimit.Limiter
}

// BotDeps holds the dependencies required by the Bot.
type BotDeps struct {
	Bot         telegoapi.BotAPI
	UpdatesChan <-chan telego.Update
	Debug       bool
	Handler     UpdateHandler
	RateLimit   int // Updates per second; DefaultRateLimit when zero.
}

// New creates a new Bot instance from its dependencies.
// Returns the new Bot instance or an error if dependencies are missing.
func New(deps BotDeps) (*Bot, error) {
	if deps.Bot == nil {
		return nil, fmt.Errorf("telego bot (BotAPI) instance cannot be nil")
	}
	if deps.Handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}
	if deps.UpdatesChan == nil {
		return nil, fmt.Errorf("updates channel cannot be nil")
	}
	rate := deps.RateLimit
	if rate <= 0 {
		rate = DefaultRateLimit
	}

	return &Bot{
		bot:         newRetryBot(deps.Bot, sendRetries),
		updatesChan: deps.UpdatesChan,
		debug:       deps.Debug,
		handler:     deps.Handler,
		ratelimiter: ratelimit.New(rate),
	}, nil
}

// commandName extracts the command from a message text, dropping the
// leading slash and an optional @botname suffix.
func commandName(text string) string {
	if len(text) < 2 || !strings.HasPrefix(text, "/") {
		return "unknown"
	}
	command := strings.Fields(text)[0][1:]
	if i := strings.IndexByte(command, '@'); i >= 0 {
		command = command[:i]
	}
	return strings.ToLower(command)
}

// handleCommandUpdate processes a message identified as a command.
func (b *Bot) handleCommandUpdate(ctx context.Context, message telego.Message) {
	command := commandName(message.Text)
	logPrefix := fmt.Sprintf("[Cmd:%s User:%d]", command, message.From.ID)
	log := logger.GetLogger()

	handlerFunc := b.handler.GetCommandHandler(command)
	if handlerFunc == nil {
		log.Infof("%s No handler found", logPrefix)
		localizer := locales.NewLocalizer(message.From.LanguageCode)
		unknownCmdMsg := locales.GetMessage(localizer, "MsgErrorUnknownCommand", nil, nil)
		if _, err := b.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), unknownCmdMsg)); err != nil {
			log.Errorf("%s Failed to send unknown command message: %v", logPrefix, err)
		}
		return
	}

	if b.debug {
		log.Debugf("%s Executing handler", logPrefix)
	}
	if err := handlerFunc(ctx, b.bot, message); err != nil {
		log.Errorf("%s Handler error: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s handler error: %w", logPrefix, err))
	} else if b.debug {
		log.Debugf("%s Handler finished successfully", logPrefix)
	}
}

// handleTextUpdate processes an incoming text message.
func (b *Bot) handleTextUpdate(ctx context.Context, message telego.Message) {
	logPrefix := fmt.Sprintf("[Text User:%d Msg:%d]", message.From.ID, message.MessageID)
	if b.debug {
		logger.GetLogger().Debugf("%s Processing text message", logPrefix)
	}
	if err := b.handler.HandleText(ctx, b.bot, message); err != nil {
		logger.GetLogger().Errorf("%s Text handler error: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s text handler error: %w", logPrefix, err))
	}
}

// handleCallbackQuery processes an incoming callback query.
func (b *Bot) handleCallbackQuery(ctx context.Context, query telego.CallbackQuery) {
	logPrefix := fmt.Sprintf("[Callback User:%d QueryID:%s]", query.From.ID, query.ID)
	if b.debug {
		logger.GetLogger().Debugf("%s Received callback query with data: %q", logPrefix, query.Data)
	}
	if err := b.handler.HandleCallbackQuery(ctx, b.bot, query); err != nil {
		logger.GetLogger().Errorf("%s Callback handler error: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s callback handler error: %w", logPrefix, err))
	}
}

// processUpdate routes incoming updates to the appropriate handlers.
func (b *Bot) processUpdate(ctx context.Context, update telego.Update) {
	b.ratelimiter.Take()

	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().Errorf("PANIC recovered in processUpdate: %v\n%s", r, debug.Stack())
			sentry.CurrentHub().Recover(r)
			sentry.Flush(time.Second * 2)
		}
	}()

	processingCtx, cancel := context.WithTimeout(ctx, processingTimeout)
	defer cancel()

	switch {
	case update.Message != nil:
		message := *update.Message
		if message.From == nil {
			logger.GetLogger().Debugf("Ignoring message %d from chat %d without sender", message.MessageID, message.Chat.ID)
			return
		}
		switch {
		case strings.HasPrefix(message.Text, "/"):
			b.handleCommandUpdate(processingCtx, message)
		case message.Text != "":
			b.handleTextUpdate(processingCtx, message)
		default:
			if b.debug {
				logger.GetLogger().Debugf("Ignoring unhandled message type (ID: %d)", message.MessageID)
			}
		}

	case update.CallbackQuery != nil:
		b.handleCallbackQuery(processingCtx, *update.CallbackQuery)

	default:
		if b.debug {
			logger.GetLogger().Debugf("Ignoring unhandled update type: %d", update.UpdateID)
		}
	}
}

// Start runs the update loop until ctx is done or the updates channel closes.
// It waits for in-flight updates before returning.
func (b *Bot) Start(ctx context.Context) {
	log := logger.GetLogger()
	log.Info("Listening for updates...")

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			log.Info("Context done, stopping update processing...")
			wg.Wait()
			log.Info("All update processing finished.")
			return
		case update, ok := <-b.updatesChan:
			if !ok {
				log.Info("Updates channel closed.")
				wg.Wait()
				return
			}
			wg.Add(1)
			go func(up telego.Update) {
				defer wg.Done()
				b.processUpdate(ctx, up)
			}(update)
		}
	}
}
