package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"feedbackbot/internal/feedback"
	"feedbackbot/internal/locales"
	"feedbackbot/internal/logger"
	telegoapi "feedbackbot/pkg/telegoapi"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// ratingCallbackPrefix prefixes the callback data of the rating keyboard.
const ratingCallbackPrefix = "rate:"

// sendSuccess sends a message to the user. Send failures are logged only.
func (h *MessageHandler) sendSuccess(ctx context.Context, bot telegoapi.BotAPI, chatID int64, text string) error {
	_, err := bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	if err != nil {
		logger.GetLogger().Errorf("Error sending message to chat %d: %v", chatID, err)
	}
	return nil
}

// sendWithKeyboard sends a message with an inline keyboard attached.
func (h *MessageHandler) sendWithKeyboard(ctx context.Context, bot telegoapi.BotAPI, chatID int64, text string, keyboard *telego.InlineKeyboardMarkup) error {
	_, err := bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text).WithReplyMarkup(keyboard))
	if err != nil {
		logger.GetLogger().Errorf("Error sending keyboard message to chat %d: %v", chatID, err)
	}
	return nil
}

// sendError sends a generic error message to the user.
// Logs the original error and returns it so the update loop can report it.
func (h *MessageHandler) sendError(ctx context.Context, bot telegoapi.BotAPI, chatID int64, localizer *i18n.Localizer, originalErr error) error {
	logger.GetLogger().Errorf("Error for user in chat %d: %v", chatID, originalErr)

	errMsg := locales.GetMessage(localizer, "MsgErrorGeneral", nil, nil)
	if _, sendErr := bot.SendMessage(ctx, tu.Message(tu.ID(chatID), errMsg)); sendErr != nil {
		logger.GetLogger().Errorf("Error sending generic error message to chat %d: %v", chatID, sendErr)
	}
	return originalErr
}

// getLocalizer picks the localizer for the user's Telegram language.
// Unsupported or missing languages fall back to the default one.
func (h *MessageHandler) getLocalizer(user *telego.User) *i18n.Localizer {
	if user == nil || user.LanguageCode == "" {
		return locales.NewLocalizer()
	}
	return locales.NewLocalizer(user.LanguageCode)
}

// logAction records a handled user action.
func (h *MessageHandler) logAction(user *telego.User, chatID int64, action string, keysAndValues ...interface{}) {
	var userID int64
	if user != nil {
		userID = user.ID
	}
	fields := append([]interface{}{"user_id", userID, "chat_id", chatID, "action", action}, keysAndValues...)
	logger.GetLogger().Infow("User action", fields...)
}

// validationMessageKey maps a submission rejection to its localized message.
// It returns "" for errors that are not validation failures.
func validationMessageKey(err error) string {
	switch {
	case errors.Is(err, feedback.ErrNameRequired):
		return "MsgNameRequired"
	case errors.Is(err, feedback.ErrInvalidRating):
		return "MsgRatingRequired"
	default:
		return ""
	}
}

// displayName builds the name offered as default in the form.
func displayName(user *telego.User) string {
	if user == nil {
		return ""
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.Username
	}
	return name
}

// commandArgs returns the text after the command token, trimmed.
func commandArgs(text string) string {
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(text[i:])
}

// splitFirst splits s into its first whitespace-separated word and the rest.
func splitFirst(s string) (string, string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

// ratingKeyboard is the inline keyboard with one button per star.
func ratingKeyboard() *telego.InlineKeyboardMarkup {
	row := make([]telego.InlineKeyboardButton, 0, feedback.MaxRating)
	for r := feedback.MinRating; r <= feedback.MaxRating; r++ {
		row = append(row, tu.InlineKeyboardButton(fmt.Sprintf("%d★", r)).
			WithCallbackData(ratingCallbackPrefix+strconv.Itoa(r)))
	}
	return tu.InlineKeyboard(row)
}
