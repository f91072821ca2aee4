package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"feedbackbot/internal/feedback"
	"feedbackbot/internal/forms"
	"feedbackbot/internal/locales"
	"feedbackbot/internal/logger"
	telegoapi "feedbackbot/pkg/telegoapi"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// HandleText processes a plain text message as input for the user's form.
func (h *MessageHandler) HandleText(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	return h.advanceForm(ctx, bot, message, message.Text)
}

// advanceForm feeds input to the step the user's form is at. An empty input
// skips the step where that is allowed.
func (h *MessageHandler) advanceForm(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, input string) error {
	userID := message.From.ID
	chatID := message.Chat.ID
	localizer := h.getLocalizer(message.From)

	switch h.forms.GetUserState(userID) {
	case forms.StateAwaitingName:
		form, err := h.forms.SetName(userID, input)
		if errors.Is(err, feedback.ErrNameRequired) {
			return h.sendSuccess(ctx, bot, chatID, locales.GetMessage(localizer, "MsgNameRequired", nil, nil))
		}
		if err != nil {
			return h.formError(ctx, bot, chatID, localizer, err)
		}
		h.logAction(message.From, chatID, ActionFormName, "name", form.Name)
		return h.sendWithKeyboard(ctx, bot, chatID, locales.GetMessage(localizer, "MsgFormAskRating", nil, nil), ratingKeyboard())

	case forms.StateAwaitingRating:
		form, err := h.forms.SetRating(userID, input)
		if errors.Is(err, feedback.ErrValidation) {
			return h.sendWithKeyboard(ctx, bot, chatID, locales.GetMessage(localizer, "MsgRatingRequired", nil, nil), ratingKeyboard())
		}
		if err != nil {
			return h.formError(ctx, bot, chatID, localizer, err)
		}
		h.logAction(message.From, chatID, ActionFormRating, "rating", form.Rating)
		return h.sendSuccess(ctx, bot, chatID, ratingSelectedText(localizer, form.Rating))

	case forms.StateAwaitingComment:
		form, err := h.forms.Finish(userID)
		if err != nil {
			return h.formError(ctx, bot, chatID, localizer, err)
		}
		return h.submit(ctx, bot, chatID, localizer, form.Submission(input))

	default:
		return h.sendSuccess(ctx, bot, chatID, locales.GetMessage(localizer, "MsgFormNotActive", nil, nil))
	}
}

// HandleCallbackQuery processes the star buttons of the rating keyboard.
// Every query is answered exactly once to stop the loading indicator.
func (h *MessageHandler) HandleCallbackQuery(ctx context.Context, bot telegoapi.BotAPI, query telego.CallbackQuery) error {
	localizer := h.getLocalizer(&query.From)
	logPrefix := fmt.Sprintf("[Callback User:%d QueryID:%s]", query.From.ID, query.ID)

	if !strings.HasPrefix(query.Data, ratingCallbackPrefix) {
		logger.GetLogger().Infof("%s Callback query not handled. Data: %q", logPrefix, query.Data)
		h.answerCallback(ctx, bot, query.ID, locales.GetMessage(localizer, "MsgCallbackNotHandled", nil, nil), true)
		return nil
	}

	form, err := h.forms.SetRating(query.From.ID, strings.TrimPrefix(query.Data, ratingCallbackPrefix))
	switch {
	case errors.Is(err, forms.ErrNoForm), errors.Is(err, forms.ErrWrongStep):
		logger.GetLogger().Infof("%s Stale rating button: %v", logPrefix, err)
		h.answerCallback(ctx, bot, query.ID, locales.GetMessage(localizer, "MsgCallbackNotHandled", nil, nil), true)
		return nil
	case err != nil:
		h.answerCallback(ctx, bot, query.ID, locales.GetMessage(localizer, "MsgRatingRequired", nil, nil), true)
		return nil
	}

	h.answerCallback(ctx, bot, query.ID, locales.GetMessage(localizer, "MsgFormRatingSelected", map[string]interface{}{
		"Stars": starsOf(form.Rating),
	}, nil), false)
	h.removeKeyboard(ctx, bot, query)

	h.logAction(&query.From, form.ChatID, ActionFormRating, "rating", form.Rating)
	return h.sendSuccess(ctx, bot, form.ChatID, locales.GetMessage(localizer, "MsgFormAskComment", nil, nil))
}

// submit creates a record from sub and tells the user the outcome.
// Validation failures are reported to the user and are not errors.
func (h *MessageHandler) submit(ctx context.Context, bot telegoapi.BotAPI, chatID int64, localizer *i18n.Localizer, sub feedback.Submission) error {
	rec, err := h.repo.Create(ctx, sub, h.now())
	if err != nil {
		if key := validationMessageKey(err); key != "" {
			return h.sendSuccess(ctx, bot, chatID, locales.GetMessage(localizer, key, nil, nil))
		}
		return h.sendError(ctx, bot, chatID, localizer, fmt.Errorf("failed to create feedback: %w", err))
	}

	logger.GetLogger().Infow("Feedback saved", "id", rec.ID, "rating", rec.Rating, "chat_id", chatID, "action", ActionSendFeedback)
	return h.sendSuccess(ctx, bot, chatID, locales.GetMessage(localizer, "MsgFeedbackThanks", map[string]interface{}{
		"Name":  rec.Name,
		"Stars": feedback.Stars(int(rec.Rating)),
	}, nil))
}

// formError handles a form that changed under a concurrent update.
func (h *MessageHandler) formError(ctx context.Context, bot telegoapi.BotAPI, chatID int64, localizer *i18n.Localizer, err error) error {
	if errors.Is(err, forms.ErrNoForm) {
		return h.sendSuccess(ctx, bot, chatID, locales.GetMessage(localizer, "MsgFormNotActive", nil, nil))
	}
	return h.sendError(ctx, bot, chatID, localizer, fmt.Errorf("feedback form: %w", err))
}

func (h *MessageHandler) answerCallback(ctx context.Context, bot telegoapi.BotAPI, queryID, text string, alert bool) {
	err := bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		logger.GetLogger().Errorf("Error answering callback query %s: %v", queryID, err)
	}
}

// removeKeyboard drops the rating buttons from the message they were sent with.
func (h *MessageHandler) removeKeyboard(ctx context.Context, bot telegoapi.BotAPI, query telego.CallbackQuery) {
	if query.Message == nil {
		return
	}
	_, err := bot.EditMessageReplyMarkup(ctx, &telego.EditMessageReplyMarkupParams{
		ChatID:    tu.ID(query.Message.GetChat().ID),
		MessageID: query.Message.GetMessageID(),
	})
	if err != nil {
		logger.GetLogger().Warnf("Failed to remove rating keyboard for query %s: %v", query.ID, err)
	}
}

func askNameText(localizer *i18n.Localizer, defaultName string) string {
	if defaultName == "" {
		return locales.GetMessage(localizer, "MsgFormAskNameNoDefault", nil, nil)
	}
	return locales.GetMessage(localizer, "MsgFormAskName", map[string]interface{}{"Default": defaultName}, nil)
}

func ratingSelectedText(localizer *i18n.Localizer, rating string) string {
	return locales.GetMessage(localizer, "MsgFormRatingSelected", map[string]interface{}{"Stars": starsOf(rating)}, nil) +
		"\n" + locales.GetMessage(localizer, "MsgFormAskComment", nil, nil)
}

// starsOf renders a validated rating string as stars.
func starsOf(rating string) string {
	r, err := feedback.ParseRating(rating)
	if err != nil {
		return rating
	}
	return feedback.Stars(r)
}
