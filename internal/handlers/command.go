package handlers

import (
	"context"
	"fmt"
	"strings"

	"feedbackbot/internal/dashboard"
	"feedbackbot/internal/feedback"
	"feedbackbot/internal/locales"
	"feedbackbot/internal/logger"
	telegoapi "feedbackbot/pkg/telegoapi"

	"github.com/mymmrac/telego"
)

// HandleStart handles the /start command.
// It sets up the bot commands and sends a welcome message.
func (h *MessageHandler) HandleStart(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	localizer := h.getLocalizer(message.From)
	if err := h.SetupCommands(ctx, bot); err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, localizer, fmt.Errorf("failed to set up commands: %w", err))
	}

	h.logAction(message.From, message.Chat.ID, ActionCommandStart)
	return h.sendSuccess(ctx, bot, message.Chat.ID, locales.GetMessage(localizer, "MsgStart", nil, nil))
}

// HandleHelp handles the /help command.
// Dashboard commands are listed only for users the checker accepts.
func (h *MessageHandler) HandleHelp(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	userID := message.From.ID
	localizer := h.getLocalizer(message.From)

	isAdmin, err := h.checker.IsAdmin(ctx, userID)
	if err != nil {
		logger.GetLogger().Warnf("[Cmd:help User:%d] Admin check failed, showing public commands: %v", userID, err)
		isAdmin = false
	}

	var helpText strings.Builder
	helpText.WriteString(locales.GetMessage(localizer, "MsgHelpHeader", nil, nil))
	for _, cmd := range h.commands {
		if cmd.AdminOnly && !isAdmin {
			continue
		}
		fmt.Fprintf(&helpText, "\n/%s - %s", cmd.Command, locales.GetMessage(localizer, cmd.Description, nil, nil))
	}

	h.logAction(message.From, message.Chat.ID, ActionCommandHelp, "is_admin", isAdmin)
	return h.sendSuccess(ctx, bot, message.Chat.ID, helpText.String())
}

// HandleFeedback handles the /feedback command by starting a new form.
// A form already in progress is discarded.
func (h *MessageHandler) HandleFeedback(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	localizer := h.getLocalizer(message.From)
	form := h.forms.Start(message.From.ID, message.Chat.ID, displayName(message.From))

	h.logAction(message.From, message.Chat.ID, ActionCommandFeedback)
	return h.sendSuccess(ctx, bot, message.Chat.ID, askNameText(localizer, form.DefaultName))
}

// HandleRate handles the one-shot /rate <1-5> [comment] command.
// The sender's display name is used as the feedback name.
func (h *MessageHandler) HandleRate(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	localizer := h.getLocalizer(message.From)
	args := commandArgs(message.Text)
	if args == "" {
		return h.sendSuccess(ctx, bot, message.Chat.ID, locales.GetMessage(localizer, "MsgRateUsage", nil, nil))
	}

	rating, comment := splitFirst(args)
	sub := feedback.Submission{Name: displayName(message.From), Rating: rating, Comment: comment}
	h.logAction(message.From, message.Chat.ID, ActionCommandRate, "rating", rating)
	return h.submit(ctx, bot, message.Chat.ID, localizer, sub)
}

// HandleList handles the /list command, showing the latest feedback first.
func (h *MessageHandler) HandleList(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	localizer := h.getLocalizer(message.From)
	list := dashboard.FeedbackList(h.repo.Records(), h.listLimit, h.location)

	h.logAction(message.From, message.Chat.ID, ActionCommandList)
	if list == "" {
		return h.sendSuccess(ctx, bot, message.Chat.ID, locales.GetMessage(localizer, "MsgListEmpty", nil, nil))
	}
	return h.sendSuccess(ctx, bot, message.Chat.ID, locales.GetMessage(localizer, "MsgListHeader", nil, nil)+"\n\n"+list)
}

// HandleStats handles the /stats command. The dashboard is only shown to a
// user whose session flag is set in this chat.
func (h *MessageHandler) HandleStats(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	localizer := h.getLocalizer(message.From)
	chatID := message.Chat.ID

	if !h.gate.IsAuthenticated(ctx, chatID, message.From.ID) {
		logger.GetLogger().Infof("[Cmd:stats User:%d] Dashboard locked for chat %d", message.From.ID, chatID)
		return h.sendSuccess(ctx, bot, chatID, locales.GetMessage(localizer, "MsgStatsLocked", nil, nil))
	}

	records := h.repo.Records()
	stats := feedback.ComputeStats(records)
	dist := feedback.RatingDistribution(records)

	var b strings.Builder
	b.WriteString(locales.GetMessage(localizer, "MsgStatsHeader", nil, nil))
	b.WriteString("\n\n")
	b.WriteString(locales.GetMessage(localizer, "MsgStatsSummary", dashboard.Summary(stats), nil))
	b.WriteString("\n\n")
	b.WriteString(locales.GetMessage(localizer, "MsgChartBarTitle", nil, nil))
	b.WriteString("\n")
	b.WriteString(dashboard.BarChart(dist, dashboard.DefaultBarWidth))
	b.WriteString("\n\n")
	b.WriteString(locales.GetMessage(localizer, "MsgChartDonutTitle", nil, nil))
	b.WriteString("\n")
	b.WriteString(dashboard.DonutChart(dist))

	h.logAction(message.From, chatID, ActionCommandStats, "total", stats.Total)
	return h.sendSuccess(ctx, bot, chatID, b.String())
}

// HandleLogin handles the /login command. It sets the session flag of the
// user in this chat when the checker accepts them.
func (h *MessageHandler) HandleLogin(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	userID := message.From.ID
	chatID := message.Chat.ID
	localizer := h.getLocalizer(message.From)

	isAdmin, err := h.checker.IsAdmin(ctx, userID)
	if err != nil {
		return h.sendError(ctx, bot, chatID, localizer, fmt.Errorf("admin check failed for user %d: %w", userID, err))
	}
	if !isAdmin {
		logger.GetLogger().Infof("[Cmd:login User:%d] Non-admin user attempted to unlock the dashboard.", userID)
		return h.sendSuccess(ctx, bot, chatID, locales.GetMessage(localizer, "MsgLoginDenied", nil, nil))
	}

	h.gate.SetAuthenticated(ctx, chatID, userID, true)
	h.logAction(message.From, chatID, ActionCommandLogin)
	return h.sendSuccess(ctx, bot, chatID, locales.GetMessage(localizer, "MsgLoginSuccess", nil, nil))
}

// HandleLogout handles the /logout command by clearing the session flag.
func (h *MessageHandler) HandleLogout(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	localizer := h.getLocalizer(message.From)
	h.gate.SetAuthenticated(ctx, message.Chat.ID, message.From.ID, false)

	h.logAction(message.From, message.Chat.ID, ActionCommandLogout)
	return h.sendSuccess(ctx, bot, message.Chat.ID, locales.GetMessage(localizer, "MsgLogoutSuccess", nil, nil))
}

// HandleSkip handles the /skip command. It accepts the default name at the
// name step and finishes the form without a comment at the comment step.
// The rating cannot be skipped.
func (h *MessageHandler) HandleSkip(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	h.logAction(message.From, message.Chat.ID, ActionCommandSkip)
	return h.advanceForm(ctx, bot, message, "")
}

// HandleCancel handles the /cancel command by dropping the user's form.
func (h *MessageHandler) HandleCancel(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	localizer := h.getLocalizer(message.From)
	key := "MsgFormNotActive"
	if h.forms.Cancel(message.From.ID) {
		key = "MsgFormCancelled"
	}

	h.logAction(message.From, message.Chat.ID, ActionCommandCancel)
	return h.sendSuccess(ctx, bot, message.Chat.ID, locales.GetMessage(localizer, key, nil, nil))
}

// SetupCommands registers the bot's commands with Telegram.
// Descriptions are localized in the default language.
func (h *MessageHandler) SetupCommands(ctx context.Context, bot telegoapi.BotAPI) error {
	if len(h.commands) == 0 {
		logger.GetLogger().Info("No commands defined in handler, skipping SetMyCommands.")
		return nil
	}

	localizer := locales.NewLocalizer()
	commands := make([]telego.BotCommand, 0, len(h.commands))
	for _, cmd := range h.commands {
		commands = append(commands, telego.BotCommand{
			Command:     cmd.Command,
			Description: locales.GetMessage(localizer, cmd.Description, nil, nil),
		})
	}

	if err := bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: commands}); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	logger.GetLogger().Infof("Successfully set %d bot commands.", len(commands))
	return nil
}
