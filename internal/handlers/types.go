package handlers

import (
	"context"
	"time"

	"feedbackbot/internal/auth"
	"feedbackbot/internal/forms"
	"feedbackbot/internal/logger"
	telegoapi "feedbackbot/pkg/telegoapi"

	"github.com/mymmrac/telego"
)

// DefaultListLimit is the number of records /list shows.
const DefaultListLimit = 10

// CommandHandler handles one bot command.
type CommandHandler func(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error

// Command represents a bot command, mapping the command string to its description and handler function.
type Command struct {
	Command     string         // The command string (e.g., "start").
	Description string         // Localization key of the description shown in /help.
	Handler     CommandHandler // The function to execute when the command is received.
	AdminOnly   bool           // Hidden from /help for users the checker rejects.
}

// MessageHandler handles incoming Telegram messages and callbacks.
// It drives the feedback form, the one-shot /rate command, the feedback list
// and the dashboard, which is gated by a per-user session flag.
type MessageHandler struct {
	repo    FeedbackStore
	forms   *forms.Manager
	gate    SessionGate
	checker auth.Checker

	commands []Command

	listLimit int
	location  *time.Location
	now       func() time.Time
}

// NewMessageHandler creates and initializes a new MessageHandler instance.
// It sets up dependencies and defines the available bot commands.
func NewMessageHandler(repo FeedbackStore, formManager *forms.Manager, gate SessionGate, checker auth.Checker) *MessageHandler {
	if repo == nil || formManager == nil || gate == nil || checker == nil {
		logger.GetLogger().Fatal("MessageHandler: a required dependency is nil")
	}
	h := &MessageHandler{
		repo:      repo,
		forms:     formManager,
		gate:      gate,
		checker:   checker,
		listLimit: DefaultListLimit,
		location:  time.Local,
		now:       time.Now,
	}
	h.commands = []Command{
		{Command: "start", Description: "CmdStartDesc", Handler: h.HandleStart},
		{Command: "help", Description: "CmdHelpDesc", Handler: h.HandleHelp},
		{Command: "feedback", Description: "CmdFeedbackDesc", Handler: h.HandleFeedback},
		{Command: "rate", Description: "CmdRateDesc", Handler: h.HandleRate},
		{Command: "list", Description: "CmdListDesc", Handler: h.HandleList},
		{Command: "skip", Description: "CmdSkipDesc", Handler: h.HandleSkip},
		{Command: "cancel", Description: "CmdCancelDesc", Handler: h.HandleCancel},
		{Command: "stats", Description: "CmdStatsDesc", Handler: h.HandleStats, AdminOnly: true},
		{Command: "login", Description: "CmdLoginDesc", Handler: h.HandleLogin, AdminOnly: true},
		{Command: "logout", Description: "CmdLogoutDesc", Handler: h.HandleLogout, AdminOnly: true},
	}
	return h
}

// GetCommandHandler retrieves the handler function associated with a specific command string (e.g., "start").
// It returns nil if the command is not found.
func (h *MessageHandler) GetCommandHandler(command string) CommandHandler {
	for _, cmd := range h.commands {
		if cmd.Command == command {
			return cmd.Handler
		}
	}
	return nil
}

// Commands returns the registered commands.
func (h *MessageHandler) Commands() []Command {
	return h.commands
}
