// Package auth decides who may open the feedback dashboard. The decision is
// behind the Checker interface so the rest of the bot never depends on how
// "authorized" is determined.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"feedbackbot/internal/logger"

	"github.com/mymmrac/telego"
)

// Checker reports whether a user may see aggregate feedback.
type Checker interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

// ChatMemberGetter is the part of the Telegram API AdminChecker needs.
type ChatMemberGetter interface {
	GetChatMember(ctx context.Context, params *telego.GetChatMemberParams) (telego.ChatMember, error)
}

// AdminChecker handles checking user admin status against a configured chat.
type AdminChecker struct {
	bot          ChatMemberGetter
	targetChatID int64
}

// NewAdminChecker creates a new AdminChecker.
// It requires a non-nil bot instance and a non-zero target chat ID.
func NewAdminChecker(bot ChatMemberGetter, chatID int64) (*AdminChecker, error) {
	if bot == nil {
		return nil, fmt.Errorf("telego bot instance cannot be nil")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("target chat ID cannot be zero")
	}
	return &AdminChecker{bot: bot, targetChatID: chatID}, nil
}

// IsAdmin checks if a user is an administrator or creator of the target chat.
func (ac *AdminChecker) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	member, err := ac.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: telego.ChatID{ID: ac.targetChatID},
		UserID: userID,
	})
	if err != nil {
		// A user not found in the chat is simply not an admin.
		if strings.Contains(strings.ToLower(err.Error()), "user not found") {
			return false, nil
		}
		return false, fmt.Errorf("failed to get chat member info: %w", err)
	}
	if member == nil {
		return false, nil
	}

	status := member.MemberStatus()
	return status == telego.MemberStatusCreator || status == telego.MemberStatusAdministrator, nil
}

// StaticChecker allows a fixed set of user IDs.
type StaticChecker struct {
	allowed map[int64]struct{}
}

// NewStaticChecker creates a checker allowing exactly userIDs.
func NewStaticChecker(userIDs ...int64) *StaticChecker {
	allowed := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		allowed[id] = struct{}{}
	}
	return &StaticChecker{allowed: allowed}
}

// IsAdmin implements Checker.
func (c *StaticChecker) IsAdmin(_ context.Context, userID int64) (bool, error) {
	_, ok := c.allowed[userID]
	return ok, nil
}

// AnyChecker allows a user when any of its checkers does. Checkers are asked
// in order; an error from one is logged and the next one is consulted.
type AnyChecker []Checker

// IsAdmin implements Checker. It returns an error only when no checker
// allowed the user and at least one of them failed.
func (c AnyChecker) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var errs []error
	for _, checker := range c {
		ok, err := checker.IsAdmin(ctx, userID)
		if err != nil {
			logger.GetLogger().Warnw("Admin check failed", "user_id", userID, "error", err)
			errs = append(errs, err)
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}
