// Package session keeps the per-user flag that unlocks the dashboard.
package session

import (
	"context"
	"fmt"

	"feedbackbot/internal/database"
	"feedbackbot/internal/logger"
)

// Key is the name of the authentication flag. It is scoped per chat and user,
// so in a group one member signing in does not unlock the dashboard for the
// others.
const Key = "session.isAuthenticated"

// Gate reads and writes the authentication flag. Values are the strings
// "true" and "false"; storage failures read as "not authenticated" and
// writes that fail are dropped.
type Gate struct {
	store database.Store
}

// NewGate creates a Gate backed by an ephemeral store.
func NewGate(store database.Store) *Gate {
	return &Gate{store: store}
}

func sessionKey(chatID, userID int64) string {
	return fmt.Sprintf("%s:%d:%d", Key, chatID, userID)
}

// IsAuthenticated reports whether userID has unlocked the dashboard in chatID.
func (g *Gate) IsAuthenticated(ctx context.Context, chatID, userID int64) bool {
	v, found, err := g.store.Get(ctx, sessionKey(chatID, userID))
	if err != nil {
		logger.GetLogger().Warnw("Session flag unreadable, treating as signed out", "chat_id", chatID, "user_id", userID, "error", err)
		return false
	}
	return found && v == "true"
}

// SetAuthenticated stores the flag for userID in chatID.
func (g *Gate) SetAuthenticated(ctx context.Context, chatID, userID int64, authenticated bool) {
	v := "false"
	if authenticated {
		v = "true"
	}
	if err := g.store.Set(ctx, sessionKey(chatID, userID), v); err != nil {
		logger.GetLogger().Warnw("Failed to store session flag", "chat_id", chatID, "user_id", userID, "value", v, "error", err)
	}
}
