package handlers

import (
	"context"
	"time"

	"feedbackbot/internal/feedback"
)

// FeedbackStore is the part of the feedback repository the handlers use.
type FeedbackStore interface {
	Create(ctx context.Context, sub feedback.Submission, now time.Time) (feedback.Record, error)
	Records() []feedback.Record
}

// SessionGate reads and writes the dashboard flag of a user in a chat.
type SessionGate interface {
	IsAuthenticated(ctx context.Context, chatID, userID int64) bool
	SetAuthenticated(ctx context.Context, chatID, userID int64, authenticated bool)
}
