// Package forms tracks the step-by-step feedback form each user is filling in.
package forms

import (
	"errors"
	"strings"
	"sync"

	"feedbackbot/internal/feedback"
)

// State is the step of the form a user is at.
type State string

const (
	StateIdle            State = ""                 // No form in progress
	StateAwaitingName    State = "awaiting_name"    // Waiting for the user's name
	StateAwaitingRating  State = "awaiting_rating"  // Waiting for a star to be picked
	StateAwaitingComment State = "awaiting_comment" // Waiting for an optional comment
)

var (
	// ErrNoForm is returned when the user has no form in progress.
	ErrNoForm = errors.New("no feedback form in progress")
	// ErrWrongStep is returned when input arrives for a step the form is not at.
	ErrWrongStep = errors.New("feedback form is at a different step")
)

// Form is the in-progress input of one user.
type Form struct {
	ChatID      int64
	State       State
	Name        string
	DefaultName string
	Rating      string
}

// Submission converts the collected values into a feedback submission.
func (f Form) Submission(comment string) feedback.Submission {
	return feedback.Submission{Name: f.Name, Rating: f.Rating, Comment: comment}
}

// Manager holds forms keyed by user ID.
type Manager struct {
	mu    sync.RWMutex
	forms map[int64]*Form
}

// NewManager creates an empty form manager.
func NewManager() *Manager {
	return &Manager{forms: make(map[int64]*Form)}
}

// Start begins a new form for userID, discarding any previous one.
// defaultName is offered when the user skips the name step.
func (m *Manager) Start(userID, chatID int64, defaultName string) Form {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := &Form{ChatID: chatID, State: StateAwaitingName, DefaultName: strings.TrimSpace(defaultName)}
	m.forms[userID] = f
	return *f
}

// Get returns the user's form and whether one is in progress.
func (m *Manager) Get(userID int64) (Form, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.forms[userID]
	if !ok {
		return Form{}, false
	}
	return *f, true
}

// GetUserState returns the step the user is at, StateIdle without a form.
func (m *Manager) GetUserState(userID int64) State {
	f, ok := m.Get(userID)
	if !ok {
		return StateIdle
	}
	return f.State
}

// SetName records the name and moves to the rating step. An empty name
// falls back to the default name; when that is empty too the form stays at
// the name step and feedback.ErrNameRequired is returned.
func (m *Manager) SetName(userID int64, name string) (Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.formAt(userID, StateAwaitingName)
	if err != nil {
		return Form{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = f.DefaultName
	}
	if name == "" {
		return *f, feedback.ErrNameRequired
	}
	f.Name = name
	f.State = StateAwaitingRating
	return *f, nil
}

// SetRating records the selected star and moves to the comment step.
// Invalid values keep the form at the rating step.
func (m *Manager) SetRating(userID int64, raw string) (Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.formAt(userID, StateAwaitingRating)
	if err != nil {
		return Form{}, err
	}
	if _, err := feedback.ParseRating(raw); err != nil {
		return *f, err
	}
	f.Rating = strings.TrimSpace(raw)
	f.State = StateAwaitingComment
	return *f, nil
}

// Finish removes the form of a user at the comment step and returns it.
func (m *Manager) Finish(userID int64) (Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.formAt(userID, StateAwaitingComment)
	if err != nil {
		return Form{}, err
	}
	delete(m.forms, userID)
	return *f, nil
}

// Cancel drops the user's form. It reports whether one existed.
func (m *Manager) Cancel(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.forms[userID]
	delete(m.forms, userID)
	return ok
}

// formAt returns the user's form if it is at state; m.mu must be held.
func (m *Manager) formAt(userID int64, state State) (*Form, error) {
	f, ok := m.forms[userID]
	if !ok {
		return nil, ErrNoForm
	}
	if f.State != state {
		return f, ErrWrongStep
	}
	return f, nil
}
