// Package feedback holds the feedback record model together with the rules for
// creating records and the pure aggregations computed over a collection of them.
package feedback

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// MinRating is the lowest star rating a user can give.
	MinRating = 1
	// MaxRating is the highest star rating a user can give.
	MaxRating = 5
)

var (
	// ErrValidation is wrapped by every submission rejection.
	ErrValidation = errors.New("invalid feedback submission")
	// ErrInvalidRating is wrapped by both rating rejections.
	ErrInvalidRating = fmt.Errorf("%w: rating", ErrValidation)

	// ErrNameRequired is returned when the name is empty after trimming.
	ErrNameRequired = fmt.Errorf("%w: name is required", ErrValidation)
	// ErrRatingRequired is returned when no star was selected.
	ErrRatingRequired = fmt.Errorf("%w is required", ErrInvalidRating)
	// ErrRatingOutOfRange is returned when the selected value is not an integer in [1,5].
	ErrRatingOutOfRange = fmt.Errorf("%w must be between %d and %d", ErrInvalidRating, MinRating, MaxRating)
)

// Record is a single stored feedback submission.
// The JSON layout is the persisted format and must stay stable.
type Record struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Rating    float64 `json:"rating"` // whole for new records, kept as stored otherwise
	Comment   string  `json:"comment,omitempty"`
	CreatedAt int64   `json:"createdAt"` // Unix milliseconds
}

// Time returns CreatedAt as a time.Time.
func (r Record) Time() time.Time {
	return time.UnixMilli(r.CreatedAt)
}

// Submission is the raw input of the feedback form.
// Rating is the selected star as text, empty when nothing was selected.
type Submission struct {
	Name    string
	Rating  string
	Comment string
}

// NewRecord validates a submission and builds a record from it.
// On any rejection no record is produced and the returned error wraps ErrValidation.
func NewRecord(sub Submission, now time.Time, ids IDGenerator) (Record, error) {
	name := strings.TrimSpace(sub.Name)
	if name == "" {
		return Record{}, ErrNameRequired
	}

	rating, err := ParseRating(sub.Rating)
	if err != nil {
		return Record{}, err
	}

	if ids == nil {
		ids = UUIDGenerator{}
	}

	return Record{
		ID:        ids.NewID(),
		Name:      name,
		Rating:    float64(rating),
		Comment:   strings.TrimSpace(sub.Comment),
		CreatedAt: now.UnixMilli(),
	}, nil
}

// ParseRating converts a selected star value into a rating.
func ParseRating(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrRatingRequired
	}
	rating, err := strconv.Atoi(raw)
	if err != nil || !ValidRating(rating) {
		return 0, ErrRatingOutOfRange
	}
	return rating, nil
}

// ValidRating reports whether r is within [MinRating, MaxRating].
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// WholeRating returns r as a star count when it is a whole number in
// [MinRating, MaxRating].
func WholeRating(r float64) (int, bool) {
	if r != math.Trunc(r) || !ValidRating(int(r)) {
		return 0, false
	}
	return int(r), true
}
