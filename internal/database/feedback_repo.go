package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"feedbackbot/internal/feedback"
	"feedbackbot/internal/logger"
	"feedbackbot/internal/metrics"

	"github.com/getsentry/sentry-go"
	"github.com/valyala/fastjson"
)

// FeedbackKey is the storage key holding the serialized feedback collection.
const FeedbackKey = "feedbacks"

var (
	errMalformedBlob = errors.New("stored feedback is not valid JSON")
	errNotArray      = errors.New("stored feedback is not a JSON array")
)

// FeedbackRepository owns the in-memory feedback collection and mirrors it,
// whole, to a single key of a Store.
//
// Reads are lenient: a missing, corrupt or foreign value loads as an empty
// collection and individual entries only need a numeric rating. Loaded entries
// are written back exactly as they were read, unknown fields included. Writes
// never fail from the caller's point of view; the in-memory collection stays
// authoritative for the running process when persistence is unavailable.
type FeedbackRepository struct {
	store Store
	key   string
	ids   feedback.IDGenerator

	mu      sync.RWMutex
	records []feedback.Record
	// raw[i] is the stored form of records[i], nil for records created here.
	raw []json.RawMessage
}

// NewFeedbackRepository creates a repository over store. A nil ids uses UUIDs.
func NewFeedbackRepository(store Store, ids feedback.IDGenerator) *FeedbackRepository {
	if ids == nil {
		ids = feedback.UUIDGenerator{}
	}
	return &FeedbackRepository{
		store:   store,
		key:     FeedbackKey,
		ids:     ids,
		records: []feedback.Record{},
		raw:     []json.RawMessage{},
	}
}

// Load reads the collection from the store, replacing the in-memory one, and
// returns a copy of it. It never fails: any problem yields an empty collection.
func (r *FeedbackRepository) Load(ctx context.Context) []feedback.Record {
	loaded, raw, err := r.read(ctx)
	if err != nil {
		logger.GetLogger().Warnw("Discarding stored feedback", "key", r.key, "error", err)
		loaded, raw = []feedback.Record{}, []json.RawMessage{}
	}

	r.mu.Lock()
	r.records = loaded
	r.raw = raw
	metrics.Records.Set(float64(len(loaded)))
	r.mu.Unlock()

	return cloneRecords(loaded)
}

func (r *FeedbackRepository) read(ctx context.Context) ([]feedback.Record, []json.RawMessage, error) {
	raw, found, err := r.store.Get(ctx, r.key)
	if err != nil {
		return nil, nil, err
	}
	if !found || raw == "" {
		return []feedback.Record{}, []json.RawMessage{}, nil
	}
	return decodeRecords(raw)
}

// decodeRecords parses a stored blob. Only entries that are objects with a
// numeric rating survive; other fields are read leniently and a field of the
// wrong type decodes as its zero value. Names and rating ranges are not
// checked here so that older data keeps loading. The second result holds each
// surviving entry as stored.
func decodeRecords(raw string) ([]feedback.Record, []json.RawMessage, error) {
	var p fastjson.Parser
	v, err := p.Parse(raw)
	if err != nil {
		metrics.LoadDiscarded.WithLabelValues(metrics.DiscardMalformed).Inc()
		return nil, nil, fmt.Errorf("%w: %v", errMalformedBlob, err)
	}
	items, err := v.Array()
	if err != nil {
		metrics.LoadDiscarded.WithLabelValues(metrics.DiscardNotArray).Inc()
		return nil, nil, errNotArray
	}

	records := make([]feedback.Record, 0, len(items))
	entries := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		if item.Type() != fastjson.TypeObject {
			metrics.LoadDiscarded.WithLabelValues(metrics.DiscardNoRating).Inc()
			continue
		}
		rating := item.Get("rating")
		if rating == nil || rating.Type() != fastjson.TypeNumber {
			metrics.LoadDiscarded.WithLabelValues(metrics.DiscardNoRating).Inc()
			continue
		}
		records = append(records, feedback.Record{
			ID:        string(item.GetStringBytes("id")),
			Name:      string(item.GetStringBytes("name")),
			Rating:    rating.GetFloat64(),
			Comment:   string(item.GetStringBytes("comment")),
			CreatedAt: int64(item.GetFloat64("createdAt")),
		})
		entries = append(entries, item.MarshalTo(nil))
	}
	return records, entries, nil
}

// Save replaces the in-memory collection with records and writes it to the
// store. Persistence failures are logged and reported, never returned.
func (r *FeedbackRepository) Save(ctx context.Context, records []feedback.Record) {
	_ = r.SaveErr(ctx, records)
}

// SaveErr is Save that also returns the persistence error. The in-memory
// collection is replaced either way.
func (r *FeedbackRepository) SaveErr(ctx context.Context, records []feedback.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.raw = r.matchRawLocked(records)
	r.records = cloneRecords(records)
	return r.persistLocked(ctx)
}

// matchRawLocked pairs each of records with the stored form of an identical
// loaded record, so unchanged entries are written back untouched.
func (r *FeedbackRepository) matchRawLocked(records []feedback.Record) []json.RawMessage {
	stored := make(map[feedback.Record][]json.RawMessage)
	for i, rec := range r.records {
		if r.raw[i] != nil {
			stored[rec] = append(stored[rec], r.raw[i])
		}
	}
	out := make([]json.RawMessage, len(records))
	for i, rec := range records {
		if candidates := stored[rec]; len(candidates) > 0 {
			out[i] = candidates[0]
			stored[rec] = candidates[1:]
		}
	}
	return out
}

// Append adds rec to the collection, persists the whole collection and
// returns a copy of it.
func (r *FeedbackRepository) Append(ctx context.Context, rec feedback.Record) []feedback.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, rec)
	r.raw = append(r.raw, nil)
	_ = r.persistLocked(ctx)
	return cloneRecords(r.records)
}

// Create validates a submission and appends the resulting record. A rejected
// submission leaves the collection untouched and returns the validation error.
func (r *FeedbackRepository) Create(ctx context.Context, sub feedback.Submission, now time.Time) (feedback.Record, error) {
	rec, err := feedback.NewRecord(sub, now, r.ids)
	if err != nil {
		metrics.Submissions.WithLabelValues(metrics.ResultRejected).Inc()
		return feedback.Record{}, err
	}
	r.Append(ctx, rec)
	metrics.Submissions.WithLabelValues(metrics.ResultAccepted).Inc()
	return rec, nil
}

// Records returns a copy of the collection in insertion order.
func (r *FeedbackRepository) Records() []feedback.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneRecords(r.records)
}

// persistLocked writes r.records; r.mu must be held.
func (r *FeedbackRepository) persistLocked(ctx context.Context) error {
	metrics.Records.Set(float64(len(r.records)))
	err := r.write(ctx, r.records, r.raw)
	if err != nil {
		metrics.PersistFailures.Inc()
		logger.GetLogger().Errorw("Failed to persist feedback", "key", r.key, "records", len(r.records), "error", err)
		sentry.CaptureException(err)
	}
	return err
}

// write stores records as a JSON array, using raw[i] in place of records[i]
// when present.
func (r *FeedbackRepository) write(ctx context.Context, records []feedback.Record, raw []json.RawMessage) error {
	entries := make([]json.RawMessage, 0, len(records))
	for i, rec := range records {
		if i < len(raw) && raw[i] != nil {
			entries = append(entries, raw[i])
			continue
		}
		encoded, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal feedback %q: %w", rec.ID, err)
		}
		entries = append(entries, encoded)
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}
	if err := r.store.Set(ctx, r.key, string(data)); err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}

func cloneRecords(records []feedback.Record) []feedback.Record {
	out := make([]feedback.Record, len(records))
	copy(out, records)
	return out
}
