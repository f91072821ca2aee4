package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"feedbackbot/internal/feedback"
	"feedbackbot/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

// MockStore is a mock for Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStore) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func sequentialIDs() feedback.IDGenerator {
	n := 0
	return feedback.IDFunc(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
}

var sampleRecords = []feedback.Record{
	{ID: "a", Name: "Ana", Rating: 5, Comment: "loved it", CreatedAt: 1700000000000},
	{ID: "b", Name: "Bruno", Rating: 2, CreatedAt: 1700000001000},
	{ID: "c", Name: "Carla", Rating: 3, Comment: "ok", CreatedAt: 1699999999000},
}

func TestFeedbackRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	NewFeedbackRepository(store, nil).Save(ctx, sampleRecords)

	loaded := NewFeedbackRepository(store, nil).Load(ctx)
	assert.Equal(t, sampleRecords, loaded)
}

func TestFeedbackRepository_SaveWritesJSONArray(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := NewFeedbackRepository(store, nil)

	repo.Save(ctx, nil)
	raw, found, err := store.Get(ctx, FeedbackKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "[]", raw)

	repo.Save(ctx, sampleRecords[1:2])
	raw, _, _ = store.Get(ctx, FeedbackKey)
	assert.JSONEq(t, `[{"id":"b","name":"Bruno","rating":2,"createdAt":1700000001000}]`, raw)
	assert.NotContains(t, raw, "comment")
}

func TestFeedbackRepository_LoadMissingKey(t *testing.T) {
	repo := NewFeedbackRepository(NewMemoryStore(), nil)
	loaded := repo.Load(context.Background())
	assert.NotNil(t, loaded)
	assert.Empty(t, loaded)
}

// Corrupt or foreign values must load as an empty collection rather than
// surfacing an error; the stored value is treated as untrusted.
func TestFeedbackRepository_LoadCorruptValuesYieldsEmpty(t *testing.T) {
	corrupt := []string{
		`{not json`,
		`{"rating": 5}`,
		`"feedbacks"`,
		`42`,
		`null`,
		`true`,
		`[{"rating": 5}`,
	}

	for _, raw := range corrupt {
		t.Run(raw, func(t *testing.T) {
			ctx := context.Background()
			store := NewMemoryStore()
			require.NoError(t, store.Set(ctx, FeedbackKey, raw))

			repo := NewFeedbackRepository(store, nil)
			repo.Save(ctx, sampleRecords) // in-memory state that Load must replace
			require.NoError(t, store.Set(ctx, FeedbackKey, raw))

			loaded := repo.Load(ctx)
			assert.NotNil(t, loaded)
			assert.Empty(t, loaded)
			assert.Empty(t, repo.Records())
		})
	}
}

func TestFeedbackRepository_LoadStoreErrorYieldsEmpty(t *testing.T) {
	store := new(MockStore)
	store.On("Get", mock.Anything, FeedbackKey).Return("", false, fmt.Errorf("%w: boom", ErrStoreUnavailable))

	loaded := NewFeedbackRepository(store, nil).Load(context.Background())
	assert.Empty(t, loaded)
	store.AssertExpectations(t)
}

func TestFeedbackRepository_LoadFiltersEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	raw := `[
		{"id":"keep","name":"Ana","rating":4,"createdAt":10},
		{"id":"string-rating","name":"Bo","rating":"4","createdAt":11},
		{"id":"no-rating","name":"Cy","createdAt":12},
		{"id":"null-rating","name":"Di","rating":null},
		"just a string",
		17,
		null,
		[1,2,3],
		{"id":"keep-2","rating":5}
	]`
	require.NoError(t, store.Set(ctx, FeedbackKey, raw))

	loaded := NewFeedbackRepository(store, nil).Load(ctx)

	require.Len(t, loaded, 2)
	assert.Equal(t, feedback.Record{ID: "keep", Name: "Ana", Rating: 4, CreatedAt: 10}, loaded[0])
	assert.Equal(t, feedback.Record{ID: "keep-2", Rating: 5}, loaded[1])
}

// The read path only requires a numeric rating. Legacy entries with an empty
// name, an out of range or fractional rating keep loading even though they
// could not be created today.
func TestFeedbackRepository_LoadKeepsLegacyEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	raw := `[
		{"id":"x","name":"","rating":9,"createdAt":1},
		{"id":"y","name":42,"rating":0,"comment":7,"createdAt":"yesterday"},
		{"id":"z","name":"Zé","rating":3.7,"createdAt":1.7e12}
	]`
	require.NoError(t, store.Set(ctx, FeedbackKey, raw))

	loaded := NewFeedbackRepository(store, nil).Load(ctx)

	require.Len(t, loaded, 3)
	assert.Equal(t, feedback.Record{ID: "x", Name: "", Rating: 9, CreatedAt: 1}, loaded[0])
	assert.Equal(t, feedback.Record{ID: "y", Rating: 0}, loaded[1])
	assert.Equal(t, feedback.Record{ID: "z", Name: "Zé", Rating: 3.7, CreatedAt: 1700000000000}, loaded[2])

	// Neither out of range nor fractional ratings fill a bucket.
	assert.Zero(t, feedback.RatingDistribution(loaded).Total())
	assert.InDelta(t, (9+0+3.7)/3, feedback.ComputeStats(loaded).Average, 1e-9)
}

func TestFeedbackRepository_FractionalRatingsAverageAsStored(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, FeedbackKey, `[{"id":"a","name":"A","rating":5.9},{"id":"b","name":"B","rating":1.5}]`))

	loaded := NewFeedbackRepository(store, nil).Load(ctx)

	assert.Equal(t, []float64{5.9, 1.5}, []float64{loaded[0].Rating, loaded[1].Rating})
	assert.InDelta(t, 3.7, feedback.ComputeStats(loaded).Average, 1e-9)
	assert.Equal(t, feedback.Distribution{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}, feedback.RatingDistribution(loaded))
}

// Appending must not normalize what was loaded: wrong-typed and unknown
// fields and fractional ratings go back to the store as they came.
func TestFeedbackRepository_WritesLoadedEntriesUnchanged(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	legacy := []string{
		`{"id":"y","name":42,"rating":0,"comment":7,"createdAt":"yesterday"}`,
		`{"id":"z","name":"Zé","rating":3.7,"createdAt":1.7e12,"source":"widget-v1"}`,
	}
	require.NoError(t, store.Set(ctx, FeedbackKey, "["+strings.Join(legacy, ",")+`,{"id":"gone"}]`))

	repo := NewFeedbackRepository(store, sequentialIDs())
	repo.Load(ctx)
	_, err := repo.Create(ctx, feedback.Submission{Name: "Eva", Rating: "4"}, time.UnixMilli(5))
	require.NoError(t, err)

	raw, _, err := store.Get(ctx, FeedbackKey)
	require.NoError(t, err)
	fresh := `{"id":"id-1","name":"Eva","rating":4,"createdAt":5}`
	assert.JSONEq(t, "["+legacy[0]+","+legacy[1]+","+fresh+"]", raw)
	assert.Contains(t, raw, `"rating":3.7`)
	assert.Contains(t, raw, `"createdAt":1.7e12`)
}

func TestFeedbackRepository_SaveKeepsUnchangedLoadedEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	kept := `{"id":"k","name":"Kim","rating":2.5,"extra":true}`
	edited := `{"id":"e","name":"Eli","rating":4,"extra":true}`
	require.NoError(t, store.Set(ctx, FeedbackKey, "["+kept+","+edited+"]"))

	repo := NewFeedbackRepository(store, nil)
	loaded := repo.Load(ctx)
	require.Len(t, loaded, 2)

	// Reordered and one record changed.
	loaded[1].Comment = "added later"
	require.NoError(t, repo.SaveErr(ctx, []feedback.Record{loaded[1], loaded[0]}))

	raw, _, err := store.Get(ctx, FeedbackKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"e","name":"Eli","rating":4,"comment":"added later","createdAt":0},`+kept+`]`, raw)
}

func TestFeedbackRepository_SaveErrReturnsStoreError(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	store.On("Set", mock.Anything, FeedbackKey, mock.AnythingOfType("string")).
		Return(fmt.Errorf("%w: quota exceeded", ErrStoreUnavailable)).Once()
	store.On("Set", mock.Anything, FeedbackKey, mock.AnythingOfType("string")).Return(nil).Once()

	repo := NewFeedbackRepository(store, nil)

	err := repo.SaveErr(ctx, sampleRecords)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	// The in-memory collection is replaced even when the write fails.
	assert.Equal(t, sampleRecords, repo.Records())

	assert.NoError(t, repo.SaveErr(ctx, sampleRecords[:1]))
	store.AssertExpectations(t)
}

func TestFeedbackRepository_SaveFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	store.On("Set", mock.Anything, FeedbackKey, mock.AnythingOfType("string")).
		Return(fmt.Errorf("%w: quota exceeded", ErrStoreUnavailable))

	repo := NewFeedbackRepository(store, sequentialIDs())

	assert.NotPanics(t, func() { repo.Save(ctx, sampleRecords) })
	assert.Equal(t, sampleRecords, repo.Records())

	rec, err := repo.Create(ctx, feedback.Submission{Name: "Dora", Rating: "4"}, time.UnixMilli(1700000002000))
	require.NoError(t, err)
	assert.Equal(t, "id-1", rec.ID)

	// The in-memory collection stays authoritative.
	records := repo.Records()
	require.Len(t, records, len(sampleRecords)+1)
	assert.Equal(t, rec, records[len(records)-1])
	store.AssertNumberOfCalls(t, "Set", 2)
}

func TestFeedbackRepository_CreateAppendsAndPersists(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := NewFeedbackRepository(store, sequentialIDs())
	repo.Load(ctx)

	now := time.UnixMilli(1700000005000)
	rec, err := repo.Create(ctx, feedback.Submission{Name: " Eva ", Rating: "5", Comment: "   "}, now)
	require.NoError(t, err)

	assert.Equal(t, feedback.Record{ID: "id-1", Name: "Eva", Rating: 5, CreatedAt: now.UnixMilli()}, rec)
	assert.Equal(t, []feedback.Record{rec}, repo.Records())

	raw, found, err := store.Get(ctx, FeedbackKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `[{"id":"id-1","name":"Eva","rating":5,"createdAt":1700000005000}]`, raw)

	// A fresh repository sees the persisted record.
	assert.Equal(t, []feedback.Record{rec}, NewFeedbackRepository(store, nil).Load(ctx))
}

func TestFeedbackRepository_CreateIssuesDistinctIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewFeedbackRepository(NewMemoryStore(), nil)

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		rec, err := repo.Create(ctx, feedback.Submission{Name: "N", Rating: "3"}, time.Now())
		require.NoError(t, err)
		_, dup := seen[rec.ID]
		require.False(t, dup, "duplicate id %s", rec.ID)
		seen[rec.ID] = struct{}{}
	}
	assert.Len(t, repo.Records(), 50)
}

func TestFeedbackRepository_CreateRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	repo := NewFeedbackRepository(store, nil)

	invalid := []feedback.Submission{
		{Name: "", Rating: "3"},
		{Name: "Ana", Rating: ""},
		{Name: "Ana", Rating: "0"},
		{Name: "Ana", Rating: "6"},
	}
	for _, sub := range invalid {
		_, err := repo.Create(ctx, sub, time.Now())
		assert.True(t, errors.Is(err, feedback.ErrValidation), "%+v", sub)
	}

	assert.Empty(t, repo.Records())
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestFeedbackRepository_LoadReplacesInMemory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := NewFeedbackRepository(store, nil)
	repo.Save(ctx, sampleRecords)

	other := NewFeedbackRepository(store, nil)
	other.Save(ctx, sampleRecords[:1])

	assert.Len(t, repo.Records(), 3)
	assert.Equal(t, sampleRecords[:1], repo.Load(ctx))
	assert.Equal(t, sampleRecords[:1], repo.Records())
}

func TestFeedbackRepository_RecordsIsACopy(t *testing.T) {
	repo := NewFeedbackRepository(NewMemoryStore(), nil)
	repo.Save(context.Background(), sampleRecords)

	records := repo.Records()
	records[0].Name = "changed"
	assert.Equal(t, "Ana", repo.Records()[0].Name)
}
