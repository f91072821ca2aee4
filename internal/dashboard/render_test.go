package dashboard

import (
	"strings"
	"testing"
	"time"

	"feedbackbot/internal/feedback"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAverage(t *testing.T) {
	assert.Equal(t, "0.0", FormatAverage(0))
	assert.Equal(t, "3.0", FormatAverage(3))
	assert.Equal(t, "4.3", FormatAverage(13.0/3.0))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, map[string]interface{}{"Average": "0.0", "Total": 0}, Summary(feedback.Stats{}))

	stats := feedback.ComputeStats([]feedback.Record{{Rating: 5.9}, {Rating: 1.5}})
	assert.Equal(t, map[string]interface{}{"Average": "3.7", "Total": 2}, Summary(stats))
}

func TestBarChart(t *testing.T) {
	dist := feedback.Distribution{1: 0, 2: 1, 3: 2, 4: 0, 5: 4}
	chart := BarChart(dist, 8)

	lines := strings.Split(chart, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "1★ ░░░░░░░░ 0", lines[0])
	assert.Equal(t, "2★ ██░░░░░░ 1", lines[1])
	assert.Equal(t, "3★ ████░░░░ 2", lines[2])
	assert.Equal(t, "5★ ████████ 4", lines[4])
}

func TestBarChart_EmptyAndSmallBuckets(t *testing.T) {
	empty := BarChart(feedback.RatingDistribution(nil), 4)
	assert.Equal(t, "1★ ░░░░ 0\n2★ ░░░░ 0\n3★ ░░░░ 0\n4★ ░░░░ 0\n5★ ░░░░ 0", empty)

	// A non-empty bucket always shows at least one cell.
	chart := BarChart(feedback.Distribution{1: 1, 2: 0, 3: 0, 4: 0, 5: 100}, 10)
	assert.True(t, strings.HasPrefix(chart, "1★ █░░░░░░░░░ 1"), chart)

	// Width falls back to the default.
	assert.Contains(t, BarChart(feedback.Distribution{1: 1, 2: 0, 3: 0, 4: 0, 5: 0}, 0), strings.Repeat("█", DefaultBarWidth))
}

func TestDonutChart(t *testing.T) {
	dist := feedback.Distribution{1: 1, 2: 0, 3: 1, 4: 0, 5: 1}
	chart := DonutChart(dist)

	lines := strings.Split(chart, "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, donutCells, len([]rune(lines[0])))
	assert.Equal(t, 7, strings.Count(lines[0], "🟥"))
	assert.Equal(t, 7, strings.Count(lines[0], "🟨"))
	assert.Equal(t, 6, strings.Count(lines[0], "🟦"))
	assert.Equal(t, "🟥 1: 33.3% (1)", lines[1])
	assert.Equal(t, "🟧 2: 0.0% (0)", lines[2])
	assert.Equal(t, "🟦 5: 33.3% (1)", lines[5])
}

func TestDonutChart_Empty(t *testing.T) {
	chart := DonutChart(feedback.RatingDistribution(nil))
	lines := strings.Split(chart, "\n")
	assert.Equal(t, strings.Repeat("⬜", donutCells), lines[0])
	assert.Equal(t, "🟩 4: 0.0% (0)", lines[4])
}

func TestFeedbackList(t *testing.T) {
	base := time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)
	records := []feedback.Record{
		{ID: "1", Name: "Ana", Rating: 4, Comment: "Nice", CreatedAt: base.UnixMilli()},
		{ID: "2", Name: "Bruno", Rating: 2, CreatedAt: base.Add(time.Hour).UnixMilli()},
		{ID: "3", Name: "Carla", Rating: 5, CreatedAt: base.Add(-time.Hour).UnixMilli()},
	}

	list := FeedbackList(records, 2, time.UTC)
	assert.Equal(t, "Bruno  ★★☆☆☆\n09/03/2024 15:05\n\nAna  ★★★★☆\nNice\n09/03/2024 14:05", list)
	assert.Empty(t, FeedbackList(nil, 10, nil))
}

func TestListEntry_TruncatesLongNames(t *testing.T) {
	rec := feedback.Record{Name: strings.Repeat("á", 50), Rating: 1}
	entry := ListEntry(rec, nil)
	assert.True(t, strings.HasPrefix(entry, strings.Repeat("á", maxNameLen)+"…  ★☆☆☆☆"))
}
