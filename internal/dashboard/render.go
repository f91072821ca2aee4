// Package dashboard renders feedback statistics and the rating charts as
// plain text for chat messages.
package dashboard

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"feedbackbot/internal/feedback"
)

const (
	// DefaultBarWidth is the number of cells of the longest bar.
	DefaultBarWidth = 16
	// donutCells is the length of the ring strip in the donut chart.
	donutCells = 20
	// maxNameLen truncates long names in the feedback list.
	maxNameLen = 40
)

// Segment glyphs per rating, from 1 (red) to 5 (blue).
var ratingGlyphs = [feedback.MaxRating]string{"🟥", "🟧", "🟨", "🟩", "🟦"}

// FormatAverage renders an average with one decimal.
func FormatAverage(avg float64) string {
	return strconv.FormatFloat(avg, 'f', 1, 64)
}

// Summary is the template data of the stats summary line: the average with
// one decimal and the record count.
func Summary(stats feedback.Stats) map[string]interface{} {
	return map[string]interface{}{
		"Average": FormatAverage(stats.Average),
		"Total":   stats.Total,
	}
}

// BarChart draws one row per rating, 1 to 5, with a bar proportional to the
// largest bucket followed by the count.
func BarChart(dist feedback.Distribution, width int) string {
	if width <= 0 {
		width = DefaultBarWidth
	}
	largest := dist.Max()

	var b strings.Builder
	for r := feedback.MinRating; r <= feedback.MaxRating; r++ {
		count := dist[r]
		cells := 0
		if largest > 0 {
			cells = count * width / largest
			if count > 0 && cells == 0 {
				cells = 1
			}
		}
		fmt.Fprintf(&b, "%d★ %s%s %d\n", r, strings.Repeat("█", cells), strings.Repeat("░", width-cells), count)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// DonutChart draws the rating shares as a ring strip followed by one legend
// line per rating with its percentage.
func DonutChart(dist feedback.Distribution) string {
	total := dist.Total()

	var b strings.Builder
	if total == 0 {
		b.WriteString(strings.Repeat("⬜", donutCells))
	} else {
		b.WriteString(ringStrip(dist))
	}
	b.WriteString("\n")

	for r := feedback.MinRating; r <= feedback.MaxRating; r++ {
		pct := dist.Share(r) * 100
		fmt.Fprintf(&b, "%s %d: %s%% (%d)\n", ratingGlyphs[r-feedback.MinRating], r, strconv.FormatFloat(pct, 'f', 1, 64), dist[r])
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// ringStrip splits donutCells between ratings with the largest remainder
// method so the strip always has exactly donutCells cells.
func ringStrip(dist feedback.Distribution) string {
	total := dist.Total()
	var cells [feedback.MaxRating]int
	var remainders [feedback.MaxRating]int
	assigned := 0
	for i, count := range dist.Counts() {
		cells[i] = count * donutCells / total
		remainders[i] = count * donutCells % total
		assigned += cells[i]
	}
	for assigned < donutCells {
		best := 0
		for i := range remainders {
			if remainders[i] > remainders[best] {
				best = i
			}
		}
		cells[best]++
		remainders[best] = -1
		assigned++
	}

	var b strings.Builder
	for i, n := range cells {
		b.WriteString(strings.Repeat(ratingGlyphs[i], n))
	}
	return b.String()
}

// ListEntry renders one record of the feedback list.
func ListEntry(rec feedback.Record, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	name := rec.Name
	if r := []rune(name); len(r) > maxNameLen {
		name = string(r[:maxNameLen]) + "…"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s", name, feedback.Stars(int(rec.Rating)))
	if rec.Comment != "" {
		b.WriteString("\n")
		b.WriteString(rec.Comment)
	}
	b.WriteString("\n")
	b.WriteString(rec.Time().In(loc).Format("02/01/2006 15:04"))
	return b.String()
}

// FeedbackList renders up to limit records, newest first. It returns an empty
// string for an empty collection so callers can show their own message.
func FeedbackList(records []feedback.Record, limit int, loc *time.Location) string {
	sorted := feedback.Newest(records)
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	entries := make([]string, 0, len(sorted))
	for _, rec := range sorted {
		entries = append(entries, ListEntry(rec, loc))
	}
	return strings.Join(entries, "\n\n")
}
