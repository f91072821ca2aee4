package feedback

import (
	"sort"
	"strings"
)

// Stats summarizes a collection of records.
type Stats struct {
	Total   int
	Average float64
}

// ComputeStats returns the record count and the mean of the stored ratings,
// fractional legacy values included. The average of an empty collection is 0.
func ComputeStats(records []Record) Stats {
	total := len(records)
	if total == 0 {
		return Stats{}
	}
	sum := 0.0
	for _, r := range records {
		sum += r.Rating
	}
	return Stats{Total: total, Average: sum / float64(total)}
}

// Distribution maps each rating in [MinRating, MaxRating] to its count.
type Distribution map[int]int

// RatingDistribution counts records per rating. Every bucket is present even
// when zero; records whose rating is fractional or outside the range land in
// no bucket.
func RatingDistribution(records []Record) Distribution {
	dist := make(Distribution, MaxRating)
	for r := MinRating; r <= MaxRating; r++ {
		dist[r] = 0
	}
	for _, rec := range records {
		if r, ok := WholeRating(rec.Rating); ok {
			dist[r]++
		}
	}
	return dist
}

// Counts returns bucket counts ordered from MinRating to MaxRating.
func (d Distribution) Counts() [MaxRating]int {
	var out [MaxRating]int
	for r := MinRating; r <= MaxRating; r++ {
		out[r-MinRating] = d[r]
	}
	return out
}

// Total is the number of records counted in any bucket.
func (d Distribution) Total() int {
	total := 0
	for r := MinRating; r <= MaxRating; r++ {
		total += d[r]
	}
	return total
}

// Max is the largest bucket count.
func (d Distribution) Max() int {
	largest := 0
	for r := MinRating; r <= MaxRating; r++ {
		if d[r] > largest {
			largest = d[r]
		}
	}
	return largest
}

// Share is the fraction of counted records with the given rating, 0 when empty.
func (d Distribution) Share(rating int) float64 {
	total := d.Total()
	if total == 0 {
		return 0
	}
	return float64(d[rating]) / float64(total)
}

// Newest returns a copy of records ordered by CreatedAt, most recent first.
func Newest(records []Record) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt > sorted[j].CreatedAt
	})
	return sorted
}

// Stars renders a rating as filled and empty stars, e.g. "★★★☆☆".
func Stars(rating int) string {
	full := rating
	if full < 0 {
		full = 0
	}
	if full > MaxRating {
		full = MaxRating
	}
	return strings.Repeat("★", full) + strings.Repeat("☆", MaxRating-full)
}
