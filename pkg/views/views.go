// Package views derives read-only views from stored records: the dream
// archive calendar, emotion statistics and daily series for charts.
package views

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/entrhq/moodjournal/pkg/record"
)

// PageSize is the number of dates shown per archive page.
const PageSize = 16

// IsRealDream reports whether rec holds a written dream, as opposed to a
// quick label or an empty recording.
func IsRealDream(rec record.Record) bool {
	if strings.TrimSpace(rec.String(record.KeyDream)) == "" {
		return false
	}
	return rec.String(record.KeyAnalysis) != record.NoAnalysis
}

// DatesWithDreams returns the sorted, distinct dates that have a written
// dream.
func DatesWithDreams(recs []record.Record) []string {
	dates := lo.FilterMap(recs, func(rec record.Record, _ int) (string, bool) {
		if !IsRealDream(rec) {
			return "", false
		}
		return rec.Date()
	})
	dates = lo.Uniq(dates)
	sort.Strings(dates)
	return dates
}

// PageCount returns how many pages n items span. It is at least 1.
func PageCount(n int) int {
	if n <= PageSize {
		return 1
	}
	return (n + PageSize - 1) / PageSize
}

// Page returns the page-th chunk of dates and whether pages exist before
// and after it. Out-of-range pages are clamped.
func Page(dates []string, page int) (chunk []string, hasPrev, hasNext bool) {
	last := PageCount(len(dates)) - 1
	page = max(0, min(page, last))
	start := page * PageSize
	end := min(start+PageSize, len(dates))
	if start < end {
		chunk = dates[start:end]
	}
	return chunk, page > 0, page < last
}

// DreamsOn returns the dream records dated date, in stored order.
func DreamsOn(recs []record.Record, date string) []record.Record {
	return lo.Filter(recs, func(rec record.Record, _ int) bool {
		d, ok := rec.Date()
		return ok && d == date
	})
}

// EmotionCount is one row of the emotion statistics.
type EmotionCount struct {
	Emotion string
	Count   int
}

// EmotionCounts tallies emotions across dream metrics, most frequent first
// and alphabetically among equals.
func EmotionCounts(recs []record.Record) []EmotionCount {
	all := lo.FlatMap(recs, func(rec record.Record, _ int) []string {
		return record.EmotionList(rec.Metrics()[record.MetricEmotions])
	})
	counts := lo.MapToSlice(lo.CountValues(all), func(emotion string, n int) EmotionCount {
		return EmotionCount{Emotion: emotion, Count: n}
	})
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Emotion < counts[j].Emotion
	})
	return counts
}
