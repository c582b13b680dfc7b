package views

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/moodjournal/pkg/record"
)

func dream(date, text, analysis string, metrics map[string]any) record.Record {
	return record.Record{
		record.KeyDate:     date,
		record.KeyDream:    text,
		record.KeyAnalysis: analysis,
		record.KeyMetrics:  metrics,
	}
}

func TestDatesWithDreams(t *testing.T) {
	recs := []record.Record{
		dream("2024-05-03", "a flight", "reading", nil),
		dream("2024-05-01", "a house", "reading", nil),
		dream("2024-05-03", "a second dream", "reading", nil),
		dream("2024-05-02", "don't remember", record.NoAnalysis, nil),
		dream("2024-05-04", "", "", nil),
		{record.KeyDream: "no date"},
	}
	assert.Equal(t, []string{"2024-05-01", "2024-05-03"}, DatesWithDreams(recs))
	assert.Len(t, DreamsOn(recs, "2024-05-03"), 2)
	assert.Empty(t, DreamsOn(recs, "2024-06-01"))
}

func TestPage(t *testing.T) {
	var dates []string
	for i := 0; i < 40; i++ {
		dates = append(dates, record.FormatDate(time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)))
	}
	assert.Equal(t, 3, PageCount(len(dates)))
	assert.Equal(t, 1, PageCount(0))

	chunk, prev, next := Page(dates, 0)
	assert.Len(t, chunk, PageSize)
	assert.False(t, prev)
	assert.True(t, next)

	chunk, prev, next = Page(dates, 2)
	assert.Len(t, chunk, 8)
	assert.True(t, prev)
	assert.False(t, next)

	chunk, _, _ = Page(dates, 9)
	assert.Equal(t, "2024-02-09", chunk[len(chunk)-1])

	chunk, prev, next = Page(nil, 0)
	assert.Empty(t, chunk)
	assert.False(t, prev)
	assert.False(t, next)
}

func TestEmotionCounts(t *testing.T) {
	recs := []record.Record{
		dream("2024-05-01", "x", "y", map[string]any{"emotions": []any{"страх", "радость"}}),
		dream("2024-05-02", "x", "y", map[string]any{"emotions": []any{"радость"}}),
		dream("2024-05-03", "x", "y", map[string]any{"emotions": []any{"вина", 7}}),
		dream("2024-05-04", "x", "y", nil),
	}
	assert.Equal(t, []EmotionCount{
		{Emotion: "радость", Count: 2},
		{Emotion: "вина", Count: 1},
		{Emotion: "страх", Count: 1},
	}, EmotionCounts(recs))
}

func day(s string) time.Time {
	d, err := record.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDailySeries(t *testing.T) {
	mood := []record.Record{
		{"date": "2024-05-02", "mood": float64(2)},
		{"date": "2024-05-01", "mood": float64(1)},
		{"date": "2024-05-01", "mood": float64(-2)},
		{"date": "2024-05-03", "mood": nil},
		{"date": "2024-05-04"},
	}
	dreams := []record.Record{
		dream("2024-05-01", "x", "y", map[string]any{"intensity": 2.0, "cim_score": -0.5}),
		dream("2024-05-02", "x", "y", map[string]any{}),
	}

	s := DailySeries(mood, dreams, "mood")
	require.Len(t, s, 2)
	assert.Equal(t, day("2024-05-01"), s[0].Date)
	assert.InDelta(t, -0.5, s[0].Value, 1e-9)
	assert.InDelta(t, 2, s[1].Value, 1e-9)

	s = DailySeries(mood, dreams, record.MetricCIMScore)
	require.Len(t, s, 1)
	assert.InDelta(t, -0.5, s[0].Value, 1e-9)

	assert.Empty(t, DailySeries(mood, dreams, "libido"))
}

func series(from string, days int) Series {
	start := day(from)
	out := make(Series, days)
	for i := range out {
		out[i] = Point{Date: start.AddDate(0, 0, i), Value: float64(i)}
	}
	return out
}

func TestSlice(t *testing.T) {
	// 2024-01-01 is a Monday; the last point is Wednesday 2024-03-13
	s := series("2024-01-01", 73)

	week, older := Slice(s, PeriodWeek, 0)
	require.Len(t, week, 3)
	assert.Equal(t, day("2024-03-11"), week[0].Date)
	assert.True(t, older)

	week, _ = Slice(s, PeriodWeek, 1)
	require.Len(t, week, 7)
	assert.Equal(t, day("2024-03-04"), week[0].Date)

	month, older := Slice(s, PeriodMonth, 0)
	assert.Len(t, month, 13)
	assert.True(t, older)

	month, older = Slice(s, PeriodMonth, 2)
	assert.Len(t, month, 31)
	assert.False(t, older)

	year, older := Slice(s, PeriodYear, 0)
	assert.Len(t, year, 73)
	assert.False(t, older)

	all, _ := Slice(s, PeriodAll, 3)
	assert.Len(t, all, 73)

	empty, older := Slice(nil, PeriodWeek, 0)
	assert.Empty(t, empty)
	assert.False(t, older)
}

func TestResample(t *testing.T) {
	s := series("2024-01-01", 120)
	out := Resample(s, 60)
	require.Len(t, out, 60)
	assert.InDelta(t, 0.5, out[0].Value, 1e-9)
	assert.Equal(t, day("2024-01-03"), out[1].Date)

	short := series("2024-01-01", 10)
	assert.Equal(t, short, Resample(short, 60))
}

func TestPeriodValid(t *testing.T) {
	assert.True(t, PeriodMonth.Valid())
	assert.False(t, Period("decade").Valid())
}
