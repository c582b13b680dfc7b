package views

import (
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/entrhq/moodjournal/pkg/record"
)

// Period selects the window of a chart.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// Periods lists the periods in menu order.
var Periods = []Period{PeriodWeek, PeriodMonth, PeriodYear, PeriodAll}

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	return lo.Contains(Periods, p)
}

// Point is the value of a parameter on one day.
type Point struct {
	Date  time.Time
	Value float64
}

// Series is a date-ordered list of points.
type Series []Point

// dreamParams are read from dream metrics rather than check-ins.
var dreamParams = map[string]bool{
	record.MetricCIMScore:  true,
	record.MetricIntensity: true,
}

// DailySeries averages param per day. Mood parameters come from check-ins;
// cim_score and intensity come from dream metrics. Null ratings and records
// without the value are left out.
func DailySeries(mood, dreams []record.Record, param string) Series {
	type sample struct {
		day   string
		value float64
	}
	source := mood
	value := func(rec record.Record) (float64, bool) { return rec.Number(param) }
	if dreamParams[param] {
		source = dreams
		value = func(rec record.Record) (float64, bool) {
			return record.Record(rec.Metrics()).Number(param)
		}
	}

	samples := lo.FilterMap(source, func(rec record.Record, _ int) (sample, bool) {
		day, ok := rec.Date()
		if !ok {
			return sample{}, false
		}
		v, ok := value(rec)
		if !ok || math.IsNaN(v) {
			return sample{}, false
		}
		return sample{day: day, value: v}, true
	})

	byDay := lo.GroupBy(samples, func(s sample) string { return s.day })
	out := make(Series, 0, len(byDay))
	for day, group := range byDay {
		d, err := record.ParseDate(day)
		if err != nil {
			continue
		}
		mean := lo.SumBy(group, func(s sample) float64 { return s.value }) / float64(len(group))
		out = append(out, Point{Date: d, Value: mean})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Slice returns the page-th window of period counted back from the latest
// point (page 0 holds it), and whether older points exist before the window.
// Weeks start on Monday.
func Slice(s Series, period Period, page int) (Series, bool) {
	if len(s) == 0 || period == PeriodAll || !period.Valid() {
		return s, false
	}
	page = max(page, 0)
	last := s[len(s)-1].Date
	var start, end time.Time
	switch period {
	case PeriodWeek:
		offset := (int(last.Weekday()) + 6) % 7
		start = dayOf(last).AddDate(0, 0, -offset-7*page)
		end = start.AddDate(0, 0, 7)
	case PeriodMonth:
		start = time.Date(last.Year(), last.Month()-time.Month(page), 1, 0, 0, 0, 0, last.Location())
		end = start.AddDate(0, 1, 0)
	case PeriodYear:
		start = time.Date(last.Year()-page, time.January, 1, 0, 0, 0, 0, last.Location())
		end = start.AddDate(1, 0, 0)
	}
	window := lo.Filter(s, func(p Point, _ int) bool {
		return !p.Date.Before(start) && p.Date.Before(end)
	})
	return window, s[0].Date.Before(start)
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Resample averages s into buckets of equal day span so that at most
// maxPoints remain. Shorter series are returned unchanged.
func Resample(s Series, maxPoints int) Series {
	if maxPoints <= 0 || len(s) <= maxPoints {
		return s
	}
	first := s[0].Date
	spanDays := int(s[len(s)-1].Date.Sub(first).Hours()/24) + 1
	step := (spanDays + maxPoints - 1) / maxPoints
	if step <= 1 {
		return s
	}
	buckets := lo.GroupBy(s, func(p Point) int {
		return int(p.Date.Sub(first).Hours()/24) / step
	})
	keys := lo.Keys(buckets)
	sort.Ints(keys)
	return lo.Map(keys, func(k int, _ int) Point {
		group := buckets[k]
		mean := lo.SumBy(group, func(p Point) float64 { return p.Value }) / float64(len(group))
		return Point{Date: first.AddDate(0, 0, k*step), Value: mean}
	})
}
