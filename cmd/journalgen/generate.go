package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/entrhq/moodjournal/pkg/record"
)

// nullRate is the share of parameter answers left unanswered.
const nullRate = 0.1

// writer is the part of storage.Store the generator needs.
type writer interface {
	Write(ctx context.Context, userID int64, category record.Category, rec record.Record) error
}

type generator struct {
	store writer
	rng   *rand.Rand
}

func newGenerator(store writer, seed int64) *generator {
	return &generator{
		store: store,
		rng:   rand.New(rand.NewPCG(uint64(seed), uint64(seed>>1)+1)),
	}
}

// Generate writes one mood and one dream record per day for the days before
// today, oldest first. It returns the number of days written.
func (g *generator) Generate(ctx context.Context, userID int64, days int, today time.Time) (int, error) {
	start := record.Day(today).AddDate(0, 0, -days)
	for i := range days {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		day := start.AddDate(0, 0, i)
		if err := g.store.Write(ctx, userID, record.CategoryMood, g.mood(day)); err != nil {
			return i, fmt.Errorf("journalgen: write mood: %w", err)
		}
		if err := g.store.Write(ctx, userID, record.CategoryDreams, g.dream(day)); err != nil {
			return i, fmt.Errorf("journalgen: write dream: %w", err)
		}
	}
	return days, nil
}

func (g *generator) mood(day time.Time) record.Record {
	rec := record.New(day)
	rec[record.KeySummary] = ""
	for _, p := range record.BaseParameters {
		if g.rng.Float64() < nullRate {
			rec[p.Key] = nil
			continue
		}
		rec[p.Key] = record.MinRating + g.rng.IntN(record.MaxRating-record.MinRating+1)
	}
	return rec
}

// dream returns an empty dream carrying only metrics, so charts have a CIM
// series while the archive stays clean.
func (g *generator) dream(day time.Time) record.Record {
	emotions := g.emotions(1 + g.rng.IntN(3))
	intensity := float64(int((0.5+g.rng.Float64()*2.5)*100)) / 100

	rec := record.New(day)
	rec[record.KeyDream] = ""
	rec[record.KeyAnalysis] = ""
	rec[record.KeyMetrics] = record.ApplyCIM(map[string]any{
		record.MetricIntensity: intensity,
		record.MetricEmotions:  emotions,
	})
	return rec
}

func (g *generator) emotions(n int) []string {
	picked := g.rng.Perm(len(record.Emotions))[:n]
	out := make([]string, n)
	for i, idx := range picked {
		out[i] = record.Emotions[idx]
	}
	return out
}
