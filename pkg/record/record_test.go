package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCIMScore(t *testing.T) {
	tests := []struct {
		name      string
		intensity float64
		emotions  []string
		want      float64
		ok        bool
	}{
		{name: "opposite valences cancel", intensity: 2, emotions: []string{"страх", "радость"}, want: 0.0, ok: true},
		{name: "single negative", intensity: 1.5, emotions: []string{"страх"}, want: -1.5, ok: true},
		{name: "case insensitive", intensity: 1, emotions: []string{"РАДОСТЬ"}, want: 1, ok: true},
		{name: "unknown emotion counts as zero", intensity: 3, emotions: []string{"любовь", "удивление"}, want: 1.5, ok: true},
		{name: "rounded to two decimals", intensity: 1, emotions: []string{"стыд", "любовь", "интерес"}, want: 0.17, ok: true},
		{name: "no emotions", intensity: 2, emotions: nil, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CIMScore(tt.intensity, tt.emotions)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestApplyCIM(t *testing.T) {
	t.Run("json decoded emotions", func(t *testing.T) {
		m := ApplyCIM(map[string]any{"intensity": 2.0, "emotions": []any{"страх", "радость"}})
		assert.Equal(t, 0.0, m[MetricCIMScore])
	})

	t.Run("missing intensity", func(t *testing.T) {
		m := ApplyCIM(map[string]any{"emotions": []any{"страх"}})
		assert.NotContains(t, m, MetricCIMScore)
	})

	t.Run("empty emotions", func(t *testing.T) {
		m := ApplyCIM(map[string]any{"intensity": 2.0, "emotions": []any{}})
		assert.NotContains(t, m, MetricCIMScore)
	})

	t.Run("nil map", func(t *testing.T) {
		assert.Nil(t, ApplyCIM(nil))
	})
}

func TestParseAnalysis(t *testing.T) {
	t.Run("metrics marker line", func(t *testing.T) {
		raw := "The water is the unconscious.\nFlight means release.\nMETRICS: {\"intensity\": 1.5, \"emotions\": [\"страх\"]}"
		narrative, metrics := ParseAnalysis(raw)
		assert.Equal(t, "The water is the unconscious.\nFlight means release.", narrative)
		assert.Equal(t, 1.5, metrics[MetricIntensity])
		assert.Equal(t, -1.5, metrics[MetricCIMScore])
	})

	t.Run("last marker wins", func(t *testing.T) {
		raw := "METRICS: {\"intensity\": 1}\ntext\nMETRICS: {\"intensity\": 2, \"emotions\": [\"радость\"]}"
		narrative, metrics := ParseAnalysis(raw)
		assert.Equal(t, "METRICS: {\"intensity\": 1}\ntext", narrative)
		assert.Equal(t, 2.0, metrics[MetricCIMScore])
	})

	t.Run("marker is case insensitive", func(t *testing.T) {
		narrative, metrics := ParseAnalysis("text\nMetrics: {\"intensity\": 2, \"emotions\": [\"радость\"]}")
		assert.Equal(t, "text", narrative)
		assert.Equal(t, 2.0, metrics[MetricCIMScore])
	})

	t.Run("lookalike letters are not a marker", func(t *testing.T) {
		raw := "text\nMETRICS: {\"intensity\": 2, \"emotions\": [\"радость\"]}\nmetrıcs: none"
		narrative, metrics := ParseAnalysis(raw)
		assert.Equal(t, "text\nmetrıcs: none", narrative)
		assert.Equal(t, 2.0, metrics[MetricCIMScore])
	})

	t.Run("trailing object without marker", func(t *testing.T) {
		raw := "Narrative here.\n{\"intensity\": 2, \"emotions\": [\"страх\", \"радость\"]}"
		narrative, metrics := ParseAnalysis(raw)
		assert.Equal(t, "Narrative here.", narrative)
		assert.Equal(t, 0.0, metrics[MetricCIMScore])
	})

	t.Run("no metrics", func(t *testing.T) {
		narrative, metrics := ParseAnalysis("  just words  ")
		assert.Equal(t, "just words", narrative)
		assert.NotNil(t, metrics)
		assert.Empty(t, metrics)
	})

	t.Run("broken json keeps whole text", func(t *testing.T) {
		raw := "words\nMETRICS: {intensity: oops"
		narrative, metrics := ParseAnalysis(raw)
		assert.Equal(t, raw, narrative)
		assert.Empty(t, metrics)
	})
}

func TestRecordDate(t *testing.T) {
	r := New(time.Date(2024, 5, 3, 22, 10, 0, 0, time.UTC))
	d, ok := r.Date()
	require.True(t, ok)
	assert.Equal(t, "2024-05-03", d)
	assert.NoError(t, r.Validate())

	assert.ErrorIs(t, Record{"date": "03.05.2024"}.Validate(), ErrInvalidDate)
	assert.ErrorIs(t, Record{}.Validate(), ErrInvalidDate)
}

func TestRecordNumber(t *testing.T) {
	r := Record{"mood": 2.0, "energy": nil, "libido": "x"}
	v, ok := r.Number("mood")
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)

	_, ok = r.Number("energy")
	assert.False(t, ok)
	_, ok = r.Number("libido")
	assert.False(t, ok)
}

func TestParameters(t *testing.T) {
	params := Parameters([]Parameter{{Key: CustomParameterKey(1), Label: "Anxiety"}})
	require.Len(t, params, len(BaseParameters)+1)
	assert.Equal(t, "mood", params[0].Key)
	assert.Equal(t, "custom1", params[len(params)-1].Key)

	graph := GraphParameters(nil)
	assert.Equal(t, MetricCIMScore, graph[len(graph)-1].Key)
	assert.Len(t, BaseParameters, 6, "base list must not be mutated")
}

func TestCategory(t *testing.T) {
	assert.Equal(t, "mood", CategoryMood.Singular())
	assert.Equal(t, "dream", CategoryDreams.Singular())
	assert.False(t, Category("notes").Valid())
}
