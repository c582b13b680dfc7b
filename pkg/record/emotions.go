package record

import (
	"math"
	"strings"
)

// Emotions is the fixed vocabulary dream analyses draw their labels from.
var Emotions = []string{
	// negative
	"страх", "беспомощность", "тревога", "угроза", "горе", "потеря", "разочарование",
	"отстранённость", "стыд", "отвращение", "агрессия", "ярость", "вина", "смущение",
	"унижение", "зависть", "ревность", "паника",
	// positive
	"утешение", "любовь", "радость", "принятие", "сила", "уверенность", "надежда",
	"свобода", "восторг", "доверие", "игривость", "юмор", "вдохновение",
	// ambivalent
	"интерес", "удивление", "стремление", "ожидание", "ностальгия",
	"печальное умиротворение", "изумление", "тоска",
	// neutral
	"оцепенение", "пустота", "отрешённость", "тишина", "покой",
}

// coefficients maps an emotion to its valence. Anything not listed is 0.
var coefficients = map[string]float64{
	"страх":         -1.0,
	"горе":          -1.0,
	"отвращение":    -1.0,
	"вина":          -1.0,
	"беспомощность": -1.0,
	"стыд":          -0.5,
	"тревога":       -0.5,
	"тоска":         -0.5,
	"оцепенение":    0.0,
	"пустота":       0.0,
	"надежда":       0.5,
	"утешение":      0.5,
	"любовь":        1.0,
	"радость":       1.0,
	"сила":          1.0,
	"вдохновение":   1.0,
}

// Coefficient returns the valence of emotion. Lookup ignores case.
func Coefficient(emotion string) float64 {
	return coefficients[strings.ToLower(strings.TrimSpace(emotion))]
}

// CIMScore is intensity times the mean coefficient of emotions, rounded to
// two decimals. It reports false when emotions is empty.
func CIMScore(intensity float64, emotions []string) (float64, bool) {
	if len(emotions) == 0 {
		return 0, false
	}
	var sum float64
	for _, e := range emotions {
		sum += Coefficient(e)
	}
	score := intensity * sum / float64(len(emotions))
	return round2(score), true
}

// ApplyCIM sets metrics["cim_score"] when the metrics carry an intensity
// and at least one emotion. It returns the same map for chaining.
func ApplyCIM(metrics map[string]any) map[string]any {
	if metrics == nil {
		return metrics
	}
	intensity, ok := toFloat(metrics[MetricIntensity])
	if !ok {
		return metrics
	}
	if score, ok := CIMScore(intensity, EmotionList(metrics[MetricEmotions])); ok {
		metrics[MetricCIMScore] = score
	}
	return metrics
}

// EmotionList extracts emotion labels from a decoded metrics value. Both
// []string and JSON-decoded []any are accepted; non-string items are dropped.
func EmotionList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		// avoid -0 in JSON output
		return 0
	}
	return r
}
