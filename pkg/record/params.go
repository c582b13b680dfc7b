package record

import "fmt"

// Parameter is one rated dimension of a mood check-in.
type Parameter struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// BaseParameters are asked in every mood check-in, in this order.
var BaseParameters = []Parameter{
	{Key: "mood", Label: "Mood"},
	{Key: "energy", Label: "Energy"},
	{Key: "libido", Label: "Libido"},
	{Key: "thought_speed", Label: "Thought speed"},
	{Key: "impulsivity", Label: "Impulsivity"},
	{Key: "irritability", Label: "Irritability"},
}

// Rating bounds for a parameter answer.
const (
	MinRating = -3
	MaxRating = 3
)

// CustomParameterKey returns the key assigned to the n-th (1-based) custom
// parameter of a user.
func CustomParameterKey(n int) string {
	return fmt.Sprintf("custom%d", n)
}

// Parameters returns the base parameters followed by custom ones.
func Parameters(custom []Parameter) []Parameter {
	out := make([]Parameter, 0, len(BaseParameters)+len(custom))
	out = append(out, BaseParameters...)
	return append(out, custom...)
}

// GraphParameters are the series a user can chart: their check-in
// parameters plus the dream intensity and CIM score.
func GraphParameters(custom []Parameter) []Parameter {
	return append(Parameters(custom),
		Parameter{Key: MetricIntensity, Label: "Dream intensity"},
		Parameter{Key: MetricCIMScore, Label: "CIM score"},
	)
}
