package record

import (
	"bufio"
	"encoding/json"
	"strings"
)

// MetricsMarker prefixes the single metrics line at the end of an analysis.
const MetricsMarker = "METRICS:"

// ParseAnalysis splits raw analyzer output into the narrative shown to the
// user and the metrics object stored with the dream.
//
// The last line starting with MetricsMarker wins. Without a marker, the
// outermost {...} span is tried instead. If neither yields a JSON object the
// whole text is the narrative and metrics is empty. The returned metrics
// are never nil and carry cim_score when it can be derived.
func ParseAnalysis(raw string) (string, map[string]any) {
	if narrative, metrics, ok := parseMarkerLine(raw); ok {
		return narrative, ApplyCIM(metrics)
	}
	if narrative, metrics, ok := parseTrailingObject(raw); ok {
		return narrative, ApplyCIM(metrics)
	}
	return strings.TrimSpace(raw), map[string]any{}
}

func parseMarkerLine(raw string) (string, map[string]any, bool) {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		n := len(MetricsMarker)
		if len(line) < n || !strings.EqualFold(line[:n], MetricsMarker) {
			continue
		}
		payload := strings.TrimSpace(line[n:])
		metrics, ok := decodeObject(payload)
		if !ok {
			return "", nil, false
		}
		rest := append(append([]string{}, lines[:i]...), lines[i+1:]...)
		return strings.TrimSpace(strings.Join(rest, "\n")), metrics, true
	}
	return "", nil, false
}

func parseTrailingObject(raw string) (string, map[string]any, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", nil, false
	}
	metrics, ok := decodeObject(raw[start : end+1])
	if !ok {
		return "", nil, false
	}
	return strings.TrimSpace(raw[:start]), metrics, true
}

func decodeObject(s string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}
