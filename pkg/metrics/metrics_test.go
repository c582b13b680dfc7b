package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(recordsWritten.WithLabelValues("mood", "true"))
	RecordWritten("mood", true)
	assert.Equal(t, before+1, testutil.ToFloat64(recordsWritten.WithLabelValues("mood", "true")))

	before = testutil.ToFloat64(linesSkipped.WithLabelValues("dreams", SkipDecrypt))
	LineSkipped("dreams", SkipDecrypt)
	LineSkipped("dreams", SkipDecrypt)
	assert.Equal(t, before+2, testutil.ToFloat64(linesSkipped.WithLabelValues("dreams", SkipDecrypt)))

	before = testutil.ToFloat64(sessionsFinished.WithLabelValues("mood", TriggerTimeout))
	SessionFinished("mood", TriggerTimeout)
	assert.Equal(t, before+1, testutil.ToFloat64(sessionsFinished.WithLabelValues("mood", TriggerTimeout)))

	before = testutil.ToFloat64(analysisRequests.WithLabelValues("ok"))
	AnalysisDone("ok", 2*time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(analysisRequests.WithLabelValues("ok")))
}
