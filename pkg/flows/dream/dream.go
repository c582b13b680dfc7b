// Package dream records dreams: a free-form multi-message recording that is
// analyzed once when it ends, or a one-tap label for nights with nothing to
// tell.
package dream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/moodjournal/pkg/analysis"
	"github.com/entrhq/moodjournal/pkg/i18n"
	"github.com/entrhq/moodjournal/pkg/logging"
	"github.com/entrhq/moodjournal/pkg/metrics"
	"github.com/entrhq/moodjournal/pkg/record"
	"github.com/entrhq/moodjournal/pkg/session"
	"github.com/entrhq/moodjournal/pkg/types"
)

// PayloadPrefix marks buttons that belong to the dream flow.
const PayloadPrefix = "dream_"

// Button actions. Payloads are dream_<action>:<date>, except finish.
const (
	ActionWrite  = "write"
	ActionNone   = "none"
	ActionLazy   = "lazy"
	ActionFrag   = "frag"
	ActionCustom = "custom"
	ActionFinish = "finish"
)

// FinishPayload ends the current recording.
const FinishPayload = PayloadPrefix + ActionFinish

// Writer persists committed records.
type Writer interface {
	Write(ctx context.Context, userID int64, category record.Category, rec record.Record) error
}

type mode int

const (
	modeRecording mode = iota
	modeLabeling
)

type state struct {
	mode  mode
	date  string
	lines []string
}

// Flow runs dream sessions, at most one per user.
type Flow struct {
	writer    Writer
	analyzer  analysis.Analyzer
	transport types.Transport
	loc       *i18n.Localizer
	logger    *logging.Logger
	timeout   time.Duration
	now       func() time.Time
	sessions  *session.Registry[state]
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the flow logger.
func WithLogger(l *logging.Logger) Option {
	return func(f *Flow) {
		f.logger = l
	}
}

// WithClock overrides the clock used when no date is given.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) {
		f.now = now
	}
}

// WithInactivityTimeout sets how long a recording waits for the next line.
func WithInactivityTimeout(d time.Duration) Option {
	return func(f *Flow) {
		f.timeout = d
	}
}

// New creates a dream flow.
func New(writer Writer, analyzer analysis.Analyzer, transport types.Transport, loc *i18n.Localizer, opts ...Option) *Flow {
	f := &Flow{
		writer:    writer,
		analyzer:  analyzer,
		transport: transport,
		loc:       loc,
		timeout:   15 * time.Minute,
		now:       time.Now,
		sessions:  session.NewRegistry[state](),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logging.Discard("dream")
	}
	if f.analyzer == nil {
		f.analyzer = analysis.Disabled{}
	}
	return f
}

func (f *Flow) resolveDate(date string) (string, error) {
	if date == "" {
		return record.FormatDate(f.now()), nil
	}
	if _, err := record.ParseDate(date); err != nil {
		return "", err
	}
	return date, nil
}

// Offer shows the choice between writing a dream down and the quick labels.
func (f *Flow) Offer(ctx context.Context, userID int64, date string) error {
	date, err := f.resolveDate(date)
	if err != nil {
		return err
	}
	button := func(action string) types.Button {
		return types.Button{
			Text:    f.loc.T("dream_btn_" + action),
			Payload: PayloadPrefix + action + ":" + date,
		}
	}
	kb := types.Keyboard{
		types.Row(button(ActionWrite)),
		types.Row(button(ActionNone), button(ActionLazy)),
		types.Row(button(ActionFrag), button(ActionCustom)),
	}
	_, err = f.transport.Send(ctx, userID, types.NewKeyboardMessage(f.loc.Tf("dream_offer", date), kb))
	return err
}

// StartRecording begins collecting dream text for date. A running session is
// replaced.
func (f *Flow) StartRecording(ctx context.Context, userID int64, date string) error {
	date, err := f.resolveDate(date)
	if err != nil {
		return err
	}
	f.begin(userID, state{mode: modeRecording, date: date})
	kb := types.Keyboard{types.Row(types.Button{Text: f.loc.T("dream_btn_finish"), Payload: FinishPayload})}
	_, err = f.transport.Send(ctx, userID, types.NewKeyboardMessage(f.loc.T("dream_recording"), kb))
	return err
}

func (f *Flow) begin(userID int64, st state) {
	h, replaced := f.sessions.Begin(userID, st)
	if replaced {
		metrics.SessionFinished("dream", metrics.TriggerCancel)
	}
	if err := f.sessions.Arm(h, f.timeout, f.expire); err != nil {
		f.logger.Debugf("arm dream timer for user %d: %v", userID, err)
	}
}

// Recording reports whether the user is dictating a dream.
func (f *Flow) Recording(userID int64) bool {
	st, _, ok := f.sessions.Get(userID)
	return ok && st.mode == modeRecording
}

// Active reports whether the user has any dream session.
func (f *Flow) Active(userID int64) bool {
	return f.sessions.Active(userID)
}

func parsePayload(payload string) (action, date string, ok bool) {
	rest, found := strings.CutPrefix(payload, PayloadPrefix)
	if !found {
		return "", "", false
	}
	action, date, _ = strings.Cut(rest, ":")
	return action, date, action != ""
}

// HandleButton consumes dream buttons.
func (f *Flow) HandleButton(ctx context.Context, ev *types.Event) bool {
	if !ev.IsButton() {
		return false
	}
	action, date, ok := parsePayload(ev.Payload)
	if !ok {
		return false
	}

	var err error
	switch action {
	case ActionWrite:
		err = f.StartRecording(ctx, ev.UserID, date)
	case ActionNone, ActionLazy, ActionFrag:
		err = f.WriteLabel(ctx, ev.UserID, date, f.loc.T("dream_label_"+action))
	case ActionCustom:
		err = f.startLabeling(ctx, ev.UserID, date)
	case ActionFinish:
		if !f.Finish(ctx, ev.UserID) {
			f.send(ctx, ev.UserID, types.NewTextMessage(f.loc.T("dream_not_recording")))
		}
	default:
		f.logger.Warnf("unknown dream action %q from user %d", action, ev.UserID)
	}
	if err != nil {
		f.logger.Warnf("dream %s for user %d: %v", action, ev.UserID, err)
		f.send(ctx, ev.UserID, types.NewTextMessage(f.loc.T("error_generic")))
	}
	return true
}

func (f *Flow) startLabeling(ctx context.Context, userID int64, date string) error {
	date, err := f.resolveDate(date)
	if err != nil {
		return err
	}
	f.begin(userID, state{mode: modeLabeling, date: date})
	_, err = f.transport.Send(ctx, userID, types.NewPromptMessage(f.loc.T("dream_custom_prompt")))
	return err
}

// HandleText appends a line to a recording, or takes a custom label.
func (f *Flow) HandleText(ctx context.Context, ev *types.Event) bool {
	if !ev.IsText() {
		return false
	}
	st, h, ok := f.sessions.Get(ev.UserID)
	if !ok {
		return false
	}

	if st.mode == modeLabeling {
		st, won := f.sessions.Take(h)
		if !won {
			return false
		}
		metrics.SessionFinished("dream_label", metrics.TriggerUser)
		label := strings.TrimSpace(ev.Payload)
		if label == "" {
			label = f.loc.T("dream_label_none")
		}
		if err := f.writeLabel(ctx, ev.UserID, st.date, label); err != nil {
			f.logger.Errorf("write dream label for user %d: %v", ev.UserID, err)
			f.send(ctx, ev.UserID, types.NewTextMessage(f.loc.T("error_generic")))
		}
		return true
	}

	h, err := f.sessions.Update(ev.UserID, func(s *state) error {
		s.lines = append(s.lines, ev.Payload)
		return nil
	})
	if err != nil {
		return false
	}
	if err := f.sessions.Arm(h, f.timeout, f.expire); err != nil {
		f.logger.Debugf("re-arm dream timer for user %d: %v", ev.UserID, err)
	}
	return true
}

// Finish ends the user's recording and commits it. It reports whether a
// recording was running.
func (f *Flow) Finish(ctx context.Context, userID int64) bool {
	st, h, ok := f.sessions.Get(userID)
	if !ok || st.mode != modeRecording {
		return false
	}
	st, won := f.sessions.Take(h)
	if !won {
		return false
	}
	metrics.SessionFinished("dream", metrics.TriggerUser)
	f.commit(ctx, userID, st)
	return true
}

func (f *Flow) expire(h session.Handle) {
	st, ok := f.sessions.Take(h)
	if !ok {
		return
	}
	ctx := context.Background()
	if st.mode == modeLabeling {
		metrics.SessionFinished("dream_label", metrics.TriggerTimeout)
		return
	}
	metrics.SessionFinished("dream", metrics.TriggerTimeout)
	f.send(ctx, h.UserID, types.NewTextMessage(f.loc.T("dream_timeout")))
	f.commit(ctx, h.UserID, st)
}

// CommitText records a dream given in one message, replacing any session.
func (f *Flow) CommitText(ctx context.Context, userID int64, text, date string) error {
	date, err := f.resolveDate(date)
	if err != nil {
		return err
	}
	f.Cancel(userID)
	f.commit(ctx, userID, state{mode: modeRecording, date: date, lines: []string{text}})
	return nil
}

func (f *Flow) commit(ctx context.Context, userID int64, st state) {
	text := strings.Join(st.lines, "\n")
	if strings.TrimSpace(text) == "" {
		rec := record.Record{
			record.KeyDate:     st.date,
			record.KeyDream:    "",
			record.KeyAnalysis: "",
			record.KeyMetrics:  map[string]any{},
		}
		if f.write(ctx, userID, rec) {
			f.send(ctx, userID, types.NewTextMessage(f.loc.Tf("dream_empty", st.date)))
		}
		return
	}

	f.send(ctx, userID, types.NewTextMessage(f.loc.T("dream_analyzing")))
	narrative, m := record.ParseAnalysis(f.analyzer.Analyze(ctx, text))
	rec := record.Record{
		record.KeyDate:     st.date,
		record.KeyDream:    text,
		record.KeyAnalysis: narrative,
		record.KeyMetrics:  m,
	}
	if !f.write(ctx, userID, rec) {
		return
	}
	for _, part := range types.SplitText(narrative, types.MaxTextLength) {
		f.send(ctx, userID, types.NewTextMessage(part))
	}
	if summary := f.metricsSummary(m); summary != "" {
		f.send(ctx, userID, types.NewTextMessage(summary))
	}
	f.send(ctx, userID, types.NewTextMessage(f.loc.Tf("dream_saved", st.date)))
}

func (f *Flow) metricsSummary(m map[string]any) string {
	var lines []string
	if v, ok := m[record.MetricCIMScore]; ok {
		lines = append(lines, f.loc.Tf("metric_cim", v))
	}
	if v, ok := m[record.MetricIntensity]; ok {
		lines = append(lines, f.loc.Tf("metric_intensity", v))
	}
	if emotions := record.EmotionList(m[record.MetricEmotions]); len(emotions) > 0 {
		lines = append(lines, f.loc.Tf("metric_emotions", strings.Join(emotions, ", ")))
	}
	return strings.Join(lines, "\n")
}

// WriteLabel stores a quick label for a night without a written dream. Any
// dream session of the user is dropped.
func (f *Flow) WriteLabel(ctx context.Context, userID int64, date, label string) error {
	date, err := f.resolveDate(date)
	if err != nil {
		return err
	}
	f.Cancel(userID)
	return f.writeLabel(ctx, userID, date, label)
}

func (f *Flow) writeLabel(ctx context.Context, userID int64, date, label string) error {
	rec := record.Record{
		record.KeyDate:     date,
		record.KeyDream:    label,
		record.KeyAnalysis: record.NoAnalysis,
		record.KeyMetrics:  map[string]any{},
	}
	if err := f.writer.Write(ctx, userID, record.CategoryDreams, rec); err != nil {
		return fmt.Errorf("dream: write label: %w", err)
	}
	f.send(ctx, userID, types.NewTextMessage(f.loc.Tf("dream_label_saved", label, date)))
	return nil
}

func (f *Flow) write(ctx context.Context, userID int64, rec record.Record) bool {
	if err := f.writer.Write(ctx, userID, record.CategoryDreams, rec); err != nil {
		f.logger.Errorf("write dream for user %d: %v", userID, err)
		f.send(ctx, userID, types.NewTextMessage(f.loc.T("error_generic")))
		return false
	}
	f.logger.Infof("dream for %s committed for user %d", rec[record.KeyDate], userID)
	return true
}

// Cancel drops the user's dream session without writing. It reports whether
// one was running.
func (f *Flow) Cancel(userID int64) bool {
	if _, ok := f.sessions.Remove(userID); ok {
		metrics.SessionFinished("dream", metrics.TriggerCancel)
		return true
	}
	return false
}

func (f *Flow) send(ctx context.Context, userID int64, msg *types.OutgoingMessage) {
	if _, err := f.transport.Send(ctx, userID, msg); err != nil {
		f.logger.Warnf("send to user %d: %v", userID, err)
	}
}

// Close disarms all recording timers.
func (f *Flow) Close() {
	f.sessions.Close()
}
