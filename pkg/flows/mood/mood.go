// Package mood implements the check-in wizard: one rating per parameter
// followed by a free-text summary, committed as a single mood record.
package mood

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/entrhq/moodjournal/pkg/i18n"
	"github.com/entrhq/moodjournal/pkg/logging"
	"github.com/entrhq/moodjournal/pkg/metrics"
	"github.com/entrhq/moodjournal/pkg/record"
	"github.com/entrhq/moodjournal/pkg/session"
	"github.com/entrhq/moodjournal/pkg/types"
)

// PayloadPrefix marks buttons that belong to the wizard.
const PayloadPrefix = "m_"

// unknownValue is the payload suffix for "no answer", stored as null.
const unknownValue = "x"

var errStale = errors.New("mood: stale button")

// Writer persists committed records.
type Writer interface {
	Write(ctx context.Context, userID int64, category record.Category, rec record.Record) error
}

// ParameterSource lists the parameters a user is asked about, in order.
type ParameterSource interface {
	Parameters(userID int64) []record.Parameter
}

type state struct {
	date     string
	params   []record.Parameter
	index    int
	values   map[string]any
	promptID types.MessageID
}

func (s *state) awaitingSummary() bool {
	return s.index >= len(s.params)
}

// Flow runs check-in sessions, at most one per user.
type Flow struct {
	writer    Writer
	params    ParameterSource
	transport types.Transport
	loc       *i18n.Localizer
	logger    *logging.Logger
	timeout   time.Duration
	now       func() time.Time
	onDone    func(ctx context.Context, userID int64)
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

// WithClock overrides the clock used to date new check-ins.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) {
		f.now = now
	}
}

// WithSummaryTimeout sets how long the summary prompt waits.
func WithSummaryTimeout(d time.Duration) Option {
	return func(f *Flow) {
		f.timeout = d
	}
}

// WithOnDone registers a callback run after a check-in is committed by the
// user. The bot uses it to show the main menu again.
func WithOnDone(fn func(ctx context.Context, userID int64)) Option {
	return func(f *Flow) {
		f.onDone = fn
	}
}

// New creates a check-in flow.
func New(writer Writer, params ParameterSource, transport types.Transport, loc *i18n.Localizer, opts ...Option) *Flow {
	f := &Flow{
		writer:    writer,
		params:    params,
		transport: transport,
		loc:       loc,
		timeout:   10 * time.Minute,
		now:       time.Now,
		sessions:  session.NewRegistry[state](),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logging.Discard("mood")
	}
	return f
}

// Start opens a check-in for the user. An empty date means today; otherwise
// date is an ISO date being backfilled. A running check-in is replaced.
func (f *Flow) Start(ctx context.Context, userID int64, date string) error {
	if date == "" {
		date = record.FormatDate(f.now())
	} else if _, err := record.ParseDate(date); err != nil {
		return err
	}
	params := f.params.Parameters(userID)
	if len(params) == 0 {
		return fmt.Errorf("mood: no parameters for user %d", userID)
	}

	_, replaced := f.sessions.Begin(userID, state{
		date:   date,
		params: params,
		values: make(map[string]any, len(params)),
	})
	if replaced {
		metrics.SessionFinished("mood", metrics.TriggerCancel)
		f.logger.Debugf("check-in for user %d restarted", userID)
	}
	return f.ask(ctx, userID, params, 0)
}

// Active reports whether the user has a check-in in progress.
func (f *Flow) Active(userID int64) bool {
	return f.sessions.Active(userID)
}

// AwaitingSummary reports whether the user's next text is the summary.
func (f *Flow) AwaitingSummary(userID int64) bool {
	st, _, ok := f.sessions.Get(userID)
	return ok && st.awaitingSummary()
}

func (f *Flow) ask(ctx context.Context, userID int64, params []record.Parameter, index int) error {
	p := params[index]
	msg := types.NewKeyboardMessage(
		f.loc.Tf("mood_param_prompt", f.label(p), index+1, len(params)),
		f.keyboard(p.Key),
	)
	id, err := f.transport.Send(ctx, userID, msg)
	if err != nil {
		return fmt.Errorf("mood: send prompt: %w", err)
	}
	_, err = f.sessions.Update(userID, func(s *state) error {
		if s.index == index {
			s.promptID = id
		}
		return nil
	})
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		return err
	}
	return nil
}

func (f *Flow) keyboard(key string) types.Keyboard {
	row := make([]types.Button, 0, record.MaxRating-record.MinRating+1)
	for v := record.MinRating; v <= record.MaxRating; v++ {
		row = append(row, types.Button{
			Text:    formatRating(v),
			Payload: fmt.Sprintf("%s%s_%d", PayloadPrefix, key, v),
		})
	}
	return types.Keyboard{
		row,
		types.Row(types.Button{
			Text:    f.loc.T("mood_unknown_button"),
			Payload: PayloadPrefix + key + "_" + unknownValue,
		}),
	}
}

// label localizes base parameters and shows custom ones as entered.
func (f *Flow) label(p record.Parameter) string {
	if id := "param_" + p.Key; f.loc.Has(id) {
		return f.loc.T(id)
	}
	return p.Label
}

func formatRating(v int) string {
	if v > 0 {
		return "+" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}

// parsePayload splits m_<key>_<value>. Keys may contain underscores.
func parsePayload(payload string) (key string, value any, ok bool) {
	rest, found := strings.CutPrefix(payload, PayloadPrefix)
	if !found {
		return "", nil, false
	}
	i := strings.LastIndexByte(rest, '_')
	if i <= 0 {
		return "", nil, false
	}
	key, raw := rest[:i], rest[i+1:]
	if raw == unknownValue {
		return key, nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < record.MinRating || n > record.MaxRating {
		return "", nil, false
	}
	return key, n, true
}

// HandleButton consumes wizard buttons. Buttons from an older prompt are
// consumed and ignored.
func (f *Flow) HandleButton(ctx context.Context, ev *types.Event) bool {
	if !ev.IsButton() || !strings.HasPrefix(ev.Payload, PayloadPrefix) {
		return false
	}
	key, value, ok := parsePayload(ev.Payload)
	if !ok {
		f.logger.Warnf("malformed mood payload %q from user %d", ev.Payload, ev.UserID)
		return true
	}

	var (
		answered record.Parameter
		promptID types.MessageID
		params   []record.Parameter
		next     int
	)
	h, err := f.sessions.Update(ev.UserID, func(s *state) error {
		if s.awaitingSummary() || s.params[s.index].Key != key {
			return errStale
		}
		answered = s.params[s.index]
		promptID = s.promptID
		s.values[key] = value
		s.index++
		params, next = s.params, s.index
		return nil
	})
	if err != nil {
		f.logger.Debugf("ignoring mood button %q from user %d: %v", ev.Payload, ev.UserID, err)
		return true
	}

	if promptID != 0 {
		text := f.loc.Tf("mood_answered", f.label(answered), f.formatValue(value))
		if err := f.transport.Edit(ctx, ev.UserID, promptID, types.NewTextMessage(text)); err != nil {
			f.logger.Warnf("edit mood prompt for user %d: %v", ev.UserID, err)
		}
	}

	if next < len(params) {
		if err := f.ask(ctx, ev.UserID, params, next); err != nil {
			f.logger.Warnf("ask next parameter of user %d: %v", ev.UserID, err)
		}
		return true
	}

	if err := f.sessions.Arm(h, f.timeout, f.expire); err != nil {
		f.logger.Debugf("arm summary timer for user %d: %v", ev.UserID, err)
		return true
	}
	f.send(ctx, ev.UserID, types.NewPromptMessage(f.loc.T("mood_summary_prompt")))
	return true
}

func (f *Flow) formatValue(v any) string {
	n, ok := v.(int)
	if !ok {
		return f.loc.T("mood_unknown_value")
	}
	return formatRating(n)
}

// HandleText consumes the summary when the wizard is waiting for one.
func (f *Flow) HandleText(ctx context.Context, ev *types.Event) bool {
	if !ev.IsText() {
		return false
	}
	st, h, ok := f.sessions.Get(ev.UserID)
	if !ok || !st.awaitingSummary() {
		return false
	}
	st, won := f.sessions.Take(h)
	if !won {
		return false
	}
	summary := ev.Payload
	if strings.TrimSpace(summary) == "" {
		summary = record.EmptySummary
	}
	metrics.SessionFinished("mood", metrics.TriggerUser)
	if f.commit(ctx, ev.UserID, st, summary) {
		f.send(ctx, ev.UserID, types.NewTextMessage(f.loc.Tf("mood_saved", st.date)))
		if f.onDone != nil {
			f.onDone(ctx, ev.UserID)
		}
	}
	return true
}

func (f *Flow) expire(h session.Handle) {
	st, ok := f.sessions.Take(h)
	if !ok {
		return
	}
	metrics.SessionFinished("mood", metrics.TriggerTimeout)
	ctx := context.Background()
	if f.commit(ctx, h.UserID, st, record.EmptySummary) {
		f.send(ctx, h.UserID, types.NewTextMessage(f.loc.Tf("mood_timeout", st.date)))
	}
}

func (f *Flow) commit(ctx context.Context, userID int64, st state, summary string) bool {
	rec := record.Record{
		record.KeyDate:    st.date,
		record.KeySummary: summary,
	}
	for _, p := range st.params {
		rec[p.Key] = st.values[p.Key]
	}
	if err := f.writer.Write(ctx, userID, record.CategoryMood, rec); err != nil {
		f.logger.Errorf("write check-in for user %d: %v", userID, err)
		f.send(ctx, userID, types.NewTextMessage(f.loc.T("error_generic")))
		return false
	}
	f.logger.Infof("check-in for %s committed for user %d", st.date, userID)
	return true
}

// Cancel drops the user's check-in. It reports whether one was running.
func (f *Flow) Cancel(userID int64) bool {
	if _, ok := f.sessions.Remove(userID); ok {
		metrics.SessionFinished("mood", metrics.TriggerCancel)
		return true
	}
	return false
}

func (f *Flow) send(ctx context.Context, userID int64, msg *types.OutgoingMessage) {
	if _, err := f.transport.Send(ctx, userID, msg); err != nil {
		f.logger.Warnf("send to user %d: %v", userID, err)
	}
}

// Close disarms all summary timers.
func (f *Flow) Close() {
	f.sessions.Close()
}
