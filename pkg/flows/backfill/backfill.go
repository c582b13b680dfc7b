// Package backfill offers the recent days that have no entry yet and hands
// the chosen day to the mood or dream flow.
package backfill

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/moodjournal/pkg/i18n"
	"github.com/entrhq/moodjournal/pkg/logging"
	"github.com/entrhq/moodjournal/pkg/record"
	"github.com/entrhq/moodjournal/pkg/types"
)

const (
	// Window is how many days back are checked, not counting today.
	Window = 30
	// PageSize caps the number of dates offered at once.
	PageSize = 16
	// calendarColumns is the number of date buttons per keyboard row.
	calendarColumns = 4
)

// Button payloads.
const (
	PayloadPrefix   = "missed_"
	PayloadMood     = PayloadPrefix + "mood"
	PayloadDreams   = PayloadPrefix + "dreams"
	MoodDatePrefix  = "ci_"
	DreamDatePrefix = "dr_"
	// BackPayload returns to the main menu; the bot owns it.
	BackPayload = "mg_back"
)

// Reader is the part of the record store backfill needs.
type Reader interface {
	ReadAll(ctx context.Context, userID int64, category record.Category) ([]record.Record, error)
	DayMarkers(ctx context.Context, userID int64, category record.Category) (map[string]bool, error)
}

// MoodStarter starts a check-in for an explicit date.
type MoodStarter interface {
	Start(ctx context.Context, userID int64, date string) error
}

// DreamOfferer shows the dream choices for an explicit date.
type DreamOfferer interface {
	Offer(ctx context.Context, userID int64, date string) error
}

// MissingDates returns the days in the Window before today that have neither
// a file named for that day nor a readable record dated that day, newest
// first.
func MissingDates(ctx context.Context, r Reader, userID int64, category record.Category, today time.Time) ([]time.Time, error) {
	present, err := r.DayMarkers(ctx, userID, category)
	if err != nil {
		return nil, fmt.Errorf("backfill: day markers: %w", err)
	}
	if present == nil {
		present = map[string]bool{}
	}
	recs, err := r.ReadAll(ctx, userID, category)
	if err != nil {
		return nil, fmt.Errorf("backfill: read %s: %w", category, err)
	}
	for _, rec := range recs {
		if d, ok := rec.Date(); ok {
			present[d] = true
		}
	}

	today = record.Day(today)
	missing := make([]time.Time, 0, Window)
	for i := 1; i <= Window; i++ {
		d := today.AddDate(0, 0, -i)
		if !present[record.FormatDate(d)] {
			missing = append(missing, d)
		}
	}
	return missing, nil
}

// Flow drives the backfill menus.
type Flow struct {
	reader    Reader
	mood      MoodStarter
	dream     DreamOfferer
	transport types.Transport
	loc       *i18n.Localizer
	logger    *logging.Logger
	now       func() time.Time
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the flow logger.
func WithLogger(l *logging.Logger) Option {
	return func(f *Flow) {
		f.logger = l
	}
}

// WithClock overrides the clock that defines "today".
func WithClock(now func() time.Time) Option {
	return func(f *Flow) {
		f.now = now
	}
}

// New creates a backfill flow.
func New(reader Reader, mood MoodStarter, dream DreamOfferer, transport types.Transport, loc *i18n.Localizer, opts ...Option) *Flow {
	f := &Flow{
		reader:    reader,
		mood:      mood,
		dream:     dream,
		transport: transport,
		loc:       loc,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logging.Discard("backfill")
	}
	return f
}

// Offer asks which category to fill in.
func (f *Flow) Offer(ctx context.Context, userID int64) error {
	kb := types.Keyboard{
		types.Row(types.Button{Text: f.loc.T("missed_btn_mood"), Payload: PayloadMood}),
		types.Row(types.Button{Text: f.loc.T("missed_btn_dreams"), Payload: PayloadDreams}),
		types.Row(types.Button{Text: f.loc.T("btn_back"), Payload: BackPayload}),
	}
	_, err := f.transport.Send(ctx, userID, types.NewKeyboardMessage(f.loc.T("missed_choose"), kb))
	return err
}

// ShowCalendar lists the missing dates of category as buttons.
func (f *Flow) ShowCalendar(ctx context.Context, userID int64, category record.Category) error {
	dates, err := MissingDates(ctx, f.reader, userID, category, f.now())
	if err != nil {
		return err
	}
	if len(dates) == 0 {
		_, err = f.transport.Send(ctx, userID, types.NewTextMessage(f.loc.T("missed_none")))
		return err
	}
	if len(dates) > PageSize {
		dates = dates[:PageSize]
	}

	prefix := MoodDatePrefix
	if category == record.CategoryDreams {
		prefix = DreamDatePrefix
	}
	buttons := make([]types.Button, len(dates))
	for i, d := range dates {
		buttons[i] = types.Button{Text: d.Format("02.01"), Payload: prefix + record.FormatDate(d)}
	}
	kb := types.Columns(buttons, calendarColumns)
	kb = append(kb, types.Row(types.Button{Text: f.loc.T("btn_back"), Payload: BackPayload}))
	_, err = f.transport.Send(ctx, userID, types.NewKeyboardMessage(f.loc.T("missed_pick_date"), kb))
	return err
}

// HandleButton consumes category and date buttons.
func (f *Flow) HandleButton(ctx context.Context, ev *types.Event) bool {
	if !ev.IsButton() {
		return false
	}
	var err error
	switch p := ev.Payload; {
	case p == PayloadMood:
		err = f.ShowCalendar(ctx, ev.UserID, record.CategoryMood)
	case p == PayloadDreams:
		err = f.ShowCalendar(ctx, ev.UserID, record.CategoryDreams)
	case strings.HasPrefix(p, MoodDatePrefix):
		err = f.mood.Start(ctx, ev.UserID, strings.TrimPrefix(p, MoodDatePrefix))
	case strings.HasPrefix(p, DreamDatePrefix):
		err = f.dream.Offer(ctx, ev.UserID, strings.TrimPrefix(p, DreamDatePrefix))
	default:
		return false
	}
	if err != nil {
		f.logger.Warnf("backfill %q for user %d: %v", ev.Payload, ev.UserID, err)
		if _, sendErr := f.transport.Send(ctx, ev.UserID, types.NewTextMessage(f.loc.T("error_generic"))); sendErr != nil {
			f.logger.Warnf("send to user %d: %v", ev.UserID, sendErr)
		}
	}
	return true
}
