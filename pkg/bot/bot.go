// Package bot dispatches chat events to the journal flows. It owns
// authorization, slash commands, the main menu and the read-only views.
package bot

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/entrhq/moodjournal/pkg/analysis"
	"github.com/entrhq/moodjournal/pkg/config"
	"github.com/entrhq/moodjournal/pkg/credentials"
	"github.com/entrhq/moodjournal/pkg/flows/backfill"
	"github.com/entrhq/moodjournal/pkg/flows/dream"
	"github.com/entrhq/moodjournal/pkg/flows/mood"
	"github.com/entrhq/moodjournal/pkg/i18n"
	"github.com/entrhq/moodjournal/pkg/logging"
	"github.com/entrhq/moodjournal/pkg/storage"
	"github.com/entrhq/moodjournal/pkg/types"
)

// Bot routes events from one transport.
type Bot struct {
	store     *storage.Store
	transport types.Transport
	loc       *i18n.Localizer
	logger    *logging.Logger
	authorize func(userID int64) bool
	now       func() time.Time
	chartDir  string
	timeouts  config.TimeoutsConfig

	prompter *credentials.Prompter
	mood     *mood.Flow
	dream    *dream.Flow
	backfill *backfill.Flow
	commands map[string]*Command
}

// Option configures a Bot.
type Option func(*Bot)

// WithLogger sets the bot logger. Flows log under sub-components of it.
func WithLogger(l *logging.Logger) Option {
	return func(b *Bot) {
		b.logger = l
	}
}

// WithAuthorizer restricts the bot to users for which fn returns true.
// Events from anyone else are dropped without a reply.
func WithAuthorizer(fn func(userID int64) bool) Option {
	return func(b *Bot) {
		b.authorize = fn
	}
}

// WithTimeouts sets the conversation timeouts.
func WithTimeouts(t config.TimeoutsConfig) Option {
	return func(b *Bot) {
		b.timeouts = t
	}
}

// WithClock overrides the clock used for "today".
func WithClock(now func() time.Time) Option {
	return func(b *Bot) {
		b.now = now
	}
}

// WithChartDir sets where chart images are rendered.
func WithChartDir(dir string) Option {
	return func(b *Bot) {
		b.chartDir = dir
	}
}

// New wires the flows around store and transport. cache must be the same
// credential cache the store encrypts with.
func New(store *storage.Store, cache *credentials.Cache, analyzer analysis.Analyzer, transport types.Transport, loc *i18n.Localizer, opts ...Option) *Bot {
	b := &Bot{
		store:     store,
		transport: transport,
		loc:       loc,
		authorize: func(int64) bool { return true },
		now:       time.Now,
		chartDir:  os.TempDir(),
		timeouts:  config.Default().Timeouts,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logging.Discard("bot")
	}

	b.prompter = credentials.NewPrompter(cache, transport, loc, b.logger.With("credentials"), b.timeouts.Password)
	b.mood = mood.New(store, store.Settings(), transport, loc,
		mood.WithLogger(b.logger.With("mood")),
		mood.WithClock(b.now),
		mood.WithSummaryTimeout(b.timeouts.Summary),
		mood.WithOnDone(b.showMenu),
	)
	b.dream = dream.New(store, analyzer, transport, loc,
		dream.WithLogger(b.logger.With("dream")),
		dream.WithClock(b.now),
		dream.WithInactivityTimeout(b.timeouts.Dream),
	)
	b.backfill = backfill.New(store, b.mood, b.dream, transport, loc,
		backfill.WithLogger(b.logger.With("backfill")),
		backfill.WithClock(b.now),
	)
	b.commands = builtinCommands()
	return b
}

// Handle processes one event. Events of a single user must not be handled
// concurrently; events of different users may be.
func (b *Bot) Handle(ctx context.Context, ev *types.Event) {
	if ev == nil {
		return
	}
	if !b.authorize(ev.UserID) {
		b.logger.Debugf("dropping event from unauthorized user %d", ev.UserID)
		return
	}
	switch {
	case ev.IsButton():
		b.handleButton(ctx, ev)
	case ev.IsText():
		b.handleText(ctx, ev)
	}
}

// handleText tries, in order: a pending password prompt, a slash command,
// the dream recorder, the mood summary. Anything left gets a hint.
func (b *Bot) handleText(ctx context.Context, ev *types.Event) {
	if b.prompter.HandleText(ctx, ev) {
		return
	}
	if ev.IsCommand() {
		b.runCommand(ctx, ev)
		return
	}
	if b.dream.HandleText(ctx, ev) {
		return
	}
	if b.mood.HandleText(ctx, ev) {
		return
	}
	b.reply(ctx, ev.UserID, b.loc.T("hint"))
}

func (b *Bot) handleButton(ctx context.Context, ev *types.Event) {
	p := ev.Payload
	switch {
	case strings.HasPrefix(p, menuPrefix):
		b.handleMenu(ctx, ev.UserID, strings.TrimPrefix(p, menuPrefix))
	case strings.HasPrefix(p, passPrefix):
		b.handlePassword(ctx, ev.UserID, strings.TrimPrefix(p, passPrefix))
	case strings.HasPrefix(p, chartPeriodPrefix):
		b.handleChartPeriod(ctx, ev.UserID, strings.TrimPrefix(p, chartPeriodPrefix))
	case strings.HasPrefix(p, chartParamPrefix):
		b.offerPeriods(ctx, ev.UserID, strings.TrimPrefix(p, chartParamPrefix))
	case strings.HasPrefix(p, spectrumPrefix):
		b.sendSpectrum(ctx, ev.UserID, strings.TrimPrefix(p, spectrumPrefix))
	case strings.HasPrefix(p, showDreamPrefix):
		b.showDreams(ctx, ev.UserID, strings.TrimPrefix(p, showDreamPrefix))
	case strings.HasPrefix(p, dreamPagePrefix):
		b.showArchive(ctx, ev.UserID, strings.TrimPrefix(p, dreamPagePrefix))
	default:
		if !b.mood.HandleButton(ctx, ev) && !b.dream.HandleButton(ctx, ev) && !b.backfill.HandleButton(ctx, ev) {
			b.logger.Warnf("unhandled button %q from user %d", p, ev.UserID)
		}
	}
}

// reply sends text, split into as many messages as it needs.
func (b *Bot) reply(ctx context.Context, userID int64, text string) {
	for _, part := range types.SplitText(text, types.MaxTextLength) {
		b.send(ctx, userID, types.NewTextMessage(part))
	}
}

func (b *Bot) send(ctx context.Context, userID int64, msg *types.OutgoingMessage) {
	if _, err := b.transport.Send(ctx, userID, msg); err != nil {
		b.logger.Warnf("send to user %d: %v", userID, err)
	}
}

func (b *Bot) fail(ctx context.Context, userID int64, what string, err error) {
	b.logger.Errorf("%s for user %d: %v", what, userID, err)
	b.reply(ctx, userID, b.loc.T("error_generic"))
}

// Close stops all conversation timers.
func (b *Bot) Close() {
	b.prompter.Close()
	b.mood.Close()
	b.dream.Close()
}
