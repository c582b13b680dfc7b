package credentials

import (
	"context"
	"time"

	"github.com/entrhq/moodjournal/pkg/i18n"
	"github.com/entrhq/moodjournal/pkg/logging"
	"github.com/entrhq/moodjournal/pkg/metrics"
	"github.com/entrhq/moodjournal/pkg/session"
	"github.com/entrhq/moodjournal/pkg/types"
)

// Kind says what a pending password prompt will do with the answer.
type Kind int

const (
	// KindSet stores a new password.
	KindSet Kind = iota + 1
	// KindLogin re-enters the password after a restart.
	KindLogin
)

func (k Kind) String() string {
	if k == KindLogin {
		return "login"
	}
	return "set"
}

func (k Kind) promptID() string {
	if k == KindLogin {
		return "pass_login_prompt"
	}
	return "pass_set_prompt"
}

func (k Kind) confirmID() string {
	if k == KindLogin {
		return "pass_login_ok"
	}
	return "pass_set_ok"
}

// Prompter asks users for passwords. At most one prompt is pending per user,
// so "set" and "login" waits never overlap; a new request supersedes the old
// one together with its timer.
type Prompter struct {
	cache     *Cache
	transport types.Transport
	loc       *i18n.Localizer
	logger    *logging.Logger
	timeout   time.Duration
	waits     *session.Registry[Kind]
}

// NewPrompter creates a prompter that gives users timeout to answer.
func NewPrompter(cache *Cache, transport types.Transport, loc *i18n.Localizer, logger *logging.Logger, timeout time.Duration) *Prompter {
	if logger == nil {
		logger = logging.Discard("credentials")
	}
	return &Prompter{
		cache:     cache,
		transport: transport,
		loc:       loc,
		logger:    logger,
		timeout:   timeout,
		waits:     session.NewRegistry[Kind](),
	}
}

// RequestSet prompts the user for a new password.
func (p *Prompter) RequestSet(ctx context.Context, userID int64) error {
	return p.request(ctx, userID, KindSet)
}

// RequestLogin prompts the user for their password.
func (p *Prompter) RequestLogin(ctx context.Context, userID int64) error {
	return p.request(ctx, userID, KindLogin)
}

func (p *Prompter) request(ctx context.Context, userID int64, kind Kind) error {
	h, replaced := p.waits.Begin(userID, kind)
	if replaced {
		p.logger.Debugf("password prompt for user %d superseded", userID)
	}
	if err := p.waits.Arm(h, p.timeout, p.expire); err != nil {
		return err
	}
	if _, err := p.transport.Send(ctx, userID, types.NewPromptMessage(p.loc.T(kind.promptID()))); err != nil {
		p.waits.Take(h)
		return err
	}
	return nil
}

// Pending reports the kind of the user's pending prompt.
func (p *Prompter) Pending(userID int64) (Kind, bool) {
	kind, _, ok := p.waits.Get(userID)
	return kind, ok
}

// HandleText consumes ev as a password if a prompt is pending for the user.
// The user's message is deleted from the transcript either way it resolves.
func (p *Prompter) HandleText(ctx context.Context, ev *types.Event) bool {
	if !ev.IsText() {
		return false
	}
	kind, h, ok := p.waits.Get(ev.UserID)
	if !ok {
		return false
	}
	if _, won := p.waits.Take(h); !won {
		// the timer got there first
		return false
	}
	metrics.SessionFinished("password", metrics.TriggerUser)
	p.accept(ctx, ev.UserID, kind, ev.Payload, ev.MessageID)
	return true
}

// Apply handles the one-message forms (/setpass <pw>, /login <pw>). Any
// pending prompt is dropped.
func (p *Prompter) Apply(ctx context.Context, userID int64, kind Kind, password string, messageID types.MessageID) {
	if _, ok := p.waits.Remove(userID); ok {
		metrics.SessionFinished("password", metrics.TriggerCancel)
	}
	p.accept(ctx, userID, kind, password, messageID)
}

func (p *Prompter) accept(ctx context.Context, userID int64, kind Kind, password string, messageID types.MessageID) {
	if messageID != 0 {
		if err := p.transport.Delete(ctx, userID, messageID); err != nil {
			p.logger.Warnf("delete password message for user %d: %v", userID, err)
		}
	}
	if password == "" {
		p.notify(ctx, userID, "pass_empty")
		return
	}
	p.cache.Set(userID, password)
	p.logger.Infof("password %s for user %d", kind, userID)
	p.notify(ctx, userID, kind.confirmID())
}

func (p *Prompter) expire(h session.Handle) {
	if _, ok := p.waits.Take(h); !ok {
		return
	}
	metrics.SessionFinished("password", metrics.TriggerTimeout)
	p.notify(context.Background(), h.UserID, "pass_timeout")
}

func (p *Prompter) notify(ctx context.Context, userID int64, id string) {
	if _, err := p.transport.Send(ctx, userID, types.NewTextMessage(p.loc.T(id))); err != nil {
		p.logger.Warnf("send %s to user %d: %v", id, userID, err)
	}
}

// Close disarms pending prompt timers.
func (p *Prompter) Close() {
	p.waits.Close()
}
