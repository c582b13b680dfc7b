package bot

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/entrhq/moodjournal/pkg/credentials"
	"github.com/entrhq/moodjournal/pkg/record"
	"github.com/entrhq/moodjournal/pkg/storage"
	"github.com/entrhq/moodjournal/pkg/types"
)

// CommandHandler runs a slash command. args is the trimmed text after the
// command name.
type CommandHandler func(b *Bot, ctx context.Context, ev *types.Event, args string)

// Command is a registered slash command.
type Command struct {
	Name        string // without the slash
	Description string
	Handler     CommandHandler
}

func builtinCommands() map[string]*Command {
	cmds := []*Command{
		{Name: "start", Description: "Greeting and main menu", Handler: handleStart},
		{Name: "menu", Description: "Main menu", Handler: handleMenuCommand},
		{Name: "checkin", Description: "Mood check-in", Handler: handleCheckin},
		{Name: "dream", Description: "Record a dream, optionally inline", Handler: handleDream},
		{Name: "done", Description: "Finish the dream being recorded", Handler: handleDone},
		{Name: "dreams", Description: "Dream archive", Handler: handleDreams},
		{Name: "missed", Description: "Fill in missed days", Handler: handleMissed},
		{Name: "setpass", Description: "Set the encryption password", Handler: handleSetPass},
		{Name: "login", Description: "Enter the password after a restart", Handler: handleLogin},
		{Name: "register", Description: "How encryption works", Handler: handleRegister},
		{Name: "set", Description: "Reminder times: /set HH:MM HH:MM", Handler: handleSet},
		{Name: "param", Description: "Add a custom check-in parameter", Handler: handleParam},
		{Name: "stats", Description: "Emotion statistics", Handler: handleStats},
		{Name: "export", Description: "Download all your data", Handler: handleExport},
		{Name: "cancel", Description: "Abort the current conversation", Handler: handleCancel},
	}
	registry := make(map[string]*Command, len(cmds))
	for _, c := range cmds {
		registry[c.Name] = c
	}
	return registry
}

// Commands lists the registered commands by name.
func (b *Bot) Commands() []Command {
	out := make([]Command, 0, len(b.commands))
	for _, c := range b.commands {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (b *Bot) runCommand(ctx context.Context, ev *types.Event) {
	name, args := ev.Command()
	cmd, ok := b.commands[name]
	if !ok {
		b.reply(ctx, ev.UserID, b.loc.T("unknown_command"))
		return
	}
	b.logger.Debugf("user %d ran /%s", ev.UserID, name)
	cmd.Handler(b, ctx, ev, args)
}

func handleStart(b *Bot, ctx context.Context, ev *types.Event, _ string) {
	b.reply(ctx, ev.UserID, b.loc.T("start_greeting"))
	b.showMenu(ctx, ev.UserID)
}

func handleMenuCommand(b *Bot, ctx context.Context, ev *types.Event, _ string) {
	b.showMenu(ctx, ev.UserID)
}

func handleCheckin(b *Bot, ctx context.Context, ev *types.Event, _ string) {
	if err := b.mood.Start(ctx, ev.UserID, ""); err != nil {
		b.fail(ctx, ev.UserID, "start check-in", err)
	}
}

func handleDream(b *Bot, ctx context.Context, ev *types.Event, args string) {
	var err error
	if args != "" {
		err = b.dream.CommitText(ctx, ev.UserID, args, "")
	} else {
		err = b.dream.Offer(ctx, ev.UserID, "")
	}
	if err != nil {
		b.fail(ctx, ev.UserID, "dream", err)
	}
}

func handleDone(b *Bot, ctx context.Context, ev *types.Event, _ string) {
	if !b.dream.Finish(ctx, ev.UserID) {
		b.reply(ctx, ev.UserID, b.loc.T("dream_not_recording"))
	}
}

func handleDreams(b *Bot, ctx context.Context, ev *types.Event, _ string) {
	b.showArchive(ctx, ev.UserID, "0")
}

func handleMissed(b *Bot, ctx context.Context, ev *types.Event, _ string) {
	if err := b.backfill.Offer(ctx, ev.UserID); err != nil {
		b.fail(ctx, ev.UserID, "offer backfill", err)
	}
}

func handleSetPass(b *Bot, ctx context.Context, ev *types.Event, args string) {
	b.password(ctx, ev, credentials.KindSet, args)
}

func handleLogin(b *Bot, ctx context.Context, ev *types.Event, args string) {
	b.password(ctx, ev, credentials.KindLogin, args)
}

func (b *Bot) password(ctx context.Context, ev *types.Event, kind credentials.Kind, args string) {
	if args != "" {
		b.prompter.Apply(ctx, ev.UserID, kind, args, ev.MessageID)
		return
	}
	b.requestPassword(ctx, ev.UserID, kind)
}

func (b *Bot) requestPassword(ctx context.Context, userID int64, kind credentials.Kind) {
	request := b.prompter.RequestSet
	if kind == credentials.KindLogin {
		request = b.prompter.RequestLogin
	}
	if err := request(ctx, userID); err != nil {
		b.fail(ctx, userID, "password prompt", err)
	}
}

func handleRegister(b *Bot, ctx context.Context, ev *types.Event, _ string) {
	b.reply(ctx, ev.UserID, b.loc.T("pass_register"))
}

func handleSet(b *Bot, ctx context.Context, ev *types.Event, args string) {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		b.reply(ctx, ev.UserID, b.loc.T("set_usage"))
		return
	}
	err := b.store.Settings().SetReminderTimes(ev.UserID, parts[0], parts[1])
	switch {
	case errors.Is(err, storage.ErrInvalidTime):
		b.reply(ctx, ev.UserID, b.loc.T("set_usage"))
	case err != nil:
		b.fail(ctx, ev.UserID, "save reminder times", err)
	default:
		b.reply(ctx, ev.UserID, b.loc.Tf("set_ok", parts[0], parts[1]))
	}
}

func handleParam(b *Bot, ctx context.Context, ev *types.Event, args string) {
	if args == "" {
		b.reply(ctx, ev.UserID, b.loc.T("param_usage"))
		return
	}
	if _, err := b.store.Settings().AddCustomParam(ev.UserID, args); err != nil {
		b.fail(ctx, ev.UserID, "add parameter", err)
		return
	}
	b.reply(ctx, ev.UserID, b.loc.Tf("param_added", args))
}

func handleStats(b *Bot, ctx context.Context, ev *types.Event, _ string) {
	b.showStats(ctx, ev.UserID)
}

func handleExport(b *Bot, ctx context.Context, ev *types.Event, _ string) {
	b.export(ctx, ev.UserID)
}

func (b *Bot) export(ctx context.Context, userID int64) {
	path, err := b.store.Export(ctx, userID)
	if errors.Is(err, storage.ErrNothingToExport) {
		b.reply(ctx, userID, b.loc.T("export_empty"))
		return
	}
	if err != nil {
		b.fail(ctx, userID, "export", err)
		return
	}
	if err := b.transport.SendDocument(ctx, userID, path); err != nil {
		b.fail(ctx, userID, "send export", err)
		return
	}
	b.reply(ctx, userID, b.loc.T("export_ready"))
}

func handleCancel(b *Bot, ctx context.Context, ev *types.Event, _ string) {
	cancelled := b.mood.Cancel(ev.UserID)
	if b.dream.Cancel(ev.UserID) {
		cancelled = true
	}
	if cancelled {
		b.reply(ctx, ev.UserID, b.loc.T("cancelled"))
		return
	}
	b.reply(ctx, ev.UserID, b.loc.T("nothing_to_cancel"))
}

// paramLabel localizes base and metric parameters; custom ones keep the
// label the user gave them.
func (b *Bot) paramLabel(p record.Parameter) string {
	if id := "param_" + p.Key; b.loc.Has(id) {
		return b.loc.T(id)
	}
	return p.Label
}
