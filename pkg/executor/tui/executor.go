// Package tui provides a full-screen terminal front end for the journal,
// built on Bubble Tea.
//
// The package is split into:
// - executor.go: program lifecycle and the event worker
// - model.go: Bubble Tea model, update and view
// - styles.go: color scheme and styles
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/moodjournal/pkg/executor"
	"github.com/entrhq/moodjournal/pkg/logging"
	"github.com/entrhq/moodjournal/pkg/types"
)

// queueSize bounds the lines typed ahead while the bot is busy.
const queueSize = 16

// Executor runs the Bubble Tea program. Events reach the handler from a
// single worker goroutine, so one user's events are never handled
// concurrently.
type Executor struct {
	handler executor.Handler
	console *executor.Console
	logger  *logging.Logger
	program *tea.Program
	opts    []tea.ProgramOption
}

// NewExecutor creates a TUI executor. console must be the transport the
// handler sends through.
func NewExecutor(handler executor.Handler, console *executor.Console, logger *logging.Logger) *Executor {
	if logger == nil {
		logger = logging.Discard("tui")
	}
	return &Executor{
		handler: handler,
		console: console,
		logger:  logger,
		opts:    []tea.ProgramOption{tea.WithAltScreen()},
	}
}

// Run starts the program and blocks until the user quits or ctx ends.
func (e *Executor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	work := make(chan string, queueSize)
	m := newModel(func(s string) bool {
		select {
		case work <- s:
			return true
		default:
			return false
		}
	})
	e.program = tea.NewProgram(m, append(e.opts, tea.WithContext(ctx))...)

	e.console.Attach(func(entry executor.Entry) {
		msg := entryMsg{entry: entry}
		if entry.Kind == executor.EntryDocument {
			if err := clipboard.WriteAll(entry.Path); err != nil {
				e.logger.Debugf("copy export path: %v", err)
			} else {
				msg.copied = true
			}
		}
		e.program.Send(msg)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.work(ctx, work)
	}()

	_, err := e.program.Run()
	cancel()
	<-done
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run TUI program: %w", err)
	}
	return nil
}

func (e *Executor) work(ctx context.Context, lines <-chan string) {
	var msgID types.MessageID
	next := func() types.MessageID {
		msgID++
		return msgID
	}

	e.handler.Handle(ctx, types.NewTextEvent(e.console.UserID(), next(), "/start"))
	for {
		select {
		case <-ctx.Done():
			return
		case line := <-lines:
			ev, err := e.console.Event(line, next())
			if err != nil {
				e.program.Send(inputErrMsg{err: err})
				continue
			}
			e.handler.Handle(ctx, ev)
		}
	}
}
