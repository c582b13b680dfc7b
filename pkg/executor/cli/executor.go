// Package cli provides a line-based console front end for the journal.
//
// Example usage:
//
//	console := executor.NewConsole(cfg.ConsoleUserID)
//	b := bot.New(store, cache, analyzer, console, loc)
//	defer b.Close()
//
//	if err := cli.NewExecutor(b, console).Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/entrhq/moodjournal/pkg/executor"
	"github.com/entrhq/moodjournal/pkg/types"
)

// Executor reads lines from the terminal, hands them to the bot as events
// and prints what the bot sends back.
type Executor struct {
	handler executor.Handler
	console *executor.Console
	reader  *bufio.Reader

	// writes come from the input loop and from timer goroutines
	mu     sync.Mutex
	writer io.Writer

	nextMsg types.MessageID
}

// ExecutorOption is a function that configures an Executor.
type ExecutorOption func(*Executor)

// WithWriter sets a custom output writer (default is os.Stdout).
func WithWriter(w io.Writer) ExecutorOption {
	return func(e *Executor) {
		e.writer = w
	}
}

// WithReader sets a custom input reader (default is os.Stdin).
func WithReader(r io.Reader) ExecutorOption {
	return func(e *Executor) {
		e.reader = bufio.NewReader(r)
	}
}

// NewExecutor creates a CLI executor. console must be the transport the
// handler sends through.
func NewExecutor(handler executor.Handler, console *executor.Console, opts ...ExecutorOption) *Executor {
	e := &Executor{
		handler: handler,
		console: console,
		reader:  bufio.NewReader(os.Stdin),
		writer:  os.Stdout,
	}

	for _, opt := range opts {
		opt(e)
	}

	console.Attach(e.render)
	return e
}

// Run starts the conversation loop. It returns when the user exits, input
// ends or ctx is canceled.
func (e *Executor) Run(ctx context.Context) error {
	e.println("Mood journal")
	e.println("Type a message or a /command and press Enter. #N presses button N. Type 'exit' or 'quit' to leave.")
	e.println("")
	e.handler.Handle(ctx, types.NewTextEvent(e.console.UserID(), e.next(), "/start"))

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		for {
			line, err := e.reader.ReadString('\n')
			if line != "" {
				lines <- line
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		e.print("> ")
		select {
		case <-ctx.Done():
			e.println("\nShutting down...")
			return ctx.Err()
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		case line := <-lines:
			input := strings.TrimSpace(line)
			if input == "exit" || input == "quit" {
				return nil
			}
			if input == "" {
				continue
			}
			ev, err := e.console.Event(input, e.next())
			if err != nil {
				e.println("❌ " + err.Error())
				continue
			}
			e.handler.Handle(ctx, ev)
		}
	}
}

func (e *Executor) next() types.MessageID {
	e.nextMsg++
	return e.nextMsg
}

func (e *Executor) render(entry executor.Entry) {
	var b strings.Builder
	switch entry.Kind {
	case executor.EntryMessage:
		b.WriteString(executor.Plain(entry.Text))
		b.WriteString("\n")
		for _, line := range executor.KeyboardLines(entry.Keyboard) {
			b.WriteString("  " + line + "\n")
		}
	case executor.EntryEdit:
		fmt.Fprintf(&b, "✎ %s\n", executor.Plain(entry.Text))
	case executor.EntryDelete:
		b.WriteString("(message removed)\n")
	case executor.EntryPhoto:
		fmt.Fprintf(&b, "🖼  %s: %s\n", executor.Plain(entry.Text), entry.Path)
	case executor.EntryDocument:
		fmt.Fprintf(&b, "📎 %s\n", entry.Path)
	}
	e.print(b.String())
}

func (e *Executor) print(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprint(e.writer, s)
}

func (e *Executor) println(s string) {
	e.print(s + "\n")
}
