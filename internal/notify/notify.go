// Package notify delivers reports to Telegram and the terminal.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Notifier pushes a titled report somewhere
type Notifier interface {
	Send(ctx context.Context, title, body string) error
}

// Stdout writes reports to a writer, usually os.Stdout
type Stdout struct {
	W io.Writer
}

func (s Stdout) Send(ctx context.Context, title, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(s.W, "%s\n\n%s\n", title, strings.TrimRight(body, "\n"))
	return err
}

// Multi fans a report out to every notifier and joins their errors
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, body string) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, title, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
