// Package transport delivers finished messages.
package transport

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tbxark/mailagent/message"
)

var ErrUnknownRecipient = errors.New("unknown recipient")

type Transport interface {
	Send(ctx context.Context, msg message.Message) error
}

// LogTransport only logs what it would send.
type LogTransport struct {
	logger *slog.Logger
}

func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(ctx context.Context, msg message.Message) error {
	t.logger.InfoContext(ctx, "Message sent",
		"type", msg.Type,
		"recipient", msg.Recipient,
		"subject", msg.Subject,
		"content_length", len(msg.Content),
	)
	return nil
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, msg message.Message) error

func (f TransportFunc) Send(ctx context.Context, msg message.Message) error {
	return f(ctx, msg)
}
