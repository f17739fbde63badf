package command

import (
	"context"
	"slices"
	"strings"

	"github.com/tbxark/mailagent/types"
)

// LocalCommandParser matches whole answers against keyword lists. Cancel
// wins over deny, and deny over confirm, when a phrase is listed twice.
type LocalCommandParser[T any] struct {
	Keywords map[Command][]string
}

var keywordPrecedence = []Command{Cancel, Deny, Confirm}

func NewLocalCommandParser[T any]() *LocalCommandParser[T] {
	return &LocalCommandParser[T]{
		Keywords: map[Command][]string{
			Confirm: {"yes", "yeah", "yep", "sure", "ok", "okay", "send", "send it", "send the message", "send the email", "send the mail", "send this", "do it", "go ahead", "confirm", "please do"},
			Deny:    {"no", "nope", "don't", "do not", "don't send it", "not yet"},
			Cancel:  {"cancel", "stop", "quit", "exit", "never mind", "forget it", "abort"},
		},
	}
}

func (p *LocalCommandParser[T]) ParseCommand(ctx context.Context, req *types.ToolRequest[T]) (Command, error) {
	answer := Normalize(req.MessagePair.Answer)
	for _, cmd := range keywordPrecedence {
		if slices.Contains(p.Keywords[cmd], answer) {
			return cmd, nil
		}
	}
	return None, nil
}

// Normalize lowercases s and strips surrounding spaces and punctuation.
func Normalize(s string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(s)), " .,!?")
}

type FailbackCommandParser[T any] struct {
	parsers []Parser[T]
}

func NewFailbackCommandParser[T any](parsers ...Parser[T]) *FailbackCommandParser[T] {
	return &FailbackCommandParser[T]{parsers: parsers}
}

// ParseCommand returns the first non-None answer. A parser error moves on to
// the next parser; it is reported only when no parser recognized anything.
func (p *FailbackCommandParser[T]) ParseCommand(ctx context.Context, req *types.ToolRequest[T]) (Command, error) {
	var lastErr error
	for _, parser := range p.parsers {
		cmd, err := parser.ParseCommand(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		if cmd != None {
			return cmd, nil
		}
	}
	return None, lastErr
}
