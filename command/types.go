package command

import (
	"context"

	"github.com/tbxark/mailagent/types"
)

// Command is the user's answer to a confirmation prompt.
type Command string

const (
	Confirm Command = "confirm"
	Deny    Command = "deny"
	Cancel  Command = "cancel"
	None    Command = "none"
)

type Parser[T any] interface {
	ParseCommand(ctx context.Context, req *types.ToolRequest[T]) (Command, error)
}
