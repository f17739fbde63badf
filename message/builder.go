package message

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/tbxark/mailagent/patch"
	"github.com/tbxark/mailagent/types"
)

var ErrUnknownType = errors.New("unknown message type")

var fieldOrder = []types.Field{types.FieldRecipient, types.FieldSubject, types.FieldContent}

var displayNames = map[types.Field]string{
	types.FieldRecipient: "Recipient",
	types.FieldSubject:   "Subject",
	types.FieldContent:   "Content",
}

var allowedPaths = map[string]bool{
	types.FieldRecipient.JSONPointer(): true,
	types.FieldSubject.JSONPointer():   true,
	types.FieldContent.JSONPointer():   true,
}

// Builder owns one Message and the ordered list of fields it still needs.
// A field leaves the list the first time it is assigned and never returns.
type Builder struct {
	message  Message
	required []types.Field
}

func NewBuilder(typ string) (*Builder, error) {
	if typ != TypeEmail {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	return &Builder{
		message:  Message{Type: typ},
		required: slices.Clone(fieldOrder),
	}, nil
}

// RequiredFields returns the missing fields in asking order.
func (b *Builder) RequiredFields() []types.Field {
	return slices.Clone(b.required)
}

// Missing describes the missing fields for prompts.
func (b *Builder) Missing() []types.FieldInfo {
	infos := make([]types.FieldInfo, 0, len(b.required))
	for _, f := range b.required {
		infos = append(infos, types.FieldInfo{
			Field:       f,
			JSONPointer: f.JSONPointer(),
			DisplayName: displayNames[f],
			Required:    true,
		})
	}
	return infos
}

func (b *Builder) Ready() bool {
	if len(b.required) == 0 {
		slog.Debug("Message is ready", "message", b.message.String())
		return true
	}
	return false
}

func (b *Builder) SetRecipient(recipient string) {
	b.satisfy(types.FieldRecipient)
	b.message.Recipient = recipient
}

func (b *Builder) SetSubject(subject string) {
	b.satisfy(types.FieldSubject)
	b.message.Subject = subject
}

func (b *Builder) SetContent(content string) {
	b.satisfy(types.FieldContent)
	b.message.Content = content
}

// Apply merges RFC 6902 operations into the message. Only recipient,
// subject and content may be touched; a touched field that ends up
// non-empty is marked satisfied.
func (b *Builder) Apply(ops []patch.Operation) error {
	next, err := patch.Apply(b.message, ops, allowedPaths)
	if err != nil {
		return err
	}
	next.Type = b.message.Type
	b.message = next
	for _, path := range patch.Paths(ops) {
		f := types.Field(path[1:])
		if value(b.message, f) != "" {
			b.satisfy(f)
		}
	}
	return nil
}

// Prefill copies the non-empty fields of initial into the message.
func (b *Builder) Prefill(initial Message) error {
	initial.Type = b.message.Type
	ops, err := patch.GeneratePatchesFromInitial(b.message, initial)
	if err != nil {
		return fmt.Errorf("failed to generate patches from initial values: %w", err)
	}
	if err := b.Apply(ops); err != nil {
		return fmt.Errorf("failed to apply initial values: %w", err)
	}
	return nil
}

// Build returns the message as assembled so far. Callers check Ready first.
func (b *Builder) Build() Message {
	return b.message
}

func (b *Builder) satisfy(f types.Field) {
	if i := slices.Index(b.required, f); i >= 0 {
		b.required = slices.Delete(b.required, i, i+1)
	}
}

func value(m Message, f types.Field) string {
	switch f {
	case types.FieldRecipient:
		return m.Recipient
	case types.FieldSubject:
		return m.Subject
	case types.FieldContent:
		return m.Content
	default:
		return ""
	}
}
