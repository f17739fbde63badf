package types

// Phase is the session state of one composition session. It replaces the
// independent context flags of a voice-assistant skill, so at most one
// field can be awaited at a time.
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseAwaitingRecipient Phase = "awaiting_recipient"
	PhaseAwaitingSubject   Phase = "awaiting_subject"
	PhaseAwaitingContent   Phase = "awaiting_content"
	PhaseReadyToSend       Phase = "ready_to_send"
)

// Context flag names understood by host runtimes with a named context store.
const (
	MessageStartedContext    = "MessageStartedContext"
	AskedForRecipientContext = "AskedForRecipientContext"
	AskedForSubjectContext   = "AskedForSubjectContext"
	AskedForContentContext   = "AskedForContentContext"
)

// StartedPhases lists every phase in which a composition session is active.
var StartedPhases = []Phase{
	PhaseAwaitingRecipient,
	PhaseAwaitingSubject,
	PhaseAwaitingContent,
	PhaseReadyToSend,
}

// Started reports whether a composition session is active.
func (p Phase) Started() bool {
	return p != "" && p != PhaseIdle
}

// Awaiting returns the field the last prompt asked for, if any.
func (p Phase) Awaiting() (Field, bool) {
	switch p {
	case PhaseAwaitingRecipient:
		return FieldRecipient, true
	case PhaseAwaitingSubject:
		return FieldSubject, true
	case PhaseAwaitingContent:
		return FieldContent, true
	default:
		return "", false
	}
}

// ContextFlags returns the named flags equivalent to the phase.
func (p Phase) ContextFlags() []string {
	if !p.Started() {
		return nil
	}
	flags := []string{MessageStartedContext}
	switch p {
	case PhaseAwaitingRecipient:
		flags = append(flags, AskedForRecipientContext)
	case PhaseAwaitingSubject:
		flags = append(flags, AskedForSubjectContext)
	case PhaseAwaitingContent:
		flags = append(flags, AskedForContentContext)
	}
	return flags
}

// AwaitingPhase returns the phase in which the given field is awaited.
func AwaitingPhase(f Field) Phase {
	switch f {
	case FieldRecipient:
		return PhaseAwaitingRecipient
	case FieldSubject:
		return PhaseAwaitingSubject
	case FieldContent:
		return PhaseAwaitingContent
	default:
		return PhaseIdle
	}
}

// Field names a slot of a message.
type Field string

const (
	FieldRecipient Field = "recipient"
	FieldSubject   Field = "subject"
	FieldContent   Field = "content"
)

// JSONPointer returns the RFC 6901 pointer of the field inside a message.
func (f Field) JSONPointer() string {
	return "/" + string(f)
}

type FieldInfo struct {
	Field       Field  `json:"field"`
	JSONPointer string `json:"json_pointer"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

type MessagePair struct {
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`
}

// ToolRequest is the per-turn view handed to recognizers, parsers and
// renderers.
type ToolRequest[T any] struct {
	State         T           `json:"state"`
	StateSchema   string      `json:"state_schema,omitempty"`
	Phase         Phase       `json:"phase"`
	MessagePair   MessagePair `json:"message_pair"`
	MissingFields []FieldInfo `json:"missing_fields,omitempty"`
}
