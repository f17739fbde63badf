// Package message holds the outgoing message record and the builder that
// tracks which of its fields are still missing.
package message

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/eino-contrib/jsonschema"
)

const TypeEmail = "email"

type Message struct {
	Type      string `json:"type" jsonschema:"enum=email,description=Kind of message"`
	Recipient string `json:"recipient" jsonschema:"description=Name or address of the person the message is sent to"`
	Subject   string `json:"subject" jsonschema:"description=Subject line of the message"`
	Content   string `json:"content" jsonschema:"description=Body text of the message"`
}

// Complete reports whether recipient, subject and content are all set.
func (m Message) Complete() bool {
	return m.Recipient != "" && m.Subject != "" && m.Content != ""
}

func (m Message) String() string {
	return fmt.Sprintf("%s to %q, subject %q, %d chars", m.Type, m.Recipient, m.Subject, len(m.Content))
}

// JSONSchema returns the JSON schema of Message for LLM prompts.
func JSONSchema() (string, error) {
	schema := jsonschema.Reflect(&Message{})
	schema.Title = "Email draft"
	schema.Description = "An email composed over several voice turns: who it goes to, its subject and its content."
	raw, err := sonic.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON schema: %w", err)
	}
	return string(raw), nil
}
