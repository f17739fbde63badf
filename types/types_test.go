package types

import (
	"slices"
	"strings"
	"testing"
)

func TestPhaseContextFlags(t *testing.T) {
	t.Parallel()
	cases := map[Phase][]string{
		PhaseIdle:              nil,
		PhaseAwaitingRecipient: {MessageStartedContext, AskedForRecipientContext},
		PhaseAwaitingSubject:   {MessageStartedContext, AskedForSubjectContext},
		PhaseAwaitingContent:   {MessageStartedContext, AskedForContentContext},
		PhaseReadyToSend:       {MessageStartedContext},
	}
	for phase, want := range cases {
		if got := phase.ContextFlags(); !slices.Equal(got, want) {
			t.Errorf("%s: expected %v, got %v", phase, want, got)
		}
		if phase.Started() != (phase != PhaseIdle) {
			t.Errorf("%s: unexpected Started", phase)
		}
	}
}

func TestAwaitingRoundTrip(t *testing.T) {
	t.Parallel()
	for _, f := range []Field{FieldRecipient, FieldSubject, FieldContent} {
		got, ok := AwaitingPhase(f).Awaiting()
		if !ok || got != f {
			t.Errorf("%s: round trip gave (%s, %v)", f, got, ok)
		}
	}
	if _, ok := PhaseReadyToSend.Awaiting(); ok {
		t.Errorf("ready_to_send awaits nothing")
	}
	if AwaitingPhase("cc") != PhaseIdle {
		t.Errorf("unknown field should map to idle")
	}
}

func TestFormatToolRequest(t *testing.T) {
	t.Parallel()
	out, err := FormatToolRequest(&ToolRequest[map[string]string]{
		State:       map[string]string{"recipient": "alice"},
		Phase:       PhaseAwaitingSubject,
		MessagePair: MessagePair{Question: "What is the subject?", Answer: "lunch"},
		MissingFields: []FieldInfo{
			{Field: FieldSubject, JSONPointer: "/subject", DisplayName: "Subject", Required: true},
		},
	})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	for _, want := range []string{`"recipient":"alice"`, "awaiting_subject", AskedForSubjectContext, "What is the subject?", "lunch", "/subject"} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}
