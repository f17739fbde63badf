package testcases

import (
	"context"
	"testing"

	"github.com/tbxark/mailagent/agent"
	"github.com/tbxark/mailagent/types"
)

// TestModelBackedRecognition drives the session with tool calls only.
func TestModelBackedRecognition(t *testing.T) {
	t.Parallel()
	m := NewFakeChatModel().
		QueueToolCall("parse_intent", `{"intent":"new_mail","recipient":"Dana"}`).
		QueueToolCall("parse_intent", `{"intent":"set_subject"}`).
		QueueToolCall("extract_field", `{"found":true,"value":"Quarterly report"}`).
		QueueToolCall("parse_intent", `{"intent":"set_content_explicit"}`).
		QueueToolCall("extract_field", `{"found":true,"value":"The numbers are in the shared folder."}`).
		QueueToolCall("parse_intent", `{"intent":"confirm_send"}`)
	ctx := agent.WithSessionKey(context.Background(), "model")
	a, box := NewModelAgent(t, m)

	if turn := say(t, a, ctx, "could you drop Dana a line"); turn.Response.Phase != types.PhaseAwaitingSubject {
		t.Fatalf("expected awaiting_subject, got %+v", turn.Response)
	}
	if turn := say(t, a, ctx, "call it the quarterly report"); turn.Response.Message.Subject != "Quarterly report" {
		t.Fatalf("unexpected subject %+v", turn.Response.Message)
	}
	if turn := say(t, a, ctx, "tell her the numbers are in the shared folder"); turn.Response.Phase != types.PhaseReadyToSend {
		t.Fatalf("expected ready_to_send, got %+v", turn.Response)
	}
	if turn := say(t, a, ctx, "sounds good, go"); !turn.Response.Completed {
		t.Fatalf("expected completion, got %+v", turn.Response)
	}
	sent := box.messages()
	if len(sent) != 1 || sent[0].Recipient != "Dana" || sent[0].Content != "The numbers are in the shared folder." {
		t.Errorf("unexpected delivery %+v", sent)
	}
	if m.Calls() != 6 {
		t.Errorf("expected 6 model calls, got %d", m.Calls())
	}
}

// TestModelFailureFallsBackToRawAnswer keeps the flow going when the
// extractor model is down.
func TestModelFailureFallsBackToRawAnswer(t *testing.T) {
	t.Parallel()
	m := NewFakeChatModel().
		QueueToolCall("parse_intent", `{"intent":"new_mail","recipient":"Eve"}`).
		QueueToolCall("parse_intent", `{"intent":"set_subject"}`).
		QueueError(ErrNoReply)
	ctx := agent.WithSessionKey(context.Background(), "model-fail")
	a, _ := NewModelAgent(t, m)

	say(t, a, ctx, "mail eve")
	turn := say(t, a, ctx, "weekend")
	if turn.Response.Message.Subject != "weekend" || turn.Response.Phase != types.PhaseAwaitingContent {
		t.Errorf("expected the raw answer as subject, got %+v", turn.Response)
	}
}
