package agent

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/tbxark/mailagent/dialogue"
	"github.com/tbxark/mailagent/intent"
	"github.com/tbxark/mailagent/message"
	"github.com/tbxark/mailagent/transport"
	"github.com/tbxark/mailagent/types"
)

type recorder struct {
	sent []message.Message
	err  error
}

func (r *recorder) Send(ctx context.Context, msg message.Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func newTestController() (*Controller, *dialogue.Buffer, *recorder) {
	buffer := dialogue.NewBuffer(nil)
	rec := &recorder{}
	return NewController(Deps{Speaker: buffer, Transport: rec}), buffer, rec
}

func say(name intent.Name, text string, slots map[string]string) intent.Utterance {
	return intent.Utterance{Intent: name, Text: text, Slots: slots}
}

func mustHandle(t *testing.T, c *Controller, u intent.Utterance) *Response {
	t.Helper()
	resp, err := c.Handle(context.Background(), u)
	if err != nil {
		t.Fatalf("handle %s %q: %v", u.Intent, u.Text, err)
	}
	return resp
}

func expectSpoken(t *testing.T, b *dialogue.Buffer, want ...string) {
	t.Helper()
	got := dialogue.Templates(b.Drain())
	if !slices.Equal(got, want) {
		t.Fatalf("expected spoken %v, got %v", want, got)
	}
}

func TestScenarios(t *testing.T) {
	t.Parallel()
	c, b, rec := newTestController()

	// A: recipient carried on the trigger
	resp := mustHandle(t, c, say(intent.NewMail, "send an email to alice", map[string]string{intent.SlotRecipient: "alice"}))
	if !resp.Handled || resp.Phase != types.PhaseAwaitingSubject {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got := c.RequiredFields(); !slices.Equal(got, []types.Field{types.FieldSubject, types.FieldContent}) {
		t.Fatalf("unexpected required fields %v", got)
	}
	if !slices.Contains(c.Phase().ContextFlags(), types.AskedForSubjectContext) {
		t.Errorf("expected %s in %v", types.AskedForSubjectContext, c.Phase().ContextFlags())
	}
	expectSpoken(t, b, dialogue.AskForSubject)

	// B: explicit subject while the subject is awaited
	resp = mustHandle(t, c, say(intent.SetSubjectExplicit, "the subject is hello", map[string]string{intent.SlotSubject: "subject"}))
	if resp.Message.Subject != "hello" || resp.Phase != types.PhaseAwaitingContent {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got := c.RequiredFields(); !slices.Equal(got, []types.Field{types.FieldContent}) {
		t.Fatalf("unexpected required fields %v", got)
	}
	if slices.Contains(c.Phase().ContextFlags(), types.AskedForSubjectContext) {
		t.Errorf("subject flag not cleared: %v", c.Phase().ContextFlags())
	}
	expectSpoken(t, b, dialogue.AskForContent)

	// C: short content is ignored silently
	resp = mustHandle(t, c, say(intent.SetContent, "hi", nil))
	if !resp.Handled || resp.Phase != types.PhaseAwaitingContent || resp.Message.Content != "" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got := c.RequiredFields(); !slices.Equal(got, []types.Field{types.FieldContent}) {
		t.Fatalf("unexpected required fields %v", got)
	}
	expectSpoken(t, b)

	// D: ready
	resp = mustHandle(t, c, say(intent.SetContent, "see you at noon", nil))
	if resp.Phase != types.PhaseReadyToSend || len(c.RequiredFields()) != 0 {
		t.Fatalf("unexpected response %+v", resp)
	}
	lines := b.Drain()
	if got := dialogue.Templates(lines); !slices.Equal(got, []string{dialogue.ReadoutMessage, dialogue.ShouldISend}) {
		t.Fatalf("unexpected spoken %v", got)
	}
	if !lines[1].Prompt.ExpectResponse {
		t.Errorf("expected should.i.send to expect a response")
	}

	// E: affirm
	resp = mustHandle(t, c, say(intent.ConfirmSend, "yes", nil))
	if !resp.Completed || resp.Phase != types.PhaseIdle || c.Phase().Started() {
		t.Fatalf("unexpected response %+v", resp)
	}
	want := message.Message{Type: message.TypeEmail, Recipient: "alice", Subject: "hello", Content: "see you at noon"}
	if len(rec.sent) != 1 || rec.sent[0] != want {
		t.Fatalf("expected %+v delivered, got %+v", want, rec.sent)
	}
	if resp.Message != want {
		t.Errorf("expected response message %+v, got %+v", want, resp.Message)
	}
	expectSpoken(t, b, dialogue.SendingMessage)
}

func TestAskOrderWithoutRecipient(t *testing.T) {
	t.Parallel()
	c, b, _ := newTestController()
	mustHandle(t, c, say(intent.NewMail, "write an email", nil))
	expectSpoken(t, b, dialogue.AskForRecipient)
	if c.Phase() != types.PhaseAwaitingRecipient {
		t.Fatalf("expected awaiting recipient, got %s", c.Phase())
	}
	mustHandle(t, c, say(intent.SetRecipient, "Bob", map[string]string{intent.SlotRecipient: "Bob"}))
	expectSpoken(t, b, dialogue.AskForSubject)
	mustHandle(t, c, say(intent.SetSubject, "lunch plans", nil))
	expectSpoken(t, b, dialogue.AskForContent)
	if msg, _ := c.Message(); msg.Recipient != "Bob" || msg.Subject != "lunch plans" {
		t.Errorf("unexpected draft %+v", msg)
	}
}

func TestRecipientFallsBackToText(t *testing.T) {
	t.Parallel()
	c, _, _ := newTestController()
	mustHandle(t, c, say(intent.NewMail, "new email", nil))
	mustHandle(t, c, say(intent.SetRecipient, "carol", nil))
	if msg, _ := c.Message(); msg.Recipient != "carol" {
		t.Errorf("expected raw text as recipient, got %+v", msg)
	}
}

func TestExplicitSubjectNotUnderstood(t *testing.T) {
	t.Parallel()
	c, b, _ := newTestController()
	mustHandle(t, c, say(intent.NewMail, "new email", map[string]string{intent.SlotRecipient: "alice"}))
	mustHandle(t, c, say(intent.SetSubject, "hello", nil))
	b.Drain()
	// content is awaited, so an unparsable subject is not taken verbatim
	resp := mustHandle(t, c, say(intent.SetSubjectExplicit, "change the title please", map[string]string{intent.SlotSubject: "title"}))
	if !resp.Handled || resp.Phase != types.PhaseAwaitingContent || resp.Message.Subject != "hello" {
		t.Fatalf("unexpected response %+v", resp)
	}
	expectSpoken(t, b, dialogue.NotUnderstood)

	resp = mustHandle(t, c, say(intent.SetSubjectExplicit, "set the title to dinner", map[string]string{intent.SlotSubject: "title"}))
	if resp.Message.Subject != "dinner" || resp.Phase != types.PhaseAwaitingContent {
		t.Fatalf("unexpected response %+v", resp)
	}
	expectSpoken(t, b, dialogue.AskForContent)
}

func TestExplicitContentOutOfOrder(t *testing.T) {
	t.Parallel()
	c, b, _ := newTestController()
	mustHandle(t, c, say(intent.NewMail, "new email", nil))
	b.Drain()
	resp := mustHandle(t, c, say(intent.SetContentExplicit, "the message says running late", map[string]string{intent.SlotContent: "message says"}))
	if resp.Message.Content != "running late" || resp.Phase != types.PhaseAwaitingRecipient {
		t.Fatalf("unexpected response %+v", resp)
	}
	expectSpoken(t, b, dialogue.AskForRecipient)
}

func TestInertIntents(t *testing.T) {
	t.Parallel()
	c, b, rec := newTestController()
	inert := []intent.Utterance{
		say(intent.ConfirmSend, "yes", nil),
		say(intent.SetSubject, "hello", nil),
		say(intent.SetRecipientExplicit, "send it to bob", map[string]string{intent.SlotRecipient: "bob"}),
		say(intent.Cancel, "cancel", nil),
		say(intent.None, "what time is it", nil),
	}
	for _, u := range inert {
		resp := mustHandle(t, c, u)
		if resp.Handled || resp.Phase != types.PhaseIdle {
			t.Errorf("%s: expected inert, got %+v", u.Intent, resp)
		}
	}
	mustHandle(t, c, say(intent.NewMail, "new email", nil))
	// explicit recipient needs its slot
	if resp := mustHandle(t, c, say(intent.SetRecipientExplicit, "send it", nil)); resp.Handled {
		t.Errorf("expected inert without slot, got %+v", resp)
	}
	// not ready yet
	if resp := mustHandle(t, c, say(intent.ConfirmSend, "yes", nil)); resp.Handled {
		t.Errorf("expected inert confirm, got %+v", resp)
	}
	if len(rec.sent) != 0 {
		t.Errorf("nothing should be sent, got %+v", rec.sent)
	}
	expectSpoken(t, b, dialogue.AskForRecipient)
}

func TestNewMailReplacesSession(t *testing.T) {
	t.Parallel()
	c, b, _ := newTestController()
	mustHandle(t, c, say(intent.NewMail, "new email", map[string]string{intent.SlotRecipient: "alice"}))
	mustHandle(t, c, say(intent.SetSubject, "hello", nil))
	resp := mustHandle(t, c, say(intent.NewMail, "new email to bob", map[string]string{intent.SlotRecipient: "bob"}))
	if resp.Message.Recipient != "bob" || resp.Message.Subject != "" || resp.Phase != types.PhaseAwaitingSubject {
		t.Fatalf("unexpected response %+v", resp)
	}
	expectSpoken(t, b, dialogue.AskForSubject, dialogue.AskForContent, dialogue.AskForSubject)
}

func TestDenyAndCancel(t *testing.T) {
	t.Parallel()
	for _, name := range []intent.Name{intent.DenySend, intent.Cancel} {
		c, b, rec := newTestController()
		mustHandle(t, c, say(intent.NewMail, "new email", map[string]string{intent.SlotRecipient: "alice"}))
		mustHandle(t, c, say(intent.SetSubject, "hello", nil))
		mustHandle(t, c, say(intent.SetContent, "see you", nil))
		b.Drain()
		resp := mustHandle(t, c, say(name, "no", nil))
		if !resp.Handled || resp.Phase != types.PhaseIdle || resp.Completed {
			t.Fatalf("%s: unexpected response %+v", name, resp)
		}
		if _, ok := c.Message(); ok {
			t.Errorf("%s: draft should be discarded", name)
		}
		if len(rec.sent) != 0 {
			t.Errorf("%s: nothing should be sent", name)
		}
		expectSpoken(t, b, dialogue.MessageCancelled)
	}
}

func TestTransportErrorAfterClose(t *testing.T) {
	t.Parallel()
	boom := errors.New("relay refused")
	b := dialogue.NewBuffer(nil)
	c := NewController(Deps{Speaker: b, Transport: transport.TransportFunc(func(ctx context.Context, msg message.Message) error {
		return boom
	})})
	mustHandle(t, c, say(intent.NewMail, "new email", map[string]string{intent.SlotRecipient: "alice"}))
	mustHandle(t, c, say(intent.SetSubject, "hello", nil))
	mustHandle(t, c, say(intent.SetContent, "see you", nil))
	resp, err := c.Handle(context.Background(), say(intent.ConfirmSend, "yes", nil))
	if !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if resp == nil || !resp.Completed || c.Phase() != types.PhaseIdle {
		t.Errorf("session should be closed, got %+v", resp)
	}
}

func TestHandlerWithoutBuilderIsGuarded(t *testing.T) {
	t.Parallel()
	c, b, _ := newTestController()
	c.phase = types.PhaseAwaitingContent
	resp := mustHandle(t, c, say(intent.SetContent, "hello there", nil))
	if resp.Handled {
		t.Errorf("expected guarded handler to be inert, got %+v", resp)
	}
	expectSpoken(t, b)
}

func TestFieldOrderings(t *testing.T) {
	t.Parallel()
	set := map[types.Field]intent.Utterance{
		types.FieldRecipient: say(intent.SetRecipientExplicit, "send it to alice", map[string]string{intent.SlotRecipient: "alice"}),
		types.FieldSubject:   say(intent.SetSubjectExplicit, "the subject is hello", map[string]string{intent.SlotSubject: "subject"}),
		types.FieldContent:   say(intent.SetContentExplicit, "the content is see you", map[string]string{intent.SlotContent: "content"}),
	}
	orders := [][]types.Field{
		{types.FieldRecipient, types.FieldSubject, types.FieldContent},
		{types.FieldRecipient, types.FieldContent, types.FieldSubject},
		{types.FieldSubject, types.FieldRecipient, types.FieldContent},
		{types.FieldSubject, types.FieldContent, types.FieldRecipient},
		{types.FieldContent, types.FieldRecipient, types.FieldSubject},
		{types.FieldContent, types.FieldSubject, types.FieldRecipient},
	}
	for _, order := range orders {
		c, b, _ := newTestController()
		mustHandle(t, c, say(intent.NewMail, "new email", nil))
		for i, field := range order {
			b.Drain()
			resp := mustHandle(t, c, set[field])
			if i < len(order)-1 {
				required := c.RequiredFields()
				if len(required) == 0 || resp.Phase != types.AwaitingPhase(required[0]) {
					t.Fatalf("%v: expected to await %v, got %s", order, required, resp.Phase)
				}
			}
		}
		if c.Phase() != types.PhaseReadyToSend {
			t.Fatalf("%v: expected ready, got %s", order, c.Phase())
		}
		expectSpoken(t, b, dialogue.ReadoutMessage, dialogue.ShouldISend)
		// re-setting keeps the draft ready
		mustHandle(t, c, set[types.FieldSubject])
		if c.Phase() != types.PhaseReadyToSend || len(c.RequiredFields()) != 0 {
			t.Fatalf("%v: re-set broke readiness", order)
		}
	}
}

func TestEmptyRecipientIsNotAccepted(t *testing.T) {
	t.Parallel()
	c, b, _ := newTestController()
	mustHandle(t, c, say(intent.NewMail, "new email", map[string]string{intent.SlotRecipient: ""}))
	expectSpoken(t, b, dialogue.AskForRecipient)

	if resp := mustHandle(t, c, say(intent.SetRecipientExplicit, "send it to", map[string]string{intent.SlotRecipient: " "})); resp.Handled {
		t.Errorf("expected inert with an empty slot, got %+v", resp)
	}
	resp := mustHandle(t, c, say(intent.SetRecipient, "  ", map[string]string{intent.SlotRecipient: ""}))
	if !resp.Handled || resp.Phase != types.PhaseAwaitingRecipient || resp.Message.Recipient != "" {
		t.Fatalf("unexpected response %+v", resp)
	}
	expectSpoken(t, b, dialogue.NotUnderstood)
	if got := c.RequiredFields(); !slices.Equal(got, []types.Field{types.FieldRecipient, types.FieldSubject, types.FieldContent}) {
		t.Errorf("recipient must stay required, got %v", got)
	}
}

type failingSpeaker struct {
	fail string
	err  error
}

func (s failingSpeaker) Speak(ctx context.Context, p dialogue.Prompt) error {
	if p.Template == s.fail {
		return s.err
	}
	return nil
}

func TestConfirmSendsWhenSpeakerFails(t *testing.T) {
	t.Parallel()
	mute := errors.New("speaker unplugged")
	rec := &recorder{}
	c := NewController(Deps{Speaker: failingSpeaker{fail: dialogue.SendingMessage, err: mute}, Transport: rec})
	mustHandle(t, c, say(intent.NewMail, "new email", map[string]string{intent.SlotRecipient: "alice"}))
	mustHandle(t, c, say(intent.SetSubject, "hello", nil))
	mustHandle(t, c, say(intent.SetContent, "see you", nil))

	resp, err := c.Handle(context.Background(), say(intent.ConfirmSend, "yes", nil))
	if !errors.Is(err, mute) {
		t.Fatalf("expected speaker error, got %v", err)
	}
	if len(rec.sent) != 1 || rec.sent[0].Content != "see you" {
		t.Fatalf("confirmed message must still be sent, got %+v", rec.sent)
	}
	if resp == nil || !resp.Completed || c.Phase() != types.PhaseIdle {
		t.Errorf("session should be closed, got %+v", resp)
	}

	rec.err = errors.New("relay refused")
	c.Reset()
	mustHandle(t, c, say(intent.NewMail, "new email", map[string]string{intent.SlotRecipient: "bob"}))
	mustHandle(t, c, say(intent.SetSubject, "lunch", nil))
	mustHandle(t, c, say(intent.SetContent, "at noon", nil))
	_, err = c.Handle(context.Background(), say(intent.ConfirmSend, "yes", nil))
	if !errors.Is(err, rec.err) || !errors.Is(err, mute) {
		t.Errorf("expected both errors, got %v", err)
	}
}
