package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/callbacks"
	"github.com/tbxark/mailagent/dialogue"
	"github.com/tbxark/mailagent/extract"
	"github.com/tbxark/mailagent/intent"
	"github.com/tbxark/mailagent/message"
	"github.com/tbxark/mailagent/transport"
	"github.com/tbxark/mailagent/types"
)

// MinContentLength is the shortest content, in runes, that is accepted.
const MinContentLength = 3

type outcome int

const (
	outcomeHandled outcome = iota
	outcomeInert
	outcomeCompleted
)

type handler func(c *Controller, ctx context.Context, u intent.Utterance) (outcome, error)

// route gates a handler on the intent, the current phase and the slots the
// recognizer must have filled. Nil phases means any phase; an empty slot
// counts as missing.
type route struct {
	intent intent.Name
	phases []types.Phase
	slots  []string
	handle handler
}

func (r route) matches(u intent.Utterance, phase types.Phase) bool {
	if u.Intent != r.intent {
		return false
	}
	if r.phases != nil && !slices.Contains(r.phases, phase) {
		return false
	}
	for _, slot := range r.slots {
		if v, ok := u.Slot(slot); !ok || strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

var routes = []route{
	{intent: intent.NewMail, handle: (*Controller).handleNewMail},
	{intent: intent.SetRecipient, phases: []types.Phase{types.PhaseAwaitingRecipient}, handle: (*Controller).handleSetRecipient},
	{intent: intent.SetRecipientExplicit, phases: types.StartedPhases, slots: []string{intent.SlotRecipient}, handle: (*Controller).handleSetRecipient},
	{intent: intent.SetSubjectExplicit, phases: types.StartedPhases, slots: []string{intent.SlotSubject}, handle: (*Controller).handleSetSubject},
	{intent: intent.SetSubject, phases: []types.Phase{types.PhaseAwaitingSubject}, handle: (*Controller).handleSetSubject},
	{intent: intent.SetContentExplicit, phases: types.StartedPhases, slots: []string{intent.SlotContent}, handle: (*Controller).handleSetContent},
	{intent: intent.SetContent, phases: []types.Phase{types.PhaseAwaitingContent}, handle: (*Controller).handleSetContent},
	{intent: intent.ConfirmSend, phases: []types.Phase{types.PhaseReadyToSend}, handle: (*Controller).handleConfirm},
	{intent: intent.DenySend, phases: []types.Phase{types.PhaseReadyToSend}, handle: (*Controller).handleDiscard},
	{intent: intent.Cancel, phases: types.StartedPhases, handle: (*Controller).handleDiscard},
}

// Controller drives one composition session. It is not safe for concurrent
// use; SessionPool serializes turns per session.
type Controller struct {
	deps    Deps
	phase   types.Phase
	builder *message.Builder
	sent    message.Message
}

func NewController(deps Deps) *Controller {
	if deps.Speaker == nil {
		deps.Speaker = dialogue.NewBuffer(nil)
	}
	if deps.Transport == nil {
		deps.Transport = transport.NewLogTransport(nil)
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.NewRegexExtractor()
	}
	return &Controller{deps: deps, phase: types.PhaseIdle}
}

func (c *Controller) Phase() types.Phase {
	return c.phase
}

// Message returns the draft in progress.
func (c *Controller) Message() (message.Message, bool) {
	if c.builder == nil {
		return message.Message{}, false
	}
	return c.builder.Build(), true
}

// RequiredFields returns the fields still missing from the draft.
func (c *Controller) RequiredFields() []types.Field {
	if c.builder == nil {
		return nil
	}
	return c.builder.RequiredFields()
}

// Missing describes the fields still missing from the draft.
func (c *Controller) Missing() []types.FieldInfo {
	if c.builder == nil {
		return nil
	}
	return c.builder.Missing()
}

// Reset drops the session without speaking.
func (c *Controller) Reset() {
	c.builder = nil
	c.phase = types.PhaseIdle
}

// Handle dispatches one recognized utterance.
func (c *Controller) Handle(ctx context.Context, u intent.Utterance) (*Response, error) {
	ctx = callbacks.EnsureRunInfo(ctx, "MailController", "Controller")
	ctx = callbacks.OnStart(ctx, map[string]any{
		"intent": string(u.Intent),
		"text":   u.Text,
		"phase":  string(c.phase),
	})

	response, err := c.dispatch(ctx, u)
	if err != nil {
		callbacks.OnError(ctx, err)
		return response, err
	}

	callbacks.OnEnd(ctx, map[string]any{
		"handled":   response.Handled,
		"phase":     string(response.Phase),
		"completed": response.Completed,
	})
	return response, nil
}

func (c *Controller) dispatch(ctx context.Context, u intent.Utterance) (*Response, error) {
	for _, r := range routes {
		if !r.matches(u, c.phase) {
			continue
		}
		slog.Debug("Dispatching intent", "intent", u.Intent, "phase", c.phase)
		result, err := r.handle(c, ctx, u)
		return c.response(result), err
	}
	slog.Debug("Intent is inert", "intent", u.Intent, "phase", c.phase)
	return c.response(outcomeInert), nil
}

func (c *Controller) response(result outcome) *Response {
	resp := &Response{
		Handled:   result != outcomeInert,
		Phase:     c.phase,
		Completed: result == outcomeCompleted,
	}
	if result == outcomeCompleted {
		resp.Message = c.sent
	} else if msg, ok := c.Message(); ok {
		resp.Message = msg
	}
	return resp
}

func (c *Controller) handleNewMail(ctx context.Context, u intent.Utterance) (outcome, error) {
	builder, err := message.NewBuilder(message.TypeEmail)
	if err != nil {
		return outcomeInert, err
	}
	initial := message.Message{}
	initial.Recipient, _ = u.Slot(intent.SlotRecipient)
	initial.Subject, _ = u.Slot(intent.SlotSubject)
	initial.Content, _ = u.Slot(intent.SlotContent)
	if err := builder.Prefill(initial); err != nil {
		return outcomeInert, fmt.Errorf("prefill message: %w", err)
	}
	slog.Debug("Started message", "recipient", initial.Recipient, "required", builder.RequiredFields())
	c.builder = builder
	c.phase = types.PhaseAwaitingRecipient
	return outcomeHandled, c.nextStep(ctx)
}

func (c *Controller) handleSetRecipient(ctx context.Context, u intent.Utterance) (outcome, error) {
	if !c.guardBuilder(u) {
		return outcomeInert, nil
	}
	recipient, _ := u.Slot(intent.SlotRecipient)
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		recipient = strings.TrimSpace(u.Text)
	}
	if recipient == "" {
		return outcomeHandled, c.notUnderstood(ctx)
	}
	c.builder.SetRecipient(recipient)
	slog.Debug("Set field", "field", types.FieldRecipient, "value", recipient)
	return outcomeHandled, c.nextStep(ctx)
}

func (c *Controller) handleSetSubject(ctx context.Context, u intent.Utterance) (outcome, error) {
	if !c.guardBuilder(u) {
		return outcomeInert, nil
	}
	subject, ok := c.extractField(ctx, types.FieldSubject, c.deps.Extractor.ExtractSubject, u.Text)
	if !ok {
		return outcomeHandled, c.notUnderstood(ctx)
	}
	c.builder.SetSubject(subject)
	slog.Debug("Set field", "field", types.FieldSubject, "value", subject)
	return outcomeHandled, c.nextStep(ctx)
}

func (c *Controller) handleSetContent(ctx context.Context, u intent.Utterance) (outcome, error) {
	if !c.guardBuilder(u) {
		return outcomeInert, nil
	}
	content, ok := c.extractField(ctx, types.FieldContent, c.deps.Extractor.ExtractContent, u.Text)
	if !ok {
		return outcomeHandled, c.notUnderstood(ctx)
	}
	if utf8.RuneCountInString(content) < MinContentLength {
		slog.Debug("Content too short", "field", types.FieldContent, "length", utf8.RuneCountInString(content))
		return outcomeHandled, nil
	}
	c.builder.SetContent(content)
	slog.Debug("Set field", "field", types.FieldContent, "value", content)
	return outcomeHandled, c.nextStep(ctx)
}

func (c *Controller) handleConfirm(ctx context.Context, u intent.Utterance) (outcome, error) {
	if !c.guardBuilder(u) {
		return outcomeInert, nil
	}
	msg := c.builder.Build()
	c.builder = nil
	c.phase = types.PhaseIdle
	c.sent = msg

	// a confirmed message is handed over even when the announcement fails
	speakErr := c.speak(ctx, dialogue.Prompt{Template: dialogue.SendingMessage, Data: promptData(msg)})
	slog.Info("Sending message", "recipient", msg.Recipient, "subject", msg.Subject)
	if err := c.deps.Transport.Send(ctx, msg); err != nil {
		slog.Error("Message delivery failed", "recipient", msg.Recipient, "err", err)
		return outcomeCompleted, errors.Join(fmt.Errorf("send message: %w", err), speakErr)
	}
	return outcomeCompleted, speakErr
}

func (c *Controller) handleDiscard(ctx context.Context, u intent.Utterance) (outcome, error) {
	slog.Debug("Discarding message", "intent", u.Intent, "phase", c.phase)
	c.Reset()
	return outcomeHandled, c.speak(ctx, dialogue.Prompt{Template: dialogue.MessageCancelled})
}

// guardBuilder reports whether a field handler can run. The routes only
// reach field handlers in started phases, so a missing builder means the
// session state was changed out of band.
func (c *Controller) guardBuilder(u intent.Utterance) bool {
	if c.builder != nil {
		return true
	}
	slog.Warn("No message in progress", "intent", u.Intent, "phase", c.phase)
	return false
}

// extractField returns the extracted value or, when the field was just asked
// for, the raw utterance.
func (c *Controller) extractField(ctx context.Context, field types.Field, fn func(context.Context, string) (string, bool, error), text string) (string, bool) {
	value, ok, err := fn(ctx, text)
	if err != nil {
		slog.Debug("Extraction failed", "field", field, "err", err)
	}
	if err == nil && ok {
		return value, true
	}
	if awaited, asked := c.phase.Awaiting(); asked && awaited == field {
		return text, true
	}
	return "", false
}

func (c *Controller) nextStep(ctx context.Context) error {
	if c.builder.Ready() {
		c.phase = types.PhaseReadyToSend
		msg := c.builder.Build()
		if err := c.speak(ctx, dialogue.Prompt{Template: dialogue.ReadoutMessage, Data: promptData(msg)}); err != nil {
			return err
		}
		return c.speak(ctx, dialogue.Prompt{Template: dialogue.ShouldISend, ExpectResponse: true})
	}
	return c.askForNextInput(ctx)
}

func (c *Controller) askForNextInput(ctx context.Context) error {
	if c.builder == nil || c.builder.Ready() {
		return nil
	}
	next := c.builder.RequiredFields()[0]
	slog.Debug("Asking for next input", "field", next)
	// replacing the phase clears whichever field was asked for before
	c.phase = types.AwaitingPhase(next)
	return c.speak(ctx, dialogue.Prompt{Template: "ask.for." + string(next), ExpectResponse: true})
}

func (c *Controller) notUnderstood(ctx context.Context) error {
	return c.speak(ctx, dialogue.Prompt{Template: dialogue.NotUnderstood})
}

func (c *Controller) speak(ctx context.Context, prompt dialogue.Prompt) error {
	if err := c.deps.Speaker.Speak(ctx, prompt); err != nil {
		return fmt.Errorf("speak %s: %w", prompt.Template, err)
	}
	return nil
}

func promptData(msg message.Message) map[string]any {
	return map[string]any{
		"recipient": msg.Recipient,
		"subject":   msg.Subject,
		"content":   msg.Content,
	}
}
