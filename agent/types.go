package agent

import (
	"strings"

	"github.com/tbxark/mailagent/dialogue"
	"github.com/tbxark/mailagent/extract"
	"github.com/tbxark/mailagent/message"
	"github.com/tbxark/mailagent/transport"
	"github.com/tbxark/mailagent/types"
)

// Deps are the collaborators of a Controller.
type Deps struct {
	Speaker   dialogue.Speaker
	Transport transport.Transport
	Extractor extract.Extractor
}

// Response describes the session after one handled utterance.
type Response struct {
	Handled   bool            `json:"handled"`
	Phase     types.Phase     `json:"phase"`
	Message   message.Message `json:"message"`
	Completed bool            `json:"completed,omitempty"`
}

// Turn is a handled utterance together with the lines spoken for it.
type Turn struct {
	Response *Response       `json:"response"`
	Lines    []dialogue.Line `json:"lines"`
}

// Reply joins the spoken lines into one assistant message.
func (t *Turn) Reply() string {
	if t == nil {
		return ""
	}
	return strings.Join(dialogue.Texts(t.Lines), " ")
}

// Question returns the last line that expects an answer, if any.
func (t *Turn) Question() string {
	if t == nil {
		return ""
	}
	for i := len(t.Lines) - 1; i >= 0; i-- {
		if t.Lines[i].Prompt.ExpectResponse {
			return t.Lines[i].Text
		}
	}
	return ""
}
