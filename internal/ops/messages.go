package ops

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hpungsan/qet/internal/errors"
)

// Message actions accepted by Dispatch.
const (
	ActionTranslate      = "translate"
	ActionGetSettings    = "getSettings"
	ActionUpdateSettings = "updateSettings"
	ActionGetHistory     = "getHistory"
	ActionClearHistory   = "clearHistory"
)

// Notification actions pushed to a target.
const (
	ActionTranslationResult = "translationResult"
	ActionTranslationError  = "translationError"
)

// Message is a request from a page or popup.
type Message struct {
	Action   string          `json:"action"`
	Text     string          `json:"text,omitempty"`
	Settings json.RawMessage `json:"settings,omitempty"`
	Limit    int             `json:"limit,omitempty"`
}

// Ack is the reply to actions that return no data.
type Ack struct {
	Success   bool             `json:"success"`
	Error     string           `json:"error,omitempty"`
	ErrorKind errors.ErrorCode `json:"errorKind,omitempty"`
}

func ackFor(err error) Ack {
	if err == nil {
		return Ack{Success: true}
	}
	r := Failure(err, "")
	return Ack{Success: false, Error: r.Error, ErrorKind: r.ErrorKind}
}

// Dispatch answers one message. The reply is always JSON-encodable and
// never an error: failures are reported inside the reply.
//
//	translate      -> Result
//	getSettings    -> settings.Settings (Ack on failure)
//	updateSettings -> Ack
//	getHistory     -> []history.Record (Ack on failure)
//	clearHistory   -> Ack
func (o *Orchestrator) Dispatch(ctx context.Context, msg Message) any {
	switch msg.Action {
	case ActionTranslate:
		return o.Translate(ctx, msg.Text)

	case ActionGetSettings:
		s, err := o.GetSettings(ctx)
		if err != nil {
			return ackFor(err)
		}
		return s

	case ActionUpdateSettings:
		if len(msg.Settings) == 0 {
			return ackFor(errors.NewInvalidRequest("settings is required"))
		}
		_, err := o.UpdateSettings(ctx, msg.Settings)
		return ackFor(err)

	case ActionGetHistory:
		records, err := o.GetHistory(ctx, msg.Limit)
		if err != nil {
			return ackFor(err)
		}
		return records

	case ActionClearHistory:
		return ackFor(o.ClearHistory(ctx))

	default:
		return ackFor(errors.NewInvalidRequest(fmt.Sprintf("Unknown action: %s", msg.Action)))
	}
}
