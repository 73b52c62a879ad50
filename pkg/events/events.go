// Package events maps raw wire payloads into a closed set of stream event
// variants, isolating wire-format churn from the reconciliation logic.
package events

import (
	"encoding/json"

	"github.com/killallgit/chatkit/pkg/chat"
)

// Kind enumerates the stream event variants.
type Kind string

const (
	KindMessage Kind = "message"
	KindToken   Kind = "token"
	KindError   Kind = "error"
	KindUpdate  Kind = "update"
	KindDone    Kind = "done"
)

// Event is one normalized stream event. Exactly one of the payload fields is
// meaningful for a given Kind.
type Event struct {
	Kind Kind

	// Message is set for KindMessage when the frame carried a structured
	// chat message; Content holds freeform text otherwise.
	Message *chat.APIMessage

	// Content is the text payload for token, error and freeform message
	// events. Token content is the full accumulated text so far, not a
	// delta to append.
	Content string

	// Node and Updates are set for KindUpdate.
	Node    string
	Updates map[string]any
}

// Done is the terminal event emitted after the sentinel frame.
var Done = Event{Kind: KindDone}

type frame struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
	Node    string          `json:"node"`
	Updates map[string]any  `json:"updates"`
}

// Normalize decodes a raw frame payload into an Event. Unrecognized payloads
// return false and are dropped by the caller; one bad frame never terminates
// a stream.
func Normalize(raw []byte) (Event, bool) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Event{}, false
	}

	switch f.Type {
	case "message":
		return normalizeMessage(f.Content)
	case "token":
		var text string
		if err := json.Unmarshal(f.Content, &text); err != nil {
			return Event{}, false
		}
		return Event{Kind: KindToken, Content: text}, true
	case "error":
		var text string
		if err := json.Unmarshal(f.Content, &text); err != nil {
			return Event{}, false
		}
		return Event{Kind: KindError, Content: text}, true
	case "update":
		return Event{Kind: KindUpdate, Node: f.Node, Updates: f.Updates}, true
	default:
		if f.Node != "" {
			return Event{Kind: KindUpdate, Node: f.Node, Updates: f.Updates}, true
		}
		return Event{}, false
	}
}

// normalizeMessage accepts either freeform text or a structured role-tagged
// chat message as the content of a message frame.
func normalizeMessage(content json.RawMessage) (Event, bool) {
	var text string
	if err := json.Unmarshal(content, &text); err == nil {
		return Event{Kind: KindMessage, Content: text}, true
	}

	var msg chat.APIMessage
	if err := json.Unmarshal(content, &msg); err != nil {
		return Event{}, false
	}
	if msg.Type == "" {
		return Event{}, false
	}
	return Event{Kind: KindMessage, Message: &msg}, true
}
