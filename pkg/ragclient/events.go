package ragclient

import (
	"encoding/json"
	"fmt"
)

// EventType tags one decoded unit of the backend's streaming protocol.
type EventType string

const (
	EventToken     EventType = "token"
	EventSources   EventType = "sources"
	EventFollowUps EventType = "follow_ups"
	EventDone      EventType = "done"
	EventError     EventType = "error"
)

// Fallback when an "error" event arrives without a usable string payload.
const genericUpstreamMessage = "the answer backend reported an error"

// StreamEvent is one decoded protocol event. Exactly one payload field is
// meaningful depending on Type: Text for token/error, List for
// sources/follow_ups, neither for done.
type StreamEvent struct {
	Type EventType
	Text string
	List []string
}

// rawEvent mirrors the wire shape: {"type": "...", "content": ...} where the
// content shape depends on the type.
type rawEvent struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

// decodeEvent parses one trimmed, non-empty line into a StreamEvent via an
// explicit dispatch on the type tag. Any shape violation is returned as an
// error so the caller can skip the line; the one exception is an "error"
// event with a non-string payload, which still terminates the stream and so
// decodes with a generic message instead.
func decodeEvent(line []byte) (*StreamEvent, error) {
	var raw rawEvent
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	switch EventType(raw.Type) {
	case EventToken:
		var text string
		if err := json.Unmarshal(raw.Content, &text); err != nil {
			return nil, fmt.Errorf("token content is not a string: %w", err)
		}
		return &StreamEvent{Type: EventToken, Text: text}, nil

	case EventSources:
		list, err := decodeStringList(raw.Content)
		if err != nil {
			return nil, fmt.Errorf("sources content: %w", err)
		}
		return &StreamEvent{Type: EventSources, List: list}, nil

	case EventFollowUps:
		list, err := decodeStringList(raw.Content)
		if err != nil {
			return nil, fmt.Errorf("follow_ups content: %w", err)
		}
		return &StreamEvent{Type: EventFollowUps, List: list}, nil

	case EventDone:
		// Content is ignored even if present.
		return &StreamEvent{Type: EventDone}, nil

	case EventError:
		var msg string
		if len(raw.Content) == 0 || json.Unmarshal(raw.Content, &msg) != nil || msg == "" {
			msg = genericUpstreamMessage
		}
		return &StreamEvent{Type: EventError, Text: msg}, nil

	case "":
		return nil, fmt.Errorf("missing type field")

	default:
		return nil, fmt.Errorf("unknown event type %q", raw.Type)
	}
}

func decodeStringList(content json.RawMessage) ([]string, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("missing")
	}
	var list []string
	if err := json.Unmarshal(content, &list); err != nil {
		return nil, fmt.Errorf("not a string array: %w", err)
	}
	return list, nil
}
