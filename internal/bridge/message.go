package bridge

import (
	stdjson "encoding/json"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

// ReadyToken is the literal payload the view sends once it has booted.
const ReadyToken = "loaded"

var (
	// ErrEmptyPayload is returned for an empty inbound string.
	ErrEmptyPayload = errors.New("bridge: empty payload")
	// ErrMalformed is returned for payloads that are neither the ready token
	// nor a recognizable envelope.
	ErrMalformed = errors.New("bridge: malformed payload")
)

// Message is a view-to-host notification. The set of implementations is closed.
type Message interface {
	message()
}

// Ready signals that the view has booted and can accept commands.
type Ready struct{}

// ContentUpdate carries the full body after an edit.
type ContentUpdate struct {
	Text  string
	Delta stdjson.RawMessage
}

// TitleUpdate carries the full title after an edit.
type TitleUpdate struct {
	Value string
}

func (Ready) message()         {}
func (ContentUpdate) message() {}
func (TitleUpdate) message()   {}

const typeContent = "content"

type inbound struct {
	Type  string             `json:"type"`
	Value stdjson.RawMessage `json:"value"`
	Text  *string            `json:"text"`
	Delta stdjson.RawMessage `json:"delta"`
}

// ParseMessage decodes one raw inbound payload.
//
// The ready token maps to Ready. A JSON object tagged "content" maps to
// ContentUpdate. Any other object carrying a string value, or a bare JSON
// string, maps to TitleUpdate.
func ParseMessage(raw string) (Message, error) {
	switch raw {
	case "":
		return nil, ErrEmptyPayload
	case ReadyToken:
		return Ready{}, nil
	}

	data := []byte(raw)

	if data[0] == '"' {
		var bare string
		if err := json.Unmarshal(data, &bare); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return TitleUpdate{Value: bare}, nil
	}

	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if in.Type == typeContent {
		if in.Text == nil {
			return nil, fmt.Errorf("%w: content without text", ErrMalformed)
		}
		var delta stdjson.RawMessage
		if len(in.Delta) > 0 && string(in.Delta) != "null" {
			delta = in.Delta
		}
		return ContentUpdate{Text: *in.Text, Delta: delta}, nil
	}

	var title string
	if len(in.Value) == 0 {
		return nil, fmt.Errorf("%w: missing value", ErrMalformed)
	}
	if err := json.Unmarshal(in.Value, &title); err != nil {
		return nil, fmt.Errorf("%w: title value: %v", ErrMalformed, err)
	}
	return TitleUpdate{Value: title}, nil
}

// EncodeMessage produces the wire form of msg, as the view would send it.
func EncodeMessage(msg Message) (string, error) {
	switch m := msg.(type) {
	case Ready:
		return ReadyToken, nil
	case ContentUpdate:
		out := struct {
			Type  string             `json:"type"`
			Text  string             `json:"text"`
			Delta stdjson.RawMessage `json:"delta,omitempty"`
		}{Type: typeContent, Text: m.Text, Delta: m.Delta}
		data, err := json.Marshal(out)
		if err != nil {
			return "", fmt.Errorf("bridge: encode content: %w", err)
		}
		return string(data), nil
	case TitleUpdate:
		out := struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		}{Type: "title", Value: m.Value}
		data, err := json.Marshal(out)
		if err != nil {
			return "", fmt.Errorf("bridge: encode title: %w", err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("bridge: unknown message %T", msg)
}
