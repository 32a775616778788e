// Package bridge defines the envelopes exchanged with the embedded content
// view and the transport that carries them.
//
// Host-to-view traffic is a closed set of Command types; view-to-host traffic
// is a closed set of Message types. Both directions use a JSON envelope of
// the form {"type": ..., "value": ...}.
package bridge

import (
	stdjson "encoding/json"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

// CommandType tags a host-to-view envelope.
type CommandType string

const (
	TypeTheme       CommandType = "theme"
	TypeFocusTitle  CommandType = "focusTitle"
	TypeClearEditor CommandType = "clearEditor"
	TypeClearTitle  CommandType = "clearTitle"
	TypeBlur        CommandType = "blur"
	TypeTitle       CommandType = "title"
	TypeDelta       CommandType = "delta"
	TypeText        CommandType = "text"
	TypeNoMenu      CommandType = "nomenu"
)

// Command is a host-to-view instruction. The set of implementations is closed.
type Command interface {
	CommandType() CommandType
	command()
}

// Theme pushes the color palette.
type Theme struct{ Colors map[string]string }

// FocusTitle moves the caret to the title field.
type FocusTitle struct{}

// ClearEditor empties the body.
type ClearEditor struct{}

// ClearTitle empties the title field.
type ClearTitle struct{}

// Blur drops keyboard focus.
type Blur struct{}

// Title sets the title field.
type Title struct{ Value string }

// Delta renders a structured body.
type Delta struct{ Value stdjson.RawMessage }

// Text renders a plain-text body.
type Text struct{ Value string }

// NoMenu tells the view whether the host shows a side menu.
type NoMenu struct{ Value bool }

func (Theme) CommandType() CommandType       { return TypeTheme }
func (FocusTitle) CommandType() CommandType  { return TypeFocusTitle }
func (ClearEditor) CommandType() CommandType { return TypeClearEditor }
func (ClearTitle) CommandType() CommandType  { return TypeClearTitle }
func (Blur) CommandType() CommandType        { return TypeBlur }
func (Title) CommandType() CommandType       { return TypeTitle }
func (Delta) CommandType() CommandType       { return TypeDelta }
func (Text) CommandType() CommandType        { return TypeText }
func (NoMenu) CommandType() CommandType      { return TypeNoMenu }

func (Theme) command()       {}
func (FocusTitle) command()  {}
func (ClearEditor) command() {}
func (ClearTitle) command()  {}
func (Blur) command()        {}
func (Title) command()       {}
func (Delta) command()       {}
func (Text) command()        {}
func (NoMenu) command()      {}

type outbound struct {
	Type  CommandType `json:"type"`
	Value any         `json:"value,omitempty"`
}

type envelope struct {
	Type  string             `json:"type"`
	Value stdjson.RawMessage `json:"value,omitempty"`
}

// ErrUnknownCommand is returned when decoding an envelope whose type is not
// part of the host-to-view set.
var ErrUnknownCommand = errors.New("bridge: unknown command type")

// EncodeCommand serializes cmd into its wire envelope.
func EncodeCommand(cmd Command) ([]byte, error) {
	env := outbound{Type: cmd.CommandType()}
	switch c := cmd.(type) {
	case Theme:
		env.Value = c.Colors
	case FocusTitle, ClearEditor, ClearTitle, Blur:
	case Title:
		env.Value = c.Value
	case Delta:
		if c.Value == nil {
			env.Value = stdjson.RawMessage("null")
		} else {
			env.Value = c.Value
		}
	case Text:
		env.Value = c.Value
	case NoMenu:
		env.Value = c.Value
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("bridge: encode %s: %w", env.Type, err)
	}
	return data, nil
}

// DecodeCommand parses a host-to-view envelope.
func DecodeCommand(data []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch CommandType(env.Type) {
	case TypeTheme:
		var colors map[string]string
		if err := unmarshalValue(env.Value, &colors); err != nil {
			return nil, err
		}
		return Theme{Colors: colors}, nil
	case TypeFocusTitle:
		return FocusTitle{}, nil
	case TypeClearEditor:
		return ClearEditor{}, nil
	case TypeClearTitle:
		return ClearTitle{}, nil
	case TypeBlur:
		return Blur{}, nil
	case TypeTitle:
		var s string
		if err := unmarshalValue(env.Value, &s); err != nil {
			return nil, err
		}
		return Title{Value: s}, nil
	case TypeDelta:
		return Delta{Value: env.Value}, nil
	case TypeText:
		var s string
		if err := unmarshalValue(env.Value, &s); err != nil {
			return nil, err
		}
		return Text{Value: s}, nil
	case TypeNoMenu:
		var v bool
		if err := unmarshalValue(env.Value, &v); err != nil {
			return nil, err
		}
		return NoMenu{Value: v}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Type)
}

func unmarshalValue(raw stdjson.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing value", ErrMalformed)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
