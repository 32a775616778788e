package models

import validation "github.com/go-ozzo/ozzo-validation/v4"

// ActionKind names the metadata operation held by a DeferredAction.
type ActionKind string

const (
	ActionNone  ActionKind = ""
	ActionTopic ActionKind = "topic"
	ActionTag   ActionKind = "tag"
	ActionColor ActionKind = "color"
)

// DeferredAction is a metadata operation requested before a note has an
// identity. Target is the topic, tag or color id; Container is the notebook
// a topic belongs to.
type DeferredAction struct {
	Kind      ActionKind `json:"kind"`
	Target    string     `json:"target"`
	Container string     `json:"container,omitempty"`
}

// IsZero reports whether no action is held.
func (a DeferredAction) IsZero() bool {
	return a.Kind == ActionNone
}

// Validate checks that the action names a known kind and carries the ids it
// needs.
func (a DeferredAction) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Kind, validation.Required, validation.In(ActionTopic, ActionTag, ActionColor)),
		validation.Field(&a.Target, validation.Required),
		validation.Field(&a.Container, validation.When(a.Kind == ActionTopic, validation.Required)),
	)
}
