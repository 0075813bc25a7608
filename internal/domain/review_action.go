package domain

import (
	"fmt"
	"strings"
)

// ReviewActionKind names a review action on the wire.
type ReviewActionKind string

const (
	ActionAccept ReviewActionKind = "accept"
	ActionReject ReviewActionKind = "reject"
	ActionEdit   ReviewActionKind = "edit"
)

// ReviewAction is one of AcceptAction, RejectAction or EditAction.
type ReviewAction interface {
	Kind() ReviewActionKind
	reviewAction()
}

// AcceptAction saves a candidate verbatim.
type AcceptAction struct {
	Front string
	Back  string
}

// RejectAction discards a candidate.
type RejectAction struct{}

// EditAction saves a candidate with modified text.
type EditAction struct {
	Front string
	Back  string
}

func (AcceptAction) Kind() ReviewActionKind { return ActionAccept }
func (RejectAction) Kind() ReviewActionKind { return ActionReject }
func (EditAction) Kind() ReviewActionKind   { return ActionEdit }

func (AcceptAction) reviewAction() {}
func (RejectAction) reviewAction() {}
func (EditAction) reviewAction()   {}

// NewReviewAction validates a raw action payload and returns the typed action.
// Front and back are trimmed and required for accept and edit; they are ignored for reject.
func NewReviewAction(kind string, front, back *string) (ReviewAction, error) {
	switch ReviewActionKind(kind) {
	case ActionReject:
		return RejectAction{}, nil
	case ActionAccept, ActionEdit:
		f, b, err := actionText(front, back)
		if err != nil {
			return nil, err
		}
		if ReviewActionKind(kind) == ActionAccept {
			return AcceptAction{Front: f, Back: b}, nil
		}
		return EditAction{Front: f, Back: b}, nil
	default:
		return nil, NewValidationError("action", fmt.Sprintf("must be one of accept, reject, edit; got %q", kind))
	}
}

func actionText(front, back *string) (string, string, error) {
	if front == nil {
		return "", "", NewValidationError("front", "is required")
	}
	if back == nil {
		return "", "", NewValidationError("back", "is required")
	}
	f := strings.TrimSpace(*front)
	b := strings.TrimSpace(*back)
	if err := ValidateText("front", f, AIFrontMaxLength); err != nil {
		return "", "", err
	}
	if err := ValidateText("back", b, AIBackMaxLength); err != nil {
		return "", "", err
	}
	return f, b, nil
}
