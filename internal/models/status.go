package models

import (
	"errors"
	"fmt"
)

// FormStatus is the status of a FeedbackForm instance.
type FormStatus string

const (
	FormStatusPending FormStatus = "pending"
	FormStatusActive  FormStatus = "active"
	FormStatusOverdue FormStatus = "overdue"
	FormStatusClosed  FormStatus = "closed"
)

// TrackingStatus is the status of a per-user UserFeedbackForm.
type TrackingStatus string

const (
	TrackingStatusPending   TrackingStatus = "pending"
	TrackingStatusActive    TrackingStatus = "active"
	TrackingStatusOverdue   TrackingStatus = "overdue"
	TrackingStatusClosed    TrackingStatus = "closed"
	TrackingStatusSubmitted TrackingStatus = "submitted"
)

// TrackingEvent drives a tracking record from one status to the next.
type TrackingEvent string

const (
	EventActivate    TrackingEvent = "activate"
	EventMarkOverdue TrackingEvent = "mark_overdue"
	EventSubmit      TrackingEvent = "submit"
	EventReopen      TrackingEvent = "reopen"
	EventClose       TrackingEvent = "close"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTerminalStatus    = errors.New("status is terminal")
	ErrUnknownStatus     = errors.New("unknown status")
)

// trackingTransitions lists, per event, the statuses the event may fire from
// and the status it lands on.
var trackingTransitions = map[TrackingEvent]struct {
	from []TrackingStatus
	to   TrackingStatus
}{
	EventActivate:    {from: []TrackingStatus{TrackingStatusPending}, to: TrackingStatusActive},
	EventMarkOverdue: {from: []TrackingStatus{TrackingStatusActive}, to: TrackingStatusOverdue},
	EventSubmit: {
		from: []TrackingStatus{TrackingStatusPending, TrackingStatusActive, TrackingStatusOverdue, TrackingStatusSubmitted},
		to:   TrackingStatusSubmitted,
	},
	EventReopen: {from: []TrackingStatus{TrackingStatusSubmitted}, to: TrackingStatusPending},
	EventClose: {
		from: []TrackingStatus{TrackingStatusPending, TrackingStatusActive, TrackingStatusOverdue, TrackingStatusSubmitted},
		to:   TrackingStatusClosed,
	},
}

// ParseTrackingStatus converts a wire string into a TrackingStatus.
func ParseTrackingStatus(s string) (TrackingStatus, error) {
	st := TrackingStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

func (s TrackingStatus) Valid() bool {
	switch s {
	case TrackingStatusPending, TrackingStatusActive, TrackingStatusOverdue, TrackingStatusClosed, TrackingStatusSubmitted:
		return true
	}
	return false
}

// IsTerminal reports whether no event can leave s.
func (s TrackingStatus) IsTerminal() bool {
	return s == TrackingStatusClosed
}

// Transition returns the status reached by applying ev to s.
func (s TrackingStatus) Transition(ev TrackingEvent) (TrackingStatus, error) {
	if s.IsTerminal() {
		return s, fmt.Errorf("%w: %s", ErrTerminalStatus, s)
	}
	rule, ok := trackingTransitions[ev]
	if !ok {
		return s, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, ev)
	}
	for _, from := range rule.from {
		if from == s {
			return rule.to, nil
		}
	}
	return s, fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, ev, s)
}

// SourcesOf returns the statuses from which ev may fire.
func SourcesOf(ev TrackingEvent) []TrackingStatus {
	rule, ok := trackingTransitions[ev]
	if !ok {
		return nil
	}
	out := make([]TrackingStatus, len(rule.from))
	copy(out, rule.from)
	return out
}

// ParseFormStatus converts a wire string into a FormStatus.
func ParseFormStatus(s string) (FormStatus, error) {
	st := FormStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

func (s FormStatus) Valid() bool {
	switch s {
	case FormStatusPending, FormStatusActive, FormStatusOverdue, FormStatusClosed:
		return true
	}
	return false
}

// CanTransitionTo reports whether an instance may move from s to next.
// Closed instances never change again.
func (s FormStatus) CanTransitionTo(next FormStatus) error {
	if !next.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, next)
	}
	if s == FormStatusClosed {
		return fmt.Errorf("%w: %s", ErrTerminalStatus, s)
	}
	if s == next {
		return fmt.Errorf("%w: already %s", ErrInvalidTransition, s)
	}
	return nil
}
