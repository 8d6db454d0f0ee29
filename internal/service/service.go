// Package service wires the gate, token, revocation and media components
// into the register, login, logout and media flows served over HTTP.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/gogomedia/internal/events"
	"github.com/Skotchmaster/gogomedia/internal/logging"
)

var (
	ErrMissingField      = errors.New("missing field")
	ErrUsernameTaken     = errors.New("username taken")
	ErrUserNotFound      = errors.New("user doesn't exist")
	ErrIncorrectPassword = errors.New("incorrect password")
)

// MissingFieldError names the absent request field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing parameter '%s'", e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// Recorder receives counters; a nil Recorder is ignored.
type Recorder interface {
	MediaBatch(result string)
	EventFailed(eventType string)
}

// Notifier publishes domain events. Failures are logged and counted but
// never reach the caller.
type Notifier struct {
	Publisher events.Publisher
	Topics    events.Topics
	Recorder  Recorder
}

func (n *Notifier) notify(ctx context.Context, topic string, ev events.Event) {
	if n == nil || n.Publisher == nil {
		return
	}
	if err := n.Publisher.PublishEvent(ctx, topic, fmt.Sprint(ev.UserID), ev); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", ev.Type, "topic", topic, "error", err)
		if n.Recorder != nil {
			n.Recorder.EventFailed(ev.Type)
		}
	}
}

func (n *Notifier) user(ctx context.Context, typ string, userID uint, payload any) {
	if n == nil {
		return
	}
	n.notify(ctx, n.Topics.Users, events.NewEvent(typ, userID, payload))
}

func (n *Notifier) media(ctx context.Context, typ string, userID uint, payload any) {
	if n == nil {
		return
	}
	n.notify(ctx, n.Topics.Media, events.NewEvent(typ, userID, payload))
}
