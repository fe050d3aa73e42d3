package rbac

import (
	"errors"
	"sync"
)

// Severity classifies a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is a transient, single-slot status message describing the
// outcome of the last mutating operation.
type Notification struct {
	IsOpen      bool
	Title       string
	Description string
	Severity    Severity
}

// NotificationBridge translates operation outcomes into the one live
// Notification. Issuing a new notification replaces the prior one; there is no
// stacking.
type NotificationBridge struct {
	mu      sync.Mutex
	current Notification
}

// NewNotificationBridge builds an empty bridge.
func NewNotificationBridge() *NotificationBridge {
	return &NotificationBridge{}
}

// FromSuccess opens a success notification for the given operation label.
func (b *NotificationBridge) FromSuccess(operation string) Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = Notification{
		IsOpen:      true,
		Title:       "Done",
		Description: operation,
		Severity:    SeveritySuccess,
	}
	return b.current
}

// FromError opens an error notification. The description is derived from the
// error kind; internal errors get generic fallback text, never the raw
// message.
func (b *NotificationBridge) FromError(err error) Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = Notification{
		IsOpen:      true,
		Title:       titleFor(err),
		Description: UserMessage(err),
		Severity:    SeverityError,
	}
	return b.current
}

// Dismiss closes the live notification.
func (b *NotificationBridge) Dismiss() Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = Notification{}
	return b.current
}

// Current returns the live notification state.
func (b *NotificationBridge) Current() Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func titleFor(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "Check your input"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	case errors.Is(err, ErrConflict):
		return "Blocked"
	default:
		return "Error"
	}
}
