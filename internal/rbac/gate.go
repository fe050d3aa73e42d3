package rbac

import (
	"context"
	"sync"
)

// GateAction is the mutating operation bound to a confirmation intent.
type GateAction func(ctx context.Context, targetID int64) error

// Intent is a staged destructive action awaiting explicit approval.
type Intent struct {
	TargetID int64
	Action   string
	Label    string
}

// ConfirmationGate decouples "user intends a destructive action" from "action
// executes". The gate is either idle or holds exactly one pending intent; a
// confirmed intent invokes its bound action at most once.
type ConfirmationGate struct {
	mu      sync.Mutex
	pending *pendingIntent
	bridge  *NotificationBridge
}

type pendingIntent struct {
	intent Intent
	action GateAction
}

// NewConfirmationGate builds a gate reporting outcomes to the given bridge.
func NewConfirmationGate(bridge *NotificationBridge) *ConfirmationGate {
	return &ConfirmationGate{bridge: bridge}
}

// Request stages an intent. A request while another intent is pending replaces
// it; the prior intent is discarded without invocation.
func (g *ConfirmationGate) Request(intent Intent, action GateAction) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = &pendingIntent{intent: intent, action: action}
}

// Pending returns the staged intent, if any.
func (g *ConfirmationGate) Pending() (Intent, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return Intent{}, false
	}
	return g.pending.intent, true
}

// Confirm invokes the bound action exactly once and returns the gate to idle.
// Calling Confirm while idle is a no-op, so duplicate event delivery cannot
// re-run the action. A failing action is reported through the bridge, never
// returned to the caller. The return value tells whether an action ran.
func (g *ConfirmationGate) Confirm(ctx context.Context) bool {
	g.mu.Lock()
	staged := g.pending
	g.pending = nil
	g.mu.Unlock()

	if staged == nil {
		return false
	}
	if err := staged.action(ctx, staged.intent.TargetID); err != nil {
		if g.bridge != nil {
			g.bridge.FromError(err)
		}
		return true
	}
	if g.bridge != nil {
		g.bridge.FromSuccess(staged.intent.Label)
	}
	return true
}

// Cancel discards the pending intent without invoking its action.
func (g *ConfirmationGate) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = nil
}
