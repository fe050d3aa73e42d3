package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingAction(count *int, fail error) GateAction {
	return func(context.Context, int64) error {
		*count++
		return fail
	}
}

func TestGateConfirmRunsActionOnce(t *testing.T) {
	bridge := NewNotificationBridge()
	gate := NewConfirmationGate(bridge)

	calls := 0
	gate.Request(Intent{TargetID: 1, Action: "role.delete", Label: "Role deleted"}, countingAction(&calls, nil))

	assert.True(t, gate.Confirm(context.Background()))
	assert.False(t, gate.Confirm(context.Background()))
	assert.Equal(t, 1, calls)

	notice := bridge.Current()
	assert.True(t, notice.IsOpen)
	assert.Equal(t, SeveritySuccess, notice.Severity)
	assert.Equal(t, "Role deleted", notice.Description)
}

func TestGateCancelSkipsAction(t *testing.T) {
	gate := NewConfirmationGate(NewNotificationBridge())

	calls := 0
	gate.Request(Intent{TargetID: 1, Action: "role.delete"}, countingAction(&calls, nil))
	gate.Cancel()

	assert.False(t, gate.Confirm(context.Background()))
	assert.Zero(t, calls)

	_, pending := gate.Pending()
	assert.False(t, pending)
}

func TestGateRequestReplacesPendingIntent(t *testing.T) {
	gate := NewConfirmationGate(NewNotificationBridge())

	first := 0
	second := 0
	gate.Request(Intent{TargetID: 1, Action: "role.delete"}, countingAction(&first, nil))
	gate.Request(Intent{TargetID: 2, Action: "role.delete"}, countingAction(&second, nil))

	intent, ok := gate.Pending()
	require.True(t, ok)
	assert.Equal(t, int64(2), intent.TargetID)

	gate.Confirm(context.Background())
	assert.Zero(t, first)
	assert.Equal(t, 1, second)
}

func TestGateReportsActionFailure(t *testing.T) {
	bridge := NewNotificationBridge()
	gate := NewConfirmationGate(bridge)

	calls := 0
	gate.Request(Intent{TargetID: 3, Action: "permission.delete"}, countingAction(&calls, validationConflict(2)))

	assert.True(t, gate.Confirm(context.Background()))
	assert.Equal(t, 1, calls)

	notice := bridge.Current()
	assert.True(t, notice.IsOpen)
	assert.Equal(t, SeverityError, notice.Severity)
	assert.Contains(t, notice.Description, "still assigned to 2 roles")

	// The intent is consumed even when the action fails.
	assert.False(t, gate.Confirm(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestGateConfirmWhileIdle(t *testing.T) {
	bridge := NewNotificationBridge()
	gate := NewConfirmationGate(bridge)

	assert.False(t, gate.Confirm(context.Background()))
	assert.False(t, bridge.Current().IsOpen)
}

func TestGateInternalErrorNeverLeaksDetail(t *testing.T) {
	bridge := NewNotificationBridge()
	gate := NewConfirmationGate(bridge)

	gate.Request(Intent{TargetID: 4, Action: "role.delete"}, func(context.Context, int64) error {
		return errors.New("pq: connection reset by peer")
	})
	gate.Confirm(context.Background())

	notice := bridge.Current()
	assert.Equal(t, SeverityError, notice.Severity)
	assert.NotContains(t, notice.Description, "connection reset")
	assert.Equal(t, "Something went wrong. Please try again.", notice.Description)
}
