package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBridgeHoldsSingleNotification(t *testing.T) {
	bridge := NewNotificationBridge()

	bridge.FromSuccess("Role created")
	bridge.FromSuccess("Role updated")

	notice := bridge.Current()
	assert.True(t, notice.IsOpen)
	assert.Equal(t, "Role updated", notice.Description)
}

func TestBridgeErrorReplacesSuccess(t *testing.T) {
	bridge := NewNotificationBridge()

	bridge.FromSuccess("Role created")
	bridge.FromError(validationf("role name is required"))

	notice := bridge.Current()
	assert.Equal(t, SeverityError, notice.Severity)
	assert.Equal(t, "role name is required", notice.Description)
	assert.Equal(t, "Check your input", notice.Title)
}

func TestBridgeDismiss(t *testing.T) {
	bridge := NewNotificationBridge()

	bridge.FromSuccess("Permission deleted")
	notice := bridge.Dismiss()

	assert.False(t, notice.IsOpen)
	assert.False(t, bridge.Current().IsOpen)
}

func TestBridgeInternalErrorGenericText(t *testing.T) {
	bridge := NewNotificationBridge()

	notice := bridge.FromError(errors.New("dial tcp 10.0.0.5:5432: i/o timeout"))
	assert.Equal(t, "Something went wrong. Please try again.", notice.Description)
	assert.NotContains(t, notice.Description, "10.0.0.5")
}

func TestBridgeNotFoundTitle(t *testing.T) {
	bridge := NewNotificationBridge()

	notice := bridge.FromError(ErrNotFound)
	assert.Equal(t, "Not found", notice.Title)
	assert.Equal(t, "The record no longer exists. Refresh the listing and try again.", notice.Description)
}
