package view

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderRolesList(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.Render(rec, "pages/roles/list.html", TemplateData{
		Title:       "Roles",
		CurrentPath: "/roles",
		Data:        map[string]any{},
	})
	require.NoError(t, err)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestRenderUnknownTemplate(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.Render(rec, "pages/does-not-exist.html", TemplateData{})
	assert.Error(t, err)
}
