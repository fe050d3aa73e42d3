package view

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/atlas-hq/atlas-admin/internal/shared"
	"github.com/atlas-hq/atlas-admin/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Data        any
}

// Crumb is a single breadcrumb entry. An empty Href renders as plain text.
type Crumb struct {
	Label string
	Href  string
}

// NewEngine parses templates at startup. Each file registers under its path
// relative to templates/, so pages in nested directories keep distinct names.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"hasID": func(ids []int64, id int64) bool {
			for _, v := range ids {
				if v == id {
					return true
				}
			}
			return false
		},
		"crumb": func(label string, href ...string) Crumb {
			c := Crumb{Label: label}
			if len(href) > 0 {
				c.Href = href[0]
			}
			return c
		},
		"crumbs": func(items ...Crumb) []Crumb {
			return items
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}

	root := template.New("root").Funcs(funcMap)
	err := fs.WalkDir(web.Templates, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		content, err := fs.ReadFile(web.Templates, path)
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(path, "templates/")
		_, err = root.New(name).Parse(string(content))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Engine{templates: root}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}
