// Package view renders the portal's HTML templates through Echo's
// Renderer hook.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/memberhub/member-portal/internal/core/domain"
)

//go:embed templates/*.html
var files embed.FS

// Data is the payload handed to every template.
type Data struct {
	Error    string
	Identity *domain.Identity
}

// Renderer implements echo.Renderer over the embedded templates.
type Renderer struct {
	templates *template.Template
}

func New() (*Renderer, error) {
	t, err := template.ParseFS(files, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

// Render satisfies the echo.Renderer interface.
func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name+".html", data)
}
