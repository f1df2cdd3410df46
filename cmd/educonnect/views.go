package main

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/django/v3"

	"github.com/goliatone/go-educonnect"
)

//go:embed views
var viewsFS embed.FS

func newViewEngine() (*django.Engine, error) {
	templates, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, err
	}

	engine := django.NewFileSystem(http.FS(templates), ".html")
	for name, fn := range educonnect.TemplateHelpers() {
		engine.AddFunc(name, fn)
	}

	return engine, nil
}
