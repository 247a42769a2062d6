// Package web embeds the page templates and static assets served by the
// HTTP server.
package web

import "embed"

// TemplatesFS holds the page and its HTMX fragments.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the page script.
//
//go:embed static/*
var StaticFS embed.FS
