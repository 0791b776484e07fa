// Package server renders messages into the presentation blob that travels
// with each broadcast frame.
package server

import (
	"bytes"
	"fmt"
	"html/template"
)

// Renderer produces the presentation artifact attached to each message. The
// core treats the result as opaque: it is computed once at append time,
// stored in history, and replayed verbatim to late joiners.
type Renderer interface {
	RenderMessage(msg Message) (string, error)
}

const messageTemplate = `<div class="message" id="m{{.ID}}"><b>{{.Username}}: </b>{{.Body}}</div>`

// TemplateRenderer renders messages through an HTML template, escaping
// user-supplied text.
type TemplateRenderer struct {
	tmpl *template.Template
}

// NewTemplateRenderer creates a renderer using the built-in message markup.
func NewTemplateRenderer() *TemplateRenderer {
	return &TemplateRenderer{
		tmpl: template.Must(template.New("message").Parse(messageTemplate)),
	}
}

// RenderMessage renders the message into its chat-view markup.
func (tr *TemplateRenderer) RenderMessage(msg Message) (string, error) {
	var buf bytes.Buffer
	if err := tr.tmpl.Execute(&buf, msg); err != nil {
		return "", fmt.Errorf("render message %s: %w", msg.ID, err)
	}
	return buf.String(), nil
}
