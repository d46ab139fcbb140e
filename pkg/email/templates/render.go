package templates

import (
	"context"
	"strings"

	"github.com/a-h/templ"
)

// Render takes a templ.Component and renders it to a string.
func Render(ctx context.Context, tpl templ.Component) (string, error) {
	var sb strings.Builder
	if err := tpl.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Message is an email body paired with its subject line.
type Message interface {
	Subject() string
	Component() templ.Component
}

// RenderMessage renders m and returns its subject and HTML body.
func RenderMessage(ctx context.Context, m Message) (subject, html string, err error) {
	html, err = Render(ctx, m.Component())
	if err != nil {
		return "", "", err
	}
	return m.Subject(), html, nil
}
