package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// page is the view model of the shared layout. Content renders the
// message-specific block between the greeting and the action button.
type page struct {
	Title       string
	UserName    string
	HeaderStyle string
	ButtonStyle string
	ActionURL   string
	ActionLabel string
	Footer      string
	Content     templ.Component
}

func (p page) Component() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>`)
		hw.text(p.Title)
		hw.raw(`</title>
  </head>
  <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="`)
		hw.text(p.HeaderStyle)
		hw.raw(`">
      <h1 style="margin: 0;">`)
		hw.text(Brand)
		hw.raw(`</h1>
    </div>
    <div style="background-color: #f9f9f9; padding: 20px; border-radius: 0 0 8px 8px;">
      <h2 style="color: #333;">Hello `)
		hw.text(p.UserName)
		hw.raw(`,</h2>
`)
		hw.component(ctx, p.Content)
		hw.raw(`      <div style="text-align: center; margin-top: 30px;">
        <a href="`)
		hw.text(string(templ.URL(p.ActionURL)))
		hw.raw(`" style="`)
		hw.text(p.ButtonStyle)
		hw.raw(`">`)
		hw.text(p.ActionLabel)
		hw.raw(`</a>
      </div>
`)
		if p.Footer != "" {
			hw.raw(`      <p style="margin-top: 30px; color: #666; font-size: 12px;">`)
			hw.text(p.Footer)
			hw.raw("</p>\n")
		}
		hw.raw(`    </div>
  </body>
</html>`)
		return hw.err
	})
}

// htmlWriter keeps the first write error so components read top to bottom.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (hw *htmlWriter) raw(s string) {
	if hw.err == nil {
		_, hw.err = io.WriteString(hw.w, s)
	}
}

// text writes s HTML-escaped. Safe inside element bodies and quoted attributes.
func (hw *htmlWriter) text(s string) {
	hw.raw(templ.EscapeString(s))
}

func (hw *htmlWriter) component(ctx context.Context, c templ.Component) {
	if hw.err == nil && c != nil {
		hw.err = c.Render(ctx, hw.w)
	}
}

func headerStyle(background, color string) string {
	return "background-color: " + background + "; color: " + color +
		"; padding: 20px; text-align: center; border-radius: 8px 8px 0 0;"
}

func buttonStyle(background, color string, bold bool) string {
	css := "background-color: " + background + "; color: " + color +
		"; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;"
	if bold {
		css += " font-weight: bold;"
	}
	return css
}
