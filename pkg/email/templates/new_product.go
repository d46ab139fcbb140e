package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// NewProduct tells a subscriber about a product that was just added.
type NewProduct struct {
	UserName    string
	Product     Product
	FrontendURL string
}

func (n NewProduct) Subject() string {
	return "New Product: " + n.Product.Name + " - " + Brand
}

func (n NewProduct) Component() templ.Component {
	return page{
		Title:       "New Product Added - " + Brand,
		UserName:    n.UserName,
		HeaderStyle: headerStyle("#ffc107", "#333"),
		ButtonStyle: buttonStyle("#ffc107", "#333", true),
		ActionURL:   link(n.FrontendURL, "/Shop"),
		ActionLabel: "View Product",
		Content:     n.content(),
	}.Component()
}

func (n NewProduct) content() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`      <p>We've just added a new product that might interest you!</p>
      <div style="background-color: white; padding: 20px; border-radius: 8px; margin: 20px 0;">
        <h3 style="margin-top: 0; color: #333;">`)
		hw.text(n.Product.Name)
		hw.raw(`</h3>
        <p style="color: #666;">`)
		hw.text(orDefault(n.Product.Description, "Check out this amazing new product!"))
		hw.raw(`</p>
        <p style="color: #28a745; font-weight: bold; font-size: 18px;">`)
		hw.text(Money(n.Product.Price))
		hw.raw(`</p>
      </div>
`)
		return hw.err
	})
}
