package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// Product is the catalog data shown in product listings.
type Product struct {
	Name          string
	Description   string
	Price         float64
	OriginalPrice float64
}

// WeeklyDigest announces the products added during the last week.
type WeeklyDigest struct {
	UserName    string
	Products    []Product
	FrontendURL string
}

func (d WeeklyDigest) Subject() string {
	return "Weekly New Products - " + Brand
}

func (d WeeklyDigest) Component() templ.Component {
	return page{
		Title:       d.Subject(),
		UserName:    d.UserName,
		HeaderStyle: headerStyle("#28a745", "white"),
		ButtonStyle: buttonStyle("#28a745", "white", false),
		ActionURL:   link(d.FrontendURL, "/Shop"),
		ActionLabel: "Shop Now",
		Footer:      "Thank you for being a valued customer!",
		Content:     d.content(),
	}.Component()
}

func (d WeeklyDigest) content() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw("      <p>Check out our new products this week! We've added some amazing items just for you.</p>\n")
		for i, p := range d.Products {
			hw.raw(`      <div style="margin-bottom: 20px; padding: 15px; border: 1px solid #e0e0e0; border-radius: 8px;">
        <h3 style="margin-top: 0; color: #333;">`)
			hw.text(strconv.Itoa(i + 1))
			hw.raw(". ")
			hw.text(p.Name)
			hw.raw(`</h3>
        <p style="color: #666; margin: 5px 0;">`)
			hw.text(orDefault(p.Description, "Check out this amazing product!"))
			hw.raw(`</p>
        <p style="color: #28a745; font-weight: bold; font-size: 18px;">`)
			hw.text(Money(p.Price))
			hw.raw("</p>\n")
			if p.OriginalPrice > p.Price {
				hw.raw(`        <p style="color: #999; text-decoration: line-through;">`)
				hw.text(Money(p.OriginalPrice))
				hw.raw("</p>\n")
			}
			hw.raw("      </div>\n")
		}
		return hw.err
	})
}
