package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// AccountSummary reports a customer's orders of the last week.
type AccountSummary struct {
	UserName      string
	TotalOrders   int
	TotalProducts int
	TotalAmount   float64
	FrontendURL   string
}

func (s AccountSummary) Subject() string {
	return "Your Weekly Account Summary - " + Brand
}

func (s AccountSummary) Component() templ.Component {
	return page{
		Title:       s.Subject(),
		UserName:    s.UserName,
		HeaderStyle: headerStyle("#007bff", "white"),
		ButtonStyle: buttonStyle("#007bff", "white", false),
		ActionURL:   link(s.FrontendURL, "/MyAccountOrder"),
		ActionLabel: "View Orders",
		Footer:      "Thank you for shopping with us!",
		Content:     s.content(),
	}.Component()
}

func (s AccountSummary) content() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`      <p>Here's your weekly account summary:</p>
      <div style="background-color: white; padding: 20px; border-radius: 8px; margin: 20px 0;">
        <div style="margin-bottom: 15px;"><strong>Total Orders:</strong> `)
		hw.text(strconv.Itoa(s.TotalOrders))
		hw.raw(`</div>
        <div style="margin-bottom: 15px;"><strong>Total Products Ordered:</strong> `)
		hw.text(strconv.Itoa(s.TotalProducts))
		hw.raw(`</div>
        <div style="margin-bottom: 15px;"><strong>Total Amount Spent:</strong> `)
		hw.text(Money(s.TotalAmount))
		hw.raw(`</div>
      </div>
`)
		return hw.err
	})
}
