package templates_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/clickmart/pkg/email/templates"
)

func TestMoney(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Rs 250.00", templates.Money(250))
	assert.Equal(t, "Rs 1,234.50", templates.Money(1234.5))
	assert.Equal(t, "Rs 0.00", templates.Money(0))
}

func TestWeeklyDigest(t *testing.T) {
	t.Parallel()

	d := templates.WeeklyDigest{
		UserName: "Ayesha",
		Products: []templates.Product{
			{Name: "Basmati Rice", Description: "5kg bag", Price: 1450, OriginalPrice: 1600},
			{Name: "Green Tea", Price: 300},
		},
		FrontendURL: "https://shop.example.com/",
	}

	subject, html, err := templates.RenderMessage(t.Context(), d)
	require.NoError(t, err)

	assert.Equal(t, "Weekly New Products - Click Mart", subject)
	assert.Contains(t, html, "Hello Ayesha,")
	assert.Contains(t, html, "1. Basmati Rice")
	assert.Contains(t, html, "2. Green Tea")
	assert.Contains(t, html, "Rs 1,450.00")
	assert.Contains(t, html, "Rs 1,600.00")
	assert.Contains(t, html, "Check out this amazing product!")
	assert.Contains(t, html, `href="https://shop.example.com/Shop"`)
	assert.Contains(t, html, "Thank you for being a valued customer!")
	assert.Equal(t, 1, strings.Count(html, "line-through"), "only discounted products show the original price")
}

func TestAccountSummary(t *testing.T) {
	t.Parallel()

	s := templates.AccountSummary{UserName: "Bilal", TotalOrders: 2, TotalProducts: 7, TotalAmount: 3250.5}

	subject, html, err := templates.RenderMessage(t.Context(), s)
	require.NoError(t, err)

	assert.Equal(t, "Your Weekly Account Summary - Click Mart", subject)
	assert.Contains(t, html, "<strong>Total Orders:</strong> 2")
	assert.Contains(t, html, "<strong>Total Products Ordered:</strong> 7")
	assert.Contains(t, html, "Rs 3,250.50")
	assert.Contains(t, html, `href="http://localhost:3000/MyAccountOrder"`)
}

func TestNewProduct(t *testing.T) {
	t.Parallel()

	n := templates.NewProduct{
		UserName: "Sana",
		Product:  templates.Product{Name: "Mango <Chaunsa>", Price: 899},
	}

	subject, html, err := templates.RenderMessage(t.Context(), n)
	require.NoError(t, err)

	assert.Equal(t, "New Product: Mango <Chaunsa> - Click Mart", subject)
	assert.Contains(t, html, "Mango &lt;Chaunsa&gt;", "product data is escaped")
	assert.NotContains(t, html, "<Chaunsa>")
	assert.Contains(t, html, "Rs 899.00")
	assert.Contains(t, html, "Check out this amazing new product!")
	assert.Contains(t, html, "View Product")
}

func TestNewProduct_UnsafeFrontendURL(t *testing.T) {
	t.Parallel()

	n := templates.NewProduct{
		UserName:    `"><script>`,
		Product:     templates.Product{Name: "Dates", Price: 650},
		FrontendURL: "javascript:alert(1)",
	}

	_, html, err := templates.RenderMessage(t.Context(), n)
	require.NoError(t, err)

	assert.NotContains(t, html, "javascript:")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "Hello &#34;&gt;&lt;script&gt;,")
}

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("connection reset")
	}
	w.after--
	return len(p), nil
}

func TestComponent_WriteError(t *testing.T) {
	t.Parallel()

	d := templates.WeeklyDigest{UserName: "Omar", Products: []templates.Product{{Name: "Tea", Price: 300}}}
	for _, after := range []int{0, 3, 12} {
		err := d.Component().Render(t.Context(), &failingWriter{after: after})
		assert.EqualError(t, err, "connection reset")
	}
}
