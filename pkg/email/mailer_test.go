package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/clickmart/pkg/email"
)

func validParams() email.SendEmailParams {
	return email.SendEmailParams{
		SendTo:   "user@example.com",
		Subject:  "Weekly New Products - Click Mart",
		BodyHTML: "<p>Test body</p>",
		Tag:      "weekly-digest",
	}
}

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(p *email.SendEmailParams)
		errMsg string
	}{
		{name: "valid params", mutate: func(p *email.SendEmailParams) {}},
		{name: "valid without tag", mutate: func(p *email.SendEmailParams) { p.Tag = "" }},
		{name: "empty SendTo", mutate: func(p *email.SendEmailParams) { p.SendTo = "" }, errMsg: "SendTo is required"},
		{name: "whitespace SendTo", mutate: func(p *email.SendEmailParams) { p.SendTo = "   " }, errMsg: "SendTo is required"},
		{name: "invalid email", mutate: func(p *email.SendEmailParams) { p.SendTo = "invalid-email" }, errMsg: "SendTo must be a valid email address"},
		{name: "missing domain", mutate: func(p *email.SendEmailParams) { p.SendTo = "user@" }, errMsg: "SendTo must be a valid email address"},
		{name: "missing local part", mutate: func(p *email.SendEmailParams) { p.SendTo = "@example.com" }, errMsg: "SendTo must be a valid email address"},
		{name: "empty Subject", mutate: func(p *email.SendEmailParams) { p.Subject = " " }, errMsg: "Subject is required"},
		{name: "empty body", mutate: func(p *email.SendEmailParams) { p.BodyHTML = "" }, errMsg: "BodyHTML is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := validParams()
			tt.mutate(&p)

			err := p.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, email.ErrInvalidParams)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func readDir(t *testing.T, dir string) (html []string, meta []string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".html":
			html = append(html, e.Name())
		case ".json":
			meta = append(meta, e.Name())
		}
	}
	return html, meta
}

func TestDevSender_SendEmail(t *testing.T) {
	t.Parallel()

	t.Run("writes html and metadata", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "emails")
		sender := email.NewDevSender(dir)

		require.NoError(t, sender.SendEmail(t.Context(), validParams()))

		html, meta := readDir(t, dir)
		require.Len(t, html, 1)
		require.Len(t, meta, 1)
		assert.Contains(t, html[0], "weekly-digest")

		body, err := os.ReadFile(filepath.Join(dir, html[0]))
		require.NoError(t, err)
		assert.Equal(t, "<p>Test body</p>", string(body))

		raw, err := os.ReadFile(filepath.Join(dir, meta[0]))
		require.NoError(t, err)

		var m map[string]string
		require.NoError(t, json.Unmarshal(raw, &m))
		assert.Equal(t, "user@example.com", m["send_to"])
		assert.Equal(t, "Weekly New Products - Click Mart", m["subject"])
		assert.Equal(t, html[0], m["html_file"])
		assert.NotEmpty(t, m["id"])
	})

	t.Run("subject names the file when tag is empty", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		p := validParams()
		p.Tag = ""
		p.Subject = "New Product: Fresh Milk!"
		require.NoError(t, email.NewDevSender(dir).SendEmail(t.Context(), p))

		html, _ := readDir(t, dir)
		require.Len(t, html, 1)
		assert.Contains(t, html[0], "new_product_fresh_milk")
	})

	t.Run("concurrent sends do not overwrite each other", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		sender := email.NewDevSender(dir)

		errs := make(chan error, 10)
		for range 10 {
			go func() { errs <- sender.SendEmail(context.Background(), validParams()) }()
		}
		for range 10 {
			require.NoError(t, <-errs)
		}

		html, meta := readDir(t, dir)
		assert.Len(t, html, 10)
		assert.Len(t, meta, 10)
	})

	t.Run("invalid params write nothing", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "never")
		p := validParams()
		p.SendTo = "nobody"

		err := email.NewDevSender(dir).SendEmail(t.Context(), p)
		assert.ErrorIs(t, err, email.ErrInvalidParams)
		_, statErr := os.Stat(dir)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("unwritable directory", func(t *testing.T) {
		t.Parallel()

		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

		err := email.NewDevSender(filepath.Join(file, "sub")).SendEmail(t.Context(), validParams())
		assert.ErrorIs(t, err, email.ErrFailedToSendEmail)
	})

	t.Run("long labels are truncated", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		p := validParams()
		p.Tag = strings.Repeat("a", 300)
		require.NoError(t, email.NewDevSender(dir).SendEmail(t.Context(), p))

		html, _ := readDir(t, dir)
		require.Len(t, html, 1)
		assert.Less(t, len(html[0]), 160)
	})
}

func TestNewSender(t *testing.T) {
	t.Parallel()

	t.Run("dev sender without tokens", func(t *testing.T) {
		t.Parallel()

		s, err := email.NewSender(email.Config{DevOutputDir: t.TempDir()}, nil)
		require.NoError(t, err)
		assert.IsType(t, &email.DevSender{}, s)
	})

	t.Run("breaker wrapped postmark with tokens", func(t *testing.T) {
		t.Parallel()

		s, err := email.NewSender(email.Config{
			PostmarkServerToken:  "server",
			PostmarkAccountToken: "account",
			SenderEmail:          "noreply@clickmart.com",
		}, nil)
		require.NoError(t, err)
		require.IsType(t, &email.BreakerSender{}, s)
		assert.Equal(t, "closed", s.(*email.BreakerSender).State())
	})

	t.Run("invalid postmark config", func(t *testing.T) {
		t.Parallel()

		_, err := email.NewSender(email.Config{
			PostmarkServerToken:  "server",
			PostmarkAccountToken: "account",
			SenderEmail:          "not-an-email",
		}, nil)
		assert.ErrorIs(t, err, email.ErrInvalidConfig)
	})
}

func TestConfig_From(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Click Mart <noreply@clickmart.com>",
		email.Config{SenderName: "Click Mart", SenderEmail: "noreply@clickmart.com"}.From())
	assert.Equal(t, "noreply@clickmart.com", email.Config{SenderEmail: "noreply@clickmart.com"}.From())
}
