package email

import "time"

// Config holds email service configuration.
// Postmark tokens are optional: without them the application falls back to
// DevSender, which writes messages to DevOutputDir.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"noreply@clickmart.com"`
	SenderName           string `env:"SENDER_NAME" envDefault:"Click Mart"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@clickmart.com"`
	DevOutputDir         string `env:"EMAIL_DEV_OUTPUT_DIR" envDefault:"./tmp/emails"`

	// Circuit breaker around the delivery provider.
	BreakerFailures uint32        `env:"EMAIL_BREAKER_FAILURES" envDefault:"5"`
	BreakerTimeout  time.Duration `env:"EMAIL_BREAKER_TIMEOUT" envDefault:"30s"`
}

// Production reports whether a real delivery provider is configured.
func (c Config) Production() bool {
	return c.PostmarkServerToken != "" && c.PostmarkAccountToken != ""
}

// From renders the sender address with its display name.
func (c Config) From() string {
	if c.SenderName == "" {
		return c.SenderEmail
	}
	return c.SenderName + " <" + c.SenderEmail + ">"
}
