package email

import "log/slog"

// NewSender builds the sender for cfg: Postmark when tokens are present,
// DevSender otherwise. Postmark is wrapped in a circuit breaker.
func NewSender(cfg Config, logger *slog.Logger) (EmailSender, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if !cfg.Production() {
		logger.Info("postmark is not configured, emails are written to disk",
			slog.String("dir", cfg.DevOutputDir))
		return NewDevSender(cfg.DevOutputDir, WithDevLogger(logger)), nil
	}

	client, err := NewPostmarkClient(cfg)
	if err != nil {
		return nil, err
	}

	return NewBreakerSender(client,
		WithBreakerName("postmark"),
		WithBreakerThreshold(cfg.BreakerFailures),
		WithBreakerTimeout(cfg.BreakerTimeout),
		WithBreakerLogger(logger),
	), nil
}
