package notification

import "time"

// Config tunes notification content and worker parallelism.
type Config struct {
	FrontendURL        string        `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	Lookback           time.Duration `env:"NOTIFICATION_LOOKBACK" envDefault:"168h"`
	WeeklyProductLimit int           `env:"NOTIFICATION_WEEKLY_PRODUCT_LIMIT" envDefault:"10"`

	WeeklyConcurrency      int `env:"NOTIFICATION_WEEKLY_CONCURRENCY" envDefault:"5"`
	SummaryConcurrency     int `env:"NOTIFICATION_SUMMARY_CONCURRENCY" envDefault:"5"`
	OrderUpdateConcurrency int `env:"NOTIFICATION_ORDER_UPDATE_CONCURRENCY" envDefault:"10"`
}

// DefaultConfig mirrors the env defaults for callers that skip config loading.
func DefaultConfig() Config {
	return Config{
		FrontendURL:            "http://localhost:3000",
		Lookback:               7 * 24 * time.Hour,
		WeeklyProductLimit:     10,
		WeeklyConcurrency:      5,
		SummaryConcurrency:     5,
		OrderUpdateConcurrency: 10,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FrontendURL == "" {
		c.FrontendURL = d.FrontendURL
	}
	if c.Lookback <= 0 {
		c.Lookback = d.Lookback
	}
	if c.WeeklyProductLimit <= 0 {
		c.WeeklyProductLimit = d.WeeklyProductLimit
	}
	if c.WeeklyConcurrency <= 0 {
		c.WeeklyConcurrency = d.WeeklyConcurrency
	}
	if c.SummaryConcurrency <= 0 {
		c.SummaryConcurrency = d.SummaryConcurrency
	}
	if c.OrderUpdateConcurrency <= 0 {
		c.OrderUpdateConcurrency = d.OrderUpdateConcurrency
	}
	return c
}
