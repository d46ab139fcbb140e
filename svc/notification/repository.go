package notification

import (
	"context"
	"time"
)

// RecipientSource answers who opted into a notification subtype.
type RecipientSource interface {
	// RecipientsWithEnabled returns the users whose active settings enable
	// category.subtype, joined with their name and email.
	RecipientsWithEnabled(ctx context.Context, category, subtype string) ([]Recipient, error)
}

// DataSource is the read-only domain data used to compose notifications.
type DataSource interface {
	GetUser(ctx context.Context, id string) (*User, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	// ProductsCreatedSince returns active products created at or after since,
	// newest first, at most limit.
	ProductsCreatedSince(ctx context.Context, since time.Time, limit int) ([]Product, error)
	// PaidOrdersSince returns the user's paid, active orders created at or after since.
	PaidOrdersSince(ctx context.Context, userID string, since time.Time) ([]Order, error)
}

// SettingsStore persists notification preferences.
type SettingsStore interface {
	FindSettings(ctx context.Context, userID string) (*Settings, error)
	// UpsertSettings sets prefs and returns the stored record. A missing
	// record is created with DefaultPreferences for the paths not in prefs.
	UpsertSettings(ctx context.Context, userID string, prefs Preferences, now time.Time) (*Settings, error)
}

// Repository combines every store the service reads from or writes to.
type Repository interface {
	RecipientSource
	DataSource
	SettingsStore
}
