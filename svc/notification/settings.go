package notification

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/dmitrymomot/clickmart/pkg/logger"
)

// EmailPreferences are the email subtypes a user can opt into.
type EmailPreferences struct {
	WeeklyNotification bool `bson:"weekly_notification" json:"weekly_notification"`
	AccountSummary     bool `bson:"account_summary" json:"account_summary"`
	OrderUpdates       bool `bson:"order_updates" json:"order_updates"`
}

// TextPreferences are the SMS subtypes.
type TextPreferences struct {
	CallBeforeCheckout bool `bson:"call_before_checkout" json:"call_before_checkout"`
	OrderUpdates       bool `bson:"order_updates" json:"order_updates"`
}

// WebsitePreferences are the in-app subtypes.
type WebsitePreferences struct {
	NewFollower           bool `bson:"new_follower" json:"new_follower"`
	PostLike              bool `bson:"post_like" json:"post_like"`
	SomeoneFollowedPosted bool `bson:"someone_followed_posted" json:"someone_followed_posted"`
	PostAddedToCollection bool `bson:"post_added_to_collection" json:"post_added_to_collection"`
	OrderDelivery         bool `bson:"order_delivery" json:"order_delivery"`
}

// Settings are a user's notification preferences.
type Settings struct {
	UserID    string             `bson:"-" json:"user_id"`
	Email     EmailPreferences   `bson:"email_notifications" json:"email_notifications"`
	Text      TextPreferences    `bson:"text_messages" json:"text_messages"`
	Website   WebsitePreferences `bson:"website_notifications" json:"website_notifications"`
	IsActive  int                `bson:"is_active" json:"is_active"`
	CreatedAt int64              `bson:"created_at" json:"created_at"`
	UpdatedAt int64              `bson:"updated_at" json:"updated_at"`
}

// Preferences maps "<category>.<subtype>" paths to opt-in flags.
type Preferences map[string]bool

// DefaultPreferences returns the flags a new settings record starts with:
// email and text are opt-in, website notifications are opt-out.
func DefaultPreferences() Preferences {
	return Preferences{
		CategoryEmail + "." + SubtypeWeeklyNotification: false,
		CategoryEmail + "." + SubtypeAccountSummary:     false,
		CategoryEmail + "." + SubtypeOrderUpdates:       false,
		CategoryText + ".call_before_checkout":          false,
		CategoryText + "." + SubtypeOrderUpdates:        false,
		CategoryWebsite + ".new_follower":               true,
		CategoryWebsite + ".post_like":                  true,
		CategoryWebsite + ".someone_followed_posted":    true,
		CategoryWebsite + ".post_added_to_collection":   true,
		CategoryWebsite + ".order_delivery":             true,
	}
}

var knownPreferences = DefaultPreferences()

// PreferencePath joins category and subtype and checks the result is a known
// preference. Only known paths ever reach a query.
func PreferencePath(category, subtype string) (string, error) {
	path := category + "." + subtype
	if _, ok := knownPreferences[path]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPreference, path)
	}
	return path, nil
}

// Validate rejects unknown preference paths.
func (p Preferences) Validate() error {
	var errs []error
	for _, path := range slices.Sorted(maps.Keys(p)) {
		if _, ok := knownPreferences[path]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownPreference, path))
		}
	}
	return errors.Join(errs...)
}

// Settings returns the user's notification settings, creating the default
// record on first access.
func (s *Service) Settings(ctx context.Context, userID string) (*Settings, error) {
	settings, err := s.repo.FindSettings(ctx, userID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, ErrSettingsNotFound) {
		return nil, err
	}
	return s.repo.UpsertSettings(ctx, userID, Preferences{}, s.now().UTC())
}

// UpdateSettings applies prefs on top of the stored settings.
// Paths not present in prefs keep their stored or default values.
func (s *Service) UpdateSettings(ctx context.Context, userID string, prefs Preferences) (*Settings, error) {
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	settings, err := s.repo.UpsertSettings(ctx, userID, prefs, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "notification settings updated", logger.UserID(userID), logger.Count(len(prefs)))
	return settings, nil
}
