package notification

import "errors"

var (
	ErrUserNotFound      = errors.New("notification: user not found")
	ErrProductNotFound   = errors.New("notification: product not found")
	ErrSettingsNotFound  = errors.New("notification: settings not found")
	ErrInvalidID         = errors.New("notification: invalid object id")
	ErrUnknownPreference = errors.New("notification: unknown preference")
	ErrFailedToFanOut    = errors.New("notification: failed to fan out")
)
