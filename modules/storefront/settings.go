package storefront

import (
	"errors"

	"github.com/dmitrymomot/clickmart/handler"
	"github.com/dmitrymomot/clickmart/svc/notification"
)

type settingsRequest struct {
	UserID string `path:"id"`
}

// updateSettingsRequest carries flags keyed by "<category>.<subtype>", e.g.
// {"preferences": {"email_notifications.weekly_notification": true}}.
type updateSettingsRequest struct {
	UserID      string                   `path:"id" json:"-"`
	Preferences notification.Preferences `path:"-" json:"preferences"`
}

func (rt *routes) getSettings(ctx handler.Context, req settingsRequest) handler.Response {
	settings, err := rt.settings.Settings(ctx, req.UserID)
	if err != nil {
		return handler.JSONError(settingsError(err))
	}
	return handler.JSON(settings)
}

func (rt *routes) updateSettings(ctx handler.Context, req updateSettingsRequest) handler.Response {
	if len(req.Preferences) == 0 {
		return handler.JSONError(errors.Join(handler.ErrBadRequest, errors.New("preferences are required")))
	}
	settings, err := rt.settings.UpdateSettings(ctx, req.UserID, req.Preferences)
	if err != nil {
		return handler.JSONError(settingsError(err))
	}
	return handler.JSON(settings)
}

func settingsError(err error) error {
	if errors.Is(err, notification.ErrInvalidID) || errors.Is(err, notification.ErrUnknownPreference) {
		return errors.Join(handler.ErrBadRequest, err)
	}
	return err
}
