package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// EmailSender represents an interface for sending emails.
type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams represents the parameters for sending an email.
type SendEmailParams struct {
	SendTo   string `json:"send_to" validate:"required,email"` // Email address of the recipient
	Subject  string `json:"subject" validate:"required"`       // Subject of the email
	BodyHTML string `json:"body_html" validate:"required"`     // HTML body of the email
	Tag      string `json:"tag,omitempty"`                     // Optional
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the message can be handed to a provider.
// Surrounding whitespace is not considered content.
func (p SendEmailParams) Validate() error {
	trimmed := SendEmailParams{
		SendTo:   strings.TrimSpace(p.SendTo),
		Subject:  strings.TrimSpace(p.Subject),
		BodyHTML: strings.TrimSpace(p.BodyHTML),
	}

	err := validate.Struct(trimmed)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.Join(ErrInvalidParams, err)
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s is required", ErrInvalidParams, fe.Field())
	case "email":
		return fmt.Errorf("%w: %s must be a valid email address", ErrInvalidParams, fe.Field())
	default:
		return fmt.Errorf("%w: %s failed %q", ErrInvalidParams, fe.Field(), fe.Tag())
	}
}

func validEmail(addr string) bool {
	return validate.Var(addr, "required,email") == nil
}
