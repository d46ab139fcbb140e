// Package email delivers transactional emails through a provider-agnostic
// EmailSender interface.
//
// Implementations:
//   - PostmarkClient for production delivery
//   - DevSender for local development (writes HTML and JSON files to disk)
//   - BreakerSender wraps any sender with a circuit breaker
//
// NewSender picks the implementation from Config: Postmark wrapped in a
// breaker when both Postmark tokens are set, DevSender otherwise.
//
// # Usage
//
//	sender, err := email.NewSender(cfg, logger)
//	if err != nil {
//	    return err
//	}
//
//	subject, html, err := templates.RenderMessage(ctx, templates.WeeklyDigest{
//	    UserName: user.Name,
//	    Products: products,
//	})
//	if err != nil {
//	    return err
//	}
//
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//	    SendTo:   user.Email,
//	    Subject:  subject,
//	    BodyHTML: html,
//	    Tag:      "weekly-digest",
//	})
//
// # Error Handling
//
//   - ErrInvalidConfig: provider configuration is incomplete
//   - ErrInvalidParams: message parameters failed validation
//   - ErrFailedToSendEmail: the provider rejected or failed the delivery
//   - ErrDeliveryPaused: the circuit breaker is open
//
// Invalid parameters never count as provider failures in BreakerSender.
//
// # Templates
//
// The templates subpackage renders the store's notification emails
// (weekly digest, account summary, new product) as templ components
// built on a shared inline-styled layout.
package email
