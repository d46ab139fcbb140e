// Package notification is the scheduled and event-driven email notification
// engine.
//
// Initialize starts one worker per notification queue and registers two
// recurring triggers under fixed keys, so restarts never duplicate them:
//
//	weekly-notifications-recurring  weekly-notifications  send-weekly-notifications  0 9 * * 1
//	account-summary-recurring       account-summary       send-account-summaries     0 10 * * 1
//
// When a trigger fires, the dispatcher asks the preference store for every
// user who opted into the matching email subtype and enqueues one
// per-recipient job each on the same queue. ListenProductEvents turns each
// product creation event into a durable notify-new-product trigger on the
// order-updates queue, keyed by product ID, which fans out the same way.
//
// Per-recipient processors load live data, render a template from
// pkg/email/templates and hand it to an email.EmailSender. Conditions no
// retry can fix (user gone, no address, nothing to report) complete the job
// through queue.Skip; delivery failures are returned so the queue retries
// them with backoff.
package notification
