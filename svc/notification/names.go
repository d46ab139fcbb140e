package notification

// Queue names.
const (
	WeeklyQueue         = "weekly-notifications"
	AccountSummaryQueue = "account-summary"
	OrderUpdatesQueue   = "order-updates"
)

// Job names. The plural names are broadcast triggers that fan out into one
// singular per-recipient job each.
const (
	JobSendWeeklyNotifications = "send-weekly-notifications"
	JobSendWeeklyNotification  = "send-weekly-notification"
	JobSendAccountSummaries    = "send-account-summaries"
	JobSendAccountSummary      = "send-account-summary"
	JobSendOrderUpdate         = "send-order-update"

	// JobNotifyNewProduct is the durable trigger queued for each product
	// event; it fans out into JobSendOrderUpdate jobs.
	JobNotifyNewProduct = "notify-new-product"
)

// Recurring trigger identities. These keys de-duplicate the schedules across
// restarts; renaming one leaves the old schedule registered.
const (
	WeeklyRecurringID         = "weekly-notifications-recurring"
	AccountSummaryRecurringID = "account-summary-recurring"

	WeeklyPattern         = "0 9 * * 1"
	AccountSummaryPattern = "0 10 * * 1"
)

// Preference categories and subtypes as stored in notification settings.
const (
	CategoryEmail   = "email_notifications"
	CategoryText    = "text_messages"
	CategoryWebsite = "website_notifications"

	SubtypeWeeklyNotification = "weekly_notification"
	SubtypeAccountSummary     = "account_summary"
	SubtypeOrderUpdates       = "order_updates"
)
