// Package storefront exposes the catalog over HTTP: product creation for the
// admin panel and the home page best-sellers list.
//
//	r.Mount("/api", storefront.NewRouter(catalogService, storefront.WithLogger(log)))
//
// The notification settings routes are mounted with WithNotificationSettings.
// Creating a product publishes catalog.ProductCreated, which the notification
// service turns into order-update emails.
package storefront
