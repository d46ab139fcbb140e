// Package catalog owns the product write path and the daily best-sellers list.
//
// CreateProduct publishes a ProductCreated event on a broadcast.Broadcaster
// after the product is stored. The notification service subscribes to that
// broadcaster; publishing is decoupled from the write and its failure is
// only logged.
package catalog
