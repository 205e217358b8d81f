// Package stores keeps a history of published facts in SQLite.
//
// The store is write-mostly: each recorded gathering becomes a Collection
// row, and the facts it published are upserted keyed by target, namespace
// and fact name. Facts a newer collection no longer publishes are removed,
// so the table always mirrors the last observed state of each target.
// Nothing in the collection path reads from the store.
package stores
