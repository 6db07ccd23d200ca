// Package store keeps the history of sync runs in a local SQLite database.
package store
