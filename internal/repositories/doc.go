// Package repositories provides the persistence layer: the durable
// conversion checkpoint keyed by source playlist id.
package repositories
