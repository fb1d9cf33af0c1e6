// Package repository provides persistence implementations for users and
// missions, backed either by PostgreSQL or by MongoDB.
package repository

import "errors"

var (
	// ErrNotFound is returned when no record matches the lookup key.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when an insert hits a unique key.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrStaleVersion is returned when a save loses against a concurrent write.
	ErrStaleVersion = errors.New("stale record version")
)
