package storage

import "errors"

// Common client storage errors
var (
	// ErrAuthNotFound indicates that no authentication data exists
	ErrAuthNotFound = errors.New("authentication data not found")

	// ErrRecordNotFound indicates that record was not found in the materialized collection
	ErrRecordNotFound = errors.New("record not found")

	// ErrUnknownCollection indicates that collection name is empty or not registered
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
