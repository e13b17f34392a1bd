package storage

import "errors"

var (
	ErrStoreUnreachable   = errors.New("vector store unreachable")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrUnknownStore       = errors.New("unknown vector store type")
	ErrInvalidCollection  = errors.New("invalid collection name")
	ErrInvalidFilter      = errors.New("invalid metadata filter")
	ErrInvalidID          = errors.New("record id is not a UUID")
)
