package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate indicates a uniqueness constraint rejected the write.
	ErrDuplicate = errors.New("repository: duplicate")
)
