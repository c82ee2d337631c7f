package storage

import "errors"

var (
	// ErrQuotaExceeded is returned (wrapped) when a write would exceed a
	// configured size limit.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
	// ErrClosed is returned by backends used after Close.
	ErrClosed = errors.New("storage: backend closed")
	// ErrInvalidKey is returned for keys a backend cannot store.
	ErrInvalidKey = errors.New("storage: invalid key")
)
