package cache

import "errors"

var (
	ErrInvalidKey   = errors.New("cache key must not be empty")
	ErrInvalidTTL   = errors.New("cache ttl must be positive")
	ErrItemTooLarge = errors.New("cache item exceeds maximum size")
	ErrCorrupted    = errors.New("cache item checksum mismatch")
	ErrClosed       = errors.New("cache is closed")
)
