package pool

import "errors"

var (
	ErrPoolClosed           = errors.New("connection pool is closed")
	ErrBreakerOpen          = errors.New("circuit breaker is open")
	ErrCapacityExceeded     = errors.New("connection pool capacity exceeded")
	ErrTypeCapacityExceeded = errors.New("connection type capacity exceeded")
	ErrCreateFailed         = errors.New("connection creation failed")
	ErrUnknownType          = errors.New("unknown resource type")
)
