package server

import "errors"

// Server-specific errors
var (
	ErrServerClosed         = errors.New("server is closed")
	ErrServerNotRunning     = errors.New("server is not running")
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrServerStopping       = errors.New("server is stopping")
	ErrBadRequest           = errors.New("bad request")
	ErrBatchTooLarge        = errors.New("batch exceeds maximum size")
)
