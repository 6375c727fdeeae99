package kinematics

import "errors"

// Engine errors
var (
	ErrInvalidInput = errors.New("invalid collision input")
	ErrNoCollision  = errors.New("particle B cannot catch up to particle A")
	ErrOutOfRange   = errors.New("collision values exceed floating-point range")
)
