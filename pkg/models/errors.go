package models

import "errors"

var (
	ErrUnknownStrategy   = errors.New("unknown click generation strategy")
	ErrUnknownCriterion  = errors.New("unknown stopping criterion")
	ErrBadGuidanceLength = errors.New("guidance coordinate has wrong length")
	ErrBadSignal         = errors.New("bad signal values")
	ErrMalformedRecord   = errors.New("malformed click record")
	ErrRecordNotFound    = errors.New("record not found")
	ErrRoundCapExceeded  = errors.New("interaction round cap exceeded")
	ErrShapeMismatch     = errors.New("shape mismatch")
	ErrSignalNotEmpty    = errors.New("guidance signal not empty at round 0")
	ErrGuidanceShrunk    = errors.New("guidance set cannot shrink within an episode")
)
