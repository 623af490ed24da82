package course

import "errors"

var (
	ErrNotFound          = errors.New("course: not found")
	ErrVideoNotFound     = errors.New("course: video not found")
	ErrInvalidTransition = errors.New("course: invalid lifecycle transition")
)
