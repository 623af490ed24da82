package enrollment

import "errors"

var (
	ErrNotEligible      = errors.New("enrollment: course no longer accepts enrollments")
	ErrCapacityExceeded = errors.New("enrollment: course capacity exceeded")
	ErrNotFound         = errors.New("enrollment: not found")
	ErrNotEnrolled      = errors.New("enrollment: no active enrollment")
)
