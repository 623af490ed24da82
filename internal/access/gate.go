package access

import (
	"context"
	"errors"
	"time"

	"github.com/coursegate/internal/course"
	"github.com/coursegate/internal/enrollment"
)

// CourseSource is the slice of the course ledger the gate reads.
type CourseSource interface {
	Get(ctx context.Context, id string) (*course.Course, error)
	GetVideo(ctx context.Context, id string) (*course.Video, error)
}

// EnrollmentSource is the slice of the enrollment registry the gate reads.
type EnrollmentSource interface {
	Get(ctx context.Context, courseID string, userID int64) (*enrollment.Enrollment, error)
}

// Gate loads the state snapshot a decision needs and runs Decide over it.
// It holds no mutable state of its own.
type Gate struct {
	courses     CourseSource
	enrollments EnrollmentSource
}

func NewGate(courses CourseSource, enrollments EnrollmentSource) *Gate {
	return &Gate{courses: courses, enrollments: enrollments}
}

// Check decides playback of the given video. The returned video is non-nil
// only when the video exists, regardless of the decision, so callers can
// render locked metadata without a second lookup.
func (g *Gate) Check(ctx context.Context, v Viewer, videoID string) (Decision, *course.Video, error) {
	vid, err := g.courses.GetVideo(ctx, videoID)
	if errors.Is(err, course.ErrVideoNotFound) {
		return deny(ReasonNotFound), nil, nil
	}
	if err != nil {
		return Decision{}, nil, err
	}

	c, err := g.courses.Get(ctx, vid.CourseID)
	if errors.Is(err, course.ErrNotFound) {
		return deny(ReasonNotFound), vid, nil
	}
	if err != nil {
		return Decision{}, vid, err
	}

	var e *enrollment.Enrollment
	if !v.Anonymous && !v.Admin {
		e, err = g.enrollments.Get(ctx, c.ID, v.UserID)
		if err != nil {
			return Decision{}, vid, err
		}
	}

	return Decide(v, c, e, vid, time.Now()), vid, nil
}
