package access

import (
	"testing"
	"time"

	"github.com/coursegate/internal/course"
	"github.com/coursegate/internal/enrollment"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testCourse() *course.Course {
	return &course.Course{
		ID:             "course-1",
		Status:         course.StatusActive,
		Version:        1,
		CurrentVersion: 1,
	}
}

func testVideo(version int) *course.Video {
	return &course.Video{
		ID:               "video-1",
		CourseID:         "course-1",
		StorageLocator:   "hls/course-1/video-1/master.m3u8",
		EffectiveVersion: version,
	}
}

func testEnrollment(version int) *enrollment.Enrollment {
	return &enrollment.Enrollment{
		CourseID:        "course-1",
		UserID:          42,
		VersionEnrolled: version,
		Status:          enrollment.StatusActive,
	}
}

func TestDecideMissingCourseOrVideo(t *testing.T) {
	v := Viewer{UserID: 42}

	if d := Decide(v, nil, testEnrollment(1), testVideo(1), now); d.Allowed || d.Reason != ReasonNotFound {
		t.Errorf("nil course: got %+v, want not_found deny", d)
	}
	if d := Decide(v, testCourse(), testEnrollment(1), nil, now); d.Allowed || d.Reason != ReasonNotFound {
		t.Errorf("nil video: got %+v, want not_found deny", d)
	}

	foreign := testVideo(1)
	foreign.CourseID = "course-2"
	if d := Decide(v, testCourse(), testEnrollment(1), foreign, now); d.Allowed || d.Reason != ReasonNotFound {
		t.Errorf("video from another course: got %+v, want not_found deny", d)
	}
}

func TestDecideAdminBypass(t *testing.T) {
	admin := Viewer{UserID: 1, Admin: true}

	c := testCourse()
	c.Status = course.StatusArchived
	past := now.Add(-time.Hour)
	c.ArchiveGracePeriodEnd = &past

	// No enrollment, unreachable course, version-locked video. Admin still
	// gets through.
	if d := Decide(admin, c, nil, testVideo(5), now); !d.Allowed {
		t.Errorf("admin should bypass every check, got deny %q", d.Reason)
	}
}

func TestDecideRequiresEnrollment(t *testing.T) {
	c := testCourse()
	vid := testVideo(1)

	if d := Decide(Viewer{Anonymous: true}, c, nil, vid, now); d.Allowed || d.Reason != ReasonNotPurchased {
		t.Errorf("anonymous viewer: got %+v, want not_purchased deny", d)
	}
	if d := Decide(Viewer{UserID: 42}, c, nil, vid, now); d.Allowed || d.Reason != ReasonNotPurchased {
		t.Errorf("no enrollment: got %+v, want not_purchased deny", d)
	}

	cancelled := testEnrollment(1)
	cancelled.Status = enrollment.StatusCancelled
	if d := Decide(Viewer{UserID: 42}, c, cancelled, vid, now); d.Allowed || d.Reason != ReasonNotPurchased {
		t.Errorf("cancelled enrollment: got %+v, want not_purchased deny", d)
	}
}

func TestDecideEnrolleeOnActiveCourse(t *testing.T) {
	d := Decide(Viewer{UserID: 42}, testCourse(), testEnrollment(1), testVideo(1), now)
	if !d.Allowed {
		t.Errorf("active enrollee on active course should be allowed, got deny %q", d.Reason)
	}
}

func TestDecideLifecycleExpiry(t *testing.T) {
	c := testCourse()
	c.Status = course.StatusArchived
	deadline := now.Add(time.Hour)
	c.ArchiveGracePeriodEnd = &deadline

	v := Viewer{UserID: 42}
	e := testEnrollment(1)
	vid := testVideo(1)

	if d := Decide(v, c, e, vid, now); !d.Allowed {
		t.Errorf("archived course inside grace window should be allowed, got deny %q", d.Reason)
	}
	if d := Decide(v, c, e, vid, now.Add(2*time.Hour)); d.Allowed || d.Reason != ReasonLifecycleExpired {
		t.Errorf("archived course past grace window: got %+v, want lifecycle_expired deny", d)
	}
}

func TestDecideVersionGate(t *testing.T) {
	c := testCourse()
	c.CurrentVersion = 2
	v := Viewer{UserID: 42}

	// Enrolled at version 1; a video published after the bump stays locked.
	if d := Decide(v, c, testEnrollment(1), testVideo(2), now); d.Allowed || d.Reason != ReasonVersionLocked {
		t.Errorf("newer content: got %+v, want version_locked deny", d)
	}
	// Content at or below the enrolled version plays.
	if d := Decide(v, c, testEnrollment(1), testVideo(1), now); !d.Allowed {
		t.Errorf("content at enrolled version should be allowed, got deny %q", d.Reason)
	}
	if d := Decide(v, c, testEnrollment(2), testVideo(2), now); !d.Allowed {
		t.Errorf("enrollee at version 2 should see version 2 content, got deny %q", d.Reason)
	}
}

func TestDecideDenyOrderPrefersNotPurchased(t *testing.T) {
	// A viewer with no enrollment on an unreachable course hears
	// not_purchased, not lifecycle_expired.
	c := testCourse()
	c.Status = course.StatusArchived
	past := now.Add(-time.Hour)
	c.ArchiveGracePeriodEnd = &past

	if d := Decide(Viewer{UserID: 42}, c, nil, testVideo(1), now); d.Reason != ReasonNotPurchased {
		t.Errorf("got reason %q, want %q", d.Reason, ReasonNotPurchased)
	}
}
