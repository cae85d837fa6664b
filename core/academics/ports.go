package academics

import (
	"context"
	"time"
)

type (
	// Gateway is the remote API. Every call is authenticated with the current session token.
	// Fetches return patches: fields the API omitted are left unspecified.
	Gateway interface {
		ListCourses(ctx context.Context) ([]CoursePatch, error)
		GetCourse(ctx context.Context, id string) (CoursePatch, error)
		ListCoursesByID(ctx context.Context, ids []string) ([]CoursePatch, error)
		CreateCourse(ctx context.Context, nc NewCourse) (string, error)
		UpdateCourse(ctx context.Context, c Course) error

		ListClasses(ctx context.Context, courseID string) ([]ClassPatch, error)
		GetClass(ctx context.Context, id string) (ClassPatch, error)
		CreateClass(ctx context.Context, courseID string, date time.Time) (string, error)
		DeleteClass(ctx context.Context, id string) error

		// CreateAttendance returns a *ConflictError when the attendance already exists.
		CreateAttendance(ctx context.Context, classID, studentID string) error
		DeleteAttendance(ctx context.Context, classID, studentID string) error

		ListStudents(ctx context.Context) ([]StudentPatch, error)
		ListCourseStudents(ctx context.Context, courseID string) ([]StudentPatch, error)
		GetStudent(ctx context.Context, id string) (StudentPatch, error)
		GetStudentByCode(ctx context.Context, code string) (StudentPatch, error)
		CreateStudent(ctx context.Context, ns NewStudent) (string, error)
		UpdateStudent(ctx context.Context, s Student) error

		ListLecturers(ctx context.Context) ([]LecturerPatch, error)
		GetLecturer(ctx context.Context, id string) (LecturerPatch, error)
	}

	CacheReader interface {
		Course(id string) (Course, bool)
		Class(id string) (Class, bool)
		Student(id string) (Student, bool)
		Lecturer(id string) (Lecturer, bool)

		// Courses, Students and Lecturers are in id-list order.
		Courses() []Course
		// Classes are sorted by date, most recent first.
		Classes() []Class
		Students() []Student
		Lecturers() []Lecturer
	}

	// CacheTx writes to the cache inside a Batch.
	CacheTx interface {
		CacheReader

		// Upserts merge the patch over the existing record, creating it if absent,
		// and register id in the kind's id-list.
		UpsertCourse(id string, p CoursePatch)
		UpsertClass(id string, p ClassPatch)
		UpsertStudent(id string, p StudentPatch)
		UpsertLecturer(id string, p LecturerPatch)

		// Remove deletes a record and scrubs its id from every list referencing it.
		// Removing an absent id is a no-op.
		Remove(kind Kind, id string)

		// Reset empties one kind's mapping and id-list, ahead of a full resync.
		Reset(kind Kind)
	}

	// Cache is the shared normalized entity store.
	Cache interface {
		CacheReader

		// Batch runs fn as one atomic change set: readers never observe it half applied,
		// and if fn returns an error nothing is applied.
		Batch(fn func(tx CacheTx) error) error

		// Version is bumped once per batch touching kind.
		Version(kind Kind) uint64

		// Subscribe calls fn after every applied batch. It returns the unsubscribe func.
		Subscribe(fn func(Change)) (unsubscribe func())

		// Clear empties every mapping.
		Clear()
	}
)

// Change describes one applied batch.
type Change struct {
	IDs   map[Kind][]string
	Reset []Kind
}

// Touches reports whether the batch wrote kind.
func (c Change) Touches(kind Kind) bool {
	if _, ok := c.IDs[kind]; ok {
		return true
	}
	for _, k := range c.Reset {
		if k == kind {
			return true
		}
	}
	return false
}
