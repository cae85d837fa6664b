package academics

import (
	"context"

	"github.com/pkg/errors"
)

// AttendanceState is the transient marking state of one student in one class.
type AttendanceState string

const (
	Unmarked       AttendanceState = "unmarked"
	Marking        AttendanceState = "marking"
	Present        AttendanceState = "present"
	Absent         AttendanceState = "absent"
	AlreadyPresent AttendanceState = "already-present"
)

type attendanceKey struct {
	classID   string
	studentID string
}

func (svc *Service) AttendanceState(classID, studentID string) AttendanceState {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if state, ok := svc.attendance[attendanceKey{classID, studentID}]; ok {
		return state
	}
	return Unmarked
}

// setAttendanceState returns the previous state.
func (svc *Service) setAttendanceState(classID, studentID string, state AttendanceState) AttendanceState {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	key := attendanceKey{classID, studentID}
	prev, ok := svc.attendance[key]
	if !ok {
		prev = Unmarked
	}
	svc.attendance[key] = state
	return prev
}

// MarkPresent records studentID as present in classID, then adds it to the class's present ids.
// If the server already holds that attendance, a *ConflictError is returned
// and the cache is left as is: reconcile with MarkPresentLocal.
func (svc *Service) MarkPresent(ctx context.Context, classID, studentID string) error {
	if _, ok := svc.cache.Class(classID); !ok {
		return ErrClassNotLoaded
	}

	prev := svc.setAttendanceState(classID, studentID, Marking)
	if err := svc.gateway.CreateAttendance(ctx, classID, studentID); err != nil {
		svc.setAttendanceState(classID, studentID, prev)
		if cErr, ok := AsConflictError(err); ok {
			cErr.ClassID, cErr.StudentID = classID, studentID
			return cErr
		}
		return err
	}

	if err := svc.cache.Batch(func(tx CacheTx) error {
		svc.addPresent(tx, classID, studentID)
		return nil
	}); err != nil {
		return err
	}
	svc.setAttendanceState(classID, studentID, Present)
	return nil
}

// MarkPresentLocal applies the attendance the server reported in conflict,
// without another round trip.
func (svc *Service) MarkPresentLocal(conflict *ConflictError) error {
	if conflict == nil {
		return errors.New("no attendance conflict to reconcile")
	}
	if _, ok := svc.cache.Class(conflict.ClassID); !ok {
		return ErrClassNotLoaded
	}

	if err := svc.cache.Batch(func(tx CacheTx) error {
		svc.addPresent(tx, conflict.ClassID, conflict.StudentID)
		if conflict.Student.ID == conflict.StudentID {
			tx.UpsertStudent(conflict.StudentID, conflict.Student)
		}
		return nil
	}); err != nil {
		return err
	}
	svc.setAttendanceState(conflict.ClassID, conflict.StudentID, AlreadyPresent)
	return nil
}

// MarkAbsent deletes the attendance of studentID in classID, then drops it from the class's present ids.
func (svc *Service) MarkAbsent(ctx context.Context, classID, studentID string) error {
	if _, ok := svc.cache.Class(classID); !ok {
		return ErrClassNotLoaded
	}

	prev := svc.setAttendanceState(classID, studentID, Marking)
	if err := svc.gateway.DeleteAttendance(ctx, classID, studentID); err != nil {
		svc.setAttendanceState(classID, studentID, prev)
		return err
	}

	if err := svc.cache.Batch(func(tx CacheTx) error {
		cls, ok := tx.Class(classID)
		if !ok || !cls.IsPresent(studentID) {
			return nil
		}
		tx.UpsertClass(classID, ClassPatch{ID: classID, PresentIDs: nonNil(Without(cls.PresentIDs, studentID))})
		return nil
	}); err != nil {
		return err
	}
	svc.setAttendanceState(classID, studentID, Absent)
	return nil
}

func (svc *Service) addPresent(tx CacheTx, classID, studentID string) {
	cls, ok := tx.Class(classID)
	if !ok {
		svc.logger.Warn("attendance recorded for a class no longer cached", "classID", classID, "studentID", studentID)
		return
	}
	if cls.IsPresent(studentID) {
		return
	}
	tx.UpsertClass(classID, ClassPatch{ID: classID, PresentIDs: append(nonNil(cls.PresentIDs), studentID)})
}

// MarkPresentByCode resolves a scanned student code and marks that student
// present in classID. The student must be registered for the class's course.
func (svc *Service) MarkPresentByCode(ctx context.Context, classID, code string) (Student, error) {
	cls, ok := svc.cache.Class(classID)
	if !ok {
		return Student{}, ErrClassNotLoaded
	}

	student, err := svc.resolveStudent(ctx, code)
	if err != nil {
		return Student{}, err
	}
	if !svc.isRegistered(student, cls.CourseID) {
		return student, ErrNotEnrolled
	}
	return student, svc.MarkPresent(ctx, classID, student.ID)
}

// resolveStudent looks a scanned code up and caches the student found.
func (svc *Service) resolveStudent(ctx context.Context, code string) (Student, error) {
	patch, err := svc.gateway.GetStudentByCode(ctx, code)
	if err != nil {
		return Student{}, err
	}
	if patch.ID == "" {
		return Student{}, ErrNotFound
	}

	var student Student
	err = svc.cache.Batch(func(tx CacheTx) error {
		tx.UpsertStudent(patch.ID, patch)
		student, _ = tx.Student(patch.ID)
		return nil
	})
	return student, err
}

func (svc *Service) isRegistered(student Student, courseID string) bool {
	if course, ok := svc.cache.Course(courseID); ok && course.HasStudent(student.ID) {
		return true
	}
	return contains(student.CourseIDs, courseID)
}
