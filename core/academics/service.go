package academics

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/rollcall/core"
)

// Service runs the aggregation operations: each one issues its gateway calls,
// then merges every result into the Cache in one batch.
// Concurrent operations on the same entity are last-write-wins; identical
// in-flight detail fetches are coalesced into one.
type Service struct {
	gateway   Gateway
	cache     Cache
	validate  *core.Validator
	logger    core.Logger
	threshold float64
	now       func() time.Time

	fetches singleflight.Group

	mu         sync.Mutex
	attendance map[attendanceKey]AttendanceState
}

func NewService(gateway Gateway, cache Cache, validate *core.Validator, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		gateway:    gateway,
		cache:      cache,
		validate:   validate,
		logger:     logger,
		threshold:  conf.Attendance.EligibilityThreshold,
		now:        time.Now,
		attendance: make(map[attendanceKey]AttendanceState),
	}
}

// share runs fn once for all concurrent callers of key. fn does not inherit
// the callers' cancellation; each caller stops waiting when its own ctx is done.
func (svc *Service) share(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	ch := svc.fetches.DoChan(key, func() (interface{}, error) {
		return nil, fn(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FetchCourses replaces every cached course with the listed ones.
func (svc *Service) FetchCourses(ctx context.Context) error {
	courses, err := svc.gateway.ListCourses(ctx)
	if err != nil {
		return err
	}
	return svc.cache.Batch(func(tx CacheTx) error {
		tx.Reset(KindCourse)
		for _, c := range courses {
			tx.UpsertCourse(c.ID, c)
		}
		return nil
	})
}

// FetchStudents replaces every cached student with the listed ones.
func (svc *Service) FetchStudents(ctx context.Context) error {
	students, err := svc.gateway.ListStudents(ctx)
	if err != nil {
		return err
	}
	return svc.cache.Batch(func(tx CacheTx) error {
		tx.Reset(KindStudent)
		for _, s := range students {
			tx.UpsertStudent(s.ID, s)
		}
		return nil
	})
}

// FetchLecturers replaces every cached lecturer with the listed ones.
func (svc *Service) FetchLecturers(ctx context.Context) error {
	lecturers, err := svc.gateway.ListLecturers(ctx)
	if err != nil {
		return err
	}
	return svc.cache.Batch(func(tx CacheTx) error {
		tx.Reset(KindLecturer)
		for _, l := range lecturers {
			tx.UpsertLecturer(l.ID, l)
		}
		return nil
	})
}

// FetchCourseInfo loads a course with its classes, students and lecturer.
// Sub-fetches are skipped when the course declares none; if any of them
// fails the cache is left untouched.
func (svc *Service) FetchCourseInfo(ctx context.Context, courseID string) error {
	return svc.share(ctx, "course:"+courseID, func(ctx context.Context) error {
		return svc.fetchCourseInfo(ctx, courseID)
	})
}

func (svc *Service) fetchCourseInfo(ctx context.Context, courseID string) error {
	course, err := svc.gateway.GetCourse(ctx, courseID)
	if err != nil {
		return err
	}

	var (
		classes    []ClassPatch
		students   []StudentPatch
		lecturer   LecturerPatch
		lecturerID string
	)
	if course.LecturerID != nil {
		lecturerID = *course.LecturerID
	}

	g, gctx := errgroup.WithContext(ctx)
	if len(course.ClassIDs) > 0 {
		g.Go(func() (err error) {
			classes, err = svc.gateway.ListClasses(gctx, courseID)
			return err
		})
	}
	if len(course.StudentIDs) > 0 {
		g.Go(func() (err error) {
			students, err = svc.gateway.ListCourseStudents(gctx, courseID)
			return err
		})
	}
	if lecturerID != "" {
		g.Go(func() (err error) {
			lecturer, err = svc.gateway.GetLecturer(gctx, lecturerID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return svc.cache.Batch(func(tx CacheTx) error {
		classIDs := make([]string, 0, len(classes))
		for _, cls := range classes {
			patch := ClassPatch{ID: cls.ID, CourseID: Ptr(courseID), Date: cls.Date, PresentIDs: cls.PresentIDs}
			if _, ok := tx.Class(cls.ID); !ok && patch.PresentIDs == nil {
				patch.PresentIDs = []string{}
			}
			tx.UpsertClass(cls.ID, patch)
			classIDs = append(classIDs, cls.ID)
		}

		studentIDs := make([]string, 0, len(students))
		for _, s := range students {
			tx.UpsertStudent(s.ID, s)
			studentIDs = append(studentIDs, s.ID)
		}

		if lecturerID != "" {
			lecturer.ID = lecturerID
			tx.UpsertLecturer(lecturerID, lecturer)
		}

		course.ID = courseID
		course.ClassIDs = dedupe(classIDs)
		course.StudentIDs = dedupe(studentIDs)
		tx.UpsertCourse(courseID, course)
		return nil
	})
}

// FetchStudentInfo loads a student with its attendance summary and the
// code & title of every course it is registered for.
func (svc *Service) FetchStudentInfo(ctx context.Context, studentID string) error {
	return svc.share(ctx, "student:"+studentID, func(ctx context.Context) error {
		return svc.fetchStudentInfo(ctx, studentID)
	})
}

func (svc *Service) fetchStudentInfo(ctx context.Context, studentID string) error {
	student, err := svc.gateway.GetStudent(ctx, studentID)
	if err != nil {
		return err
	}

	var courses []CoursePatch
	if len(student.CourseIDs) > 0 {
		if courses, err = svc.gateway.ListCoursesByID(ctx, student.CourseIDs); err != nil {
			return err
		}
	}

	return svc.cache.Batch(func(tx CacheTx) error {
		if len(student.CourseIDs) > 0 {
			courseIDs := make([]string, 0, len(courses))
			for _, c := range courses {
				tx.UpsertCourse(c.ID, CoursePatch{ID: c.ID, Code: c.Code, Title: c.Title})
				courseIDs = append(courseIDs, c.ID)
			}
			student.CourseIDs = dedupe(courseIDs)
		}
		student.ID = studentID
		tx.UpsertStudent(studentID, student)
		return nil
	})
}

// FetchLecturerInfo loads a lecturer with the code, title and attendance
// rate of every course it teaches.
func (svc *Service) FetchLecturerInfo(ctx context.Context, lecturerID string) error {
	return svc.share(ctx, "lecturer:"+lecturerID, func(ctx context.Context) error {
		return svc.fetchLecturerInfo(ctx, lecturerID)
	})
}

func (svc *Service) fetchLecturerInfo(ctx context.Context, lecturerID string) error {
	lecturer, err := svc.gateway.GetLecturer(ctx, lecturerID)
	if err != nil {
		return err
	}

	var courses []CoursePatch
	if len(lecturer.CourseIDs) > 0 {
		if courses, err = svc.gateway.ListCoursesByID(ctx, lecturer.CourseIDs); err != nil {
			return err
		}
	}

	return svc.cache.Batch(func(tx CacheTx) error {
		courseIDs := make([]string, 0, len(courses))
		for _, c := range courses {
			tx.UpsertCourse(c.ID, CoursePatch{ID: c.ID, Code: c.Code, Title: c.Title, AttendanceRate: c.AttendanceRate})
			courseIDs = append(courseIDs, c.ID)
		}
		lecturer.ID = lecturerID
		lecturer.CourseIDs = dedupe(courseIDs)
		tx.UpsertLecturer(lecturerID, lecturer)
		return nil
	})
}

// CreateClass schedules a class of courseID on date, or now when date is zero.
func (svc *Service) CreateClass(ctx context.Context, courseID string, date time.Time) (Class, error) {
	if date.IsZero() {
		date = svc.now()
	}
	date = date.UTC().Truncate(time.Second)

	id, err := svc.gateway.CreateClass(ctx, courseID, date)
	if err != nil {
		return Class{}, err
	}

	var cls Class
	err = svc.cache.Batch(func(tx CacheTx) error {
		tx.UpsertClass(id, ClassPatch{ID: id, CourseID: Ptr(courseID), Date: Ptr(date), PresentIDs: []string{}})
		course, _ := tx.Course(courseID)
		tx.UpsertCourse(courseID, CoursePatch{ID: courseID, ClassIDs: appendUnique(course.ClassIDs, id)})
		cls, _ = tx.Class(id)
		return nil
	})
	return cls, err
}

// DeleteClass deletes a class, then drops it from the cache and from every course's class list.
func (svc *Service) DeleteClass(ctx context.Context, classID string) error {
	if err := svc.gateway.DeleteClass(ctx, classID); err != nil {
		return err
	}
	return svc.cache.Batch(func(tx CacheTx) error {
		tx.Remove(KindClass, classID)
		return nil
	})
}

// FetchAdditionalClassInfo loads the present students of one class. The remote
// record may carry only presentIds: a class not cached yet is then located
// through the course listing it, so the cache never holds a class without
// course or date.
func (svc *Service) FetchAdditionalClassInfo(ctx context.Context, classID string) error {
	remote, err := svc.gateway.GetClass(ctx, classID)
	if err != nil {
		return err
	}
	patch := ClassPatch{ID: classID, CourseID: remote.CourseID, Date: remote.Date, PresentIDs: nonNil(remote.PresentIDs)}
	if patch.CourseID != nil && *patch.CourseID == "" {
		patch.CourseID = nil
	}

	cached, ok := svc.cache.Class(classID)
	if !ok || cached.CourseID == "" || cached.Date.IsZero() {
		if patch.CourseID == nil || patch.Date == nil {
			courseID := cached.CourseID
			if patch.CourseID != nil {
				courseID = *patch.CourseID
			}
			listed, err := svc.locateClass(ctx, classID, courseID)
			if err != nil {
				return err
			}
			if patch.CourseID == nil {
				patch.CourseID = listed.CourseID
			}
			if patch.Date == nil {
				patch.Date = listed.Date
			}
		}
	}

	return svc.cache.Batch(func(tx CacheTx) error {
		tx.UpsertClass(classID, patch)
		return nil
	})
}

// locateClass returns the listing entry of classID in courseID, or in the
// course listing it when courseID is empty.
func (svc *Service) locateClass(ctx context.Context, classID, courseID string) (ClassPatch, error) {
	if courseID == "" {
		courseID = svc.owningCourse(classID)
	}
	if courseID == "" {
		if err := svc.FetchCourses(ctx); err != nil {
			return ClassPatch{}, err
		}
		if courseID = svc.owningCourse(classID); courseID == "" {
			return ClassPatch{}, ErrNotFound
		}
	}

	classes, err := svc.gateway.ListClasses(ctx, courseID)
	if err != nil {
		return ClassPatch{}, err
	}
	for _, cls := range classes {
		if cls.ID == classID && cls.Date != nil {
			cls.CourseID = Ptr(courseID)
			return cls, nil
		}
	}
	return ClassPatch{}, ErrNotFound
}

func (svc *Service) owningCourse(classID string) string {
	for _, c := range svc.cache.Courses() {
		if contains(c.ClassIDs, classID) {
			return c.ID
		}
	}
	return ""
}

func (svc *Service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	nc.clean()
	if err := svc.validate.Struct(nc, newCourseMessages); err != nil {
		return Course{}, err
	}

	id, err := svc.gateway.CreateCourse(ctx, nc)
	if err != nil {
		return Course{}, err
	}

	var course Course
	err = svc.cache.Batch(func(tx CacheTx) error {
		tx.UpsertCourse(id, nc.Patch(id))
		course, _ = tx.Course(id)
		return nil
	})
	return course, err
}

func (svc *Service) UpdateCourse(ctx context.Context, course Course) error {
	if err := svc.gateway.UpdateCourse(ctx, course); err != nil {
		return err
	}
	return svc.cache.Batch(func(tx CacheTx) error {
		tx.UpsertCourse(course.ID, course.Patch())
		return nil
	})
}

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	ns.clean()
	if err := svc.validate.Struct(ns, newStudentMessages); err != nil {
		return Student{}, err
	}

	id, err := svc.gateway.CreateStudent(ctx, ns)
	if err != nil {
		return Student{}, err
	}

	var student Student
	err = svc.cache.Batch(func(tx CacheTx) error {
		tx.UpsertStudent(id, ns.Patch(id))
		student, _ = tx.Student(id)
		return nil
	})
	return student, err
}

func (svc *Service) UpdateStudent(ctx context.Context, student Student) error {
	if err := svc.gateway.UpdateStudent(ctx, student); err != nil {
		return err
	}
	return svc.cache.Batch(func(tx CacheTx) error {
		tx.UpsertStudent(student.ID, student.Patch())
		return nil
	})
}

// appendUnique appends id to a copy of ids unless already there.
func appendUnique(ids []string, id string) []string {
	out := nonNil(ids)
	if contains(out, id) {
		return out
	}
	return append(out, id)
}
