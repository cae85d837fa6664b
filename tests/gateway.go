package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/rollcall/core/academics"
)

// FakeGateway is an in-memory academics.Gateway. Records are served as the
// remote API would: class listings omit present ids. Every call is recorded
// in Calls as "Method arg1 arg2".
type FakeGateway struct {
	mu sync.Mutex

	Courses   []academics.Course
	Classes   []academics.Class
	Students  []academics.Student
	Lecturers []academics.Lecturer
	// Codes maps a scanned student code to a student id.
	Codes map[string]string
	// PresentIDsOnly makes GetClass answer with the present ids alone.
	PresentIDsOnly bool

	Calls []string
	// Before, when set, runs ahead of every call, outside the lock.
	Before func(method string)

	errs map[string]error
	seq  int
}

var _ academics.Gateway = (*FakeGateway)(nil)

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{Codes: make(map[string]string), errs: make(map[string]error)}
}

// Fail makes every following call to method return err (nil restores it).
func (g *FakeGateway) Fail(method string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.errs, method)
		return
	}
	g.errs[method] = err
}

// Called returns how many times method was called.
func (g *FakeGateway) Called(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	var n int
	for _, call := range g.Calls {
		if call == method || strings.HasPrefix(call, method+" ") {
			n++
		}
	}
	return n
}

// call records the call, then locks the gateway; the caller must unlock it.
func (g *FakeGateway) call(method string, args ...string) error {
	if g.Before != nil {
		g.Before(method)
	}
	g.mu.Lock()
	g.Calls = append(g.Calls, strings.TrimSpace(method+" "+strings.Join(args, " ")))
	return g.errs[method]
}

func (g *FakeGateway) nextID(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s-%d", prefix, g.seq)
}

func (g *FakeGateway) course(id string) (int, bool) {
	for i, c := range g.Courses {
		if c.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (g *FakeGateway) class(id string) (int, bool) {
	for i, c := range g.Classes {
		if c.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (g *FakeGateway) student(id string) (int, bool) {
	for i, s := range g.Students {
		if s.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (g *FakeGateway) ListCourses(context.Context) ([]academics.CoursePatch, error) {
	err := g.call("ListCourses")
	defer g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	courses := make([]academics.CoursePatch, 0, len(g.Courses))
	for _, c := range g.Courses {
		courses = append(courses, c.Patch())
	}
	return courses, nil
}

func (g *FakeGateway) GetCourse(_ context.Context, id string) (academics.CoursePatch, error) {
	err := g.call("GetCourse", id)
	defer g.mu.Unlock()
	if err != nil {
		return academics.CoursePatch{}, err
	}
	if i, ok := g.course(id); ok {
		return g.Courses[i].Patch(), nil
	}
	return academics.CoursePatch{}, academics.ErrNotFound
}

func (g *FakeGateway) ListCoursesByID(_ context.Context, ids []string) ([]academics.CoursePatch, error) {
	err := g.call("ListCoursesByID", strings.Join(ids, ","))
	defer g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	courses := make([]academics.CoursePatch, 0, len(ids))
	for _, id := range ids {
		if i, ok := g.course(id); ok {
			courses = append(courses, g.Courses[i].Patch())
		}
	}
	return courses, nil
}

func (g *FakeGateway) CreateCourse(_ context.Context, nc academics.NewCourse) (string, error) {
	err := g.call("CreateCourse", nc.Code)
	defer g.mu.Unlock()
	if err != nil {
		return "", err
	}
	id := g.nextID("course")
	g.Courses = append(g.Courses, academics.Course{
		ID:         id,
		Code:       nc.Code,
		Title:      nc.Title,
		LecturerID: nc.LecturerID,
		ClassIDs:   []string{},
		StudentIDs: append([]string{}, nc.StudentIDs...),
	})
	return id, nil
}

func (g *FakeGateway) UpdateCourse(_ context.Context, c academics.Course) error {
	err := g.call("UpdateCourse", c.ID)
	defer g.mu.Unlock()
	if err != nil {
		return err
	}
	i, ok := g.course(c.ID)
	if !ok {
		return academics.ErrRejected
	}
	g.Courses[i] = c.Clone()
	return nil
}

func (g *FakeGateway) ListClasses(_ context.Context, courseID string) ([]academics.ClassPatch, error) {
	err := g.call("ListClasses", courseID)
	defer g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var classes []academics.ClassPatch
	for _, c := range g.Classes {
		if c.CourseID == courseID {
			p := c.Patch()
			p.PresentIDs = nil
			classes = append(classes, p)
		}
	}
	return classes, nil
}

func (g *FakeGateway) GetClass(_ context.Context, id string) (academics.ClassPatch, error) {
	err := g.call("GetClass", id)
	defer g.mu.Unlock()
	if err != nil {
		return academics.ClassPatch{}, err
	}
	if i, ok := g.class(id); ok {
		if g.PresentIDsOnly {
			return academics.ClassPatch{ID: id, PresentIDs: append([]string{}, g.Classes[i].PresentIDs...)}, nil
		}
		return g.Classes[i].Patch(), nil
	}
	return academics.ClassPatch{}, academics.ErrNotFound
}

func (g *FakeGateway) CreateClass(_ context.Context, courseID string, date time.Time) (string, error) {
	err := g.call("CreateClass", courseID, academics.FormatRemoteDate(date))
	defer g.mu.Unlock()
	if err != nil {
		return "", err
	}
	id := g.nextID("class")
	g.Classes = append(g.Classes, academics.Class{ID: id, CourseID: courseID, Date: date.UTC(), PresentIDs: []string{}})
	if i, ok := g.course(courseID); ok {
		g.Courses[i].ClassIDs = append(g.Courses[i].ClassIDs, id)
	}
	return id, nil
}

func (g *FakeGateway) DeleteClass(_ context.Context, id string) error {
	err := g.call("DeleteClass", id)
	defer g.mu.Unlock()
	if err != nil {
		return err
	}
	i, ok := g.class(id)
	if !ok {
		return academics.ErrNotFound
	}
	g.Classes = append(g.Classes[:i], g.Classes[i+1:]...)
	for i := range g.Courses {
		g.Courses[i].ClassIDs = academics.Without(g.Courses[i].ClassIDs, id)
	}
	return nil
}

func (g *FakeGateway) CreateAttendance(_ context.Context, classID, studentID string) error {
	err := g.call("CreateAttendance", classID, studentID)
	defer g.mu.Unlock()
	if err != nil {
		return err
	}
	i, ok := g.class(classID)
	if !ok {
		return academics.ErrNotFound
	}
	if g.Classes[i].IsPresent(studentID) {
		var student academics.StudentPatch
		if j, ok := g.student(studentID); ok {
			student = g.Students[j].Patch()
		}
		return academics.NewConflictError(classID, studentID, student)
	}
	g.Classes[i].PresentIDs = append(g.Classes[i].PresentIDs, studentID)
	return nil
}

func (g *FakeGateway) DeleteAttendance(_ context.Context, classID, studentID string) error {
	err := g.call("DeleteAttendance", classID, studentID)
	defer g.mu.Unlock()
	if err != nil {
		return err
	}
	i, ok := g.class(classID)
	if !ok {
		return academics.ErrNotFound
	}
	g.Classes[i].PresentIDs = academics.Without(g.Classes[i].PresentIDs, studentID)
	return nil
}

func (g *FakeGateway) ListStudents(context.Context) ([]academics.StudentPatch, error) {
	err := g.call("ListStudents")
	defer g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	students := make([]academics.StudentPatch, 0, len(g.Students))
	for _, s := range g.Students {
		students = append(students, s.Patch())
	}
	return students, nil
}

func (g *FakeGateway) ListCourseStudents(_ context.Context, courseID string) ([]academics.StudentPatch, error) {
	err := g.call("ListCourseStudents", courseID)
	defer g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var students []academics.StudentPatch
	for _, s := range g.Students {
		for _, id := range s.CourseIDs {
			if id == courseID {
				students = append(students, s.Patch())
				break
			}
		}
	}
	return students, nil
}

func (g *FakeGateway) GetStudent(_ context.Context, id string) (academics.StudentPatch, error) {
	err := g.call("GetStudent", id)
	defer g.mu.Unlock()
	if err != nil {
		return academics.StudentPatch{}, err
	}
	if i, ok := g.student(id); ok {
		return g.Students[i].Patch(), nil
	}
	return academics.StudentPatch{}, academics.ErrNotFound
}

func (g *FakeGateway) GetStudentByCode(_ context.Context, code string) (academics.StudentPatch, error) {
	err := g.call("GetStudentByCode", code)
	defer g.mu.Unlock()
	if err != nil {
		return academics.StudentPatch{}, err
	}
	if i, ok := g.student(g.Codes[code]); ok {
		return g.Students[i].Patch(), nil
	}
	return academics.StudentPatch{}, academics.ErrNotFound
}

func (g *FakeGateway) CreateStudent(_ context.Context, ns academics.NewStudent) (string, error) {
	err := g.call("CreateStudent", ns.MatricNo)
	defer g.mu.Unlock()
	if err != nil {
		return "", err
	}
	id := g.nextID("student")
	g.Students = append(g.Students, academics.Student{
		ID:         id,
		FirstName:  ns.FirstName,
		LastName:   ns.LastName,
		OtherNames: ns.OtherNames,
		MatricNo:   ns.MatricNo,
		Level:      ns.Level,
		CourseIDs:  append([]string{}, ns.CourseIDs...),
	})
	return id, nil
}

func (g *FakeGateway) UpdateStudent(_ context.Context, s academics.Student) error {
	err := g.call("UpdateStudent", s.ID)
	defer g.mu.Unlock()
	if err != nil {
		return err
	}
	i, ok := g.student(s.ID)
	if !ok {
		return academics.ErrRejected
	}
	g.Students[i] = s.Clone()
	return nil
}

func (g *FakeGateway) ListLecturers(context.Context) ([]academics.LecturerPatch, error) {
	err := g.call("ListLecturers")
	defer g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	lecturers := make([]academics.LecturerPatch, 0, len(g.Lecturers))
	for _, l := range g.Lecturers {
		lecturers = append(lecturers, l.Patch())
	}
	return lecturers, nil
}

func (g *FakeGateway) GetLecturer(_ context.Context, id string) (academics.LecturerPatch, error) {
	err := g.call("GetLecturer", id)
	defer g.mu.Unlock()
	if err != nil {
		return academics.LecturerPatch{}, err
	}
	for _, l := range g.Lecturers {
		if l.ID == id {
			return l.Patch(), nil
		}
	}
	return academics.LecturerPatch{}, academics.ErrNotFound
}
