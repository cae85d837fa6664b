package academics

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
)

// Kind names one normalized entity mapping of the Cache.
type Kind string

const (
	KindCourse   Kind = "course"
	KindClass    Kind = "class"
	KindStudent  Kind = "student"
	KindLecturer Kind = "lecturer"
)

var Kinds = []Kind{KindCourse, KindClass, KindStudent, KindLecturer}

// remote date layout, always UTC
const DateLayout = "2006-01-02 15:04:05"

var Levels = []string{"100", "200", "300", "400"}

type (
	StudentRate struct {
		StudentID      string  `json:"studentId"`
		AttendanceRate float64 `json:"attendanceRate"`
	}

	Course struct {
		ID                      string        `json:"id"`
		Code                    string        `json:"code,omitempty"`
		Title                   string        `json:"title,omitempty"`
		LecturerID              string        `json:"lecturerId,omitempty"`
		ClassIDs                []string      `json:"classIds"`
		StudentIDs              []string      `json:"studentIds"`
		AttendanceRate          *float64      `json:"attendanceRate,omitempty"`
		AttendanceRateByStudent []StudentRate `json:"attendanceRateByStudent,omitempty"`
	}

	// Class is a single scheduled meeting of a Course.
	Class struct {
		ID         string    `json:"id"`
		CourseID   string    `json:"courseId"`
		Date       time.Time `json:"date"`
		PresentIDs []string  `json:"presentIds"`
	}

	ClassAttendance struct {
		ClassID string `json:"classId"`
		Present bool   `json:"present"`
	}

	// CourseAttendance summarizes one student's attendance in one course.
	CourseAttendance struct {
		CourseID string            `json:"courseId"`
		Rate     float64           `json:"rate"`
		Classes  []ClassAttendance `json:"data"`
	}

	Student struct {
		ID             string             `json:"id"`
		FirstName      string             `json:"firstName,omitempty"`
		LastName       string             `json:"lastName,omitempty"`
		OtherNames     string             `json:"otherNames,omitempty"`
		MatricNo       string             `json:"matricNo,omitempty"`
		Level          string             `json:"level,omitempty"`
		PhotoURL       string             `json:"photoUrl,omitempty"`
		CourseIDs      []string           `json:"courseIds"`
		Attendance     []CourseAttendance `json:"attendance,omitempty"`
		AttendanceRate *float64           `json:"attendanceRate,omitempty"`
	}

	Lecturer struct {
		ID         string   `json:"id"`
		Role       string   `json:"role"`
		FirstName  string   `json:"firstName,omitempty"`
		LastName   string   `json:"lastName,omitempty"`
		OtherNames string   `json:"otherNames,omitempty"`
		CourseIDs  []string `json:"courseIds"`
	}
)

func (s Student) FullName() string { return core.FullName(s.FirstName, s.LastName, s.OtherNames) }

func (l Lecturer) FullName() string { return core.FullName(l.FirstName, l.LastName, l.OtherNames) }

// CourseAttendance returns the attendance summary of s in courseID, if any.
func (s Student) CourseAttendance(courseID string) (CourseAttendance, bool) {
	for _, a := range s.Attendance {
		if a.CourseID == courseID {
			return a, true
		}
	}
	return CourseAttendance{}, false
}

func (c Course) HasStudent(studentID string) bool { return contains(c.StudentIDs, studentID) }

func (c Class) IsPresent(studentID string) bool { return contains(c.PresentIDs, studentID) }

// Patches are partial records: a nil field is unspecified and leaves the
// existing value untouched on merge. A non-nil empty slice clears the list.
type (
	CoursePatch struct {
		ID                      string        `json:"id"`
		Code                    *string       `json:"code"`
		Title                   *string       `json:"title"`
		LecturerID              *string       `json:"lecturerId"`
		ClassIDs                []string      `json:"classIds"`
		StudentIDs              []string      `json:"studentIds"`
		AttendanceRate          *float64      `json:"attendanceRate"`
		AttendanceRateByStudent []StudentRate `json:"attendanceRateByStudent"`
	}

	ClassPatch struct {
		ID         string     `json:"id"`
		CourseID   *string    `json:"courseId"`
		Date       *time.Time `json:"date"`
		PresentIDs []string   `json:"presentIds"`
	}

	StudentPatch struct {
		ID             string             `json:"id"`
		FirstName      *string            `json:"firstName"`
		LastName       *string            `json:"lastName"`
		OtherNames     *string            `json:"otherNames"`
		MatricNo       *string            `json:"matricNo"`
		Level          *string            `json:"level"`
		PhotoURL       *string            `json:"photoUrl"`
		CourseIDs      []string           `json:"courseIds"`
		Attendance     []CourseAttendance `json:"attendance"`
		AttendanceRate *float64           `json:"attendanceRate"`
	}

	LecturerPatch struct {
		ID         string   `json:"id"`
		Role       *string  `json:"role"`
		FirstName  *string  `json:"firstName"`
		LastName   *string  `json:"lastName"`
		OtherNames *string  `json:"otherNames"`
		CourseIDs  []string `json:"courseIds"`
	}
)

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T { return &v }

// UnmarshalJSON accepts the class date either as RFC 3339 or in DateLayout.
func (p *ClassPatch) UnmarshalJSON(data []byte) error {
	type patch ClassPatch
	aux := struct {
		*patch
		Date *string `json:"date"`
	}{patch: (*patch)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Date == nil {
		p.Date = nil
		return nil
	}
	date, err := ParseDate(*aux.Date)
	if err != nil {
		return err
	}
	p.Date = &date
	return nil
}

// ParseDate parses a remote class date.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parsing class date %q", s)
	}
	return t, nil
}

// FormatRemoteDate formats t the way the API expects class dates.
func FormatRemoteDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func (c *Course) Apply(p CoursePatch) {
	if p.Code != nil {
		c.Code = *p.Code
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.LecturerID != nil {
		c.LecturerID = *p.LecturerID
	}
	if p.ClassIDs != nil {
		c.ClassIDs = clone(p.ClassIDs)
	}
	if p.StudentIDs != nil {
		c.StudentIDs = clone(p.StudentIDs)
	}
	if p.AttendanceRate != nil {
		c.AttendanceRate = Ptr(*p.AttendanceRate)
	}
	if p.AttendanceRateByStudent != nil {
		c.AttendanceRateByStudent = append([]StudentRate{}, p.AttendanceRateByStudent...)
	}
}

func (c *Class) Apply(p ClassPatch) {
	if p.CourseID != nil {
		c.CourseID = *p.CourseID
	}
	if p.Date != nil {
		c.Date = *p.Date
	}
	if p.PresentIDs != nil {
		c.PresentIDs = dedupe(p.PresentIDs)
	}
}

func (s *Student) Apply(p StudentPatch) {
	setString(&s.FirstName, p.FirstName)
	setString(&s.LastName, p.LastName)
	setString(&s.OtherNames, p.OtherNames)
	setString(&s.MatricNo, p.MatricNo)
	setString(&s.Level, p.Level)
	setString(&s.PhotoURL, p.PhotoURL)
	if p.CourseIDs != nil {
		s.CourseIDs = clone(p.CourseIDs)
	}
	if p.Attendance != nil {
		s.Attendance = cloneAttendance(p.Attendance)
	}
	if p.AttendanceRate != nil {
		s.AttendanceRate = Ptr(*p.AttendanceRate)
	}
}

func (l *Lecturer) Apply(p LecturerPatch) {
	setString(&l.Role, p.Role)
	setString(&l.FirstName, p.FirstName)
	setString(&l.LastName, p.LastName)
	setString(&l.OtherNames, p.OtherNames)
	if p.CourseIDs != nil {
		l.CourseIDs = clone(p.CourseIDs)
	}
}

// Patch returns a patch that specifies every field of c.
func (c Course) Patch() CoursePatch {
	p := CoursePatch{
		ID:                      c.ID,
		Code:                    Ptr(c.Code),
		Title:                   Ptr(c.Title),
		LecturerID:              Ptr(c.LecturerID),
		ClassIDs:                nonNil(c.ClassIDs),
		StudentIDs:              nonNil(c.StudentIDs),
		AttendanceRateByStudent: c.AttendanceRateByStudent,
	}
	if c.AttendanceRate != nil {
		p.AttendanceRate = Ptr(*c.AttendanceRate)
	}
	return p
}

// Patch returns a patch that specifies every field of s.
func (s Student) Patch() StudentPatch {
	p := StudentPatch{
		ID:         s.ID,
		FirstName:  Ptr(s.FirstName),
		LastName:   Ptr(s.LastName),
		OtherNames: Ptr(s.OtherNames),
		MatricNo:   Ptr(s.MatricNo),
		Level:      Ptr(s.Level),
		PhotoURL:   Ptr(s.PhotoURL),
		CourseIDs:  nonNil(s.CourseIDs),
		Attendance: s.Attendance,
	}
	if s.AttendanceRate != nil {
		p.AttendanceRate = Ptr(*s.AttendanceRate)
	}
	return p
}

// Patch returns a patch that specifies every field of c.
func (c Class) Patch() ClassPatch {
	return ClassPatch{
		ID:         c.ID,
		CourseID:   Ptr(c.CourseID),
		Date:       Ptr(c.Date),
		PresentIDs: nonNil(c.PresentIDs),
	}
}

// Patch returns a patch that specifies every field of l.
func (l Lecturer) Patch() LecturerPatch {
	return LecturerPatch{
		ID:         l.ID,
		Role:       Ptr(l.Role),
		FirstName:  Ptr(l.FirstName),
		LastName:   Ptr(l.LastName),
		OtherNames: Ptr(l.OtherNames),
		CourseIDs:  nonNil(l.CourseIDs),
	}
}

type (
	NewCourse struct {
		Code       string   `json:"code" validate:"notblank"`
		Title      string   `json:"title" validate:"notblank"`
		LecturerID string   `json:"lecturerId,omitempty"`
		StudentIDs []string `json:"studentIds,omitempty"`
	}

	NewStudent struct {
		FirstName  string   `json:"firstName" validate:"notblank"`
		LastName   string   `json:"lastName" validate:"notblank"`
		OtherNames string   `json:"otherNames,omitempty"`
		MatricNo   string   `json:"matricNo" validate:"notblank"`
		Level      string   `json:"level" validate:"required,oneof=100 200 300 400"`
		CourseIDs  []string `json:"courseIds,omitempty"`
	}
)

func (nc *NewCourse) clean() {
	nc.Code = core.CleanString(nc.Code)
	nc.Title = core.CleanString(nc.Title)
}

func (ns *NewStudent) clean() {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.OtherNames = core.CleanString(ns.OtherNames)
	ns.MatricNo = core.CleanString(ns.MatricNo)
	ns.Level = core.CleanString(ns.Level)
}

// Patch returns the patch merged into the cache once nc is created as id.
func (nc NewCourse) Patch(id string) CoursePatch {
	return CoursePatch{
		ID:         id,
		Code:       Ptr(nc.Code),
		Title:      Ptr(nc.Title),
		LecturerID: Ptr(nc.LecturerID),
		ClassIDs:   []string{},
		StudentIDs: nonNil(nc.StudentIDs),
	}
}

// Patch returns the patch merged into the cache once ns is created as id.
func (ns NewStudent) Patch(id string) StudentPatch {
	return StudentPatch{
		ID:         id,
		FirstName:  Ptr(ns.FirstName),
		LastName:   Ptr(ns.LastName),
		OtherNames: Ptr(ns.OtherNames),
		MatricNo:   Ptr(ns.MatricNo),
		Level:      Ptr(ns.Level),
		CourseIDs:  nonNil(ns.CourseIDs),
	}
}

var (
	newCourseMessages = map[string]string{
		"code.notblank":  "Enter course code",
		"title.notblank": "Enter course title",
	}
	newStudentMessages = map[string]string{
		"firstName.notblank": "Enter first name",
		"lastName.notblank":  "Enter last name",
		"matricNo.notblank":  "Enter matric number",
		"level.required":     "Select a level",
		"level.oneof":        "Level must be one of 100, 200, 300 or 400",
	}
)

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func clone(ids []string) []string {
	return append([]string{}, ids...)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return clone(ids)
}

// dedupe returns ids without repeats, keeping first occurrences in order.
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func cloneAttendance(src []CourseAttendance) []CourseAttendance {
	out := make([]CourseAttendance, len(src))
	for i, a := range src {
		a.Classes = append([]ClassAttendance{}, a.Classes...)
		out[i] = a
	}
	return out
}

// Clone returns a deep copy of c.
func (c Course) Clone() Course {
	c.ClassIDs = cloneNil(c.ClassIDs)
	c.StudentIDs = cloneNil(c.StudentIDs)
	if c.AttendanceRate != nil {
		c.AttendanceRate = Ptr(*c.AttendanceRate)
	}
	if c.AttendanceRateByStudent != nil {
		c.AttendanceRateByStudent = append([]StudentRate{}, c.AttendanceRateByStudent...)
	}
	return c
}

// Clone returns a deep copy of c.
func (c Class) Clone() Class {
	c.PresentIDs = cloneNil(c.PresentIDs)
	return c
}

// Clone returns a deep copy of s.
func (s Student) Clone() Student {
	s.CourseIDs = cloneNil(s.CourseIDs)
	if s.Attendance != nil {
		s.Attendance = cloneAttendance(s.Attendance)
	}
	if s.AttendanceRate != nil {
		s.AttendanceRate = Ptr(*s.AttendanceRate)
	}
	return s
}

// Clone returns a deep copy of l.
func (l Lecturer) Clone() Lecturer {
	l.CourseIDs = cloneNil(l.CourseIDs)
	return l
}

func cloneNil(ids []string) []string {
	if ids == nil {
		return nil
	}
	return clone(ids)
}

// Without returns ids minus every occurrence of id.
func Without(ids []string, id string) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
