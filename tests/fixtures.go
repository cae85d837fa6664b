package testutil

import (
	"time"

	"github.com/trezcool/rollcall/core/academics"
	"github.com/trezcool/rollcall/core/session"
)

var (
	LecturerSession = session.Session{Token: "tok-lecturer", Username: "eze", Role: session.RoleLecturer, UserID: "l1"}
	StudentSession  = session.Session{Token: "tok-student", Username: "ada", Role: session.RoleStudent, UserID: "s1"}
)

// Date returns March d, 2024 at 10:00 UTC.
func Date(d int) time.Time {
	return time.Date(2024, time.March, d, 10, 0, 0, 0, time.UTC)
}

// SeededGateway returns a FakeGateway holding:
//   - MTH201 taught by l1, classes c1 & c2, students s1 (present in both) & s2
//   - PHY101 with no lecturer, class or student
//   - s3 registered for no course
func SeededGateway() *FakeGateway {
	g := NewFakeGateway()
	g.Lecturers = []academics.Lecturer{
		{ID: "l1", Role: "lecturer", FirstName: "Chinedu", LastName: "Eze", CourseIDs: []string{"MTH201"}},
		{ID: "l2", Role: "hod", FirstName: "Ngozi", LastName: "Obi", OtherNames: "Amaka", CourseIDs: []string{}},
	}
	g.Courses = []academics.Course{
		{
			ID:             "MTH201",
			Code:           "MTH 201",
			Title:          "Linear Algebra",
			LecturerID:     "l1",
			ClassIDs:       []string{"c1", "c2"},
			StudentIDs:     []string{"s1", "s2"},
			AttendanceRate: academics.Ptr(0.5),
			AttendanceRateByStudent: []academics.StudentRate{
				{StudentID: "s1", AttendanceRate: 1},
				{StudentID: "s2", AttendanceRate: 0},
			},
		},
		{ID: "PHY101", Code: "PHY 101", Title: "General Physics", ClassIDs: []string{}, StudentIDs: []string{}},
	}
	g.Classes = []academics.Class{
		{ID: "c1", CourseID: "MTH201", Date: Date(1), PresentIDs: []string{"s1"}},
		{ID: "c2", CourseID: "MTH201", Date: Date(8), PresentIDs: []string{"s1"}},
	}
	g.Students = []academics.Student{
		{
			ID: "s1", FirstName: "Ada", LastName: "Okafor", OtherNames: "Nneka", MatricNo: "U2021/0001", Level: "200",
			CourseIDs:      []string{"MTH201"},
			AttendanceRate: academics.Ptr(1.0),
			Attendance: []academics.CourseAttendance{{
				CourseID: "MTH201",
				Rate:     1,
				Classes:  []academics.ClassAttendance{{ClassID: "c1", Present: true}, {ClassID: "c2", Present: true}},
			}},
		},
		{
			ID: "s2", FirstName: "Bola", LastName: "Adeyemi", MatricNo: "U2021/0002", Level: "200",
			CourseIDs:      []string{"MTH201"},
			AttendanceRate: academics.Ptr(0.0),
			Attendance: []academics.CourseAttendance{{
				CourseID: "MTH201",
				Rate:     0,
				Classes:  []academics.ClassAttendance{{ClassID: "c1"}, {ClassID: "c2"}},
			}},
		},
		{ID: "s3", FirstName: "Chidi", LastName: "Nwosu", MatricNo: "U2022/0003", Level: "100", CourseIDs: []string{}},
	}
	g.Codes = map[string]string{"QR-ADA": "s1", "QR-BOLA": "s2", "QR-CHIDI": "s3"}
	return g
}
