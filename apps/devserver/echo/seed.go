package devapi

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core/academics"
)

// SeedPassword is the password of every seeded login.
const SeedPassword = "rollcall"

// Seed fills s with a small department: two lecturers, two courses, two classes and three students.
// Logins: "eze" (lecturer l1), "obi" (hod l2) and "ada" (student s1).
func Seed(s *Store) error {
	s.AddLecturer(academics.Lecturer{ID: "l1", Role: "lecturer", FirstName: "Chinedu", LastName: "Eze"})
	s.AddLecturer(academics.Lecturer{ID: "l2", Role: "hod", FirstName: "Ngozi", LastName: "Obi", OtherNames: "Amaka"})

	s.AddCourse(academics.Course{ID: "MTH201", Code: "MTH 201", Title: "Linear Algebra", LecturerID: "l1"})
	s.AddCourse(academics.Course{ID: "PHY101", Code: "PHY 101", Title: "General Physics"})

	s.AddStudent(academics.Student{
		ID: "s1", FirstName: "Ada", LastName: "Okafor", OtherNames: "Nneka", MatricNo: "U2021/0001", Level: "200",
		CourseIDs: []string{"MTH201"},
	}, "QR-ADA")
	s.AddStudent(academics.Student{
		ID: "s2", FirstName: "Bola", LastName: "Adeyemi", MatricNo: "U2021/0002", Level: "200",
		CourseIDs: []string{"MTH201"},
	}, "QR-BOLA")
	s.AddStudent(academics.Student{ID: "s3", FirstName: "Chidi", LastName: "Nwosu", MatricNo: "U2022/0003", Level: "100"}, "QR-CHIDI")

	if err := s.AddClass("MTH201", "c1", seedDate(1), "s1"); err != nil {
		return errors.Wrap(err, "seeding class c1")
	}
	if err := s.AddClass("MTH201", "c2", seedDate(8), "s1"); err != nil {
		return errors.Wrap(err, "seeding class c2")
	}

	users := []struct{ id, username, role string }{
		{"l1", "eze", "lecturer"},
		{"l2", "obi", "hod"},
		{"s1", "ada", "student"},
	}
	for _, u := range users {
		if err := s.AddUser(u.id, u.username, SeedPassword, u.role); err != nil {
			return errors.Wrapf(err, "seeding user %s", u.username)
		}
	}
	return nil
}

func seedDate(day int) time.Time {
	return time.Date(2024, time.March, day, 10, 0, 0, 0, time.UTC)
}
