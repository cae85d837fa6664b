package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
)

func (cli *commandLine) listStudents(ctx context.Context) error {
	if err := cli.svc.FetchStudents(ctx); err != nil {
		return errors.Wrap(err, "fetching students")
	}
	w := cli.table()
	fmt.Fprintln(w, "ID\tMATRIC NO\tNAME\tLEVEL\tATTENDANCE")
	for _, s := range cli.cache.Students() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.MatricNo, s.FullName(), s.Level, core.FriendlyPercentage(s.AttendanceRate))
	}
	return w.Flush()
}

func (cli *commandLine) showStudent(ctx context.Context, id string) error {
	if err := cli.svc.FetchStudentInfo(ctx, id); err != nil {
		return err
	}
	s, _ := cli.cache.Student(id)

	fmt.Fprintf(cli.out, "%s  %s  level %s\n", s.FullName(), s.MatricNo, s.Level)
	if s.AttendanceRate != nil {
		fmt.Fprintf(cli.out, "Attendance: %s\n", core.FriendlyPercentage(s.AttendanceRate))
	}

	fmt.Fprintf(cli.out, "\nCourses (%d)\n", len(s.CourseIDs))
	w := cli.table()
	for _, cid := range s.CourseIDs {
		c, _ := cli.cache.Course(cid)
		var rate *float64
		attended := "-"
		if a, ok := s.CourseAttendance(cid); ok {
			rate = &a.Rate
			var present int
			for _, cls := range a.Classes {
				if cls.Present {
					present++
				}
			}
			attended = fmt.Sprintf("%d/%d", present, len(a.Classes))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", cid, c.Code, c.Title, attended, core.FriendlyPercentage(rate))
	}
	return w.Flush()
}

func (cli *commandLine) listLecturers(ctx context.Context) error {
	if err := cli.svc.FetchLecturers(ctx); err != nil {
		return errors.Wrap(err, "fetching lecturers")
	}
	w := cli.table()
	fmt.Fprintln(w, "ID\tNAME\tROLE\tCOURSES")
	for _, l := range cli.cache.Lecturers() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", l.ID, l.FullName(), l.Role, len(l.CourseIDs))
	}
	return w.Flush()
}

func (cli *commandLine) showLecturer(ctx context.Context, id string) error {
	if err := cli.svc.FetchLecturerInfo(ctx, id); err != nil {
		return err
	}
	l, _ := cli.cache.Lecturer(id)

	fmt.Fprintf(cli.out, "%s (%s)\n", l.FullName(), l.Role)
	fmt.Fprintf(cli.out, "\nCourses (%d)\n", len(l.CourseIDs))
	w := cli.table()
	for _, cid := range l.CourseIDs {
		c, _ := cli.cache.Course(cid)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", cid, c.Code, c.Title, core.FriendlyPercentage(c.AttendanceRate))
	}
	return w.Flush()
}
