package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/academics"
)

const suggestionRatio = 0.6

func (cli *commandLine) listCourses(ctx context.Context) error {
	if err := cli.svc.FetchCourses(ctx); err != nil {
		return errors.Wrap(err, "fetching courses")
	}
	w := cli.table()
	fmt.Fprintln(w, "ID\tCODE\tTITLE\tATTENDANCE")
	for _, c := range cli.cache.Courses() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Code, c.Title, core.FriendlyPercentage(c.AttendanceRate))
	}
	return w.Flush()
}

func (cli *commandLine) showCourse(ctx context.Context, id string) error {
	if err := cli.svc.FetchCourseInfo(ctx, id); err != nil {
		if errors.Cause(err) == academics.ErrNotFound {
			cli.suggestCourses(ctx, id)
		}
		return err
	}
	course, _ := cli.cache.Course(id)

	fmt.Fprintf(cli.out, "%s  %s\n", course.Code, course.Title)
	if l, ok := cli.cache.Lecturer(course.LecturerID); ok {
		fmt.Fprintf(cli.out, "Lecturer: %s\n", l.FullName())
	}
	if course.AttendanceRate != nil {
		fmt.Fprintf(cli.out, "Attendance: %s\n", core.FriendlyPercentage(course.AttendanceRate))
	}

	fmt.Fprintf(cli.out, "\nClasses (%d)\n", len(course.ClassIDs))
	w := cli.table()
	for _, cls := range cli.courseClasses(course) {
		fmt.Fprintf(w, "%s\t%s\n", cls.ID, core.FormatDate(cls.Date))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	rates := make(map[string]float64, len(course.AttendanceRateByStudent))
	for _, r := range course.AttendanceRateByStudent {
		rates[r.StudentID] = r.AttendanceRate
	}
	fmt.Fprintf(cli.out, "\nStudents (%d)\n", len(course.StudentIDs))
	w = cli.table()
	for _, sid := range course.StudentIDs {
		s, _ := cli.cache.Student(sid)
		var rate *float64
		if r, ok := rates[sid]; ok {
			rate = &r
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", sid, s.MatricNo, s.FullName(), core.FriendlyPercentage(rate))
	}
	return w.Flush()
}

// courseClasses returns the cached classes of course.ClassIDs, most recent first.
func (cli *commandLine) courseClasses(course academics.Course) []academics.Class {
	classes := make([]academics.Class, 0, len(course.ClassIDs))
	for _, cid := range course.ClassIDs {
		if cls, ok := cli.cache.Class(cid); ok {
			classes = append(classes, cls)
		}
	}
	sort.SliceStable(classes, func(i, j int) bool { return classes[i].Date.After(classes[j].Date) })
	return classes
}

// suggestCourses prints the known course IDs or codes resembling `id`.
func (cli *commandLine) suggestCourses(ctx context.Context, id string) {
	if err := cli.svc.FetchCourses(ctx); err != nil {
		return
	}
	type match struct {
		id    string
		ratio float64
	}
	var matches []match
	query := strings.Split(strings.ToLower(id), "")
	for _, c := range cli.cache.Courses() {
		best := 0.0
		for _, candidate := range []string{c.ID, c.Code} {
			ratio := difflib.NewMatcher(query, strings.Split(strings.ToLower(candidate), "")).Ratio()
			if ratio > best {
				best = ratio
			}
		}
		if best >= suggestionRatio {
			matches = append(matches, match{id: c.ID, ratio: best})
		}
	}
	if len(matches) == 0 {
		return
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].ratio > matches[j].ratio })

	ids := make([]string, 0, 3)
	for i := 0; i < len(matches) && i < 3; i++ {
		ids = append(ids, matches[i].id)
	}
	fmt.Fprintf(cli.out, "No course %q. Did you mean: %s?\n", id, strings.Join(ids, ", "))
}
