package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/academics"
)

// loadClass caches a class with its present students and its course.
func (cli *commandLine) loadClass(ctx context.Context, id string) (academics.Class, error) {
	if err := cli.svc.FetchAdditionalClassInfo(ctx, id); err != nil {
		return academics.Class{}, err
	}
	cls, _ := cli.cache.Class(id)
	if err := cli.svc.FetchCourseInfo(ctx, cls.CourseID); err != nil {
		return academics.Class{}, errors.Wrap(err, "fetching course info")
	}
	cls, _ = cli.cache.Class(id)
	return cls, nil
}

func (cli *commandLine) showClass(ctx context.Context, id string) error {
	cls, err := cli.loadClass(ctx, id)
	if err != nil {
		return err
	}
	course, _ := cli.cache.Course(cls.CourseID)

	fmt.Fprintf(cli.out, "%s  %s\n", course.Code, core.FormatDate(cls.Date))
	fmt.Fprintf(cli.out, "Present: %d/%d\n\n", len(cls.PresentIDs), len(course.StudentIDs))
	w := cli.table()
	for _, sid := range course.StudentIDs {
		s, _ := cli.cache.Student(sid)
		mark := " "
		if cls.IsPresent(sid) {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s]\t%s\t%s\t%s\n", mark, sid, s.MatricNo, s.FullName())
	}
	return w.Flush()
}

func (cli *commandLine) createClass(ctx context.Context, courseID, date string) error {
	var at time.Time
	if date != "" {
		var err error
		if at, err = academics.ParseDate(date); err != nil {
			return err
		}
	}
	cls, err := cli.svc.CreateClass(ctx, courseID, at)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Created class %s on %s\n", cls.ID, core.FormatDate(cls.Date))
	return nil
}

func (cli *commandLine) deleteClass(ctx context.Context, id string) error {
	if err := cli.svc.DeleteClass(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Deleted class %s\n", id)
	return nil
}

func (cli *commandLine) markPresent(ctx context.Context, classID, studentID string) error {
	if _, err := cli.loadClass(ctx, classID); err != nil {
		return err
	}
	err := cli.svc.MarkPresent(ctx, classID, studentID)
	if conflict, ok := academics.AsConflictError(err); ok {
		if err := cli.svc.MarkPresentLocal(conflict); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s was already marked present\n", cli.studentName(studentID))
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Marked %s present\n", cli.studentName(studentID))
	return nil
}

func (cli *commandLine) markAbsent(ctx context.Context, classID, studentID string) error {
	if _, err := cli.loadClass(ctx, classID); err != nil {
		return err
	}
	if err := cli.svc.MarkAbsent(ctx, classID, studentID); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Marked %s absent\n", cli.studentName(studentID))
	return nil
}

func (cli *commandLine) scan(ctx context.Context, classID, code string) error {
	cls, err := cli.loadClass(ctx, classID)
	if err != nil {
		return err
	}
	student, err := cli.svc.MarkPresentByCode(ctx, classID, code)
	switch {
	case err == nil:
		fmt.Fprintf(cli.out, "Marked %s present\n", student.FullName())
		return nil
	case errors.Cause(err) == academics.ErrNotFound:
		fmt.Fprintf(cli.out, "Unknown student code %q\n", code)
	case err == academics.ErrNotEnrolled:
		course, _ := cli.cache.Course(cls.CourseID)
		fmt.Fprintf(cli.out, "%s is not registered for %s\n", student.FullName(), course.Code)
	default:
		if conflict, ok := academics.AsConflictError(err); ok {
			if err := cli.svc.MarkPresentLocal(conflict); err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "%s was already marked present\n", cli.studentName(conflict.StudentID))
			return nil
		}
	}
	return err
}

func (cli *commandLine) checkEligibility(ctx context.Context, courseID, code string) error {
	if err := cli.svc.FetchCourseInfo(ctx, courseID); err != nil {
		return err
	}
	e, err := cli.svc.CheckEligibility(ctx, courseID, code)
	if err != nil {
		if errors.Cause(err) == academics.ErrNotFound {
			fmt.Fprintf(cli.out, "Unknown student code %q\n", code)
		}
		return err
	}

	name := e.Student.FullName()
	switch {
	case !e.Registered:
		fmt.Fprintf(cli.out, "%s is not registered for this course\n", name)
	case e.Eligible:
		fmt.Fprintf(cli.out, "%s is eligible (attendance %s)\n", name, core.FriendlyPercentage(e.Rate))
	default:
		fmt.Fprintf(cli.out, "%s is not eligible (attendance %s)\n", name, core.FriendlyPercentage(e.Rate))
	}
	return nil
}

func (cli *commandLine) studentName(id string) string {
	if s, ok := cli.cache.Student(id); ok && s.LastName != "" {
		return s.FullName()
	}
	return id
}
