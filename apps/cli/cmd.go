package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/academics"
	"github.com/trezcool/rollcall/core/session"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	out      io.Writer
	conf     *core.Config
	sessions *session.Service
	store    *session.Store
	cache    academics.Cache
	svc      *academics.Service
}

type command struct {
	flags  *flag.FlagSet
	usage  string
	public bool // runs without a session
	run    func(ctx context.Context) error
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) commands() []command {
	var cmds []command
	add := func(fs *flag.FlagSet, usage string, public bool, run func(ctx context.Context) error) {
		cmds = append(cmds, command{flags: fs, usage: usage, public: public, run: run})
	}

	loginCmd := cli.newFlagSet("login")
	loginUname := loginCmd.String("username", "", "Your username. The password will be prompted next.")
	add(loginCmd, "login -username USERNAME - sign in", true, func(ctx context.Context) error {
		if *loginUname == "" {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(stdin)
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		return cli.login(ctx, *loginUname, string(pwd))
	})

	add(cli.newFlagSet("logout"), "logout - sign out and forget every cached record", true, func(context.Context) error {
		cli.logout()
		return nil
	})
	add(cli.newFlagSet("whoami"), "whoami - show the signed in user", false, func(context.Context) error {
		return cli.whoami()
	})

	add(cli.newFlagSet("courses"), "courses - list courses", false, cli.listCourses)
	courseCmd := cli.newFlagSet("course")
	courseID := courseCmd.String("id", "", "The course ID.")
	add(courseCmd, "course -id COURSE - show a course with its classes and students", false, func(ctx context.Context) error {
		if *courseID == "" {
			courseCmd.Usage()
			return errHelp
		}
		return cli.showCourse(ctx, *courseID)
	})

	add(cli.newFlagSet("students"), "students - list students", false, cli.listStudents)
	studentCmd := cli.newFlagSet("student")
	studentID := studentCmd.String("id", "", "The student ID.")
	add(studentCmd, "student -id STUDENT - show a student with their attendance", false, func(ctx context.Context) error {
		if *studentID == "" {
			studentCmd.Usage()
			return errHelp
		}
		return cli.showStudent(ctx, *studentID)
	})

	add(cli.newFlagSet("lecturers"), "lecturers - list lecturers", false, cli.listLecturers)
	lecturerCmd := cli.newFlagSet("lecturer")
	lecturerID := lecturerCmd.String("id", "", "The lecturer ID.")
	add(lecturerCmd, "lecturer -id LECTURER - show a lecturer with their courses", false, func(ctx context.Context) error {
		if *lecturerID == "" {
			lecturerCmd.Usage()
			return errHelp
		}
		return cli.showLecturer(ctx, *lecturerID)
	})

	classCmd := cli.newFlagSet("class")
	classID := classCmd.String("id", "", "The class ID.")
	add(classCmd, "class -id CLASS - show a class with its present students", false, func(ctx context.Context) error {
		if *classID == "" {
			classCmd.Usage()
			return errHelp
		}
		return cli.showClass(ctx, *classID)
	})

	createClassCmd := cli.newFlagSet("create-class")
	createClassCourse := createClassCmd.String("course", "", "The course ID.")
	createClassDate := createClassCmd.String("date", "", "The class date, `yyyy-MM-dd HH:mm:ss` in UTC (default: now).")
	add(createClassCmd, "create-class -course COURSE [-date DATE] - schedule a class", false, func(ctx context.Context) error {
		if *createClassCourse == "" {
			createClassCmd.Usage()
			return errHelp
		}
		return cli.createClass(ctx, *createClassCourse, *createClassDate)
	})

	deleteClassCmd := cli.newFlagSet("delete-class")
	deleteClassID := deleteClassCmd.String("id", "", "The class ID.")
	add(deleteClassCmd, "delete-class -id CLASS - delete a class", false, func(ctx context.Context) error {
		if *deleteClassID == "" {
			deleteClassCmd.Usage()
			return errHelp
		}
		return cli.deleteClass(ctx, *deleteClassID)
	})

	presentCmd := cli.newFlagSet("mark-present")
	presentClass := presentCmd.String("class", "", "The class ID.")
	presentStudent := presentCmd.String("student", "", "The student ID.")
	add(presentCmd, "mark-present -class CLASS -student STUDENT - mark a student present", false, func(ctx context.Context) error {
		if *presentClass == "" || *presentStudent == "" {
			presentCmd.Usage()
			return errHelp
		}
		return cli.markPresent(ctx, *presentClass, *presentStudent)
	})

	absentCmd := cli.newFlagSet("mark-absent")
	absentClass := absentCmd.String("class", "", "The class ID.")
	absentStudent := absentCmd.String("student", "", "The student ID.")
	add(absentCmd, "mark-absent -class CLASS -student STUDENT - unmark a present student", false, func(ctx context.Context) error {
		if *absentClass == "" || *absentStudent == "" {
			absentCmd.Usage()
			return errHelp
		}
		return cli.markAbsent(ctx, *absentClass, *absentStudent)
	})

	scanCmd := cli.newFlagSet("scan")
	scanClass := scanCmd.String("class", "", "The class ID.")
	scanCode := scanCmd.String("code", "", "The scanned student code.")
	add(scanCmd, "scan -class CLASS -code CODE - mark the scanned student present", false, func(ctx context.Context) error {
		if *scanClass == "" || *scanCode == "" {
			scanCmd.Usage()
			return errHelp
		}
		return cli.scan(ctx, *scanClass, *scanCode)
	})

	eligibilityCmd := cli.newFlagSet("eligibility")
	eligibilityCourse := eligibilityCmd.String("course", "", "The course ID.")
	eligibilityCode := eligibilityCmd.String("code", "", "The scanned student code.")
	add(eligibilityCmd, "eligibility -course COURSE -code CODE - check exam eligibility", false, func(ctx context.Context) error {
		if *eligibilityCourse == "" || *eligibilityCode == "" {
			eligibilityCmd.Usage()
			return errHelp
		}
		return cli.checkEligibility(ctx, *eligibilityCourse, *eligibilityCode)
	})

	return cmds
}

func (cli *commandLine) printUsage(cmds []command) {
	fmt.Fprintln(cli.out, "Usage:")
	for _, cmd := range cmds {
		fmt.Fprintln(cli.out, "  "+cmd.usage)
	}
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	cmds := cli.commands()
	if len(args) < 2 {
		cli.printUsage(cmds)
		return errHelp
	}

	for _, cmd := range cmds {
		if cmd.flags.Name() != args[1] {
			continue
		}
		if err := cmd.flags.Parse(args[2:]); err != nil {
			if err == flag.ErrHelp {
				return errHelp
			}
			return err
		}
		if !cmd.public {
			if _, ok := cli.store.Current(); !ok {
				return session.ErrNoSession
			}
		}
		return cmd.run(ctx)
	}

	cli.printUsage(cmds)
	return errHelp
}

func (cli *commandLine) table() *tabwriter.Writer {
	return tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
}
