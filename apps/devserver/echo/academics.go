package devapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/academics"
	"github.com/trezcool/rollcall/core/session"
)

var staffRoles = []string{string(session.RoleLecturer), string(session.RoleHOD)}

type academicsApi struct {
	store  *Store
	tokens tokenIssuer
	logger core.Logger
}

func registerAcademicsAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *academicsApi) {
	staff := roleMiddleware(staffRoles...)

	// un-authed endpoints
	g.POST("/auth/login", api.login)

	// authed endpoints
	ag := g.Group("", jwt)

	ag.GET("/courses", api.listCourses)
	ag.GET("/courses/:id", api.retrieveCourse)
	ag.POST("/createCourse", api.createCourse, staff)
	ag.POST("/updateCourse", api.updateCourse, staff)

	ag.GET("/classes", api.listClasses)
	ag.POST("/classes", api.createClass, staff)
	ag.GET("/classes/:id", api.retrieveClass)
	ag.DELETE("/classes/:id", api.destroyClass, staff)
	ag.POST("/classes/:id/attendances", api.createAttendance, staff)
	ag.DELETE("/classes/:id/attendances/:studentId", api.destroyAttendance, staff)

	ag.GET("/students", api.listStudents)
	ag.GET("/students/:id", api.retrieveStudent)
	ag.POST("/createStudent", api.createStudent, staff)
	ag.POST("/updateStudent", api.updateStudent, staff)

	ag.GET("/lecturers", api.listLecturers)
	ag.GET("/lecturers/:id", api.retrieveLecturer)
}

// Handlers

func (api *academicsApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	data.Username = core.CleanString(data.Username)
	if err := ctx.Validate(&data); err != nil {
		return err
	}

	usr, err := api.store.authenticate(data.Username, data.Password, data.Roles)
	if err != nil {
		api.logger.Info("login rejected", "username", data.Username, "reason", err.Error())
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	token, err := api.tokens.generate(usr)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{ID: usr.ID, Username: usr.Username, Role: usr.Role, Token: token})
}

func (api *academicsApi) listCourses(ctx echo.Context) error {
	var ids []string
	if param := ctx.QueryParam("ids"); param != "" {
		ids = strings.Split(param, ",")
	}
	return ctx.JSON(http.StatusOK, api.store.listCourses(ids))
}

func (api *academicsApi) retrieveCourse(ctx echo.Context) error {
	course, err := api.store.getCourse(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api *academicsApi) createCourse(ctx echo.Context) error {
	var data academics.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := ctx.Validate(&data); err != nil {
		return err
	}
	id := api.store.createCourse(data)
	return ctx.JSON(http.StatusOK, CreatedResponse{Success: true, CourseID: id})
}

func (api *academicsApi) updateCourse(ctx echo.Context) error {
	var data academics.Course
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Course")
	}
	if err := api.store.updateCourse(data); err != nil {
		if err == errNotFound {
			return ctx.JSON(http.StatusOK, CreatedResponse{Success: false})
		}
		return err
	}
	return ctx.JSON(http.StatusOK, CreatedResponse{Success: true, CourseID: data.ID})
}

func (api *academicsApi) listClasses(ctx echo.Context) error {
	classes, err := api.store.listClasses(ctx.QueryParam("courseId"))
	if err != nil {
		return err
	}
	res := make([]classResponse, len(classes))
	for i, cls := range classes {
		res[i] = newClassResponse(cls, false)
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *academicsApi) retrieveClass(ctx echo.Context) error {
	cls, err := api.store.getClass(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newClassResponse(cls, true))
}

func (api *academicsApi) createClass(ctx echo.Context) error {
	var data ClassRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClassRequest")
	}
	if err := ctx.Validate(&data); err != nil {
		return err
	}
	date, err := data.date()
	if err != nil {
		return err
	}
	id, err := api.store.createClass(data.CourseID, date)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (api *academicsApi) destroyClass(ctx echo.Context) error {
	if err := api.store.deleteClass(ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *academicsApi) createAttendance(ctx echo.Context) error {
	var data AttendanceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttendanceRequest")
	}
	if err := ctx.Validate(&data); err != nil {
		return err
	}
	if err := api.store.markPresent(ctx.Param("id"), data.StudentID, data.QRCode); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusCreated)
}

func (api *academicsApi) destroyAttendance(ctx echo.Context) error {
	if err := api.store.markAbsent(ctx.Param("id"), ctx.Param("studentId")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *academicsApi) listStudents(ctx echo.Context) error {
	students, err := api.store.listStudents(ctx.QueryParam("courseId"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

// retrieveStudent resolves `:id` as a scanned code when `qrcode=1`.
func (api *academicsApi) retrieveStudent(ctx echo.Context) error {
	var student academics.Student
	var err error
	if ctx.QueryParam("qrcode") == "1" {
		student, err = api.store.getStudentByCode(ctx.Param("id"))
	} else {
		student, err = api.store.getStudent(ctx.Param("id"))
	}
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, student)
}

func (api *academicsApi) createStudent(ctx echo.Context) error {
	var data createStudentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := ctx.Validate(&data); err != nil {
		return err
	}
	id := api.store.createStudent(data.NewStudent)
	return ctx.JSON(http.StatusOK, CreatedResponse{Success: true, StudentID: id})
}

func (api *academicsApi) updateStudent(ctx echo.Context) error {
	var data academics.Student
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Student")
	}
	if err := api.store.updateStudent(data); err != nil {
		if err == errNotFound {
			return ctx.JSON(http.StatusOK, CreatedResponse{Success: false})
		}
		return err
	}
	return ctx.JSON(http.StatusOK, CreatedResponse{Success: true, StudentID: data.ID})
}

func (api *academicsApi) listLecturers(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.store.listLecturers())
}

func (api *academicsApi) retrieveLecturer(ctx echo.Context) error {
	lecturer, err := api.store.getLecturer(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, lecturer)
}
