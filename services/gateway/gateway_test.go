package gatewaysvc_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/rollcall/apps/devserver/echo"
	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/academics"
	"github.com/trezcool/rollcall/core/session"
	"github.com/trezcool/rollcall/services/gateway"
	"github.com/trezcool/rollcall/storage/cache/inmem"
	"github.com/trezcool/rollcall/tests"
)

var ctx = context.Background()

type tokenFunc func() string

func (fn tokenFunc) Token() string { return fn() }

type fixture struct {
	conf   *core.Config
	logger *testutil.Logger
	server *httptest.Server
	token  string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := devapi.NewStore(bcrypt.MinCost)
	require.NoError(t, devapi.Seed(store))

	conf := &core.Config{AppName: "Rollcall", SecretKey: "secret", TestMode: true}
	conf.API.Timeout = 5 * time.Second
	conf.DevServer.JWTExpirationDelta = time.Hour
	conf.Attendance.EligibilityThreshold = 0.75

	logger := testutil.NewLogger()
	srv := httptest.NewServer(devapi.NewServer(conf, logger, &devapi.Options{DisableReqLogs: true, Store: store}))
	t.Cleanup(srv.Close)
	conf.API.BaseURL = srv.URL + devapi.BasePath

	return &fixture{conf: conf, logger: logger, server: srv}
}

// gateway returns a Gateway sending the fixture's current token.
func (f *fixture) gateway() *gatewaysvc.Gateway {
	return gatewaysvc.New(f.conf, tokenFunc(func() string { return f.token }), f.logger)
}

func (f *fixture) login(t *testing.T, username string) {
	t.Helper()
	sess, err := f.gateway().Login(ctx, session.Credentials{Username: username, Password: devapi.SeedPassword}, session.LoginRoles)
	require.NoError(t, err)
	f.token = sess.Token
}

func TestGateway_Login(t *testing.T) {
	f := setup(t)
	gw := f.gateway()

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
		wantRole session.Role
		wantID   string
	}{
		{name: "lecturer", username: "eze", password: devapi.SeedPassword, wantRole: session.RoleLecturer, wantID: "l1"},
		{name: "hod", username: "obi", password: devapi.SeedPassword, wantRole: session.RoleHOD, wantID: "l2"},
		{name: "student", username: "ada", password: devapi.SeedPassword, wantRole: session.RoleStudent, wantID: "s1"},
		{name: "unknown user", username: "alice", password: "wrong", wantErr: session.ErrUserInvalid},
		{name: "wrong password", username: "eze", password: "wrong", wantErr: session.ErrPasswordInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := gw.Login(ctx, session.Credentials{Username: tt.username, Password: tt.password}, session.LoginRoles)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				assert.Empty(t, sess.Token)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, sess.Token)
			assert.Equal(t, tt.username, sess.Username)
			assert.Equal(t, tt.wantRole, sess.Role)
			assert.Equal(t, tt.wantID, sess.UserID)
		})
	}
}

func TestGateway_requiresToken(t *testing.T) {
	f := setup(t)
	gw := f.gateway()

	assert.Panics(t, func() { _, _ = gw.ListCourses(ctx) })

	f.login(t, "eze")
	_, err := gw.GetCourse(ctx, "")
	assert.Error(t, err, "empty ids are rejected before any request")
}

func TestGateway_courses(t *testing.T) {
	f := setup(t)
	f.login(t, "eze")
	gw := f.gateway()

	course, err := gw.GetCourse(ctx, "MTH201")
	require.NoError(t, err)
	assert.Equal(t, "Linear Algebra", *course.Title)
	assert.Equal(t, "l1", *course.LecturerID)
	assert.Equal(t, []string{"c1", "c2"}, course.ClassIDs)
	assert.Equal(t, []string{"s1", "s2"}, course.StudentIDs)
	if assert.NotNil(t, course.AttendanceRate) {
		assert.Equal(t, 0.5, *course.AttendanceRate)
	}

	_, err = gw.GetCourse(ctx, "CHM101")
	assert.Equal(t, academics.ErrNotFound, err)

	courses, err := gw.ListCoursesByID(ctx, []string{"PHY101", "MTH201"})
	require.NoError(t, err)
	if assert.Len(t, courses, 2) {
		assert.Equal(t, "PHY101", courses[0].ID)
		assert.Nil(t, courses[0].LecturerID, "absent lecturer is unspecified")
		assert.Equal(t, "MTH201", courses[1].ID)
	}

	id, err := gw.CreateCourse(ctx, academics.NewCourse{Code: "MTH 301", Title: "Real Analysis", LecturerID: "l2"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	assert.Equal(t, academics.ErrRejected, gw.UpdateCourse(ctx, academics.Course{ID: "CHM101", Code: "CHM 101"}))
	require.NoError(t, gw.UpdateCourse(ctx, academics.Course{ID: id, Code: "MTH 301", Title: "Analysis I", LecturerID: "l2"}))

	lecturer, err := gw.GetLecturer(ctx, "l2")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, lecturer.CourseIDs)
}

func TestGateway_classes(t *testing.T) {
	f := setup(t)
	f.login(t, "eze")
	gw := f.gateway()

	classes, err := gw.ListClasses(ctx, "MTH201")
	require.NoError(t, err)
	if assert.Len(t, classes, 2) {
		assert.Equal(t, "c1", classes[0].ID)
		assert.Nil(t, classes[0].PresentIDs, "class listings omit present ids")
		if assert.NotNil(t, classes[0].Date) {
			assert.True(t, testutil.Date(1).Equal(*classes[0].Date))
		}
	}

	cls, err := gw.GetClass(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, cls.PresentIDs)

	id, err := gw.CreateClass(ctx, "MTH201", testutil.Date(15))
	require.NoError(t, err)
	cls, err = gw.GetClass(ctx, id)
	require.NoError(t, err)
	assert.True(t, testutil.Date(15).Equal(*cls.Date))
	assert.Equal(t, "MTH201", *cls.CourseID)

	require.NoError(t, gw.DeleteClass(ctx, id))
	_, err = gw.GetClass(ctx, id)
	assert.Equal(t, academics.ErrNotFound, err)
	assert.Equal(t, academics.ErrNotFound, gw.DeleteClass(ctx, id))
}

func TestGateway_attendances(t *testing.T) {
	f := setup(t)
	f.login(t, "eze")
	gw := f.gateway()

	require.NoError(t, gw.CreateAttendance(ctx, "c1", "s2"))

	err := gw.CreateAttendance(ctx, "c1", "s2")
	conflict, ok := academics.AsConflictError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "c1", conflict.ClassID)
	assert.Equal(t, "s2", conflict.StudentID)
	assert.Equal(t, "s2", conflict.Student.ID)
	if assert.Len(t, conflict.Student.Attendance, 1) {
		assert.Equal(t, 0.5, conflict.Student.Attendance[0].Rate)
	}
	assert.Equal(t, 1, f.logger.Count("info"))

	require.NoError(t, gw.DeleteAttendance(ctx, "c1", "s2"))
	cls, err := gw.GetClass(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, cls.PresentIDs)

	t.Run("forbidden to students", func(t *testing.T) {
		f.login(t, "ada")
		err := gw.CreateAttendance(ctx, "c1", "s1")
		apiErr, ok := errors.Cause(err).(*academics.APIError)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, 403, apiErr.StatusCode)
	})
}

func TestGateway_CreateAttendance_conflictStatus(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no body"},
		{name: "other error code", body: `{"error":"duplicate"}`},
		{name: "not json", body: "Conflict"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			conf := &core.Config{}
			conf.API.BaseURL = srv.URL
			conf.API.Timeout = 5 * time.Second
			gw := gatewaysvc.New(conf, tokenFunc(func() string { return "tok" }), testutil.NewLogger())

			conflict, ok := academics.AsConflictError(gw.CreateAttendance(ctx, "c1", "s2"))
			require.True(t, ok)
			assert.Equal(t, "c1", conflict.ClassID)
			assert.Equal(t, "s2", conflict.StudentID)
			assert.Empty(t, conflict.Student.ID)
		})
	}
}

func TestGateway_students(t *testing.T) {
	f := setup(t)
	f.login(t, "obi")
	gw := f.gateway()

	student, err := gw.GetStudentByCode(ctx, "QR-BOLA")
	require.NoError(t, err)
	assert.Equal(t, "s2", student.ID)
	assert.Equal(t, []string{"MTH201"}, student.CourseIDs)

	_, err = gw.GetStudentByCode(ctx, "QR-NOPE")
	assert.Equal(t, academics.ErrNotFound, err)

	students, err := gw.ListCourseStudents(ctx, "MTH201")
	require.NoError(t, err)
	assert.Len(t, students, 2)

	id, err := gw.CreateStudent(ctx, academics.NewStudent{FirstName: "Dayo", LastName: "Bello", MatricNo: "U2023/0004", Level: "100", CourseIDs: []string{"PHY101"}})
	require.NoError(t, err)

	created, err := gw.GetStudent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Bello", *created.LastName)
	assert.Equal(t, []string{"PHY101"}, created.CourseIDs)

	_, err = gw.CreateStudent(ctx, academics.NewStudent{FirstName: "Dayo", LastName: "Bello", MatricNo: "U2023/0005", Level: "500"})
	apiErr, ok := errors.Cause(err).(*academics.APIError)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, 400, apiErr.StatusCode)

	assert.Equal(t, academics.ErrRejected, gw.UpdateStudent(ctx, academics.Student{ID: "s9"}))
}

func TestGateway_withService(t *testing.T) {
	f := setup(t)
	f.login(t, "eze")
	cache := inmemcache.New()
	svc := academics.NewService(f.gateway(), cache, core.NewValidator(), f.logger, f.conf)

	require.NoError(t, svc.FetchCourseInfo(ctx, "MTH201"))
	course, ok := cache.Course("MTH201")
	require.True(t, ok)
	assert.Equal(t, []string{"c1", "c2"}, course.ClassIDs)
	assert.Len(t, cache.Students(), 2)
	_, ok = cache.Lecturer("l1")
	assert.True(t, ok)

	err := svc.MarkPresent(ctx, "c1", "s1")
	conflict, ok := academics.AsConflictError(err)
	require.True(t, ok, "got %v", err)
	require.NoError(t, svc.MarkPresentLocal(conflict))
	cls, _ := cache.Class("c1")
	assert.Equal(t, []string{"s1"}, cls.PresentIDs)

	e, err := svc.CheckEligibility(ctx, "MTH201", "QR-ADA")
	require.NoError(t, err)
	assert.True(t, e.Eligible)
}
