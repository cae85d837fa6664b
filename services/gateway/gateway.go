package gatewaysvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/academics"
	"github.com/trezcool/rollcall/core/session"
)

// TokenSource provides the bearer token of the current session.
type TokenSource interface {
	Token() string
}

// Gateway talks to the attendance API over HTTP/JSON.
type Gateway struct {
	baseURL string
	client  *rest.Client
	tokens  TokenSource
	logger  core.Logger
}

var (
	_ academics.Gateway     = (*Gateway)(nil) // interface compliance check
	_ session.Authenticator = (*Gateway)(nil)
)

func New(conf *core.Config, tokens TokenSource, logger core.Logger) *Gateway {
	return &Gateway{
		baseURL: conf.API.BaseURL,
		client:  &rest.Client{HTTPClient: &http.Client{Timeout: conf.API.Timeout}},
		tokens:  tokens,
		logger:  logger,
	}
}

type call struct {
	method rest.Method
	path   string
	query  map[string]string
	body   interface{}
	out    interface{}
	public bool // sent without the bearer token
}

type errorBody struct {
	Error   string                  `json:"error"`
	Student *academics.StudentPatch `json:"student"`
}

func (g *Gateway) do(ctx context.Context, c call) (errorBody, error) {
	req := rest.Request{
		Method:      c.method,
		BaseURL:     g.baseURL + c.path,
		Headers:     map[string]string{"Accept": "application/json"},
		QueryParams: c.query,
	}
	if !c.public {
		token := g.tokens.Token()
		vala.BeginValidation().Validate(
			vala.StringNotEmpty(token, "session token"),
		).CheckAndPanic()
		req.Headers["Authorization"] = "Bearer " + token
	}
	if c.body != nil {
		data, err := json.Marshal(c.body)
		if err != nil {
			return errorBody{}, errors.Wrapf(err, "encoding %s %s", c.method, c.path)
		}
		req.Body = data
		req.Headers["Content-Type"] = "application/json"
	}

	res, err := g.client.SendWithContext(ctx, req)
	if err != nil {
		return errorBody{}, errors.Wrapf(err, "%s %s", c.method, c.path)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var body errorBody
		_ = json.Unmarshal([]byte(res.Body), &body)
		return body, toError(res.StatusCode, body)
	}

	if c.out != nil && res.Body != "" {
		if err := json.Unmarshal([]byte(res.Body), c.out); err != nil {
			return errorBody{}, errors.Wrapf(err, "decoding %s %s", c.method, c.path)
		}
	}
	return errorBody{}, nil
}

func toError(status int, body errorBody) error {
	switch {
	case status == http.StatusNotFound:
		return academics.ErrNotFound
	case body.Error == session.ErrUserInvalid.Error():
		return session.ErrUserInvalid
	case body.Error == session.ErrPasswordInvalid.Error():
		return session.ErrPasswordInvalid
	}
	return &academics.APIError{StatusCode: status, Code: body.Error}
}

func requireID(id, name string) error {
	return vala.BeginValidation().Validate(vala.StringNotEmpty(id, name)).Check()
}

// Login exchanges credentials for a session. It does not need a session token.
func (g *Gateway) Login(ctx context.Context, creds session.Credentials, roles []session.Role) (session.Session, error) {
	var res struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
		Token    string `json:"token"`
	}
	body := map[string]interface{}{"username": creds.Username, "password": creds.Password, "roles": roles}
	if _, err := g.do(ctx, call{method: rest.Post, path: "/auth/login", body: body, out: &res, public: true}); err != nil {
		return session.Session{}, err
	}
	if res.Token == "" {
		return session.Session{}, errors.New("login: no token in response")
	}
	return session.Session{Token: res.Token, Username: res.Username, Role: session.Role(res.Role), UserID: res.ID}, nil
}

func (g *Gateway) ListCourses(ctx context.Context) ([]academics.CoursePatch, error) {
	var courses []academics.CoursePatch
	_, err := g.do(ctx, call{method: rest.Get, path: "/courses", out: &courses})
	return courses, err
}

func (g *Gateway) GetCourse(ctx context.Context, id string) (academics.CoursePatch, error) {
	var course academics.CoursePatch
	if err := requireID(id, "course id"); err != nil {
		return course, err
	}
	_, err := g.do(ctx, call{method: rest.Get, path: "/courses/" + url.PathEscape(id), out: &course})
	return course, err
}

func (g *Gateway) ListCoursesByID(ctx context.Context, ids []string) ([]academics.CoursePatch, error) {
	var courses []academics.CoursePatch
	if len(ids) == 0 {
		return courses, nil
	}
	_, err := g.do(ctx, call{method: rest.Get, path: "/courses", query: map[string]string{"ids": strings.Join(ids, ",")}, out: &courses})
	return courses, err
}

type createdResponse struct {
	Success   bool   `json:"success"`
	CourseID  string `json:"courseId"`
	StudentID string `json:"studentId"`
}

func (g *Gateway) CreateCourse(ctx context.Context, nc academics.NewCourse) (string, error) {
	var res createdResponse
	if _, err := g.do(ctx, call{method: rest.Post, path: "/createCourse", body: nc, out: &res}); err != nil {
		return "", err
	}
	if !res.Success || res.CourseID == "" {
		return "", academics.ErrRejected
	}
	return res.CourseID, nil
}

func (g *Gateway) UpdateCourse(ctx context.Context, c academics.Course) error {
	if err := requireID(c.ID, "course id"); err != nil {
		return err
	}
	var res createdResponse
	if _, err := g.do(ctx, call{method: rest.Post, path: "/updateCourse", body: c, out: &res}); err != nil {
		return err
	}
	if !res.Success {
		return academics.ErrRejected
	}
	return nil
}

func (g *Gateway) ListClasses(ctx context.Context, courseID string) ([]academics.ClassPatch, error) {
	var classes []academics.ClassPatch
	_, err := g.do(ctx, call{method: rest.Get, path: "/classes", query: map[string]string{"courseId": courseID}, out: &classes})
	return classes, err
}

func (g *Gateway) GetClass(ctx context.Context, id string) (academics.ClassPatch, error) {
	var cls academics.ClassPatch
	if err := requireID(id, "class id"); err != nil {
		return cls, err
	}
	_, err := g.do(ctx, call{method: rest.Get, path: "/classes/" + url.PathEscape(id), out: &cls})
	return cls, err
}

func (g *Gateway) CreateClass(ctx context.Context, courseID string, date time.Time) (string, error) {
	if err := requireID(courseID, "course id"); err != nil {
		return "", err
	}
	var res struct {
		ID string `json:"id"`
	}
	body := map[string]string{"courseId": courseID, "date": academics.FormatRemoteDate(date)}
	if _, err := g.do(ctx, call{method: rest.Post, path: "/classes", body: body, out: &res}); err != nil {
		return "", err
	}
	if res.ID == "" {
		return "", academics.ErrRejected
	}
	return res.ID, nil
}

func (g *Gateway) DeleteClass(ctx context.Context, id string) error {
	if err := requireID(id, "class id"); err != nil {
		return err
	}
	_, err := g.do(ctx, call{method: rest.Delete, path: "/classes/" + url.PathEscape(id)})
	return err
}

func (g *Gateway) CreateAttendance(ctx context.Context, classID, studentID string) error {
	if err := requireID(classID, "class id"); err != nil {
		return err
	}
	body := map[string]string{"studentId": studentID}
	eb, err := g.do(ctx, call{method: rest.Post, path: "/classes/" + url.PathEscape(classID) + "/attendances", body: body})
	apiErr, ok := errors.Cause(err).(*academics.APIError)
	if ok && (apiErr.StatusCode == http.StatusConflict || apiErr.Code == academics.CodeAttendanceExists) {
		var student academics.StudentPatch
		if eb.Student != nil {
			student = *eb.Student
		}
		g.logger.Info("attendance already recorded", "classID", classID, "studentID", studentID)
		return academics.NewConflictError(classID, studentID, student)
	}
	return err
}

func (g *Gateway) DeleteAttendance(ctx context.Context, classID, studentID string) error {
	if err := requireID(classID, "class id"); err != nil {
		return err
	}
	path := "/classes/" + url.PathEscape(classID) + "/attendances/" + url.PathEscape(studentID)
	_, err := g.do(ctx, call{method: rest.Delete, path: path})
	return err
}

func (g *Gateway) ListStudents(ctx context.Context) ([]academics.StudentPatch, error) {
	var students []academics.StudentPatch
	_, err := g.do(ctx, call{method: rest.Get, path: "/students", out: &students})
	return students, err
}

func (g *Gateway) ListCourseStudents(ctx context.Context, courseID string) ([]academics.StudentPatch, error) {
	var students []academics.StudentPatch
	_, err := g.do(ctx, call{method: rest.Get, path: "/students", query: map[string]string{"courseId": courseID}, out: &students})
	return students, err
}

func (g *Gateway) GetStudent(ctx context.Context, id string) (academics.StudentPatch, error) {
	var student academics.StudentPatch
	if err := requireID(id, "student id"); err != nil {
		return student, err
	}
	_, err := g.do(ctx, call{method: rest.Get, path: "/students/" + url.PathEscape(id), out: &student})
	return student, err
}

// GetStudentByCode resolves a scanned student code.
func (g *Gateway) GetStudentByCode(ctx context.Context, code string) (academics.StudentPatch, error) {
	var student academics.StudentPatch
	if err := requireID(code, "student code"); err != nil {
		return student, err
	}
	path := "/students/" + url.PathEscape(code)
	_, err := g.do(ctx, call{method: rest.Get, path: path, query: map[string]string{"qrcode": "1"}, out: &student})
	return student, err
}

func (g *Gateway) CreateStudent(ctx context.Context, ns academics.NewStudent) (string, error) {
	body := struct {
		academics.NewStudent
		Semester int `json:"semester"`
		Year     int `json:"year"`
	}{NewStudent: ns, Semester: 1, Year: 2022}

	var res createdResponse
	if _, err := g.do(ctx, call{method: rest.Post, path: "/createStudent", body: body, out: &res}); err != nil {
		return "", err
	}
	if !res.Success || res.StudentID == "" {
		return "", academics.ErrRejected
	}
	return res.StudentID, nil
}

func (g *Gateway) UpdateStudent(ctx context.Context, s academics.Student) error {
	if err := requireID(s.ID, "student id"); err != nil {
		return err
	}
	var res createdResponse
	if _, err := g.do(ctx, call{method: rest.Post, path: "/updateStudent", body: s, out: &res}); err != nil {
		return err
	}
	if !res.Success {
		return academics.ErrRejected
	}
	return nil
}

func (g *Gateway) ListLecturers(ctx context.Context) ([]academics.LecturerPatch, error) {
	var lecturers []academics.LecturerPatch
	_, err := g.do(ctx, call{method: rest.Get, path: "/lecturers", out: &lecturers})
	return lecturers, err
}

func (g *Gateway) GetLecturer(ctx context.Context, id string) (academics.LecturerPatch, error) {
	var lecturer academics.LecturerPatch
	if err := requireID(id, "lecturer id"); err != nil {
		return lecturer, err
	}
	_, err := g.do(ctx, call{method: rest.Get, path: "/lecturers/" + url.PathEscape(id), out: &lecturer})
	return lecturer, err
}
