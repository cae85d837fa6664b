package devapi

import (
	"time"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/academics"
)

type LoginRequest struct {
	Username string   `json:"username" validate:"notblank"`
	Password string   `json:"password" validate:"required"`
	Roles    []string `json:"roles" validate:"required,min=1,dive,oneof=student lecturer hod"`
}

type LoginResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Token    string `json:"token"`
}

type ClassRequest struct {
	CourseID string `json:"courseId" validate:"required"`
	Date     string `json:"date" validate:"required"`
}

type AttendanceRequest struct {
	StudentID string `json:"studentId" validate:"required_without=QRCode"`
	QRCode    string `json:"qrCode" validate:"required_without=StudentID"`
}

// createStudentRequest carries the enrollment period sent along with the student.
type createStudentRequest struct {
	academics.NewStudent
	Semester int `json:"semester" validate:"min=1,max=2"`
	Year     int `json:"year" validate:"required"`
}

type CreatedResponse struct {
	Success   bool   `json:"success"`
	CourseID  string `json:"courseId,omitempty"`
	StudentID string `json:"studentId,omitempty"`
}

// classResponse renders a class date in the remote layout.
type classResponse struct {
	ID         string   `json:"id"`
	CourseID   string   `json:"courseId"`
	Date       string   `json:"date"`
	PresentIDs []string `json:"presentIds,omitempty"`
}

func newClassResponse(cls *class, withPresent bool) classResponse {
	res := classResponse{ID: cls.ID, CourseID: cls.CourseID, Date: academics.FormatRemoteDate(cls.Date)}
	if withPresent {
		res.PresentIDs = cls.presentIDs()
	}
	return res
}

func (req ClassRequest) date() (time.Time, error) {
	date, err := academics.ParseDate(req.Date)
	if err != nil {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "Enter a valid date"})
	}
	return date, nil
}

// requestValidator plugs core.Validator into echo's Context.Validate.
type requestValidator struct {
	v *core.Validator
}

func (rv requestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}
