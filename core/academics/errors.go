package academics

import (
	"fmt"

	"github.com/pkg/errors"
)

// CodeAttendanceExists is the API error code of a duplicate attendance.
const CodeAttendanceExists = "attendance-already-exists"

var (
	// errors
	ErrNotFound       = errors.New("not found")
	ErrRejected       = errors.New("request rejected by the server")
	ErrNotEnrolled    = errors.New("student is not registered for this course")
	ErrClassNotLoaded = errors.New("class is not loaded")
)

// ConflictError reports that the server already holds the attendance of
// StudentID in ClassID. Student is the server's view of that student.
type ConflictError struct {
	ClassID   string
	StudentID string
	Student   StudentPatch
}

func NewConflictError(classID, studentID string, student StudentPatch) *ConflictError {
	return &ConflictError{ClassID: classID, StudentID: studentID, Student: student}
}

func (err *ConflictError) Error() string {
	return fmt.Sprintf("%s: student %s in class %s", CodeAttendanceExists, err.StudentID, err.ClassID)
}

// AsConflictError unwraps err down to a *ConflictError.
func AsConflictError(err error) (*ConflictError, bool) {
	var cErr *ConflictError
	if errors.As(err, &cErr) {
		return cErr, true
	}
	return nil, false
}

// APIError is any other non-2xx answer of the remote API.
type APIError struct {
	StatusCode int
	Code       string
}

func (err *APIError) Error() string {
	if err.Code == "" {
		return fmt.Sprintf("api error: status %d", err.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", err.StatusCode, err.Code)
}
