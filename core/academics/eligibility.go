package academics

import "context"

// Eligibility is the exam eligibility of a scanned student in a course.
type Eligibility struct {
	Student    Student
	Registered bool
	Rate       *float64
	Eligible   bool
}

// CheckEligibility resolves a scanned student code. The student is eligible when
// registered for courseID with an attendance rate strictly above the configured threshold.
func (svc *Service) CheckEligibility(ctx context.Context, courseID, code string) (Eligibility, error) {
	student, err := svc.resolveStudent(ctx, code)
	if err != nil {
		return Eligibility{}, err
	}

	e := Eligibility{Student: student, Registered: svc.isRegistered(student, courseID)}
	if a, ok := student.CourseAttendance(courseID); ok {
		e.Rate = Ptr(a.Rate)
	}
	e.Eligible = e.Registered && e.Rate != nil && *e.Rate > svc.threshold
	return e, nil
}
