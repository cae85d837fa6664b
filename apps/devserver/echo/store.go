package devapi

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/rollcall/core/academics"
)

var (
	errNotFound        = errors.New("not found")
	errUserInvalid     = errors.New("user-invalid")
	errPasswordInvalid = errors.New("password-invalid")
)

// conflictError reports an attendance that already exists, with the student it belongs to.
type conflictError struct {
	student academics.Student
}

func (err *conflictError) Error() string { return academics.CodeAttendanceExists }

type user struct {
	ID       string
	Username string
	Role     string
	hash     []byte
}

type class struct {
	ID       string
	CourseID string
	Date     time.Time
	present  map[string]struct{}
}

// Store is the in-memory data set served by the dev API.
type Store struct {
	mu        sync.RWMutex
	cost      int
	users     map[string]user // by username
	courses   map[string]*academics.Course
	classes   map[string]*class
	students  map[string]*academics.Student
	lecturers map[string]*academics.Lecturer
	codes     map[string]string // scanned code -> student id
}

// NewStore returns an empty Store. Password hashes use bcrypt's `cost` (bcrypt.DefaultCost when 0).
func NewStore(cost int) *Store {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Store{
		cost:      cost,
		users:     make(map[string]user),
		courses:   make(map[string]*academics.Course),
		classes:   make(map[string]*class),
		students:  make(map[string]*academics.Student),
		lecturers: make(map[string]*academics.Lecturer),
		codes:     make(map[string]string),
	}
}

func newID() string { return uuid.New().String() }

// AddUser registers a login for the person `id` (a student or lecturer).
func (s *Store) AddUser(id, username, password, role string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = user{ID: id, Username: username, Role: role, hash: hash}
	return nil
}

func (s *Store) authenticate(username, password string, roles []string) (user, error) {
	s.mu.RLock()
	usr, ok := s.users[username]
	s.mu.RUnlock()
	if !ok || !containsString(roles, usr.Role) {
		return user{}, errUserInvalid
	}
	if err := bcrypt.CompareHashAndPassword(usr.hash, []byte(password)); err != nil {
		return user{}, errPasswordInvalid
	}
	return usr, nil
}

// AddLecturer, AddCourse, AddClass and AddStudent seed the store; relationships are linked both ways.

func (s *Store) AddLecturer(l academics.Lecturer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l = l.Clone()
	l.CourseIDs = []string{}
	s.lecturers[l.ID] = &l
}

func (s *Store) AddCourse(c academics.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addCourse(c)
}

func (s *Store) addCourse(c academics.Course) {
	lecturerID, studentIDs := c.LecturerID, c.StudentIDs
	c = academics.Course{ID: c.ID, Code: c.Code, Title: c.Title, ClassIDs: []string{}, StudentIDs: []string{}}
	s.courses[c.ID] = &c
	s.setLecturer(&c, lecturerID)
	for _, sid := range studentIDs {
		s.enroll(c.ID, sid)
	}
}

func (s *Store) AddClass(courseID string, id string, date time.Time, presentIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.addClass(courseID, id, date); err != nil {
		return err
	}
	for _, sid := range presentIDs {
		s.classes[id].present[sid] = struct{}{}
	}
	return nil
}

func (s *Store) addClass(courseID, id string, date time.Time) (*class, error) {
	course, ok := s.courses[courseID]
	if !ok {
		return nil, errNotFound
	}
	cls := &class{ID: id, CourseID: courseID, Date: date.UTC(), present: make(map[string]struct{})}
	s.classes[id] = cls
	course.ClassIDs = append(course.ClassIDs, id)
	return cls, nil
}

// AddStudent seeds a student resolvable by the scanned `code`.
func (s *Store) AddStudent(st academics.Student, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addStudent(st, code)
}

func (s *Store) addStudent(st academics.Student, code string) {
	courseIDs := st.CourseIDs
	st = st.Clone()
	st.CourseIDs = []string{}
	st.Attendance, st.AttendanceRate = nil, nil
	s.students[st.ID] = &st
	if code != "" {
		s.codes[code] = st.ID
	}
	for _, cid := range courseIDs {
		s.enroll(cid, st.ID)
	}
}

func (s *Store) enroll(courseID, studentID string) {
	course, ok := s.courses[courseID]
	student, found := s.students[studentID]
	if !ok || !found {
		return
	}
	if !containsString(course.StudentIDs, studentID) {
		course.StudentIDs = append(course.StudentIDs, studentID)
	}
	if !containsString(student.CourseIDs, courseID) {
		student.CourseIDs = append(student.CourseIDs, courseID)
	}
}

func (s *Store) unenroll(courseID, studentID string) {
	if course, ok := s.courses[courseID]; ok {
		course.StudentIDs = academics.Without(course.StudentIDs, studentID)
	}
	if student, ok := s.students[studentID]; ok {
		student.CourseIDs = academics.Without(student.CourseIDs, courseID)
	}
}

func (s *Store) setLecturer(c *academics.Course, lecturerID string) {
	if old, ok := s.lecturers[c.LecturerID]; ok {
		old.CourseIDs = academics.Without(old.CourseIDs, c.ID)
	}
	c.LecturerID = ""
	if l, ok := s.lecturers[lecturerID]; ok {
		c.LecturerID = lecturerID
		if !containsString(l.CourseIDs, c.ID) {
			l.CourseIDs = append(l.CourseIDs, c.ID)
		}
	}
}

// Courses

func (s *Store) listCourses(ids []string) []academics.Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ids == nil {
		ids = sortedKeys(s.courses)
	}
	out := make([]academics.Course, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.courses[id]; ok {
			out = append(out, s.courseView(c))
		}
	}
	return out
}

func (s *Store) getCourse(id string) (academics.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return academics.Course{}, errNotFound
	}
	return s.courseView(c), nil
}

func (s *Store) createCourse(nc academics.NewCourse) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := newID()
	s.addCourse(academics.Course{ID: id, Code: nc.Code, Title: nc.Title, LecturerID: nc.LecturerID, StudentIDs: nc.StudentIDs})
	return id
}

func (s *Store) updateCourse(c academics.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	course, ok := s.courses[c.ID]
	if !ok {
		return errNotFound
	}
	course.Code, course.Title = c.Code, c.Title
	s.setLecturer(course, c.LecturerID)
	if c.StudentIDs != nil {
		for _, sid := range course.StudentIDs {
			if !containsString(c.StudentIDs, sid) {
				s.unenroll(c.ID, sid)
			}
		}
		for _, sid := range c.StudentIDs {
			s.enroll(c.ID, sid)
		}
	}
	return nil
}

// courseView computes the attendance rates of c. The caller holds the lock.
func (s *Store) courseView(c *academics.Course) academics.Course {
	view := c.Clone()
	if len(c.ClassIDs) == 0 {
		return view
	}
	var total float64
	view.AttendanceRateByStudent = make([]academics.StudentRate, 0, len(c.StudentIDs))
	for _, sid := range c.StudentIDs {
		rate, _ := s.attendance(c, sid)
		total += rate
		view.AttendanceRateByStudent = append(view.AttendanceRateByStudent, academics.StudentRate{StudentID: sid, AttendanceRate: rate})
	}
	if len(c.StudentIDs) > 0 {
		view.AttendanceRate = academics.Ptr(total / float64(len(c.StudentIDs)))
	}
	return view
}

func (s *Store) attendance(c *academics.Course, studentID string) (float64, []academics.ClassAttendance) {
	classes := make([]academics.ClassAttendance, 0, len(c.ClassIDs))
	var present int
	for _, cid := range c.ClassIDs {
		cls, ok := s.classes[cid]
		if !ok {
			continue
		}
		_, here := cls.present[studentID]
		if here {
			present++
		}
		classes = append(classes, academics.ClassAttendance{ClassID: cid, Present: here})
	}
	if len(classes) == 0 {
		return 0, classes
	}
	return float64(present) / float64(len(classes)), classes
}

// Classes

func (s *Store) listClasses(courseID string) ([]*class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	course, ok := s.courses[courseID]
	if !ok {
		return nil, errNotFound
	}
	out := make([]*class, 0, len(course.ClassIDs))
	for _, id := range course.ClassIDs {
		if cls, ok := s.classes[id]; ok {
			out = append(out, cls.clone())
		}
	}
	return out, nil
}

func (s *Store) getClass(id string) (*class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cls, ok := s.classes[id]
	if !ok {
		return nil, errNotFound
	}
	return cls.clone(), nil
}

func (s *Store) createClass(courseID string, date time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cls, err := s.addClass(courseID, newID(), date)
	if err != nil {
		return "", err
	}
	return cls.ID, nil
}

func (s *Store) deleteClass(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cls, ok := s.classes[id]
	if !ok {
		return errNotFound
	}
	delete(s.classes, id)
	if course, ok := s.courses[cls.CourseID]; ok {
		course.ClassIDs = academics.Without(course.ClassIDs, id)
	}
	return nil
}

func (c *class) clone() *class {
	present := make(map[string]struct{}, len(c.present))
	for id := range c.present {
		present[id] = struct{}{}
	}
	cp := *c
	cp.present = present
	return &cp
}

func (c *class) presentIDs() []string {
	ids := make([]string, 0, len(c.present))
	for id := range c.present {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Attendances

// markPresent records studentID (or the student scanned as `code`) present in classID.
func (s *Store) markPresent(classID, studentID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cls, ok := s.classes[classID]
	if !ok {
		return errNotFound
	}
	if studentID == "" {
		studentID = s.codes[code]
	}
	student, ok := s.students[studentID]
	if !ok {
		return errNotFound
	}
	if _, here := cls.present[studentID]; here {
		return &conflictError{student: s.studentView(student)}
	}
	cls.present[studentID] = struct{}{}
	return nil
}

func (s *Store) markAbsent(classID, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cls, ok := s.classes[classID]
	if !ok {
		return errNotFound
	}
	delete(cls.present, studentID)
	return nil
}

// Students

func (s *Store) listStudents(courseID string) ([]academics.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := sortedKeys(s.students)
	if courseID != "" {
		course, ok := s.courses[courseID]
		if !ok {
			return nil, errNotFound
		}
		ids = course.StudentIDs
	}
	out := make([]academics.Student, 0, len(ids))
	for _, id := range ids {
		if st, ok := s.students[id]; ok {
			out = append(out, s.studentView(st))
		}
	}
	return out, nil
}

func (s *Store) getStudent(id string) (academics.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[id]
	if !ok {
		return academics.Student{}, errNotFound
	}
	return s.studentView(st), nil
}

func (s *Store) getStudentByCode(code string) (academics.Student, error) {
	s.mu.RLock()
	id, ok := s.codes[code]
	s.mu.RUnlock()
	if !ok {
		return academics.Student{}, errNotFound
	}
	return s.getStudent(id)
}

func (s *Store) createStudent(ns academics.NewStudent) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := newID()
	s.addStudent(academics.Student{
		ID:         id,
		FirstName:  ns.FirstName,
		LastName:   ns.LastName,
		OtherNames: ns.OtherNames,
		MatricNo:   ns.MatricNo,
		Level:      ns.Level,
		CourseIDs:  ns.CourseIDs,
	}, ns.MatricNo)
	return id
}

func (s *Store) updateStudent(st academics.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	student, ok := s.students[st.ID]
	if !ok {
		return errNotFound
	}
	student.FirstName, student.LastName, student.OtherNames = st.FirstName, st.LastName, st.OtherNames
	student.MatricNo, student.Level, student.PhotoURL = st.MatricNo, st.Level, st.PhotoURL
	if st.CourseIDs != nil {
		for _, cid := range student.CourseIDs {
			if !containsString(st.CourseIDs, cid) {
				s.unenroll(cid, st.ID)
			}
		}
		for _, cid := range st.CourseIDs {
			s.enroll(cid, st.ID)
		}
	}
	return nil
}

// studentView computes the per-course attendance of st. The caller holds the lock.
func (s *Store) studentView(st *academics.Student) academics.Student {
	view := st.Clone()
	view.Attendance = make([]academics.CourseAttendance, 0, len(st.CourseIDs))
	var total float64
	var counted int
	for _, cid := range st.CourseIDs {
		course, ok := s.courses[cid]
		if !ok {
			continue
		}
		rate, classes := s.attendance(course, st.ID)
		view.Attendance = append(view.Attendance, academics.CourseAttendance{CourseID: cid, Rate: rate, Classes: classes})
		if len(classes) > 0 {
			total += rate
			counted++
		}
	}
	if counted > 0 {
		view.AttendanceRate = academics.Ptr(total / float64(counted))
	}
	return view
}

// Lecturers

func (s *Store) listLecturers() []academics.Lecturer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]academics.Lecturer, 0, len(s.lecturers))
	for _, id := range sortedKeys(s.lecturers) {
		out = append(out, s.lecturers[id].Clone())
	}
	return out
}

func (s *Store) getLecturer(id string) (academics.Lecturer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lecturers[id]
	if !ok {
		return academics.Lecturer{}, errNotFound
	}
	return l.Clone(), nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
