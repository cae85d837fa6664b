package inmemcache

import (
	"github.com/trezcool/rollcall/core/academics"
)

// tx writes to a copy-on-write snapshot: each table is cloned on its first write.
type tx struct {
	state
	dirty   map[academics.Kind]bool
	written map[academics.Kind][]string
	seen    map[academics.Kind]map[string]struct{}
	reset   []academics.Kind
}

var _ academics.CacheTx = (*tx)(nil) // interface compliance check

func newTx(base state) *tx {
	return &tx{
		state:   base,
		dirty:   make(map[academics.Kind]bool),
		written: make(map[academics.Kind][]string),
		seen:    make(map[academics.Kind]map[string]struct{}),
	}
}

func (t *tx) writable(kind academics.Kind) {
	if t.dirty[kind] {
		return
	}
	t.dirty[kind] = true
	switch kind {
	case academics.KindCourse:
		t.course = t.course.clone()
	case academics.KindClass:
		t.class = t.class.clone()
	case academics.KindStudent:
		t.student = t.student.clone()
	case academics.KindLecturer:
		t.lecturer = t.lecturer.clone()
	}
}

func (t *tx) touch(kind academics.Kind, id string) {
	ids, ok := t.seen[kind]
	if !ok {
		ids = make(map[string]struct{})
		t.seen[kind] = ids
	}
	if _, ok := ids[id]; ok {
		return
	}
	ids[id] = struct{}{}
	t.written[kind] = append(t.written[kind], id)
}

func (t *tx) result() academics.Change {
	change := academics.Change{Reset: t.reset}
	if len(t.written) > 0 {
		change.IDs = t.written
	}
	return change
}

func (t *tx) Course(id string) (academics.Course, bool)     { return t.getCourse(id) }
func (t *tx) Class(id string) (academics.Class, bool)       { return t.getClass(id) }
func (t *tx) Student(id string) (academics.Student, bool)   { return t.getStudent(id) }
func (t *tx) Lecturer(id string) (academics.Lecturer, bool) { return t.getLecturer(id) }
func (t *tx) Courses() []academics.Course                   { return t.courses() }
func (t *tx) Classes() []academics.Class                    { return t.classes() }
func (t *tx) Students() []academics.Student                 { return t.students() }
func (t *tx) Lecturers() []academics.Lecturer               { return t.lecturers() }

func (t *tx) UpsertCourse(id string, p academics.CoursePatch) {
	t.writable(academics.KindCourse)
	row := academics.Course{ID: id}
	if old, ok := t.course.get(id); ok {
		row = old.Clone()
	}
	row.Apply(p)
	t.course.put(id, &row)
	t.touch(academics.KindCourse, id)
}

func (t *tx) UpsertClass(id string, p academics.ClassPatch) {
	t.writable(academics.KindClass)
	row := academics.Class{ID: id}
	if old, ok := t.class.get(id); ok {
		row = old.Clone()
	}
	row.Apply(p)
	t.class.put(id, &row)
	t.touch(academics.KindClass, id)
}

func (t *tx) UpsertStudent(id string, p academics.StudentPatch) {
	t.writable(academics.KindStudent)
	row := academics.Student{ID: id}
	if old, ok := t.student.get(id); ok {
		row = old.Clone()
	}
	row.Apply(p)
	t.student.put(id, &row)
	t.touch(academics.KindStudent, id)
}

func (t *tx) UpsertLecturer(id string, p academics.LecturerPatch) {
	t.writable(academics.KindLecturer)
	row := academics.Lecturer{ID: id}
	if old, ok := t.lecturer.get(id); ok {
		row = old.Clone()
	}
	row.Apply(p)
	t.lecturer.put(id, &row)
	t.touch(academics.KindLecturer, id)
}

func (t *tx) Remove(kind academics.Kind, id string) {
	switch kind {
	case academics.KindCourse:
		t.removeCourse(id)
	case academics.KindClass:
		t.removeClass(id)
	case academics.KindStudent:
		t.removeStudent(id)
	case academics.KindLecturer:
		t.removeLecturer(id)
	}
}

func (t *tx) Reset(kind academics.Kind) {
	t.dirty[kind] = true
	switch kind {
	case academics.KindCourse:
		t.course = newTable[academics.Course]()
	case academics.KindClass:
		t.class = newTable[academics.Class]()
	case academics.KindStudent:
		t.student = newTable[academics.Student]()
	case academics.KindLecturer:
		t.lecturer = newTable[academics.Lecturer]()
	default:
		return
	}
	t.reset = append(t.reset, kind)
}

func (t *tx) removeClass(id string) {
	if _, ok := t.class.get(id); ok || containsID(t.class.ids, id) {
		t.writable(academics.KindClass)
		t.class.del(id)
		t.touch(academics.KindClass, id)
	}

	for _, course := range t.course.list() {
		if !containsID(course.ClassIDs, id) {
			continue
		}
		t.writable(academics.KindCourse)
		row := course.Clone()
		row.ClassIDs = academics.Without(row.ClassIDs, id)
		t.course.put(row.ID, &row)
		t.touch(academics.KindCourse, row.ID)
	}
}

func (t *tx) removeStudent(id string) {
	if _, ok := t.student.get(id); ok || containsID(t.student.ids, id) {
		t.writable(academics.KindStudent)
		t.student.del(id)
		t.touch(academics.KindStudent, id)
	}

	for _, course := range t.course.list() {
		if !containsID(course.StudentIDs, id) {
			continue
		}
		t.writable(academics.KindCourse)
		row := course.Clone()
		row.StudentIDs = academics.Without(row.StudentIDs, id)
		t.course.put(row.ID, &row)
		t.touch(academics.KindCourse, row.ID)
	}
	for _, cls := range t.class.list() {
		if !containsID(cls.PresentIDs, id) {
			continue
		}
		t.writable(academics.KindClass)
		row := cls.Clone()
		row.PresentIDs = academics.Without(row.PresentIDs, id)
		t.class.put(row.ID, &row)
		t.touch(academics.KindClass, row.ID)
	}
}

func (t *tx) removeCourse(id string) {
	if _, ok := t.course.get(id); ok || containsID(t.course.ids, id) {
		t.writable(academics.KindCourse)
		t.course.del(id)
		t.touch(academics.KindCourse, id)
	}

	for _, student := range t.student.list() {
		if !containsID(student.CourseIDs, id) {
			continue
		}
		t.writable(academics.KindStudent)
		row := student.Clone()
		row.CourseIDs = academics.Without(row.CourseIDs, id)
		t.student.put(row.ID, &row)
		t.touch(academics.KindStudent, row.ID)
	}
	for _, lecturer := range t.lecturer.list() {
		if !containsID(lecturer.CourseIDs, id) {
			continue
		}
		t.writable(academics.KindLecturer)
		row := lecturer.Clone()
		row.CourseIDs = academics.Without(row.CourseIDs, id)
		t.lecturer.put(row.ID, &row)
		t.touch(academics.KindLecturer, row.ID)
	}
}

func (t *tx) removeLecturer(id string) {
	if _, ok := t.lecturer.get(id); ok || containsID(t.lecturer.ids, id) {
		t.writable(academics.KindLecturer)
		t.lecturer.del(id)
		t.touch(academics.KindLecturer, id)
	}

	for _, course := range t.course.list() {
		if course.LecturerID != id {
			continue
		}
		t.writable(academics.KindCourse)
		row := course.Clone()
		row.LecturerID = ""
		t.course.put(row.ID, &row)
		t.touch(academics.KindCourse, row.ID)
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
