package inmemcache

import (
	"sort"
	"sync"

	"github.com/trezcool/rollcall/core/academics"
)

type (
	state struct {
		course   *table[academics.Course]
		class    *table[academics.Class]
		student  *table[academics.Student]
		lecturer *table[academics.Lecturer]
	}

	subscriber struct {
		id int
		fn func(academics.Change)
	}

	// Cache is the shared in-memory entity store. Every batch runs on a
	// copy-on-write snapshot which replaces the committed state on success.
	Cache struct {
		sync.RWMutex
		state    state
		versions map[academics.Kind]uint64

		subsMu  sync.Mutex
		subs    []subscriber
		nextSub int
	}
)

var _ academics.Cache = (*Cache)(nil) // interface compliance check

func New() *Cache {
	return &Cache{
		state:    newState(),
		versions: make(map[academics.Kind]uint64, len(academics.Kinds)),
	}
}

func newState() state {
	return state{
		course:   newTable[academics.Course](),
		class:    newTable[academics.Class](),
		student:  newTable[academics.Student](),
		lecturer: newTable[academics.Lecturer](),
	}
}

func (c *Cache) Batch(fn func(tx academics.CacheTx) error) error {
	change, err := c.commit(fn)
	if err != nil {
		return err
	}
	if len(change.IDs) > 0 || len(change.Reset) > 0 {
		c.notify(change)
	}
	return nil
}

func (c *Cache) commit(fn func(tx academics.CacheTx) error) (academics.Change, error) {
	c.Lock()
	defer c.Unlock()

	t := newTx(c.state)
	if err := fn(t); err != nil {
		return academics.Change{}, err
	}
	c.state = t.state
	change := t.result()
	for _, kind := range academics.Kinds {
		if change.Touches(kind) {
			c.versions[kind]++
		}
	}
	return change, nil
}

func (c *Cache) Version(kind academics.Kind) uint64 {
	c.RLock()
	defer c.RUnlock()
	return c.versions[kind]
}

func (c *Cache) Subscribe(fn func(academics.Change)) func() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	c.nextSub++
	id := c.nextSub
	c.subs = append(c.subs, subscriber{id: id, fn: fn})

	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		for i, sub := range c.subs {
			if sub.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

func (c *Cache) notify(change academics.Change) {
	c.subsMu.Lock()
	subs := append([]subscriber(nil), c.subs...)
	c.subsMu.Unlock()

	for _, sub := range subs {
		sub.fn(change)
	}
}

func (c *Cache) Clear() {
	c.Lock()
	c.state = newState()
	for _, kind := range academics.Kinds {
		c.versions[kind]++
	}
	c.Unlock()

	c.notify(academics.Change{Reset: append([]academics.Kind(nil), academics.Kinds...)})
}

func (c *Cache) Course(id string) (academics.Course, bool) {
	c.RLock()
	defer c.RUnlock()
	return c.state.getCourse(id)
}

func (c *Cache) Class(id string) (academics.Class, bool) {
	c.RLock()
	defer c.RUnlock()
	return c.state.getClass(id)
}

func (c *Cache) Student(id string) (academics.Student, bool) {
	c.RLock()
	defer c.RUnlock()
	return c.state.getStudent(id)
}

func (c *Cache) Lecturer(id string) (academics.Lecturer, bool) {
	c.RLock()
	defer c.RUnlock()
	return c.state.getLecturer(id)
}

func (c *Cache) Courses() []academics.Course {
	c.RLock()
	defer c.RUnlock()
	return c.state.courses()
}

func (c *Cache) Classes() []academics.Class {
	c.RLock()
	defer c.RUnlock()
	return c.state.classes()
}

func (c *Cache) Students() []academics.Student {
	c.RLock()
	defer c.RUnlock()
	return c.state.students()
}

func (c *Cache) Lecturers() []academics.Lecturer {
	c.RLock()
	defer c.RUnlock()
	return c.state.lecturers()
}

// reads, copied out of the rows

func (s state) getCourse(id string) (academics.Course, bool) {
	if row, ok := s.course.get(id); ok {
		return row.Clone(), true
	}
	return academics.Course{}, false
}

func (s state) getClass(id string) (academics.Class, bool) {
	if row, ok := s.class.get(id); ok {
		return row.Clone(), true
	}
	return academics.Class{}, false
}

func (s state) getStudent(id string) (academics.Student, bool) {
	if row, ok := s.student.get(id); ok {
		return row.Clone(), true
	}
	return academics.Student{}, false
}

func (s state) getLecturer(id string) (academics.Lecturer, bool) {
	if row, ok := s.lecturer.get(id); ok {
		return row.Clone(), true
	}
	return academics.Lecturer{}, false
}

func (s state) courses() []academics.Course {
	rows := s.course.list()
	courses := make([]academics.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.Clone())
	}
	return courses
}

// classes are sorted by date, most recent first; equal dates keep id-list order.
func (s state) classes() []academics.Class {
	rows := s.class.list()
	classes := make([]academics.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.Clone())
	}
	sort.SliceStable(classes, func(i, j int) bool { return classes[i].Date.After(classes[j].Date) })
	return classes
}

func (s state) students() []academics.Student {
	rows := s.student.list()
	students := make([]academics.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.Clone())
	}
	return students
}

func (s state) lecturers() []academics.Lecturer {
	rows := s.lecturer.list()
	lecturers := make([]academics.Lecturer, 0, len(rows))
	for _, row := range rows {
		lecturers = append(lecturers, row.Clone())
	}
	return lecturers
}
