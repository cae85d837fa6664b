package inmemcache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/rollcall/core/academics"
)

func batch(t *testing.T, c *Cache, fn func(tx academics.CacheTx)) {
	t.Helper()
	require.NoError(t, c.Batch(func(tx academics.CacheTx) error {
		fn(tx)
		return nil
	}))
}

func TestCache_UpsertMerges(t *testing.T) {
	c := New()

	batch(t, c, func(tx academics.CacheTx) {
		tx.UpsertCourse("MTH201", academics.CoursePatch{Code: academics.Ptr("MTH 201"), Title: academics.Ptr("Linear Algebra"), ClassIDs: []string{"c1"}})
	})
	batch(t, c, func(tx academics.CacheTx) {
		tx.UpsertCourse("MTH201", academics.CoursePatch{Title: academics.Ptr("Linear Algebra II"), AttendanceRate: academics.Ptr(0.8)})
	})

	course, ok := c.Course("MTH201")
	require.True(t, ok)
	assert.Equal(t, "MTH201", course.ID)
	assert.Equal(t, "MTH 201", course.Code)
	assert.Equal(t, "Linear Algebra II", course.Title)
	assert.Equal(t, []string{"c1"}, course.ClassIDs)
	if assert.NotNil(t, course.AttendanceRate) {
		assert.Equal(t, 0.8, *course.AttendanceRate)
	}

	// empty list is a value, not "unspecified"
	batch(t, c, func(tx academics.CacheTx) { tx.UpsertCourse("MTH201", academics.CoursePatch{ClassIDs: []string{}}) })
	course, _ = c.Course("MTH201")
	assert.Equal(t, []string{}, course.ClassIDs)
	assert.Equal(t, "MTH 201", course.Code)
}

func TestCache_UpsertRegistersIDOnce(t *testing.T) {
	c := New()
	batch(t, c, func(tx academics.CacheTx) {
		tx.UpsertStudent("s1", academics.StudentPatch{FirstName: academics.Ptr("Ada")})
		tx.UpsertStudent("s2", academics.StudentPatch{FirstName: academics.Ptr("Bola")})
		tx.UpsertStudent("s1", academics.StudentPatch{LastName: academics.Ptr("Okafor")})
	})

	students := c.Students()
	require.Len(t, students, 2)
	assert.Equal(t, "s1", students[0].ID)
	assert.Equal(t, "Okafor", students[0].LastName)
	assert.Equal(t, "Ada", students[0].FirstName)
	assert.Equal(t, "s2", students[1].ID)
}

func TestCache_ReadsAreCopies(t *testing.T) {
	c := New()
	batch(t, c, func(tx academics.CacheTx) { tx.UpsertClass("c1", academics.ClassPatch{PresentIDs: []string{"s1"}}) })

	cls, _ := c.Class("c1")
	cls.PresentIDs[0] = "tampered"

	cls, _ = c.Class("c1")
	assert.Equal(t, []string{"s1"}, cls.PresentIDs)
}

func TestCache_RemoveIsIdempotent(t *testing.T) {
	c := New()
	batch(t, c, func(tx academics.CacheTx) { tx.UpsertLecturer("l1", academics.LecturerPatch{Role: academics.Ptr("lecturer")}) })

	version := c.Version(academics.KindLecturer)
	assert.NotPanics(t, func() {
		batch(t, c, func(tx academics.CacheTx) {
			tx.Remove(academics.KindLecturer, "l1")
			tx.Remove(academics.KindLecturer, "l1")
			tx.Remove(academics.KindCourse, "unknown")
		})
	})
	_, ok := c.Lecturer("l1")
	assert.False(t, ok)
	assert.Empty(t, c.Lecturers())
	assert.Equal(t, version+1, c.Version(academics.KindLecturer))
}

func TestCache_RemoveClassScrubsCourses(t *testing.T) {
	tests := []struct {
		name     string
		classIDs []string
		cached   bool
		want     []string
	}{
		{name: "owned", classIDs: []string{"c1", "c2"}, cached: true, want: []string{"c2"}},
		{name: "duplicates", classIDs: []string{"c1", "c2", "c1"}, cached: true, want: []string{"c2"}},
		{name: "stale", classIDs: []string{"c2", "c1"}, cached: false, want: []string{"c2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			batch(t, c, func(tx academics.CacheTx) {
				tx.UpsertCourse("MTH201", academics.CoursePatch{ClassIDs: tt.classIDs})
				tx.UpsertCourse("PHY101", academics.CoursePatch{ClassIDs: []string{"c1"}})
				tx.UpsertClass("c2", academics.ClassPatch{CourseID: academics.Ptr("MTH201")})
				if tt.cached {
					tx.UpsertClass("c1", academics.ClassPatch{CourseID: academics.Ptr("MTH201")})
				}
			})

			batch(t, c, func(tx academics.CacheTx) { tx.Remove(academics.KindClass, "c1") })

			course, _ := c.Course("MTH201")
			assert.Equal(t, tt.want, course.ClassIDs)
			other, _ := c.Course("PHY101")
			assert.Equal(t, []string{}, other.ClassIDs)
			_, ok := c.Class("c1")
			assert.False(t, ok)
			for _, cls := range c.Classes() {
				assert.NotEqual(t, "c1", cls.ID)
			}
		})
	}
}

func TestCache_RemoveScrubsRelationships(t *testing.T) {
	c := New()
	batch(t, c, func(tx academics.CacheTx) {
		tx.UpsertCourse("MTH201", academics.CoursePatch{LecturerID: academics.Ptr("l1"), StudentIDs: []string{"s1", "s2"}})
		tx.UpsertClass("c1", academics.ClassPatch{CourseID: academics.Ptr("MTH201"), PresentIDs: []string{"s1", "s2"}})
		tx.UpsertStudent("s1", academics.StudentPatch{CourseIDs: []string{"MTH201"}})
		tx.UpsertLecturer("l1", academics.LecturerPatch{CourseIDs: []string{"MTH201", "PHY101"}})
	})

	t.Run("student", func(t *testing.T) {
		batch(t, c, func(tx academics.CacheTx) { tx.Remove(academics.KindStudent, "s1") })
		course, _ := c.Course("MTH201")
		assert.Equal(t, []string{"s2"}, course.StudentIDs)
		cls, _ := c.Class("c1")
		assert.Equal(t, []string{"s2"}, cls.PresentIDs)
	})

	t.Run("lecturer", func(t *testing.T) {
		batch(t, c, func(tx academics.CacheTx) { tx.Remove(academics.KindLecturer, "l1") })
		course, _ := c.Course("MTH201")
		assert.Equal(t, "", course.LecturerID)
	})

	t.Run("course", func(t *testing.T) {
		batch(t, c, func(tx academics.CacheTx) {
			tx.UpsertStudent("s2", academics.StudentPatch{CourseIDs: []string{"MTH201", "PHY101"}})
			tx.UpsertLecturer("l2", academics.LecturerPatch{CourseIDs: []string{"MTH201"}})
		})
		batch(t, c, func(tx academics.CacheTx) { tx.Remove(academics.KindCourse, "MTH201") })

		student, _ := c.Student("s2")
		assert.Equal(t, []string{"PHY101"}, student.CourseIDs)
		lecturer, _ := c.Lecturer("l2")
		assert.Equal(t, []string{}, lecturer.CourseIDs)
		_, ok := c.Class("c1")
		assert.True(t, ok, "classes keep a weak reference to their course")
	})
}

func TestCache_ClassesByDateDesc(t *testing.T) {
	c := New()
	day := func(d int) *time.Time { return academics.Ptr(time.Date(2024, time.March, d, 10, 0, 0, 0, time.UTC)) }
	batch(t, c, func(tx academics.CacheTx) {
		tx.UpsertClass("c1", academics.ClassPatch{Date: day(1)})
		tx.UpsertClass("c3", academics.ClassPatch{Date: day(15)})
		tx.UpsertClass("c2", academics.ClassPatch{Date: day(8)})
		tx.UpsertClass("c4", academics.ClassPatch{Date: day(8)})
	})

	classes := c.Classes()
	ids := make([]string, 0, len(classes))
	for _, cls := range classes {
		ids = append(ids, cls.ID)
	}
	assert.Equal(t, []string{"c3", "c2", "c4", "c1"}, ids)
	for i := 1; i < len(classes); i++ {
		assert.False(t, classes[i].Date.After(classes[i-1].Date))
	}
}

func TestCache_Reset(t *testing.T) {
	c := New()
	batch(t, c, func(tx academics.CacheTx) {
		tx.UpsertCourse("old", academics.CoursePatch{Code: academics.Ptr("OLD 100")})
		tx.UpsertStudent("s1", academics.StudentPatch{CourseIDs: []string{"old"}})
	})
	batch(t, c, func(tx academics.CacheTx) {
		tx.Reset(academics.KindCourse)
		tx.UpsertCourse("new", academics.CoursePatch{Code: academics.Ptr("NEW 100")})
	})

	courses := c.Courses()
	require.Len(t, courses, 1)
	assert.Equal(t, "new", courses[0].ID)
	_, ok := c.Course("old")
	assert.False(t, ok)
	student, _ := c.Student("s1")
	assert.Equal(t, []string{"old"}, student.CourseIDs, "a resync does not scrub")
}

func TestCache_BatchIsAtomic(t *testing.T) {
	c := New()
	batch(t, c, func(tx academics.CacheTx) { tx.UpsertCourse("MTH201", academics.CoursePatch{Title: academics.Ptr("Linear Algebra")}) })
	version := c.Version(academics.KindCourse)

	var notified int
	unsubscribe := c.Subscribe(func(academics.Change) { notified++ })
	defer unsubscribe()

	errBoom := errors.New("boom")
	err := c.Batch(func(tx academics.CacheTx) error {
		tx.UpsertCourse("MTH201", academics.CoursePatch{Title: academics.Ptr("Calculus")})
		tx.UpsertClass("c1", academics.ClassPatch{CourseID: academics.Ptr("MTH201")})

		// own writes are visible inside the batch
		course, _ := tx.Course("MTH201")
		assert.Equal(t, "Calculus", course.Title)
		return errBoom
	})
	assert.Equal(t, errBoom, err)

	course, _ := c.Course("MTH201")
	assert.Equal(t, "Linear Algebra", course.Title)
	assert.Empty(t, c.Classes())
	assert.Equal(t, version, c.Version(academics.KindCourse))
	assert.Zero(t, notified)
}

func TestCache_Subscribe(t *testing.T) {
	c := New()

	var changes []academics.Change
	unsubscribe := c.Subscribe(func(change academics.Change) { changes = append(changes, change) })

	batch(t, c, func(tx academics.CacheTx) {
		tx.UpsertClass("c1", academics.ClassPatch{CourseID: academics.Ptr("MTH201")})
		tx.UpsertCourse("MTH201", academics.CoursePatch{ClassIDs: []string{"c1"}})
		tx.UpsertClass("c1", academics.ClassPatch{PresentIDs: []string{}})
	})
	batch(t, c, func(academics.CacheTx) {})

	require.Len(t, changes, 1, "one notification per applied batch, none for empty batches")
	assert.Equal(t, []string{"c1"}, changes[0].IDs[academics.KindClass])
	assert.True(t, changes[0].Touches(academics.KindCourse))
	assert.False(t, changes[0].Touches(academics.KindStudent))
	assert.Equal(t, uint64(1), c.Version(academics.KindClass))
	assert.Equal(t, uint64(0), c.Version(academics.KindStudent))

	unsubscribe()
	c.Clear()
	assert.Len(t, changes, 1)
	assert.Empty(t, c.Courses())
	assert.Equal(t, uint64(1), c.Version(academics.KindStudent))
}
