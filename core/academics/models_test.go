package academics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassPatch_UnmarshalJSON(t *testing.T) {
	want := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		data    string
		date    *time.Time
		present []string
		wantErr bool
	}{
		{name: "remote layout", data: `{"id":"c1","date":"2024-03-01 10:00:00"}`, date: &want},
		{name: "rfc3339", data: `{"id":"c1","date":"2024-03-01T11:00:00+01:00","presentIds":["s1"]}`, date: &want, present: []string{"s1"}},
		{name: "no date", data: `{"id":"c1","courseId":"MTH201"}`},
		{name: "bad date", data: `{"id":"c1","date":"yesterday"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p ClassPatch
			err := json.Unmarshal([]byte(tt.data), &p)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "c1", p.ID)
			assert.Equal(t, tt.present, p.PresentIDs)
			if tt.date == nil {
				assert.Nil(t, p.Date)
			} else if assert.NotNil(t, p.Date) {
				assert.True(t, tt.date.Equal(*p.Date))
			}
		})
	}
}

func TestCoursePatch_nullIsUnspecified(t *testing.T) {
	var p CoursePatch
	require.NoError(t, json.Unmarshal([]byte(`{"id":"MTH201","lecturerId":null,"classIds":["c1","c2"],"studentIds":[]}`), &p))

	course := Course{ID: "MTH201", LecturerID: "l1", StudentIDs: []string{"s1"}}
	course.Apply(p)
	assert.Equal(t, "l1", course.LecturerID)
	assert.Equal(t, []string{"c1", "c2"}, course.ClassIDs)
	assert.Equal(t, []string{}, course.StudentIDs)
}

func TestClass_ApplyDedupesPresentIDs(t *testing.T) {
	cls := Class{ID: "c1"}
	cls.Apply(ClassPatch{PresentIDs: []string{"s1", "s2", "s1"}})
	assert.Equal(t, []string{"s1", "s2"}, cls.PresentIDs)
}

func TestStudent_CloneIsDeep(t *testing.T) {
	s := Student{
		ID:         "s1",
		CourseIDs:  []string{"MTH201"},
		Attendance: []CourseAttendance{{CourseID: "MTH201", Classes: []ClassAttendance{{ClassID: "c1"}}}},
	}
	c := s.Clone()
	c.CourseIDs[0] = "x"
	c.Attendance[0].Classes[0].Present = true

	assert.Equal(t, "MTH201", s.CourseIDs[0])
	assert.False(t, s.Attendance[0].Classes[0].Present)
}

func TestFormatRemoteDate(t *testing.T) {
	lagos := time.FixedZone("WAT", 3600)
	assert.Equal(t, "2024-03-01 10:00:00", FormatRemoteDate(time.Date(2024, time.March, 1, 11, 0, 0, 0, lagos)))
}
