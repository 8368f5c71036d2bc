package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/seatwise/course-enrollment/internal/store"
	"github.com/seatwise/course-enrollment/internal/store/memory"
)

const sampleCatalog = `
courses:
  - code: CS101
    title: Introduction to Programming
    credits: 4
    sections:
      - semester: 2026F
        capacity: 120
        schedule: Mon/Wed 10:00-11:30
        room: H-201
      - semester: 2026F
        capacity: 40
        schedule: Fri 09:00-12:00
        room: H-105
  - code: MATH200
    title: Linear Algebra
    credits: 3
    sections:
      - semester: 2026F
        capacity: 60
        schedule: TBA
        room: M-010
`

func TestSeedRunLoadsCatalog(t *testing.T) {
	var catalog seedCatalog
	require.NoError(t, yaml.Unmarshal([]byte(sampleCatalog), &catalog))
	require.Len(t, catalog.Courses, 2)

	ctx := context.Background()
	st := memory.New()
	require.NoError(t, seedRun(ctx, st, catalog))

	sec, err := st.SectionByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(120), sec.Capacity)
	assert.Equal(t, "Mon/Wed 10:00-11:30", sec.Schedule)

	course, err := st.CourseByID(ctx, sec.CourseID)
	require.NoError(t, err)
	assert.Equal(t, "CS101", course.Code)

	// Re-seeding the same file skips existing courses instead of
	// erroring or duplicating sections.
	require.NoError(t, seedRun(ctx, st, catalog))
	_, err = st.SectionByID(ctx, 4)
	require.ErrorIs(t, err, store.ErrSectionNotFound)
}

func TestSeedRunRejectsZeroCapacity(t *testing.T) {
	catalog := seedCatalog{Courses: []seedCourse{{
		Code:     "CS999",
		Title:    "Broken Fixture",
		Sections: []seedSection{{Semester: "2026F", Capacity: 0, Schedule: "TBA"}},
	}}}
	err := seedRun(context.Background(), memory.New(), catalog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capacity")
}
