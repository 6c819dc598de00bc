package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/listing"
)

// cascadingStudents drops a student's enrollments with the student, like the
// ON DELETE CASCADE foreign key does.
type cascadingStudents struct {
	fakeStudents
	enrollments *memStore[models.Enrollment]
}

func (s cascadingStudents) Delete(ctx context.Context, id int64) error {
	if err := s.fakeStudents.Delete(ctx, id); err != nil {
		return err
	}
	s.enrollments.mu.Lock()
	defer s.enrollments.mu.Unlock()
	for eid, e := range s.enrollments.items {
		if e.StudentID == id {
			delete(s.enrollments.items, eid)
		}
	}
	return nil
}

// cascadingGroups drops a group's attendance with the group.
type cascadingGroups struct {
	*memStore[models.StudentGroup]
	attendance *memStore[models.AttendanceRecord]
}

func (g cascadingGroups) Delete(ctx context.Context, id int64) error {
	if err := g.memStore.Delete(ctx, id); err != nil {
		return err
	}
	g.attendance.mu.Lock()
	defer g.attendance.mu.Unlock()
	for aid, a := range g.attendance.items {
		if a.GroupID == id {
			delete(g.attendance.items, aid)
		}
	}
	return nil
}

type schoolFixture struct {
	svc         *SchoolServices
	students    cascadingStudents
	groups      cascadingGroups
	enrollments *memStore[models.Enrollment]
	attendance  *memStore[models.AttendanceRecord]
}

func newSchoolFixture(t *testing.T) schoolFixture {
	t.Helper()
	ctx := context.Background()

	enrollments := newMemStore(func(e *models.Enrollment) int64 { return e.ID }, func(e *models.Enrollment, id int64) { e.ID = id })
	attendance := newMemStore(func(a *models.AttendanceRecord) int64 { return a.ID }, func(a *models.AttendanceRecord, id int64) { a.ID = id })
	students := cascadingStudents{
		fakeStudents: fakeStudents{memStore: newMemStore(func(s *models.Student) int64 { return s.ID }, func(s *models.Student, id int64) { s.ID = id })},
		enrollments:  enrollments,
	}
	groups := cascadingGroups{
		memStore:   newMemStore(func(g *models.StudentGroup) int64 { return g.ID }, func(g *models.StudentGroup, id int64) { g.ID = id }),
		attendance: attendance,
	}

	for _, st := range []models.Student{
		{StudentNumber: "S-001", FirstName: "Yusuf"},
		{StudentNumber: "S-002", FirstName: "Maryam"},
	} {
		st := st
		_, err := students.Create(ctx, &st)
		require.NoError(t, err)
	}
	for _, g := range []models.StudentGroup{
		{Name: "Groep 3A", AcademicYearID: 1, Capacity: 20, EnrolledCount: 2},
		{Name: "Groep 4B", AcademicYearID: 1, Capacity: 20},
	} {
		g := g
		_, err := groups.Create(ctx, &g)
		require.NoError(t, err)
	}
	for _, e := range []models.Enrollment{
		{StudentID: 1, GroupID: 1, Status: "active"},
		{StudentID: 2, GroupID: 1, Status: "active"},
	} {
		e := e
		_, err := enrollments.Create(ctx, &e)
		require.NoError(t, err)
	}
	for _, a := range []models.AttendanceRecord{
		{StudentID: 1, GroupID: 1, Date: models.NewDate(2025, 10, 4)},
		{StudentID: 1, GroupID: 2, Date: models.NewDate(2025, 10, 5)},
	} {
		a := a
		_, err := attendance.Create(ctx, &a)
		require.NoError(t, err)
	}

	svc := NewSchoolServices(SchoolStores{
		Students:      students,
		StudentGroups: groups,
		Enrollments:   enrollments,
		Attendance:    attendance,
	}, newTestCache(), zerolog.Nop())

	return schoolFixture{svc: svc, students: students, groups: groups, enrollments: enrollments, attendance: attendance}
}

func TestSchoolServices_StudentDeleteRefreshesEnrollments(t *testing.T) {
	f := newSchoolFixture(t)
	ctx := context.Background()
	q := listing.NewQuery()

	page, err := f.svc.Enrollments.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	require.NoError(t, f.svc.Students.Delete(ctx, 1))

	page, err = f.svc.Enrollments.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, page.Items, 1, "the cascaded enrollment is not served from cache")
	assert.Equal(t, int64(2), page.Items[0].StudentID)
	assert.Equal(t, int64(1), page.Pagination.TotalItems)
	assert.Equal(t, 2, f.enrollments.lists)
}

func TestSchoolServices_GroupDeleteRefreshesAttendance(t *testing.T) {
	f := newSchoolFixture(t)
	ctx := context.Background()
	q := listing.NewQuery()

	page, err := f.svc.Attendance.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	require.NoError(t, f.svc.StudentGroups.Delete(ctx, 2))

	page, err = f.svc.Attendance.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.Items[0].GroupID)
}

func TestSchoolServices_GroupCapacityBelowEnrollments(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		wantErr  bool
	}{
		{"below active enrollments", 1, true},
		{"equal to active enrollments", 2, false},
		{"raised", 30, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSchoolFixture(t)
			ctx := context.Background()

			group, err := f.svc.StudentGroups.Get(ctx, 1)
			require.NoError(t, err)
			changed := *group
			changed.Capacity = tt.capacity

			updated, err := f.svc.StudentGroups.Update(ctx, 1, &changed)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.capacity, updated.Capacity)
				return
			}
			require.ErrorIs(t, err, apperrors.ErrValidationFailed)
			var custom *apperrors.CustomError
			require.ErrorAs(t, err, &custom)
			assert.Contains(t, custom.Details, "capacity")
			assert.Zero(t, f.groups.updates, "nothing is written")

			stored, err := f.groups.GetByID(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, 20, stored.Capacity)
		})
	}
}

func TestValidateStudentGroup_CapacityOnlyCheckedOnUpdate(t *testing.T) {
	g := &models.StudentGroup{Name: "Groep 5", Capacity: 0}
	assert.NoError(t, validateStudentGroup(context.Background(), g, nil))

	err := validateStudentGroup(context.Background(), &models.StudentGroup{Capacity: 3}, &models.StudentGroup{EnrolledCount: 4})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}
