package student_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bestqrov/lahwla/core/student"
)

func Test_Analytics_emptyStore(t *testing.T) {
	svc, _ := setup(t)

	got, err := svc.Analytics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, got.TotalStudents)
	assert.Equal(t, 0, got.TotalInscriptions)
	assert.Equal(t, 0.0, got.TotalRevenue)
	assert.Empty(t, got.RecentInscriptions)
	assert.NotNil(t, got.RecentInscriptions)
	assert.Empty(t, got.StudentRevenue)
}

func Test_Analytics_legacySubjectsCountZero(t *testing.T) {
	svc, _ := setup(t)

	st := enrollStudent(t, svc, student.Enrollment{
		Name:     "Karim",
		Surname:  "Idrissi",
		Subjects: student.Subjects{"math": {Amount: 200}, "physics": {Legacy: true}},
	})

	got, err := svc.Analytics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 200.0, got.RecurringRevenue)
	assert.Equal(t, 200.0, got.StudentRevenue[st.ID])
	assert.Equal(t, 200.0, got.TotalRevenue)
}

func Test_Analytics_combinesRecurringAndInscriptionRevenue(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	enrollStudent(t, svc, student.Enrollment{
		Name:     "Karim",
		Surname:  "Idrissi",
		Subjects: student.Subjects{"math": {Amount: 200}},
		Fee:      &student.FeeSpec{Type: student.TypeSoutien, Amount: 500},
	})
	enrollStudent(t, svc, student.Enrollment{
		Name:     "Sara",
		Surname:  "Mansouri",
		Subjects: student.Subjects{"svt": {Amount: 150}},
		Fee:      &student.FeeSpec{Type: student.TypeSoutien, Amount: 300},
	})
	// FORMATION inscriptions stay out of the expected-revenue aggregate
	enrollStudent(t, svc, student.Enrollment{
		Name:    "Nour",
		Surname: "Alami",
		Fee:     &student.FeeSpec{Type: student.TypeFormation, Category: "Robotics", Amount: 1000},
	})

	got, err := svc.Analytics(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, got.TotalStudents)
	assert.Equal(t, 2, got.TotalInscriptions)
	assert.Equal(t, 350.0, got.RecurringRevenue)
	assert.Equal(t, 800.0, got.InscriptionRevenue)
	assert.Equal(t, got.RecurringRevenue+got.InscriptionRevenue, got.TotalRevenue)
}

func Test_Analytics_recentInscriptions(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	var last student.Student
	for i := 1; i <= 6; i++ {
		last = enrollStudent(t, svc, student.Enrollment{
			Name:     fmt.Sprintf("Student%d", i),
			Surname:  "Test",
			Phone:    fmt.Sprintf("06%08d", i),
			Subjects: student.Subjects{"math": {Amount: 100}},
			Fee:      &student.FeeSpec{Type: student.TypeSoutien, Amount: float64(i * 10)},
		})
		time.Sleep(2 * time.Millisecond) // distinct created_at for a stable order
	}

	got, err := svc.Analytics(ctx)
	require.NoError(t, err)

	require.Len(t, got.RecentInscriptions, 5)
	newest := got.RecentInscriptions[0]
	assert.Equal(t, last.ID, newest.StudentID)
	assert.Equal(t, "Student6 Test", newest.StudentName)
	assert.Equal(t, 60.0, newest.Amount)
	assert.Equal(t, 160.0, newest.FullAmount) // inscription fee plus recurring total
	for i := 1; i < len(got.RecentInscriptions); i++ {
		assert.True(t, got.RecentInscriptions[i].CreatedAt.Before(got.RecentInscriptions[i-1].CreatedAt))
	}
}
