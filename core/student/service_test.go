package student_test

import (
	"context"
	"io"
	"log"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bestqrov/lahwla/core"
	"github.com/bestqrov/lahwla/core/student"
	emailsvc "github.com/bestqrov/lahwla/services/email"
	logsvc "github.com/bestqrov/lahwla/services/logger"
	dummydb "github.com/bestqrov/lahwla/storage/database/dummy"
)

var testConf = &core.Config{
	TestMode:           true,
	AppName:            "Lahwla",
	SchoolName:         "Galaxy School",
	SecretKey:          []byte("secret"),
	JWTExpirationDelta: 10 * time.Minute,
	DefaultFromEmail:   mail.Address{Name: "Lahwla", Address: "noreply@localhost"},
}

func setup(t *testing.T) (*student.Service, *dummydb.StudentRepository) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	repo := dummydb.NewStudentRepository(db)
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	svc := student.NewService(repo, emailsvc.NewConsoleServiceMock(testConf), logger, testConf)
	return svc, repo
}

func enrollStudent(t *testing.T, svc *student.Service, enr student.Enrollment) student.Student {
	t.Helper()
	st, err := svc.Enroll(context.Background(), enr)
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return st
}

func Test_Enroll_createsAllRowsAtomically(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	st := enrollStudent(t, svc, student.Enrollment{
		Name:        "Karim",
		Surname:     "Idrissi",
		CIN:         "ab1",
		SchoolLevel: "CP",
		Fee:         &student.FeeSpec{Type: student.TypeSoutien, Category: "CP", Amount: 500},
		AmountPaid:  200,
	})

	require.NotEmpty(t, st.ID)
	assert.True(t, st.IsActive)
	assert.Equal(t, "karim.idrissi@galaxyschool.com", st.Email)

	// reading back immediately must show the full triple, never a subset
	got, err := svc.GetByID(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)

	inscriptions := repo.QueryInscriptionsByStudent(st.ID)
	require.Len(t, inscriptions, 1)
	assert.Equal(t, student.TypeSoutien, inscriptions[0].Type)
	assert.Equal(t, "CP", inscriptions[0].Category)
	assert.Equal(t, 500.0, inscriptions[0].Amount)

	payments := repo.QueryPaymentsByStudent(st.ID)
	require.Len(t, payments, 1)
	assert.Equal(t, 200.0, payments[0].Amount)
	assert.Equal(t, student.MethodCash, payments[0].Method)

	analytics, err := svc.Analytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 500.0, analytics.InscriptionRevenue)
}

func Test_Enroll_withoutFeeOrPayment(t *testing.T) {
	svc, repo := setup(t)

	st := enrollStudent(t, svc, student.Enrollment{Name: "Sara", Surname: "Mansouri"})

	assert.Empty(t, repo.QueryInscriptionsByStudent(st.ID))
	assert.Empty(t, repo.QueryPaymentsByStudent(st.ID))
}

func Test_Enroll_reportsDuplicateCIN(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	first := enrollStudent(t, svc, student.Enrollment{Name: "Karim", Surname: "Idrissi", CIN: "ab1"})

	_, err := svc.Enroll(ctx, student.Enrollment{
		Name:    "Karim",
		Surname: "Idrissi",
		CIN:     "ab1",
		Email:   "other@example.com",
		Fee:     &student.FeeSpec{Type: student.TypeSoutien, Amount: 500},
	})
	var dup *student.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.ID, dup.Student.ID)
	assert.Equal(t, student.MatchedOnCIN, dup.MatchedOn)

	// nothing was written
	count, err := repo.CountStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Empty(t, repo.QueryInscriptionsByStudent(first.ID))
}

func Test_Enroll_reportsDuplicateNameAndPhone(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	enrollStudent(t, svc, student.Enrollment{Name: "Karim", Surname: "Idrissi", Phone: "0600000001"})

	_, err := svc.Enroll(ctx, student.Enrollment{Name: "Karim", Surname: "Idrissi", Phone: "0600000001", Email: "k2@example.com"})
	var dup *student.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, student.MatchedOnName, dup.MatchedOn)
}

func Test_Enroll_singleWordNameMatchesPlaceholder(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	// single-word names are stored with a placeholder surname
	enrollStudent(t, svc, student.Enrollment{Name: "Madonna", Surname: "-", Phone: "0600000002", Email: "m@example.com"})

	_, err := svc.Enroll(ctx, student.Enrollment{Name: "Madonna", Surname: "-", Phone: "0600000002", Email: "m2@example.com"})
	var dup *student.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, student.MatchedOnName, dup.MatchedOn)
}

func Test_Enroll_resumeAttachesToExistingStudent(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	first := enrollStudent(t, svc, student.Enrollment{Name: "Karim", Surname: "Idrissi", CIN: "ab1"})

	st, err := svc.Enroll(ctx, student.Enrollment{
		ResumeStudentID: first.ID,
		Fee:             &student.FeeSpec{Type: student.TypeFormation, Category: "Robotics", Amount: 300},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, st.ID)

	count, err := repo.CountStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	inscriptions := repo.QueryInscriptionsByStudent(first.ID)
	require.Len(t, inscriptions, 1)
	assert.Equal(t, student.TypeFormation, inscriptions[0].Type)
	assert.Equal(t, 300.0, inscriptions[0].Amount)
}

func Test_Enroll_resumeUnknownStudent(t *testing.T) {
	svc, _ := setup(t)

	_, err := svc.Enroll(context.Background(), student.Enrollment{ResumeStudentID: "nope"})
	assert.ErrorIs(t, err, student.ErrNotFound)
}

func Test_Enroll_validationFailsBeforeAnyWrite(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	tests := []struct {
		name string
		enr  student.Enrollment
	}{
		{name: "missing name", enr: student.Enrollment{Surname: "Idrissi"}},
		{name: "bad email", enr: student.Enrollment{Name: "Karim", Surname: "Idrissi", Email: "not-an-email"}},
		{name: "negative payment", enr: student.Enrollment{Name: "Karim", Surname: "Idrissi", AmountPaid: -10}},
		{name: "negative fee", enr: student.Enrollment{Name: "Karim", Surname: "Idrissi", Fee: &student.FeeSpec{Type: student.TypeSoutien, Amount: -5}}},
		{name: "unknown fee type", enr: student.Enrollment{Name: "Karim", Surname: "Idrissi", Fee: &student.FeeSpec{Type: "OTHER", Amount: 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Enroll(ctx, tt.enr)
			require.Error(t, err)

			count, err := repo.CountStudents(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, count)
		})
	}
}

// Two concurrent enrollments of the same new person can both pass the
// resolver scan; the store's unique constraints must let exactly one through.
func Test_Enroll_concurrentSameCIN(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	enr := student.Enrollment{Name: "Karim", Surname: "Idrissi", CIN: "ab1", Password: "s3cret"}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Enroll(ctx, enr)
		}(i)
	}
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err != nil {
			failures++
			isDup := false
			var dup *student.DuplicateError
			if assert.Error(t, err) {
				switch {
				case err == student.ErrCINExists, err == student.ErrEmailExists:
					isDup = true
				default:
					isDup = assert.ErrorAs(t, err, &dup)
				}
			}
			assert.True(t, isDup, "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, failures, "exactly one of the two racing enrollments must fail")

	count, err := repo.CountStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func Test_LoginInfo(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	st := enrollStudent(t, svc, student.Enrollment{Name: "Karim", Surname: "Idrissi"})

	info, err := svc.LoginInfo(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, student.LoginInfo{ID: st.ID, Name: "Karim Idrissi", Email: "karim.idrissi@galaxyschool.com"}, info)

	_, err = svc.LoginInfo(ctx, "nope")
	assert.ErrorIs(t, err, student.ErrNotFound)
}

func Test_SetPassword(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	st := enrollStudent(t, svc, student.Enrollment{Name: "Karim", Surname: "Idrissi", Password: "old-pass"})

	require.NoError(t, svc.SetPassword(ctx, st.ID, "new-pass"))

	got, err := svc.GetByID(ctx, st.ID)
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("new-pass"))
	assert.Error(t, got.CheckPassword("old-pass"))

	assert.Error(t, svc.SetPassword(ctx, st.ID, ""))
	assert.ErrorIs(t, svc.SetPassword(ctx, "nope", "x"), student.ErrNotFound)
}

func Test_Authenticate(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	st := enrollStudent(t, svc, student.Enrollment{Name: "Karim", Surname: "Idrissi", Password: "s3cret"})

	got, err := svc.Authenticate(ctx, st.Email, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)

	_, err = svc.Authenticate(ctx, st.Email, "wrong")
	assert.ErrorIs(t, err, student.ErrNotFound)
}
