package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/bestqrov/lahwla/core/student"
)

type StudentRepository struct {
	db *studentTables
}

var _ student.Repository = (*StudentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *StudentRepository {
	return &StudentRepository{db: db.student}
}

func (repo *StudentRepository) query() []student.Student {
	students := make([]student.Student, 0, len(repo.db.students))
	for _, st := range repo.db.students {
		students = append(students, *st)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].CreatedAt.After(students[j].CreatedAt) })
	return students
}

// checkUniqueness mirrors the unique constraints of the real store.
func (repo *StudentRepository) checkUniqueness(st student.Student) error {
	for _, existing := range repo.db.students {
		if existing.ID == st.ID {
			continue
		}
		if st.Email != "" && existing.Email == st.Email {
			return student.ErrEmailExists
		}
		if st.CIN != "" && existing.CIN == st.CIN {
			return student.ErrCINExists
		}
	}
	return nil
}

func (repo *StudentRepository) CreateEnrollment(_ context.Context, rows student.EnrollmentRows) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// all checks happen before any mutation; under the lock this makes the
	// whole write set atomic
	var st student.Student
	if rows.Student != nil {
		st = *rows.Student
		st.ID = uuid.New().String()
		if err := repo.checkUniqueness(st); err != nil {
			return student.Student{}, err
		}
	} else {
		existing, ok := repo.db.students[rows.StudentID]
		if !ok {
			return student.Student{}, student.ErrNotFound
		}
		st = *existing
	}

	if rows.Student != nil {
		repo.db.students[st.ID] = &st
	}
	if insc := rows.Inscription; insc != nil {
		i := *insc
		i.ID = uuid.New().String()
		i.StudentID = st.ID
		repo.db.inscriptions = append(repo.db.inscriptions, i)
	}
	if pay := rows.Payment; pay != nil {
		p := *pay
		p.ID = uuid.New().String()
		p.StudentID = st.ID
		repo.db.payments = append(repo.db.payments, p)
	}
	return st, nil
}

func (repo *StudentRepository) QueryAllStudents(_ context.Context) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *StudentRepository) GetStudentByID(_ context.Context, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if st, ok := repo.db.students[id]; ok {
		return *st, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *StudentRepository) GetStudentByEmail(_ context.Context, email string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, st := range repo.db.students {
		if st.Email == email {
			return *st, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *StudentRepository) CountStudents(_ context.Context) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.db.students), nil
}

func (repo *StudentRepository) CountInscriptionsByType(_ context.Context, inscType string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, insc := range repo.db.inscriptions {
		if insc.Type == inscType {
			count++
		}
	}
	return count, nil
}

func (repo *StudentRepository) QueryInscriptionsByType(_ context.Context, inscType string) ([]student.Inscription, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	inscriptions := make([]student.Inscription, 0)
	for _, insc := range repo.db.inscriptions {
		if insc.Type == inscType {
			inscriptions = append(inscriptions, insc)
		}
	}
	sort.Slice(inscriptions, func(i, j int) bool {
		return inscriptions[i].CreatedAt.After(inscriptions[j].CreatedAt)
	})
	return inscriptions, nil
}

func (repo *StudentRepository) QueryRecentInscriptionsByType(ctx context.Context, inscType string, limit int) ([]student.Inscription, error) {
	inscriptions, err := repo.QueryInscriptionsByType(ctx, inscType)
	if err != nil {
		return nil, err
	}
	if len(inscriptions) > limit {
		inscriptions = inscriptions[:limit]
	}
	return inscriptions, nil
}

func (repo *StudentRepository) UpdateStudentPassword(_ context.Context, id string, hash []byte) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	st, ok := repo.db.students[id]
	if !ok {
		return student.ErrNotFound
	}
	st.PasswordHash = hash
	return nil
}

// QueryInscriptionsByStudent returns the inscriptions attached to one
// student; used by tests to assert on the written rows.
func (repo *StudentRepository) QueryInscriptionsByStudent(id string) []student.Inscription {
	repo.db.RLock()
	defer repo.db.RUnlock()

	inscriptions := make([]student.Inscription, 0)
	for _, insc := range repo.db.inscriptions {
		if insc.StudentID == id {
			inscriptions = append(inscriptions, insc)
		}
	}
	return inscriptions
}

// QueryPaymentsByStudent returns the payments attached to one student;
// used by tests to assert on the written rows.
func (repo *StudentRepository) QueryPaymentsByStudent(id string) []student.Payment {
	repo.db.RLock()
	defer repo.db.RUnlock()

	payments := make([]student.Payment, 0)
	for _, pay := range repo.db.payments {
		if pay.StudentID == id {
			payments = append(payments, pay)
		}
	}
	return payments
}
