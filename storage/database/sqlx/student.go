package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/bestqrov/lahwla/core/student"
)

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

type studentRow struct {
	ID            string           `db:"id"`
	Name          string           `db:"name"`
	Surname       string           `db:"surname"`
	Email         null.String      `db:"email"`
	PasswordHash  null.Bytes       `db:"password_hash"`
	CIN           null.String      `db:"cin"`
	Phone         null.String      `db:"phone"`
	Address       null.String      `db:"address"`
	BirthDate     null.Time        `db:"birth_date"`
	BirthPlace    null.String      `db:"birth_place"`
	ParentName    null.String      `db:"parent_name"`
	ParentPhone   null.String      `db:"parent_phone"`
	SchoolLevel   null.String      `db:"school_level"`
	CurrentSchool null.String      `db:"current_school"`
	Subjects      student.Subjects `db:"subjects"`
	IsActive      bool             `db:"is_active"`
	CreatedAt     time.Time        `db:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at"`
}

type inscriptionRow struct {
	ID        string      `db:"id"`
	StudentID string      `db:"student_id"`
	Type      string      `db:"type"`
	Category  string      `db:"category"`
	Amount    float64     `db:"amount"`
	Date      time.Time   `db:"date"`
	Note      null.String `db:"note"`
	CreatedAt time.Time   `db:"created_at"`
}

func (repo studentRepository) pack(st student.Student) studentRow {
	return studentRow{
		ID:            st.ID,
		Name:          st.Name,
		Surname:       st.Surname,
		Email:         null.NewString(st.Email, st.Email != ""),
		PasswordHash:  null.NewBytes(st.PasswordHash, st.PasswordHash != nil),
		CIN:           null.NewString(st.CIN, st.CIN != ""),
		Phone:         null.NewString(st.Phone, st.Phone != ""),
		Address:       null.NewString(st.Address, st.Address != ""),
		BirthDate:     null.NewTime(st.BirthDate.UTC(), !st.BirthDate.IsZero()),
		BirthPlace:    null.NewString(st.BirthPlace, st.BirthPlace != ""),
		ParentName:    null.NewString(st.ParentName, st.ParentName != ""),
		ParentPhone:   null.NewString(st.ParentPhone, st.ParentPhone != ""),
		SchoolLevel:   null.NewString(st.SchoolLevel, st.SchoolLevel != ""),
		CurrentSchool: null.NewString(st.CurrentSchool, st.CurrentSchool != ""),
		Subjects:      st.Subjects,
		IsActive:      st.IsActive,
		CreatedAt:     st.CreatedAt.UTC(),
		UpdatedAt:     st.UpdatedAt.UTC(),
	}
}

func (repo studentRepository) unpack(row studentRow) student.Student {
	return student.Student{
		ID:            row.ID,
		Name:          row.Name,
		Surname:       row.Surname,
		Email:         row.Email.String,
		PasswordHash:  row.PasswordHash.Bytes,
		CIN:           row.CIN.String,
		Phone:         row.Phone.String,
		Address:       row.Address.String,
		BirthDate:     row.BirthDate.Time,
		BirthPlace:    row.BirthPlace.String,
		ParentName:    row.ParentName.String,
		ParentPhone:   row.ParentPhone.String,
		SchoolLevel:   row.SchoolLevel.String,
		CurrentSchool: row.CurrentSchool.String,
		Subjects:      row.Subjects,
		IsActive:      row.IsActive,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func (repo studentRepository) unpackInscription(row inscriptionRow) student.Inscription {
	return student.Inscription{
		ID:        row.ID,
		StudentID: row.StudentID,
		Type:      row.Type,
		Category:  row.Category,
		Amount:    row.Amount,
		Date:      row.Date,
		Note:      row.Note.String,
		CreatedAt: row.CreatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to student.ErrNotFound
func (repo studentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return student.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// trapUniqueErr maps psql unique violations on the email/CIN constraints to
// their sentinel errors; these back-stop the resolver's check-then-act race.
func (repo studentRepository) trapUniqueErr(err error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		switch pqErr.Constraint {
		case "students_email_key":
			return student.ErrEmailExists
		case "students_cin_key":
			return student.ErrCINExists
		}
	}
	return errors.Wrap(err, msg)
}

const insertStudentQuery = `
INSERT INTO students (
	id, name, surname, email, password_hash, cin, phone, address,
	birth_date, birth_place, parent_name, parent_phone,
	school_level, current_school, subjects, is_active, created_at, updated_at
) VALUES (
	:id, :name, :surname, :email, :password_hash, :cin, :phone, :address,
	:birth_date, :birth_place, :parent_name, :parent_phone,
	:school_level, :current_school, :subjects, :is_active, :created_at, :updated_at
)`

const insertInscriptionQuery = `
INSERT INTO inscriptions (id, student_id, type, category, amount, date, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const insertPaymentQuery = `
INSERT INTO payments (id, student_id, amount, method, date, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (repo studentRepository) CreateEnrollment(ctx context.Context, rows student.EnrollmentRows) (student.Student, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "beginning enrollment transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var st student.Student
	if rows.Student != nil {
		st = *rows.Student
		st.ID = uuid.New().String()
		if _, err = tx.NamedExecContext(ctx, insertStudentQuery, repo.pack(st)); err != nil {
			return student.Student{}, repo.trapUniqueErr(err, "inserting student")
		}
	} else {
		var row studentRow
		if err = tx.GetContext(ctx, &row, "SELECT * FROM students WHERE id = $1", rows.StudentID); err != nil {
			return student.Student{}, repo.trapNoRowsErr(err, "getting student")
		}
		st = repo.unpack(row)
	}

	if insc := rows.Inscription; insc != nil {
		_, err = tx.ExecContext(ctx, insertInscriptionQuery,
			uuid.New().String(), st.ID, insc.Type, insc.Category, insc.Amount,
			insc.Date, null.NewString(insc.Note, insc.Note != ""), insc.CreatedAt)
		if err != nil {
			return student.Student{}, errors.Wrap(err, "inserting inscription")
		}
	}

	if pay := rows.Payment; pay != nil {
		_, err = tx.ExecContext(ctx, insertPaymentQuery,
			uuid.New().String(), st.ID, pay.Amount, pay.Method,
			pay.Date, null.NewString(pay.Note, pay.Note != ""), pay.CreatedAt)
		if err != nil {
			return student.Student{}, errors.Wrap(err, "inserting payment")
		}
	}

	if err = tx.Commit(); err != nil {
		return student.Student{}, repo.trapUniqueErr(err, "committing enrollment")
	}
	return st, nil
}

func (repo studentRepository) QueryAllStudents(ctx context.Context) ([]student.Student, error) {
	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT * FROM students ORDER BY created_at DESC"); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, repo.unpack(row))
	}
	return students, nil
}

func (repo studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM students WHERE id = $1", id); err != nil {
		return student.Student{}, repo.trapNoRowsErr(err, "getting student")
	}
	return repo.unpack(row), nil
}

func (repo studentRepository) GetStudentByEmail(ctx context.Context, email string) (student.Student, error) {
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM students WHERE email = $1", email); err != nil {
		return student.Student{}, repo.trapNoRowsErr(err, "getting student by email")
	}
	return repo.unpack(row), nil
}

func (repo studentRepository) CountStudents(ctx context.Context) (int, error) {
	var count int
	if err := repo.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM students"); err != nil {
		return 0, errors.Wrap(err, "counting students")
	}
	return count, nil
}

func (repo studentRepository) CountInscriptionsByType(ctx context.Context, inscType string) (int, error) {
	var count int
	if err := repo.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM inscriptions WHERE type = $1", inscType); err != nil {
		return 0, errors.Wrap(err, "counting inscriptions")
	}
	return count, nil
}

func (repo studentRepository) QueryInscriptionsByType(ctx context.Context, inscType string) ([]student.Inscription, error) {
	var rows []inscriptionRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT * FROM inscriptions WHERE type = $1 ORDER BY created_at DESC", inscType)
	if err != nil {
		return nil, errors.Wrap(err, "querying inscriptions")
	}
	inscriptions := make([]student.Inscription, 0, len(rows))
	for _, row := range rows {
		inscriptions = append(inscriptions, repo.unpackInscription(row))
	}
	return inscriptions, nil
}

func (repo studentRepository) QueryRecentInscriptionsByType(ctx context.Context, inscType string, limit int) ([]student.Inscription, error) {
	var rows []inscriptionRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT * FROM inscriptions WHERE type = $1 ORDER BY created_at DESC LIMIT $2", inscType, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying recent inscriptions")
	}
	inscriptions := make([]student.Inscription, 0, len(rows))
	for _, row := range rows {
		inscriptions = append(inscriptions, repo.unpackInscription(row))
	}
	return inscriptions, nil
}

func (repo studentRepository) UpdateStudentPassword(ctx context.Context, id string, hash []byte) error {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE students SET password_hash = $1, updated_at = $2 WHERE id = $3",
		hash, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "updating student password")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.ErrNotFound
	}
	return nil
}
