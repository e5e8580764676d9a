package student

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/bestqrov/lahwla/core"
)

var (
	// errors
	ErrNotFound    = errors.New("student not found")
	ErrEmailExists = errors.New("a student with this email already exists")
	ErrCINExists   = errors.New("a student with this CIN already exists")
)

// DuplicateError signals that an enrollment request resolved to an existing
// student. It is recoverable: the caller may re-submit with ResumeStudentID
// set to attach the new fee/payment to the matched student instead.
type DuplicateError struct {
	Student   Student
	MatchedOn string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("student already enrolled: %s (matched on %s)", e.Student.FullName(), e.MatchedOn)
}

type (
	// EnrollmentRows is the write set of one enrollment: a new student row or
	// a reference to an existing one, plus the optional fee and payment rows.
	// A Repository must persist it atomically.
	EnrollmentRows struct {
		Student     *Student // nil when attaching to an existing student
		StudentID   string   // set when Student is nil
		Inscription *Inscription
		Payment     *Payment
	}

	Repository interface {
		// CreateEnrollment persists all rows in one transaction and returns
		// the (created or existing) student. Nothing persists on error.
		CreateEnrollment(ctx context.Context, rows EnrollmentRows) (Student, error)
		QueryAllStudents(ctx context.Context) ([]Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		GetStudentByEmail(ctx context.Context, email string) (Student, error)
		CountStudents(ctx context.Context) (int, error)
		CountInscriptionsByType(ctx context.Context, inscType string) (int, error)
		QueryInscriptionsByType(ctx context.Context, inscType string) ([]Inscription, error)
		QueryRecentInscriptionsByType(ctx context.Context, inscType string, limit int) ([]Inscription, error)
		UpdateStudentPassword(ctx context.Context, id string, hash []byte) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, logger: logger, conf: conf}
}

// Enroll creates (or attaches to) a student together with its inscription
// and payment rows as one atomic unit. Without ResumeStudentID it first
// resolves the candidate against existing students and fails with a
// *DuplicateError on a hit; the storage-level unique constraints on email
// and CIN are the backstop for two concurrent calls racing past that check.
func (svc *Service) Enroll(ctx context.Context, enr Enrollment) (Student, error) {
	if err := enr.Validate(); err != nil {
		return Student{}, err
	}

	now := time.Now().UTC()
	var rows EnrollmentRows
	var generatedPwd string

	if enr.ResumeStudentID != "" {
		existing, err := svc.repo.GetStudentByID(ctx, enr.ResumeStudentID)
		if err != nil {
			return Student{}, err
		}
		rows.StudentID = existing.ID
	} else {
		match, err := svc.Resolve(ctx, Candidate{
			CIN:      enr.CIN,
			FullName: enr.Name + " " + enr.Surname,
			Phone:    enr.Phone,
		})
		if err != nil {
			return Student{}, err
		}
		if match != nil {
			return Student{}, &DuplicateError{Student: match.Student, MatchedOn: match.MatchedOn}
		}

		creds, err := provisionCredentials(enr.Name, enr.Surname, svc.conf.SchoolName, enr.Email, enr.Password)
		if err != nil {
			return Student{}, err
		}
		generatedPwd = creds.GeneratedPassword

		rows.Student = &Student{
			Name:          enr.Name,
			Surname:       enr.Surname,
			Email:         creds.Email,
			PasswordHash:  creds.PasswordHash,
			CIN:           enr.CIN,
			Phone:         enr.Phone,
			Address:       enr.Address,
			BirthDate:     enr.BirthDate,
			BirthPlace:    enr.BirthPlace,
			ParentName:    enr.ParentName,
			ParentPhone:   enr.ParentPhone,
			SchoolLevel:   enr.SchoolLevel,
			CurrentSchool: enr.CurrentSchool,
			Subjects:      enr.Subjects,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	if enr.Fee != nil {
		category := enr.Fee.Category
		if category == "" {
			if category = enr.SchoolLevel; category == "" {
				category = "Unknown"
			}
		}
		note := enr.Fee.Note
		if note == "" {
			note = "Inscription initiale"
		}
		rows.Inscription = &Inscription{
			Type:      enr.Fee.Type,
			Category:  category,
			Amount:    enr.Fee.Amount,
			Date:      now,
			Note:      note,
			CreatedAt: now,
		}
	}

	if enr.AmountPaid > 0 {
		method := enr.PaymentMethod
		if method == "" {
			method = MethodCash
		}
		rows.Payment = &Payment{
			Amount:    enr.AmountPaid,
			Method:    method,
			Date:      now,
			Note:      "Paiement à l'inscription",
			CreatedAt: now,
		}
	}

	st, err := svc.repo.CreateEnrollment(ctx, rows)
	if err != nil {
		return Student{}, err
	}

	if generatedPwd != "" {
		svc.sendWelcomeEmail(st, generatedPwd)
	}
	return st, nil
}

func (svc *Service) sendWelcomeEmail(st Student, pwd string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: st.FullName(), Address: st.Email}},
		Subject: "Your student account",
		BodyStr: fmt.Sprintf(
			"Hello %s,\n\nYour student account at %s is ready.\n\nEmail: %s\nPassword: %s\n\nPlease change this password after your first login.",
			st.FullName(), svc.conf.SchoolName, st.Email, pwd,
		),
	})
}

func (svc *Service) QueryAll(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryAllStudents(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Student, error) {
	return svc.repo.GetStudentByEmail(ctx, core.CleanString(email, true /* lower */))
}

// Authenticate checks a student's email/password pair.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (Student, error) {
	st, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return Student{}, err
	}
	if err := st.CheckPassword(pwd); err != nil {
		return Student{}, ErrNotFound
	}
	if !st.IsActive {
		return Student{}, ErrNotFound
	}
	return st, nil
}

// LoginInfo returns the id, full name and login email of a student;
// never the password hash.
func (svc *Service) LoginInfo(ctx context.Context, id string) (LoginInfo, error) {
	st, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return LoginInfo{}, err
	}
	return LoginInfo{ID: st.ID, Name: st.FullName(), Email: st.Email}, nil
}

// SetPassword replaces a student's password with a new one, hashed through
// the same one-way path used at enrollment. The plaintext is never echoed.
func (svc *Service) SetPassword(ctx context.Context, id, pwd string) error {
	if pwd == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "password", Error: "this field is required"})
	}
	st, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return err
	}
	if err := st.SetPassword(pwd); err != nil {
		return err
	}
	return svc.repo.UpdateStudentPassword(ctx, st.ID, st.PasswordHash)
}
