package student

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/bestqrov/lahwla/core"
)

// Inscription types
const (
	TypeSoutien   = "SOUTIEN"   // ongoing tutoring enrollment
	TypeFormation = "FORMATION" // discrete course enrollment
)

// Payment methods
const (
	MethodCash     = "CASH"
	MethodTransfer = "TRANSFER"
	MethodCheck    = "CHECK"
)

// SubjectFee is the stored value of a subject entry: either the current
// numeric monthly fee, or a bare legacy flag from records created before
// manual pricing. Legacy entries count 0 towards revenue.
type SubjectFee struct {
	Amount float64
	Legacy bool
}

// Subjects maps a subject name to its fee. It is persisted as JSON where old
// records hold booleans and new ones hold numbers; decoding keeps the two
// apart instead of letting an untyped value leak into revenue sums.
type Subjects map[string]SubjectFee

func (s Subjects) MarshalJSON() ([]byte, error) {
	raw := make(map[string]interface{}, len(s))
	for name, fee := range s {
		if fee.Legacy {
			raw[name] = true
		} else {
			raw[name] = fee.Amount
		}
	}
	return json.Marshal(raw)
}

func (s *Subjects) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	subs := make(Subjects, len(raw))
	for name, val := range raw {
		var amount float64
		if err := json.Unmarshal(val, &amount); err == nil {
			subs[name] = SubjectFee{Amount: amount}
			continue
		}
		var flag bool
		if err := json.Unmarshal(val, &flag); err != nil {
			return errors.Errorf("subject %q: expected number or boolean, got %s", name, val)
		}
		subs[name] = SubjectFee{Legacy: true}
	}
	*s = subs
	return nil
}

func (s Subjects) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *Subjects) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return errors.Errorf("cannot scan %T into Subjects", src)
}

// RecurringTotal sums the numeric subject fees. Legacy boolean entries
// contribute 0; their names are returned so callers can flag them.
func (s Subjects) RecurringTotal() (total float64, legacy []string) {
	for name, fee := range s {
		if fee.Legacy {
			legacy = append(legacy, name)
			continue
		}
		total += fee.Amount
	}
	return total, legacy
}

type Student struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Surname       string    `json:"surname"`
	Email         string    `json:"email,omitempty"`
	PasswordHash  []byte    `json:"-"`
	CIN           string    `json:"cin,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	BirthDate     time.Time `json:"birth_date,omitempty"`
	BirthPlace    string    `json:"birth_place,omitempty"`
	ParentName    string    `json:"parent_name,omitempty"`
	ParentPhone   string    `json:"parent_phone,omitempty"`
	SchoolLevel   string    `json:"school_level,omitempty"`
	CurrentSchool string    `json:"current_school,omitempty"`
	Subjects      Subjects  `json:"subjects,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

func (s Student) FullName() string {
	return strings.TrimSpace(s.Name + " " + s.Surname)
}

func (s *Student) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.PasswordHash = hash
	return nil
}

func (s *Student) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(s.PasswordHash, []byte(pwd))
}

// Inscription is a one-time billable enrollment event. Append-only.
type Inscription struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Type      string    `json:"type"`
	Category  string    `json:"category"`
	Amount    float64   `json:"amount"`
	Date      time.Time `json:"date"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Payment records money actually received. Append-only.
type Payment struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method"`
	Date      time.Time `json:"date"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FeeSpec describes the inscription fee to record at enrollment time.
type FeeSpec struct {
	Type     string  `json:"type" validate:"required,oneof=SOUTIEN FORMATION"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount" validate:"gte=0"`
	Note     string  `json:"note"`
}

// Enrollment contains everything needed to enroll a student: profile fields
// for a new record, an optional fee spec, an optional upfront payment, and
// an optional existing student to attach the fee/payment to instead.
type Enrollment struct {
	Name          string    `json:"name" validate:"required_without=ResumeStudentID"`
	Surname       string    `json:"surname" validate:"required_without=ResumeStudentID"`
	Email         string    `json:"email" validate:"omitempty,email"`
	Password      string    `json:"password"`
	CIN           string    `json:"cin"`
	Phone         string    `json:"phone"`
	Address       string    `json:"address"`
	BirthDate     time.Time `json:"birth_date"`
	BirthPlace    string    `json:"birth_place"`
	ParentName    string    `json:"parent_name"`
	ParentPhone   string    `json:"parent_phone"`
	SchoolLevel   string    `json:"school_level"`
	CurrentSchool string    `json:"current_school"`
	Subjects      Subjects  `json:"subjects"`

	Fee           *FeeSpec `json:"fee"`
	AmountPaid    float64  `json:"amount_paid" validate:"gte=0"`
	PaymentMethod string   `json:"payment_method" validate:"omitempty,oneof=CASH TRANSFER CHECK"`

	ResumeStudentID string `json:"resume_student_id"`
}

func (e *Enrollment) Validate() error {
	e.Name = core.CleanString(e.Name)
	e.Surname = core.CleanString(e.Surname)
	e.Email = core.CleanString(e.Email, true /* lower */)
	e.CIN = core.CleanString(e.CIN, true /* lower */)
	e.Phone = core.CleanString(e.Phone)
	return core.Validate.Struct(e)
}

// LoginInfo is the subset of a Student exposed to the login-info admin screen.
type LoginInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
