package student

import (
	"context"
	"strings"
)

// Match fields, in decreasing order of authority.
const (
	MatchedOnCIN  = "cin"
	MatchedOnName = "name"
)

// singleNamePlaceholder is how the surname of a genuinely single-word name is
// stored; the resolver applies it to both sides of the comparison.
const singleNamePlaceholder = "-"

// Candidate holds the identity fields of an incoming enrollment request.
// All fields are optional; absent fields disable the checks that need them.
type Candidate struct {
	CIN      string
	FullName string
	Phone    string
}

// Match reports an existing student a candidate resolved to and which field
// gave it away.
type Match struct {
	Student   Student
	MatchedOn string
}

// Resolve scans the full student set for a person the candidate likely is.
// A CIN equality wins outright; failing that, first name + surname + phone
// must all agree. No pagination: a match anywhere must be caught, a false
// negative silently enrolls the same person twice.
func (svc *Service) Resolve(ctx context.Context, c Candidate) (*Match, error) {
	students, err := svc.repo.QueryAllStudents(ctx)
	if err != nil {
		return nil, err
	}

	if c.CIN != "" {
		for _, s := range students {
			if s.CIN == c.CIN {
				return &Match{Student: s, MatchedOn: MatchedOnCIN}, nil
			}
		}
	}

	if c.FullName != "" && c.Phone != "" {
		first, rest := splitFullName(c.FullName)
		for _, s := range students {
			// stored names go through the same split so multi-word first
			// names and placeholder surnames compare consistently
			sFirst, sRest := splitFullName(s.Name + " " + normalizeSurname(s.Surname))
			if sFirst == first && sRest == rest && s.Phone == c.Phone {
				return &Match{Student: s, MatchedOn: MatchedOnName}, nil
			}
		}
	}

	return nil, nil
}

// splitFullName cuts a space-delimited full name into a first token and the
// joined remainder, falling back to the single-name placeholder.
func splitFullName(full string) (first, rest string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", singleNamePlaceholder
	}
	first = parts[0]
	rest = strings.Join(parts[1:], " ")
	if rest == "" {
		rest = singleNamePlaceholder
	}
	return first, rest
}

func normalizeSurname(surname string) string {
	if surname == "" {
		return singleNamePlaceholder
	}
	return surname
}
