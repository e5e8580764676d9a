package student

import (
	"context"
	"fmt"
)

const recentInscriptionsLimit = 5

type (
	// RecentInscription is an inscription augmented for display: FullAmount
	// adds the owning student's recurring subject total on top of the ledger
	// amount, which alone understates what the student owes per month.
	RecentInscription struct {
		Inscription
		StudentName string  `json:"student_name"`
		FullAmount  float64 `json:"full_amount"`
	}

	// Analytics is a point-in-time expected-revenue aggregate over the whole
	// student set, combining recurring per-subject fees with one-time
	// SOUTIEN inscription fees.
	Analytics struct {
		TotalStudents      int                 `json:"total_students"`
		TotalInscriptions  int                 `json:"total_inscriptions"`
		RecurringRevenue   float64             `json:"recurring_revenue"`
		InscriptionRevenue float64             `json:"inscription_revenue"`
		TotalRevenue       float64             `json:"total_revenue"`
		RecentInscriptions []RecentInscription `json:"recent_inscriptions"`
		StudentRevenue     map[string]float64  `json:"student_revenue"`
	}
)

// Analytics recomputes the revenue aggregate with a full scan on every call.
// It is read-only and safe to run alongside enrollment writes: enrollments
// commit atomically, so the scan may be slightly stale but never partial.
// Legacy boolean subject entries count 0 and are logged, never an error.
func (svc *Service) Analytics(ctx context.Context) (Analytics, error) {
	res := Analytics{
		RecentInscriptions: []RecentInscription{},
		StudentRevenue:     make(map[string]float64),
	}

	var err error
	if res.TotalStudents, err = svc.repo.CountStudents(ctx); err != nil {
		return Analytics{}, err
	}
	if res.TotalInscriptions, err = svc.repo.CountInscriptionsByType(ctx, TypeSoutien); err != nil {
		return Analytics{}, err
	}

	students, err := svc.repo.QueryAllStudents(ctx)
	if err != nil {
		return Analytics{}, err
	}

	names := make(map[string]string, len(students))
	for _, st := range students {
		total, legacySubjects := st.Subjects.RecurringTotal()
		for _, subj := range legacySubjects {
			svc.logger.Warn(fmt.Sprintf("student %s has legacy boolean subject %q, counting 0", st.ID, subj))
		}
		res.StudentRevenue[st.ID] = total
		res.RecurringRevenue += total
		names[st.ID] = st.FullName()
	}

	inscriptions, err := svc.repo.QueryInscriptionsByType(ctx, TypeSoutien)
	if err != nil {
		return Analytics{}, err
	}
	for _, insc := range inscriptions {
		res.InscriptionRevenue += insc.Amount
	}
	res.TotalRevenue = res.RecurringRevenue + res.InscriptionRevenue

	recent, err := svc.repo.QueryRecentInscriptionsByType(ctx, TypeSoutien, recentInscriptionsLimit)
	if err != nil {
		return Analytics{}, err
	}
	for _, insc := range recent {
		res.RecentInscriptions = append(res.RecentInscriptions, RecentInscription{
			Inscription: insc,
			StudentName: names[insc.StudentID],
			FullAmount:  insc.Amount + res.StudentRevenue[insc.StudentID],
		})
	}

	return res, nil
}
