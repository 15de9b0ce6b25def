package service

import (
	"context"
	"fmt"

	"termbilling/models"
)

// tierKey identifies a fee tier within a term. Grade-wide tiers have an empty class.
type tierKey struct {
	grade     string
	class     string
	gradeWide bool
}

// FeeSchedule is the fee tier lookup for one term
type FeeSchedule struct {
	termID int64
	tiers  map[tierKey]*models.FeeTier
}

// ResolveFeeSchedule loads the fee tiers of a term and builds its lookup.
// It fails with a not-found error when the term has no tiers.
func ResolveFeeSchedule(ctx context.Context, repo FeeTierRepository, termID int64) (*FeeSchedule, error) {
	tiers, err := repo.GetByTerm(ctx, termID)
	if err != nil {
		return nil, NewPersistenceError(err, "failed to get fee configurations")
	}
	return NewFeeSchedule(termID, tiers)
}

// NewFeeSchedule builds the lookup from a term's fee tiers.
// When two tiers share a key the later one wins.
func NewFeeSchedule(termID int64, tiers []*models.FeeTier) (*FeeSchedule, error) {
	if len(tiers) == 0 {
		return nil, NewNotFoundError(fmt.Sprintf("No fee configurations found for term ID %d", termID))
	}

	schedule := &FeeSchedule{
		termID: termID,
		tiers:  make(map[tierKey]*models.FeeTier, len(tiers)),
	}
	for _, tier := range tiers {
		schedule.tiers[keyForTier(tier)] = tier
	}
	return schedule, nil
}

// Resolve returns the tier for a student's grade and class. A tier for the
// exact class is preferred over the grade-wide tier.
func (s *FeeSchedule) Resolve(grade, class string) (*models.FeeTier, bool) {
	if tier, ok := s.tiers[tierKey{grade: grade, class: class}]; ok {
		return tier, true
	}
	tier, ok := s.tiers[tierKey{grade: grade, gradeWide: true}]
	return tier, ok
}

// TermID returns the term the schedule belongs to
func (s *FeeSchedule) TermID() int64 {
	return s.termID
}

// Len returns the number of distinct tiers in the schedule
func (s *FeeSchedule) Len() int {
	return len(s.tiers)
}

func keyForTier(tier *models.FeeTier) tierKey {
	if tier.IsGradeWide() {
		return tierKey{grade: tier.Grade, gradeWide: true}
	}
	return tierKey{grade: tier.Grade, class: *tier.Class}
}
