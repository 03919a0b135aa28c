package services

import "fmt"

// OutcomeKind classifies what happened to one item in a batch run.
type OutcomeKind string

const (
	OutcomeCreated OutcomeKind = "created"
	OutcomeFixed   OutcomeKind = "fixed"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailed  OutcomeKind = "failed"
)

// Outcome records the result of processing a single owner or budget.
// Batch runs collect one Outcome per item instead of letting an item's
// failure alter control flow for its neighbors.
type Outcome struct {
	Kind        OutcomeKind
	BudgetID    string
	Owner       string
	AccountBook string
	Detail      string
	Err         error
}

// Summary aggregates the outcomes of one batch run.
type Summary struct {
	Considered int
	Outcomes   []Outcome
}

// Add appends an outcome and counts the item as considered.
func (s *Summary) Add(o Outcome) {
	s.Considered++
	s.Outcomes = append(s.Outcomes, o)
}

// Merge folds another summary into this one.
func (s *Summary) Merge(other *Summary) {
	if other == nil {
		return
	}
	s.Considered += other.Considered
	s.Outcomes = append(s.Outcomes, other.Outcomes...)
}

// Count returns the number of outcomes of the given kind.
func (s *Summary) Count(kind OutcomeKind) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Kind == kind {
			n++
		}
	}
	return n
}

// Failures returns the failed outcomes for itemized reporting.
func (s *Summary) Failures() []Outcome {
	var failed []Outcome
	for _, o := range s.Outcomes {
		if o.Kind == OutcomeFailed {
			failed = append(failed, o)
		}
	}
	return failed
}

func (s *Summary) String() string {
	return fmt.Sprintf("considered=%d created=%d fixed=%d skipped=%d failed=%d",
		s.Considered,
		s.Count(OutcomeCreated),
		s.Count(OutcomeFixed),
		s.Count(OutcomeSkipped),
		s.Count(OutcomeFailed))
}
