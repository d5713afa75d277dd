package grading

import (
	"fmt"
	"math"
	"strings"
)

// Component weights of the composite total.
const (
	QuizWeight    = 0.2
	MidtermWeight = 0.3
	FinalWeight   = 0.5
)

// PublicationStatus is the visibility state of a score record.
type PublicationStatus string

const (
	StatusUnpublished PublicationStatus = "UNPUBLISHED"
	StatusPublished   PublicationStatus = "PUBLISHED"
)

// Normalize maps the zero value onto StatusUnpublished.
func (s PublicationStatus) Normalize() PublicationStatus {
	if s == "" {
		return StatusUnpublished
	}
	return s
}

// Known reports whether s is one of the defined states.
func (s PublicationStatus) Known() bool {
	switch s.Normalize() {
	case StatusUnpublished, StatusPublished:
		return true
	}
	return false
}

// IsPublished reports whether the record is visible to the student.
func (s PublicationStatus) IsPublished() bool {
	return s.Normalize() == StatusPublished
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Published is terminal: nothing leads back to Unpublished.
func (s PublicationStatus) CanTransitionTo(next PublicationStatus) bool {
	return s.Normalize() == StatusUnpublished && next == StatusPublished
}

// ParsePublicationStatus accepts the stored status names case-insensitively.
func ParsePublicationStatus(raw string) (PublicationStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", string(StatusUnpublished):
		return StatusUnpublished, nil
	case string(StatusPublished):
		return StatusPublished, nil
	default:
		return "", fmt.Errorf("unknown publication status %q", raw)
	}
}

// ScoreRecord is one student's result for one course offering.
// Absent components count as zero.
type ScoreRecord struct {
	ID         int64             `json:"id" db:"id"`
	OfferingID int64             `json:"offeringId" db:"offering_id" validate:"required"`
	StudentID  int64             `json:"studentId" db:"student_id" validate:"required"`
	Quiz       *float64          `json:"quiz,omitempty" db:"quiz" validate:"omitempty,gte=0,lte=100"`
	Midterm    *float64          `json:"midterm,omitempty" db:"midterm" validate:"omitempty,gte=0,lte=100"`
	Final      *float64          `json:"final,omitempty" db:"final" validate:"omitempty,gte=0,lte=100"`
	Total      int               `json:"total" db:"total"`
	Status     PublicationStatus `json:"status" db:"status" validate:"omitempty,oneof=UNPUBLISHED PUBLISHED"`
}

// Score returns a pointer to v, for filling the optional components.
func Score(v float64) *float64 {
	return &v
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// QuizScore returns the quiz component, 0 when absent.
func (r ScoreRecord) QuizScore() float64 { return valueOrZero(r.Quiz) }

// MidtermScore returns the midterm component, 0 when absent.
func (r ScoreRecord) MidtermScore() float64 { return valueOrZero(r.Midterm) }

// FinalScore returns the final component, 0 when absent.
func (r ScoreRecord) FinalScore() float64 { return valueOrZero(r.Final) }

// WeightedTotal computes round(quiz*0.2 + midterm*0.3 + final*0.5), halves
// rounding up. Components are stored with two decimals, so the sum is taken
// exactly in hundredths of a point times the weight percentages.
func (r ScoreRecord) WeightedTotal() int {
	n := weightPercent(QuizWeight)*hundredths(r.QuizScore()) +
		weightPercent(MidtermWeight)*hundredths(r.MidtermScore()) +
		weightPercent(FinalWeight)*hundredths(r.FinalScore())
	return int((n + totalScale/2) / totalScale)
}

// totalScale converts hundredths times percent back to points.
const totalScale = 100 * 100

func hundredths(v float64) int64 {
	return int64(math.Round(v * 100))
}

func weightPercent(w float64) int64 {
	return int64(math.Round(w * 100))
}

// WithComputedTotal returns a copy of r whose Total matches its components.
func (r ScoreRecord) WithComputedTotal() ScoreRecord {
	r.Total = r.WeightedTotal()
	r.Status = r.Status.Normalize()
	return r
}

// roundTo1 rounds to one decimal place.
func roundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}
