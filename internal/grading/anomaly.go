package grading

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Review thresholds. These are policy, not configuration.
const (
	ExcellenceRateCeiling = 60.0
	PassRateFloor         = 70.0
	ScoreSwingThreshold   = 20.0
)

// IsOfferingAbnormal flags offerings whose grade distribution suggests a
// miscalibrated assessment. Offerings without students are never abnormal.
func IsOfferingAbnormal(s OfferingSummary) bool {
	return s.StudentCount > 0 && (s.ExcellenceRate > ExcellenceRateCeiling || s.PassRate < PassRateFloor)
}

// OfferingAnomaly is a course-level flag.
type OfferingAnomaly struct {
	OfferingID int64    `json:"offeringId"`
	Reasons    []string `json:"reasons"`
}

// Reason joins the individual reasons into one line.
func (a OfferingAnomaly) Reason() string {
	return strings.Join(a.Reasons, "; ")
}

// DetectOfferingAnomaly applies IsOfferingAbnormal and explains the verdict.
func DetectOfferingAnomaly(s OfferingSummary) (OfferingAnomaly, bool) {
	if !IsOfferingAbnormal(s) {
		return OfferingAnomaly{}, false
	}
	anomaly := OfferingAnomaly{OfferingID: s.OfferingID}
	if s.ExcellenceRate > ExcellenceRateCeiling {
		anomaly.Reasons = append(anomaly.Reasons,
			fmt.Sprintf("excellence rate %.1f%% exceeds %.1f%%", s.ExcellenceRate, ExcellenceRateCeiling))
	}
	if s.PassRate < PassRateFloor {
		anomaly.Reasons = append(anomaly.Reasons,
			fmt.Sprintf("pass rate %.1f%% is below %.1f%%", s.PassRate, PassRateFloor))
	}
	return anomaly, true
}

// AnomalyKind is the direction of a student-level swing.
type AnomalyKind string

const (
	KindSurge AnomalyKind = "SURGE"
	KindDrop  AnomalyKind = "DROP"
)

// RecordAnomaly is a student-level flag.
type RecordAnomaly struct {
	RecordID  int64       `json:"recordId"`
	StudentID int64       `json:"studentId"`
	Kind      AnomalyKind `json:"kind"`
	Magnitude float64     `json:"magnitude"`
	Policy    string      `json:"policy"`
	// Baseline is the value the record was compared against: the midterm
	// score or the student's average total elsewhere.
	Baseline float64 `json:"baseline"`
}

// swing turns a signed difference into an anomaly when it crosses the threshold.
func swing(rec ScoreRecord, diff, baseline float64, policy string) (RecordAnomaly, bool) {
	magnitude := math.Abs(diff)
	if magnitude <= ScoreSwingThreshold {
		return RecordAnomaly{}, false
	}
	kind := KindSurge
	if diff < 0 {
		kind = KindDrop
	}
	return RecordAnomaly{
		RecordID:  rec.ID,
		StudentID: rec.StudentID,
		Kind:      kind,
		Magnitude: magnitude,
		Policy:    policy,
		Baseline:  baseline,
	}, true
}

// DetectionPolicy is one strategy for spotting suspicious individual results.
type DetectionPolicy interface {
	Name() string
	Detect(rec ScoreRecord) (RecordAnomaly, bool)
}

// Policy names.
const (
	PolicyMidtermFinal  = "midterm_final"
	PolicyCrossOffering = "cross_offering"
	PolicyBoth          = "both"
)

// MidtermFinalPolicy compares the final score with the midterm score of the
// same record.
type MidtermFinalPolicy struct{}

func (MidtermFinalPolicy) Name() string { return PolicyMidtermFinal }

func (p MidtermFinalPolicy) Detect(rec ScoreRecord) (RecordAnomaly, bool) {
	diff := rec.FinalScore() - rec.MidtermScore()
	return swing(rec, diff, rec.MidtermScore(), p.Name())
}

// CrossOfferingPolicy compares a record's total with the same student's
// average total across other offerings. History may contain records of any
// student; only the matching student's records from other offerings count.
type CrossOfferingPolicy struct {
	History []ScoreRecord
}

func (CrossOfferingPolicy) Name() string { return PolicyCrossOffering }

// Baseline returns the student's mean total outside rec's offering.
func (p CrossOfferingPolicy) Baseline(rec ScoreRecord) (float64, bool) {
	var sum, n int
	for _, other := range p.History {
		if other.StudentID != rec.StudentID || other.OfferingID == rec.OfferingID || other.ID == rec.ID {
			continue
		}
		if other.Validate() != nil {
			continue
		}
		sum += other.WeightedTotal()
		n++
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

func (p CrossOfferingPolicy) Detect(rec ScoreRecord) (RecordAnomaly, bool) {
	baseline, ok := p.Baseline(rec)
	if !ok {
		return RecordAnomaly{}, false
	}
	diff := float64(rec.WeightedTotal()) - baseline
	return swing(rec, diff, roundTo1(baseline), p.Name())
}

// CombinedPolicy runs its policies in order and reports the first hit.
type CombinedPolicy []DetectionPolicy

func (c CombinedPolicy) Name() string {
	names := make([]string, len(c))
	for i, p := range c {
		names[i] = p.Name()
	}
	return strings.Join(names, "+")
}

func (c CombinedPolicy) Detect(rec ScoreRecord) (RecordAnomaly, bool) {
	for _, p := range c {
		if anomaly, ok := p.Detect(rec); ok {
			return anomaly, true
		}
	}
	return RecordAnomaly{}, false
}

// DetectRecordAnomaly evaluates one record under policy.
// A nil policy falls back to MidtermFinalPolicy.
func DetectRecordAnomaly(rec ScoreRecord, policy DetectionPolicy) (RecordAnomaly, bool) {
	if policy == nil {
		policy = MidtermFinalPolicy{}
	}
	return policy.Detect(rec)
}

// DetectAll evaluates every well-formed record of a snapshot, keeping input order.
func DetectAll(records []ScoreRecord, policy DetectionPolicy) []RecordAnomaly {
	valid, _ := partition(records)
	anomalies := make([]RecordAnomaly, 0)
	for _, rec := range valid {
		if anomaly, ok := DetectRecordAnomaly(rec, policy); ok {
			anomalies = append(anomalies, anomaly)
		}
	}
	return anomalies
}

// ErrUnknownPolicy is returned for a policy name nobody implements.
var ErrUnknownPolicy = errors.New("unknown detection policy")

// ParsePolicyName resolves a policy by name. history feeds the
// cross-offering baseline and is ignored by the midterm/final policy.
// "both" combines the two.
func ParsePolicyName(name string, history []ScoreRecord) (DetectionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyMidtermFinal:
		return MidtermFinalPolicy{}, nil
	case PolicyCrossOffering:
		return CrossOfferingPolicy{History: history}, nil
	case PolicyBoth:
		return CombinedPolicy{MidtermFinalPolicy{}, CrossOfferingPolicy{History: history}}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownPolicy, name)
	}
}

// NeedsHistory reports whether the named policy uses cross-offering history.
func NeedsHistory(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PolicyCrossOffering, PolicyBoth:
		return true
	}
	return false
}
