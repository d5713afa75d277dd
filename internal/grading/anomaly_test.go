package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsOfferingAbnormal(t *testing.T) {
	tests := []struct {
		name    string
		summary OfferingSummary
		want    bool
	}{
		{name: "empty offering is never abnormal", summary: OfferingSummary{StudentCount: 0, ExcellenceRate: 100, PassRate: 0}},
		{name: "excellence at ceiling", summary: OfferingSummary{StudentCount: 10, ExcellenceRate: 60.0, PassRate: 100}},
		{name: "excellence above ceiling", summary: OfferingSummary{StudentCount: 10, ExcellenceRate: 60.1, PassRate: 100}, want: true},
		{name: "pass rate at floor", summary: OfferingSummary{StudentCount: 10, ExcellenceRate: 10, PassRate: 70.0}},
		{name: "pass rate below floor", summary: OfferingSummary{StudentCount: 10, ExcellenceRate: 10, PassRate: 69.9}, want: true},
		{name: "both clauses", summary: OfferingSummary{StudentCount: 10, ExcellenceRate: 80, PassRate: 50}, want: true},
		{name: "healthy", summary: OfferingSummary{StudentCount: 10, ExcellenceRate: 20, PassRate: 90}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOfferingAbnormal(tt.summary))
		})
	}
}

func TestDetectOfferingAnomalyReasons(t *testing.T) {
	_, ok := DetectOfferingAnomaly(OfferingSummary{StudentCount: 3, ExcellenceRate: 10, PassRate: 95})
	assert.False(t, ok)

	got, ok := DetectOfferingAnomaly(OfferingSummary{OfferingID: 4, StudentCount: 3, ExcellenceRate: 66.7, PassRate: 33.3})
	require.True(t, ok)
	assert.Equal(t, int64(4), got.OfferingID)
	require.Len(t, got.Reasons, 2)
	assert.Contains(t, got.Reasons[0], "excellence rate 66.7%")
	assert.Contains(t, got.Reasons[1], "pass rate 33.3%")
	assert.Contains(t, got.Reason(), "; ")
}

func TestMidtermFinalPolicy(t *testing.T) {
	tests := []struct {
		name          string
		midterm       float64
		final         float64
		wantAnomaly   bool
		wantKind      AnomalyKind
		wantMagnitude float64
	}{
		{name: "drop", midterm: 90, final: 55, wantAnomaly: true, wantKind: KindDrop, wantMagnitude: 35},
		{name: "surge", midterm: 60, final: 92, wantAnomaly: true, wantKind: KindSurge, wantMagnitude: 32},
		{name: "exactly threshold up", midterm: 60, final: 80},
		{name: "exactly threshold down", midterm: 80, final: 60},
		{name: "just over threshold", midterm: 60, final: 80.01, wantAnomaly: true, wantKind: KindSurge},
		{name: "integer over threshold", midterm: 81, final: 60, wantAnomaly: true, wantKind: KindDrop, wantMagnitude: 21},
		{name: "stable", midterm: 75, final: 78},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rec(11, 1, 5, 70, tt.midterm, tt.final)
			got, ok := DetectRecordAnomaly(r, MidtermFinalPolicy{})
			require.Equal(t, tt.wantAnomaly, ok)
			if !tt.wantAnomaly {
				return
			}
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, int64(11), got.RecordID)
			assert.Equal(t, int64(5), got.StudentID)
			assert.Equal(t, PolicyMidtermFinal, got.Policy)
			assert.Equal(t, tt.midterm, got.Baseline)
			if tt.wantMagnitude != 0 {
				assert.Equal(t, tt.wantMagnitude, got.Magnitude)
			} else {
				assert.Greater(t, got.Magnitude, ScoreSwingThreshold)
			}
		})
	}
}

func TestMidtermFinalPolicyMissingComponents(t *testing.T) {
	// A missing midterm counts as zero, so a strong final is a surge.
	r := ScoreRecord{ID: 1, OfferingID: 1, StudentID: 1, Final: Score(30)}
	got, ok := DetectRecordAnomaly(r, nil)
	require.True(t, ok)
	assert.Equal(t, KindSurge, got.Kind)
	assert.Equal(t, 30.0, got.Magnitude)

	_, ok = DetectRecordAnomaly(ScoreRecord{ID: 2, OfferingID: 1, StudentID: 1}, nil)
	assert.False(t, ok)
}

func TestCrossOfferingPolicy(t *testing.T) {
	current := flat(100, 1, 7, 50)
	history := []ScoreRecord{
		current,
		flat(101, 2, 7, 80),
		flat(102, 3, 7, 90),
		flat(103, 2, 8, 10),  // another student
		flat(104, 1, 7, 99),  // same offering, ignored
		flat(105, 4, 0, 100), // malformed, ignored
	}
	policy := CrossOfferingPolicy{History: history}

	baseline, ok := policy.Baseline(current)
	require.True(t, ok)
	assert.Equal(t, 85.0, baseline)

	got, ok := DetectRecordAnomaly(current, policy)
	require.True(t, ok)
	assert.Equal(t, KindDrop, got.Kind)
	assert.Equal(t, 35.0, got.Magnitude)
	assert.Equal(t, 85.0, got.Baseline)
	assert.Equal(t, PolicyCrossOffering, got.Policy)
}

func TestCrossOfferingPolicyBoundaryAndNoHistory(t *testing.T) {
	current := flat(1, 1, 7, 70)

	_, ok := DetectRecordAnomaly(current, CrossOfferingPolicy{})
	assert.False(t, ok, "no other offerings means no baseline")

	_, ok = DetectRecordAnomaly(current, CrossOfferingPolicy{History: []ScoreRecord{flat(2, 2, 7, 50)}})
	assert.False(t, ok, "a difference of exactly 20 is not flagged")

	got, ok := DetectRecordAnomaly(current, CrossOfferingPolicy{History: []ScoreRecord{flat(2, 2, 7, 49)}})
	require.True(t, ok)
	assert.Equal(t, KindSurge, got.Kind)
	assert.Equal(t, 21.0, got.Magnitude)
}

func TestPoliciesAreIndependent(t *testing.T) {
	// Volatile within the course but in line with the student's history.
	volatile := rec(1, 1, 7, 80, 95, 70)
	history := []ScoreRecord{flat(2, 2, 7, 78)}

	_, ok := DetectRecordAnomaly(volatile, MidtermFinalPolicy{})
	assert.True(t, ok)
	_, ok = DetectRecordAnomaly(volatile, CrossOfferingPolicy{History: history})
	assert.False(t, ok)

	// Steady within the course but far from the student's history.
	steady := flat(3, 1, 8, 40)
	history = []ScoreRecord{flat(4, 2, 8, 90)}

	_, ok = DetectRecordAnomaly(steady, MidtermFinalPolicy{})
	assert.False(t, ok)
	_, ok = DetectRecordAnomaly(steady, CrossOfferingPolicy{History: history})
	assert.True(t, ok)

	combined := CombinedPolicy{MidtermFinalPolicy{}, CrossOfferingPolicy{History: history}}
	got, ok := DetectRecordAnomaly(steady, combined)
	require.True(t, ok)
	assert.Equal(t, PolicyCrossOffering, got.Policy)
	assert.Equal(t, "midterm_final+cross_offering", combined.Name())
}

func TestDetectAllStableOffering(t *testing.T) {
	records := make([]ScoreRecord, 0, 10)
	for i := int64(1); i <= 10; i++ {
		spread := float64(i%5) - 2 // -2..+2
		records = append(records, rec(i, 1, i, 75+spread, 75-spread, 75+spread*2))
	}

	assert.Empty(t, DetectAll(records, MidtermFinalPolicy{}))
	assert.False(t, IsOfferingAbnormal(Summarize(records)))
}

func TestDetectAllSkipsMalformedAndKeepsOrder(t *testing.T) {
	records := []ScoreRecord{
		rec(1, 1, 1, 70, 90, 55),
		rec(2, 1, 0, 70, 90, 10),
		rec(3, 1, 3, 70, 60, 92),
	}
	got := DetectAll(records, MidtermFinalPolicy{})
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].RecordID)
	assert.Equal(t, KindDrop, got[0].Kind)
	assert.Equal(t, int64(3), got[1].RecordID)
	assert.Equal(t, KindSurge, got[1].Kind)
}

func TestParsePolicyName(t *testing.T) {
	p, err := ParsePolicyName("", nil)
	require.NoError(t, err)
	assert.Equal(t, PolicyMidtermFinal, p.Name())

	p, err = ParsePolicyName("Cross_Offering", []ScoreRecord{flat(1, 1, 1, 10)})
	require.NoError(t, err)
	cross, ok := p.(CrossOfferingPolicy)
	require.True(t, ok)
	assert.Len(t, cross.History, 1)

	p, err = ParsePolicyName("both", nil)
	require.NoError(t, err)
	assert.IsType(t, CombinedPolicy{}, p)

	_, err = ParsePolicyName("zscore", nil)
	assert.ErrorIs(t, err, ErrUnknownPolicy)

	assert.True(t, NeedsHistory("cross_offering"))
	assert.True(t, NeedsHistory("both"))
	assert.False(t, NeedsHistory("midterm_final"))
}
