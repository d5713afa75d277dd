package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil)
	assert.Equal(t, OfferingSummary{
		Status:       StatusUnpublished,
		StatusPolicy: StatusAnyPublished,
	}, got)

	got = Aggregator{}.SummarizeOffering(7, []ScoreRecord{})
	assert.Equal(t, int64(7), got.OfferingID)
	assert.Zero(t, got.StudentCount)
	assert.Zero(t, got.AverageTotal)
	assert.Zero(t, got.ExcellenceRate)
	assert.Zero(t, got.PassRate)
	assert.Equal(t, StatusUnpublished, got.Status)
}

func TestSummarizeRates(t *testing.T) {
	records := []ScoreRecord{
		flat(1, 3, 1, 95),
		flat(2, 3, 2, 72),
		flat(3, 3, 3, 40),
	}

	got := Summarize(records)
	assert.Equal(t, int64(3), got.OfferingID)
	assert.Equal(t, 3, got.StudentCount)
	assert.Equal(t, 69.0, got.AverageTotal)
	assert.Equal(t, 33.3, got.ExcellenceRate)
	assert.Equal(t, 66.7, got.PassRate)
	assert.Equal(t, StatusUnpublished, got.Status)
	assert.Zero(t, got.Skipped)
}

func TestSummarizeThresholdsAreInclusive(t *testing.T) {
	got := Summarize([]ScoreRecord{flat(1, 1, 1, 90), flat(2, 1, 2, 60)})
	assert.Equal(t, 50.0, got.ExcellenceRate)
	assert.Equal(t, 100.0, got.PassRate)
	assert.Equal(t, 75.0, got.AverageTotal)
}

func TestSummarizeAverageRoundsToOneDecimal(t *testing.T) {
	got := Summarize([]ScoreRecord{flat(1, 1, 1, 70), flat(2, 1, 2, 71), flat(3, 1, 3, 71)})
	assert.Equal(t, 70.7, got.AverageTotal)
}

func TestSummarizeSkipsMalformedRecords(t *testing.T) {
	records := []ScoreRecord{
		flat(1, 1, 1, 80),
		flat(2, 1, 0, 10),         // no student
		flat(3, 0, 3, 10),         // no offering
		rec(4, 1, 4, 80, 80, 130), // out of range
		flat(5, 1, 5, 50),
	}

	got := Summarize(records)
	assert.Equal(t, 2, got.StudentCount)
	assert.Equal(t, 3, got.Skipped)
	assert.Equal(t, 65.0, got.AverageTotal)
	assert.Equal(t, 50.0, got.PassRate)
}

func TestSummarizeAllMalformed(t *testing.T) {
	got := Summarize([]ScoreRecord{flat(1, 1, 0, 80)})
	assert.Zero(t, got.StudentCount)
	assert.Equal(t, 1, got.Skipped)
	assert.Zero(t, got.AverageTotal)
	assert.Equal(t, StatusUnpublished, got.Status)
}

func TestSummarizeUsesComponentsNotStoredTotal(t *testing.T) {
	r := flat(1, 1, 1, 50)
	r.Total = 99
	got := Summarize([]ScoreRecord{r})
	assert.Equal(t, 50.0, got.AverageTotal)
	assert.Zero(t, got.ExcellenceRate)
}

func TestSummarizeRatesStayInRange(t *testing.T) {
	for score := 0.0; score <= 100; score += 7 {
		records := []ScoreRecord{flat(1, 1, 1, score), flat(2, 1, 2, 100-score), flat(3, 1, 3, score/2)}
		got := Summarize(records)
		for _, v := range []float64{got.AverageTotal, got.ExcellenceRate, got.PassRate} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
	}
}

func TestAggregateStatusPolicies(t *testing.T) {
	published := flat(1, 1, 1, 80)
	published.Status = StatusPublished
	pending := flat(2, 1, 2, 80)
	legacy := flat(3, 1, 3, 80)
	legacy.Status = ""

	tests := []struct {
		name    string
		policy  StatusPolicy
		records []ScoreRecord
		want    PublicationStatus
	}{
		{name: "any: one published", policy: StatusAnyPublished, records: []ScoreRecord{published, pending}, want: StatusPublished},
		{name: "any: none published", policy: StatusAnyPublished, records: []ScoreRecord{pending, legacy}, want: StatusUnpublished},
		{name: "all: mixed", policy: StatusAllPublished, records: []ScoreRecord{published, pending}, want: StatusUnpublished},
		{name: "all: unanimous", policy: StatusAllPublished, records: []ScoreRecord{published}, want: StatusPublished},
		{name: "zero value behaves as any", policy: "", records: []ScoreRecord{pending, published}, want: StatusPublished},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregator{Status: tt.policy}.Summarize(tt.records)
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestParseStatusPolicy(t *testing.T) {
	p, err := ParseStatusPolicy(" ALL ")
	require.NoError(t, err)
	assert.Equal(t, StatusAllPublished, p)

	p, err = ParseStatusPolicy("")
	require.NoError(t, err)
	assert.Equal(t, StatusAnyPublished, p)

	_, err = ParseStatusPolicy("most")
	assert.Error(t, err)
}

func TestSummarizeLowPassRateExample(t *testing.T) {
	records := make([]ScoreRecord, 0, 30)
	var id int64
	for i := 0; i < 25; i++ {
		id++
		records = append(records, flat(id, 9, id, float64(20+i*38/24)))
	}
	for i := 0; i < 5; i++ {
		id++
		records = append(records, flat(id, 9, id, float64(60+i)))
	}

	got := Summarize(records)
	require.Equal(t, 30, got.StudentCount)
	assert.Equal(t, 16.7, got.PassRate)
	assert.True(t, IsOfferingAbnormal(got))
}
