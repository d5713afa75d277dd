package grading

import (
	"fmt"
	"strings"
)

// Score thresholds used by the rates.
const (
	ExcellentTotal = 90
	PassingTotal   = 60
)

// StatusPolicy decides the aggregate publication status of an offering.
type StatusPolicy string

const (
	// StatusAnyPublished marks the offering published as soon as one record is.
	StatusAnyPublished StatusPolicy = "any"
	// StatusAllPublished requires every record to be published.
	StatusAllPublished StatusPolicy = "all"
)

// ParseStatusPolicy maps a configuration value onto a StatusPolicy.
// The empty string selects StatusAnyPublished.
func ParseStatusPolicy(raw string) (StatusPolicy, error) {
	switch StatusPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", StatusAnyPublished:
		return StatusAnyPublished, nil
	case StatusAllPublished:
		return StatusAllPublished, nil
	default:
		return "", fmt.Errorf("unknown status policy %q", raw)
	}
}

func (p StatusPolicy) aggregate(records []ScoreRecord) PublicationStatus {
	if len(records) == 0 {
		return StatusUnpublished
	}
	if p == StatusAllPublished {
		for _, rec := range records {
			if !rec.Status.IsPublished() {
				return StatusUnpublished
			}
		}
		return StatusPublished
	}
	for _, rec := range records {
		if rec.Status.IsPublished() {
			return StatusPublished
		}
	}
	return StatusUnpublished
}

// OfferingSummary is the statistical view of one offering's records.
// It is derived on demand and never stored.
type OfferingSummary struct {
	OfferingID     int64             `json:"offeringId"`
	StudentCount   int               `json:"studentCount"`
	AverageTotal   float64           `json:"averageTotal"`
	ExcellenceRate float64           `json:"excellenceRate"`
	PassRate       float64           `json:"passRate"`
	Status         PublicationStatus `json:"status"`
	StatusPolicy   StatusPolicy      `json:"statusPolicy"`
	Skipped        int               `json:"skipped"`
}

// Aggregator reduces score records to an OfferingSummary.
// The zero value uses StatusAnyPublished.
type Aggregator struct {
	Status StatusPolicy
}

// Summarize computes the summary of records, which the caller has already
// narrowed down to a single offering. Malformed records are left out and
// counted in Skipped.
func (a Aggregator) Summarize(records []ScoreRecord) OfferingSummary {
	policy := a.Status
	if policy == "" {
		policy = StatusAnyPublished
	}

	valid, skipped := partition(records)
	summary := OfferingSummary{
		Status:       StatusUnpublished,
		StatusPolicy: policy,
		Skipped:      skipped,
	}
	if len(valid) == 0 {
		return summary
	}

	var sum, excellent, passed int
	for _, rec := range valid {
		total := rec.WeightedTotal()
		sum += total
		if total >= ExcellentTotal {
			excellent++
		}
		if total >= PassingTotal {
			passed++
		}
	}

	n := float64(len(valid))
	summary.OfferingID = valid[0].OfferingID
	summary.StudentCount = len(valid)
	summary.AverageTotal = roundTo1(float64(sum) / n)
	summary.ExcellenceRate = roundTo1(100 * float64(excellent) / n)
	summary.PassRate = roundTo1(100 * float64(passed) / n)
	summary.Status = policy.aggregate(valid)
	return summary
}

// SummarizeOffering is Summarize with the offering id pinned, so that an
// offering without records still reports which offering it describes.
func (a Aggregator) SummarizeOffering(offeringID int64, records []ScoreRecord) OfferingSummary {
	summary := a.Summarize(records)
	summary.OfferingID = offeringID
	return summary
}

// Summarize uses the default Aggregator.
func Summarize(records []ScoreRecord) OfferingSummary {
	return Aggregator{}.Summarize(records)
}
