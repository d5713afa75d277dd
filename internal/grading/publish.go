package grading

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FailedUpdate is a record whose status write did not go through.
type FailedUpdate struct {
	RecordID int64  `json:"recordId"`
	Err      string `json:"error"`
}

// PublishResult reports what a publish call did.
type PublishResult struct {
	OfferingID       int64          `json:"offeringId"`
	BatchID          string         `json:"batchId"`
	Total            int            `json:"total"`
	AlreadyPublished int            `json:"alreadyPublished"`
	Skipped          int            `json:"skipped"`
	Attempted        int            `json:"attempted"`
	Succeeded        int            `json:"succeeded"`
	Failed           []FailedUpdate `json:"failed,omitempty"`
}

// Partial reports whether any attempted write failed. The offering may then
// be left with both published and unpublished records.
func (r PublishResult) Partial() bool {
	return r.Succeeded < r.Attempted
}

// NothingToPublish reports whether the offering had no records at all.
func (r PublishResult) NothingToPublish() bool {
	return r.Total == 0
}

// PendingPublication returns the ids of records still waiting to be
// published, in input order.
func PendingPublication(records []ScoreRecord) []int64 {
	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		if rec.Status.CanTransitionTo(StatusPublished) {
			ids = append(ids, rec.ID)
		}
	}
	return ids
}

// Publisher drives the Unpublished -> Published transition.
type Publisher struct {
	repo   Repository
	atomic bool
	logger zerolog.Logger
}

// PublisherOption customises a Publisher.
type PublisherOption func(*Publisher)

// WithAtomicBatch makes the publisher use BatchPublisher when the repository
// offers it. Enabled by default.
func WithAtomicBatch(enabled bool) PublisherOption {
	return func(p *Publisher) { p.atomic = enabled }
}

// WithLogger attaches a logger to the publisher.
func WithLogger(l zerolog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = l }
}

// NewPublisher creates a Publisher backed by repo.
func NewPublisher(repo Repository, opts ...PublisherOption) *Publisher {
	p := &Publisher{repo: repo, atomic: true, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish makes every unpublished record of the offering visible.
// Records already published are left untouched, so calling Publish again is
// harmless. Records carrying an unknown status are counted in Skipped and
// never written. Write failures do not abort the batch: they are listed in the
// result and the caller decides whether to retry. Only a failure to load the
// offering's records is returned as an error.
func (p *Publisher) Publish(ctx context.Context, offeringID int64) (PublishResult, error) {
	result := PublishResult{
		OfferingID: offeringID,
		BatchID:    uuid.NewString(),
	}
	log := p.logger.With().Int64("offeringID", offeringID).Str("batchID", result.BatchID).Logger()

	records, err := p.repo.GetRecordsForOffering(ctx, offeringID)
	if err != nil {
		return result, fmt.Errorf("loading records of offering %d: %w", offeringID, err)
	}
	result.Total = len(records)
	if result.NothingToPublish() {
		log.Info().Msg("Nothing to publish")
		return result, nil
	}

	pending := PendingPublication(records)
	for _, rec := range records {
		switch {
		case !rec.Status.Known():
			result.Skipped++
			log.Warn().Int64("recordID", rec.ID).Str("status", string(rec.Status)).Msg("Skipping record with unknown status")
		case rec.Status.IsPublished():
			result.AlreadyPublished++
		}
	}
	result.Attempted = len(pending)
	if len(pending) == 0 {
		log.Info().Int("records", result.Total).Msg("Offering already fully published")
		return result, nil
	}

	if batch, ok := p.repo.(BatchPublisher); ok && p.atomic {
		return p.publishBatch(ctx, batch, pending, result, log), nil
	}

	for _, id := range pending {
		err := p.repo.UpdateRecordStatus(ctx, id, StatusPublished)
		if errors.Is(err, ErrInvalidTransition) {
			// Published by another writer since the read.
			result.Attempted--
			result.AlreadyPublished++
			continue
		}
		if err != nil {
			log.Warn().Err(err).Int64("recordID", id).Msg("Failed to publish record")
			result.Failed = append(result.Failed, FailedUpdate{RecordID: id, Err: err.Error()})
			continue
		}
		result.Succeeded++
	}

	p.logResult(log, result)
	return result, nil
}

func (p *Publisher) publishBatch(ctx context.Context, batch BatchPublisher, pending []int64, result PublishResult, log zerolog.Logger) PublishResult {
	n, err := batch.PublishRecords(ctx, result.OfferingID, pending)
	if err != nil {
		log.Error().Err(err).Int("attempted", len(pending)).Msg("Atomic publish failed, nothing was written")
		for _, id := range pending {
			result.Failed = append(result.Failed, FailedUpdate{RecordID: id, Err: err.Error()})
		}
		return result
	}
	result.Succeeded = n
	// Records published concurrently between the read and the write are
	// neither failures nor ours.
	if n < len(pending) {
		result.AlreadyPublished += len(pending) - n
		result.Attempted = n
	}
	p.logResult(log, result)
	return result
}

func (p *Publisher) logResult(log zerolog.Logger, result PublishResult) {
	event := log.Info()
	if result.Partial() {
		event = log.Warn()
	}
	event.
		Int("attempted", result.Attempted).
		Int("succeeded", result.Succeeded).
		Int("failed", len(result.Failed)).
		Int("alreadyPublished", result.AlreadyPublished).
		Int("skipped", result.Skipped).
		Msg("Publish finished")
}
