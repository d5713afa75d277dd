package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/yigit/gradebook/internal/app/models"
	"github.com/yigit/gradebook/internal/grading"
	"github.com/yigit/gradebook/internal/pkg/apperrors"
	"github.com/yigit/gradebook/internal/pkg/lock"
)

// OfferingStore is the read access the service needs to offerings.
type OfferingStore interface {
	GetByID(ctx context.Context, id int64) (*models.CourseOffering, error)
	ListBySemester(ctx context.Context, semester string) ([]*models.CourseOffering, error)
}

// studentHistoryLoader is implemented by repositories able to fetch several
// students' records in one round trip.
type studentHistoryLoader interface {
	GetRecordsForStudents(ctx context.Context, studentIDs []int64) ([]grading.ScoreRecord, error)
}

// OfferingReport is an offering together with its derived statistics.
type OfferingReport struct {
	Offering *models.CourseOffering
	Summary  grading.OfferingSummary
	Anomaly  *grading.OfferingAnomaly
}

// Abnormal reports whether the offering needs review.
func (r OfferingReport) Abnormal() bool {
	return r.Anomaly != nil
}

// AnomalyReport lists the record anomalies of one offering under one policy.
type AnomalyReport struct {
	OfferingID int64
	Policy     string
	Anomalies  []grading.RecordAnomaly
}

// GradingService defines the grading operations exposed to transports
type GradingService interface {
	Summary(ctx context.Context, offeringID int64) (*OfferingReport, error)
	Anomalies(ctx context.Context, offeringID int64, policy string) (*AnomalyReport, error)
	Publish(ctx context.Context, offeringID int64) (grading.PublishResult, error)
	SemesterOverview(ctx context.Context, semester string) ([]OfferingReport, error)
}

// GradingOptions tunes the service.
type GradingOptions struct {
	StatusPolicy  grading.StatusPolicy
	AnomalyPolicy string
	AtomicPublish bool
}

// DefaultGradingOptions returns the options used when none are configured.
func DefaultGradingOptions() GradingOptions {
	return GradingOptions{
		StatusPolicy:  grading.StatusAnyPublished,
		AnomalyPolicy: grading.PolicyMidtermFinal,
		AtomicPublish: true,
	}
}

// gradingServiceImpl implements the GradingService interface
type gradingServiceImpl struct {
	offerings  OfferingStore
	records    grading.Repository
	locker     lock.Locker
	aggregator grading.Aggregator
	publisher  *grading.Publisher
	opts       GradingOptions
	logger     zerolog.Logger
}

// NewGradingService creates a new grading service instance
func NewGradingService(
	offerings OfferingStore,
	records grading.Repository,
	locker lock.Locker,
	opts GradingOptions,
	logger zerolog.Logger,
) GradingService {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	publisher := grading.NewPublisher(records,
		grading.WithAtomicBatch(opts.AtomicPublish),
		grading.WithLogger(logger),
	)
	return &gradingServiceImpl{
		offerings:  offerings,
		records:    records,
		locker:     locker,
		aggregator: grading.Aggregator{Status: opts.StatusPolicy},
		publisher:  publisher,
		opts:       opts,
		logger:     logger,
	}
}

func (s *gradingServiceImpl) report(ctx context.Context, offering *models.CourseOffering) (*OfferingReport, error) {
	records, err := s.records.GetRecordsForOffering(ctx, offering.ID)
	if err != nil {
		return nil, fmt.Errorf("loading records of offering %d: %w", offering.ID, err)
	}

	summary := s.aggregator.SummarizeOffering(offering.ID, records)
	if summary.Skipped > 0 {
		s.logger.Warn().Int64("offeringID", offering.ID).Int("skipped", summary.Skipped).Msg("Malformed score records left out of summary")
	}

	report := &OfferingReport{Offering: offering, Summary: summary}
	if anomaly, ok := grading.DetectOfferingAnomaly(summary); ok {
		report.Anomaly = &anomaly
	}
	return report, nil
}

// Summary computes the statistics of one offering.
func (s *gradingServiceImpl) Summary(ctx context.Context, offeringID int64) (*OfferingReport, error) {
	offering, err := s.offerings.GetByID(ctx, offeringID)
	if err != nil {
		return nil, err
	}
	return s.report(ctx, offering)
}

// Anomalies scans the offering's records with the named policy, or the
// configured default when policy is empty.
func (s *gradingServiceImpl) Anomalies(ctx context.Context, offeringID int64, policy string) (*AnomalyReport, error) {
	if policy == "" {
		policy = s.opts.AnomalyPolicy
	}
	if _, err := grading.ParsePolicyName(policy, nil); err != nil {
		return nil, err
	}

	if _, err := s.offerings.GetByID(ctx, offeringID); err != nil {
		return nil, err
	}

	records, err := s.records.GetRecordsForOffering(ctx, offeringID)
	if err != nil {
		return nil, fmt.Errorf("loading records of offering %d: %w", offeringID, err)
	}

	var history []grading.ScoreRecord
	if grading.NeedsHistory(policy) {
		history, err = s.loadHistory(ctx, records)
		if err != nil {
			return nil, err
		}
	}

	detector, err := grading.ParsePolicyName(policy, history)
	if err != nil {
		return nil, err
	}

	anomalies := grading.DetectAll(records, detector)
	if anomalies == nil {
		anomalies = []grading.RecordAnomaly{}
	}
	return &AnomalyReport{
		OfferingID: offeringID,
		Policy:     detector.Name(),
		Anomalies:  anomalies,
	}, nil
}

// loadHistory fetches every record of the students enrolled in the offering.
func (s *gradingServiceImpl) loadHistory(ctx context.Context, records []grading.ScoreRecord) ([]grading.ScoreRecord, error) {
	seen := map[int64]struct{}{}
	students := make([]int64, 0, len(records))
	for _, rec := range records {
		if rec.StudentID == 0 {
			continue
		}
		if _, ok := seen[rec.StudentID]; ok {
			continue
		}
		seen[rec.StudentID] = struct{}{}
		students = append(students, rec.StudentID)
	}

	if loader, ok := s.records.(studentHistoryLoader); ok {
		history, err := loader.GetRecordsForStudents(ctx, students)
		if err != nil {
			return nil, fmt.Errorf("loading student history: %w", err)
		}
		return history, nil
	}

	var history []grading.ScoreRecord
	for _, studentID := range students {
		recs, err := s.records.GetAllRecordsForStudent(ctx, studentID)
		if err != nil {
			return nil, fmt.Errorf("loading history of student %d: %w", studentID, err)
		}
		history = append(history, recs...)
	}
	return history, nil
}

// Publish makes the offering's records visible. Only one publish per
// offering runs at a time; a concurrent call fails with
// apperrors.ErrPublishInProgress.
func (s *gradingServiceImpl) Publish(ctx context.Context, offeringID int64) (grading.PublishResult, error) {
	if _, err := s.offerings.GetByID(ctx, offeringID); err != nil {
		return grading.PublishResult{OfferingID: offeringID}, err
	}

	release, err := s.locker.TryLock(ctx, "offering:"+strconv.FormatInt(offeringID, 10))
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return grading.PublishResult{OfferingID: offeringID}, apperrors.ErrPublishInProgress
		}
		return grading.PublishResult{OfferingID: offeringID}, fmt.Errorf("acquiring publish lock: %w", err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn().Err(err).Int64("offeringID", offeringID).Msg("Failed to release publish lock")
		}
	}()

	return s.publisher.Publish(ctx, offeringID)
}

// SemesterOverview summarises every offering of a semester.
func (s *gradingServiceImpl) SemesterOverview(ctx context.Context, semester string) ([]OfferingReport, error) {
	offerings, err := s.offerings.ListBySemester(ctx, semester)
	if err != nil {
		return nil, err
	}

	reports := make([]OfferingReport, 0, len(offerings))
	for _, offering := range offerings {
		report, err := s.report(ctx, offering)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, nil
}
