package grading

import (
	"context"
	"errors"
)

// Repository errors shared by every implementation.
var (
	ErrRecordNotFound    = errors.New("score record not found")
	ErrDuplicateRecord   = errors.New("a score record for this student and offering already exists")
	ErrInvalidTransition = errors.New("publication status cannot move backwards")
)

// Repository is what the engine needs from score storage.
type Repository interface {
	GetRecordsForOffering(ctx context.Context, offeringID int64) ([]ScoreRecord, error)
	// GetAllRecordsForStudent is only used by the cross-offering policy.
	GetAllRecordsForStudent(ctx context.Context, studentID int64) ([]ScoreRecord, error)
	UpdateRecordStatus(ctx context.Context, recordID int64, status PublicationStatus) error
}

// BatchPublisher is implemented by repositories able to publish several
// records of one offering in a single atomic write. It returns the number of
// records that changed state.
type BatchPublisher interface {
	PublishRecords(ctx context.Context, offeringID int64, recordIDs []int64) (int, error)
}
