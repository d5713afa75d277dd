// Package memstoretest provides a memstore.Store whose status writes can be
// made to fail.
package memstoretest

import (
	"context"
	"sync"

	"github.com/yigit/gradebook/internal/app/repositories/memstore"
	"github.com/yigit/gradebook/internal/grading"
)

// Store is a memstore.Store with injectable write failures.
type Store struct {
	*memstore.Store

	mu       sync.Mutex
	failures map[int64]error
}

// New creates an empty Store.
func New() *Store {
	return &Store{Store: memstore.New(), failures: map[int64]error{}}
}

// FailUpdates makes every status write to the given records fail with err
// until ClearFailures is called.
func (s *Store) FailUpdates(err error, recordIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range recordIDs {
		s.failures[id] = err
	}
}

// ClearFailures removes every injected failure.
func (s *Store) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = map[int64]error{}
}

func (s *Store) failure(recordIDs ...int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range recordIDs {
		if err := s.failures[id]; err != nil {
			return err
		}
	}
	return nil
}

// UpdateRecordStatus fails with the injected error, if any.
func (s *Store) UpdateRecordStatus(ctx context.Context, recordID int64, status grading.PublicationStatus) error {
	if err := s.failure(recordID); err != nil {
		return err
	}
	return s.Store.UpdateRecordStatus(ctx, recordID, status)
}

// Atomic wraps the store so publishes go through grading.BatchPublisher.
func (s *Store) Atomic() *AtomicStore {
	return &AtomicStore{Store: s, batch: s.Store.Atomic()}
}

// AtomicStore rejects a whole batch when any of its records has an injected
// failure.
type AtomicStore struct {
	*Store
	batch *memstore.AtomicStore
}

var _ grading.BatchPublisher = (*AtomicStore)(nil)

// PublishRecords publishes the pending records among recordIDs.
func (s *AtomicStore) PublishRecords(ctx context.Context, offeringID int64, recordIDs []int64) (int, error) {
	if err := s.failure(recordIDs...); err != nil {
		return 0, err
	}
	return s.batch.PublishRecords(ctx, offeringID, recordIDs)
}
