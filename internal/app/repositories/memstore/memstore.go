// Package memstore keeps offerings and score records in memory. It backs
// gradectl --memory runs against the demo data set and serves as the
// repository in tests.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/yigit/gradebook/internal/app/models"
	"github.com/yigit/gradebook/internal/grading"
	"github.com/yigit/gradebook/internal/pkg/apperrors"
)

type recordKey struct {
	offeringID int64
	studentID  int64
}

// Store is an in-memory grading.Repository. Status writes are applied one
// record at a time; use Atomic for a store that also publishes in batches.
type Store struct {
	mu        sync.RWMutex
	courses   map[string]models.Course
	offerings map[int64]models.CourseOffering
	records   map[int64]grading.ScoreRecord
	keys      map[recordKey]int64
	nextID    int64
}

var _ grading.Repository = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		courses:   map[string]models.Course{},
		offerings: map[int64]models.CourseOffering{},
		records:   map[int64]grading.ScoreRecord{},
		keys:      map[recordKey]int64{},
	}
}

func (s *Store) allocID() int64 {
	s.nextID++
	return s.nextID
}

// AddOffering stores an offering, assigning an id when it has none.
func (s *Store) AddOffering(offering models.CourseOffering) models.CourseOffering {
	s.mu.Lock()
	defer s.mu.Unlock()

	if offering.ID == 0 {
		offering.ID = s.allocID()
	} else if offering.ID > s.nextID {
		s.nextID = offering.ID
	}
	s.offerings[offering.ID] = offering
	return offering
}

// UpsertCourse stores a course keyed by code, keeping the id of an
// existing course with the same code.
func (s *Store) UpsertCourse(_ context.Context, course *models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.courses[course.Code]; ok {
		course.ID = existing.ID
	} else {
		course.ID = s.allocID()
	}
	s.courses[course.Code] = *course
	return nil
}

// CreateOffering stores a new offering, linking its course when known.
func (s *Store) CreateOffering(_ context.Context, offering *models.CourseOffering) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.courses {
		if c.ID == offering.CourseID {
			course := c
			offering.Course = &course
			break
		}
	}
	offering.ID = s.allocID()
	s.offerings[offering.ID] = *offering
	return nil
}

// GetByID returns an offering.
func (s *Store) GetByID(_ context.Context, id int64) (*models.CourseOffering, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	offering, ok := s.offerings[id]
	if !ok {
		return nil, apperrors.NewOfferingNotFoundError(id)
	}
	return &offering, nil
}

// ListBySemester lists offerings of a semester ordered by id. An empty
// semester lists everything.
func (s *Store) ListBySemester(_ context.Context, semester string) ([]*models.CourseOffering, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.CourseOffering{}
	for _, o := range s.offerings {
		if semester == "" || o.Semester == semester {
			offering := o
			out = append(out, &offering)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateRecord stores a record with its computed total. Malformed records
// are rejected with grading.ErrMalformedRecord and a second record for the
// same student and offering with grading.ErrDuplicateRecord.
func (s *Store) CreateRecord(_ context.Context, record *grading.ScoreRecord) error {
	computed := record.WithComputedTotal()
	if err := computed.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{offeringID: record.OfferingID, studentID: record.StudentID}
	if _, exists := s.keys[key]; exists {
		return grading.ErrDuplicateRecord
	}

	if computed.ID == 0 {
		computed.ID = s.allocID()
	} else if computed.ID > s.nextID {
		s.nextID = computed.ID
	}
	s.records[computed.ID] = computed
	s.keys[key] = computed.ID
	*record = computed
	return nil
}

func (s *Store) query(match func(grading.ScoreRecord) bool) []grading.ScoreRecord {
	out := []grading.ScoreRecord{}
	for _, r := range s.records {
		if match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetRecordsForOffering returns copies of the offering's records ordered by id.
func (s *Store) GetRecordsForOffering(_ context.Context, offeringID int64) ([]grading.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query(func(r grading.ScoreRecord) bool { return r.OfferingID == offeringID }), nil
}

// GetAllRecordsForStudent returns copies of the student's records ordered by id.
func (s *Store) GetAllRecordsForStudent(_ context.Context, studentID int64) ([]grading.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query(func(r grading.ScoreRecord) bool { return r.StudentID == studentID }), nil
}

// UpdateRecordStatus moves one record to status.
func (s *Store) UpdateRecordStatus(_ context.Context, recordID int64, status grading.PublicationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[recordID]
	if !ok {
		return grading.ErrRecordNotFound
	}
	if !record.Status.CanTransitionTo(status) {
		return grading.ErrInvalidTransition
	}
	record.Status = status
	s.records[recordID] = record
	return nil
}

// Atomic wraps the store so publishes go through grading.BatchPublisher.
func (s *Store) Atomic() *AtomicStore {
	return &AtomicStore{Store: s}
}

// AtomicStore is a Store that publishes a batch under a single lock, so
// readers see either none or all of the batch.
type AtomicStore struct {
	*Store
}

var _ grading.BatchPublisher = (*AtomicStore)(nil)

// PublishRecords publishes the pending records among recordIDs.
func (s *AtomicStore) PublishRecords(_ context.Context, offeringID int64, recordIDs []int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	published := 0
	for _, id := range recordIDs {
		record, ok := s.records[id]
		if !ok || record.OfferingID != offeringID || !record.Status.CanTransitionTo(grading.StatusPublished) {
			continue
		}
		record.Status = grading.StatusPublished
		s.records[id] = record
		published++
	}
	return published, nil
}
