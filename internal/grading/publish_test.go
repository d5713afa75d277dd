package grading

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo keeps records in a map and can fail chosen writes.
type fakeRepo struct {
	records   map[int64]ScoreRecord
	failWrite map[int64]error
	readErr   error
	writes    int
}

func newFakeRepo(records ...ScoreRecord) *fakeRepo {
	repo := &fakeRepo{records: map[int64]ScoreRecord{}, failWrite: map[int64]error{}}
	for _, r := range records {
		repo.records[r.ID] = r
	}
	return repo
}

func (f *fakeRepo) GetRecordsForOffering(_ context.Context, offeringID int64) ([]ScoreRecord, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	out := []ScoreRecord{}
	for _, r := range f.records {
		if r.OfferingID == offeringID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) GetAllRecordsForStudent(_ context.Context, studentID int64) ([]ScoreRecord, error) {
	out := []ScoreRecord{}
	for _, r := range f.records {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateRecordStatus(_ context.Context, recordID int64, status PublicationStatus) error {
	f.writes++
	if err := f.failWrite[recordID]; err != nil {
		return err
	}
	r, ok := f.records[recordID]
	if !ok {
		return ErrRecordNotFound
	}
	if !r.Status.CanTransitionTo(status) {
		return ErrInvalidTransition
	}
	r.Status = status
	f.records[recordID] = r
	return nil
}

// batchRepo adds an all-or-nothing batch write to fakeRepo.
type batchRepo struct {
	*fakeRepo
	batchErr   error
	batchCalls int
}

func (b *batchRepo) PublishRecords(_ context.Context, offeringID int64, ids []int64) (int, error) {
	b.batchCalls++
	if b.batchErr != nil {
		return 0, b.batchErr
	}
	n := 0
	for _, id := range ids {
		r := b.records[id]
		if r.OfferingID == offeringID && r.Status.CanTransitionTo(StatusPublished) {
			r.Status = StatusPublished
			b.records[id] = r
			n++
		}
	}
	return n, nil
}

// racingRepo publishes chosen records behind the publisher's back right
// after they have been read.
type racingRepo struct {
	*fakeRepo
	publishAfterRead []int64
}

func (r *racingRepo) GetRecordsForOffering(ctx context.Context, offeringID int64) ([]ScoreRecord, error) {
	records, err := r.fakeRepo.GetRecordsForOffering(ctx, offeringID)
	for _, id := range r.publishAfterRead {
		rec := r.records[id]
		rec.Status = StatusPublished
		r.records[id] = rec
	}
	return records, err
}

func offeringRecords(offering int64, n int) []ScoreRecord {
	out := make([]ScoreRecord, 0, n)
	for i := 1; i <= n; i++ {
		id := offering*100 + int64(i)
		out = append(out, flat(id, offering, int64(i), 70))
	}
	return out
}

func TestPendingPublication(t *testing.T) {
	published := flat(2, 1, 2, 80)
	published.Status = StatusPublished
	legacy := flat(3, 1, 3, 80)
	legacy.Status = ""

	got := PendingPublication([]ScoreRecord{flat(1, 1, 1, 80), published, legacy})
	assert.Equal(t, []int64{1, 3}, got)
	assert.Empty(t, PendingPublication(nil))
}

func TestPublishTransitionsEveryRecord(t *testing.T) {
	repo := newFakeRepo(offeringRecords(1, 4)...)
	repo.records[999] = flat(999, 2, 1, 50) // other offering

	result, err := NewPublisher(repo).Publish(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.OfferingID)
	assert.NotEmpty(t, result.BatchID)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 4, result.Attempted)
	assert.Equal(t, 4, result.Succeeded)
	assert.False(t, result.Partial())
	assert.Empty(t, result.Failed)

	for id, r := range repo.records {
		if r.OfferingID == 1 {
			assert.Equal(t, StatusPublished, r.Status, "record %d", id)
		}
	}
	assert.Equal(t, StatusUnpublished, repo.records[999].Status)
}

func TestPublishIsIdempotent(t *testing.T) {
	repo := newFakeRepo(offeringRecords(1, 3)...)
	publisher := NewPublisher(repo)

	first, err := publisher.Publish(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Succeeded)

	second, err := publisher.Publish(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Succeeded)
	assert.Equal(t, 0, second.Attempted)
	assert.Equal(t, 3, second.AlreadyPublished)
	assert.Equal(t, 3, repo.writes, "second call must not write")
	assert.NotEqual(t, first.BatchID, second.BatchID)

	summary := Aggregator{Status: StatusAllPublished}.Summarize(mustRecords(t, repo, 1))
	assert.Equal(t, StatusPublished, summary.Status)
}

func TestPublishSkipsAlreadyPublished(t *testing.T) {
	records := offeringRecords(1, 3)
	records[1].Status = StatusPublished
	repo := newFakeRepo(records...)

	result, err := NewPublisher(repo).Publish(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.AlreadyPublished)
	assert.Equal(t, 2, result.Attempted)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 2, repo.writes)
}

func TestPublishConcurrentlyPublishedRecord(t *testing.T) {
	records := offeringRecords(1, 3)
	repo := &racingRepo{fakeRepo: newFakeRepo(records...), publishAfterRead: []int64{records[1].ID}}

	result, err := NewPublisher(repo).Publish(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempted)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.AlreadyPublished)
	assert.Empty(t, result.Failed)
	assert.False(t, result.Partial())
	for _, r := range repo.records {
		assert.Equal(t, StatusPublished, r.Status)
	}
}

func TestPublishSkipsUnknownStatus(t *testing.T) {
	records := offeringRecords(1, 3)
	records[0].Status = "DRAFT"
	repo := newFakeRepo(records...)

	result, err := NewPublisher(repo).Publish(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, result.AlreadyPublished)
	assert.Equal(t, 2, result.Attempted)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, PublicationStatus("DRAFT"), repo.records[records[0].ID].Status)
}

func TestPublishEmptyOffering(t *testing.T) {
	repo := newFakeRepo()

	result, err := NewPublisher(repo).Publish(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, result.NothingToPublish())
	assert.Zero(t, result.Attempted)
	assert.Zero(t, result.Succeeded)
	assert.False(t, result.Partial())
}

func TestPublishPartialFailure(t *testing.T) {
	records := offeringRecords(1, 5)
	repo := newFakeRepo(records...)
	boom := errors.New("connection reset")
	repo.failWrite[records[1].ID] = boom
	repo.failWrite[records[3].ID] = boom

	result, err := NewPublisher(repo).Publish(context.Background(), 1)
	require.NoError(t, err, "write failures are reported in the result")
	assert.Equal(t, 5, result.Attempted)
	assert.Equal(t, 3, result.Succeeded)
	assert.True(t, result.Partial())
	require.Len(t, result.Failed, 2)
	assert.Equal(t, records[1].ID, result.Failed[0].RecordID)
	assert.Equal(t, records[3].ID, result.Failed[1].RecordID)
	assert.Equal(t, "connection reset", result.Failed[0].Err)

	// The mixed state shows through the aggregate policies.
	current := mustRecords(t, repo, 1)
	assert.Equal(t, StatusPublished, Aggregator{Status: StatusAnyPublished}.Summarize(current).Status)
	assert.Equal(t, StatusUnpublished, Aggregator{Status: StatusAllPublished}.Summarize(current).Status)

	// Retrying picks up exactly the failed records.
	delete(repo.failWrite, records[1].ID)
	delete(repo.failWrite, records[3].ID)
	retry, err := NewPublisher(repo).Publish(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, retry.Attempted)
	assert.Equal(t, 2, retry.Succeeded)
	assert.Equal(t, 3, retry.AlreadyPublished)
}

func TestPublishReadFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.readErr = errors.New("db down")

	_, err := NewPublisher(repo).Publish(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestPublishUsesAtomicBatch(t *testing.T) {
	repo := &batchRepo{fakeRepo: newFakeRepo(offeringRecords(1, 3)...)}

	result, err := NewPublisher(repo).Publish(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.batchCalls)
	assert.Zero(t, repo.writes, "single-record writes must not be used")
	assert.Equal(t, 3, result.Succeeded)
	assert.False(t, result.Partial())
}

func TestPublishAtomicBatchFailureWritesNothing(t *testing.T) {
	repo := &batchRepo{fakeRepo: newFakeRepo(offeringRecords(1, 3)...), batchErr: errors.New("serialization failure")}

	result, err := NewPublisher(repo).Publish(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Attempted)
	assert.Zero(t, result.Succeeded)
	assert.Len(t, result.Failed, 3)
	assert.True(t, result.Partial())
	for _, r := range repo.records {
		assert.Equal(t, StatusUnpublished, r.Status)
	}
}

func TestPublishAtomicBatchDisabled(t *testing.T) {
	repo := &batchRepo{fakeRepo: newFakeRepo(offeringRecords(1, 2)...)}

	result, err := NewPublisher(repo, WithAtomicBatch(false)).Publish(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, repo.batchCalls)
	assert.Equal(t, 2, repo.writes)
	assert.Equal(t, 2, result.Succeeded)
}

func mustRecords(t *testing.T, repo Repository, offeringID int64) []ScoreRecord {
	t.Helper()
	records, err := repo.GetRecordsForOffering(context.Background(), offeringID)
	require.NoError(t, err)
	return records
}
