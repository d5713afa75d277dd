package memstoretest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/gradebook/internal/grading"
)

func addRecords(t *testing.T, store *Store, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for student := int64(1); student <= int64(n); student++ {
		r := &grading.ScoreRecord{OfferingID: 1, StudentID: student, Final: grading.Score(70)}
		require.NoError(t, store.CreateRecord(context.Background(), r))
		ids = append(ids, r.ID)
	}
	return ids
}

func TestFailUpdates(t *testing.T) {
	ctx := context.Background()
	store := New()
	ids := addRecords(t, store, 1)

	boom := errors.New("disk full")
	store.FailUpdates(boom, ids[0])
	assert.ErrorIs(t, store.UpdateRecordStatus(ctx, ids[0], grading.StatusPublished), boom)

	store.ClearFailures()
	assert.NoError(t, store.UpdateRecordStatus(ctx, ids[0], grading.StatusPublished))
}

func TestAtomicStoreRejectsWholeBatch(t *testing.T) {
	ctx := context.Background()
	store := New()
	ids := addRecords(t, store, 3)
	atomic := store.Atomic()

	store.FailUpdates(errors.New("deadlock"), ids[1])
	n, err := atomic.PublishRecords(ctx, 1, ids)
	require.Error(t, err)
	assert.Zero(t, n)
	records, err := store.GetRecordsForOffering(ctx, 1)
	require.NoError(t, err)
	for _, r := range records {
		assert.Equal(t, grading.StatusUnpublished, r.Status)
	}

	store.ClearFailures()
	n, err = atomic.PublishRecords(ctx, 1, ids)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
