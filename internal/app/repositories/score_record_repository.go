package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/gradebook/internal/db"
	"github.com/yigit/gradebook/internal/grading"
	"github.com/yigit/gradebook/internal/pkg/dberrors"
	"github.com/yigit/gradebook/internal/pkg/logger"
)

const scoreRecordsUniqueKey = "score_records_offering_student_key"

var scoreRecordColumns = []string{"id", "offering_id", "student_id", "quiz", "midterm", "final", "total", "status"}

// ScoreRecordRepository stores score records in PostgreSQL.
// It implements grading.Repository and grading.BatchPublisher.
type ScoreRecordRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

var (
	_ grading.Repository     = (*ScoreRecordRepository)(nil)
	_ grading.BatchPublisher = (*ScoreRecordRepository)(nil)
)

// NewScoreRecordRepository creates a new ScoreRecordRepository
func NewScoreRecordRepository(db *pgxpool.Pool) *ScoreRecordRepository {
	return &ScoreRecordRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateRecord inserts a record. The stored total is always the weighted
// total of the components. Malformed records are rejected before the insert.
func (r *ScoreRecordRepository) CreateRecord(ctx context.Context, record *grading.ScoreRecord) error {
	computed := record.WithComputedTotal()
	if err := computed.Validate(); err != nil {
		return err
	}

	sql, args, err := r.sb.Insert("score_records").
		Columns("offering_id", "student_id", "quiz", "midterm", "final", "total", "status").
		Values(computed.OfferingID, computed.StudentID, computed.Quiz, computed.Midterm, computed.Final, computed.Total, string(computed.Status)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create score record query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&computed.ID); err != nil {
		if dberrors.IsDuplicateConstraintError(err, scoreRecordsUniqueKey) {
			return grading.ErrDuplicateRecord
		}
		logger.Error().Err(err).Int64("offeringID", record.OfferingID).Int64("studentID", record.StudentID).Msg("Error creating score record")
		return fmt.Errorf("error creating score record: %w", err)
	}

	*record = computed
	return nil
}

// GetRecordsForOffering returns every record of an offering ordered by id.
func (r *ScoreRecordRepository) GetRecordsForOffering(ctx context.Context, offeringID int64) ([]grading.ScoreRecord, error) {
	return r.list(ctx, squirrel.Eq{"offering_id": offeringID})
}

// GetAllRecordsForStudent returns the student's records across all offerings.
func (r *ScoreRecordRepository) GetAllRecordsForStudent(ctx context.Context, studentID int64) ([]grading.ScoreRecord, error) {
	return r.list(ctx, squirrel.Eq{"student_id": studentID})
}

// GetRecordsForStudents returns the records of several students in one query.
func (r *ScoreRecordRepository) GetRecordsForStudents(ctx context.Context, studentIDs []int64) ([]grading.ScoreRecord, error) {
	if len(studentIDs) == 0 {
		return []grading.ScoreRecord{}, nil
	}
	return r.list(ctx, squirrel.Eq{"student_id": studentIDs})
}

func (r *ScoreRecordRepository) list(ctx context.Context, where squirrel.Sqlizer) ([]grading.ScoreRecord, error) {
	sql, args, err := r.sb.Select(scoreRecordColumns...).
		From("score_records").
		Where(where).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list score records query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying score records")
		return nil, fmt.Errorf("error querying score records: %w", err)
	}
	defer rows.Close()

	records := []grading.ScoreRecord{}
	for rows.Next() {
		record, err := scanScoreRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating score record rows: %w", err)
	}

	return records, nil
}

func scanScoreRecord(row pgx.Row) (grading.ScoreRecord, error) {
	var (
		record grading.ScoreRecord
		status string
	)
	if err := row.Scan(
		&record.ID,
		&record.OfferingID,
		&record.StudentID,
		&record.Quiz,
		&record.Midterm,
		&record.Final,
		&record.Total,
		&status,
	); err != nil {
		return grading.ScoreRecord{}, fmt.Errorf("error scanning score record row: %w", err)
	}
	record.Status = grading.PublicationStatus(status).Normalize()
	return record, nil
}

// UpdateRecordStatus moves one record to status. Only the
// Unpublished -> Published transition is accepted.
func (r *ScoreRecordRepository) UpdateRecordStatus(ctx context.Context, recordID int64, status grading.PublicationStatus) error {
	if !grading.StatusUnpublished.CanTransitionTo(status) {
		return grading.ErrInvalidTransition
	}

	sql, args, err := r.sb.Update("score_records").
		Set("status", string(status)).
		Set("published_at", squirrel.Expr("NOW()")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": recordID, "status": string(grading.StatusUnpublished)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update score record status query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("recordID", recordID).Msg("Error updating score record status")
		return fmt.Errorf("error updating score record status: %w", err)
	}
	if cmdTag.RowsAffected() > 0 {
		return nil
	}

	// Nothing changed: either the record is gone or it is already published.
	var exists bool
	err = r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM score_records WHERE id = $1)`, recordID).Scan(&exists)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("error checking score record existence: %w", err)
	}
	if !exists {
		return grading.ErrRecordNotFound
	}
	return grading.ErrInvalidTransition
}

// PublishRecords publishes the given records of one offering in a single
// transaction. Rows are locked first so a concurrent publisher blocks
// instead of double counting.
func (r *ScoreRecordRepository) PublishRecords(ctx context.Context, offeringID int64, recordIDs []int64) (int, error) {
	if len(recordIDs) == 0 {
		return 0, nil
	}

	lockSQL, lockArgs, err := r.sb.Select("id").
		From("score_records").
		Where(squirrel.Eq{"offering_id": offeringID, "id": recordIDs}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build lock score records query: %w", err)
	}

	updateSQL, updateArgs, err := r.sb.Update("score_records").
		Set("status", string(grading.StatusPublished)).
		Set("published_at", squirrel.Expr("NOW()")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{
			"offering_id": offeringID,
			"id":          recordIDs,
			"status":      string(grading.StatusUnpublished),
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build publish score records query: %w", err)
	}

	var published int
	err = db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, lockSQL, lockArgs...)
		if err != nil {
			return fmt.Errorf("error locking score records: %w", err)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error locking score records: %w", err)
		}

		cmdTag, err := tx.Exec(ctx, updateSQL, updateArgs...)
		if err != nil {
			return fmt.Errorf("error publishing score records: %w", err)
		}
		published = int(cmdTag.RowsAffected())
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Int64("offeringID", offeringID).Int("records", len(recordIDs)).Msg("Atomic publish failed")
		return 0, err
	}

	return published, nil
}
