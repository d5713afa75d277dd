package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/gradebook/internal/app/models"
	"github.com/yigit/gradebook/internal/pkg/apperrors"
	"github.com/yigit/gradebook/internal/pkg/logger"
)

// OfferingRepository reads course offerings and their courses.
type OfferingRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewOfferingRepository creates a new OfferingRepository
func NewOfferingRepository(db *pgxpool.Pool) *OfferingRepository {
	return &OfferingRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *OfferingRepository) selectOfferingQuery() squirrel.SelectBuilder {
	return r.sb.Select(
		"o.id", "o.course_id", "o.teacher_id", "o.semester", "o.room", "o.time_slot",
		"c.id", "c.code", "c.name", "c.credits",
	).
		From("course_offerings o").
		Join("courses c ON c.id = o.course_id")
}

func scanOffering(row pgx.Row) (*models.CourseOffering, error) {
	offering := &models.CourseOffering{Course: &models.Course{}}
	err := row.Scan(
		&offering.ID,
		&offering.CourseID,
		&offering.TeacherID,
		&offering.Semester,
		&offering.Room,
		&offering.TimeSlot,
		&offering.Course.ID,
		&offering.Course.Code,
		&offering.Course.Name,
		&offering.Course.Credits,
	)
	if err != nil {
		return nil, err
	}
	return offering, nil
}

// GetByID retrieves an offering with its course.
func (r *OfferingRepository) GetByID(ctx context.Context, id int64) (*models.CourseOffering, error) {
	sql, args, err := r.selectOfferingQuery().
		Where(squirrel.Eq{"o.id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get offering query: %w", err)
	}

	offering, err := scanOffering(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewOfferingNotFoundError(id)
		}
		logger.Error().Err(err).Int64("offeringID", id).Msg("Error scanning offering row")
		return nil, fmt.Errorf("error getting offering by ID: %w", err)
	}

	return offering, nil
}

// ListBySemester lists the offerings of a semester, or all offerings when
// semester is empty.
func (r *OfferingRepository) ListBySemester(ctx context.Context, semester string) ([]*models.CourseOffering, error) {
	builder := r.selectOfferingQuery().OrderBy("o.id ASC")
	if semester != "" {
		builder = builder.Where(squirrel.Eq{"o.semester": semester})
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list offerings query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("semester", semester).Msg("Error querying offerings")
		return nil, fmt.Errorf("error querying offerings: %w", err)
	}
	defer rows.Close()

	offerings := []*models.CourseOffering{}
	for rows.Next() {
		offering, err := scanOffering(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning offering row: %w", err)
		}
		offerings = append(offerings, offering)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating offering rows: %w", err)
	}

	return offerings, nil
}

// UpsertCourse inserts a course or refreshes it by code, returning its id.
func (r *OfferingRepository) UpsertCourse(ctx context.Context, course *models.Course) error {
	sql, args, err := r.sb.Insert("courses").
		Columns("code", "name", "credits").
		Values(course.Code, course.Name, course.Credits).
		Suffix("ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, credits = EXCLUDED.credits RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert course query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&course.ID); err != nil {
		logger.Error().Err(err).Str("code", course.Code).Msg("Error upserting course")
		return fmt.Errorf("error upserting course: %w", err)
	}
	return nil
}

// CreateOffering inserts an offering.
func (r *OfferingRepository) CreateOffering(ctx context.Context, offering *models.CourseOffering) error {
	sql, args, err := r.sb.Insert("course_offerings").
		Columns("course_id", "teacher_id", "semester", "room", "time_slot").
		Values(offering.CourseID, offering.TeacherID, offering.Semester, offering.Room, offering.TimeSlot).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create offering query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&offering.ID); err != nil {
		logger.Error().Err(err).Msg("Error creating offering")
		return fmt.Errorf("error creating offering: %w", err)
	}
	return nil
}
