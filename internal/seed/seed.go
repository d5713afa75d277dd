package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	appModels "github.com/yigit/gradebook/internal/app/models"
	"github.com/yigit/gradebook/internal/grading"
)

// DemoSemester is the semester the demo data lives in.
const DemoSemester = "2024-2025-1"

// OfferingWriter is the offering storage the seeder writes to.
type OfferingWriter interface {
	ListBySemester(ctx context.Context, semester string) ([]*appModels.CourseOffering, error)
	UpsertCourse(ctx context.Context, course *appModels.Course) error
	CreateOffering(ctx context.Context, offering *appModels.CourseOffering) error
}

// RecordWriter is the score record storage the seeder writes to.
type RecordWriter interface {
	CreateRecord(ctx context.Context, record *grading.ScoreRecord) error
}

type demoRecord struct {
	studentID            int64
	quiz, midterm, final float64
	status               grading.PublicationStatus
}

type demoOffering struct {
	courseCode string
	teacherID  int64
	room       string
	timeSlot   string
	records    []demoRecord
}

var demoCourses = []appModels.Course{
	{Code: "CS101", Name: "数据结构", Credits: 4},
	{Code: "CS102", Name: "操作系统", Credits: 3},
	{Code: "CS103", Name: "计算机网络", Credits: 3},
	{Code: "CS104", Name: "数据库原理", Credits: 4},
	{Code: "SE101", Name: "Java程序设计", Credits: 2},
}

var demoOfferings = []demoOffering{
	{
		courseCode: "CS101", teacherID: 1, room: "A101", timeSlot: "Mon 1-2",
		records: []demoRecord{
			{studentID: 1, quiz: 87.5, midterm: 85, final: 88, status: grading.StatusPublished},
			{studentID: 2, quiz: 75, midterm: 70, final: 60, status: grading.StatusPublished},
		},
	},
	{
		courseCode: "CS102", teacherID: 2, room: "B202", timeSlot: "Tue 3-4",
		records: []demoRecord{
			{studentID: 3, quiz: 80, midterm: 55, final: 82},
			{studentID: 4, quiz: 50, midterm: 48, final: 45},
		},
	},
	{
		courseCode: "SE101", teacherID: 3, room: "C303", timeSlot: "Wed 5-6",
		records: []demoRecord{
			{studentID: 1, quiz: 95, midterm: 92, final: 96},
			{studentID: 5, quiz: 91, midterm: 94, final: 90},
		},
	},
}

// CreateDefaultData creates the demo courses, offerings and score records.
// Nothing is written when the demo semester already has offerings. It
// returns the number of records created.
func CreateDefaultData(ctx context.Context, offerings OfferingWriter, records RecordWriter, lgr zerolog.Logger) (int, error) {
	existing, err := offerings.ListBySemester(ctx, DemoSemester)
	if err != nil {
		return 0, fmt.Errorf("checking existing offerings: %w", err)
	}
	if len(existing) > 0 {
		lgr.Info().Str("semester", DemoSemester).Msg("Demo data already present, skipping")
		return 0, nil
	}

	lgr.Info().Msg("Creating demo data (courses/offerings/score records)...")

	courseIDs := make(map[string]int64, len(demoCourses))
	for _, c := range demoCourses {
		course := c
		if err := offerings.UpsertCourse(ctx, &course); err != nil {
			return 0, fmt.Errorf("creating course %s: %w", course.Code, err)
		}
		courseIDs[course.Code] = course.ID
	}

	created := 0
	for _, d := range demoOfferings {
		offering := &appModels.CourseOffering{
			CourseID:  courseIDs[d.courseCode],
			TeacherID: d.teacherID,
			Semester:  DemoSemester,
			Room:      d.room,
			TimeSlot:  d.timeSlot,
		}
		if err := offerings.CreateOffering(ctx, offering); err != nil {
			return created, fmt.Errorf("creating offering of %s: %w", d.courseCode, err)
		}

		for _, r := range d.records {
			record := &grading.ScoreRecord{
				OfferingID: offering.ID,
				StudentID:  r.studentID,
				Quiz:       grading.Score(r.quiz),
				Midterm:    grading.Score(r.midterm),
				Final:      grading.Score(r.final),
				Status:     r.status,
			}
			err := records.CreateRecord(ctx, record)
			if errors.Is(err, grading.ErrDuplicateRecord) {
				continue
			}
			if err != nil {
				return created, fmt.Errorf("creating score record of student %d: %w", r.studentID, err)
			}
			created++
		}
	}

	lgr.Info().Int("records", created).Msg("Demo data created")
	return created, nil
}
