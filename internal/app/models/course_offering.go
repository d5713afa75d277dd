package models

// CourseOffering is one scheduled run of a course: a teacher, a semester,
// a room and a time slot. Scheduling owns these rows; the grading service only reads them.
type CourseOffering struct {
	ID        int64  `json:"id" db:"id"`
	CourseID  int64  `json:"courseId" db:"course_id"`
	TeacherID int64  `json:"teacherId" db:"teacher_id"`
	Semester  string `json:"semester" db:"semester"`
	Room      string `json:"room" db:"room"`
	TimeSlot  string `json:"timeSlot" db:"time_slot"`

	// Relations (populated when needed)
	Course *Course `json:"course,omitempty"`
}
