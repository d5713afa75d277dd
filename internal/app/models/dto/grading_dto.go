package dto

import (
	"github.com/yigit/gradebook/internal/app/models"
	"github.com/yigit/gradebook/internal/grading"
)

// OfferingURI binds the :id path segment
type OfferingURI struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// AnomalyQuery binds the anomaly listing query string
type AnomalyQuery struct {
	Policy string `form:"policy" binding:"omitempty,oneof=midterm_final cross_offering both"`
}

// SemesterQuery binds the offering listing query string
type SemesterQuery struct {
	Semester string `form:"semester" binding:"omitempty,max=32"`
}

// OfferingResponse describes an offering
type OfferingResponse struct {
	ID         int64  `json:"id"`
	CourseID   int64  `json:"courseId"`
	CourseCode string `json:"courseCode,omitempty"`
	CourseName string `json:"courseName,omitempty"`
	TeacherID  int64  `json:"teacherId"`
	Semester   string `json:"semester"`
	Room       string `json:"room"`
	TimeSlot   string `json:"timeSlot"`
}

// OfferingSummaryResponse is an offering with its statistics and review flag
type OfferingSummaryResponse struct {
	Offering *OfferingResponse       `json:"offering,omitempty"`
	Summary  grading.OfferingSummary `json:"summary"`
	Abnormal bool                    `json:"abnormal"`
	Reasons  []string                `json:"reasons,omitempty"`
}

// AnomalyListResponse lists record anomalies of an offering
type AnomalyListResponse struct {
	OfferingID int64                   `json:"offeringId"`
	Policy     string                  `json:"policy"`
	Count      int                     `json:"count"`
	Anomalies  []grading.RecordAnomaly `json:"anomalies"`
}

// PublishResponse reports the outcome of a publish request
type PublishResponse struct {
	grading.PublishResult
	Partial bool `json:"partial"`
}

// NewOfferingResponse converts an offering model
func NewOfferingResponse(offering *models.CourseOffering) *OfferingResponse {
	if offering == nil {
		return nil
	}
	resp := &OfferingResponse{
		ID:        offering.ID,
		CourseID:  offering.CourseID,
		TeacherID: offering.TeacherID,
		Semester:  offering.Semester,
		Room:      offering.Room,
		TimeSlot:  offering.TimeSlot,
	}
	if offering.Course != nil {
		resp.CourseCode = offering.Course.Code
		resp.CourseName = offering.Course.Name
	}
	return resp
}

// NewOfferingSummaryResponse builds the summary payload
func NewOfferingSummaryResponse(offering *models.CourseOffering, summary grading.OfferingSummary, anomaly *grading.OfferingAnomaly) OfferingSummaryResponse {
	resp := OfferingSummaryResponse{
		Offering: NewOfferingResponse(offering),
		Summary:  summary,
	}
	if anomaly != nil {
		resp.Abnormal = true
		resp.Reasons = anomaly.Reasons
	}
	return resp
}

// NewPublishResponse wraps a publish result
func NewPublishResponse(result grading.PublishResult) PublishResponse {
	return PublishResponse{PublishResult: result, Partial: result.Partial()}
}
