// Package controllers handles HTTP request handling
package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/gradebook/internal/app/models/dto"
	"github.com/yigit/gradebook/internal/app/services"
	"github.com/yigit/gradebook/internal/middleware"
)

// GradingController serves offering statistics, anomalies and publication
type GradingController struct {
	gradingService services.GradingService
	logger         zerolog.Logger
}

// NewGradingController creates a new GradingController
func NewGradingController(gradingService services.GradingService, logger zerolog.Logger) *GradingController {
	return &GradingController{
		gradingService: gradingService,
		logger:         logger,
	}
}

// Health reports that the API is up
func (c *GradingController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}, ""))
}

// ListOfferings returns every offering of a semester with its summary.
// An empty semester lists all offerings.
func (c *GradingController) ListOfferings(ctx *gin.Context) {
	var query dto.SemesterQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		middleware.HandleBindError(ctx, err, "Invalid semester")
		return
	}

	reports, err := c.gradingService.SemesterOverview(ctx, query.Semester)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	items := make([]dto.OfferingSummaryResponse, 0, len(reports))
	for _, r := range reports {
		items = append(items, dto.NewOfferingSummaryResponse(r.Offering, r.Summary, r.Anomaly))
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(items, ""))
}

// GetSummary returns the statistics of one offering
func (c *GradingController) GetSummary(ctx *gin.Context) {
	var uri dto.OfferingURI
	if err := ctx.ShouldBindUri(&uri); err != nil {
		middleware.HandleBindError(ctx, err, "Invalid offering ID")
		return
	}

	report, err := c.gradingService.Summary(ctx, uri.ID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(
		dto.NewOfferingSummaryResponse(report.Offering, report.Summary, report.Anomaly), ""))
}

// GetAnomalies lists the record anomalies of one offering
func (c *GradingController) GetAnomalies(ctx *gin.Context) {
	var uri dto.OfferingURI
	if err := ctx.ShouldBindUri(&uri); err != nil {
		middleware.HandleBindError(ctx, err, "Invalid offering ID")
		return
	}
	var query dto.AnomalyQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		middleware.HandleBindError(ctx, err, "Invalid anomaly policy")
		return
	}

	report, err := c.gradingService.Anomalies(ctx, uri.ID, query.Policy)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.AnomalyListResponse{
		OfferingID: report.OfferingID,
		Policy:     report.Policy,
		Count:      len(report.Anomalies),
		Anomalies:  report.Anomalies,
	}, ""))
}

// Publish publishes every unpublished record of an offering. A publish that
// only partly succeeded answers 207 with the failed records.
func (c *GradingController) Publish(ctx *gin.Context) {
	var uri dto.OfferingURI
	if err := ctx.ShouldBindUri(&uri); err != nil {
		middleware.HandleBindError(ctx, err, "Invalid offering ID")
		return
	}

	result, err := c.gradingService.Publish(ctx, uri.ID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	resp := dto.NewPublishResponse(result)
	if resp.Partial {
		c.logger.Warn().
			Int64("offeringID", uri.ID).
			Int("failed", len(result.Failed)).
			Msg("Offering partially published")
		detail := dto.NewErrorDetail(dto.ErrorCodePartialPublish, "Some records could not be published").
			WithSeverity(dto.ErrorSeverityWarning)
		ctx.JSON(http.StatusMultiStatus, dto.APIResponse{
			Success:   false,
			Data:      resp,
			Error:     detail,
			RequestID: middleware.RequestIDFrom(ctx),
			Timestamp: time.Now(),
		})
		return
	}

	message := "Offering published"
	if result.NothingToPublish() {
		message = "Offering has no records"
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, message))
}
