package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/gradebook/internal/app/models/dto"
	"github.com/yigit/gradebook/internal/grading"
	"github.com/yigit/gradebook/internal/pkg/apperrors"
	"github.com/yigit/gradebook/internal/pkg/dberrors"
	"github.com/yigit/gradebook/internal/pkg/logger"
)

// errorMapping ties a sentinel error to its HTTP status and API code.
type errorMapping struct {
	target  error
	status  int
	code    dto.ErrorCode
	message string
}

var errorMappings = []errorMapping{
	{apperrors.ErrOfferingNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Course offering not found"},
	{grading.ErrRecordNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Score record not found"},
	{apperrors.ErrPublishInProgress, http.StatusConflict, dto.ErrorCodePublishInProgress, "A publish of this offering is already in progress"},
	{grading.ErrDuplicateRecord, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Score record already exists"},
	{grading.ErrInvalidTransition, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Publication status cannot move backwards"},
	{grading.ErrUnknownPolicy, http.StatusBadRequest, dto.ErrorCodeUnknownPolicy, "Unknown anomaly detection policy"},
	{grading.ErrMalformedRecord, http.StatusBadRequest, dto.ErrorCodeResourceInvalid, "Malformed score record"},
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			detail := dto.NewErrorDetail(m.code, m.message)
			var custom *apperrors.CustomError
			if errors.As(err, &custom) {
				detail.Message = custom.Error()
				if custom.Details != nil {
					detail = detail.WithDetails(custom.Details)
				}
			}
			writeError(c, m.status, detail)
			return
		}
	}

	if dberrors.IsSerializationFailure(err) {
		logger.Warn().Err(err).Str("requestID", RequestIDFrom(c)).Msg("Database serialization failure")
		detail := dto.NewErrorDetail(dto.ErrorCodeDatabaseError, "The database is busy, retry the request").
			WithSeverity(dto.ErrorSeverityWarning)
		writeError(c, http.StatusServiceUnavailable, detail)
		return
	}

	logger.Error().Err(err).Str("requestID", RequestIDFrom(c)).Str("path", c.Request.URL.Path).Msg("Unhandled API error")
	writeError(c, http.StatusInternalServerError,
		dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").WithSeverity(dto.ErrorSeverityCritical))
}

// HandleBindError answers a request whose path or query failed validation.
func HandleBindError(c *gin.Context, err error, message string) {
	detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, message).WithDetails(bindErrorDetails(err))
	writeError(c, http.StatusBadRequest, detail)
}

func writeError(c *gin.Context, status int, detail *dto.ErrorDetail) {
	c.AbortWithStatusJSON(status, dto.APIResponse{
		Success:   false,
		Error:     detail,
		RequestID: RequestIDFrom(c),
		Timestamp: time.Now(),
	})
}
