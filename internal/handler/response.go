package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medilink/clinic-api/internal/middleware"
	"github.com/medilink/clinic-api/internal/model"
	apperrors "github.com/medilink/clinic-api/pkg/errors"
	"github.com/medilink/clinic-api/pkg/httputil"
)

// RespondError maps domain errors onto API errors and writes the envelope.
func RespondError(c *gin.Context, err error) {
	httputil.RespondWithError(c, toAppError(err))
}

func toAppError(err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, model.ErrAppointmentNotFound):
		return apperrors.NotFound("appointment", err)
	case errors.Is(err, model.ErrPatientNotFound):
		return apperrors.NotFound("patient", err)
	case errors.Is(err, model.ErrConsultationNotFound):
		return apperrors.NotFound("consultation", err)
	case errors.Is(err, model.ErrConsultationExists):
		return apperrors.Conflict(model.ErrConsultationExists.Error(), err)
	case errors.Is(err, model.ErrInvalidTimeRange),
		errors.Is(err, model.ErrInvalidCategory),
		errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, model.ErrInvalidFrequency),
		errors.Is(err, model.ErrNoPhone):
		return apperrors.BadRequest(err.Error(), err)
	case errors.Is(err, model.ErrNotOwner):
		return apperrors.Forbidden(err)
	}
	return apperrors.Internal(err)
}

// RespondBindError reports a request binding failure, listing field errors
// when the body failed validation.
func RespondBindError(c *gin.Context, err error) {
	_ = c.Error(err)
	if fields := middleware.ValidationErrors(err); fields != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "validation failed",
			"errors":  fields,
		})
		return
	}
	httputil.RespondWithMessage(c, http.StatusBadRequest, "invalid request body")
}

// ParseID reads a uuid path parameter, writing a 400 when it is malformed.
func ParseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httputil.RespondWithMessage(c, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
