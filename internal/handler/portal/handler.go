package portal

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medilink/clinic-api/internal/handler"
	"github.com/medilink/clinic-api/internal/middleware"
	"github.com/medilink/clinic-api/internal/model"
)

type Records interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	ListForPatient(ctx context.Context, patientID string) ([]*model.Appointment, error)
}

type Scheduler interface {
	Confirm(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
}

// Handler serves the patient portal, where patients see their own
// appointments and answer reminders.
type Handler struct {
	records   Records
	scheduler Scheduler
}

func NewHandler(records Records, scheduler Scheduler) *Handler {
	return &Handler{records: records, scheduler: scheduler}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	portal := r.Group("/portal/appointments")
	{
		portal.GET("", h.ListAppointments)
		portal.POST("/:id/confirm", h.ConfirmAppointment)
		portal.POST("/:id/cancel", h.CancelAppointment)
	}
}

func (h *Handler) ListAppointments(c *gin.Context) {
	appointments, err := h.records.ListForPatient(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": appointments})
}

func (h *Handler) own(c *gin.Context) (uuid.UUID, bool) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return uuid.Nil, false
	}
	apt, err := h.records.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return uuid.Nil, false
	}
	if apt.PatientID != middleware.UserID(c) {
		handler.RespondError(c, model.ErrNotOwner)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) ConfirmAppointment(c *gin.Context) {
	id, ok := h.own(c)
	if !ok {
		return
	}
	apt, err := h.scheduler.Confirm(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": apt})
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	id, ok := h.own(c)
	if !ok {
		return
	}
	apt, err := h.scheduler.Cancel(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": apt})
}
