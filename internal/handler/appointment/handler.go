package appointment

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medilink/clinic-api/internal/calendar"
	"github.com/medilink/clinic-api/internal/handler"
	"github.com/medilink/clinic-api/internal/middleware"
	"github.com/medilink/clinic-api/internal/model"
	"github.com/medilink/clinic-api/internal/service/consultation"
	"github.com/medilink/clinic-api/internal/service/scheduling"
)

type Records interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	ListForClinician(ctx context.Context, clinicianID string) ([]*model.Appointment, error)
}

type Scheduler interface {
	Schedule(ctx context.Context, req scheduling.ScheduleRequest) ([]*model.Appointment, error)
	Edit(ctx context.Context, id uuid.UUID, update *model.AppointmentUpdate) (*model.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, in consultation.Input) (*model.Appointment, *model.Consultation, error)
	SendReminder(ctx context.Context, id uuid.UUID) error
}

type Handler struct {
	records   Records
	scheduler Scheduler
	now       func() time.Time
}

func NewHandler(records Records, scheduler Scheduler) *Handler {
	return &Handler{records: records, scheduler: scheduler, now: time.Now}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("", h.ListAppointments)
		appointments.POST("", h.CreateAppointment)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PUT("/:id", h.UpdateAppointment)
		appointments.DELETE("/:id", h.DeleteAppointment)
		appointments.POST("/:id/cancel", h.CancelAppointment)
		appointments.POST("/:id/complete", h.CompleteAppointment)
		appointments.POST("/:id/reminder", h.SendReminder)
	}
}

// RegisterSharedRoutes registers the routes open to both participants.
func (h *Handler) RegisterSharedRoutes(r *gin.RouterGroup) {
	r.GET("/appointments/:id/links", h.GetLinks)
	r.GET("/appointments/:id/invite.ics", h.DownloadInvite)
}

// owned loads the appointment and checks that the caller is its clinician.
func (h *Handler) owned(c *gin.Context) (*model.Appointment, bool) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return nil, false
	}
	apt, err := h.records.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return nil, false
	}
	if apt.ClinicianID != middleware.UserID(c) {
		handler.RespondError(c, model.ErrNotOwner)
		return nil, false
	}
	return apt, true
}

// participant loads the appointment and checks that the caller is its
// clinician or its patient.
func (h *Handler) participant(c *gin.Context) (*model.Appointment, bool) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return nil, false
	}
	apt, err := h.records.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return nil, false
	}
	user := middleware.UserID(c)
	if apt.ClinicianID != user && apt.PatientID != user {
		handler.RespondError(c, model.ErrNotOwner)
		return nil, false
	}
	return apt, true
}

func (h *Handler) ListAppointments(c *gin.Context) {
	appointments, err := h.records.ListForClinician(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": appointments})
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	sr := scheduling.ScheduleRequest{
		ClinicianID:    middleware.UserID(c),
		ClinicianEmail: middleware.UserEmail(c),
		PatientID:      req.PatientID,
		Title:          req.Title,
		Category:       req.Category,
		Start:          req.Start,
		End:            req.End,
		Description:    req.Description,
		Status:         req.Status,
	}
	if req.Recurrence != nil {
		sr.Frequency = req.Recurrence.Frequency
		sr.Count = req.Recurrence.Count
	}

	appointments, err := h.scheduler.Schedule(c.Request.Context(), sr)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": appointments})
}

func (h *Handler) GetAppointment(c *gin.Context) {
	apt, ok := h.owned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": apt})
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	apt, ok := h.owned(c)
	if !ok {
		return
	}

	var req model.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	updated, err := h.scheduler.Edit(c.Request.Context(), apt.ID, req.ToUpdate())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": updated})
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	apt, ok := h.owned(c)
	if !ok {
		return
	}

	updated, err := h.scheduler.Cancel(c.Request.Context(), apt.ID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": updated})
}

func (h *Handler) CompleteAppointment(c *gin.Context) {
	apt, ok := h.owned(c)
	if !ok {
		return
	}

	var req model.CompleteAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	in := consultation.Input{
		Observations: req.Observations,
		Exams:        req.Exams,
		Medications:  req.Medications,
	}
	if req.VisitDate != nil {
		in.VisitDate = *req.VisitDate
	}

	updated, note, err := h.scheduler.Complete(c.Request.Context(), apt.ID, in)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{
		"appointment":  updated,
		"consultation": note,
	}})
}

func (h *Handler) SendReminder(c *gin.Context) {
	apt, ok := h.owned(c)
	if !ok {
		return
	}

	if err := h.scheduler.SendReminder(c.Request.Context(), apt.ID); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "reminder sent"})
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	apt, ok := h.owned(c)
	if !ok {
		return
	}

	if err := h.scheduler.Delete(c.Request.Context(), apt.ID); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "appointment deleted"})
}

func (h *Handler) GetLinks(c *gin.Context) {
	apt, ok := h.participant(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": calendar.Links(apt)})
}

func (h *Handler) DownloadInvite(c *gin.Context) {
	apt, ok := h.participant(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="appointment-%s.ics"`, apt.ID))
	c.Data(http.StatusOK, calendar.ICSContentType, []byte(calendar.Invite(apt, h.now())))
}
