package patient

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medilink/clinic-api/internal/handler"
	"github.com/medilink/clinic-api/internal/model"
)

type Directory interface {
	Get(ctx context.Context, id string) (*model.Patient, error)
	List(ctx context.Context) ([]*model.Patient, error)
}

type Appointments interface {
	ListForPatient(ctx context.Context, patientID string) ([]*model.Appointment, error)
}

type Consultations interface {
	ListForPatient(ctx context.Context, patientID string) ([]*model.Consultation, error)
}

type Handler struct {
	patients      Directory
	appointments  Appointments
	consultations Consultations
}

func NewHandler(patients Directory, appointments Appointments, consultations Consultations) *Handler {
	return &Handler{
		patients:      patients,
		appointments:  appointments,
		consultations: consultations,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.GET("", h.ListPatients)
		patients.GET("/:id", h.GetPatient)
		patients.GET("/:id/appointments", h.ListAppointments)
		patients.GET("/:id/consultations", h.ListConsultations)
	}
}

func (h *Handler) ListPatients(c *gin.Context) {
	patients, err := h.patients.List(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": patients})
}

func (h *Handler) GetPatient(c *gin.Context) {
	p, err := h.patients.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": p})
}

func (h *Handler) ListAppointments(c *gin.Context) {
	appointments, err := h.appointments.ListForPatient(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": appointments})
}

func (h *Handler) ListConsultations(c *gin.Context) {
	consultations, err := h.consultations.ListForPatient(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": consultations})
}
