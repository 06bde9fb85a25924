package consultation

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medilink/clinic-api/internal/handler"
	"github.com/medilink/clinic-api/internal/model"
	"github.com/medilink/clinic-api/internal/service/consultation"
)

type Service interface {
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Consultation, error)
	Update(ctx context.Context, id uuid.UUID, u consultation.Update) (*model.Consultation, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	consultations := r.Group("/consultations")
	{
		consultations.GET("/by-appointment/:id", h.GetByAppointment)
		consultations.PUT("/:id", h.UpdateConsultation)
	}
}

func (h *Handler) GetByAppointment(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	note, err := h.service.GetByAppointment(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": note})
}

func (h *Handler) UpdateConsultation(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	note, err := h.service.Update(c.Request.Context(), id, consultation.Update{
		Observations: req.Observations,
		Exams:        req.Exams,
		Medications:  req.Medications,
		VisitDate:    req.VisitDate,
	})
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": note})
}
