package calendar

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/medilink/clinic-api/internal/calendar"
	"github.com/medilink/clinic-api/internal/handler"
	"github.com/medilink/clinic-api/internal/middleware"
	"github.com/medilink/clinic-api/internal/model"
	"github.com/medilink/clinic-api/pkg/httputil"
)

// Handler lets clinicians connect their external calendar.
type Handler struct {
	tokens calendar.TokenProvider
	now    func() time.Time
}

func NewHandler(tokens calendar.TokenProvider) *Handler {
	return &Handler{tokens: tokens, now: time.Now}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	cal := r.Group("/calendar")
	{
		cal.GET("/connect", h.Connect)
		cal.GET("/status", h.Status)
		cal.POST("/token", h.StoreToken)
		cal.DELETE("/token", h.Disconnect)
	}
}

func (h *Handler) Connect(c *gin.Context) {
	state := uuid.New().String()
	url := h.tokens.AuthURL(state)
	if url == "" {
		httputil.RespondWithMessage(c, http.StatusServiceUnavailable, "calendar integration is not configured")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{
		"url":   url,
		"state": state,
	}})
}

func (h *Handler) Status(c *gin.Context) {
	connected := h.tokens.Connected(c.Request.Context(), middleware.UserID(c))
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"connected": connected}})
}

func (h *Handler) StoreToken(c *gin.Context) {
	var req model.CalendarTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	tok := &oauth2.Token{
		AccessToken:  req.AccessToken,
		TokenType:    req.TokenType,
		RefreshToken: req.RefreshToken,
		Expiry:       h.now().Add(time.Duration(req.ExpiresIn) * time.Second),
	}
	if err := h.tokens.Store(c.Request.Context(), middleware.UserID(c), tok); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{
		"connected":  true,
		"expires_at": tok.Expiry,
	}})
}

func (h *Handler) Disconnect(c *gin.Context) {
	if err := h.tokens.Revoke(c.Request.Context(), middleware.UserID(c)); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "calendar disconnected"})
}
