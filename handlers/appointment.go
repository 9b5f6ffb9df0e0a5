package handlers

import (
	"net/http"

	"procounsellor/middleware"
	"procounsellor/models"
	"procounsellor/services/appointment"
	"procounsellor/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AppointmentHandler serves the appointment booking endpoints.
type AppointmentHandler struct {
	AppointmentSvc appointment.AppointmentService
	Logger         *zap.Logger
}

func NewAppointmentHandler(svc appointment.AppointmentService, logger *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{AppointmentSvc: svc, Logger: logger}
}

func (h *AppointmentHandler) caller(c *gin.Context) (string, bool) {
	id, ok := middleware.AuthenticatedUser(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, utils.ErrorResponse{Error: "Insufficient authorization", Code: "unauthorized"})
	}
	return id, ok
}

func forbidden(c *gin.Context) {
	utils.JSONError(c, http.StatusForbidden, utils.ErrorResponse{
		Error: "You are not allowed to access this resource",
		Code:  "forbidden",
	})
}

// BookAppointment handles POST /api/appointments.
func (h *AppointmentHandler) BookAppointment(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}

	var req models.AppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Logger.Debug("BookAppointment: invalid payload", zap.Error(err))
		utils.JSONError(c, http.StatusBadRequest, utils.ErrorResponse{
			Error:   "Invalid request payload",
			Code:    "invalid_request",
			Details: err.Error(),
		})
		return
	}
	if req.UserID != callerID {
		forbidden(c)
		return
	}
	req.IdempotencyKey = c.GetHeader(utils.IdempotencyKeyHeader)

	appt, err := h.AppointmentSvc.Book(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, "BookAppointment", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":       "Appointment booked successfully",
		"appointmentId": appt.ID,
		"appointment":   appt,
	})
}

// GetAppointment handles GET /api/appointments/:id. Only the owning user or the
// counsellor may read an appointment; anyone else gets 404.
func (h *AppointmentHandler) GetAppointment(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}
	appt, err := h.AppointmentSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "GetAppointment", err)
		return
	}
	if appt.UserID != callerID && appt.CounsellorID != callerID {
		h.writeError(c, "GetAppointment", appointment.ErrAppointmentNotFound)
		return
	}
	c.JSON(http.StatusOK, appt)
}

// GetUserAppointments handles GET /api/appointments/user/:userId.
func (h *AppointmentHandler) GetUserAppointments(c *gin.Context) {
	userID := c.Param("userId")
	if callerID, ok := h.caller(c); !ok {
		return
	} else if callerID != userID {
		forbidden(c)
		return
	}
	appts, err := h.AppointmentSvc.GetByUser(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, "GetUserAppointments", err)
		return
	}
	c.JSON(http.StatusOK, appts)
}

// GetUpcomingUserAppointments handles GET /api/appointments/user/:userId/upcoming.
func (h *AppointmentHandler) GetUpcomingUserAppointments(c *gin.Context) {
	userID := c.Param("userId")
	if callerID, ok := h.caller(c); !ok {
		return
	} else if callerID != userID {
		forbidden(c)
		return
	}
	appts, err := h.AppointmentSvc.GetUpcomingByUser(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, "GetUpcomingUserAppointments", err)
		return
	}
	c.JSON(http.StatusOK, appts)
}

// GetCounsellorAppointments handles GET /api/appointments/counsellor/:counsellorId.
func (h *AppointmentHandler) GetCounsellorAppointments(c *gin.Context) {
	counsellorID := c.Param("counsellorId")
	if callerID, ok := h.caller(c); !ok {
		return
	} else if callerID != counsellorID {
		forbidden(c)
		return
	}
	appts, err := h.AppointmentSvc.GetByCounsellor(c.Request.Context(), counsellorID)
	if err != nil {
		h.writeError(c, "GetCounsellorAppointments", err)
		return
	}
	c.JSON(http.StatusOK, appts)
}

// CancelAppointment handles POST /api/appointments/:id/cancel.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}
	appt, err := h.AppointmentSvc.Cancel(c.Request.Context(), callerID, c.Param("id"))
	if err != nil {
		h.writeError(c, "CancelAppointment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Appointment cancelled",
		"appointment": appt,
	})
}
