package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups the endpoint handlers registered by the router.
type HandlerBundle struct {
	// Appointment endpoints
	BookAppointment             gin.HandlerFunc
	GetAppointment              gin.HandlerFunc
	GetUserAppointments         gin.HandlerFunc
	GetUpcomingUserAppointments gin.HandlerFunc
	GetCounsellorAppointments   gin.HandlerFunc
	CancelAppointment           gin.HandlerFunc

	// Health endpoint
	Health gin.HandlerFunc
}

// NewHandlerBundle collects the appointment handler's methods.
func NewHandlerBundle(ah *AppointmentHandler, health gin.HandlerFunc) *HandlerBundle {
	return &HandlerBundle{
		BookAppointment:             ah.BookAppointment,
		GetAppointment:              ah.GetAppointment,
		GetUserAppointments:         ah.GetUserAppointments,
		GetUpcomingUserAppointments: ah.GetUpcomingUserAppointments,
		GetCounsellorAppointments:   ah.GetCounsellorAppointments,
		CancelAppointment:           ah.CancelAppointment,
		Health:                      health,
	}
}
