package models

// Date and time layouts shared by appointment documents and requests.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Delivery modes accepted for an appointment.
const (
	ModeCall     = "call"
	ModeVideo    = "video"
	ModeInPerson = "in-person"
)

// AppointmentRequest is the payload for booking a counsellor slot.
type AppointmentRequest struct {
	UserID         string `json:"userId" binding:"required"`
	CounsellorID   string `json:"counsellorId" binding:"required"`
	Date           string `json:"date" binding:"required"`
	StartTime      string `json:"startTime" binding:"required"`
	Mode           string `json:"mode" binding:"required"`
	Notes          string `json:"notes"`
	IdempotencyKey string `json:"-"`
}
