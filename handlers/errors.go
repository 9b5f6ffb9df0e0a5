package handlers

import (
	"errors"
	"net/http"

	"procounsellor/services/appointment"
	"procounsellor/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{appointment.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
	{appointment.ErrCounsellorNotFound, http.StatusNotFound, "counsellor_not_found"},
	{appointment.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{appointment.ErrAppointmentNotFound, http.StatusNotFound, "appointment_not_found"},
	{appointment.ErrOutsidePolicy, http.StatusUnprocessableEntity, "outside_policy"},
	{appointment.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{appointment.ErrSlotTaken, http.StatusConflict, "slot_taken"},
	{appointment.ErrDuplicatePending, http.StatusConflict, "duplicate_pending"},
	{appointment.ErrTransactionConflict, http.StatusConflict, "transaction_conflict"},
	{appointment.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
}

// writeError maps a service error onto an HTTP response.
func (h *AppointmentHandler) writeError(c *gin.Context, op string, err error) {
	for _, e := range errorStatus {
		if !errors.Is(err, e.err) {
			continue
		}
		resp := utils.ErrorResponse{Error: e.err.Error(), Code: e.code}

		var reqErr *appointment.RequestError
		var policyErr *appointment.PolicyError
		switch {
		case errors.As(err, &reqErr):
			resp.Field = reqErr.Field
			resp.Details = reqErr.Message
		case errors.As(err, &policyErr):
			resp.Reason = string(policyErr.Reason)
			resp.Details = policyErr.Message
		}

		if e.status >= http.StatusInternalServerError {
			h.Logger.Error(op+": failed", zap.Error(err))
		} else {
			h.Logger.Debug(op+": rejected", zap.String("code", e.code), zap.Error(err))
		}
		utils.JSONError(c, e.status, resp)
		return
	}

	h.Logger.Error(op+": unexpected error", zap.Error(err))
	utils.JSONError(c, http.StatusInternalServerError, utils.ErrorResponse{
		Error: "Internal Server Error",
		Code:  "internal",
	})
}
