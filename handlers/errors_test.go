package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"procounsellor/services/appointment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

func TestWriteErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &AppointmentHandler{Logger: zaptest.NewLogger(t)}

	tests := []struct {
		err  error
		want int
	}{
		{&appointment.RequestError{Field: "mode", Message: "bad"}, http.StatusBadRequest},
		{&appointment.PolicyError{Reason: appointment.ReasonInPast}, http.StatusUnprocessableEntity},
		{appointment.ErrSlotTaken, http.StatusConflict},
		{appointment.ErrDuplicatePending, http.StatusConflict},
		{fmt.Errorf("%w: 5 attempts", appointment.ErrTransactionConflict), http.StatusConflict},
		{fmt.Errorf("%w: timeout", appointment.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{appointment.ErrUserNotFound, http.StatusNotFound},
		{errors.New("surprise"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			h.writeError(c, "test", tt.err)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
