package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"parkly/internal/shared/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantMsg    string
	}{
		{"validation", apperrors.Validation(nil, "Minimum booking duration is 1 hours"), http.StatusBadRequest, "validation", "Minimum booking duration is 1 hours"},
		{"not found", apperrors.NotFound(nil, "Booking not found"), http.StatusNotFound, "not_found", "Booking not found"},
		{"conflict", apperrors.Conflict(nil, "Parking spot is not available"), http.StatusConflict, "conflict", "Parking spot is not available"},
		{"unauthenticated", apperrors.Unauthenticated(nil, "Invalid email or password"), http.StatusUnauthorized, "authentication", "Invalid email or password"},
		{"forbidden", apperrors.Forbidden(nil, "Access denied"), http.StatusForbidden, "authorization", "Access denied"},
		{"funds", apperrors.InsufficientFunds(nil, "Insufficient wallet balance"), http.StatusPaymentRequired, "insufficient_funds", "Insufficient wallet balance"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "internal", "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			RespondError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body struct {
				Status     string            `json:"status"`
				StatusCode int               `json:"status_code"`
				Message    string            `json:"message"`
				Errors     map[string]string `json:"errors"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "error", body.Status)
			assert.Equal(t, tt.wantStatus, body.StatusCode)
			assert.Equal(t, tt.wantMsg, body.Message)
			assert.Equal(t, tt.wantKind, body.Errors["kind"])
		})
	}
}
