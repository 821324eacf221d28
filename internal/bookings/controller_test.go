package bookings

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parkly/internal/shared/config"
	"parkly/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "booking-test-secret"

func newTestRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}
	engine := gin.New()
	SetupBookingRoutes(engine.Group("/api/v1"), cfg, NewController(f.svc))
	return engine
}

func bearer(t *testing.T, p users.Principal) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": p.UserID.String(),
		"role":    string(p.Role),
		"email":   "someone@parkly.test",
		"type":    "access",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func doJSON(t *testing.T, router *gin.Engine, method, path, auth string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateBookingEndpointInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	customer := f.customer("10")

	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings", bearer(t, customer), f.request(f.spot, "e_wallet", entry, exit))

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient_funds")
}

func TestBookingEndpointsRoundTrip(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	customer := f.customer("100")
	auth := bearer(t, customer)

	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings", auth, f.request(f.spot, "e_wallet", entry, exit))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data CreateBookingResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, StatusConfirmed, created.Data.Status)
	assert.True(t, created.Data.BookingFee.Equal(decimal.NewFromInt(30)))

	w = doJSON(t, router, http.MethodPut, "/api/v1/bookings/cancel/"+created.Data.BookingID.String(), auth, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var cancelled struct {
		Data CancelBookingResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cancelled))
	assert.True(t, cancelled.Data.RefundAmount.Equal(decimal.NewFromInt(30)))

	w = doJSON(t, router, http.MethodPut, "/api/v1/bookings/cancel/"+created.Data.BookingID.String(), auth, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBookingEndpointsRequireCustomerRole(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	employee := users.Principal{UserID: f.manager, Role: users.RoleEmployee}

	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings", bearer(t, employee), f.request(f.spot, "cash", entry, exit))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/bookings", "", f.request(f.spot, "cash", entry, exit))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
