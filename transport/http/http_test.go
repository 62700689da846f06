package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"innkeeper/config"
	"innkeeper/infras/jwt"
	otelMocks "innkeeper/infras/otel/mocks"
	reservationDto "innkeeper/internal/domains/reservation/model/dto"
	reservationMocks "innkeeper/internal/domains/reservation/mocks"
	roomDto "innkeeper/internal/domains/room/model/dto"
	roomMocks "innkeeper/internal/domains/room/mocks"
	reservationHandler "innkeeper/internal/handlers/reservation"
	roomHandler "innkeeper/internal/handlers/room"
	"innkeeper/permissions"
	cacheMocks "innkeeper/shared/cache/mocks"
	"innkeeper/shared/constant"
	"innkeeper/transport/http/middleware"
	"innkeeper/transport/http/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	apiKey        = "internal-key"
	roomID        = "7c9e6679-7425-40de-944b-e07fc1f0d3c1"
	reservationID = "9f8d3c2a-5b61-4e7f-8a90-1c2d3e4f5a6b"
)

type server struct {
	http         *HTTP
	rooms        *roomMocks.MockRoomService
	reservations *reservationMocks.MockReservationService
	tokens       jwt.JWT
}

func newServer(t *testing.T) server {
	t.Helper()

	ctrl := gomock.NewController(t)

	cfg := &config.Config{}
	cfg.App.Name = "innkeeper"
	cfg.App.APIKey = apiKey
	cfg.App.CORS.Enable = true
	cfg.App.CORS.AllowedOrigins = []string{"https://desk.example.com"}
	cfg.App.CORS.AllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete}
	cfg.App.CORS.AllowedHeaders = []string{constant.RequestHeaderAuthorization, constant.RequestHeaderContentType}
	cfg.JWT.AccessSecret = "secret"

	otel := otelMocks.NewOtel()
	tokens := jwt.New(cfg)
	rooms := roomMocks.NewMockRoomService(ctrl)
	reservations := reservationMocks.NewMockReservationService(ctrl)

	routes := router.New(router.DomainHandlers{
		Room:        roomHandler.New(rooms, otel),
		Reservation: reservationHandler.New(reservations, otel),
	})

	h := New(
		cfg,
		routes,
		middleware.NewAppMiddleware(otel, cfg, cacheMocks.NewMockRedisCache(ctrl)),
		middleware.NewAuthRoleMiddleware(tokens, otel, permissions.Get(), cfg),
		otel,
	)

	return server{http: h, rooms: rooms, reservations: reservations, tokens: tokens}
}

func (s server) do(t *testing.T, req *http.Request, role string) *httptest.ResponseRecorder {
	t.Helper()

	if role != "" {
		token, err := s.tokens.GenerateToken("user-1", "", role, time.Hour)
		require.NoError(t, err)

		req.Header.Set(constant.RequestHeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.http.ServeHTTP(rec, req)

	return rec
}

func TestHTTP_Health(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ServerStateReady, s.http.State())

	s.http.setState(ServerStateInGracePeriod)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil), "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.rooms.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(roomDto.GetRoomsResponse{}, nil)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/v1/rooms", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code, "traffic is still served during the grace period")

	s.http.setState(ServerStateInCleanupPeriod)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/v1/rooms", nil), "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHTTP_Access(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		role     string
		apiKey   string
		expect   func(s server)
		wantCode int
	}{
		{
			name:   "room listing is public",
			method: http.MethodGet,
			target: "/v1/rooms/",
			expect: func(s server) {
				s.rooms.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(roomDto.GetRoomsResponse{}, nil)
			},
			wantCode: http.StatusOK,
		},
		{
			name:     "room create needs a token",
			method:   http.MethodPost,
			target:   "/v1/rooms/",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "room delete needs admin",
			method:   http.MethodDelete,
			target:   "/v1/rooms/" + roomID,
			role:     constant.RoleStaff,
			wantCode: http.StatusForbidden,
		},
		{
			name:   "admin deletes rooms",
			method: http.MethodDelete,
			target: "/v1/rooms/" + roomID,
			role:   constant.RoleAdmin,
			expect: func(s server) {
				s.rooms.EXPECT().Delete(gomock.Any(), roomID).Return(nil)
			},
			wantCode: http.StatusOK,
		},
		{
			name:   "guest reads a bill",
			method: http.MethodGet,
			target: "/v1/reservations/" + reservationID,
			role:   constant.RoleGuest,
			expect: func(s server) {
				s.reservations.EXPECT().Get(gomock.Any(), reservationID).Return(reservationDto.ReservationResponse{ID: "res-1"}, nil)
			},
			wantCode: http.StatusOK,
		},
		{
			name:     "guest cannot approve",
			method:   http.MethodPatch,
			target:   "/v1/reservations/" + reservationID + "/status",
			body:     `{"status":"APPROVED"}`,
			role:     constant.RoleGuest,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "guest cannot see the summary",
			method:   http.MethodGet,
			target:   "/v1/reservations/summary",
			role:     constant.RoleGuest,
			wantCode: http.StatusForbidden,
		},
		{
			name:   "staff approves",
			method: http.MethodPatch,
			target: "/v1/reservations/" + reservationID + "/status",
			body:   `{"status":"APPROVED"}`,
			role:   constant.RoleStaff,
			expect: func(s server) {
				s.reservations.EXPECT().SetStatus(gomock.Any(), reservationID, "APPROVED").Return(reservationDto.ReservationResponse{ID: "res-1"}, nil)
			},
			wantCode: http.StatusOK,
		},
		{
			name:   "internal caller with api key",
			method: http.MethodGet,
			target: "/v1/reservations/summary",
			apiKey: apiKey,
			expect: func(s server) {
				s.reservations.EXPECT().Summary(gomock.Any(), gomock.Any()).Return(reservationDto.SummaryResponse{}, nil)
			},
			wantCode: http.StatusOK,
		},
		{
			name:     "wrong api key",
			method:   http.MethodGet,
			target:   "/v1/reservations/summary",
			apiKey:   "guess",
			wantCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(t)

			if tt.expect != nil {
				tt.expect(s)
			}

			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.apiKey != "" {
				req.Header.Set(constant.RequestHeaderAPIKey, tt.apiKey)
			}

			rec := s.do(t, req, tt.role)

			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestHTTP_CORSPreflight(t *testing.T) {
	s := newServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/reservations", nil)
	req.Header.Set("Origin", "https://desk.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := s.do(t, req, "")

	assert.Equal(t, "https://desk.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Less(t, rec.Code, http.StatusBadRequest)
}

func TestHTTP_SwaggerOnlyInDevelopment(t *testing.T) {
	s := newServer(t)
	s.http.Config.Server.Env = constant.ServerEnvDevelopment

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "innkeeper API")
	assert.Contains(t, rec.Body.String(), "/v1/reservations/{id}/status")
}
