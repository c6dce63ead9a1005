package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appauth "github.com/yigit/moim/internal/app/auth"
	"github.com/yigit/moim/internal/app/controllers"
	"github.com/yigit/moim/internal/app/models/dto"
	"github.com/yigit/moim/internal/app/notify"
	"github.com/yigit/moim/internal/app/repositories/memstore"
	"github.com/yigit/moim/internal/app/routes"
	"github.com/yigit/moim/internal/app/services"
	"github.com/yigit/moim/internal/middleware"
	"github.com/yigit/moim/internal/pkg/auth"
	"github.com/yigit/moim/internal/pkg/push"
	"github.com/yigit/moim/internal/pkg/validation"
)

const cronSecret = "sweep-secret"

type apiHarness struct {
	t      *testing.T
	router *gin.Engine
	jwt    *auth.JWTService
	now    time.Time
}

func newHarness(t *testing.T, checks map[string]controllers.CheckFunc) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, validation.RegisterRules())

	h := &apiHarness{t: t, now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return h.now }
	log := zerolog.Nop()

	store := memstore.New()
	require.NoError(t, store.AddAdmin(context.Background(), "root"))

	dispatcher := notify.NewDispatcher(notify.Config{
		Inbox:  store,
		Tokens: store,
		Sender: push.NewLogSender(log),
		Clock:  clock,
		Logger: log,
	})
	authz := appauth.NewRegistryAuthorizer(store)
	settings := services.DefaultRoomSettings()

	lifecycle := services.NewLifecycleService(store, dispatcher, 30*24*time.Hour, clock, log)
	rooms := services.NewRoomService(store, lifecycle, dispatcher, settings, clock, log)
	votes := services.NewVoteService(store, lifecycle, settings, clock, log)
	admin := services.NewAdminService(store, clock, log)
	profile := services.NewProfileService(store, authz, clock, log)
	feedback := services.NewFeedbackService(store, clock, log)

	if checks == nil {
		checks = map[string]controllers.CheckFunc{"store": store.Ping}
	}

	h.jwt = auth.NewJWTService(auth.JWTConfig{SecretKey: "test", AccessTokenExp: time.Hour, TokenIssuer: "moim.test"})
	hash, err := auth.HashCronSecret(cronSecret)
	require.NoError(t, err)

	h.router = gin.New()
	routes.SetupRouter(h.router, routes.Controllers{
		Room:    controllers.NewRoomController(rooms, votes, lifecycle),
		Admin:   controllers.NewAdminController(admin, rooms, feedback),
		Profile: controllers.NewProfileController(profile, feedback),
		System:  controllers.NewSystemController(lifecycle, checks),
	}, middleware.NewAuthMiddleware(h.jwt, authz), auth.NewCronSecretVerifier(hash))

	return h
}

func (h *apiHarness) do(method, path, uid string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	h.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		token, err := h.jwt.IssueToken(uid, uid)
		require.NoError(h.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *apiHarness) createRoom(uid string, capacity int) string {
	h.t.Helper()
	w := h.do(http.MethodPost, "/api/v1/rooms/create", uid, dto.CreateRoomRequest{
		Title:    "Board games",
		Location: "Library",
		StartAt:  h.now.Add(2 * time.Hour).Format(time.RFC3339),
		Capacity: capacity,
	})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data dto.CreateRoomResponse `json:"data"`
	}
	require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(h.t, resp.Data.ID)
	return resp.Data.ID
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorCode {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestRoomEndpoints(t *testing.T) {
	h := newHarness(t, nil)

	t.Run("create requires a token", func(t *testing.T) {
		w := h.do(http.MethodPost, "/api/v1/rooms/create", "", dto.CreateRoomRequest{})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("create validates the body", func(t *testing.T) {
		w := h.do(http.MethodPost, "/api/v1/rooms/create", "alice", dto.CreateRoomRequest{
			Title: "x", Location: "y", StartAt: h.now.Add(time.Hour).Format(time.RFC3339), Capacity: 1,
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrorCodeValidationFailed, errorCode(t, w))
	})

	t.Run("create rejects a past start", func(t *testing.T) {
		w := h.do(http.MethodPost, "/api/v1/rooms/create", "alice", dto.CreateRoomRequest{
			Title: "x", Location: "y", StartAt: h.now.Add(-time.Hour).Format(time.RFC3339), Capacity: 4,
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrorCodeInvalidRequest, errorCode(t, w))
	})

	roomID := h.createRoom("alice", 2)

	t.Run("full room answers conflict", func(t *testing.T) {
		for _, uid := range []string{"bob", "carol"} {
			w := h.do(http.MethodPost, "/api/v1/rooms/join", uid, dto.RoomIDRequest{RoomID: roomID})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		}

		w := h.do(http.MethodPost, "/api/v1/rooms/join", "dave", dto.RoomIDRequest{RoomID: roomID})
		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrorCodeConflict, errorCode(t, w))
	})

	t.Run("leave during the lock is a failed precondition", func(t *testing.T) {
		w := h.do(http.MethodPost, "/api/v1/rooms/leave", "bob", dto.RoomIDRequest{RoomID: roomID})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrorCodePreconditionFailed, errorCode(t, w))
	})

	t.Run("non creator cannot close", func(t *testing.T) {
		w := h.do(http.MethodPost, "/api/v1/rooms/close", "bob", dto.RoomIDRequest{RoomID: roomID})
		require.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("get", func(t *testing.T) {
		w := h.do(http.MethodGet, "/api/v1/rooms/get?id="+roomID, "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data dto.RoomResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Data.ParticipantsCount)
		assert.False(t, resp.Data.ParticipantsVisible)
		assert.Empty(t, resp.Data.Participants)
	})

	t.Run("ensure hides participants before reveal", func(t *testing.T) {
		w := h.do(http.MethodPost, "/api/v1/rooms/ensure", "mallory", dto.RoomIDRequest{RoomID: roomID})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Data dto.RoomTransitionResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Data.Room.ParticipantsCount)
		assert.False(t, resp.Data.Room.ParticipantsVisible)
		assert.Empty(t, resp.Data.Room.Participants)
	})

	t.Run("get requires an id", func(t *testing.T) {
		w := h.do(http.MethodGet, "/api/v1/rooms/get", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get unknown room", func(t *testing.T) {
		w := h.do(http.MethodGet, "/api/v1/rooms/get?id=missing", "", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrorCodeResourceNotFound, errorCode(t, w))
	})

	t.Run("list", func(t *testing.T) {
		w := h.do(http.MethodGet, "/api/v1/rooms/list?limit=5", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data dto.RoomListResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Data.Count)
	})
}

func TestAdminEndpointsRequireRole(t *testing.T) {
	h := newHarness(t, nil)

	w := h.do(http.MethodGet, "/api/v1/admin/scores/audit", "alice", nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, dto.ErrorCodeForbidden, errorCode(t, w))

	w = h.do(http.MethodGet, "/api/v1/admin/scores/audit", "root", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodGet, "/api/v1/admin/scores/audit", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSweepEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	h.createRoom("alice", 4)

	w := h.do(http.MethodPost, "/api/v1/cron/sweep", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	h.now = h.now.Add(5 * time.Hour)
	w = h.do(http.MethodPost, "/api/v1/cron/sweep", "", nil, middleware.CronSecretHeader, cronSecret)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data dto.SweepReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Scanned)
	assert.Equal(t, 0, resp.Data.Failed)
}

func TestHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		h := newHarness(t, nil)
		w := h.do(http.MethodGet, "/api/v1/health", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("degraded", func(t *testing.T) {
		h := newHarness(t, map[string]controllers.CheckFunc{
			"redis": func(ctx context.Context) error { return errors.New("connection refused") },
		})
		w := h.do(http.MethodGet, "/api/v1/health", "", nil)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp struct {
			Data dto.HealthResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "degraded", resp.Data.Status)
		assert.Equal(t, "connection refused", resp.Data.Checks["redis"])
	})
}
