package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/moim/internal/app/models/dto"
	"github.com/yigit/moim/internal/pkg/apperrors"
	"github.com/yigit/moim/internal/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticAuthorizer struct {
	admins map[string]bool
	err    error
}

func (a staticAuthorizer) IsAdmin(ctx context.Context, uid string) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	return a.admins[uid], nil
}

func newJWT(exp time.Duration) *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: exp,
		TokenIssuer:    "moim.test",
	})
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp
}

func newAuthRouter(m *AuthMiddleware) *gin.Engine {
	router := gin.New()
	authed := router.Group("", m.JWTAuth())
	authed.GET("/whoami", func(c *gin.Context) {
		uid, _ := CurrentUID(c)
		c.JSON(http.StatusOK, gin.H{"uid": uid, "name": CurrentName(c)})
	})
	authed.GET("/admin", m.AdminRequired(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestJWTAuth(t *testing.T) {
	jwtService := newJWT(time.Hour)
	router := newAuthRouter(NewAuthMiddleware(jwtService, staticAuthorizer{}))

	token, err := jwtService.IssueToken("alice", "Alice")
	require.NoError(t, err)

	expired, err := newJWT(-time.Minute).IssueToken("alice", "Alice")
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantErr  dto.ErrorCode
	}{
		{name: "missing header", header: "", wantCode: http.StatusUnauthorized, wantErr: dto.ErrorCodeUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantCode: http.StatusUnauthorized, wantErr: dto.ErrorCodeUnauthorized},
		{name: "garbage token", header: "Bearer not-a-token", wantCode: http.StatusUnauthorized, wantErr: dto.ErrorCodeInvalidToken},
		{name: "expired token", header: "Bearer " + expired, wantCode: http.StatusUnauthorized, wantErr: dto.ErrorCodeExpiredToken},
		{name: "bearer token", header: "Bearer " + token, wantCode: http.StatusOK},
		{name: "raw token", header: token, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.wantCode, w.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, decodeError(t, w).Error.Code)
				return
			}

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "alice", body["uid"])
			assert.Equal(t, "Alice", body["name"])
		})
	}
}

func TestAdminRequired(t *testing.T) {
	jwtService := newJWT(time.Hour)

	call := func(router *gin.Engine, uid string) *httptest.ResponseRecorder {
		token, err := jwtService.IssueToken(uid, "")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	router := newAuthRouter(NewAuthMiddleware(jwtService, staticAuthorizer{admins: map[string]bool{"root": true}}))

	t.Run("admin passes", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, call(router, "root").Code)
	})

	t.Run("member is forbidden", func(t *testing.T) {
		w := call(router, "alice")
		require.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, dto.ErrorCodeForbidden, decodeError(t, w).Error.Code)
	})

	t.Run("registry failure hides the cause", func(t *testing.T) {
		broken := newAuthRouter(NewAuthMiddleware(jwtService, staticAuthorizer{err: errors.New("db down")}))
		w := call(broken, "root")
		require.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, dto.ErrorCodeInternalServer, resp.Error.Code)
		assert.NotContains(t, resp.Error.Message, "db down")
	})
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   dto.ErrorCode
	}{
		{"room full", apperrors.ErrRoomFull, http.StatusConflict, dto.ErrorCodeConflict},
		{"wrapped room full", fmt.Errorf("join: %w", apperrors.ErrRoomFull), http.StatusConflict, dto.ErrorCodeConflict},
		{"duplicate", apperrors.ErrDuplicate, http.StatusConflict, dto.ErrorCodeConflict},
		{"room closed", apperrors.ErrRoomClosed, http.StatusBadRequest, dto.ErrorCodePreconditionFailed},
		{"vote window", apperrors.ErrVoteWindow, http.StatusBadRequest, dto.ErrorCodePreconditionFailed},
		{"room not found", apperrors.ErrRoomNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
		{"record not found", apperrors.ErrNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
		{"forbidden", apperrors.NewForbiddenError("nope"), http.StatusForbidden, dto.ErrorCodeForbidden},
		{"bad request", apperrors.NewBadRequestError("capacity out of range"), http.StatusBadRequest, dto.ErrorCodeInvalidRequest},
		{"expired token", apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken},
		{"invalid token", apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeUnauthorized},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, dto.ErrorCodeInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := ErrorStatus(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestHandleAPIError(t *testing.T) {
	serve := func(err error) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		HandleAPIError(c, err)
		return w
	}

	t.Run("domain message is kept", func(t *testing.T) {
		w := serve(apperrors.ErrRoomFull)
		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "room is full", decodeError(t, w).Error.Message)
	})

	t.Run("details are attached", func(t *testing.T) {
		custom := &apperrors.CustomError{Err: errors.New("tx aborted"), Message: "score reset interrupted"}
		w := serve(custom.WithDetails(map[string]interface{}{"cursor": "bob"}))
		require.Equal(t, http.StatusInternalServerError, w.Code)

		resp := decodeError(t, w)
		assert.Equal(t, "Internal server error", resp.Error.Message)
		details, ok := resp.Error.Details.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "bob", details["cursor"])
	})
}

func TestCronSecret(t *testing.T) {
	hash, err := auth.HashCronSecret("s3cret")
	require.NoError(t, err)

	newRouter := func(verifier *auth.CronSecretVerifier) *gin.Engine {
		router := gin.New()
		router.POST("/cron/sweep", CronSecret(verifier), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return router
	}

	tests := []struct {
		name     string
		hash     string
		secret   string
		wantCode int
	}{
		{"matching secret", hash, "s3cret", http.StatusOK},
		{"wrong secret", hash, "guess", http.StatusUnauthorized},
		{"missing secret", hash, "", http.StatusUnauthorized},
		{"unconfigured hash", "", "s3cret", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/cron/sweep", nil)
			if tt.secret != "" {
				req.Header.Set(CronSecretHeader, tt.secret)
			}
			w := httptest.NewRecorder()
			newRouter(auth.NewCronSecretVerifier(tt.hash)).ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestBindJSON(t *testing.T) {
	type payload struct {
		RoomID string `json:"roomId" binding:"required"`
	}

	router := gin.New()
	router.POST("/bind", func(c *gin.Context) {
		var req payload
		if !BindJSON(c, &req) {
			return
		}
		c.JSON(http.StatusOK, req)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bind", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, decodeError(t, w).Success)
}
