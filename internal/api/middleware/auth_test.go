package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/eventhub-api/internal/domain"
	"github.com/vietanh2810/eventhub-api/internal/pkg/jwthelper"
)

const signingKey = "middleware-test-key"

type stubResolver struct {
	err error
}

func (r stubResolver) Authenticate(_ context.Context, identity domain.User) (domain.Principal, error) {
	if r.err != nil {
		return domain.Principal{}, r.err
	}

	return domain.Principal{UserID: identity.ID, Email: identity.Email, Roles: []string{domain.PlatformRoleUser}}, nil
}

func newRouter(resolver IdentityResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", NewAuthenticator(signingKey, resolver).VerifyJWT(), func(ctx *gin.Context) {
		principal, ok := GetPrincipal(ctx)
		if !ok {
			ctx.Status(http.StatusTeapot)
			return
		}
		ctx.String(http.StatusOK, principal.Email)
	})

	return r
}

func TestVerifyJWT(t *testing.T) {
	token, err := jwthelper.GenerateToken([]byte(signingKey), domain.User{ID: 7, Email: "erin@example.com"}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		resolver IdentityResolver
		header   string
		query    string
		wantCode int
		wantBody string
	}{
		{name: "header", resolver: stubResolver{}, header: "Bearer " + token, wantCode: http.StatusOK, wantBody: "erin@example.com"},
		{name: "lowercase scheme", resolver: stubResolver{}, header: "bearer " + token, wantCode: http.StatusOK, wantBody: "erin@example.com"},
		{name: "query param", resolver: stubResolver{}, query: "?access_token=" + token, wantCode: http.StatusOK, wantBody: "erin@example.com"},
		{name: "missing", resolver: stubResolver{}, wantCode: http.StatusUnauthorized},
		{name: "malformed", resolver: stubResolver{}, header: "Bearer nope", wantCode: http.StatusUnauthorized},
		{name: "email conflict", resolver: stubResolver{err: domain.ErrEmailTaken}, header: "Bearer " + token, wantCode: http.StatusConflict},
		{name: "store failure", resolver: stubResolver{err: errors.New("db down")}, header: "Bearer " + token, wantCode: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			newRouter(tc.resolver).ServeHTTP(rec, req)

			assert.Equal(t, tc.wantCode, rec.Code)
			if tc.wantBody != "" {
				assert.Equal(t, tc.wantBody, rec.Body.String())
			}
		})
	}
}

func TestConfigCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ConfigCORS([]string{"https://app.example.com"}))
	r.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
