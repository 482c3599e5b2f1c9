package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/eventhub-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/eventhub-api/internal/domain"
	"github.com/vietanh2810/eventhub-api/internal/pkg/jwthelper"
)

const (
	principalKey = "principal"

	// accessTokenParam lets EventSource and WebSocket clients, which cannot
	// set headers, pass the bearer token in the query string.
	accessTokenParam = "access_token"
)

var errMissingToken = errors.New("missing bearer token")

type IdentityResolver interface {
	Authenticate(ctx context.Context, identity domain.User) (domain.Principal, error)
}

type Authenticator struct {
	signingKey []byte
	users      IdentityResolver
}

func NewAuthenticator(signingKey string, users IdentityResolver) *Authenticator {
	return &Authenticator{
		signingKey: []byte(signingKey),
		users:      users,
	}
}

func (a *Authenticator) VerifyJWT() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := bearerToken(ctx)
		if token == "" {
			response.RenderErr(ctx, response.ErrUnauthorized(errMissingToken))
			return
		}

		claims, err := jwthelper.ParseToken(a.signingKey, token)
		if err != nil {
			response.RenderErr(ctx, response.ErrUnauthorized(err))
			return
		}

		identity, err := claims.User()
		if err != nil {
			response.RenderErr(ctx, response.ErrUnauthorized(err))
			return
		}

		principal, err := a.users.Authenticate(ctx.Request.Context(), identity)
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				response.RenderErr(ctx, response.ErrConflict(err))
				return
			}

			err = fmt.Errorf("middleware.VerifyJWT -> a.users.Authenticate -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
			return
		}

		SetPrincipal(ctx, principal)
		ctx.Next()
	}
}

func SetPrincipal(ctx *gin.Context, principal domain.Principal) {
	ctx.Set(principalKey, principal)
}

func GetPrincipal(ctx *gin.Context) (domain.Principal, bool) {
	v, ok := ctx.Get(principalKey)
	if !ok {
		return domain.Principal{}, false
	}
	principal, ok := v.(domain.Principal)

	return principal, ok
}

func bearerToken(ctx *gin.Context) string {
	header := ctx.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}

	return ctx.Query(accessTokenParam)
}
