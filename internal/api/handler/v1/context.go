package v1

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/eventhub-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/eventhub-api/internal/api/middleware"
	"github.com/vietanh2810/eventhub-api/internal/domain"
)

var errNoPrincipal = errors.New("request is not authenticated")

// getPrincipal renders 401 and reports false when the authenticator did not run.
func getPrincipal(ctx *gin.Context) (domain.Principal, bool) {
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		response.RenderErr(ctx, response.ErrUnauthorized(errNoPrincipal))
		return domain.Principal{}, false
	}

	return principal, true
}

func getIDParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("%s must be a positive integer", name)))
		return 0, false
	}

	return uint(id), true
}

// renderServiceErr maps the error kind to a status. Anything unclassified is a 500.
func renderServiceErr(ctx *gin.Context, where string, err error) {
	reason := errors.New(domain.Reason(err))

	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.RenderErr(ctx, response.ErrNotFoundCause(reason))
	case errors.Is(err, domain.ErrConflict):
		response.RenderErr(ctx, response.ErrConflict(reason))
	case errors.Is(err, domain.ErrForbidden):
		response.RenderErr(ctx, response.ErrPermissionDenied(reason))
	case errors.Is(err, domain.ErrValidation):
		response.RenderErr(ctx, response.ErrBadRequest(reason))
	default:
		response.RenderErr(ctx, response.ErrInternalServerError(fmt.Errorf("%s -> %w", where, err)))
	}
}
