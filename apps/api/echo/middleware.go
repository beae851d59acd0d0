package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/user"
)

// roleMiddleware lets through the tokens whose role grants capa.
func roleMiddleware(capa user.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.Role.Can(capa) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// loginThrottle rejects logins from a client locked out by limiter.
// Handlers report the outcome of each attempt with loginFailed / loginSucceeded.
func loginThrottle(limiter core.LoginLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if limiter == nil {
				return next(ctx)
			}
			wait, err := limiter.Locked(ctx.Request().Context(), ctx.RealIP())
			if err != nil {
				return errors.Wrap(err, "checking login lock")
			}
			if wait > 0 {
				ctx.Response().Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds()+.5)))
				return errLoginLocked
			}
			return next(ctx)
		}
	}
}

func loginFailed(ctx echo.Context, limiter core.LoginLimiter) error {
	if limiter == nil {
		return errAuthenticationFailed
	}
	locked, err := limiter.Fail(ctx.Request().Context(), ctx.RealIP())
	if err != nil {
		return errors.Wrap(err, "recording failed login")
	}
	if locked {
		return errLoginLocked
	}
	return errAuthenticationFailed
}

func loginSucceeded(ctx echo.Context, limiter core.LoginLimiter) error {
	if limiter == nil {
		return nil
	}
	return errors.Wrap(limiter.Reset(ctx.Request().Context(), ctx.RealIP()), "resetting login attempts")
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Projex API!")
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
