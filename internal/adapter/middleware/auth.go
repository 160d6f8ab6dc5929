package middleware

import (
	"net/http"
	"strings"

	"credhealth/internal/domain/user"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const callerKey = "credhealth.caller"

// TokenParser turns a bearer token into a caller.
type TokenParser interface {
	Parse(token string) (user.Caller, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the caller on the
// echo context for CallerFrom.
func RequireAuth(tokens TokenParser, logger *zap.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, token, ok := strings.Cut(strings.TrimSpace(raw), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": user.ErrUnauthenticated.Error()})
			}
			caller, err := tokens.Parse(token)
			if err != nil {
				logger.Debug("bearer token rejected", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": user.ErrUnauthenticated.Error()})
			}
			c.Set(callerKey, caller)
			return next(c)
		}
	}
}

// CallerFrom returns the authenticated caller, or the zero caller on public routes.
func CallerFrom(c echo.Context) user.Caller {
	caller, _ := c.Get(callerKey).(user.Caller)
	return caller
}

// WithCaller stores c on the echo context. Tests use it to skip token handling.
func WithCaller(ec echo.Context, c user.Caller) {
	ec.Set(callerKey, c)
}
