// Package auth resolves the calling principal for each request. Production
// deployments verify a bearer JWT whose subject is the principal; development
// deployments may name the principal directly in the X-Principal header.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// PrincipalHeader names the caller in development mode.
const PrincipalHeader = "X-Principal"

type Claims struct {
	jwt.RegisteredClaims
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey is used for development/testing only
	SigningKey []byte
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "HS256"}),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	var keyFunc jwt.Keyfunc
	if len(cfg.SigningKey) > 0 {
		keyFunc = func(*jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }
	} else {
		keyFunc = jwksKeyFunc(cfg.JWKSURL)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if AuthSkipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, keyFunc, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			p := ledger.Principal(claims.Subject)
			if err := p.Validate(); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "token subject is not a valid principal")
			}
			setPrincipal(c, p)
			return next(c)
		}
	}
}

// DevAuthMiddleware trusts the X-Principal header. Requests carrying a bearer
// token instead are handed to fallback, which may be nil.
func DevAuthMiddleware(fallback echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		var viaToken echo.HandlerFunc
		if fallback != nil {
			viaToken = fallback(next)
		}
		return func(c echo.Context) error {
			if AuthSkipper(c) {
				return next(c)
			}
			if h := c.Request().Header.Get(PrincipalHeader); h != "" {
				p := ledger.Principal(h)
				if err := p.Validate(); err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid principal header")
				}
				setPrincipal(c, p)
				return next(c)
			}
			if viaToken != nil && c.Request().Header.Get("Authorization") != "" {
				return viaToken(c)
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "missing principal")
		}
	}
}

func setPrincipal(c echo.Context, p ledger.Principal) {
	c.Set(string(PrincipalKey), p)
	c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))
}

// WithPrincipal returns ctx carrying p as the caller.
func WithPrincipal(ctx context.Context, p ledger.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

func PrincipalFromContext(ctx context.Context) ledger.Principal {
	p, _ := ctx.Value(PrincipalKey).(ledger.Principal)
	return p
}

// Caller returns the authenticated principal for c or a 401.
func Caller(c echo.Context) (ledger.Principal, error) {
	p := PrincipalFromContext(c.Request().Context())
	if p == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
	}
	return p, nil
}
