package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
)

// Staff and patient roles carried in the token's user metadata.
const (
	RoleAdmin       = "admin"
	RoleFrontOffice = "fo"
	RoleDoctor      = "doctor"
	RoleNurse       = "nurse"
	RolePharmacy    = "pharmacy"
	RolePatient     = "patient"
)

// Claims follows the Supabase access token layout: the application role
// lives in user_metadata, the top-level role is the database role.
type Claims struct {
	jwt.RegisteredClaims
	Email        string       `json:"email,omitempty"`
	Role         string       `json:"role,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

type UserMetadata struct {
	Role string `json:"role,omitempty"`
	Name string `json:"name,omitempty"`
}

// Roles returns the application roles granted by the token.
func (c *Claims) Roles() []string {
	if c.UserMetadata.Role != "" {
		return []string{c.UserMetadata.Role}
	}
	if c.Role != "" && c.Role != "authenticated" {
		return []string{c.Role}
	}
	return nil
}

// WebSocketTokenParam carries the access token on websocket upgrades, where
// browsers cannot set an Authorization header.
const WebSocketTokenParam = "access_token"

type JWTConfig struct {
	Secret   []byte
	Audience string
}

// JWTMiddleware validates an HS256 bearer token and stores the subject and
// roles on the request context. Websocket upgrades may pass the token in the
// access_token query parameter instead.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(opts...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr, ok := bearerToken(c.Request())
			if !ok && c.IsWebSocket() {
				tokenStr = c.QueryParam(WebSocketTokenParam)
				ok = tokenStr != ""
			}
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed bearer token")
			}

			claims := &Claims{}
			token, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
				return cfg.Secret, nil
			})
			if err != nil || !token.Valid || claims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.SetRequest(c.Request().WithContext(WithUser(c.Request().Context(), claims.Subject, claims.Roles())))
			return next(c)
		}
	}
}

// DevAuthMiddleware admits every request as an admin user.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := WithUser(c.Request().Context(), "dev-user", []string{RoleAdmin})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithUser returns a context carrying the caller identity.
func WithUser(ctx context.Context, userID string, roles []string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UserRolesKey, roles)
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}
