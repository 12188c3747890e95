package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the authenticated caller attached to a request context.
type Session struct {
	Subject string
	Role    string
}

type sessionKey struct{}

// SessionFromContext returns the session stored by Gate.RequireSession.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// sessionClaims are the claims carried by a console session token.
type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Gate verifies HS256 session tokens issued by the console's login service.
// A nil Gate, or one built with an empty secret, admits every request.
type Gate struct {
	secret []byte
	parser *jwt.Parser
	logger *slog.Logger
}

// NewGate creates a Gate that verifies tokens signed with secret.
func NewGate(secret string, logger *slog.Logger) *Gate {
	return &Gate{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
		logger: logger,
	}
}

func (g *Gate) enabled() bool {
	return g != nil && len(g.secret) > 0
}

// RequireSession rejects requests without a valid bearer session token.
func (g *Gate) RequireSession(next http.Handler) http.Handler {
	if !g.enabled() {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		claims := &sessionClaims{}
		_, err := g.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return g.secret, nil
		})
		if err != nil {
			if !errors.Is(err, jwt.ErrTokenExpired) {
				g.logger.Warn("rejected session token", "path", r.URL.Path, "error", err)
			}
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, Session{
			Subject: claims.Subject,
			Role:    claims.Role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects sessions whose role claim is not role. It must be
// wrapped by RequireSession.
func (g *Gate) RequireRole(role string, next http.Handler) http.Handler {
	if !g.enabled() {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := SessionFromContext(r.Context())
		if !ok || !strings.EqualFold(s.Role, role) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
