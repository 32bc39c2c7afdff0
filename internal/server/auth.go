package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// TeamClaims are the claims the external auth service signs into its tokens.
// The engine trusts the resolved team id and admin flag; it never issues or
// refreshes tokens itself.
type TeamClaims struct {
	TeamID   string `json:"teamId"`
	TeamName string `json:"teamName"`
	IsAdmin  bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

type contextKey string

const claimsKey contextKey = "teamClaims"

// claimsFromContext returns the verified claims attached by authMiddleware.
func claimsFromContext(ctx context.Context) (*TeamClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*TeamClaims)
	return claims, ok
}

// parseToken verifies an HMAC-signed token and extracts the team claims.
func (s *Server) parseToken(tokenString string) (*TeamClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TeamClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*TeamClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.TeamID == "" {
		return nil, fmt.Errorf("token missing team id")
	}
	return claims, nil
}

// authMiddleware resolves the caller's team from the Authorization header
// (or a token query parameter for websocket clients) and registers the team
// account on first sight.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := ""
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			raw = strings.TrimPrefix(auth, "Bearer ")
		} else if t := r.URL.Query().Get("token"); t != "" {
			raw = t
		}
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}

		claims, err := s.parseToken(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		s.market.EnsureTeam(claims.TeamID, claims.TeamName)

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin rejects non-admin callers.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok || !claims.IsAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	}
}
