// Package middleware verifies the two capabilities the polling API runs
// on: a host token minted at login, and a room-scoped player token minted
// at join. Handlers read the verified identity back out of the request
// context through the Get helpers.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"hotshot/internal/service"
)

type contextKey int

const (
	hostIDKey contextKey = iota
	playerIDKey
	roomCodeKey
)

// AuthMiddleware guards host-only and player-only routes.
type AuthMiddleware struct {
	tokens *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(tokens *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireHost admits only requests carrying a valid host token. The host
// identity lands in the context for ownership checks downstream.
func (m *AuthMiddleware) RequireHost(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.tokens.ValidateHostToken(bearerToken(r))
		if err != nil {
			unauthorized(w)
			return
		}
		ctx := context.WithValue(r.Context(), hostIDKey, claims.HostID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePlayer admits only requests carrying a valid player token. The
// token also scopes the caller to one room; voting paths compare that
// scope against the player record, so a token cannot be replayed into
// another room.
func (m *AuthMiddleware) RequirePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			// WebSocket clients cannot set headers; they pass the token
			// as a query parameter instead.
			token = r.URL.Query().Get("token")
		}

		claims, err := m.tokens.ValidatePlayerToken(token)
		if err != nil {
			unauthorized(w)
			return
		}
		ctx := context.WithValue(r.Context(), playerIDKey, claims.PlayerID)
		ctx = context.WithValue(ctx, roomCodeKey, claims.RoomCode)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetHostID returns the verified host identity, or "" on an unguarded
// route.
func GetHostID(ctx context.Context) string {
	v, _ := ctx.Value(hostIDKey).(string)
	return v
}

// GetPlayerID returns the verified player identity, or "".
func GetPlayerID(ctx context.Context) string {
	v, _ := ctx.Value(playerIDKey).(string)
	return v
}

// GetRoomCode returns the room the player token is scoped to, or "".
func GetRoomCode(ctx context.Context) string {
	v, _ := ctx.Value(roomCodeKey).(string)
	return v
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "invalid or missing token"})
}
