package model

import "github.com/golang-jwt/jwt/v5"

// HostClaims is the JWT payload behind the host bearer token. A host
// token is room-agnostic: it grants room creation plus lifecycle control
// over any room the host owns.
type HostClaims struct {
	HostID string `json:"hostId"`
	jwt.RegisteredClaims
}

// PlayerClaims is the JWT payload minted on join. A player token is
// scoped to a single room; voting and proposing never cross rooms even
// if a token leaks.
type PlayerClaims struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
	jwt.RegisteredClaims
}

// LoginRequest carries the host credentials exchanged for a token.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse returns the signed host token and the host identity the
// client should present on subsequent requests.
type LoginResponse struct {
	Token  string `json:"token"`
	HostID string `json:"hostId"`
}
